package memory

import (
	"context"
	"errors"
	"funds_transfer/internal/domain"
	"funds_transfer/internal/repository"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAccountRepository_CreateAndGetByID(t *testing.T) {
	repo := NewAccountRepository()
	account := domain.NewAccount("acc1", decimal.NewFromInt(100))

	err := repo.Create(context.Background(), account)
	if err != nil {
		t.Fatalf("unexpected error on Create: %v", err)
	}
	got, err := repo.GetByID(context.Background(), "acc1")

	if err != nil {
		t.Fatalf("unexpected error on GetByID: %v", err)
	}
	if got != account {
		t.Errorf("expected the stored account pointer, got %p want %p", got, account)
	}
	if got.CreatedAt.IsZero() {
		t.Errorf("expected CreatedAt to be stamped on create")
	}
}

func TestAccountRepository_CreateDuplicate(t *testing.T) {
	repo := NewAccountRepository()
	_ = repo.Create(context.Background(), domain.NewAccount("Id-123", decimal.NewFromInt(1000)))

	err := repo.Create(context.Background(), domain.NewAccount("Id-123", decimal.NewFromInt(1000)))

	if !errors.Is(err, repository.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestAccountRepository_GetByIDNotFound(t *testing.T) {
	repo := NewAccountRepository()

	_, err := repo.GetByID(context.Background(), "missing")

	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAccountRepository_ListSortedByID(t *testing.T) {
	repo := NewAccountRepository()
	_ = repo.Create(context.Background(), domain.NewAccount("b", decimal.Zero))
	_ = repo.Create(context.Background(), domain.NewAccount("a", decimal.Zero))
	_ = repo.Create(context.Background(), domain.NewAccount("c", decimal.Zero))

	accounts, err := repo.List(context.Background())

	if err != nil {
		t.Fatalf("unexpected error on List: %v", err)
	}
	if len(accounts) != 3 || accounts[0].ID() != "a" || accounts[1].ID() != "b" || accounts[2].ID() != "c" {
		t.Errorf("expected accounts a, b, c in order, got %+v", accounts)
	}
}

func TestAccountRepository_Clear(t *testing.T) {
	repo := NewAccountRepository()
	_ = repo.Create(context.Background(), domain.NewAccount("a1", decimal.NewFromInt(5)))

	if err := repo.Clear(context.Background()); err != nil {
		t.Fatalf("unexpected error on Clear: %v", err)
	}

	if _, err := repo.GetByID(context.Background(), "a1"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound after Clear, got %v", err)
	}
	if err := repo.Create(context.Background(), domain.NewAccount("a1", decimal.Zero)); err != nil {
		t.Errorf("expected id to be reusable after Clear, got %v", err)
	}
}
