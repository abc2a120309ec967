package memory

import (
	"context"
	"fmt"
	"funds_transfer/internal/domain"
	"funds_transfer/internal/repository"
	"sort"
	"sync"
	"time"
)

// AccountRepository keeps accounts in a map. The map mutex only guards
// membership; balances are protected by each account's own lock.
type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		accounts: make(map[string]*domain.Account),
	}
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[account.ID()]; exists {
		return fmt.Errorf("%w: account %s", repository.ErrDuplicate, account.ID())
	}

	account.CreatedAt = time.Now()
	r.accounts[account.ID()] = account

	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, exists := r.accounts[id]
	if !exists {
		return nil, fmt.Errorf("%w: account %s", repository.ErrNotFound, id)
	}
	return account, nil
}

func (r *AccountRepository) List(ctx context.Context) ([]*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Account, 0, len(r.accounts))
	for _, account := range r.accounts {
		result = append(result, account)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID() < result[j].ID()
	})

	return result, nil
}

func (r *AccountRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.accounts = make(map[string]*domain.Account)
	return nil
}
