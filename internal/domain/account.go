package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"
)

// Account is a balance holder guarded by its own exclusive lock.
//
// Balance and SetBalance may only be called by a goroutine that currently
// holds the account's lock. The id never changes after construction.
type Account struct {
	id        string
	balance   decimal.Decimal
	lock      *semaphore.Weighted
	CreatedAt time.Time
}

type AccountSnapshot struct {
	ID        string          `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

func NewAccount(id string, balance decimal.Decimal) *Account {
	return &Account{
		id:      id,
		balance: balance,
		lock:    semaphore.NewWeighted(1),
	}
}

func (a *Account) ID() string {
	return a.id
}

// Lock blocks until the account lock is held or ctx is done.
// On failure it returns ctx.Err() and the lock is not held.
func (a *Account) Lock(ctx context.Context) error {
	return a.lock.Acquire(ctx, 1)
}

func (a *Account) TryLock() bool {
	return a.lock.TryAcquire(1)
}

func (a *Account) Unlock() {
	a.lock.Release(1)
}

func (a *Account) Balance() decimal.Decimal {
	return a.balance
}

func (a *Account) SetBalance(balance decimal.Decimal) {
	a.balance = balance
}

// Snapshot copies the account state under its lock.
func (a *Account) Snapshot(ctx context.Context) (AccountSnapshot, error) {
	if err := a.Lock(ctx); err != nil {
		return AccountSnapshot{}, err
	}
	defer a.Unlock()

	return AccountSnapshot{
		ID:        a.id,
		Balance:   a.balance,
		CreatedAt: a.CreatedAt,
	}, nil
}
