package processor

import (
	"context"
	"errors"
	"fmt"
	"funds_transfer/internal/domain"
	"funds_transfer/internal/repository"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultLockTimeout = 2000 * time.Millisecond

const (
	OutcomeSuccess           = "success"
	OutcomeInvalidAmount     = "invalid_amount"
	OutcomeInvalidAccount    = "invalid_account"
	OutcomeInsufficientFunds = "insufficient_funds"
	OutcomeLockTimeout       = "lock_timeout"
	OutcomeCanceled          = "canceled"
	OutcomeError             = "error"
)

// Notifier receives transfer-completion messages. Implementations must not
// block; the engine ignores delivery failures.
type Notifier interface {
	Notify(ctx context.Context, account *domain.Account, message string)
}

type MetricsRecorder interface {
	RecordTransfer(outcome string, duration time.Duration)
	RecordLockWait(wait time.Duration, acquired bool)
	UpdateAccountBalance(accountID string, balance decimal.Decimal)
}

type TransferEngine struct {
	accountRepo repository.AccountRepository
	notifier    Notifier
	metrics     MetricsRecorder
	lockTimeout time.Duration
	logger      *slog.Logger
}

func NewTransferEngine(
	accountRepo repository.AccountRepository,
	notifier Notifier,
	metrics MetricsRecorder,
	lockTimeout time.Duration,
	logger *slog.Logger,
) *TransferEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &TransferEngine{
		accountRepo: accountRepo,
		notifier:    notifier,
		metrics:     metrics,
		lockTimeout: lockTimeout,
		logger:      logger,
	}
}

// Transfer moves amount from fromID to toID.
//
// A non-positive amount is a no-op reported as (false, nil). Otherwise the
// error is nil on success or matches one of domain.ErrInvalidAccount,
// domain.ErrInsufficientFunds or domain.ErrLockTimeout. A cancelled ctx
// while waiting for a lock yields the context error.
func (e *TransferEngine) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (bool, error) {
	return e.Execute(ctx, domain.NewTransferRequest(fromID, toID, amount))
}

func (e *TransferEngine) Execute(ctx context.Context, req domain.TransferRequest) (bool, error) {
	startTime := time.Now()

	err := e.execute(ctx, req)
	outcome := outcomeOf(err)
	e.metrics.RecordTransfer(outcome, time.Since(startTime))

	if outcome == OutcomeInvalidAmount {
		return false, nil
	}
	return err == nil, err
}

var errInvalidAmount = errors.New("amount must be positive")

func (e *TransferEngine) execute(ctx context.Context, req domain.TransferRequest) error {
	logger := e.logger.With(slog.String("transfer_id", req.ID))

	if !req.Amount.IsPositive() {
		logger.DebugContext(ctx, "Transfer ignored, amount is not positive",
			slog.String("amount", req.Amount.String()))
		return errInvalidAmount
	}
	if req.FromAccountID == "" || req.ToAccountID == "" {
		return fmt.Errorf("%w: account id is empty", domain.ErrInvalidAccount)
	}
	if req.FromAccountID == req.ToAccountID {
		return fmt.Errorf("%w: %w: %s", domain.ErrInvalidAccount, domain.ErrSameAccount, req.FromAccountID)
	}

	fromAccount, err := e.resolve(ctx, req.FromAccountID)
	if err != nil {
		return err
	}
	toAccount, err := e.resolve(ctx, req.ToAccountID)
	if err != nil {
		return err
	}

	fromBalance, toBalance, err := e.move(ctx, fromAccount, toAccount, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrLockTimeout):
			logger.WarnContext(ctx, "Lock not acquired, transfer could not be completed",
				slog.String("from_account", req.FromAccountID),
				slog.String("to_account", req.ToAccountID),
				slog.Duration("lock_timeout", e.lockTimeout))
		case errors.Is(err, domain.ErrInsufficientFunds):
			logger.InfoContext(ctx, "Transfer rejected, insufficient funds",
				slog.String("from_account", req.FromAccountID),
				slog.String("amount", req.Amount.String()))
		}
		return err
	}

	e.metrics.UpdateAccountBalance(fromAccount.ID(), fromBalance)
	e.metrics.UpdateAccountBalance(toAccount.ID(), toBalance)

	logger.InfoContext(ctx, "Transfer completed successfully",
		slog.String("from_account", req.FromAccountID),
		slog.String("to_account", req.ToAccountID),
		slog.String("amount", req.Amount.String()))

	// Locks are already released here; notifier latency never holds an account.
	e.notifier.Notify(ctx, fromAccount,
		fmt.Sprintf("Account %s debited with amount %s (transfer to %s)", fromAccount.ID(), req.Amount, toAccount.ID()))
	e.notifier.Notify(ctx, toAccount,
		fmt.Sprintf("Account %s credited with amount %s (transfer from %s)", toAccount.ID(), req.Amount, fromAccount.ID()))

	return nil
}

func (e *TransferEngine) resolve(ctx context.Context, id string) (*domain.Account, error) {
	account, err := e.accountRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidAccount, id)
		}
		return nil, fmt.Errorf("failed to get account %s: %w", id, err)
	}
	return account, nil
}

// move holds both account locks, in global order, for the duration of the
// balance check and update. The returned balances are read under the locks.
// Lock-wait metrics are recorded only after both locks are released.
func (e *TransferEngine) move(
	ctx context.Context,
	fromAccount, toAccount *domain.Account,
	amount decimal.Decimal,
) (decimal.Decimal, decimal.Decimal, error) {
	first, second := lockOrder(fromAccount, toAccount)

	waits := make([]lockWait, 0, 2)
	defer func() {
		for _, w := range waits {
			e.metrics.RecordLockWait(w.duration, w.acquired)
		}
	}()

	wait, err := e.acquire(ctx, first)
	waits = append(waits, wait)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	defer first.Unlock()

	wait, err = e.acquire(ctx, second)
	waits = append(waits, wait)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	defer second.Unlock()

	if fromAccount.Balance().LessThan(amount) {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: account %s balance is less than %s",
			domain.ErrInsufficientFunds, fromAccount.ID(), amount)
	}

	fromAccount.SetBalance(fromAccount.Balance().Sub(amount))
	toAccount.SetBalance(toAccount.Balance().Add(amount))

	return fromAccount.Balance(), toAccount.Balance(), nil
}

type lockWait struct {
	duration time.Duration
	acquired bool
}

func (e *TransferEngine) acquire(ctx context.Context, account *domain.Account) (lockWait, error) {
	lockCtx, cancel := context.WithTimeout(ctx, e.lockTimeout)
	defer cancel()

	startTime := time.Now()
	err := account.Lock(lockCtx)
	wait := lockWait{duration: time.Since(startTime), acquired: err == nil}

	if err == nil {
		return wait, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return wait, fmt.Errorf("waiting for account %s: %w", account.ID(), ctxErr)
	}
	return wait, fmt.Errorf("%w: account %s after %s", domain.ErrLockTimeout, account.ID(), e.lockTimeout)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, errInvalidAmount):
		return OutcomeInvalidAmount
	case errors.Is(err, domain.ErrInvalidAccount):
		return OutcomeInvalidAccount
	case errors.Is(err, domain.ErrInsufficientFunds):
		return OutcomeInsufficientFunds
	case errors.Is(err, domain.ErrLockTimeout):
		return OutcomeLockTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, *domain.Account, string) {}

type noopMetrics struct{}

func (noopMetrics) RecordTransfer(string, time.Duration)         {}
func (noopMetrics) RecordLockWait(time.Duration, bool)           {}
func (noopMetrics) UpdateAccountBalance(string, decimal.Decimal) {}
