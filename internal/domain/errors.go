package domain

import "errors"

var (
	ErrInvalidAccount    = errors.New("invalid account")
	ErrSameAccount       = errors.New("source and destination account are the same")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrLockTimeout       = errors.New("account lock timeout")
)

// IsRetryable reports whether a failed transfer may succeed if submitted again
// unchanged. Only lock contention qualifies.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}
