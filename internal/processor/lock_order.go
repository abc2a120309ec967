package processor

import (
	"funds_transfer/internal/domain"
	"strings"
)

// compareAccounts is the single total order every transfer locks in.
func compareAccounts(a, b *domain.Account) int {
	return strings.Compare(a.ID(), b.ID())
}

// lockOrder returns the pair so that first sorts before second, independent
// of transfer direction.
func lockOrder(a, b *domain.Account) (first, second *domain.Account) {
	if compareAccounts(a, b) <= 0 {
		return a, b
	}
	return b, a
}
