package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferRequest is a single, unstored instruction to move Amount from one
// account to another.
type TransferRequest struct {
	ID            string          `json:"id"`
	FromAccountID string          `json:"from_account_id"`
	ToAccountID   string          `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
}

func NewTransferRequest(fromID, toID string, amount decimal.Decimal) TransferRequest {
	return TransferRequest{
		ID:            uuid.NewString(),
		FromAccountID: fromID,
		ToAccountID:   toID,
		Amount:        amount,
	}
}
