package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType says which way money moved. The amount itself is always positive.
type TransactionType string

const (
	Credit TransactionType = "credit"
	Debit  TransactionType = "debit"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == Credit || t == Debit
}

// Transaction represents a single monetary event applied to the user's balance
type Transaction struct {
	ID          string          `json:"id"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"` // always > 0
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
}

// Signed returns the amount with the sign implied by the type.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == Debit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// SignedSum adds up the signed amounts of txs (credits positive, debits negative).
func SignedSum(txs []Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, tx := range txs {
		sum = sum.Add(tx.Signed())
	}
	return sum
}
