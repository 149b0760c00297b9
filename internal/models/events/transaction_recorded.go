package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionRecorded is emitted after the ledger applied and persisted a transaction.
type TransactionRecorded struct {
	EventID       string          `json:"eventId"`
	TransactionID string          `json:"transactionId"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	BalanceAfter  decimal.Decimal `json:"balanceAfter"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

// Key partitions events by transaction.
func (e TransactionRecorded) Key() string { return e.TransactionID }
