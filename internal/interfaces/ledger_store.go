package interfaces

import (
	"context"

	"github.com/sheikh-saqib/goldpayments-ledger/internal/models"
)

// KVStore is the raw key-value backend the ledger records live in.
// Get returns storage.ErrNotFound when the key was never written.
//
//go:generate mockgen -destination=mocks/mock_ledger_store.go -package=mock_interfaces -source=ledger_store.go
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// LedgerStore persists the two named ledger records: the user and the transaction list.
type LedgerStore interface {
	LoadUser(ctx context.Context) (models.User, error)
	SaveUser(ctx context.Context, user models.User) error
	LoadTransactions(ctx context.Context) ([]models.Transaction, error)
	SaveTransactions(ctx context.Context, txs []models.Transaction) error
}
