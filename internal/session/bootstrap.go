package session

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	interfaces "github.com/sheikh-saqib/goldpayments-ledger/internal/interfaces"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/ledger"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/metrics"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/models"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/storage"
)

// Outcome describes how a session came up.
type Outcome int

const (
	// NeedsOnboarding: no usable user record, onboarding must run.
	NeedsOnboarding Outcome = iota
	// Restored: user and transactions loaded as persisted.
	Restored
	// Healed: user loaded, transactions missing or corrupt and replaced by the default list.
	Healed
)

func (o Outcome) String() string {
	switch o {
	case Restored:
		return "restored"
	case Healed:
		return "healed"
	default:
		return "needs_onboarding"
	}
}

// DefaultTransactions is the fixed history used when a user exists but its
// transaction record does not. A fresh slice is returned on every call.
func DefaultTransactions() []models.Transaction {
	return []models.Transaction{
		{ID: "tx_1", Type: models.Debit, Amount: decimal.RequireFromString("149.00"), Description: "Netflix Subscription", Date: time.Date(2023, 10, 26, 10, 0, 0, 0, time.UTC)},
		{ID: "tx_2", Type: models.Debit, Amount: decimal.RequireFromString("299.00"), Description: "Amazon Purchase", Date: time.Date(2023, 10, 25, 14, 30, 0, 0, time.UTC)},
		{ID: "tx_3", Type: models.Credit, Amount: decimal.RequireFromString("15000.00"), Description: "Payroll Deposit", Date: time.Date(2023, 10, 24, 9, 0, 0, 0, time.UTC)},
		{ID: "tx_4", Type: models.Debit, Amount: decimal.RequireFromString("85.50"), Description: "Starbucks", Date: time.Date(2023, 10, 23, 8, 15, 0, 0, time.UTC)},
	}
}

// Bootstrap builds the session ledger from whatever the store holds.
// It never fails: storage errors leave the ledger degraded (in-memory only).
func Bootstrap(ctx context.Context, store interfaces.LedgerStore, logger *zap.Logger, opts ...ledger.Option) (*ledger.Ledger, Outcome) {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := ledger.NewLedger(store, append([]ledger.Option{ledger.WithLogger(logger)}, opts...)...)

	user, err := store.LoadUser(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		logger.Info("no user record, onboarding required")
		return l, NeedsOnboarding
	case errors.Is(err, storage.ErrCorrupt):
		logger.Warn("user record unreadable, onboarding required", zap.Error(err))
		return l, NeedsOnboarding
	case err != nil:
		metrics.StorageFailures.WithLabelValues("load_user").Inc()
		logger.Error("store unavailable at startup, continuing in memory", zap.Error(err))
		l.MarkDegraded()
		return l, NeedsOnboarding
	}

	outcome := Restored
	txs, err := store.LoadTransactions(ctx)
	if err != nil {
		outcome = Healed
		txs = DefaultTransactions()
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrCorrupt) {
			logger.Warn("transaction record missing or corrupt, using defaults", zap.Error(err))
			if err := store.SaveTransactions(ctx, txs); err != nil {
				metrics.StorageFailures.WithLabelValues("save_transactions").Inc()
				logger.Error("persisting default transactions failed, continuing in memory", zap.Error(err))
				l.MarkDegraded()
			}
		} else {
			metrics.StorageFailures.WithLabelValues("load_transactions").Inc()
			logger.Error("store unavailable at startup, continuing in memory", zap.Error(err))
			l.MarkDegraded()
		}
	}

	// Restore cannot fail on a fresh ledger.
	_ = l.Restore(user, txs)
	logger.Info("session restored",
		zap.String("outcome", outcome.String()),
		zap.Int("transactions", len(txs)),
		zap.String("balance", user.Balance.StringFixed(2)),
	)
	return l, outcome
}
