package ledger

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	interfaces "github.com/sheikh-saqib/goldpayments-ledger/internal/interfaces"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/metrics"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/models"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/models/events"
)

// WelcomeBonusDescription is the description of the credit seeded at onboarding.
const WelcomeBonusDescription = "Onboarding Welcome Bonus"

// persistTimeout bounds each store write and event publish.
const persistTimeout = 5 * time.Second

// Profile is the identity captured during onboarding.
type Profile struct {
	Name string
	CURP string
}

// Snapshot is a read-only copy of the ledger. Transactions are newest first.
type Snapshot struct {
	User         models.User
	Transactions []models.Transaction
}

// Ledger is the single source of truth for the session's balance and history.
// Balance only ever moves through RecordTransaction (and the bonus credit in Initialize),
// so Balance == opening + sum of signed amounts holds after every call.
type Ledger struct {
	store     interfaces.LedgerStore    // where both records are persisted
	publisher interfaces.EventPublisher // optional, nil disables events
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.Mutex // single writer; handlers may still run on separate goroutines
	entropy  io.Reader  // monotonic ULID entropy, only used under mu
	user     *models.User
	history  []models.Transaction
	opening  decimal.Decimal
	degraded bool // persistence failed, remaining session is in-memory only
}

type Option func(*Ledger)

func WithPublisher(p interfaces.EventPublisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock overrides the time source used for transaction ids and dates.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// NewLedger creates an empty ledger. It stays uninitialized until Initialize or Restore.
func NewLedger(store interfaces.LedgerStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:   store,
		logger:  zap.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Initialize creates the user with the seed balance and credits the welcome bonus,
// leaving exactly one transaction in history. It never overwrites an existing ledger.
func (l *Ledger) Initialize(ctx context.Context, profile Profile, seed, creditLimit, bonus decimal.Decimal) (Snapshot, error) {
	if err := ValidateAmount(bonus); err != nil {
		return Snapshot{}, err
	}
	if creditLimit.IsNegative() {
		return Snapshot{}, ErrInvalidCreditLimit
	}
	if !seed.Equal(seed.Round(2)) {
		return Snapshot{}, fmt.Errorf("%w: seed %s has sub-cent precision", ErrInvalidAmount, seed)
	}

	l.mu.Lock()
	if l.user != nil {
		l.mu.Unlock()
		return Snapshot{}, ErrAlreadyInitialized
	}

	tx, err := l.newTransaction(models.Credit, bonus, WelcomeBonusDescription)
	if err != nil {
		l.mu.Unlock()
		return Snapshot{}, err
	}

	l.user = &models.User{
		Name:        profile.Name,
		CURP:        profile.CURP,
		Balance:     seed,
		CreditLimit: creditLimit,
	}
	l.opening = seed
	l.history = nil
	l.apply(tx)
	l.persist(ctx)

	snap := l.snapshotLocked()
	balance := l.user.Balance
	l.mu.Unlock()

	l.logger.Info("ledger initialized",
		zap.String("name", profile.Name),
		zap.String("balance", balance.StringFixed(2)),
	)
	l.publish(ctx, tx, balance)
	return snap, nil
}

// RecordTransaction applies a credit or debit and persists the result.
// Overdraft is not checked here; callers that need it (transfers) check first.
func (l *Ledger) RecordTransaction(ctx context.Context, kind models.TransactionType, amount decimal.Decimal, description string) (models.Transaction, error) {
	if !kind.Valid() {
		return models.Transaction{}, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if err := ValidateAmount(amount); err != nil {
		return models.Transaction{}, err
	}

	l.mu.Lock()
	if l.user == nil {
		l.mu.Unlock()
		return models.Transaction{}, ErrNotInitialized
	}

	tx, err := l.newTransaction(kind, amount, description)
	if err != nil {
		l.mu.Unlock()
		return models.Transaction{}, err
	}
	l.apply(tx)
	l.persist(ctx)
	balance := l.user.Balance
	l.mu.Unlock()

	l.logger.Debug("transaction recorded",
		zap.String("id", tx.ID),
		zap.String("type", string(tx.Type)),
		zap.String("amount", tx.Amount.StringFixed(2)),
	)
	l.publish(ctx, tx, balance)
	return tx, nil
}

// Restore loads previously persisted state without re-applying anything.
// The opening balance is derived so the balance invariant holds for restored history.
func (l *Ledger) Restore(user models.User, history []models.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.user != nil {
		return ErrAlreadyInitialized
	}
	u := user
	l.user = &u
	l.history = append([]models.Transaction(nil), history...)
	l.opening = user.Balance.Sub(models.SignedSum(history))
	return nil
}

// Snapshot returns a deep copy of the current state.
func (l *Ledger) Snapshot() (Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.user == nil {
		return Snapshot{}, ErrNotInitialized
	}
	return l.snapshotLocked(), nil
}

func (l *Ledger) Initialized() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.user != nil
}

// Degraded reports whether a storage failure switched the ledger to in-memory only.
func (l *Ledger) Degraded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.degraded
}

// MarkDegraded stops all further persistence for this session.
func (l *Ledger) MarkDegraded() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.degraded = true
}

// OpeningBalance is the balance before any recorded transaction.
func (l *Ledger) OpeningBalance() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.opening
}

// newTransaction must be called with mu held: the monotonic entropy source is not safe for concurrent use.
func (l *Ledger) newTransaction(kind models.TransactionType, amount decimal.Decimal, description string) (models.Transaction, error) {
	now := l.now()
	id, err := ulid.New(ulid.Timestamp(now), l.entropy)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("generate transaction id: %w", err)
	}
	return models.Transaction{
		ID:          "tx_" + id.String(),
		Type:        kind,
		Amount:      amount,
		Description: description,
		Date:        now,
	}, nil
}

// apply prepends tx and moves the balance. mu must be held.
func (l *Ledger) apply(tx models.Transaction) {
	l.history = append([]models.Transaction{tx}, l.history...)
	l.user.Balance = l.user.Balance.Add(tx.Signed())
	metrics.TransactionsRecorded.WithLabelValues(string(tx.Type)).Inc()
}

// persist writes the user record, then the history. After the first failure nothing is written again.
// Writes ignore the caller's cancellation and are bounded by persistTimeout.
func (l *Ledger) persist(ctx context.Context) {
	if l.degraded || l.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := l.store.SaveUser(ctx, *l.user); err != nil {
		l.fail("save_user", err)
		return
	}
	if err := l.store.SaveTransactions(ctx, l.history); err != nil {
		l.fail("save_transactions", err)
	}
}

func (l *Ledger) fail(op string, err error) {
	l.degraded = true
	metrics.StorageFailures.WithLabelValues(op).Inc()
	l.logger.Error("persisting ledger failed, continuing in memory", zap.String("op", op), zap.Error(err))
}

func (l *Ledger) publish(ctx context.Context, tx models.Transaction, balance decimal.Decimal) {
	if l.publisher == nil {
		return
	}
	event := events.TransactionRecorded{
		EventID:       uuid.New().String(),
		TransactionID: tx.ID,
		Type:          string(tx.Type),
		Amount:        tx.Amount,
		Description:   tx.Description,
		BalanceAfter:  balance,
		OccurredAt:    tx.Date,
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := l.publisher.Publish(ctx, event); err != nil {
		metrics.EventPublishFailures.Inc()
		l.logger.Warn("publishing transaction event failed", zap.String("id", tx.ID), zap.Error(err))
	}
}

func (l *Ledger) snapshotLocked() Snapshot {
	txs := make([]models.Transaction, len(l.history))
	copy(txs, l.history)
	return Snapshot{User: *l.user, Transactions: txs}
}
