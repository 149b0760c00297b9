package ledger_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang/mock/gomock"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	mock_interfaces "github.com/sheikh-saqib/goldpayments-ledger/internal/interfaces/mocks"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/ledger"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/models"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/models/events"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/storage"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/storage/memory"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/storage/redis"
)

var (
	profile  = ledger.Profile{Name: "A. Stark", CURP: "AAAA000000HAAAAA00"}
	limit    = decimal.RequireFromString("50000.00")
	bonus    = decimal.RequireFromString("1000.00")
	baseTime = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
)

func fixedClock() func() time.Time {
	return func() time.Time { return baseTime }
}

func newLedger(t *testing.T) (*ledger.Ledger, *storage.RecordStore) {
	t.Helper()
	store := storage.NewRecordStore(memory.NewMemoryKVStore())
	return ledger.NewLedger(store, ledger.WithClock(fixedClock())), store
}

func initialized(t *testing.T) (*ledger.Ledger, *storage.RecordStore) {
	t.Helper()
	l, store := newLedger(t)
	_, err := l.Initialize(context.Background(), profile, decimal.Zero, limit, bonus)
	require.NoError(t, err)
	return l, store
}

func TestInitialize_SeedsWelcomeBonus(t *testing.T) {
	l, store := newLedger(t)

	snap, err := l.Initialize(context.Background(), profile, decimal.Zero, limit, bonus)
	require.NoError(t, err)

	require.Len(t, snap.Transactions, 1)
	tx := snap.Transactions[0]
	assert.Equal(t, models.Credit, tx.Type)
	assert.True(t, tx.Amount.Equal(bonus))
	assert.Equal(t, ledger.WelcomeBonusDescription, tx.Description)
	assert.Equal(t, "1000.00", snap.User.Balance.StringFixed(2))
	assert.Equal(t, profile.CURP, snap.User.CURP)
	assert.True(t, snap.User.CreditLimit.Equal(limit))

	user, err := store.LoadUser(context.Background())
	require.NoError(t, err)
	assert.True(t, user.Balance.Equal(bonus))
	txs, err := store.LoadTransactions(context.Background())
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestInitialize_NonZeroSeed(t *testing.T) {
	l, _ := newLedger(t)

	snap, err := l.Initialize(context.Background(), profile, decimal.RequireFromString("250.50"), limit, bonus)
	require.NoError(t, err)
	assert.Equal(t, "1250.50", snap.User.Balance.StringFixed(2))
	assert.Equal(t, "250.50", l.OpeningBalance().StringFixed(2))
}

func TestInitialize_RejectsSecondCall(t *testing.T) {
	l, _ := initialized(t)
	_, err := l.RecordTransaction(context.Background(), models.Debit, decimal.NewFromInt(100), "coffee")
	require.NoError(t, err)

	_, err = l.Initialize(context.Background(), profile, decimal.Zero, limit, bonus)
	assert.ErrorIs(t, err, ledger.ErrAlreadyInitialized)

	snap, err := l.Snapshot()
	require.NoError(t, err)
	assert.Len(t, snap.Transactions, 2)
	assert.Equal(t, "900.00", snap.User.Balance.StringFixed(2))
}

func TestInitialize_InvalidArguments(t *testing.T) {
	tests := []struct {
		name  string
		seed  decimal.Decimal
		limit decimal.Decimal
		bonus decimal.Decimal
		want  error
	}{
		{"zero bonus", decimal.Zero, limit, decimal.Zero, ledger.ErrInvalidAmount},
		{"negative bonus", decimal.Zero, limit, decimal.NewFromInt(-5), ledger.ErrInvalidAmount},
		{"negative credit limit", decimal.Zero, decimal.NewFromInt(-1), bonus, ledger.ErrInvalidCreditLimit},
		{"sub-cent seed", decimal.RequireFromString("0.001"), limit, bonus, ledger.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := newLedger(t)
			_, err := l.Initialize(context.Background(), profile, tt.seed, tt.limit, tt.bonus)
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, l.Initialized())
		})
	}
}

func TestRecordTransaction_BeforeInitialize(t *testing.T) {
	l, _ := newLedger(t)

	_, err := l.RecordTransaction(context.Background(), models.Credit, decimal.NewFromInt(10), "x")
	assert.ErrorIs(t, err, ledger.ErrNotInitialized)

	_, err = l.Snapshot()
	assert.ErrorIs(t, err, ledger.ErrNotInitialized)
}

func TestRecordTransaction_AppliesSign(t *testing.T) {
	l, store := initialized(t)
	ctx := context.Background()

	debit, err := l.RecordTransaction(ctx, models.Debit, decimal.NewFromInt(100), "SPEI Transfer to Bruce")
	require.NoError(t, err)
	assert.True(t, debit.Amount.IsPositive(), "stored amount keeps its sign out")

	_, err = l.RecordTransaction(ctx, models.Credit, decimal.NewFromInt(100), "Loan Disbursement")
	require.NoError(t, err)
	_, err = l.RecordTransaction(ctx, models.Debit, decimal.RequireFromString("0.01"), "rounding")
	require.NoError(t, err)

	snap, err := l.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "999.99", snap.User.Balance.StringFixed(2))

	persisted, err := store.LoadUser(ctx)
	require.NoError(t, err)
	assert.True(t, persisted.Balance.Equal(snap.User.Balance))
}

// Funds are checked by the transfer flow, not here.
func TestRecordTransaction_DebitMayOverdraw(t *testing.T) {
	l, _ := initialized(t)

	_, err := l.RecordTransaction(context.Background(), models.Debit, decimal.NewFromInt(1500), "direct debit")
	require.NoError(t, err)

	snap, err := l.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "-500.00", snap.User.Balance.StringFixed(2))
}

func TestRecordTransaction_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		kind   models.TransactionType
		amount decimal.Decimal
		want   error
	}{
		{"zero", models.Debit, decimal.Zero, ledger.ErrInvalidAmount},
		{"negative", models.Credit, decimal.NewFromInt(-100), ledger.ErrInvalidAmount},
		{"sub-cent", models.Credit, decimal.RequireFromString("10.005"), ledger.ErrInvalidAmount},
		{"unknown kind", models.TransactionType("refund"), decimal.NewFromInt(10), ledger.ErrInvalidKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, store := initialized(t)
			before, err := l.Snapshot()
			require.NoError(t, err)

			_, err = l.RecordTransaction(context.Background(), tt.kind, tt.amount, "bad")
			assert.ErrorIs(t, err, tt.want)

			after, err := l.Snapshot()
			require.NoError(t, err)
			assert.Equal(t, before, after)

			persisted, err := store.LoadTransactions(context.Background())
			require.NoError(t, err)
			assert.Len(t, persisted, 1)
		})
	}
}

func TestAmountFromFloat_NonFinite(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), 0, -1} {
		_, err := ledger.AmountFromFloat(f)
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount, "%v", f)
	}

	d, err := ledger.AmountFromFloat(149.5)
	require.NoError(t, err)
	assert.Equal(t, "149.50", d.StringFixed(2))
}

func TestParseAmount(t *testing.T) {
	d, err := ledger.ParseAmount(" 1500.00 ")
	require.NoError(t, err)
	assert.Equal(t, "1500", d.String())

	for _, s := range []string{"", "abc", "NaN", "Inf", "-3", "0", "1.999"} {
		_, err := ledger.ParseAmount(s)
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount, "%q", s)
	}
}

func TestHistory_NewestFirst(t *testing.T) {
	l, _ := initialized(t)
	ctx := context.Background()

	var recorded []models.Transaction
	for i := 1; i <= 5; i++ {
		tx, err := l.RecordTransaction(ctx, models.Debit, decimal.NewFromInt(int64(i)), "purchase")
		require.NoError(t, err)
		recorded = append(recorded, tx)
	}

	snap, err := l.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Transactions, 6)
	for i, tx := range recorded {
		// the i-th recorded transaction sits len-1-i slots from the top, above the bonus
		assert.Equal(t, tx.ID, snap.Transactions[len(recorded)-1-i].ID)
	}
	assert.Equal(t, ledger.WelcomeBonusDescription, snap.Transactions[5].Description)
}

func TestTransactionIDs_UniqueWithinSameInstant(t *testing.T) {
	l, _ := initialized(t)

	seen := map[string]bool{}
	prev := ""
	for i := 0; i < 200; i++ {
		tx, err := l.RecordTransaction(context.Background(), models.Credit, decimal.NewFromInt(1), "tick")
		require.NoError(t, err)
		require.False(t, seen[tx.ID], "duplicate id %s", tx.ID)
		seen[tx.ID] = true
		if prev != "" {
			assert.Greater(t, tx.ID, prev)
		}
		prev = tx.ID
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	l, _ := initialized(t)

	snap, err := l.Snapshot()
	require.NoError(t, err)
	snap.Transactions[0].Amount = decimal.NewFromInt(999999)
	snap.User.Balance = decimal.NewFromInt(-1)

	again, err := l.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "1000.00", again.User.Balance.StringFixed(2))
	assert.True(t, again.Transactions[0].Amount.Equal(bonus))
}

func TestRestore_DerivesOpeningBalance(t *testing.T) {
	l, _ := newLedger(t)
	history := []models.Transaction{
		{ID: "tx_2", Type: models.Debit, Amount: decimal.NewFromInt(200), Description: "b", Date: baseTime},
		{ID: "tx_1", Type: models.Credit, Amount: decimal.NewFromInt(500), Description: "a", Date: baseTime},
	}
	user := models.User{Name: "A", CURP: profile.CURP, Balance: decimal.NewFromInt(1300), CreditLimit: limit}

	require.NoError(t, l.Restore(user, history))
	assert.Equal(t, "1000", l.OpeningBalance().String())
	assert.ErrorIs(t, l.Restore(user, history), ledger.ErrAlreadyInitialized)

	_, err := l.RecordTransaction(context.Background(), models.Debit, decimal.NewFromInt(300), "c")
	require.NoError(t, err)
	snap, err := l.Snapshot()
	require.NoError(t, err)
	assert.True(t, snap.User.Balance.Equal(l.OpeningBalance().Add(models.SignedSum(snap.Transactions))))
}

func TestStorageFailure_DegradesToMemory(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mock_interfaces.NewMockLedgerStore(ctrl)
	store.EXPECT().SaveUser(gomock.Any(), gomock.Any()).Return(storage.ErrUnavailable).Times(1)

	l := ledger.NewLedger(store, ledger.WithClock(fixedClock()))
	snap, err := l.Initialize(context.Background(), profile, decimal.Zero, limit, bonus)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", snap.User.Balance.StringFixed(2))
	assert.True(t, l.Degraded())

	// no further store calls once degraded
	_, err = l.RecordTransaction(context.Background(), models.Debit, decimal.NewFromInt(50), "offline")
	require.NoError(t, err)
	snap, err = l.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "950.00", snap.User.Balance.StringFixed(2))
}

func TestPersist_WritesUserBeforeHistory(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mock_interfaces.NewMockLedgerStore(ctrl)
	gomock.InOrder(
		store.EXPECT().SaveUser(gomock.Any(), gomock.Any()).Return(nil),
		store.EXPECT().SaveTransactions(gomock.Any(), gomock.Any()).Return(storage.ErrUnavailable),
	)

	l := ledger.NewLedger(store, ledger.WithClock(fixedClock()))
	_, err := l.Initialize(context.Background(), profile, decimal.Zero, limit, bonus)
	require.NoError(t, err)
	assert.True(t, l.Degraded())
}

func TestRecordTransaction_CancelledContextStillPersists(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := storage.NewRecordStore(redis.NewRedisKVStore(client, "gp"))

	l := ledger.NewLedger(store, ledger.WithClock(fixedClock()))
	_, err := l.Initialize(context.Background(), profile, decimal.Zero, limit, bonus)
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.RecordTransaction(cancelled, models.Debit, decimal.NewFromInt(100), "Transfer to Bob")
	require.NoError(t, err)
	assert.False(t, l.Degraded())

	_, err = l.RecordTransaction(context.Background(), models.Credit, decimal.NewFromInt(5), "Refund")
	require.NoError(t, err)
	assert.False(t, l.Degraded())

	user, err := store.LoadUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "905.00", user.Balance.StringFixed(2))
	txs, err := store.LoadTransactions(context.Background())
	require.NoError(t, err)
	assert.Len(t, txs, 3)
}

func TestPublishesTransactionRecorded(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	publisher := mock_interfaces.NewMockEventPublisher(ctrl)
	var got []events.TransactionRecorded
	publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e any) error {
		got = append(got, e.(events.TransactionRecorded))
		return nil
	}).Times(1)
	publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down")).Times(1)

	store := storage.NewRecordStore(memory.NewMemoryKVStore())
	l := ledger.NewLedger(store, ledger.WithPublisher(publisher), ledger.WithClock(fixedClock()))

	_, err := l.Initialize(context.Background(), profile, decimal.Zero, limit, bonus)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "credit", got[0].Type)
	assert.Equal(t, "1000", got[0].BalanceAfter.String())
	assert.NotEmpty(t, got[0].EventID)

	// a failed publish never fails the mutation
	_, err = l.RecordTransaction(context.Background(), models.Debit, decimal.NewFromInt(1), "x")
	assert.NoError(t, err)
}

func TestBalanceInvariant_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		store := storage.NewRecordStore(memory.NewMemoryKVStore())
		l := ledger.NewLedger(store)

		seed := decimal.New(rapid.Int64Range(0, 1_000_000).Draw(t, "seedCents"), -2)
		bonusAmt := decimal.New(rapid.Int64Range(1, 500_000).Draw(t, "bonusCents"), -2)
		_, err := l.Initialize(context.Background(), profile, seed, limit, bonusAmt)
		require.NoError(t, err)

		expected := seed.Add(bonusAmt)
		n := rapid.IntRange(0, 40).Draw(t, "n")
		for i := 0; i < n; i++ {
			kind := rapid.SampledFrom([]models.TransactionType{models.Credit, models.Debit}).Draw(t, "kind")
			amount := decimal.New(rapid.Int64Range(1, 10_000_000).Draw(t, "cents"), -2)

			_, err := l.RecordTransaction(context.Background(), kind, amount, "random")
			require.NoError(t, err)
			if kind == models.Credit {
				expected = expected.Add(amount)
			} else {
				expected = expected.Sub(amount)
			}
		}

		snap, err := l.Snapshot()
		require.NoError(t, err)
		require.True(t, snap.User.Balance.Equal(expected), "balance %s want %s", snap.User.Balance, expected)
		require.True(t, snap.User.Balance.Equal(seed.Add(models.SignedSum(snap.Transactions))))
		require.Len(t, snap.Transactions, n+1)

		persisted, err := store.LoadUser(context.Background())
		require.NoError(t, err)
		require.True(t, persisted.Balance.Equal(expected))
	})
}
