package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	interfaces "github.com/sheikh-saqib/goldpayments-ledger/internal/interfaces"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/models"
)

// Record keys. They match the keys the web client used in local storage.
const (
	UserKey         = "goldpayments_user"
	TransactionsKey = "goldpayments_transactions"
)

// RecordStore encodes the user and transaction records as JSON documents
// on top of any KVStore backend.
type RecordStore struct {
	kv interfaces.KVStore
}

func NewRecordStore(kv interfaces.KVStore) *RecordStore {
	return &RecordStore{kv: kv}
}

func (s *RecordStore) LoadUser(ctx context.Context) (models.User, error) {
	var user models.User
	if err := s.load(ctx, UserKey, &user); err != nil {
		return models.User{}, err
	}
	if strings.TrimSpace(user.Name) == "" || strings.TrimSpace(user.CURP) == "" {
		return models.User{}, fmt.Errorf("%w: %s: missing identity", ErrCorrupt, UserKey)
	}
	if user.CreditLimit.IsNegative() {
		return models.User{}, fmt.Errorf("%w: %s: negative credit limit", ErrCorrupt, UserKey)
	}
	return user, nil
}

func (s *RecordStore) SaveUser(ctx context.Context, user models.User) error {
	return s.save(ctx, UserKey, user)
}

func (s *RecordStore) LoadTransactions(ctx context.Context) ([]models.Transaction, error) {
	var txs []models.Transaction
	if err := s.load(ctx, TransactionsKey, &txs); err != nil {
		return nil, err
	}
	if txs == nil {
		// "null" is not a list
		return nil, fmt.Errorf("%w: %s: not a list", ErrCorrupt, TransactionsKey)
	}
	for i, tx := range txs {
		if !tx.Type.Valid() || !tx.Amount.IsPositive() || tx.ID == "" {
			return nil, fmt.Errorf("%w: %s: entry %d invalid", ErrCorrupt, TransactionsKey, i)
		}
	}
	return txs, nil
}

func (s *RecordStore) SaveTransactions(ctx context.Context, txs []models.Transaction) error {
	if txs == nil {
		txs = []models.Transaction{}
	}
	return s.save(ctx, TransactionsKey, txs)
}

func (s *RecordStore) load(ctx context.Context, key string, dst any) error {
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: get %s: %v", ErrUnavailable, key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return nil
}

func (s *RecordStore) save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

var _ interfaces.LedgerStore = (*RecordStore)(nil)
