package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "github.com/lib/pq"              // registers the "postgres" driver

	interfaces "github.com/sheikh-saqib/goldpayments-ledger/internal/interfaces" // interface KVStore
	"github.com/sheikh-saqib/goldpayments-ledger/internal/storage"
)

// database/sql driver names accepted by Open.
const (
	DriverPQ  = "postgres"
	DriverPGX = "pgx"
)

const schema = `CREATE TABLE IF NOT EXISTS kv_records (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type PostgresKVStore struct {
	db *sql.DB
}

func NewPostgresKVStore(db *sql.DB) *PostgresKVStore {
	return &PostgresKVStore{
		db: db,
	}
}

// Open connects through driver (lib/pq or pgx), pings, and makes sure the
// table exists.
func Open(ctx context.Context, driver, dsn string) (*PostgresKVStore, error) {
	switch driver {
	case "", DriverPQ:
		driver = DriverPQ
	case DriverPGX:
	default:
		return nil, fmt.Errorf("unknown postgres driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := NewPostgresKVStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (p *PostgresKVStore) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schema)
	return err
}

func (p *PostgresKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	const query = `SELECT value FROM kv_records WHERE key = $1`

	var value []byte
	err := p.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (p *PostgresKVStore) Set(ctx context.Context, key string, value []byte) error {
	const query = `INSERT INTO kv_records (key, value, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	// jsonb takes text; a []byte would be sent as bytea
	_, err := p.db.ExecContext(ctx, query, key, string(value))
	return err
}

func (p *PostgresKVStore) Close() error {
	return p.db.Close()
}

var _ interfaces.KVStore = (*PostgresKVStore)(nil)
