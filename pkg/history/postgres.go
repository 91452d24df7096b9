package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"cross-swap/pkg/types"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresStore persists records in PostgreSQL
type PostgresStore struct {
	db *sqlx.DB
}

// OpenPostgres connects, runs pending migrations and returns a store
func OpenPostgres(ctx context.Context, url string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewPostgresStore(db), nil
}

// NewPostgresStore wraps an existing connection; the schema must already exist
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies the embedded goose migrations
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

const upsertRecord = `
INSERT INTO transaction_records (
	id, wallet_address, from_chain_id, to_chain_id, from_token, to_token,
	from_amount, to_amount, tx_hash, status, recorded_at, value_usd
) VALUES (
	:id, :wallet_address, :from_chain_id, :to_chain_id, :from_token, :to_token,
	:from_amount, :to_amount, :tx_hash, :status, :recorded_at, :value_usd
)
ON CONFLICT (id) DO UPDATE SET
	to_amount = EXCLUDED.to_amount,
	tx_hash = EXCLUDED.tx_hash,
	status = EXCLUDED.status,
	value_usd = EXCLUDED.value_usd,
	updated_at = NOW()`

func (s *PostgresStore) Save(ctx context.Context, rec *types.TransactionRecord) error {
	r := *rec
	r.WalletAddress = strings.ToLower(r.WalletAddress)
	if _, err := s.db.NamedExecContext(ctx, upsertRecord, &r); err != nil {
		return fmt.Errorf("failed to save record %s: %w", rec.ID, err)
	}
	return nil
}

const selectColumns = `id, wallet_address, from_chain_id, to_chain_id, from_token, to_token,
	from_amount, to_amount, tx_hash, status, recorded_at, value_usd`

func (s *PostgresStore) Get(ctx context.Context, id string) (*types.TransactionRecord, error) {
	var rec types.TransactionRecord
	err := s.db.GetContext(ctx, &rec, `SELECT `+selectColumns+` FROM transaction_records WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", id, err)
	}
	return &rec, nil
}

func (s *PostgresStore) ListByWallet(ctx context.Context, wallet string, limit int) ([]*types.TransactionRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM transaction_records
		WHERE wallet_address = $1 ORDER BY recorded_at DESC`
	args := []any{strings.ToLower(wallet)}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	var recs []*types.TransactionRecord
	if err := s.db.SelectContext(ctx, &recs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return recs, nil
}

// Close closes the underlying connection pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
