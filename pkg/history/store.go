// Package history persists transaction records for the wallet history view.
package history

import (
	"context"
	"errors"

	"cross-swap/pkg/types"
)

// ErrRecordNotFound is returned when no record exists for an id
var ErrRecordNotFound = errors.New("transaction record not found")

// Store is an idempotent transaction history: Save upserts by record id
type Store interface {
	Save(ctx context.Context, rec *types.TransactionRecord) error
	Get(ctx context.Context, id string) (*types.TransactionRecord, error)
	// ListByWallet returns records newest first; limit <= 0 means no limit
	ListByWallet(ctx context.Context, wallet string, limit int) ([]*types.TransactionRecord, error)
}
