package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cross-swap/pkg/types"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()

	require.NoError(t, s.Save(ctx, &types.TransactionRecord{ID: "a", WalletAddress: "0xABC", Timestamp: now.Add(-time.Hour)}))
	require.NoError(t, s.Save(ctx, &types.TransactionRecord{ID: "b", WalletAddress: "0xabc", Timestamp: now}))
	require.NoError(t, s.Save(ctx, &types.TransactionRecord{ID: "c", WalletAddress: "0xdef", Timestamp: now}))

	// upsert
	require.NoError(t, s.Save(ctx, &types.TransactionRecord{ID: "a", WalletAddress: "0xABC", Timestamp: now.Add(-time.Hour), TxHash: "0x1"}))

	rec, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "0x1", rec.TxHash)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	recs, err := s.ListByWallet(ctx, "0xabc", 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "b", recs[0].ID)
	assert.Equal(t, "a", recs[1].ID)

	recs, err = s.ListByWallet(ctx, "0xabc", 1)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestMemoryStoreCopiesRecords(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	rec := &types.TransactionRecord{ID: "a", Status: types.RecordPending}
	require.NoError(t, s.Save(ctx, rec))
	rec.Status = types.RecordCompleted

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, types.RecordPending, got.Status)
}
