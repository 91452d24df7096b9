package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cross-swap/pkg/types"
)

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.json")
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s, err := NewFileStore(path)
	require.NoError(t, err)
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	require.NoError(t, s.Save(ctx, &types.TransactionRecord{ID: "a", WalletAddress: "0xABC", Status: types.RecordPending, Timestamp: started}))
	require.NoError(t, s.Save(ctx, &types.TransactionRecord{ID: "b", WalletAddress: "0xabc", Timestamp: started.Add(time.Hour)}))
	require.NoError(t, s.Save(ctx, &types.TransactionRecord{ID: "c", WalletAddress: "0xdef", Timestamp: started}))

	// a second process
	other, err := NewFileStore(path)
	require.NoError(t, err)
	rec, err := other.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, started.Equal(rec.Timestamp))
	assert.Equal(t, types.RecordPending, rec.Status)

	require.NoError(t, other.Save(ctx, &types.TransactionRecord{ID: "a", WalletAddress: "0xABC", Status: types.RecordCompleted, TxHash: "0x1", Timestamp: started}))

	// writes of the other store are visible without reopening
	rec, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, types.RecordCompleted, rec.Status)

	recs, err := s.ListByWallet(ctx, "0xAbC", 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "b", recs[0].ID)
	assert.Equal(t, "a", recs[1].ID)

	recs, err = s.ListByWallet(ctx, "0xabc", 1)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := NewFileStore(path)
	assert.Error(t, err)
}
