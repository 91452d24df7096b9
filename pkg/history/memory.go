package history

import (
	"context"
	"sort"
	"strings"
	"sync"

	"cross-swap/pkg/types"
)

// MemoryStore keeps records in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]types.TransactionRecord
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]types.TransactionRecord)}
}

func (s *MemoryStore) Save(_ context.Context, rec *types.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = *rec
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*types.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &rec, nil
}

func (s *MemoryStore) ListByWallet(_ context.Context, wallet string, limit int) ([]*types.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return byWallet(s.records, wallet, limit), nil
}

// byWallet filters records by wallet, case-insensitively, newest first
func byWallet(records map[string]types.TransactionRecord, wallet string, limit int) []*types.TransactionRecord {
	out := make([]*types.TransactionRecord, 0)
	for _, rec := range records {
		if strings.EqualFold(rec.WalletAddress, wallet) {
			rec := rec
			out = append(out, &rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
