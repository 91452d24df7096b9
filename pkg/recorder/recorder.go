package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"cross-swap/pkg/history"
	"cross-swap/pkg/types"
)

// Recorder keeps one history record per session up to date
type Recorder struct {
	store history.Store
	log   *slog.Logger

	mu      sync.Mutex
	current map[string]*types.TransactionRecord
}

// New creates a recorder backed by store
func New(store history.Store, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{
		store:   store,
		log:     log,
		current: make(map[string]*types.TransactionRecord),
	}
}

// Start writes the placeholder for a session. A record that already exists
// (a resumed session) is refreshed instead of replaced.
func (r *Recorder) Start(ctx context.Context, sessionID, wallet string, route *types.Route) (*types.TransactionRecord, error) {
	existing, err := r.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return r.save(ctx, Update(existing, route))
	}
	return r.save(ctx, CreatePlaceholder(route, wallet, sessionID))
}

// Refresh folds the latest route state into the session's record
func (r *Recorder) Refresh(ctx context.Context, sessionID string, route *types.Route) (*types.TransactionRecord, error) {
	existing, err := r.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("refresh %s: %w", sessionID, history.ErrRecordNotFound)
	}
	return r.save(ctx, Update(existing, route))
}

// Finish writes the terminal record. A failed or cancelled session with no
// on-chain hash is marked failed; once a hash exists the chain decides, so a
// cancel leaves the record pending.
func (r *Recorder) Finish(ctx context.Context, sessionID string, route *types.Route, status types.Status) (*types.TransactionRecord, error) {
	rec, err := r.Refresh(ctx, sessionID, route)
	if err != nil {
		return nil, err
	}
	defer r.forget(sessionID)

	switch status {
	case types.StatusCompleted:
		if rec.Status != types.RecordCompleted {
			next := *rec
			next.Status = types.RecordCompleted
			return r.save(ctx, &next)
		}
	case types.StatusFailed, types.StatusCancelled:
		if rec.TxHash == "" && rec.Status == types.RecordPending {
			next := *rec
			next.Status = types.RecordFailed
			return r.save(ctx, &next)
		}
	}
	return rec, nil
}

func (r *Recorder) load(ctx context.Context, id string) (*types.TransactionRecord, error) {
	r.mu.Lock()
	rec, ok := r.current[id]
	r.mu.Unlock()
	if ok {
		return rec, nil
	}

	rec, err := r.store.Get(ctx, id)
	if errors.Is(err, history.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load record %s: %w", id, err)
	}
	return rec, nil
}

func (r *Recorder) save(ctx context.Context, rec *types.TransactionRecord) (*types.TransactionRecord, error) {
	if err := r.store.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save record %s: %w", rec.ID, err)
	}
	r.mu.Lock()
	r.current[rec.ID] = rec
	r.mu.Unlock()

	r.log.Debug("Transaction record saved",
		"id", rec.ID, "status", rec.Status, "hash", rec.TxHash)
	return rec, nil
}

func (r *Recorder) forget(id string) {
	r.mu.Lock()
	delete(r.current, id)
	r.mu.Unlock()
}
