// Package state persists execution snapshots so an interrupted swap can be
// reconciled against the chain and resumed.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cross-swap/pkg/types"
)

// ErrSnapshotNotFound is returned when a session has no snapshot
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is the persisted state of one swap session
type Snapshot struct {
	SessionID     string       `json:"sessionId"`
	WalletAddress string       `json:"walletAddress"`
	Route         *types.Route `json:"route"`
	Status        types.Status `json:"status"`
	StartTime     time.Time    `json:"startTime"`
	LastUpdate    time.Time    `json:"lastUpdate"`
}

// Store persists snapshots keyed by session id
type Store interface {
	Save(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context, sessionID string) (*Snapshot, error)
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]*Snapshot, error)
}

type wireSnapshot struct {
	SessionID     string          `json:"sessionId"`
	WalletAddress string          `json:"walletAddress"`
	Route         json.RawMessage `json:"route"`
	Status        types.Status    `json:"status"`
	StartTime     time.Time       `json:"startTime"`
	LastUpdate    time.Time       `json:"lastUpdate"`
}

// Encode serializes a snapshot
func Encode(snap *Snapshot) ([]byte, error) {
	if snap.SessionID == "" {
		return nil, fmt.Errorf("snapshot has no session id")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot. The route goes through the same normalization
// boundary as provider payloads so a hand-edited or older file is validated too.
func Decode(data []byte, resolve types.ChainResolver) (*Snapshot, error) {
	var w wireSnapshot
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	if !w.Status.Valid() {
		return nil, fmt.Errorf("snapshot %s: unknown status %q", w.SessionID, w.Status)
	}
	snap := &Snapshot{
		SessionID:     w.SessionID,
		WalletAddress: w.WalletAddress,
		Status:        w.Status,
		StartTime:     w.StartTime,
		LastUpdate:    w.LastUpdate,
	}
	if len(w.Route) > 0 && string(w.Route) != "null" {
		route, err := types.DecodeRoute(w.Route, resolve)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", w.SessionID, err)
		}
		snap.Route = route
	}
	return snap, nil
}
