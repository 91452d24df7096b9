package state

import (
	"context"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"cross-swap/pkg/types"
)

var bucketSnapshots = []byte("snapshots")

// BoltStore keeps snapshots in a local bbolt database
type BoltStore struct {
	db      *bolt.DB
	resolve types.ChainResolver
}

func NewBoltStore(path string, resolve types.ChainResolver) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open state db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(bucketSnapshots)
		return e
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStore{db: db, resolve: resolve}, nil
}

func (s *BoltStore) Save(_ context.Context, snap *Snapshot) error {
	blob, err := Encode(snap)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).Put([]byte(snap.SessionID), blob)
	})
}

func (s *BoltStore) Load(_ context.Context, sessionID string) (*Snapshot, error) {
	var blob []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketSnapshots).Get([]byte(sessionID))
		if v == nil {
			return ErrSnapshotNotFound
		}
		// v is only valid inside the transaction
		blob = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return Decode(blob, s.resolve)
}

func (s *BoltStore) Delete(_ context.Context, sessionID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).Delete([]byte(sessionID))
	})
}

// List scans all snapshots in key order
func (s *BoltStore) List(ctx context.Context) ([]*Snapshot, error) {
	var out []*Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketSnapshots).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			snap, err := Decode(v, s.resolve)
			if err != nil {
				return err
			}
			out = append(out, snap)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
