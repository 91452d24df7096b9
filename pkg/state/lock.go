package state

import (
	"context"
	"fmt"
	"sync"
)

// Locker grants exclusive write access to one session's snapshot
type Locker interface {
	Acquire(ctx context.Context, sessionID string) (release func(), err error)
}

// MemoryLocker serializes writers inside one process
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{slots: make(map[string]chan struct{})}
}

func (l *MemoryLocker) Acquire(ctx context.Context, sessionID string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[sessionID]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[sessionID] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("lock %s: %w", sessionID, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-slot })
	}, nil
}

// Guarded routes writes through a Locker so foreground execution and a
// background reconciliation never write the same snapshot concurrently
type Guarded struct {
	Store
	locker Locker
}

func NewGuarded(store Store, locker Locker) *Guarded {
	return &Guarded{Store: store, locker: locker}
}

func (g *Guarded) Save(ctx context.Context, snap *Snapshot) error {
	release, err := g.locker.Acquire(ctx, snap.SessionID)
	if err != nil {
		return err
	}
	defer release()
	return g.Store.Save(ctx, snap)
}

func (g *Guarded) Delete(ctx context.Context, sessionID string) error {
	release, err := g.locker.Acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer release()
	return g.Store.Delete(ctx, sessionID)
}
