package state

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cross-swap/pkg/types"
)

// TxState is the on-chain outcome of a transaction
type TxState int

const (
	TxPending TxState = iota
	TxConfirmed
	TxFailed
)

func (s TxState) String() string {
	switch s {
	case TxConfirmed:
		return "confirmed"
	case TxFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Inspector looks up a transaction on its chain
type Inspector interface {
	TxStatus(ctx context.Context, chain, hash string) (TxState, error)
}

// Reconciler re-checks a snapshot against the chain before it is resumed.
// It holds the session lock for the whole pass.
type Reconciler struct {
	store     Store
	locker    Locker
	inspector Inspector
	log       *slog.Logger
}

// NewReconciler takes the unguarded store; the reconciler does its own locking
func NewReconciler(store Store, locker Locker, inspector Inspector, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{store: store, locker: locker, inspector: inspector, log: log}
}

// Reconcile loads the session's snapshot, updates every pending process that
// has a hash from the chain, derives a status that matches what the chain says,
// persists the result and returns it. Terminal results are deleted from the store.
func (r *Reconciler) Reconcile(ctx context.Context, sessionID string) (*Snapshot, error) {
	release, err := r.locker.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	snap, err := r.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !snap.Status.IsTerminal() && snap.Route != nil {
		r.refresh(ctx, snap)
		snap.Status = reconciledStatus(snap)
		snap.LastUpdate = time.Now()
	}

	if snap.Status.IsTerminal() {
		if err := r.store.Delete(ctx, sessionID); err != nil {
			return nil, fmt.Errorf("failed to delete terminal snapshot: %w", err)
		}
		return snap, nil
	}
	if err := r.store.Save(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (r *Reconciler) refresh(ctx context.Context, snap *Snapshot) {
	for i := range snap.Route.Steps {
		step := &snap.Route.Steps[i]
		if step.Execution == nil {
			continue
		}
		for j := range step.Execution.Process {
			p := &step.Execution.Process[j]
			if p.TxHash == "" || p.Status != types.ProcessPending {
				continue
			}
			chain := p.ChainID
			if chain == "" {
				chain = step.Action.FromChainID
			}

			txState, err := r.inspector.TxStatus(ctx, chain, p.TxHash)
			if err != nil {
				// unknown is not failed; keep the snapshot's view
				r.log.Warn("Failed to inspect transaction",
					"session", snap.SessionID, "chain", chain, "hash", p.TxHash, "error", err)
				continue
			}
			r.log.Debug("Reconciled transaction",
				"session", snap.SessionID, "hash", p.TxHash, "state", txState)

			now := time.Now()
			switch txState {
			case TxConfirmed:
				p.Status = types.ProcessDone
				p.Done = &now
			case TxFailed:
				p.Status = types.ProcessFailed
				p.Done = &now
				step.Execution.Status = types.ProcessFailed
			}
		}
	}
}

// reconciledStatus derives the executor status implied by the refreshed route.
// A confirmed deposit does not finish a step: delivery is confirmed by the provider.
func reconciledStatus(snap *Snapshot) types.Status {
	route := snap.Route
	for i := range route.Steps {
		if exec := route.Steps[i].Execution; exec != nil && exec.Status == types.ProcessFailed {
			return types.StatusFailed
		}
	}

	idx := route.FirstPendingStep()
	if idx == len(route.Steps) {
		return types.StatusCompleted
	}
	if !snap.Status.IsExecuting() {
		return snap.Status
	}
	if route.Steps[idx].Execution.LastHash() != "" {
		return types.StatusConfirming
	}
	return snap.Status
}
