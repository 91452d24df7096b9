package executor

import (
	"context"
	"time"

	"cross-swap/pkg/metrics"
	"cross-swap/pkg/retry"
	"cross-swap/pkg/swaperr"
	"cross-swap/pkg/types"
)

// begin leaves review and executes the route from its first step
func (e *Executor) begin(ctx context.Context) error {
	if err := e.transition(types.StatusApproving); err != nil {
		if e.cancelled() {
			return ErrCancelled
		}
		return err
	}
	e.startRecording(ctx)
	return e.execute(ctx, 0, false)
}

// execute drives steps in order starting at from. observe means the first
// step already has a submitted transaction that only needs tracking.
func (e *Executor) execute(ctx context.Context, from int, observe bool) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	e.cancelRun = cancel
	n := len(e.route.Steps)
	e.mu.Unlock()

	for i := from; i < n; i++ {
		if err := e.runStep(runCtx, i, observe && i == from); err != nil {
			return err
		}
	}

	if err := e.transition(types.StatusCompleted); err != nil {
		if e.cancelled() {
			return ErrCancelled
		}
		return err
	}
	e.log.Info("Route completed")
	return nil
}

// runStep attempts one step until it is done, parked or failed
func (e *Executor) runStep(ctx context.Context, i int, observe bool) error {
	e.mu.Lock()
	e.current = i
	e.session.Attempt = 0
	e.stepStart = time.Now()
	e.mu.Unlock()

	for {
		phase, err := e.attemptStep(ctx, i, observe)
		if e.cancelled() {
			return ErrCancelled
		}
		if err == nil {
			e.completeStep(i)
			return nil
		}

		se := e.noteError(err)
		e.mu.Lock()
		e.session.Attempt++
		attempt := e.session.Attempt
		e.mu.Unlock()

		if delay, ok := e.policy.Delay(se.Kind, attempt); ok && attempt < e.maxAttempts {
			observe = e.stepSubmitted(i)
			if observe {
				phase = types.StatusConfirming
			}
			metrics.Retries.WithLabelValues(string(se.Kind)).Inc()
			e.log.Warn("Step failed, retrying",
				"step", i, "attempt", attempt, "delay", delay, "error", se)
			if err := e.moveTo(phase); err != nil {
				return e.abort(se)
			}
			if err := e.sleep(ctx, delay); err != nil {
				return e.abort(se)
			}
			continue
		}

		if se.Recoverable && !retry.ShouldRetry(se.Kind) {
			if e.stepSubmitted(i) {
				phase = types.StatusConfirming
			}
			if err := e.moveTo(phase); err != nil {
				return e.abort(se)
			}
			e.mu.Lock()
			e.parked = true
			e.mu.Unlock()
			e.log.Warn("Step failed, waiting for retry", "step", i, "kind", se.Kind, "error", se)
			return se
		}

		e.log.Error("Step failed", "step", i, "kind", se.Kind, "error", se)
		return e.abort(se)
	}
}

// abort ends the session in FAILED unless it was cancelled meanwhile
func (e *Executor) abort(se *swaperr.SwapError) error {
	if e.cancelled() {
		return ErrCancelled
	}
	if err := e.transition(types.StatusFailed); err != nil && e.cancelled() {
		return ErrCancelled
	}
	return se
}

// moveTo transitions unless the executor is already in status
func (e *Executor) moveTo(status types.Status) error {
	if e.Status() == status {
		return nil
	}
	return e.transition(status)
}

// attemptStep makes one attempt at step i. The returned phase is where a
// failure sends the state machine back to.
func (e *Executor) attemptStep(ctx context.Context, i int, observe bool) (types.Status, error) {
	e.mu.Lock()
	step := e.route.Steps[i]
	step.Execution = step.Execution.Clone()
	e.mu.Unlock()

	if observe {
		if err := e.moveTo(types.StatusConfirming); err != nil {
			return types.StatusConfirming, err
		}
		return types.StatusConfirming, e.provider.ResumeStep(ctx, &step, e.reporter(i))
	}

	status := e.Status()
	if status == types.StatusConfirming {
		// next leg of a multi-step route
		if err := e.transition(types.StatusExecuting); err != nil {
			return types.StatusSigning, err
		}
		status = types.StatusExecuting
	}

	if status == types.StatusApproving || status == types.StatusExecuting {
		if err := e.prepare(ctx, &step); err != nil {
			return types.StatusApproving, err
		}
		if status == types.StatusApproving {
			if err := e.transition(types.StatusSigning); err != nil {
				return types.StatusApproving, err
			}
		}
	}

	e.log.Info("Executing step", "step", i, "name", step.Name())
	return types.StatusSigning, e.provider.ExecuteStep(ctx, &step, e.reporter(i))
}

// prepare puts the wallet on the step's source chain and grants any allowance
func (e *Executor) prepare(ctx context.Context, step *types.Step) error {
	want := step.Action.FromChainID
	active, err := e.wallet.ActiveChain(ctx)
	if err != nil {
		return err
	}
	if active != want {
		e.log.Info("Switching chain", "from", active, "to", want)
		if err := e.wallet.SwitchChain(ctx, want); err != nil {
			return swaperr.ClassifyAs(swaperr.KindUserRejected, err)
		}
	}

	if !step.NeedsApproval() {
		return nil
	}
	if err := e.provider.Approve(ctx, step); err != nil {
		if ctx.Err() == nil && swaperr.KindOf(err) == swaperr.KindUnknown {
			return swaperr.ClassifyAs(swaperr.KindApprovalFailed, err)
		}
		return err
	}
	return nil
}

// reporter folds provider updates for step i into the route. Updates for any
// other step, or arriving after a terminal status, are dropped.
func (e *Executor) reporter(i int) Reporter {
	return func(exec types.Execution) {
		e.mu.Lock()
		if e.status.IsTerminal() || e.current != i {
			e.mu.Unlock()
			return
		}
		e.route.Steps[i].Execution = exec.Clone()
		var fresh []string
		for _, p := range exec.Process {
			if p.TxHash != "" && !e.seen[p.TxHash] {
				e.seen[p.TxHash] = true
				fresh = append(fresh, p.TxHash)
			}
		}
		submitted := len(exec.Process) > 0
		status := e.status
		e.mu.Unlock()

		if status == types.StatusSigning && submitted {
			if err := e.transition(types.StatusExecuting); err == nil {
				status = types.StatusExecuting
			}
		}
		for _, hash := range fresh {
			e.log.Info("Transaction submitted", "step", i, "hash", hash)
			e.listener.OnTransactionHash(i, hash)
		}
		if len(fresh) > 0 {
			if status == types.StatusExecuting {
				_ = e.transition(types.StatusConfirming)
			}
			e.refreshRecording()
		}
		e.persistCurrent()
		e.listener.OnProgress(e.Progress())
	}
}

// stepSubmitted is true when step i has a transaction on-chain that has not failed
func (e *Executor) stepSubmitted(i int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	exec := e.route.Steps[i].Execution
	return exec != nil && exec.Status != types.ProcessFailed && exec.LastHash() != ""
}

// completeStep marks step i done and leaves the executor in CONFIRMING
func (e *Executor) completeStep(i int) {
	e.mu.Lock()
	step := &e.route.Steps[i]
	if step.Execution == nil {
		step.Execution = &types.Execution{}
	}
	step.Execution.Status = types.ProcessDone
	e.session.Attempt = 0
	chain := step.Action.FromChainID
	elapsed := time.Since(e.stepStart)
	e.mu.Unlock()

	metrics.StepDuration.WithLabelValues(chain).Observe(elapsed.Seconds())
	e.log.Info("Step done", "step", i, "elapsed", elapsed.Round(time.Second))

	if e.Status() == types.StatusSigning {
		_ = e.transition(types.StatusExecuting)
	}
	if e.Status() == types.StatusExecuting {
		_ = e.transition(types.StatusConfirming)
	}
	e.persistCurrent()
	e.refreshRecording()
	e.listener.OnProgress(e.Progress())
}
