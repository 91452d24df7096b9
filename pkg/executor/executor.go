// Package executor drives a quoted route through its lifecycle: review, the
// exchange rate check, approval, signing and confirmation of every step.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"cross-swap/pkg/metrics"
	"cross-swap/pkg/rateguard"
	"cross-swap/pkg/recorder"
	"cross-swap/pkg/retry"
	"cross-swap/pkg/state"
	"cross-swap/pkg/swaperr"
	"cross-swap/pkg/tokenmap"
	"cross-swap/pkg/types"
)

// DefaultMaxAttempts bounds automatic retries of a single step
const DefaultMaxAttempts = 3

var (
	// ErrInvalidTransition is returned when an operation is not allowed in the current status
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrRateConfirmationRequired is returned by Confirm when the rate moved beyond
	// the threshold; call ResolveRateChange to continue
	ErrRateConfirmationRequired = errors.New("exchange rate changed, confirmation required")

	// ErrCancelled is returned by blocking operations interrupted by Cancel
	ErrCancelled = errors.New("swap cancelled")
)

// transitions lists the allowed moves; CANCELLED is reachable from every
// non-terminal status and handled separately
var transitions = map[types.Status][]types.Status{
	types.StatusIdle:          {types.StatusFetchingQuote},
	types.StatusFetchingQuote: {types.StatusQuoteReady, types.StatusIdle, types.StatusFailed},
	types.StatusQuoteReady:    {types.StatusReviewing, types.StatusFetchingQuote},
	types.StatusReviewing:     {types.StatusApproving, types.StatusFetchingQuote},
	types.StatusApproving:     {types.StatusSigning, types.StatusFailed},
	types.StatusSigning:       {types.StatusExecuting, types.StatusApproving, types.StatusFailed},
	types.StatusExecuting:     {types.StatusConfirming, types.StatusApproving, types.StatusSigning, types.StatusFailed},
	types.StatusConfirming:    {types.StatusExecuting, types.StatusCompleted, types.StatusApproving, types.StatusSigning, types.StatusFailed},
}

func canTransition(from, to types.Status) bool {
	if from.IsTerminal() {
		return false
	}
	if to == types.StatusCancelled {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Options wires an executor. Store, Recorder and Listener are optional.
type Options struct {
	Provider    Provider
	Wallet      Wallet
	Mapper      *tokenmap.Mapper
	Guard       *rateguard.Guard
	Policy      *retry.Policy
	Store       state.Store
	Recorder    *recorder.Recorder
	Listener    Listener
	Logger      *slog.Logger
	MaxAttempts int

	SessionID     string
	WalletAddress string
}

// Executor owns one swap session
type Executor struct {
	provider    Provider
	wallet      Wallet
	mapper      *tokenmap.Mapper
	guard       *rateguard.Guard
	policy      *retry.Policy
	store       state.Store
	recorder    *recorder.Recorder
	listener    Listener
	baseLog     *slog.Logger
	log         *slog.Logger
	maxAttempts int
	sleep       func(ctx context.Context, d time.Duration) error

	// emitMu serializes transitions so notifications arrive in order
	emitMu sync.Mutex

	mu        sync.Mutex
	status    types.Status
	session   *types.Session
	request   *types.QuoteRequest
	route     *types.Route
	lastErr   *swaperr.SwapError
	current   int
	parked    bool
	recording bool
	seen      map[string]bool
	stepStart time.Time
	cancelRun context.CancelFunc
}

// New creates an idle executor
func New(opts Options) (*Executor, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if opts.Wallet == nil {
		return nil, fmt.Errorf("wallet is required")
	}
	if opts.Mapper == nil {
		opts.Mapper = tokenmap.NewMapper(tokenmap.DefaultChains())
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Guard == nil {
		opts.Guard = rateguard.New(opts.Provider, 0, opts.Logger)
	}
	if opts.Policy == nil {
		opts.Policy = retry.NewPolicy(0, 0)
	}
	if opts.Listener == nil {
		opts.Listener = ListenerFuncs{}
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}

	return &Executor{
		provider:    opts.Provider,
		wallet:      opts.Wallet,
		mapper:      opts.Mapper,
		guard:       opts.Guard,
		policy:      opts.Policy,
		store:       opts.Store,
		recorder:    opts.Recorder,
		listener:    opts.Listener,
		baseLog:     opts.Logger,
		log:         opts.Logger.With("session", opts.SessionID),
		maxAttempts: opts.MaxAttempts,
		sleep:       sleepContext,
		status:      types.StatusIdle,
		session:     types.NewSession(opts.SessionID, opts.WalletAddress),
		seen:        make(map[string]bool),
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SessionID returns the id of the session this executor drives
func (e *Executor) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.ID
}

// Status returns the current status
func (e *Executor) Status() types.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Route returns a copy of the current route, nil before a quote arrives
func (e *Executor) Route() *types.Route {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.route.Clone()
}

// Progress returns the current execution progress
func (e *Executor) Progress() Progress {
	e.mu.Lock()
	defer e.mu.Unlock()
	return BuildProgress(e.route, e.status)
}

// LastError returns the most recent classified failure
func (e *Executor) LastError() *swaperr.SwapError {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// RateState returns the exchange rate sub-state and the pending change, if any
func (e *Executor) RateState() (types.RateState, *types.RateChange) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Rate, e.session.PendingRate
}

// Parked is true when a recoverable failure is waiting for Retry
func (e *Executor) Parked() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.parked
}

// RequestQuote fetches a route for req. Transient failures are retried;
// other recoverable failures return to IDLE, the rest end in FAILED.
func (e *Executor) RequestQuote(ctx context.Context, req types.QuoteRequest) (*types.Route, error) {
	if err := e.transition(types.StatusFetchingQuote); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.request = &req
	if e.session.WalletAddress == "" {
		e.session.WalletAddress = req.FromAddress
	}
	e.session.Rate = types.RateIdle
	e.session.PendingRate = nil
	e.mu.Unlock()

	pr, err := e.providerRequest(req)
	if err != nil {
		return nil, e.failQuote(swaperr.ClassifyAs(swaperr.KindUnsupportedRoute, err))
	}

	route, err := e.fetchRoute(ctx, pr)
	if errors.Is(err, ErrCancelled) {
		return nil, ErrCancelled
	}
	if err != nil {
		return nil, e.failQuote(swaperr.Classify(err))
	}

	e.mu.Lock()
	e.route = route
	e.lastErr = nil
	e.mu.Unlock()
	if err := e.transition(types.StatusQuoteReady); err != nil {
		return nil, err
	}
	return route.Clone(), nil
}

// providerRequest maps both tokens into the provider's schema
func (e *Executor) providerRequest(req types.QuoteRequest) (QuoteRequest, error) {
	from, err := e.mapper.ToProviderToken(req.FromToken)
	if err != nil {
		return QuoteRequest{}, err
	}
	to, err := e.mapper.ToProviderToken(req.ToToken)
	if err != nil {
		return QuoteRequest{}, err
	}
	return QuoteRequest{QuoteRequest: req, From: from, To: to}, nil
}

// fetchRoute requests a committed quote, retrying transient failures
func (e *Executor) fetchRoute(ctx context.Context, pr QuoteRequest) (*types.Route, error) {
	for attempt := 1; ; attempt++ {
		route, err := e.provider.Quote(ctx, pr)
		if err == nil {
			err = route.Validate()
		}
		if e.cancelled() {
			return nil, ErrCancelled
		}
		if err == nil {
			if route.QuotedAt.IsZero() {
				route.QuotedAt = time.Now()
			}
			return route, nil
		}

		se := e.noteError(err)
		delay, ok := e.policy.Delay(se.Kind, attempt)
		if !ok || attempt >= e.maxAttempts {
			return nil, se
		}
		metrics.Retries.WithLabelValues(string(se.Kind)).Inc()
		e.log.Warn("Quote failed, retrying", "attempt", attempt, "delay", delay, "error", se)
		if err := e.sleep(ctx, delay); err != nil {
			if e.cancelled() {
				return nil, ErrCancelled
			}
			return nil, swaperr.Classify(err)
		}
	}
}

// requestFromRoute rebuilds the quote request of a route restored from a snapshot
func requestFromRoute(route *types.Route) types.QuoteRequest {
	return types.QuoteRequest{
		FromToken:   route.FromToken,
		ToToken:     route.ToToken,
		FromAmount:  route.FromAmount,
		FromAddress: route.FromAddress,
		ToAddress:   route.ToAddress,
		Slippage:    route.FirstStep().Action.Slippage,
	}
}

func (e *Executor) failQuote(se *swaperr.SwapError) *swaperr.SwapError {
	e.mu.Lock()
	noted := e.lastErr == se
	e.mu.Unlock()
	if !noted {
		e.noteError(se)
	}
	next := types.StatusFailed
	if se.Recoverable {
		next = types.StatusIdle
	}
	if err := e.transition(next); err != nil {
		e.log.Debug("Quote failure transition skipped", "error", err)
	}
	return se
}

// Present moves a ready quote into review
func (e *Executor) Present() error {
	e.mu.Lock()
	e.session.Rate = types.RateIdle
	e.session.PendingRate = nil
	e.mu.Unlock()
	return e.transition(types.StatusReviewing)
}

// Confirm runs the exchange rate check and, when it clears, executes the route
// to completion. It blocks until the route is terminal, parked on a
// recoverable failure, or suspended with ErrRateConfirmationRequired.
func (e *Executor) Confirm(ctx context.Context) error {
	e.mu.Lock()
	if e.status != types.StatusReviewing {
		status := e.status
		e.mu.Unlock()
		return fmt.Errorf("%w: confirm in %s", ErrInvalidTransition, status)
	}
	if e.session.Rate == types.RateAwaitingConfirmation {
		e.mu.Unlock()
		return ErrRateConfirmationRequired
	}
	sess := *e.session
	route := e.route.Clone()
	e.mu.Unlock()

	change := e.guard.Check(ctx, &sess, route)

	e.mu.Lock()
	if e.status != types.StatusReviewing {
		e.mu.Unlock()
		return ErrCancelled
	}
	e.session.Rate = sess.Rate
	e.session.PendingRate = sess.PendingRate
	e.mu.Unlock()

	if change != nil {
		e.listener.OnRateChange(*change)
		return ErrRateConfirmationRequired
	}
	return e.begin(ctx)
}

// ResolveRateChange settles a pending rate change. Accepting replaces the
// reviewed route with a committed quote at the new rate and executes it;
// rejecting cancels the session. A committed quote that drifted again from the
// accepted amount suspends with ErrRateConfirmationRequired once more.
func (e *Executor) ResolveRateChange(ctx context.Context, accept bool) error {
	e.mu.Lock()
	if e.status != types.StatusReviewing {
		status := e.status
		e.mu.Unlock()
		return fmt.Errorf("%w: resolve rate change in %s", ErrInvalidTransition, status)
	}
	change, err := e.guard.Resolve(e.session, accept)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()

	if !accept {
		return e.transition(types.StatusCancelled)
	}
	if err := e.commitRate(ctx, change); err != nil {
		return err
	}
	return e.begin(ctx)
}

// commitRate swaps the reviewed route for a committed quote. The comparison
// quote behind change is indicative only: it has no deposit address.
func (e *Executor) commitRate(ctx context.Context, change *types.RateChange) error {
	e.mu.Lock()
	var req types.QuoteRequest
	if e.request != nil {
		req = *e.request
	} else {
		req = requestFromRoute(e.route)
	}
	e.mu.Unlock()

	var route *types.Route
	pr, err := e.providerRequest(req)
	if err != nil {
		err = e.noteError(swaperr.ClassifyAs(swaperr.KindUnsupportedRoute, err))
	} else {
		route, err = e.fetchRoute(ctx, pr)
	}
	if err != nil {
		if errors.Is(err, ErrCancelled) {
			return ErrCancelled
		}
		// back to plain review; Confirm checks the rate again
		e.mu.Lock()
		e.session.Rate = types.RateIdle
		e.mu.Unlock()
		se := swaperr.Classify(err)
		e.log.Warn("Failed to commit the accepted rate", "error", se)
		return se
	}

	e.mu.Lock()
	if e.status != types.StatusReviewing {
		e.mu.Unlock()
		return ErrCancelled
	}
	e.route = route
	again := e.guard.Recheck(e.session, change.NewAmount, route)
	e.mu.Unlock()

	e.log.Info("Committed quote at the accepted rate", "toAmount", route.ToAmount, "route", route.ID)
	e.persistCurrent()
	if again != nil {
		e.listener.OnRateChange(*again)
		return ErrRateConfirmationRequired
	}
	return nil
}

// Requote discards the current quote and fetches a new one for the same request
func (e *Executor) Requote(ctx context.Context) (*types.Route, error) {
	e.mu.Lock()
	var req *types.QuoteRequest
	if e.request != nil {
		req = e.request
	} else if e.route != nil {
		r := requestFromRoute(e.route)
		req = &r
	}
	e.mu.Unlock()
	if req == nil {
		return nil, fmt.Errorf("%w: no quote request to repeat", ErrInvalidTransition)
	}
	return e.RequestQuote(ctx, *req)
}

// Retry resumes a session parked on a recoverable failure
func (e *Executor) Retry(ctx context.Context) error {
	e.mu.Lock()
	if !e.parked {
		status := e.status
		e.mu.Unlock()
		return fmt.Errorf("%w: nothing to retry in %s", ErrInvalidTransition, status)
	}
	e.parked = false
	e.lastErr = nil
	from := e.current
	e.mu.Unlock()

	// a step whose deposit is already on-chain is tracked, never sent again
	observe := e.stepSubmitted(from)
	e.log.Info("Retrying step", "step", from, "tracking", observe)
	return e.execute(ctx, from, observe)
}

// Cancel moves any non-terminal session to CANCELLED and interrupts a running
// execution. Callbacks arriving afterwards are discarded.
func (e *Executor) Cancel() error {
	e.mu.Lock()
	cancelRun := e.cancelRun
	if e.session.Rate == types.RateAwaitingConfirmation {
		e.session.Rate = types.RateRejected
		e.session.PendingRate = nil
	}
	e.parked = false
	e.mu.Unlock()

	if err := e.transition(types.StatusCancelled); err != nil {
		return err
	}
	if cancelRun != nil {
		cancelRun()
	}
	return nil
}

// Resume restores a persisted session. Executing sessions continue from their
// first unfinished step; a step with a submitted transaction is only tracked.
func (e *Executor) Resume(ctx context.Context, snap *state.Snapshot) error {
	e.mu.Lock()
	if e.status != types.StatusIdle {
		status := e.status
		e.mu.Unlock()
		return fmt.Errorf("%w: resume in %s", ErrInvalidTransition, status)
	}
	e.session.ID = snap.SessionID
	e.session.WalletAddress = snap.WalletAddress
	if !snap.StartTime.IsZero() {
		e.session.StartedAt = snap.StartTime
	}
	e.route = snap.Route.Clone()
	if e.route != nil {
		for _, step := range e.route.Steps {
			if step.Execution == nil {
				continue
			}
			for _, p := range step.Execution.Process {
				if p.TxHash != "" {
					e.seen[p.TxHash] = true
				}
			}
		}
	}
	e.log = e.baseLog.With("session", snap.SessionID)
	e.mu.Unlock()

	if snap.Route == nil {
		e.log.Info("Snapshot has no route, discarding")
		e.deleteSnapshot(snap.SessionID)
		return nil
	}

	switch snap.Status {
	case types.StatusIdle, types.StatusFetchingQuote:
		e.deleteSnapshot(snap.SessionID)
		return nil
	case types.StatusQuoteReady, types.StatusReviewing:
		e.restore(snap.Status)
		return nil
	case types.StatusCompleted, types.StatusFailed, types.StatusCancelled:
		e.startRecording(ctx)
		e.restore(snap.Status)
		return nil
	}

	idx := snap.Route.FirstPendingStep()
	e.startRecording(ctx)
	if idx == len(snap.Route.Steps) {
		e.restore(types.StatusConfirming)
		return e.transition(types.StatusCompleted)
	}

	if snap.Route.Steps[idx].Execution.LastHash() != "" {
		e.restore(types.StatusConfirming)
		e.log.Info("Resuming submitted step", "step", idx)
		return e.execute(ctx, idx, true)
	}
	e.restore(types.StatusApproving)
	e.log.Info("Resuming step", "step", idx)
	return e.execute(ctx, idx, false)
}

func (e *Executor) cancelled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status == types.StatusCancelled
}

// noteError classifies err, stores it as the last error and notifies
func (e *Executor) noteError(err error) *swaperr.SwapError {
	se := swaperr.Classify(err)
	e.mu.Lock()
	e.lastErr = se
	e.mu.Unlock()
	metrics.Errors.WithLabelValues(string(se.Kind)).Inc()
	e.listener.OnError(se)
	return se
}

// transition validates and applies a status change, persists the snapshot and
// notifies the listener
func (e *Executor) transition(to types.Status) error {
	e.emitMu.Lock()
	defer e.emitMu.Unlock()

	e.mu.Lock()
	from := e.status
	if !canTransition(from, to) {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	e.apply(to)
	snap := e.snapshot()
	progress := BuildProgress(e.route, to)
	e.mu.Unlock()

	metrics.Transitions.WithLabelValues(string(from), string(to)).Inc()
	e.log.Info("Status changed", "from", from, "to", to)
	e.persist(snap)
	e.listener.OnStatusChange(from, to, progress)
	if to.IsTerminal() {
		e.finishRecording(to)
	}
	return nil
}

// restore sets a status read from a snapshot without checking the transition table
func (e *Executor) restore(to types.Status) {
	e.emitMu.Lock()
	defer e.emitMu.Unlock()

	e.mu.Lock()
	from := e.status
	e.apply(to)
	snap := e.snapshot()
	progress := BuildProgress(e.route, to)
	e.mu.Unlock()

	e.log.Info("Status restored", "status", to)
	e.persist(snap)
	e.listener.OnStatusChange(from, to, progress)
	if to.IsTerminal() {
		e.finishRecording(to)
	}
}

// apply requires mu
func (e *Executor) apply(to types.Status) {
	e.status = to
	e.session.LastUpdate = time.Now()
}

// snapshot requires mu
func (e *Executor) snapshot() *state.Snapshot {
	return &state.Snapshot{
		SessionID:     e.session.ID,
		WalletAddress: e.session.WalletAddress,
		Route:         e.route.Clone(),
		Status:        e.status,
		StartTime:     e.session.StartedAt,
		LastUpdate:    e.session.LastUpdate,
	}
}

// persist writes the snapshot; terminal sessions are removed. Persistence
// failures are logged and never interrupt execution.
func (e *Executor) persist(snap *state.Snapshot) {
	if e.store == nil {
		return
	}
	ctx := context.Background()
	if snap.Status.IsTerminal() {
		e.deleteSnapshot(snap.SessionID)
		return
	}
	if snap.Route == nil {
		return
	}
	if err := e.store.Save(ctx, snap); err != nil {
		e.log.Warn("Failed to save snapshot", "error", err)
	}
}

func (e *Executor) deleteSnapshot(id string) {
	if e.store == nil {
		return
	}
	err := e.store.Delete(context.Background(), id)
	if err != nil && !errors.Is(err, state.ErrSnapshotNotFound) {
		e.log.Warn("Failed to delete snapshot", "error", err)
	}
}

// persistCurrent saves the live state outside a transition
func (e *Executor) persistCurrent() {
	e.mu.Lock()
	snap := e.snapshot()
	e.mu.Unlock()
	e.persist(snap)
}

func (e *Executor) startRecording(ctx context.Context) {
	e.mu.Lock()
	id, wallet, route := e.session.ID, e.session.WalletAddress, e.route.Clone()
	e.recording = true
	e.mu.Unlock()

	if e.recorder == nil {
		return
	}
	if _, err := e.recorder.Start(ctx, id, wallet, route); err != nil {
		e.log.Warn("Failed to write transaction record", "error", err)
	}
}

func (e *Executor) refreshRecording() {
	e.mu.Lock()
	id, route, recording := e.session.ID, e.route.Clone(), e.recording
	e.mu.Unlock()

	if e.recorder == nil || !recording {
		return
	}
	if _, err := e.recorder.Refresh(context.Background(), id, route); err != nil {
		e.log.Warn("Failed to update transaction record", "error", err)
	}
}

func (e *Executor) finishRecording(status types.Status) {
	e.mu.Lock()
	id, route, recording := e.session.ID, e.route.Clone(), e.recording
	e.recording = false
	e.mu.Unlock()

	if e.recorder == nil || !recording {
		return
	}
	if _, err := e.recorder.Finish(context.Background(), id, route, status); err != nil {
		e.log.Warn("Failed to finalize transaction record", "error", err)
	}
}
