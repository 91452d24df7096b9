// Package rateguard detects quote drift between quoting and signing and holds
// the session in an explicit awaiting-confirmation state until the caller decides.
package rateguard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"cross-swap/pkg/metrics"
	"cross-swap/pkg/types"
)

// DefaultThresholdPercent is the drift tolerated without asking the user
const DefaultThresholdPercent = 5.0

// ErrNotAwaiting is returned by Resolve when no rate change is pending
var ErrNotAwaiting = errors.New("no exchange rate change awaiting confirmation")

// Quoter fetches a fresh comparison quote for an already quoted route
type Quoter interface {
	ComparisonQuote(ctx context.Context, route *types.Route) (*types.Route, error)
}

// Guard compares the quoted output against a fresh quote
type Guard struct {
	quoter    Quoter
	threshold decimal.Decimal
	log       *slog.Logger
	now       func() time.Time
}

// New creates a guard. thresholdPercent <= 0 uses the default.
func New(quoter Quoter, thresholdPercent float64, log *slog.Logger) *Guard {
	if thresholdPercent <= 0 {
		thresholdPercent = DefaultThresholdPercent
	}
	if log == nil {
		log = slog.Default()
	}
	return &Guard{
		quoter:    quoter,
		threshold: decimal.NewFromFloat(thresholdPercent),
		log:       log,
		now:       time.Now,
	}
}

// Check requests a comparison quote and moves the session's rate sub-state to
// either CLEARED or AWAITING_RATE_CONFIRMATION. It returns the pending change
// when confirmation is required. Comparison failures clear the check.
func (g *Guard) Check(ctx context.Context, sess *types.Session, route *types.Route) *types.RateChange {
	sess.PendingRate = nil

	fresh, err := g.quoter.ComparisonQuote(ctx, route)
	if err != nil {
		g.log.Warn("Comparison quote failed, continuing with original quote",
			"session", sess.ID, "error", err)
		metrics.RateChanges.WithLabelValues(metrics.DecisionComparisonFailed).Inc()
		sess.Rate = types.RateCleared
		return nil
	}

	return g.compare(sess, route.ToAmount, fresh, types.RateCleared)
}

// Recheck compares the committed quote obtained after an accepted change with
// the accepted amount. A second drift beyond the threshold puts the session back
// into AWAITING_RATE_CONFIRMATION; otherwise it stays ACCEPTED.
func (g *Guard) Recheck(sess *types.Session, accepted string, committed *types.Route) *types.RateChange {
	sess.PendingRate = nil
	return g.compare(sess, accepted, committed, types.RateAccepted)
}

// compare moves sess to settled when fresh is within tolerance of quoted
func (g *Guard) compare(sess *types.Session, quoted string, fresh *types.Route, settled types.RateState) *types.RateChange {
	pct, err := PercentChange(quoted, fresh.ToAmount)
	if err != nil {
		g.log.Warn("Unable to compare quotes", "session", sess.ID, "error", err)
		metrics.RateChanges.WithLabelValues(metrics.DecisionComparisonFailed).Inc()
		sess.Rate = settled
		return nil
	}

	if pct.Abs().LessThanOrEqual(g.threshold) {
		g.log.Debug("Exchange rate within tolerance", "session", sess.ID, "change", pct.StringFixed(2))
		metrics.RateChanges.WithLabelValues(metrics.DecisionWithinTolerance).Inc()
		sess.Rate = settled
		return nil
	}

	change := &types.RateChange{
		OldAmount:     quoted,
		NewAmount:     fresh.ToAmount,
		PercentChange: pct.InexactFloat64(),
		Timestamp:     g.now(),
		Quote:         fresh,
	}
	sess.Rate = types.RateAwaitingConfirmation
	sess.PendingRate = change

	g.log.Info("Exchange rate changed, awaiting confirmation",
		"session", sess.ID,
		"old", change.OldAmount,
		"new", change.NewAmount,
		"change", pct.StringFixed(2))
	metrics.RateChanges.WithLabelValues(metrics.DecisionAwaiting).Inc()
	return change
}

// Resolve is the only exit from AWAITING_RATE_CONFIRMATION
func (g *Guard) Resolve(sess *types.Session, accept bool) (*types.RateChange, error) {
	if sess.Rate != types.RateAwaitingConfirmation || sess.PendingRate == nil {
		return nil, ErrNotAwaiting
	}
	change := sess.PendingRate
	sess.PendingRate = nil
	if accept {
		sess.Rate = types.RateAccepted
		metrics.RateChanges.WithLabelValues(metrics.DecisionAccepted).Inc()
	} else {
		sess.Rate = types.RateRejected
		metrics.RateChanges.WithLabelValues(metrics.DecisionRejected).Inc()
	}
	g.log.Info("Exchange rate change resolved", "session", sess.ID, "accepted", accept)
	return change, nil
}

// PercentChange returns (new - old) / old * 100
func PercentChange(oldAmount, newAmount string) (decimal.Decimal, error) {
	o, err := decimal.NewFromString(oldAmount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid quoted amount %q: %w", oldAmount, err)
	}
	n, err := decimal.NewFromString(newAmount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid comparison amount %q: %w", newAmount, err)
	}
	if o.IsZero() {
		return decimal.Zero, fmt.Errorf("quoted amount is zero")
	}
	return n.Sub(o).Div(o).Mul(decimal.NewFromInt(100)), nil
}
