package rateguard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cross-swap/pkg/types"
)

type quoterFunc func(ctx context.Context, route *types.Route) (*types.Route, error)

func (f quoterFunc) ComparisonQuote(ctx context.Context, route *types.Route) (*types.Route, error) {
	return f(ctx, route)
}

func quotedRoute(toAmount string) *types.Route {
	usdc := types.Token{Symbol: "USDC", Decimals: 6, ChainID: "eth"}
	return &types.Route{
		ID:         "r1",
		FromToken:  types.Token{Symbol: "ETH", Decimals: 18, ChainID: "eth"},
		ToToken:    usdc,
		FromAmount: "1000000000000000000",
		ToAmount:   toAmount,
		Steps: []types.Step{{
			ID:       "s1",
			Action:   types.Action{FromChainID: "eth", ToChainID: "eth", FromAmount: "1000000000000000000"},
			Estimate: types.Estimate{ToAmount: toAmount, ApprovalAddress: "0xspender"},
		}},
	}
}

func returning(toAmount string) quoterFunc {
	return func(ctx context.Context, route *types.Route) (*types.Route, error) {
		r := quotedRoute(toAmount)
		r.Steps[0].Estimate.ApprovalAddress = ""
		return r, nil
	}
}

func TestCheckWithinTolerance(t *testing.T) {
	g := New(returning("1030000000"), 5, nil)
	sess := types.NewSession("s", "0xabc")

	change := g.Check(context.Background(), sess, quotedRoute("1000000000"))
	assert.Nil(t, change)
	assert.Equal(t, types.RateCleared, sess.Rate)
	assert.Nil(t, sess.PendingRate)
}

func TestCheckUnfavorableDrift(t *testing.T) {
	g := New(returning("940000000"), 5, nil)
	sess := types.NewSession("s", "0xabc")

	change := g.Check(context.Background(), sess, quotedRoute("1000000000"))
	require.NotNil(t, change)
	assert.Equal(t, types.RateAwaitingConfirmation, sess.Rate)
	assert.Same(t, change, sess.PendingRate)
	assert.Equal(t, "1000000000", change.OldAmount)
	assert.Equal(t, "940000000", change.NewAmount)
	assert.InDelta(t, -6.0, change.PercentChange, 1e-9)
	assert.False(t, change.Favorable())
	assert.False(t, change.Timestamp.IsZero())
}

func TestCheckFavorableDriftAlsoAsks(t *testing.T) {
	g := New(returning("1100000000"), 5, nil)
	sess := types.NewSession("s", "0xabc")

	change := g.Check(context.Background(), sess, quotedRoute("1000000000"))
	require.NotNil(t, change)
	assert.True(t, change.Favorable())
}

func TestCheckFailsOpen(t *testing.T) {
	g := New(quoterFunc(func(ctx context.Context, route *types.Route) (*types.Route, error) {
		return nil, errors.New("503 service unavailable")
	}), 5, nil)
	sess := types.NewSession("s", "0xabc")

	assert.Nil(t, g.Check(context.Background(), sess, quotedRoute("1000000000")))
	assert.Equal(t, types.RateCleared, sess.Rate)
}

func TestResolve(t *testing.T) {
	g := New(returning("940000000"), 5, nil)

	sess := types.NewSession("s", "0xabc")
	_, err := g.Resolve(sess, true)
	assert.ErrorIs(t, err, ErrNotAwaiting)

	require.NotNil(t, g.Check(context.Background(), sess, quotedRoute("1000000000")))
	change, err := g.Resolve(sess, true)
	require.NoError(t, err)
	assert.Equal(t, types.RateAccepted, sess.Rate)
	assert.Nil(t, sess.PendingRate)
	assert.Equal(t, "940000000", change.NewAmount)

	_, err = g.Resolve(sess, true)
	assert.ErrorIs(t, err, ErrNotAwaiting)

	require.NotNil(t, g.Check(context.Background(), sess, quotedRoute("1000000000")))
	_, err = g.Resolve(sess, false)
	require.NoError(t, err)
	assert.Equal(t, types.RateRejected, sess.Rate)
}

func TestRecheckCommittedQuote(t *testing.T) {
	g := New(returning("940000000"), 5, nil)
	sess := types.NewSession("s", "0xabc")
	require.NotNil(t, g.Check(context.Background(), sess, quotedRoute("1000000000")))
	change, err := g.Resolve(sess, true)
	require.NoError(t, err)

	// committed close to the accepted amount
	assert.Nil(t, g.Recheck(sess, change.NewAmount, quotedRoute("936000000")))
	assert.Equal(t, types.RateAccepted, sess.Rate)
	assert.Nil(t, sess.PendingRate)

	// committed drifted again
	again := g.Recheck(sess, change.NewAmount, quotedRoute("850000000"))
	require.NotNil(t, again)
	assert.Equal(t, types.RateAwaitingConfirmation, sess.Rate)
	assert.Same(t, again, sess.PendingRate)
	assert.Equal(t, "940000000", again.OldAmount)
	assert.Equal(t, "850000000", again.NewAmount)
}

func TestPercentChange(t *testing.T) {
	pct, err := PercentChange("200", "150")
	require.NoError(t, err)
	assert.Equal(t, "-25", pct.String())

	_, err = PercentChange("0", "1")
	assert.Error(t, err)
}
