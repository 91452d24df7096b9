package recorder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cross-swap/pkg/types"
)

func twoStepRoute() *types.Route {
	eth := types.Token{Symbol: "ETH", Decimals: 18, ChainID: "eth"}
	usdcEth := types.Token{Symbol: "USDC", Decimals: 6, ChainID: "eth", Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"}
	usdcBase := types.Token{Symbol: "USDC", Decimals: 6, ChainID: "base", Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"}
	return &types.Route{
		ID:            "route-1",
		FromChainID:   "eth",
		ToChainID:     "base",
		FromToken:     eth,
		ToToken:       usdcBase,
		FromAmount:    "1000000000000000000",
		ToAmount:      "2500000000",
		FromAmountUSD: "2510.00",
		Steps: []types.Step{
			{
				ID:       "s1",
				Tool:     "uniswap",
				Action:   types.Action{FromToken: eth, ToToken: usdcEth, FromChainID: "eth", ToChainID: "eth", FromAmount: "1000000000000000000"},
				Estimate: types.Estimate{ToAmount: "2505000000"},
			},
			{
				ID:       "s2",
				Tool:     "across",
				Action:   types.Action{FromToken: usdcEth, ToToken: usdcBase, FromChainID: "eth", ToChainID: "base", FromAmount: "2505000000"},
				Estimate: types.Estimate{ToAmount: "2500000000"},
			},
		},
	}
}

func TestPlaceholder(t *testing.T) {
	route := twoStepRoute()

	assert.False(t, IsTrackable(route))
	rec := CreatePlaceholder(route, "0xwallet", "sess-1")
	assert.Equal(t, types.RecordPending, rec.Status)
	assert.Empty(t, rec.TxHash)
	assert.Equal(t, "sess-1", rec.ID)
	assert.Equal(t, "eth", rec.FromChainID)
	assert.Equal(t, "base", rec.ToChainID)
	assert.Equal(t, "ETH", rec.FromToken)
	assert.Equal(t, "USDC", rec.ToToken)
	assert.Equal(t, "1000000000000000000", rec.FromAmount)
	assert.Equal(t, "2500000000", rec.ToAmount)
	assert.Equal(t, "2510.00", rec.ValueUSD)
	assert.False(t, rec.Timestamp.IsZero())
}

func TestExtractHashOrder(t *testing.T) {
	route := twoStepRoute()
	route.Steps[0].Execution = &types.Execution{Status: types.ProcessDone, Process: []types.Process{
		{Type: "token_allowance", Status: types.ProcessDone, TxHash: "0xapprove"},
		{Type: "swap", Status: types.ProcessDone, TxHash: "0xswap"},
	}}
	assert.Equal(t, "0xswap", ExtractHash(route))

	route.Steps[1].Execution = &types.Execution{Status: types.ProcessPending, Process: []types.Process{
		{Type: "cross_chain", Status: types.ProcessPending, TxHash: "0xbridge"},
		{Type: "receiving_chain", Status: types.ProcessPending},
	}}
	assert.Equal(t, "0xbridge", ExtractHash(route))
	assert.True(t, IsTrackable(route))
}

func TestDeriveStatus(t *testing.T) {
	route := twoStepRoute()
	assert.Equal(t, types.RecordPending, DeriveStatus(route))

	route.Steps[0].Execution = &types.Execution{Status: types.ProcessFailed, Process: []types.Process{
		{Type: "swap", Status: types.ProcessFailed},
	}}
	assert.Equal(t, types.RecordFailed, DeriveStatus(route))

	route.Steps[0].Execution.Process[0].Status = types.ProcessCancelled
	assert.Equal(t, types.RecordFailed, DeriveStatus(route))
}

func TestTwoStepRouteEndToEnd(t *testing.T) {
	route := twoStepRoute()
	route.Steps[0].Execution = &types.Execution{Status: types.ProcessDone, Process: []types.Process{
		{Type: "swap", Status: types.ProcessDone, TxHash: "H1"},
	}}
	route.Steps[1].Execution = &types.Execution{Status: types.ProcessPending}

	assert.Equal(t, types.RecordPending, DeriveStatus(route))
	assert.Equal(t, "H1", ExtractHash(route))

	route.Steps[1].Execution = &types.Execution{Status: types.ProcessDone, Process: []types.Process{
		{Type: "cross_chain", Status: types.ProcessDone},
	}}
	assert.Equal(t, types.RecordCompleted, DeriveStatus(route))
	assert.Equal(t, "H1", ExtractHash(route))
}

func TestUpdateNeverDowngrades(t *testing.T) {
	route := twoStepRoute()
	existing := CreatePlaceholder(route, "0xwallet", "sess-1")
	existing.Status = types.RecordCompleted
	existing.TxHash = "0xknown"
	existing.ToAmount = "2499000000"

	// a stale route with no hashes and nothing done
	stale := twoStepRoute()
	stale.ToAmount = "0"
	stale.Steps[1].Estimate.ToAmount = ""
	stale.FromAmountUSD = ""

	updated := Update(existing, stale)
	assert.Equal(t, types.RecordCompleted, updated.Status)
	assert.Equal(t, "0xknown", updated.TxHash)
	assert.Equal(t, "2499000000", updated.ToAmount)
	assert.Equal(t, "2510.00", updated.ValueUSD)
}

func TestUpdateFailedToCompletedAndPendingNeverWins(t *testing.T) {
	route := twoStepRoute()
	existing := CreatePlaceholder(route, "0xwallet", "sess-1")
	existing.Status = types.RecordFailed

	updated := Update(existing, route)
	assert.Equal(t, types.RecordFailed, updated.Status)

	for i := range route.Steps {
		route.Steps[i].Execution = &types.Execution{Status: types.ProcessDone, ToAmount: "2501000000",
			Process: []types.Process{{Type: "swap", Status: types.ProcessDone, TxHash: "0x" + route.Steps[i].ID}}}
	}
	updated = Update(updated, route)
	assert.Equal(t, types.RecordCompleted, updated.Status)
	assert.Equal(t, "0xs2", updated.TxHash)
	assert.Equal(t, "2501000000", updated.ToAmount)
}

func TestUpdateDoesNotMutateExisting(t *testing.T) {
	route := twoStepRoute()
	existing := CreatePlaceholder(route, "0xwallet", "sess-1")
	route.Steps[0].Execution = &types.Execution{Status: types.ProcessPending, Process: []types.Process{
		{Type: "swap", Status: types.ProcessPending, TxHash: "0x1"},
	}}

	updated := Update(existing, route)
	require.NotSame(t, existing, updated)
	assert.Empty(t, existing.TxHash)
	assert.Equal(t, "0x1", updated.TxHash)
}
