package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResolver(raw string) (string, bool) {
	key, ok := map[string]string{
		"1": "eth", "eth": "eth",
		"8453": "base", "base": "base",
		"42161": "arb", "arb": "arb",
	}[raw]
	return key, ok
}

const loosePayload = `{
  "id": 77,
  "steps": [{
    "id": "s1",
    "type": "CROSS",
    "tool": "1click",
    "action": {
      "fromToken": {"symbol": "ETH", "decimals": 18, "chainId": 8453, "address": "0x0000000000000000000000000000000000000000"},
      "toToken": {"symbol": "USDC", "decimals": "6", "chainId": "42161", "address": "0xaf88d065e77c8cC2239327C5EDb3A432268e5831"},
      "fromAmount": 1000000000000000000,
      "fromChainId": 8453,
      "toChainId": "arb",
      "slippage": "0.005"
    },
    "estimate": {"toAmount": "3000000000", "executionDuration": 45},
    "execution": {
      "status": "ACTION_REQUIRED",
      "process": [{"type": "DEPOSIT", "status": "DONE", "txHash": "0xabc"}]
    }
  }]
}`

func TestDecodeRouteNormalizesLoosePayload(t *testing.T) {
	route, err := DecodeRoute([]byte(loosePayload), testResolver)
	require.NoError(t, err)

	assert.Equal(t, "77", route.ID)
	assert.Equal(t, "base", route.FromChainID)
	assert.Equal(t, "arb", route.ToChainID)
	assert.Equal(t, "1000000000000000000", route.FromAmount)
	assert.Equal(t, "3000000000", route.ToAmount)
	assert.Equal(t, int32(6), route.ToToken.Decimals)
	assert.Equal(t, "arb", route.ToToken.ChainID)

	step := route.Steps[0]
	assert.Equal(t, "cross", step.Type)
	assert.InDelta(t, 0.005, step.Action.Slippage, 1e-9)
	assert.InDelta(t, 45.0, step.Estimate.ExecutionDuration, 1e-9)
	require.NotNil(t, step.Execution)
	assert.Equal(t, ProcessPending, step.Execution.Status)
	require.Len(t, step.Execution.Process, 1)
	assert.Equal(t, ProcessDone, step.Execution.Process[0].Status)
	assert.Equal(t, "deposit", step.Execution.Process[0].Type)
	assert.Equal(t, "base", step.Execution.Process[0].ChainID)
}

func TestDecodeRouteRejects(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{
			name:    "unknown chain",
			payload: `{"steps":[{"action":{"fromToken":{"symbol":"ETH","decimals":18,"chainId":999},"toToken":{"symbol":"USDC","decimals":6,"chainId":1},"fromAmount":"1","fromChainId":999,"toChainId":1},"estimate":{"toAmount":"1"}}]}`,
			want:    "unsupported chain",
		},
		{
			name:    "unknown status",
			payload: `{"steps":[{"action":{"fromToken":{"symbol":"ETH","decimals":18,"chainId":1},"toToken":{"symbol":"USDC","decimals":6,"chainId":1},"fromAmount":"1","fromChainId":1,"toChainId":1},"estimate":{"toAmount":"1"},"execution":{"status":"EXPLODED"}}]}`,
			want:    "unknown process status",
		},
		{
			name:    "fractional amount",
			payload: `{"steps":[{"action":{"fromToken":{"symbol":"ETH","decimals":18,"chainId":1},"toToken":{"symbol":"USDC","decimals":6,"chainId":1},"fromAmount":"1.5","fromChainId":1,"toChainId":1},"estimate":{"toAmount":"1"}}]}`,
			want:    "base-unit integer",
		},
		{
			name:    "no steps",
			payload: `{"id":"r","steps":[]}`,
			want:    "no steps",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRoute([]byte(tt.payload), testResolver)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseProcessStatus(t *testing.T) {
	for in, want := range map[string]ProcessStatus{
		"DONE":            ProcessDone,
		"success":         ProcessDone,
		"":                ProcessPending,
		"STARTED":         ProcessPending,
		"ACTION_REQUIRED": ProcessPending,
		"FAILED":          ProcessFailed,
		"refunded":        ProcessFailed,
		"CANCELLED":       ProcessCancelled,
	} {
		got, err := ParseProcessStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseProcessStatus("weird")
	assert.Error(t, err)
}

func TestRouteCloneDoesNotAlias(t *testing.T) {
	route, err := DecodeRoute([]byte(loosePayload), testResolver)
	require.NoError(t, err)

	clone := route.Clone()
	clone.Steps[0].Execution.Process[0].TxHash = "0xdef"
	clone.Steps[0].Execution.Status = ProcessDone

	assert.Equal(t, "0xabc", route.Steps[0].Execution.Process[0].TxHash)
	assert.Equal(t, ProcessPending, route.Steps[0].Execution.Status)
	assert.Equal(t, 0, route.FirstPendingStep())
	assert.Equal(t, 1, clone.FirstPendingStep())
}
