package swaperr

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"metamask rejection", errors.New("MetaMask Tx Signature: User denied transaction signature."), KindUserRejected},
		{"http 429", errors.New("request failed with status 429"), KindRateLimitExceeded},
		{"too many requests", errors.New("Too Many Requests"), KindRateLimitExceeded},
		{"expired quote", errors.New("quote has expired"), KindQuoteExpired},
		{"slippage", errors.New("execution reverted: Return amount is not enough (slippage)"), KindSlippageExceeded},
		{"gas", errors.New("insufficient funds for gas * price + value"), KindInsufficientGas},
		{"balance", errors.New("ERC20: transfer amount exceeds balance"), KindInsufficientBalance},
		{"allowance", errors.New("ERC20: insufficient allowance"), KindApprovalFailed},
		{"no route", errors.New("No route found for this pair"), KindUnsupportedRoute},
		{"connection refused", errors.New("dial tcp 127.0.0.1:8545: connect: connection refused"), KindNetworkError},
		{"deadline", fmt.Errorf("get quote: %w", context.DeadlineExceeded), KindNetworkError},
		{"gateway", errors.New("upstream returned 503"), KindNetworkError},
		{"reverted", errors.New("transaction 0xabc reverted"), KindExecutionFailed},
		{"unknown", errors.New("something odd happened"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := Classify(tt.err)
			require.NotNil(t, se)
			assert.Equal(t, tt.want, se.Kind)
			assert.Equal(t, tt.err, se.Cause)
			assert.NotEmpty(t, se.Message)
			assert.Equal(t, Suggestions(tt.want)[0], se.SuggestedAction)
		})
	}
}

func TestClassifyCascadeOrder(t *testing.T) {
	se := Classify(errors.New("user rejected the request: insufficient balance"))
	assert.Equal(t, KindUserRejected, se.Kind)

	se = Classify(errors.New("network error: 429 too many requests"))
	assert.Equal(t, KindRateLimitExceeded, se.Kind)

	se = Classify(errors.New("insufficient funds for gas"))
	assert.Equal(t, KindInsufficientGas, se.Kind)
}

func TestClassifyHashDoesNotLookLikeStatusCode(t *testing.T) {
	se := Classify(errors.New("transaction 0x9a503f reverted"))
	assert.Equal(t, KindExecutionFailed, se.Kind)
}

func TestRateLimitRetryAfter(t *testing.T) {
	se := Classify(errors.New("Rate limit exceeded, please retry in 47 minutes"))
	assert.Equal(t, KindRateLimitExceeded, se.Kind)
	require.True(t, se.HasRetryAfter())
	assert.Equal(t, 2820*time.Second, se.RetryAfter)

	se = Classify(errors.New("429: retry after 2 hours"))
	require.True(t, se.HasRetryAfter())
	assert.Equal(t, 7200*time.Second, se.RetryAfter)

	se = Classify(errors.New("too many requests"))
	assert.False(t, se.HasRetryAfter())
	assert.Equal(t, Suggestions(KindRateLimitExceeded)[0], se.SuggestedAction)
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		text string
		want time.Duration
		ok   bool
	}{
		{"retry in 30 seconds", 30 * time.Second, true},
		{"Try again after 5 mins", 5 * time.Minute, true},
		{"retry in 1.5 hours", 90 * time.Minute, true},
		{"Retry-After: 120", 120 * time.Second, true},
		{"retry later", 0, false},
		{"retry in 0 seconds", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseRetryAfter(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		assert.Equal(t, tt.want, got, tt.text)
	}
}

func TestIsRecoverable(t *testing.T) {
	recoverable := map[Kind]bool{
		KindUserRejected:        true,
		KindInsufficientBalance: true,
		KindInsufficientGas:     true,
		KindSlippageExceeded:    true,
		KindQuoteExpired:        true,
		KindRateLimitExceeded:   true,
		KindNetworkError:        true,
		KindApprovalFailed:      true,
		KindExecutionFailed:     false,
		KindUnsupportedRoute:    false,
		KindUnknown:             false,
	}

	// same answers in two different call orders
	kinds := Kinds()
	require.Len(t, kinds, len(recoverable))
	for _, k := range kinds {
		assert.Equal(t, recoverable[k], IsRecoverable(k), k)
	}
	for i := len(kinds) - 1; i >= 0; i-- {
		assert.Equal(t, recoverable[kinds[i]], IsRecoverable(kinds[i]), kinds[i])
	}
}

func TestClassifyKeepsExistingSwapError(t *testing.T) {
	orig := ClassifyAs(KindUserRejected, errors.New("chain switch declined"))
	wrapped := fmt.Errorf("switch chain: %w", orig)

	se := Classify(wrapped)
	assert.Same(t, orig, se)
	assert.Equal(t, KindUserRejected, KindOf(wrapped))
}

func TestSwapErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset by peer")
	se := Classify(cause)
	assert.ErrorIs(t, se, cause)
	assert.Contains(t, se.Error(), "NETWORK_ERROR")
}
