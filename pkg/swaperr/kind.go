package swaperr

// Kind is the closed set of failure categories
type Kind string

const (
	KindUserRejected        Kind = "USER_REJECTED"
	KindRateLimitExceeded   Kind = "RATE_LIMIT_EXCEEDED"
	KindQuoteExpired        Kind = "QUOTE_EXPIRED"
	KindSlippageExceeded    Kind = "SLIPPAGE_EXCEEDED"
	KindInsufficientGas     Kind = "INSUFFICIENT_GAS"
	KindInsufficientBalance Kind = "INSUFFICIENT_BALANCE"
	KindApprovalFailed      Kind = "APPROVAL_FAILED"
	KindUnsupportedRoute    Kind = "UNSUPPORTED_ROUTE"
	KindNetworkError        Kind = "NETWORK_ERROR"
	KindExecutionFailed     Kind = "EXECUTION_FAILED"
	KindUnknown             Kind = "UNKNOWN"
)

type kindInfo struct {
	recoverable bool
	message     string
	suggestions []string
}

// registry holds the fixed attributes of every kind
var registry = map[Kind]kindInfo{
	KindUserRejected: {
		recoverable: true,
		message:     "The transaction was rejected in your wallet.",
		suggestions: []string{
			"Confirm the transaction in your wallet to continue",
			"Check that the correct account is selected",
		},
	},
	KindRateLimitExceeded: {
		recoverable: true,
		message:     "Too many requests were sent to the routing provider.",
		suggestions: []string{
			"Wait a moment before trying again",
			"Reduce how often quotes are refreshed",
		},
	},
	KindQuoteExpired: {
		recoverable: true,
		message:     "The quote expired before it could be executed.",
		suggestions: []string{
			"Request a fresh quote",
			"Sign promptly after reviewing the quote",
		},
	},
	KindSlippageExceeded: {
		recoverable: true,
		message:     "The price moved beyond your slippage tolerance.",
		suggestions: []string{
			"Increase the slippage tolerance",
			"Try a smaller amount",
			"Wait for the market to settle and retry",
		},
	},
	KindInsufficientGas: {
		recoverable: true,
		message:     "There is not enough native balance to pay network fees.",
		suggestions: []string{
			"Add native tokens to cover gas on the source chain",
			"Reduce the swap amount to leave room for fees",
		},
	},
	KindInsufficientBalance: {
		recoverable: true,
		message:     "Your balance is too low for this swap.",
		suggestions: []string{
			"Reduce the swap amount",
			"Top up the source token balance",
		},
	},
	KindApprovalFailed: {
		recoverable: true,
		message:     "The token allowance could not be granted.",
		suggestions: []string{
			"Retry the approval",
			"Reset the existing allowance to zero, then approve again",
		},
	},
	KindUnsupportedRoute: {
		recoverable: false,
		message:     "No route is available for this token pair.",
		suggestions: []string{
			"Choose a different token or chain",
			"Try a different amount",
		},
	},
	KindNetworkError: {
		recoverable: true,
		message:     "A network error interrupted the request.",
		suggestions: []string{
			"Check your connection and retry",
			"Switch to a different RPC endpoint",
		},
	},
	KindExecutionFailed: {
		recoverable: false,
		message:     "The transaction failed on-chain.",
		suggestions: []string{
			"Inspect the transaction in a block explorer",
			"Start a new swap with a fresh quote",
		},
	},
	KindUnknown: {
		recoverable: false,
		message:     "An unexpected error occurred.",
		suggestions: []string{
			"Try again later",
			"Contact support if the problem persists",
		},
	},
}

// Kinds returns every kind in classification order
func Kinds() []Kind {
	out := make([]Kind, 0, len(rules)+1)
	for _, r := range rules {
		out = append(out, r.kind)
	}
	return append(out, KindUnknown)
}

// IsRecoverable is a pure lookup keyed by kind
func IsRecoverable(k Kind) bool {
	return registry[k].recoverable
}

// Message returns the canonical user-facing message
func Message(k Kind) string {
	if info, ok := registry[k]; ok {
		return info.message
	}
	return registry[KindUnknown].message
}

// Suggestions returns the ranked recovery suggestions for a kind
func Suggestions(k Kind) []string {
	info, ok := registry[k]
	if !ok {
		info = registry[KindUnknown]
	}
	out := make([]string, len(info.suggestions))
	copy(out, info.suggestions)
	return out
}

// Valid reports whether k is a member of the closed set
func (k Kind) Valid() bool {
	_, ok := registry[k]
	return ok
}
