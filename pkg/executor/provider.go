package executor

import (
	"context"

	"cross-swap/pkg/tokenmap"
	"cross-swap/pkg/types"
)

// QuoteRequest is a quote request with both tokens already mapped to the
// provider's schema
type QuoteRequest struct {
	types.QuoteRequest
	From tokenmap.ProviderToken
	To   tokenmap.ProviderToken
}

// Reporter receives the latest execution record of the step being driven.
// Providers call it every time a process is added or changes status.
type Reporter func(exec types.Execution)

// Provider is the routing provider: it quotes routes and signs, submits and
// tracks each step on-chain
type Provider interface {
	Quote(ctx context.Context, req QuoteRequest) (*types.Route, error)
	// ComparisonQuote re-quotes an existing route without committing to it
	ComparisonQuote(ctx context.Context, route *types.Route) (*types.Route, error)
	// Approve grants the step's spender an allowance
	Approve(ctx context.Context, step *types.Step) error
	// ExecuteStep signs and submits the step and returns once its execution is done
	ExecuteStep(ctx context.Context, step *types.Step, report Reporter) error
	// ResumeStep tracks an already submitted step without signing again
	ResumeStep(ctx context.Context, step *types.Step, report Reporter) error
}

// Wallet is the connection layer's view of the signer
type Wallet interface {
	ActiveChain(ctx context.Context) (string, error)
	SwitchChain(ctx context.Context, chain string) error
}
