package types

// SwapRequest represents a user's swap command
type SwapRequest struct {
	Amount        string
	SourceToken   string
	DestToken     string
	SourceChain   string
	DestChain     string
	RecipientAddr string
	RefundAddr    string
}

// QuoteRequest is the resolved form of a SwapRequest handed to the executor.
// FromAmount is expressed in base units of FromToken.
type QuoteRequest struct {
	FromToken   Token
	ToToken     Token
	FromAmount  string
	FromAddress string
	ToAddress   string
	// Slippage is a fraction, 0.01 == 1%.
	Slippage float64
}
