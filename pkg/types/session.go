package types

import "time"

// RateState is the Exchange-Rate Guard's sub-state while the executor sits in REVIEWING
type RateState string

const (
	RateIdle                 RateState = "IDLE"
	RateAwaitingConfirmation RateState = "AWAITING_RATE_CONFIRMATION"
	RateAccepted             RateState = "ACCEPTED"
	RateRejected             RateState = "REJECTED"
	RateCleared              RateState = "CLEARED"
)

// RateChange is the decision request surfaced when a comparison quote drifted
// beyond the configured threshold
type RateChange struct {
	OldAmount     string    `json:"oldAmount"`
	NewAmount     string    `json:"newAmount"`
	PercentChange float64   `json:"percentChange"`
	Timestamp     time.Time `json:"timestamp"`

	// Quote is the comparison route whose amounts are adopted on accept
	Quote *Route `json:"-"`
}

// Favorable is true when the new quote returns more than the original
func (c RateChange) Favorable() bool {
	return c.PercentChange > 0
}

// Session is the per-swap execution context. It is owned by one executor and
// passed by pointer to the guard and the state store; nothing about a session
// lives in package-level state.
type Session struct {
	ID            string    `json:"id"`
	WalletAddress string    `json:"walletAddress"`
	StartedAt     time.Time `json:"startedAt"`
	LastUpdate    time.Time `json:"lastUpdate"`

	// Attempt counts failed attempts of the current step; reset when a step completes
	Attempt int `json:"attempt"`

	Rate        RateState   `json:"rateState"`
	PendingRate *RateChange `json:"pendingRate,omitempty"`
}

// NewSession creates a session context for a wallet
func NewSession(id, wallet string) *Session {
	now := time.Now()
	return &Session{
		ID:            id,
		WalletAddress: wallet,
		StartedAt:     now,
		LastUpdate:    now,
		Rate:          RateIdle,
	}
}
