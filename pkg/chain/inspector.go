// Package chain looks up transaction outcomes directly on EVM and Solana chains.
package chain

import (
	"context"
	"fmt"
	"strings"

	"cross-swap/pkg/state"
)

// Multi dispatches to a per-chain inspector
type Multi struct {
	byChain map[string]state.Inspector
}

func NewMulti() *Multi {
	return &Multi{byChain: make(map[string]state.Inspector)}
}

// Register sets the inspector for a chain key
func (m *Multi) Register(chain string, insp state.Inspector) {
	m.byChain[strings.ToLower(chain)] = insp
}

func (m *Multi) TxStatus(ctx context.Context, chain, hash string) (state.TxState, error) {
	insp, ok := m.byChain[strings.ToLower(chain)]
	if !ok {
		return state.TxPending, fmt.Errorf("no inspector configured for chain %s", chain)
	}
	return insp.TxStatus(ctx, chain, hash)
}
