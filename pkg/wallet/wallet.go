// Package wallet exposes the signing side of a swap: which chain is active,
// switching chains and sending deposit transfers.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cross-swap/config"
	"cross-swap/pkg/tokenmap"
)

// ErrChainSwitchRejected is returned when the wallet cannot move to a chain
var ErrChainSwitchRejected = errors.New("chain switch rejected")

// Transfer is a deposit of Amount base units of a token to To
type Transfer struct {
	To     string
	Amount string
	// Contract is the token contract or mint; empty for the native asset
	Contract string
}

// Depositor signs and sends transfers on one chain
type Depositor interface {
	Address() string
	SendDeposit(ctx context.Context, t Transfer) (string, error)
	Close()
}

// Manager holds one depositor per configured chain and tracks the active chain
type Manager struct {
	cfg    config.WalletConfig
	mapper *tokenmap.Mapper

	mu         sync.Mutex
	active     string
	depositors map[string]Depositor
}

// NewManager creates a wallet manager; depositors are connected lazily
func NewManager(cfg config.WalletConfig, mapper *tokenmap.Mapper) *Manager {
	return &Manager{
		cfg:        cfg,
		mapper:     mapper,
		depositors: make(map[string]Depositor),
	}
}

// ActiveChain returns the chain the wallet is currently on, or "" before the first switch
func (m *Manager) ActiveChain(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active, nil
}

// SwitchChain makes chain active. It fails with ErrChainSwitchRejected when no
// signer is configured for the chain.
func (m *Manager) SwitchChain(ctx context.Context, chain string) error {
	if _, err := m.depositor(ctx, chain); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrChainSwitchRejected, chain, err)
	}
	m.mu.Lock()
	m.active = strings.ToLower(chain)
	m.mu.Unlock()
	return nil
}

// SupportsChain reports whether a signer is configured for chain
func (m *Manager) SupportsChain(chain string) bool {
	c, err := m.mapper.Chain(chain)
	if err != nil {
		return false
	}
	switch c.Kind {
	case tokenmap.KindEVM:
		n, ok := m.cfg.EVM.Networks[c.Key]
		return ok && n.RPCUrl != "" && n.PrivateKey != ""
	case tokenmap.KindSolana:
		return m.cfg.Solana.RPCUrl != "" && m.cfg.Solana.PrivateKey != ""
	}
	return false
}

// Address returns the signer address on chain
func (m *Manager) Address(ctx context.Context, chain string) (string, error) {
	d, err := m.depositor(ctx, chain)
	if err != nil {
		return "", err
	}
	return d.Address(), nil
}

// SendDeposit sends a transfer from the active chain. The caller switches first.
func (m *Manager) SendDeposit(ctx context.Context, chain string, t Transfer) (string, error) {
	m.mu.Lock()
	active := m.active
	m.mu.Unlock()
	if !strings.EqualFold(active, chain) {
		return "", fmt.Errorf("wallet is on chain %q, deposit needs %q", active, chain)
	}

	d, err := m.depositor(ctx, chain)
	if err != nil {
		return "", err
	}
	return d.SendDeposit(ctx, t)
}

// Close releases every open connection
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.depositors {
		d.Close()
	}
	m.depositors = make(map[string]Depositor)
}

func (m *Manager) depositor(ctx context.Context, chain string) (Depositor, error) {
	c, err := m.mapper.Chain(chain)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.depositors[c.Key]; ok {
		return d, nil
	}

	var d Depositor
	switch c.Kind {
	case tokenmap.KindEVM:
		d, err = NewEVMDepositor(ctx, m.cfg.EVM, c.Key)
	case tokenmap.KindSolana:
		d, err = NewSolanaDepositor(m.cfg.Solana)
	default:
		err = fmt.Errorf("no signer support for chain kind %q", c.Kind)
	}
	if err != nil {
		return nil, err
	}
	m.depositors[c.Key] = d
	return d, nil
}
