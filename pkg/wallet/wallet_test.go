package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cross-swap/config"
	"cross-swap/pkg/tokenmap"
)

type fakeDepositor struct {
	addr  string
	sent  []Transfer
	hash  string
	err   error
	close int
}

func (f *fakeDepositor) Address() string { return f.addr }

func (f *fakeDepositor) SendDeposit(ctx context.Context, t Transfer) (string, error) {
	f.sent = append(f.sent, t)
	return f.hash, f.err
}

func (f *fakeDepositor) Close() { f.close++ }

func TestSwitchChainWithoutSigner(t *testing.T) {
	m := NewManager(config.WalletConfig{}, tokenmap.NewMapper(tokenmap.DefaultChains()))

	err := m.SwitchChain(context.Background(), "base")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChainSwitchRejected))

	active, err := m.ActiveChain(context.Background())
	require.NoError(t, err)
	assert.Empty(t, active)

	err = m.SwitchChain(context.Background(), "fantom")
	assert.ErrorIs(t, err, ErrChainSwitchRejected)
}

func TestSupportsChain(t *testing.T) {
	cfg := config.WalletConfig{
		EVM: config.EVMConfig{Networks: map[string]config.EVMNetwork{
			"base": {RPCUrl: "https://mainnet.base.org", PrivateKey: "0x01"},
			"arb":  {RPCUrl: "https://arb1.arbitrum.io/rpc"},
		}},
	}
	m := NewManager(cfg, tokenmap.NewMapper(tokenmap.DefaultChains()))

	assert.True(t, m.SupportsChain("base"))
	assert.False(t, m.SupportsChain("arb"))
	assert.False(t, m.SupportsChain("sol"))
	assert.False(t, m.SupportsChain("unknown"))
}

func TestSendDepositRequiresActiveChain(t *testing.T) {
	m := NewManager(config.WalletConfig{}, tokenmap.NewMapper(tokenmap.DefaultChains()))
	fake := &fakeDepositor{addr: "0xme", hash: "0xhash"}
	m.depositors["base"] = fake

	_, err := m.SendDeposit(context.Background(), "base", Transfer{To: "0xdep", Amount: "1"})
	assert.Error(t, err)

	require.NoError(t, m.SwitchChain(context.Background(), "base"))
	hash, err := m.SendDeposit(context.Background(), "base", Transfer{To: "0xdep", Amount: "1"})
	require.NoError(t, err)
	assert.Equal(t, "0xhash", hash)
	require.Len(t, fake.sent, 1)

	addr, err := m.Address(context.Background(), "base")
	require.NoError(t, err)
	assert.Equal(t, "0xme", addr)

	m.Close()
	assert.Equal(t, 1, fake.close)
}

func TestParseBaseAmount(t *testing.T) {
	v, err := parseBaseAmount("1000000000000000000000")
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000000", v.String())

	for _, bad := range []string{"", "0", "-5", "1.5", "abc"} {
		_, err := parseBaseAmount(bad)
		assert.Error(t, err, bad)
	}
}
