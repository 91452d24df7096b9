// Package tokenmap translates internal token records into the provider-neutral
// shape the routing provider expects.
package tokenmap

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"

	"cross-swap/pkg/types"
)

// ErrUnsupportedChain is returned when an internal chain key has no provider mapping
var ErrUnsupportedChain = errors.New("unsupported chain")

// Kind is the signing family of a chain
type Kind string

const (
	KindEVM    Kind = "evm"
	KindSolana Kind = "svm"
)

// Chain is one row of the chain-id table
type Chain struct {
	Key        string // internal key, e.g. "eth"
	ProviderID int64  // numeric id the provider uses in routes
	Blockchain string // 1Click blockchain name
	Name       string
	Kind       Kind
	// NativeAddress is a chain-specific pseudo-address some token lists use for the gas token
	NativeAddress string
}

// ProviderToken is a token in the schema handed to the routing provider
type ProviderToken struct {
	ChainID    int64  `json:"chainId"`
	Blockchain string `json:"blockchain"`
	Address    string `json:"address"`
	Symbol     string `json:"symbol"`
	Decimals   int32  `json:"decimals"`
}

// NativeAddress is the canonical representation of every native asset
var NativeAddress = common.Address{}.Hex()

const allFsAddress = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"

// DefaultChains returns the chains supported out of the box
func DefaultChains() []Chain {
	return []Chain{
		{Key: "eth", ProviderID: 1, Blockchain: "eth", Name: "Ethereum", Kind: KindEVM},
		{Key: "op", ProviderID: 10, Blockchain: "op", Name: "Optimism", Kind: KindEVM},
		{Key: "bsc", ProviderID: 56, Blockchain: "bsc", Name: "BNB Chain", Kind: KindEVM},
		{Key: "pol", ProviderID: 137, Blockchain: "pol", Name: "Polygon", Kind: KindEVM,
			NativeAddress: "0x0000000000000000000000000000000000001010"},
		{Key: "base", ProviderID: 8453, Blockchain: "base", Name: "Base", Kind: KindEVM},
		{Key: "arb", ProviderID: 42161, Blockchain: "arb", Name: "Arbitrum", Kind: KindEVM},
		{Key: "avax", ProviderID: 43114, Blockchain: "avax", Name: "Avalanche", Kind: KindEVM},
		{Key: "sol", ProviderID: 1151111081099710, Blockchain: "sol", Name: "Solana", Kind: KindSolana,
			NativeAddress: solana.SystemProgramID.String()},
	}
}

// Mapper holds the configured chain-id table
type Mapper struct {
	byKey      map[string]Chain
	byProvider map[string]string
}

// NewMapper builds a mapper from a chain table
func NewMapper(chains []Chain) *Mapper {
	m := &Mapper{
		byKey:      make(map[string]Chain, len(chains)),
		byProvider: make(map[string]string, len(chains)*2),
	}
	for _, c := range chains {
		key := strings.ToLower(c.Key)
		c.Key = key
		m.byKey[key] = c
		m.byProvider[strconv.FormatInt(c.ProviderID, 10)] = key
		if c.Blockchain != "" {
			m.byProvider[strings.ToLower(c.Blockchain)] = key
		}
	}
	return m
}

// Chain returns the table entry for an internal key
func (m *Mapper) Chain(key string) (Chain, error) {
	c, ok := m.byKey[strings.ToLower(key)]
	if !ok {
		return Chain{}, fmt.Errorf("%w: %s", ErrUnsupportedChain, key)
	}
	return c, nil
}

// Chains returns the table sorted by key
func (m *Mapper) Chains() []Chain {
	out := make([]Chain, 0, len(m.byKey))
	for _, c := range m.byKey {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Resolve maps any chain spelling (internal key, provider numeric id or 1Click
// blockchain name) to the internal key. It satisfies types.ChainResolver.
func (m *Mapper) Resolve(raw string) (string, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if _, ok := m.byKey[raw]; ok {
		return raw, true
	}
	key, ok := m.byProvider[raw]
	return key, ok
}

// IsNative reports whether the token refers to its chain's gas asset
func (m *Mapper) IsNative(t types.Token) bool {
	if IsNative(t.Address) {
		return true
	}
	c, ok := m.byKey[strings.ToLower(t.ChainID)]
	return ok && c.NativeAddress != "" && strings.EqualFold(c.NativeAddress, strings.TrimSpace(t.Address))
}

// IsNative reports whether addr is one of the chain-independent native sentinels
func IsNative(addr string) bool {
	addr = strings.ToLower(strings.TrimSpace(addr))
	switch addr {
	case "", "native", "0x0", strings.ToLower(NativeAddress), allFsAddress:
		return true
	}
	return false
}

// ToProviderToken maps a token into the provider schema. Unknown chains fail here,
// at quoting time, instead of surfacing later during execution.
func (m *Mapper) ToProviderToken(t types.Token) (ProviderToken, error) {
	c, err := m.Chain(t.ChainID)
	if err != nil {
		return ProviderToken{}, err
	}

	addr := strings.TrimSpace(t.Address)
	if m.IsNative(t) {
		addr = NativeAddress
	} else if c.Kind == KindEVM {
		if !common.IsHexAddress(addr) {
			return ProviderToken{}, fmt.Errorf("token %s: invalid contract address %q", t.Symbol, t.Address)
		}
		addr = common.HexToAddress(addr).Hex()
	}

	return ProviderToken{
		ChainID:    c.ProviderID,
		Blockchain: c.Blockchain,
		Address:    addr,
		Symbol:     t.Symbol,
		Decimals:   t.Decimals,
	}, nil
}
