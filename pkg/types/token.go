package types

import (
	"fmt"
	"strings"
)

// Token describes an asset on a specific chain. ChainID is the internal chain key
// (e.g. "eth", "base", "sol"), not the provider's numeric identifier.
type Token struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name,omitempty"`
	Decimals int32  `json:"decimals"`
	ChainID  string `json:"chainId"`
	Address  string `json:"address"`
	LogoURI  string `json:"logoURI,omitempty"`
	PriceUSD string `json:"priceUSD,omitempty"`
}

// Validate checks the fields every route leg depends on
func (t Token) Validate() error {
	if strings.TrimSpace(t.Symbol) == "" {
		return fmt.Errorf("token symbol is required")
	}
	if t.ChainID == "" {
		return fmt.Errorf("token %s: chain is required", t.Symbol)
	}
	if t.Decimals < 0 || t.Decimals > 36 {
		return fmt.Errorf("token %s: invalid decimals %d", t.Symbol, t.Decimals)
	}
	return nil
}

// String returns SYMBOL@chain
func (t Token) String() string {
	return fmt.Sprintf("%s@%s", t.Symbol, t.ChainID)
}
