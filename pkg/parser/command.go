package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"cross-swap/pkg/types"
)

// Pattern: <amount> <token> [ON <chain>] TO <token> [ON <chain>]
var swapPattern = regexp.MustCompile(`^(\d+\.?\d*)\s+([A-Z0-9.]+)(?:\s+ON\s+([A-Z0-9_-]+))?\s+TO\s+([A-Z0-9.]+)(?:\s+ON\s+([A-Z0-9_-]+))?$`)

// chainAliases maps common chain spellings to internal keys
var chainAliases = map[string]string{
	"ethereum":  "eth",
	"mainnet":   "eth",
	"optimism":  "op",
	"bnb":       "bsc",
	"binance":   "bsc",
	"polygon":   "pol",
	"matic":     "pol",
	"arbitrum":  "arb",
	"avalanche": "avax",
	"solana":    "sol",
}

// ParseSwapCommand parses a natural language swap command
// Examples:
//   - "swap 1 ETH to USDC"
//   - "1.5 ETH on base to USDC on arbitrum"
//   - "100 USDC on sol to ETH on eth"
func ParseSwapCommand(command string) (*types.SwapRequest, error) {
	command = strings.TrimSpace(strings.ToUpper(command))
	command = strings.Join(strings.Fields(command), " ")
	command = strings.TrimPrefix(command, "SWAP ")

	matches := swapPattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid swap command format. Expected: 'swap <amount> <token> [on <chain>] to <token> [on <chain>]' (e.g., 'swap 1 ETH on base to USDC on arb')")
	}

	return &types.SwapRequest{
		Amount:      matches[1],
		SourceToken: NormalizeTokenSymbol(matches[2]),
		SourceChain: NormalizeChain(matches[3]),
		DestToken:   NormalizeTokenSymbol(matches[4]),
		DestChain:   NormalizeChain(matches[5]),
	}, nil
}

// ValidateSwapRequest validates that a swap request has all required fields
func ValidateSwapRequest(req *types.SwapRequest) error {
	if req.Amount == "" {
		return fmt.Errorf("amount is required")
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q", req.Amount)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be greater than zero")
	}
	if req.SourceToken == "" {
		return fmt.Errorf("source token is required")
	}
	if req.DestToken == "" {
		return fmt.Errorf("destination token is required")
	}
	if req.SourceChain == "" {
		return fmt.Errorf("source chain is required (use 'on <chain>' or --from-chain)")
	}
	if req.DestChain == "" {
		return fmt.Errorf("destination chain is required (use 'on <chain>' or --to-chain)")
	}
	if req.SourceToken == req.DestToken && req.SourceChain == req.DestChain {
		return fmt.Errorf("source and destination are the same token")
	}
	return nil
}

// NormalizeTokenSymbol normalizes token symbols to standard format
func NormalizeTokenSymbol(symbol string) string {
	return strings.TrimSpace(strings.ToUpper(symbol))
}

// NormalizeChain lowercases a chain name and resolves common aliases to internal keys
func NormalizeChain(chain string) string {
	chain = strings.TrimSpace(strings.ToLower(chain))
	if key, ok := chainAliases[chain]; ok {
		return key
	}
	return chain
}
