package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cross-swap/config"
	"cross-swap/pkg/client"
	"cross-swap/pkg/parser"
)

var (
	filterChain  string
	filterSymbol string
)

var tokensCmd = &cobra.Command{
	Use:     "list-tokens",
	Aliases: []string{"tokens", "ls"},
	Short:   "List all supported tokens",
	Long: `List all tokens supported by the NEAR Intents 1Click API.

You can filter tokens by chain or symbol.

Examples:
  cross-swap list-tokens
  cross-swap list-tokens --chain solana
  cross-swap list-tokens --symbol USDC`,
	Run: runListTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)

	tokensCmd.Flags().StringVar(&filterChain, "chain", "", "Filter by chain")
	tokensCmd.Flags().StringVar(&filterSymbol, "symbol", "", "Filter by token symbol")
}

func runListTokens(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg := config.Get()
	if err := cfg.RequireAPI(); err != nil {
		printError(err)
		os.Exit(1)
	}
	mapper := buildMapper(cfg.Chains)
	provider := client.NewProvider(client.NewOneClickClient(cfg.JWTToken, cfg.BaseURL), nil, mapper, cfg.PollInterval, nil)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching supported tokens..."
		s.Start()
	}

	assets, err := provider.Assets(cmd.Context())
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	blockchain := ""
	if filterChain != "" {
		blockchain = parser.NormalizeChain(filterChain)
		if c, err := mapper.Chain(blockchain); err == nil {
			blockchain = c.Blockchain
		}
	}

	var filtered []client.Asset
	for _, a := range assets {
		if blockchain != "" && !strings.EqualFold(a.Blockchain, blockchain) {
			continue
		}
		if filterSymbol != "" && !strings.Contains(strings.ToUpper(a.Symbol), strings.ToUpper(filterSymbol)) {
			continue
		}
		filtered = append(filtered, a)
	}

	if jsonOutput {
		printJSON(filtered)
	} else {
		displayTokens(filtered)
	}
}

func displayTokens(tokens []client.Asset) {
	if len(tokens) == 0 {
		fmt.Println("\nNo tokens found matching the criteria.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                            SUPPORTED TOKENS")
	fmt.Println(strings.Repeat("=", 90))

	tokensByChain := make(map[string][]client.Asset)
	for _, token := range tokens {
		tokensByChain[token.Blockchain] = append(tokensByChain[token.Blockchain], token)
	}

	chains := make([]string, 0, len(tokensByChain))
	for chain := range tokensByChain {
		chains = append(chains, chain)
	}
	sort.Strings(chains)

	for _, chain := range chains {
		color.Cyan("\n%s", strings.ToUpper(chain))
		fmt.Println(strings.Repeat("-", 90))

		for _, token := range tokensByChain[chain] {
			address := token.ContractAddress
			if address == "" {
				address = "native"
			}
			if len(address) > 40 {
				address = address[:37] + "..."
			}

			fmt.Printf("  %-10s  %2d decimals  %s\n",
				color.YellowString(token.Symbol),
				token.Decimals,
				color.HiBlackString(address))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d tokens across %d blockchains\n\n", len(tokens), len(chains))
}
