package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cross-swap/config"
	"cross-swap/pkg/types"
)

var (
	historyWallet string
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history [record-id]",
	Short: "Show recorded swaps",
	Long: `Show the transaction history of a wallet, newest first, or a single record.

Records are kept in ~/.cross-swap-history.json unless another history
backend is configured.

Examples:
  cross-swap history
  cross-swap history --wallet 0xabc... --limit 5
  cross-swap history 6f1c...`,
	Args: cobra.MaximumNArgs(1),
	Run:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyWallet, "wallet", "", "Wallet address (default: wallet_address from config)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of records")
}

func runHistory(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	ctx := context.Background()
	a, err := newApp(ctx, config.Get())
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.Close()

	var records []*types.TransactionRecord
	if len(args) == 1 {
		rec, err := a.history.Get(ctx, args[0])
		if err != nil {
			printError(err)
			return
		}
		records = append(records, rec)
	} else {
		wallet := historyWallet
		if wallet == "" {
			wallet = a.cfg.WalletAddress
		}
		if wallet == "" {
			printError(fmt.Errorf("--wallet is required when wallet_address is not configured"))
			return
		}
		records, err = a.history.ListByWallet(ctx, wallet, historyLimit)
		if err != nil {
			printError(err)
			return
		}
	}

	if jsonOutput {
		printJSON(records)
		return
	}
	displayRecords(records)
}

func displayRecords(records []*types.TransactionRecord) {
	if len(records) == 0 {
		fmt.Println("\nNo swaps recorded.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                            SWAP HISTORY")
	fmt.Println(strings.Repeat("=", 90))

	for _, rec := range records {
		fmt.Printf("\n  %s  %s  %s\n",
			rec.Timestamp.Format("2006-01-02 15:04:05"),
			recordStatus(rec.Status),
			color.HiBlackString(rec.ID))
		fmt.Printf("    %s %s (%s) -> %s %s (%s)\n",
			rec.FromAmount, rec.FromToken, rec.FromChainID,
			rec.ToAmount, rec.ToToken, rec.ToChainID)
		if rec.TxHash != "" {
			fmt.Printf("    Tx: %s\n", color.CyanString(rec.TxHash))
		}
		if rec.ValueUSD != "" {
			fmt.Printf("    Value: $%s\n", rec.ValueUSD)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 90) + "\n")
}

func recordStatus(s types.RecordStatus) string {
	switch s {
	case types.RecordCompleted:
		return color.GreenString("%-9s", s)
	case types.RecordFailed:
		return color.RedString("%-9s", s)
	default:
		return color.YellowString("%-9s", s)
	}
}
