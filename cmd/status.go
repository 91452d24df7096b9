package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cross-swap/config"
	"cross-swap/pkg/client"
)

var (
	watchStatus   bool
	watchInterval int
)

var statusCmd = &cobra.Command{
	Use:   "status <deposit-address>",
	Short: "Check the status of a swap",
	Long: `Check the execution status of a swap by its deposit address.

Examples:
  cross-swap status 0x1234...abcd
  cross-swap status 0x1234...abcd --watch
  cross-swap status 0x1234...abcd --watch --interval 10`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Watch status updates until the swap finishes")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
}

func runStatus(cmd *cobra.Command, args []string) {
	depositAddress := args[0]
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg := config.Get()
	if err := cfg.RequireAPI(); err != nil {
		printError(err)
		os.Exit(1)
	}
	apiClient := client.NewOneClickClient(cfg.JWTToken, cfg.BaseURL)

	if watchStatus {
		watchSwapStatus(cmd.Context(), apiClient, depositAddress, jsonOutput)
	} else {
		checkSwapStatus(cmd.Context(), apiClient, depositAddress, jsonOutput)
	}
}

func checkSwapStatus(ctx context.Context, apiClient *client.OneClickClient, depositAddress string, jsonOutput bool) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Checking swap status..."
		s.Start()
	}

	status, err := apiClient.Status(ctx, depositAddress)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(status)
	} else {
		displayStatus(status, depositAddress)
	}
}

func watchSwapStatus(ctx context.Context, apiClient *client.OneClickClient, depositAddress string, jsonOutput bool) {
	if jsonOutput {
		fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
		os.Exit(1)
	}

	fmt.Printf("\nWatching swap status (Deposit Address: %s)\n", color.CyanString(depositAddress))
	fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n\n", watchInterval)

	ticker := time.NewTicker(time.Duration(watchInterval) * time.Second)
	defer ticker.Stop()

	for {
		status, err := apiClient.Status(ctx, depositAddress)
		if err != nil {
			color.Red("Error: %v", err)
		} else {
			displayStatus(status, depositAddress)
			if isFinalStatus(status.Status) {
				return
			}
		}
		<-ticker.C
	}
}

func isFinalStatus(status string) bool {
	switch status {
	case client.StatusSuccess, client.StatusFailed, client.StatusRefunded:
		return true
	}
	return false
}

func displayStatus(status *client.SwapStatus, depositAddress string) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                        SWAP STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Deposit Address: %s\n", color.CyanString(depositAddress))
	fmt.Printf("  Status:          %s\n", getColoredStatus(status.Status))
	if !status.UpdatedAt.IsZero() {
		fmt.Printf("  Last Updated:    %s\n", status.UpdatedAt.Format("2006-01-02 15:04:05"))
	}

	for _, hash := range status.OriginTxHashes {
		fmt.Printf("  Deposit Tx:      %s\n", color.HiBlackString(hash))
	}
	for _, hash := range status.DestinationTxHashes {
		fmt.Printf("  Withdrawal Tx:   %s\n", color.HiBlackString(hash))
	}
	if status.AmountOut != "" {
		fmt.Printf("  Amount Out:      %s\n", status.AmountOut)
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func getColoredStatus(status string) string {
	status = strings.ToUpper(status)

	switch status {
	case client.StatusSuccess:
		return color.GreenString(status)
	case client.StatusPendingDeposit, client.StatusKnownDepositTx, client.StatusProcessing:
		return color.YellowString(status)
	case client.StatusFailed, client.StatusRefunded:
		return color.RedString(status)
	case client.StatusIncompleteDeposit:
		return color.MagentaString(status)
	default:
		return status
	}
}
