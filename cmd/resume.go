package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cross-swap/config"
	"cross-swap/pkg/types"
	"cross-swap/pkg/units"
)

var discardSession bool

var resumeCmd = &cobra.Command{
	Use:   "resume [session-id]",
	Short: "List or resume interrupted swaps",
	Long: `Without arguments, list the swaps that were interrupted before finishing.

With a session id, re-check every submitted transaction on-chain and continue
the swap from where it stopped. A step whose deposit was already sent is only
tracked, never sent again.

Examples:
  cross-swap resume
  cross-swap resume 6f1c...
  cross-swap resume 6f1c... --discard`,
	Args: cobra.MaximumNArgs(1),
	Run:  runResume,
}

func init() {
	rootCmd.AddCommand(resumeCmd)

	resumeCmd.Flags().BoolVar(&discardSession, "discard", false, "Forget the saved session instead of resuming it")
	resumeCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip confirmation prompts")
	resumeCmd.Flags().BoolVar(&acceptNewRate, "accept-rate-change", false, "With --yes, accept a changed exchange rate instead of cancelling")
}

func runResume(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	verbose, _ := cmd.Flags().GetBool("verbose")

	ctx := context.Background()
	a, err := newApp(ctx, config.Get())
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if len(args) == 0 {
		err = listSessions(ctx, a, jsonOutput)
	} else {
		err = resumeSession(ctx, a, args[0], jsonOutput, verbose)
	}
	a.Close()
	if err != nil {
		os.Exit(1)
	}
}

func listSessions(ctx context.Context, a *app, jsonOutput bool) error {
	snaps, err := a.store.List(ctx)
	if err != nil {
		printError(err)
		return err
	}

	if jsonOutput {
		printJSON(snaps)
		return nil
	}
	if len(snaps) == 0 {
		fmt.Println("\nNo interrupted swaps.")
		return nil
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                            SAVED SWAPS")
	fmt.Println(strings.Repeat("=", 90))
	for _, snap := range snaps {
		fmt.Printf("\n  %s  %s\n", color.CyanString(snap.SessionID), coloredStatus(snap.Status))
		if snap.Route != nil {
			fmt.Printf("    %s %s on %s -> %s on %s\n",
				units.MustHuman(snap.Route.FromAmount, snap.Route.FromToken.Decimals),
				snap.Route.FromToken.Symbol, snap.Route.FromChainID,
				snap.Route.ToToken.Symbol, snap.Route.ToChainID)
		}
		fmt.Printf("    Last update: %s\n", snap.LastUpdate.Format(time.RFC3339))
	}
	fmt.Println("\n" + strings.Repeat("=", 90) + "\n")
	return nil
}

func resumeSession(ctx context.Context, a *app, sessionID string, jsonOutput, verbose bool) error {
	if jsonOutput && !assumeYes && !discardSession {
		err := fmt.Errorf("--json needs --yes because prompts are disabled")
		printError(err)
		return err
	}
	if discardSession {
		if err := a.store.Delete(ctx, sessionID); err != nil {
			printError(err)
			return err
		}
		printSuccess(fmt.Sprintf("Session %s discarded.", sessionID))
		return nil
	}

	snap, err := a.reconciler().Reconcile(ctx, sessionID)
	if err != nil {
		printError(err)
		return err
	}
	if verbose {
		fmt.Printf("\nDebug: reconciled %s to %s\n", snap.SessionID, snap.Status)
	}

	exec, err := a.newExecutor(terminalListener(jsonOutput, verbose), snap.WalletAddress)
	if err != nil {
		printError(err)
		return err
	}

	stop := cancelOnInterrupt(exec, jsonOutput)
	defer stop()

	err = exec.Resume(ctx, snap)
	if err == nil && needsConfirmation(exec.Status()) {
		if !jsonOutput {
			showResumedQuote(snap.Route)
		}
		if exec.Status() == types.StatusQuoteReady {
			err = exec.Present()
		}
		if err == nil {
			if !assumeYes && !askYesNo("Proceed with swap?") {
				_ = exec.Cancel()
				return finish(exec, nil, jsonOutput)
			}
			err = exec.Confirm(ctx)
		}
	}
	err = drive(ctx, exec, err, jsonOutput)
	if exec.Status() == types.StatusIdle {
		printSuccess("Session had no quote to resume and was discarded.")
		return nil
	}
	return finish(exec, err, jsonOutput)
}

func needsConfirmation(s types.Status) bool {
	return s == types.StatusQuoteReady || s == types.StatusReviewing
}

// showResumedQuote shows a quote that was never confirmed so the user can decide again
func showResumedQuote(route *types.Route) {
	displayRoute(route)
	if age := time.Since(route.QuotedAt); !route.QuotedAt.IsZero() && age > 5*time.Minute {
		color.Yellow("This quote is %s old; the rate is checked again before executing.", age.Round(time.Minute))
	}
}
