package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"cross-swap/pkg/executor"
	"cross-swap/pkg/swaperr"
	"cross-swap/pkg/types"
	"cross-swap/pkg/units"
)

// terminalListener prints executor notifications as they arrive. JSON output
// stays silent until the final result.
func terminalListener(jsonOutput, verbose bool) executor.Listener {
	if jsonOutput {
		return executor.ListenerFuncs{}
	}
	return executor.ListenerFuncs{
		StatusChange: func(from, to types.Status, p executor.Progress) {
			line := fmt.Sprintf("  %s %s", color.HiBlackString("->"), coloredStatus(to))
			if to.IsExecuting() && p.TotalSteps > 0 {
				line += fmt.Sprintf("  step %d/%d", min(p.CurrentStep+1, p.TotalSteps), p.TotalSteps)
				if p.CurrentStepName != "" {
					line += "  " + color.HiBlackString(p.CurrentStepName)
				}
			}
			if verbose && p.ETA > 0 {
				line += fmt.Sprintf("  (~%s left)", p.ETA.Round(time.Second))
			}
			fmt.Println(line)
		},
		TransactionHash: func(step int, hash string) {
			fmt.Printf("  Tx submitted (step %d): %s\n", step+1, color.CyanString(hash))
		},
		Error: func(se *swaperr.SwapError) {
			if verbose {
				color.Red("  %s: %v", se.Kind, se.Cause)
			}
		},
	}
}

func coloredStatus(s types.Status) string {
	switch s {
	case types.StatusCompleted:
		return color.GreenString(string(s))
	case types.StatusFailed, types.StatusCancelled:
		return color.RedString(string(s))
	case types.StatusReviewing, types.StatusQuoteReady:
		return color.CyanString(string(s))
	default:
		return color.YellowString(string(s))
	}
}

func displayRoute(route *types.Route) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     SWAP QUOTE")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  From:              %s %s on %s\n",
		units.MustHuman(route.FromAmount, route.FromToken.Decimals),
		color.YellowString(route.FromToken.Symbol), route.FromChainID)
	fmt.Printf("  To:                ~%s %s on %s\n",
		units.MustHuman(route.ToAmount, route.ToToken.Decimals),
		color.YellowString(route.ToToken.Symbol), route.ToChainID)
	if route.ToAmountMin != "" {
		fmt.Printf("  Minimum Received:  %s %s\n",
			units.MustHuman(route.ToAmountMin, route.ToToken.Decimals), route.ToToken.Symbol)
	}
	if route.ToAddress != "" {
		fmt.Printf("  Recipient:         %s\n", route.ToAddress)
	}

	var eta time.Duration
	for i := range route.Steps {
		step := &route.Steps[i]
		eta += step.Estimate.Duration()
		fmt.Printf("\n  Step %d:            %s\n", i+1, step.Name())
		if step.DepositAddress != "" {
			fmt.Printf("    Deposit Address: %s\n", color.CyanString(step.DepositAddress))
		}
	}
	if eta > 0 {
		fmt.Printf("\n  Estimated Time:    %s\n", eta.Round(time.Second))
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func displayRateChange(change *types.RateChange, token types.Token) {
	fmt.Println()
	color.Yellow("The exchange rate changed since the quote was generated.")
	fmt.Printf("  Quoted:   %s %s\n", units.MustHuman(change.OldAmount, token.Decimals), token.Symbol)
	fmt.Printf("  Now:      %s %s\n", units.MustHuman(change.NewAmount, token.Decimals), token.Symbol)

	pct := fmt.Sprintf("%+.2f%%", change.PercentChange)
	if change.Favorable() {
		pct = color.GreenString(pct)
	} else {
		pct = color.RedString(pct)
	}
	fmt.Printf("  Change:   %s\n", pct)
}

func displaySwapError(se *swaperr.SwapError) {
	fmt.Println()
	color.Red("%s", se.Message)
	if se.SuggestedAction != "" {
		fmt.Printf("  Suggested: %s\n", se.SuggestedAction)
	}
	for _, s := range swaperr.Suggestions(se.Kind) {
		if s != se.SuggestedAction {
			fmt.Printf("  - %s\n", s)
		}
	}
}

func displayProgress(p executor.Progress) {
	fmt.Printf("\n  Status:  %s\n", coloredStatus(p.Status))
	fmt.Printf("  Steps:   %d/%d\n", p.CurrentStep, p.TotalSteps)
	for _, tx := range p.Transactions {
		fmt.Printf("  Step %d %-10s %s  %s\n", tx.Step+1, tx.Type, color.HiBlackString(tx.Hash), tx.Status)
	}
	fmt.Println()
}

func printJSON(v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

// askYesNo prompts on stdin; anything but y/yes is a no
func askYesNo(question string) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("\n%s (y/N): ", question)

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
