package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cross-swap/config"
	"cross-swap/pkg/executor"
	"cross-swap/pkg/parser"
	"cross-swap/pkg/swaperr"
	"cross-swap/pkg/types"
	"cross-swap/pkg/units"
)

var (
	fromChain     string
	toChain       string
	recipientAddr string
	refundAddr    string
	slippage      float64
	assumeYes     bool
	acceptNewRate bool
	forceNew      bool
)

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <token> [on <chain>] to <token> [on <chain>]",
	Short: "Quote and execute a cross-chain swap",
	Long: `Quote a swap through the NEAR Intents 1Click API and execute it with the
configured wallet.

Before the deposit is signed the quote is compared against a fresh one. If the
rate moved beyond rate_threshold_percent you are asked to accept or reject it.
Press Ctrl+C while the swap runs to cancel; a swap that was already deposited
keeps being processed by the provider and can be followed with "status".

Examples:
  cross-swap swap 1 ETH on base to USDC on arb
  cross-swap swap 0.5 ETH to USDC --from-chain eth --to-chain sol --recipient <sol-addr>
  cross-swap swap 100 USDC on sol to ETH on base --yes --accept-rate-change`,
	Args: cobra.MinimumNArgs(1),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().StringVar(&fromChain, "from-chain", "", "Source chain (overrides 'on <chain>')")
	swapCmd.Flags().StringVar(&toChain, "to-chain", "", "Destination chain (overrides 'on <chain>')")
	swapCmd.Flags().StringVar(&recipientAddr, "recipient", "", "Recipient address (default: your wallet on the destination chain)")
	swapCmd.Flags().StringVar(&refundAddr, "refund-to", "", "Refund address on the source chain (default: your wallet)")
	swapCmd.Flags().Float64Var(&slippage, "slippage", 0, "Slippage tolerance as a fraction, e.g. 0.005 (default from config)")
	swapCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip confirmation prompts")
	swapCmd.Flags().BoolVar(&acceptNewRate, "accept-rate-change", false, "With --yes, accept a changed exchange rate instead of cancelling")
	swapCmd.Flags().BoolVar(&forceNew, "force", false, "Start even if another swap is still executing")
}

func runSwap(cmd *cobra.Command, args []string) {
	if err := executeSwap(cmd, args); err != nil {
		os.Exit(1)
	}
}

func executeSwap(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if jsonOutput && !assumeYes {
		err := fmt.Errorf("--json needs --yes because prompts are disabled")
		printError(err)
		return err
	}

	swapReq, err := parser.ParseSwapCommand(strings.Join(args, " "))
	if err != nil {
		printError(err)
		return err
	}
	if fromChain != "" {
		swapReq.SourceChain = parser.NormalizeChain(fromChain)
	}
	if toChain != "" {
		swapReq.DestChain = parser.NormalizeChain(toChain)
	}
	swapReq.RecipientAddr = recipientAddr
	swapReq.RefundAddr = refundAddr
	if err := parser.ValidateSwapRequest(swapReq); err != nil {
		printError(err)
		return err
	}

	ctx := context.Background()
	cfg := config.Get()
	a, err := newApp(ctx, cfg)
	if err != nil {
		printError(err)
		return err
	}
	defer a.Close()

	if !forceNew {
		if err := checkNoActiveSwap(ctx, a); err != nil {
			printError(err)
			return err
		}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Resolving tokens..."
		s.Start()
	}
	req, err := buildQuoteRequest(ctx, a, swapReq)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		return err
	}
	if verbose {
		fmt.Printf("\nDebug: %s -> %s, %s base units\n", req.FromToken, req.ToToken, req.FromAmount)
	}

	exec, err := a.newExecutor(terminalListener(jsonOutput, verbose), a.walletAddress(ctx, swapReq.SourceChain))
	if err != nil {
		printError(err)
		return err
	}

	if !jsonOutput {
		s.Suffix = " Fetching quote..."
		s.Start()
	}
	route, err := exec.RequestQuote(ctx, *req)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		reportFailure(err, jsonOutput)
		return err
	}

	if !jsonOutput {
		displayRoute(route)
	}
	if err := exec.Present(); err != nil {
		printError(err)
		return err
	}

	if !assumeYes && !askYesNo("Proceed with swap?") {
		_ = exec.Cancel()
		fmt.Println("\nSwap cancelled.")
		return nil
	}

	stop := cancelOnInterrupt(exec, jsonOutput)
	defer stop()

	if !jsonOutput {
		fmt.Printf("\nExecuting swap (session %s)\n", color.CyanString(exec.SessionID()))
	}
	err = drive(ctx, exec, exec.Confirm(ctx), jsonOutput)
	return finish(exec, err, jsonOutput)
}

// checkNoActiveSwap rejects a new swap while a saved session is mid-execution
func checkNoActiveSwap(ctx context.Context, a *app) error {
	snaps, err := a.store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list saved swaps: %w", err)
	}
	for _, snap := range snaps {
		if snap.Status.IsExecuting() {
			return fmt.Errorf("swap %s is still %s; run 'cross-swap resume %s' or discard it first (or pass --force)",
				snap.SessionID, snap.Status, snap.SessionID)
		}
	}
	return nil
}

// buildQuoteRequest resolves tokens, base-unit amount and addresses
func buildQuoteRequest(ctx context.Context, a *app, swapReq *types.SwapRequest) (*types.QuoteRequest, error) {
	from, err := a.provider.ResolveToken(ctx, swapReq.SourceToken, swapReq.SourceChain)
	if err != nil {
		return nil, err
	}
	to, err := a.provider.ResolveToken(ctx, swapReq.DestToken, swapReq.DestChain)
	if err != nil {
		return nil, err
	}

	amount, err := units.ToBase(swapReq.Amount, from.Decimals)
	if err != nil {
		return nil, err
	}
	if units.IsZero(amount) {
		return nil, fmt.Errorf("amount %s %s is below the token's precision", swapReq.Amount, from.Symbol)
	}

	fromAddr := swapReq.RefundAddr
	if fromAddr == "" {
		if fromAddr, err = a.wallet.Address(ctx, swapReq.SourceChain); err != nil {
			return nil, fmt.Errorf("no wallet for %s: %w", swapReq.SourceChain, err)
		}
	}
	toAddr := swapReq.RecipientAddr
	if toAddr == "" {
		if toAddr, err = a.wallet.Address(ctx, swapReq.DestChain); err != nil {
			return nil, fmt.Errorf("--recipient is required when no wallet is configured for %s", swapReq.DestChain)
		}
	}

	slip := slippage
	if slip <= 0 {
		slip = a.cfg.Slippage
	}

	return &types.QuoteRequest{
		FromToken:   from,
		ToToken:     to,
		FromAmount:  amount,
		FromAddress: fromAddr,
		ToAddress:   toAddr,
		Slippage:    slip,
	}, nil
}

// drive answers the executor's suspensions until it returns a final result:
// rate confirmations are prompted for, parked failures offered a retry
func drive(ctx context.Context, exec *executor.Executor, err error, jsonOutput bool) error {
	for err != nil {
		switch {
		case errors.Is(err, executor.ErrRateConfirmationRequired):
			_, change := exec.RateState()
			if change != nil && !jsonOutput {
				displayRateChange(change, exec.Route().ToToken)
			}
			accept := acceptNewRate
			if !assumeYes {
				accept = askYesNo("Accept the new rate?")
			}
			err = exec.ResolveRateChange(ctx, accept)
			if !accept && err == nil {
				return executor.ErrCancelled
			}
		case exec.Parked():
			se := exec.LastError()
			if !jsonOutput && se != nil {
				displaySwapError(se)
			}
			if assumeYes || !askYesNo("Retry?") {
				return err
			}
			err = exec.Retry(ctx)
		default:
			return err
		}
	}
	return nil
}

// cancelOnInterrupt cancels the session on Ctrl+C until stop is called
func cancelOnInterrupt(exec *executor.Executor, quiet bool) (stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case <-sigCh:
			if !quiet {
				color.Yellow("\nCancelling swap...")
			}
			_ = exec.Cancel()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

// finish prints the outcome of a run; cancellation is not an error
func finish(exec *executor.Executor, err error, jsonOutput bool) error {
	status := exec.Status()
	if jsonOutput {
		out := map[string]any{
			"session":  exec.SessionID(),
			"status":   status,
			"progress": exec.Progress(),
			"route":    exec.Route(),
		}
		if err != nil && status != types.StatusCancelled {
			out["error"] = errorJSON(swaperr.Classify(err))
		}
		printJSON(out)
		if status == types.StatusCancelled {
			return nil
		}
		return err
	}

	switch {
	case err == nil && status == types.StatusCompleted:
		route := exec.Route()
		color.Green("\n✓ Swap completed!")
		fmt.Printf("  Received: ~%s %s on %s\n",
			units.MustHuman(route.ToAmount, route.ToToken.Decimals), route.ToToken.Symbol, route.ToChainID)
		displayProgress(exec.Progress())
		return nil
	case status == types.StatusCancelled:
		color.Yellow("\nSwap cancelled.")
		if p := exec.Progress(); len(p.Transactions) > 0 {
			fmt.Println("A deposit was already sent. Follow it with:")
			color.Cyan("  cross-swap status %s\n", lastDepositAddress(exec.Route()))
		}
		return nil
	case err == nil:
		displayProgress(exec.Progress())
		return nil
	}

	reportFailure(err, false)
	if !status.IsTerminal() {
		fmt.Println("The swap was saved. Continue it later with:")
		color.Cyan("  cross-swap resume %s\n", exec.SessionID())
	}
	return err
}

func reportFailure(err error, jsonOutput bool) {
	se := swaperr.Classify(err)
	if jsonOutput {
		printJSON(map[string]any{"error": errorJSON(se)})
		return
	}
	displaySwapError(se)
	fmt.Println()
}

func lastDepositAddress(route *types.Route) string {
	if route == nil {
		return ""
	}
	for i := len(route.Steps) - 1; i >= 0; i-- {
		if route.Steps[i].DepositAddress != "" {
			return route.Steps[i].DepositAddress
		}
	}
	return ""
}

func errorJSON(se *swaperr.SwapError) map[string]any {
	out := map[string]any{
		"kind":        se.Kind,
		"message":     se.Message,
		"recoverable": se.Recoverable,
		"suggestions": swaperr.Suggestions(se.Kind),
	}
	if se.Cause != nil {
		out["cause"] = se.Cause.Error()
	}
	if se.HasRetryAfter() {
		out["retryAfter"] = se.RetryAfter.String()
	}
	return out
}
