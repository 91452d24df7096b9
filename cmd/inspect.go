package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cross-swap/config"
	"cross-swap/pkg/executor"
	"cross-swap/pkg/types"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect-route <file|->",
	Short: "Validate and summarize a provider route",
	Long: `Read a route as returned by a routing provider, normalize it the way the
executor does and print its steps and execution progress. Use - to read stdin.

Examples:
  cross-swap inspect-route route.json
  curl -s ... | cross-swap inspect-route -`,
	Args: cobra.ExactArgs(1),
	Run:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		printError(fmt.Errorf("failed to read route: %w", err))
		os.Exit(1)
	}

	mapper := buildMapper(config.Get().Chains)
	route, err := types.DecodeRoute(data, mapper.Resolve)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	progress := executor.BuildProgress(route, impliedStatus(route))
	if jsonOutput {
		printJSON(map[string]any{"route": route, "progress": progress})
		return
	}

	displayRoute(route)
	for i := range route.Steps {
		step := &route.Steps[i]
		status := "not started"
		if step.Execution != nil {
			status = string(step.Execution.Status)
		}
		fmt.Printf("  Step %d: %s\n", i+1, color.YellowString(status))
	}
	displayProgress(progress)
}

// impliedStatus is the executor status a route's executions correspond to
func impliedStatus(route *types.Route) types.Status {
	if route.FirstPendingStep() == len(route.Steps) {
		return types.StatusCompleted
	}
	for i := range route.Steps {
		if route.Steps[i].Execution != nil {
			return types.StatusExecuting
		}
	}
	return types.StatusReviewing
}
