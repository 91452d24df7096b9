package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"cross-swap/config"
)

var (
	cfgFile string
	isDebug bool
)

var rootCmd = &cobra.Command{
	Use:   "cross-swap",
	Short: "A CLI for executing cross-chain swap routes",
	Long: `cross-swap quotes a cross-chain swap through the NEAR Intents 1Click API,
checks the exchange rate before committing, signs the deposit with your configured
wallet and tracks every step until the route completes. Interrupted swaps are
persisted and can be resumed.

Examples:
  cross-swap swap 1 ETH on base to USDC on arb
  cross-swap swap 10 USDC on sol to ETH on eth --yes
  cross-swap resume
  cross-swap history
  cross-swap list-tokens --chain base
  cross-swap status <deposit-address>`,
	Version:          "0.2.0",
	PersistentPreRun: initConfig,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cross-swap.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

// initConfig loads the configuration and installs the logger every command uses
func initConfig(cmd *cobra.Command, _ []string) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	stylelog.InitDefault(&tint.Options{
		Level:      logLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
	})
	slog.Debug("Configuration loaded", "state", cfg.State.Backend, "history", cfg.History.Backend)
}

func logLevel(level string) slog.Level {
	if isDebug {
		return slog.LevelDebug
	}
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}
