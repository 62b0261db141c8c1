package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "papertrader",
	Short: "A paper-trading position and risk engine for crypto pairs",
	Long: `Papertrader simulates order execution, position lifecycle, and portfolio
accounting against externally supplied price data, without risking capital.

It provides tools for:
  - Opening simulated long/short positions with stop-loss and take-profit
  - Risk-based position sizing with a hard notional cap
  - Realized and unrealized PnL accounting in a single quote currency
  - Journaling closed trades and equity to CSV or SQLite
  - Aggregating trade statistics (win rate, expectancy, R-multiples)`,
}

var verbose bool

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// logger builds the process logger honoring the --verbose flag.
func logger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
