package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrader/config"
	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/risk"
	"github.com/rustyeddy/papertrader/sim"
	"github.com/rustyeddy/papertrader/stats"
	"github.com/rustyeddy/papertrader/tools"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation from a config file",
	Long: `Run a paper-trading simulation using settings from a configuration file.

The config file specifies the account balance, risk limits, one strategy
order, the journal backend, and the price steps to replay.

Example:
  papertrader run -f examples/configs/basic.yaml`,
	RunE: runRun,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.MarkFlagRequired("config")
}

// closePrinter reports auto-closed positions as the replay hits their levels.
type closePrinter struct{}

func (closePrinter) OnPositionClosed(id string, reason sim.CloseReason) {
	fmt.Printf("  position %s closed (%s)\n", id, reason)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Printf("Running simulation with config: %s\n", runConfigPath)
	fmt.Printf("  Account: %s (Balance: %.2f)\n", cfg.Account.ID, cfg.Account.Balance)
	fmt.Printf("  Strategy: %s %s (Risk: %.1f%%, Stop: %.2f, Target: %.2f)\n",
		cfg.Strategy.Side, cfg.Strategy.Pair, cfg.Strategy.RiskPercent,
		cfg.Strategy.StopLoss, cfg.Strategy.TakeProfit)
	fmt.Println()

	var j journal.Journal
	switch cfg.Journal.Type {
	case "csv":
		j, err = journal.NewCSV(cfg.Journal.TradesFile, cfg.Journal.EquityFile)
	case "sqlite":
		j, err = journal.NewSQLite(cfg.Journal.DBPath)
	default:
		j = journal.Nop{}
	}
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer j.Close()

	ledger := sim.NewLedger(decimal.NewFromFloat(cfg.Account.Balance))
	engine := sim.NewEngine(ledger, j, risk.Policy{
		MaxNotionalPct: decimal.NewFromFloat(cfg.Risk.MaxNotionalPct),
		DefaultRiskPct: decimal.NewFromFloat(cfg.Risk.DefaultRiskPct),
	})
	engine.SetPositionClosedListener(closePrinter{})

	kit := tools.New(engine, logger())

	side := sim.Side(cfg.Strategy.Side)
	entry := decimal.NewFromFloat(cfg.Strategy.EntryPrice)
	stop := decimal.NewFromFloat(cfg.Strategy.StopLoss)

	suggestion, err := kit.SuggestNotionalFromRisk(
		decimal.NewFromFloat(cfg.Strategy.RiskPercent),
		cfg.Strategy.Pair, side, entry, stop, nil)
	if err != nil {
		return fmt.Errorf("size order: %w", err)
	}

	fmt.Printf("Opening position:\n")
	fmt.Printf("  Entry: %s\n", entry)
	fmt.Printf("  Stop: %s\n", stop)
	if cfg.Strategy.TakeProfit > 0 {
		fmt.Printf("  Target: %.2f\n", cfg.Strategy.TakeProfit)
	}
	fmt.Printf("  Notional: %s (capped: %v)\n", suggestion.Notional, suggestion.Capped)
	fmt.Printf("  Risk Amount: %s\n\n", suggestion.RiskAmount)

	req := sim.OrderRequest{
		Pair:       cfg.Strategy.Pair,
		Side:       side,
		Notional:   &suggestion.Notional,
		EntryPrice: entry,
		StopLoss:   &stop,
	}
	if cfg.Strategy.TakeProfit > 0 {
		tp := decimal.NewFromFloat(cfg.Strategy.TakeProfit)
		req.TakeProfit = &tp
	}

	pos, err := kit.SimPlaceOrder(req)
	if err != nil {
		return fmt.Errorf("place order: %w", err)
	}
	fmt.Printf("Opened position %s\n\n", pos.ID)

	marks := sim.Marks{cfg.Strategy.Pair: entry}
	for i, step := range cfg.Simulation.PriceSteps {
		if step.DelayMS > 0 {
			time.Sleep(time.Duration(step.DelayMS) * time.Millisecond)
		}
		price := decimal.NewFromFloat(step.Price)
		fmt.Printf("Price update %s -> %s\n", step.Pair, price)
		if err := engine.OnPriceUpdate(step.Pair, price); err != nil {
			return fmt.Errorf("price update %d: %w", i, err)
		}
		marks[step.Pair] = price
	}

	snap := kit.SimPortfolioState(marks)
	fmt.Printf("\nFinal Results:\n")
	fmt.Printf("  Balance: %s\n", snap.Balance)
	fmt.Printf("  Equity: %s\n", snap.Equity)
	fmt.Printf("  Realized PnL: %s\n", snap.RealizedPnL)
	fmt.Printf("  Open positions: %d, closed trades: %d\n", snap.OpenCount, snap.TradeCount)

	summary, err := kit.EvalStrategyQuality(0)
	switch {
	case errors.Is(err, stats.ErrInsufficientData):
		fmt.Println("\nNo closed trades to summarize.")
	case err != nil:
		return fmt.Errorf("summarize trades: %w", err)
	default:
		fmt.Printf("\nTrade Statistics:\n")
		fmt.Printf("  Trades: %d (wins: %d, losses: %d, win rate: %.1f%%)\n",
			summary.TotalTrades, summary.Wins, summary.Losses, summary.WinRate*100)
		fmt.Printf("  Total PnL: %s, expectancy: %s\n", summary.TotalPnL, summary.Expectancy)
		if summary.RSampleSize > 0 {
			fmt.Printf("  Avg R-multiple: %s (over %d trades)\n", summary.AvgRMultiple, summary.RSampleSize)
		}
	}

	if cfg.Journal.Type == "csv" {
		fmt.Printf("\nResults saved to:\n  - %s\n  - %s\n", cfg.Journal.TradesFile, cfg.Journal.EquityFile)
	} else if cfg.Journal.Type == "sqlite" {
		fmt.Printf("\nResults saved to: %s\n", cfg.Journal.DBPath)
	}

	return nil
}
