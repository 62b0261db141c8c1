package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrader/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query trade journal data",
	Long: `Query and display trade journal records from a SQLite database.

Subcommands:
  trade  - Get details of a specific trade by ID
  today  - List trades closed today
  day    - List trades closed on a specific day

Examples:
  papertrader journal trade <trade-id>
  papertrader journal today
  papertrader journal day 2026-08-31`,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <trade-id>",
	Short: "Get details of a specific trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List trades closed today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List trades closed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTradeCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalDayCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./papertrader.sqlite", "path to SQLite journal DB")
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	rec, err := j.GetTrade(args[0])
	if err != nil {
		return err
	}

	printTrade(rec)
	return nil
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	start := time.Now().UTC().Truncate(24 * time.Hour)
	return listTradesForDay(start)
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	start, err := time.Parse("2006-01-02", args[0])
	if err != nil {
		return fmt.Errorf("invalid day %q, want YYYY-MM-DD: %w", args[0], err)
	}
	return listTradesForDay(start)
}

func listTradesForDay(start time.Time) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	recs, err := j.ListTradesClosedBetween(start, start.Add(24*time.Hour))
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Printf("No trades closed on %s\n", start.Format("2006-01-02"))
		return nil
	}

	for _, rec := range recs {
		printTrade(rec)
		fmt.Println()
	}
	fmt.Printf("%d trade(s)\n", len(recs))
	return nil
}

func printTrade(rec journal.TradeRecord) {
	fmt.Printf("Trade %s\n", rec.TradeID)
	fmt.Printf("  Pair: %s (%s)\n", rec.Pair, rec.Side)
	fmt.Printf("  Notional: %s\n", rec.Notional)
	fmt.Printf("  Entry: %s, Exit: %s\n", rec.EntryPrice, rec.ExitPrice)
	fmt.Printf("  Opened: %s\n", rec.OpenTime.Format(time.RFC3339))
	fmt.Printf("  Closed: %s (%s)\n", rec.CloseTime.Format(time.RFC3339), rec.Reason)
	fmt.Printf("  Realized PnL: %s\n", rec.RealizedPnL)
}
