// Package stats aggregates closed trades into strategy-quality metrics. It
// is read-only: it never touches the ledger, only the trade copies handed in.
package stats

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/papertrader/sim"
)

// ErrInsufficientData marks a summary request whose window holds no trades.
var ErrInsufficientData = errors.New("insufficient data")

// Summary aggregates the trades in one window. AvgLoss is the mean losing
// PnL and so is negative (or zero when there are no losses). AvgRMultiple
// averages PnL as a multiple of each trade's open risk, over the trades that
// carried a stop; RSampleSize says how many that was.
type Summary struct {
	TotalTrades  int
	Wins         int
	Losses       int
	WinRate      float64
	TotalPnL     decimal.Decimal
	AvgWin       decimal.Decimal
	AvgLoss      decimal.Decimal
	Expectancy   decimal.Decimal
	ProfitFactor decimal.Decimal
	AvgRMultiple decimal.Decimal
	RSampleSize  int
}

// Summarize computes a Summary over the most recent limit entries of trades,
// which must be in close order. A limit of zero or less means the whole
// slice. There is no hard minimum beyond one trade: whatever the window
// holds is summarized.
func Summarize(trades []sim.Position, limit int) (Summary, error) {
	if limit > 0 && len(trades) > limit {
		trades = trades[len(trades)-limit:]
	}
	if len(trades) == 0 {
		return Summary{}, fmt.Errorf("no closed trades in window: %w", ErrInsufficientData)
	}

	var s Summary
	s.TotalTrades = len(trades)

	grossProfit := decimal.Zero
	grossLoss := decimal.Zero
	rTotal := decimal.Zero

	for i := range trades {
		t := &trades[i]
		pnl := t.RealizedPnL
		s.TotalPnL = s.TotalPnL.Add(pnl)

		switch {
		case pnl.IsPositive():
			s.Wins++
			grossProfit = grossProfit.Add(pnl)
		case pnl.IsNegative():
			s.Losses++
			grossLoss = grossLoss.Add(pnl)
		}

		if openRisk, ok := t.OpenRisk(); ok && openRisk.IsPositive() {
			rTotal = rTotal.Add(pnl.Div(openRisk))
			s.RSampleSize++
		}
	}

	s.WinRate = float64(s.Wins) / float64(s.TotalTrades)
	s.Expectancy = s.TotalPnL.Div(decimal.NewFromInt(int64(s.TotalTrades)))

	if s.Wins > 0 {
		s.AvgWin = grossProfit.Div(decimal.NewFromInt(int64(s.Wins)))
	}
	if s.Losses > 0 {
		s.AvgLoss = grossLoss.Div(decimal.NewFromInt(int64(s.Losses)))
		s.ProfitFactor = grossProfit.Div(grossLoss.Abs())
	}
	if s.RSampleSize > 0 {
		s.AvgRMultiple = rTotal.Div(decimal.NewFromInt(int64(s.RSampleSize)))
	}

	return s, nil
}
