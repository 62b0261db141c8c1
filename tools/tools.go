// Package tools is the in-process call surface consumed by the agent layer.
// Each tool is a plain typed method on Toolkit; any string-based dispatch in
// front of it belongs to the caller, not here. Failures come back as typed
// errors, never logged-and-swallowed.
package tools

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/papertrader/risk"
	"github.com/rustyeddy/papertrader/sim"
	"github.com/rustyeddy/papertrader/stats"
)

type Toolkit struct {
	engine *sim.Engine
	log    *slog.Logger
}

// New wraps an engine. A nil logger means no logging.
func New(engine *sim.Engine, logger *slog.Logger) *Toolkit {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Toolkit{engine: engine, log: logger}
}

// SizeSuggestion is the result of SuggestNotionalFromRisk.
type SizeSuggestion struct {
	Pair       string
	Notional   decimal.Decimal
	Capped     bool
	Equity     decimal.Decimal
	RiskAmount decimal.Decimal
}

// ExposureReport summarizes what the portfolio currently has at stake.
type ExposureReport struct {
	PerPairNotional  map[string]decimal.Decimal
	TotalNotional    decimal.Decimal
	OpenCount        int
	Equity           decimal.Decimal
	NotionalToEquity decimal.Decimal
}

// SimPlaceOrder places a simulated order.
func (t *Toolkit) SimPlaceOrder(req sim.OrderRequest) (sim.Position, error) {
	pos, err := t.engine.PlaceOrder(req)
	if err != nil {
		t.log.Debug("sim_place_order failed", "pair", req.Pair, "side", req.Side, "err", err)
		return sim.Position{}, err
	}
	t.log.Debug("sim_place_order",
		"id", pos.ID, "pair", pos.Pair, "side", pos.Side,
		"notional", pos.Notional, "entry", pos.EntryPrice)
	return pos, nil
}

// SimClosePosition manually closes a position at price.
func (t *Toolkit) SimClosePosition(posID string, price decimal.Decimal) (decimal.Decimal, error) {
	pnl, err := t.engine.ClosePosition(posID, price)
	if err != nil {
		t.log.Debug("sim_close_position failed", "id", posID, "err", err)
		return decimal.Decimal{}, err
	}
	t.log.Debug("sim_close_position", "id", posID, "price", price, "pnl", pnl)
	return pnl, nil
}

// SimPortfolioState returns the portfolio snapshot valued at marks.
func (t *Toolkit) SimPortfolioState(marks sim.Marks) sim.PortfolioSnapshot {
	return t.engine.PortfolioState(marks)
}

// SimTradeHistory returns the most recent limit closed trades.
func (t *Toolkit) SimTradeHistory(limit int) []sim.Position {
	return t.engine.TradeHistory(limit)
}

// SimReset clears all simulation state back to initialBalance.
func (t *Toolkit) SimReset(initialBalance decimal.Decimal) error {
	if err := t.engine.Reset(initialBalance); err != nil {
		return err
	}
	t.log.Debug("sim_reset", "initial_balance", initialBalance)
	return nil
}

// EvalStrategyQuality summarizes the most recent limit closed trades.
func (t *Toolkit) EvalStrategyQuality(limit int) (stats.Summary, error) {
	return stats.Summarize(t.engine.TradeHistory(limit), limit)
}

// SuggestNotionalFromRisk sizes a position on pair so that a fill at stop
// loses about riskPercent of current equity. Marks value the open positions
// for the equity figure. The suggestion is clamped to the notional cap, with
// Capped set when that happened.
func (t *Toolkit) SuggestNotionalFromRisk(riskPercent decimal.Decimal, pair string, side sim.Side, entry, stop decimal.Decimal, marks sim.Marks) (SizeSuggestion, error) {
	if pair == "" || !side.Valid() {
		return SizeSuggestion{}, fmt.Errorf("pair and side are required: %w", sim.ErrInvalidParameters)
	}
	if !riskPercent.IsPositive() {
		return SizeSuggestion{}, fmt.Errorf("risk percent must be positive, got %s: %w", riskPercent, sim.ErrInvalidParameters)
	}

	equity := t.engine.Ledger().Equity(marks)
	s, err := risk.SuggestNotional(t.engine.Policy(), riskPercent, equity, entry, stop, side == sim.Long)
	if err != nil {
		return SizeSuggestion{}, err
	}

	t.log.Debug("suggest_notional_from_risk",
		"pair", pair, "risk_percent", riskPercent,
		"notional", s.Notional, "capped", s.Capped)

	return SizeSuggestion{
		Pair:       pair,
		Notional:   s.Notional,
		Capped:     s.Capped,
		Equity:     equity,
		RiskAmount: s.RiskAmount,
	}, nil
}

// ExplainCurrentExposure reports per-pair and aggregate notional at stake.
func (t *Toolkit) ExplainCurrentExposure(marks sim.Marks) ExposureReport {
	snap := t.engine.PortfolioState(marks)

	report := ExposureReport{
		PerPairNotional: make(map[string]decimal.Decimal),
		OpenCount:       snap.OpenCount,
		Equity:          snap.Equity,
	}
	for _, p := range snap.OpenPositions {
		report.PerPairNotional[p.Pair] = report.PerPairNotional[p.Pair].Add(p.Notional)
		report.TotalNotional = report.TotalNotional.Add(p.Notional)
	}
	if snap.Equity.IsPositive() {
		report.NotionalToEquity = report.TotalNotional.Div(snap.Equity)
	}
	return report
}
