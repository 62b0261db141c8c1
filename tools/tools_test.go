package tools

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/papertrader/risk"
	"github.com/rustyeddy/papertrader/sim"
	"github.com/rustyeddy/papertrader/stats"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	assert.NoError(t, err)
	return d
}

func decPtr(t *testing.T, s string) *decimal.Decimal {
	t.Helper()
	d := dec(t, s)
	return &d
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(t, want).Equal(got), "want %s, got %s", want, got)
}

func newToolkit(t *testing.T, balance string) *Toolkit {
	t.Helper()
	engine := sim.NewEngine(sim.NewLedger(dec(t, balance)), nil, risk.DefaultPolicy())
	return New(engine, nil)
}

func place(t *testing.T, kit *Toolkit, pair, notional string) sim.Position {
	t.Helper()
	n := dec(t, notional)
	pos, err := kit.SimPlaceOrder(sim.OrderRequest{
		Pair:       pair,
		Side:       sim.Long,
		Notional:   &n,
		EntryPrice: dec(t, "50000"),
		StopLoss:   decPtr(t, "49000"),
	})
	assert.NoError(t, err)
	return pos
}

func TestPlaceAndCloseRoundTrip(t *testing.T) {
	t.Parallel()

	kit := newToolkit(t, "10000")
	pos := place(t, kit, "BTC/USDT", "1000")

	pnl, err := kit.SimClosePosition(pos.ID, dec(t, "49000"))
	assert.NoError(t, err)
	assertDecimal(t, "-20", pnl)

	snap := kit.SimPortfolioState(nil)
	assertDecimal(t, "9980", snap.Balance)
	assert.Equal(t, 1, snap.TradeCount)

	hist := kit.SimTradeHistory(10)
	assert.Len(t, hist, 1)
	assert.Equal(t, pos.ID, hist[0].ID)
}

func TestSimClosePositionErrors(t *testing.T) {
	t.Parallel()

	kit := newToolkit(t, "10000")
	_, err := kit.SimClosePosition("missing", dec(t, "50000"))
	assert.ErrorIs(t, err, sim.ErrPositionNotFound)
}

func TestSuggestNotionalFromRisk(t *testing.T) {
	t.Parallel()

	kit := newToolkit(t, "10000")

	// 1% risk over a 2% stop distance wants 5000; the 20% cap clamps to
	// 2000 and flags it.
	s, err := kit.SuggestNotionalFromRisk(
		dec(t, "1"), "BTC/USDT", sim.Long, dec(t, "50000"), dec(t, "49000"), nil)
	assert.NoError(t, err)

	assertDecimal(t, "2000", s.Notional)
	assert.True(t, s.Capped)
	assertDecimal(t, "10000", s.Equity)
	assertDecimal(t, "100", s.RiskAmount)
}

func TestSuggestNotionalFromRiskErrors(t *testing.T) {
	t.Parallel()

	kit := newToolkit(t, "10000")

	_, err := kit.SuggestNotionalFromRisk(
		dec(t, "0"), "BTC/USDT", sim.Long, dec(t, "50000"), dec(t, "49000"), nil)
	assert.ErrorIs(t, err, sim.ErrInvalidParameters)

	_, err = kit.SuggestNotionalFromRisk(
		dec(t, "1"), "", sim.Long, dec(t, "50000"), dec(t, "49000"), nil)
	assert.ErrorIs(t, err, sim.ErrInvalidParameters)

	_, err = kit.SuggestNotionalFromRisk(
		dec(t, "1"), "BTC/USDT", sim.Long, dec(t, "50000"), dec(t, "50000"), nil)
	assert.ErrorIs(t, err, risk.ErrInvalidStopDistance)
}

func TestEvalStrategyQuality(t *testing.T) {
	t.Parallel()

	kit := newToolkit(t, "10000")

	_, err := kit.EvalStrategyQuality(10)
	assert.ErrorIs(t, err, stats.ErrInsufficientData)

	pos := place(t, kit, "BTC/USDT", "1000")
	_, err = kit.SimClosePosition(pos.ID, dec(t, "52000"))
	assert.NoError(t, err)

	s, err := kit.EvalStrategyQuality(10)
	assert.NoError(t, err)
	assert.Equal(t, 1, s.TotalTrades)
	assert.Equal(t, 1, s.Wins)
	assertDecimal(t, "40", s.TotalPnL)
}

func TestExplainCurrentExposure(t *testing.T) {
	t.Parallel()

	kit := newToolkit(t, "10000")
	place(t, kit, "BTC/USDT", "800")
	place(t, kit, "BTC/USDT", "200")
	place(t, kit, "ETH/USDT", "500")

	report := kit.ExplainCurrentExposure(nil)

	assert.Equal(t, 3, report.OpenCount)
	assertDecimal(t, "1000", report.PerPairNotional["BTC/USDT"])
	assertDecimal(t, "500", report.PerPairNotional["ETH/USDT"])
	assertDecimal(t, "1500", report.TotalNotional)
	assertDecimal(t, "10000", report.Equity)
	assertDecimal(t, "0.15", report.NotionalToEquity)
}

func TestSimReset(t *testing.T) {
	t.Parallel()

	kit := newToolkit(t, "10000")
	pos := place(t, kit, "BTC/USDT", "1000")
	_, err := kit.SimClosePosition(pos.ID, dec(t, "49000"))
	assert.NoError(t, err)

	assert.NoError(t, kit.SimReset(dec(t, "20000")))

	snap := kit.SimPortfolioState(nil)
	assertDecimal(t, "20000", snap.Balance)
	assertDecimal(t, "20000", snap.InitialBalance)
	assert.Equal(t, 0, snap.OpenCount)
	assert.Equal(t, 0, snap.TradeCount)

	assert.ErrorIs(t, kit.SimReset(decimal.Zero), sim.ErrInvalidParameters)
}
