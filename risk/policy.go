package risk

import "github.com/shopspring/decimal"

// Policy holds the portfolio-wide risk limits.
type Policy struct {
	// MaxNotionalPct caps a single position's notional as a fraction of
	// equity at open time.
	MaxNotionalPct decimal.Decimal

	// DefaultRiskPct is the risk percentage used when a caller sizes a
	// trade without naming one, e.g. 1 for 1% of equity.
	DefaultRiskPct decimal.Decimal
}

// DefaultPolicy caps any one position at 20% of equity and risks 1% per
// trade by default.
func DefaultPolicy() Policy {
	return Policy{
		MaxNotionalPct: decimal.New(2, -1),
		DefaultRiskPct: decimal.NewFromInt(1),
	}
}
