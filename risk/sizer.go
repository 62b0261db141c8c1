package risk

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidStopDistance marks a stop that gives no usable distance for
// sizing: equal to entry, or on the wrong side of it for the trade's
// direction. Without this check a near-zero distance would suggest an
// unbounded notional.
var ErrInvalidStopDistance = errors.New("invalid stop distance")

// Suggestion is the output of SuggestNotional. Capped is set when the raw
// suggestion exceeded the max-notional cap and was clamped; that is a signal
// to the caller, not an error.
type Suggestion struct {
	Notional     decimal.Decimal
	Capped       bool
	RiskAmount   decimal.Decimal
	StopDistance decimal.Decimal // |entry - stop| / entry
}

// SuggestNotional sizes a position so the loss at the stop is riskPercent of
// equity:
//
//	riskAmount = riskPercent/100 * equity
//	notional   = riskAmount / (|entry - stop| / entry)
//
// clamped to [0, MaxNotionalPct * equity]. long selects which side of entry
// the stop must sit on.
func SuggestNotional(p Policy, riskPercent, equity, entry, stop decimal.Decimal, long bool) (Suggestion, error) {
	if !riskPercent.IsPositive() || !equity.IsPositive() || !entry.IsPositive() {
		return Suggestion{}, fmt.Errorf("risk percent, equity and entry must be positive (got %s, %s, %s)",
			riskPercent, equity, entry)
	}

	if long && !stop.LessThan(entry) {
		return Suggestion{}, fmt.Errorf("long stop %s must be below entry %s: %w", stop, entry, ErrInvalidStopDistance)
	}
	if !long && !stop.GreaterThan(entry) {
		return Suggestion{}, fmt.Errorf("short stop %s must be above entry %s: %w", stop, entry, ErrInvalidStopDistance)
	}

	dist := entry.Sub(stop).Abs().Div(entry)
	if dist.IsZero() {
		return Suggestion{}, fmt.Errorf("stop %s equals entry %s: %w", stop, entry, ErrInvalidStopDistance)
	}

	riskAmount := riskPercent.Div(decimal.NewFromInt(100)).Mul(equity)
	notional := riskAmount.Div(dist)

	s := Suggestion{
		Notional:     notional,
		RiskAmount:   riskAmount,
		StopDistance: dist,
	}

	maxNotional := p.MaxNotionalPct.Mul(equity)
	if s.Notional.GreaterThan(maxNotional) {
		s.Notional = maxNotional
		s.Capped = true
	}
	return s, nil
}
