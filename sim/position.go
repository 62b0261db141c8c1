package sim

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a position.
type Side string

const (
	Long  Side = "long"
	Short Side = "short"
)

// Valid reports whether s is a known side.
func (s Side) Valid() bool { return s == Long || s == Short }

// Status is the lifecycle state of a position. The only transition is
// StatusOpen -> StatusClosed.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// CloseReason records what ended a position.
type CloseReason string

const (
	ReasonStopLoss   CloseReason = "stop_loss"
	ReasonTakeProfit CloseReason = "take_profit"
	ReasonManual     CloseReason = "manual"
)

// Position is one simulated spot trade. Notional is the quote-currency value
// committed at entry; PnL is measured in the same quote currency. StopLoss
// and TakeProfit are optional: nil means that trigger is not monitored.
type Position struct {
	ID         string
	Pair       string
	Side       Side
	EntryPrice decimal.Decimal
	Notional   decimal.Decimal
	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal
	OpenedAt   time.Time
	Status     Status

	// Close fields are set together, exactly once, when the position closes.
	ClosePrice  decimal.Decimal
	CloseReason CloseReason
	RealizedPnL decimal.Decimal
	ClosedAt    time.Time
}

// PnLAt returns the profit or loss, in quote currency, of marking the
// position to price.
//
//	long:  (price - entry) / entry * notional
//	short: (entry - price) / entry * notional
func (p *Position) PnLAt(price decimal.Decimal) decimal.Decimal {
	if p.Side == Long {
		return price.Sub(p.EntryPrice).Div(p.EntryPrice).Mul(p.Notional)
	}
	return p.EntryPrice.Sub(price).Div(p.EntryPrice).Mul(p.Notional)
}

// OpenRisk returns the quote-currency loss if the stop-loss fills exactly,
// or false when no stop is set.
func (p *Position) OpenRisk() (decimal.Decimal, bool) {
	if p.StopLoss == nil {
		return decimal.Decimal{}, false
	}
	return p.EntryPrice.Sub(*p.StopLoss).Abs().Div(p.EntryPrice).Mul(p.Notional), true
}

func (p *Position) hitStopLoss(price decimal.Decimal) bool {
	if p.StopLoss == nil {
		return false
	}
	if p.Side == Long {
		return price.LessThanOrEqual(*p.StopLoss)
	}
	return price.GreaterThanOrEqual(*p.StopLoss)
}

func (p *Position) hitTakeProfit(price decimal.Decimal) bool {
	if p.TakeProfit == nil {
		return false
	}
	if p.Side == Long {
		return price.GreaterThanOrEqual(*p.TakeProfit)
	}
	return price.LessThanOrEqual(*p.TakeProfit)
}

// evalTriggers checks one price update against the position's thresholds and
// returns the fill level and reason of the trigger that fired, if any. When a
// single update crosses both levels the stop-loss wins: a single tick cannot
// be assumed to have traded through the favorable level first. At most one
// trigger fires per update. The fill level is the configured threshold, not
// the update price, so reported PnL stays tied to the configured level.
func (p *Position) evalTriggers(price decimal.Decimal) (level decimal.Decimal, reason CloseReason, hit bool) {
	switch {
	case p.hitStopLoss(price):
		return *p.StopLoss, ReasonStopLoss, true
	case p.hitTakeProfit(price):
		return *p.TakeProfit, ReasonTakeProfit, true
	}
	return decimal.Decimal{}, "", false
}

// validate checks the immutable fields of a position about to open. Stop and
// target must sit on the protective side of entry for the position's side;
// an inverted level is an error here, never silently corrected.
func (p *Position) validate() error {
	if p.ID == "" {
		return fmt.Errorf("position id is empty: %w", ErrInvalidParameters)
	}
	if p.Pair == "" {
		return fmt.Errorf("pair is empty: %w", ErrInvalidParameters)
	}
	if !p.Side.Valid() {
		return fmt.Errorf("side must be %q or %q, got %q: %w", Long, Short, p.Side, ErrInvalidParameters)
	}
	if !p.EntryPrice.IsPositive() {
		return fmt.Errorf("entry price must be positive, got %s: %w", p.EntryPrice, ErrInvalidParameters)
	}
	if !p.Notional.IsPositive() {
		return fmt.Errorf("notional must be positive, got %s: %w", p.Notional, ErrInvalidParameters)
	}

	if p.StopLoss != nil {
		if p.Side == Long && !p.StopLoss.LessThan(p.EntryPrice) {
			return fmt.Errorf("long stop %s must be below entry %s: %w", p.StopLoss, p.EntryPrice, ErrInvalidParameters)
		}
		if p.Side == Short && !p.StopLoss.GreaterThan(p.EntryPrice) {
			return fmt.Errorf("short stop %s must be above entry %s: %w", p.StopLoss, p.EntryPrice, ErrInvalidParameters)
		}
	}
	if p.TakeProfit != nil {
		if p.Side == Long && !p.TakeProfit.GreaterThan(p.EntryPrice) {
			return fmt.Errorf("long target %s must be above entry %s: %w", p.TakeProfit, p.EntryPrice, ErrInvalidParameters)
		}
		if p.Side == Short && !p.TakeProfit.LessThan(p.EntryPrice) {
			return fmt.Errorf("short target %s must be below entry %s: %w", p.TakeProfit, p.EntryPrice, ErrInvalidParameters)
		}
	}
	return nil
}
