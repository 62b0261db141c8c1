package journal

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord is one closed trade as written to the journal.
type TradeRecord struct {
	TradeID     string
	Pair        string
	Side        string
	Notional    decimal.Decimal
	EntryPrice  decimal.Decimal
	ExitPrice   decimal.Decimal
	OpenTime    time.Time
	CloseTime   time.Time
	RealizedPnL decimal.Decimal
	Reason      string
}

// EquitySnapshot records the account value after a price update or close.
type EquitySnapshot struct {
	Time    time.Time
	Balance decimal.Decimal
	Equity  decimal.Decimal
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Nop discards everything. Used when a run does not want a journal.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error     { return nil }
func (Nop) RecordEquity(EquitySnapshot) error { return nil }
func (Nop) Close() error                      { return nil }
