package sim

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/pkg/id"
	"github.com/rustyeddy/papertrader/risk"
)

// RiskSpec sizes an order from a risk percentage instead of an explicit
// notional. The order's stop-loss supplies the stop distance.
type RiskSpec struct {
	Percent decimal.Decimal
}

// OrderRequest describes a simulated order. Exactly one of Notional or Risk
// must be set. EntryPrice is always caller-supplied: the engine holds no
// price cache. Marks, when present, value open positions for the equity used
// by the notional cap and risk sizing; without marks equity is balance-only.
type OrderRequest struct {
	Pair       string
	Side       Side
	Notional   *decimal.Decimal
	Risk       *RiskSpec
	EntryPrice decimal.Decimal
	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal
	Marks      Marks
}

// PositionClosedListener is notified when the engine auto-closes a position
// on a price update (or force-closes via CloseAll). Callbacks run after the
// ledger lock is released.
type PositionClosedListener interface {
	OnPositionClosed(id string, reason CloseReason)
}

// Engine orchestrates order placement, per-update stop/target evaluation,
// and manual closes. It is the only component that mutates the ledger. The
// engine never touches a price feed: every price it acts on is an argument.
type Engine struct {
	ledger  *Ledger
	journal journal.Journal
	policy  risk.Policy

	mu       sync.Mutex // guards listener
	listener PositionClosedListener
}

// NewEngine wires an engine to its ledger and journal. A nil journal is
// replaced with the no-op backend.
func NewEngine(ledger *Ledger, j journal.Journal, policy risk.Policy) *Engine {
	if j == nil {
		j = journal.Nop{}
	}
	return &Engine{ledger: ledger, journal: j, policy: policy}
}

func (e *Engine) Ledger() *Ledger     { return e.ledger }
func (e *Engine) Policy() risk.Policy { return e.policy }

// SetPositionClosedListener installs an optional listener for auto-closes.
func (e *Engine) SetPositionClosedListener(l PositionClosedListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = l
}

// PlaceOrder validates the request, resolves its notional (directly or via
// risk sizing at current equity), and opens the position. Failures open
// nothing: the ledger rejects atomically, so there is no partial state.
func (e *Engine) PlaceOrder(req OrderRequest) (Position, error) {
	if req.Pair == "" || !req.Side.Valid() {
		return Position{}, fmt.Errorf("pair and side are required: %w", ErrInvalidParameters)
	}
	if !req.EntryPrice.IsPositive() {
		return Position{}, fmt.Errorf("entry price must be positive, got %s: %w", req.EntryPrice, ErrInvalidParameters)
	}
	if (req.Notional == nil) == (req.Risk == nil) {
		return Position{}, fmt.Errorf("exactly one of notional or risk must be given: %w", ErrInvalidParameters)
	}

	var notional decimal.Decimal
	switch {
	case req.Notional != nil:
		notional = *req.Notional
	default:
		if req.StopLoss == nil {
			return Position{}, fmt.Errorf("risk-sized order needs a stop loss: %w", ErrInvalidParameters)
		}
		if !req.Risk.Percent.IsPositive() {
			return Position{}, fmt.Errorf("risk percent must be positive, got %s: %w", req.Risk.Percent, ErrInvalidParameters)
		}
		equity := e.ledger.Equity(req.Marks)
		s, err := risk.SuggestNotional(e.policy, req.Risk.Percent, equity, req.EntryPrice, *req.StopLoss, req.Side == Long)
		if err != nil {
			return Position{}, fmt.Errorf("size order: %w", err)
		}
		notional = s.Notional
	}

	pos := &Position{
		ID:         id.New(),
		Pair:       req.Pair,
		Side:       req.Side,
		EntryPrice: req.EntryPrice,
		Notional:   notional,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		OpenedAt:   time.Now().UTC(),
	}

	if err := e.ledger.Open(pos, e.policy.MaxNotionalPct, req.Marks); err != nil {
		return Position{}, err
	}
	return *pos, nil
}

// OnPriceUpdate evaluates every open position on pair against price. At most
// one trigger fires per position, stop-loss first, and the fill is the
// configured level rather than the update price. Positions with no
// thresholds are untouched. One equity snapshot is journaled per update.
func (e *Engine) OnPriceUpdate(pair string, price decimal.Decimal) error {
	if pair == "" || !price.IsPositive() {
		return fmt.Errorf("price update needs a pair and a positive price: %w", ErrInvalidParameters)
	}

	var closed []Position
	for _, p := range e.ledger.ListOpen() {
		if p.Pair != pair {
			continue
		}
		level, reason, hit := p.evalTriggers(price)
		if !hit {
			continue
		}
		if _, err := e.ledger.Close(p.ID, level, reason); err != nil {
			// A concurrent manual close can win the race; skip it.
			if errors.Is(err, ErrPositionNotFound) {
				continue
			}
			return err
		}
		rec, err := e.ledger.Get(p.ID)
		if err != nil {
			return err
		}
		if err := e.recordTrade(rec); err != nil {
			return err
		}
		closed = append(closed, rec)
	}

	if err := e.recordEquity(Marks{pair: price}); err != nil {
		return err
	}

	e.notify(closed)
	return nil
}

// ClosePosition manually closes an open position at price and returns the
// realized PnL.
func (e *Engine) ClosePosition(posID string, price decimal.Decimal) (decimal.Decimal, error) {
	pnl, err := e.ledger.Close(posID, price, ReasonManual)
	if err != nil {
		return decimal.Decimal{}, err
	}

	rec, err := e.ledger.Get(posID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if err := e.recordTrade(rec); err != nil {
		return decimal.Decimal{}, err
	}
	if err := e.recordEquity(Marks{rec.Pair: price}); err != nil {
		return decimal.Decimal{}, err
	}
	return pnl, nil
}

// CloseAll closes every open position at its supplied mark. Every open pair
// must have a mark; a missing one fails before anything closes.
func (e *Engine) CloseAll(marks Marks, reason CloseReason) error {
	if reason == "" {
		reason = ReasonManual
	}

	open := e.ledger.ListOpen()
	if len(open) == 0 {
		return nil
	}
	for _, p := range open {
		if _, ok := marks[p.Pair]; !ok {
			return fmt.Errorf("close all: no mark for %q: %w", p.Pair, ErrInvalidParameters)
		}
	}

	var closed []Position
	for _, p := range open {
		if _, err := e.ledger.Close(p.ID, marks[p.Pair], reason); err != nil {
			if errors.Is(err, ErrPositionNotFound) {
				continue
			}
			return err
		}
		rec, err := e.ledger.Get(p.ID)
		if err != nil {
			return err
		}
		if err := e.recordTrade(rec); err != nil {
			return err
		}
		closed = append(closed, rec)
	}

	if err := e.recordEquity(marks); err != nil {
		return err
	}

	e.notify(closed)
	return nil
}

// PortfolioState returns a consistent snapshot, valued at the caller's
// marks. With no marks the equity falls back to balance only.
func (e *Engine) PortfolioState(marks Marks) PortfolioSnapshot {
	return e.ledger.Snapshot(marks)
}

// TradeHistory returns the most recent limit closed trades in close order.
func (e *Engine) TradeHistory(limit int) []Position {
	return e.ledger.ListClosed(limit)
}

// Reset clears all simulation state back to initialBalance. The journal is
// append-only and keeps its records.
func (e *Engine) Reset(initialBalance decimal.Decimal) error {
	if !initialBalance.IsPositive() {
		return fmt.Errorf("initial balance must be positive, got %s: %w", initialBalance, ErrInvalidParameters)
	}
	e.ledger.Reset(initialBalance)
	return nil
}

func (e *Engine) recordTrade(p Position) error {
	return e.journal.RecordTrade(journal.TradeRecord{
		TradeID:     p.ID,
		Pair:        p.Pair,
		Side:        string(p.Side),
		Notional:    p.Notional,
		EntryPrice:  p.EntryPrice,
		ExitPrice:   p.ClosePrice,
		OpenTime:    p.OpenedAt,
		CloseTime:   p.ClosedAt,
		RealizedPnL: p.RealizedPnL,
		Reason:      string(p.CloseReason),
	})
}

func (e *Engine) recordEquity(marks Marks) error {
	return e.journal.RecordEquity(journal.EquitySnapshot{
		Time:    time.Now().UTC(),
		Balance: e.ledger.Balance(),
		Equity:  e.ledger.Equity(marks),
	})
}

func (e *Engine) notify(closed []Position) {
	e.mu.Lock()
	listener := e.listener
	e.mu.Unlock()

	if listener == nil {
		return
	}
	for _, p := range closed {
		listener.OnPositionClosed(p.ID, p.CloseReason)
	}
}
