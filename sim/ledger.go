package sim

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Marks supplies current prices keyed by pair, used to value open positions.
// The ledger never caches prices; callers pass marks in. A pair with no mark
// contributes zero unrealized PnL, so an empty Marks yields balance-only
// equity.
type Marks map[string]decimal.Decimal

// PortfolioSnapshot is a read-only view of the ledger, assembled atomically.
type PortfolioSnapshot struct {
	Balance        decimal.Decimal
	Equity         decimal.Decimal
	InitialBalance decimal.Decimal
	RealizedPnL    decimal.Decimal
	OpenPositions  []Position
	OpenCount      int
	TradeCount     int
}

// Ledger owns the portfolio: realized balance, the set of open positions,
// and the append-only sequence of closed trades. Every mutation runs under
// the write lock, so a reader never observes a half-applied close: a
// position's status flips together with its close fields and the balance
// credit.
type Ledger struct {
	mu             sync.RWMutex
	balance        decimal.Decimal
	initialBalance decimal.Decimal
	open           map[string]*Position
	closed         []*Position
}

func NewLedger(initialBalance decimal.Decimal) *Ledger {
	return &Ledger{
		balance:        initialBalance,
		initialBalance: initialBalance,
		open:           make(map[string]*Position),
	}
}

// Open validates p and admits it to the ledger. The notional cap is checked
// against equity at open time, valued with marks. Any violation leaves the
// ledger untouched.
func (l *Ledger) Open(p *Position, maxNotionalPct decimal.Decimal, marks Marks) error {
	if err := p.validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.open[p.ID]; exists {
		return fmt.Errorf("duplicate position id %s: %w", p.ID, ErrInvalidParameters)
	}

	equity := l.equityLocked(marks)
	maxNotional := maxNotionalPct.Mul(equity)
	if p.Notional.GreaterThan(maxNotional) {
		return fmt.Errorf("notional %s exceeds max %s (%s%% of equity %s): %w",
			p.Notional, maxNotional, maxNotionalPct.Mul(decimal.NewFromInt(100)), equity, ErrRiskLimitExceeded)
	}

	p.Status = StatusOpen
	l.open[p.ID] = p
	return nil
}

// Close realizes PnL for an open position at price and credits the balance.
// The position moves to the closed sequence in close order. Closing an
// unknown or already-closed id fails with ErrPositionNotFound.
func (l *Ledger) Close(id string, price decimal.Decimal, reason CloseReason) (decimal.Decimal, error) {
	if !price.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("close price must be positive, got %s: %w", price, ErrInvalidParameters)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.open[id]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("close %s: %w", id, ErrPositionNotFound)
	}

	pnl := p.PnLAt(price)

	p.Status = StatusClosed
	p.ClosePrice = price
	p.CloseReason = reason
	p.RealizedPnL = pnl
	p.ClosedAt = time.Now().UTC()

	l.balance = l.balance.Add(pnl)

	delete(l.open, id)
	l.closed = append(l.closed, p)

	return pnl, nil
}

// Get returns a copy of the position with the given id, open or closed.
// Copies keep closed positions immutable from the caller's side.
func (l *Ledger) Get(id string) (Position, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if p, ok := l.open[id]; ok {
		return *p, nil
	}
	for _, p := range l.closed {
		if p.ID == id {
			return *p, nil
		}
	}
	return Position{}, fmt.Errorf("get %s: %w", id, ErrPositionNotFound)
}

// ListOpen returns copies of all open positions, ordered by id; ULIDs sort
// by creation time, so this is open order.
func (l *Ledger) ListOpen() []Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.listOpenLocked()
}

func (l *Ledger) listOpenLocked() []Position {
	out := make([]Position, 0, len(l.open))
	for _, p := range l.open {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListClosed returns copies of the most recent limit closed trades in close
// order. A limit of zero or less returns the full history.
func (l *Ledger) ListClosed(limit int) []Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	trades := l.closed
	if limit > 0 && len(trades) > limit {
		trades = trades[len(trades)-limit:]
	}
	out := make([]Position, len(trades))
	for i, p := range trades {
		out[i] = *p
	}
	return out
}

// Reset clears all state back to initialBalance with empty ledgers. Ids are
// ULIDs, so positions opened after a reset can never collide with ids issued
// before it.
func (l *Ledger) Reset(initialBalance decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.balance = initialBalance
	l.initialBalance = initialBalance
	l.open = make(map[string]*Position)
	l.closed = nil
}

func (l *Ledger) Balance() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balance
}

func (l *Ledger) InitialBalance() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.initialBalance
}

// Equity returns balance plus the unrealized PnL of every open position that
// has a mark.
func (l *Ledger) Equity(marks Marks) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.equityLocked(marks)
}

func (l *Ledger) equityLocked(marks Marks) decimal.Decimal {
	equity := l.balance
	for _, p := range l.open {
		mark, ok := marks[p.Pair]
		if !ok {
			continue
		}
		equity = equity.Add(p.PnLAt(mark))
	}
	return equity
}

// Snapshot assembles a consistent portfolio view under one read lock.
func (l *Ledger) Snapshot(marks Marks) PortfolioSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	realized := decimal.Zero
	for _, p := range l.closed {
		realized = realized.Add(p.RealizedPnL)
	}

	return PortfolioSnapshot{
		Balance:        l.balance,
		Equity:         l.equityLocked(marks),
		InitialBalance: l.initialBalance,
		RealizedPnL:    realized,
		OpenPositions:  l.listOpenLocked(),
		OpenCount:      len(l.open),
		TradeCount:     len(l.closed),
	}
}
