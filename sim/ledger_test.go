package sim

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/papertrader/pkg/id"
)

func maxPct(t *testing.T) decimal.Decimal { return dec(t, "0.2") }

func openPosition(t *testing.T, l *Ledger, pair string, side Side, entry, notional string) Position {
	t.Helper()
	p := &Position{
		ID:         id.New(),
		Pair:       pair,
		Side:       side,
		EntryPrice: dec(t, entry),
		Notional:   dec(t, notional),
	}
	assert.NoError(t, l.Open(p, maxPct(t), nil))
	return *p
}

func TestLedgerOpenAndGet(t *testing.T) {
	t.Parallel()

	l := NewLedger(dec(t, "10000"))
	p := openPosition(t, l, "BTC/USDT", Long, "50000", "1000")

	got, err := l.Get(p.ID)
	assert.NoError(t, err)
	assert.Equal(t, StatusOpen, got.Status)
	assert.Equal(t, "BTC/USDT", got.Pair)
	assertDecimal(t, "1000", got.Notional)

	open := l.ListOpen()
	assert.Len(t, open, 1)
	assert.Equal(t, p.ID, open[0].ID)
}

func TestLedgerOpenRejectsOverCap(t *testing.T) {
	t.Parallel()

	l := NewLedger(dec(t, "10000"))

	p := &Position{
		ID:         id.New(),
		Pair:       "BTC/USDT",
		Side:       Long,
		EntryPrice: dec(t, "50000"),
		Notional:   dec(t, "2001"), // cap is 20% of 10000
	}
	err := l.Open(p, maxPct(t), nil)
	assert.ErrorIs(t, err, ErrRiskLimitExceeded)

	// Nothing opened, nothing changed.
	assert.Empty(t, l.ListOpen())
	assertDecimal(t, "10000", l.Balance())

	// Exactly at the cap is allowed.
	p.Notional = dec(t, "2000")
	assert.NoError(t, l.Open(p, maxPct(t), nil))
}

func TestLedgerOpenRejectsInvalid(t *testing.T) {
	t.Parallel()

	l := NewLedger(dec(t, "10000"))

	p := &Position{
		ID:         id.New(),
		Pair:       "BTC/USDT",
		Side:       Long,
		EntryPrice: dec(t, "50000"),
		Notional:   dec(t, "1000"),
		StopLoss:   decPtr(t, "51000"), // wrong side for a long
	}
	err := l.Open(p, maxPct(t), nil)
	assert.ErrorIs(t, err, ErrInvalidParameters)
	assert.Empty(t, l.ListOpen())
}

func TestLedgerCapUsesMarkedEquity(t *testing.T) {
	t.Parallel()

	l := NewLedger(dec(t, "10000"))
	openPosition(t, l, "BTC/USDT", Long, "50000", "1000")

	// Marked up 100%: equity 10000 + 1000 = 11000, cap 2200.
	marks := Marks{"BTC/USDT": dec(t, "100000")}

	p := &Position{
		ID:         id.New(),
		Pair:       "ETH/USDT",
		Side:       Long,
		EntryPrice: dec(t, "3000"),
		Notional:   dec(t, "2100"),
	}
	assert.NoError(t, l.Open(p, maxPct(t), marks))
}

func TestLedgerClose(t *testing.T) {
	t.Parallel()

	l := NewLedger(dec(t, "10000"))
	p := openPosition(t, l, "BTC/USDT", Long, "50000", "1000")

	pnl, err := l.Close(p.ID, dec(t, "49000"), ReasonStopLoss)
	assert.NoError(t, err)
	assertDecimal(t, "-20", pnl)
	assertDecimal(t, "9980", l.Balance())

	got, err := l.Get(p.ID)
	assert.NoError(t, err)
	assert.Equal(t, StatusClosed, got.Status)
	assert.Equal(t, ReasonStopLoss, got.CloseReason)
	assertDecimal(t, "49000", got.ClosePrice)
	assertDecimal(t, "-20", got.RealizedPnL)
	assert.False(t, got.ClosedAt.IsZero())

	assert.Empty(t, l.ListOpen())
	assert.Len(t, l.ListClosed(0), 1)
}

func TestLedgerCloseSamePriceZeroPnL(t *testing.T) {
	t.Parallel()

	l := NewLedger(dec(t, "10000"))
	p := openPosition(t, l, "BTC/USDT", Long, "50000", "1000")

	pnl, err := l.Close(p.ID, dec(t, "50000"), ReasonManual)
	assert.NoError(t, err)
	assert.True(t, pnl.IsZero(), "got %s", pnl)
	assertDecimal(t, "10000", l.Balance())
}

func TestLedgerCloseUnknownOrClosed(t *testing.T) {
	t.Parallel()

	l := NewLedger(dec(t, "10000"))
	p := openPosition(t, l, "BTC/USDT", Long, "50000", "1000")

	_, err := l.Close("no-such-id", dec(t, "50000"), ReasonManual)
	assert.ErrorIs(t, err, ErrPositionNotFound)

	_, err = l.Close(p.ID, dec(t, "50000"), ReasonManual)
	assert.NoError(t, err)

	_, err = l.Close(p.ID, dec(t, "50000"), ReasonManual)
	assert.ErrorIs(t, err, ErrPositionNotFound)
	assertDecimal(t, "10000", l.Balance())
}

func TestLedgerClosedCopiesAreImmutable(t *testing.T) {
	t.Parallel()

	l := NewLedger(dec(t, "10000"))
	p := openPosition(t, l, "BTC/USDT", Long, "50000", "1000")

	_, err := l.Close(p.ID, dec(t, "51000"), ReasonManual)
	assert.NoError(t, err)

	got, err := l.Get(p.ID)
	assert.NoError(t, err)
	got.RealizedPnL = dec(t, "999999")
	got.Status = StatusOpen

	again, err := l.Get(p.ID)
	assert.NoError(t, err)
	assert.Equal(t, StatusClosed, again.Status)
	assertDecimal(t, "20", again.RealizedPnL)
}

func TestLedgerEquityIdentity(t *testing.T) {
	t.Parallel()

	l := NewLedger(dec(t, "10000"))
	openPosition(t, l, "BTC/USDT", Long, "50000", "1000")
	openPosition(t, l, "ETH/USDT", Short, "3000", "600")

	marks := Marks{
		"BTC/USDT": dec(t, "51000"), // +20
		"ETH/USDT": dec(t, "3300"),  // -60
	}

	unrealized := decimal.Zero
	for _, p := range l.ListOpen() {
		unrealized = unrealized.Add(p.PnLAt(marks[p.Pair]))
	}
	assert.True(t, l.Equity(marks).Equal(l.Balance().Add(unrealized)))
	assertDecimal(t, "9960", l.Equity(marks))

	// Without marks equity falls back to balance only.
	assert.True(t, l.Equity(nil).Equal(l.Balance()))
}

func TestLedgerListClosedLimit(t *testing.T) {
	t.Parallel()

	l := NewLedger(dec(t, "10000"))
	var ids []string
	for i := 0; i < 5; i++ {
		p := openPosition(t, l, "BTC/USDT", Long, "50000", "100")
		_, err := l.Close(p.ID, dec(t, "50000"), ReasonManual)
		assert.NoError(t, err)
		ids = append(ids, p.ID)
	}

	last2 := l.ListClosed(2)
	assert.Len(t, last2, 2)
	assert.Equal(t, ids[3], last2[0].ID)
	assert.Equal(t, ids[4], last2[1].ID)

	assert.Len(t, l.ListClosed(0), 5)
	assert.Len(t, l.ListClosed(100), 5)
}

func TestLedgerReset(t *testing.T) {
	t.Parallel()

	l := NewLedger(dec(t, "10000"))
	p := openPosition(t, l, "BTC/USDT", Long, "50000", "1000")
	_, err := l.Close(p.ID, dec(t, "49000"), ReasonManual)
	assert.NoError(t, err)
	openPosition(t, l, "ETH/USDT", Long, "3000", "500")

	l.Reset(dec(t, "5000"))

	assertDecimal(t, "5000", l.Balance())
	assertDecimal(t, "5000", l.InitialBalance())
	assert.Empty(t, l.ListOpen())
	assert.Empty(t, l.ListClosed(0))

	fresh := openPosition(t, l, "BTC/USDT", Long, "50000", "100")
	assert.NotEqual(t, p.ID, fresh.ID)
}

func TestLedgerConcurrentCloseOnlyOneWins(t *testing.T) {
	t.Parallel()

	l := NewLedger(dec(t, "10000"))
	p := openPosition(t, l, "BTC/USDT", Long, "50000", "1000")

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = l.Close(p.ID, dec(t, "51000"), ReasonManual)
		}()
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, ErrPositionNotFound)
		}
	}
	assert.Equal(t, 1, ok)
	assertDecimal(t, "10020", l.Balance())
}
