package journal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(tradeID string) (TradeRecord, error) {
	row := j.db.QueryRow(`
		SELECT trade_id, pair, side, notional, entry_price, exit_price, open_time, close_time, realized_pnl, reason
		FROM trades
		WHERE trade_id = ?`, tradeID)

	rec, err := scanTrade(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return TradeRecord{}, fmt.Errorf("trade %q not found", tradeID)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListTradesClosedBetween returns trades whose close_time is within
// [start, end), oldest first.
func (j *SQLite) ListTradesClosedBetween(start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, pair, side, notional, entry_price, exit_price, open_time, close_time, realized_pnl, reason
		FROM trades
		WHERE close_time >= ? AND close_time < ?
		ORDER BY close_time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (TradeRecord, error) {
	var rec TradeRecord
	var notional, entry, exit, pnl string

	if err := s.Scan(
		&rec.TradeID,
		&rec.Pair,
		&rec.Side,
		&notional,
		&entry,
		&exit,
		&rec.OpenTime,
		&rec.CloseTime,
		&pnl,
		&rec.Reason,
	); err != nil {
		return TradeRecord{}, err
	}

	var err error
	if rec.Notional, err = decimal.NewFromString(notional); err != nil {
		return TradeRecord{}, fmt.Errorf("parse notional %q: %w", notional, err)
	}
	if rec.EntryPrice, err = decimal.NewFromString(entry); err != nil {
		return TradeRecord{}, fmt.Errorf("parse entry_price %q: %w", entry, err)
	}
	if rec.ExitPrice, err = decimal.NewFromString(exit); err != nil {
		return TradeRecord{}, fmt.Errorf("parse exit_price %q: %w", exit, err)
	}
	if rec.RealizedPnL, err = decimal.NewFromString(pnl); err != nil {
		return TradeRecord{}, fmt.Errorf("parse realized_pnl %q: %w", pnl, err)
	}
	return rec, nil
}
