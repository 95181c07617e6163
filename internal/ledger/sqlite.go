// Package ledger persists the trade lifecycle in SQLite, one row per venue
// ticket. Rows are upserted: an OPEN row is resolved in place when the
// position closes, and repeated close writes for the same ticket are
// suppressed so re-polling cannot duplicate lifecycle records.
package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mt5-breakout-bot/internal/interfaces"
	"mt5-breakout-bot/internal/types"
)

var ErrNotFound = errors.New("ledger: trade not found")

type SQLiteLedger struct {
	db *sql.DB
}

var _ interfaces.Ledger = (*SQLiteLedger)(nil)

func NewSQLite(path string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteLedger{db: db}, nil
}

// RecordOpen inserts the OPEN row for a ticket. A second open write for the
// same ticket is a no-op.
func (l *SQLiteLedger) RecordOpen(rec types.TradeRecord) error {
	_, err := l.db.Exec(`
		INSERT INTO trades
		(ticket, opened_at, symbol, direction, entry_price, sl, tp, volume, risk_money, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticket) DO NOTHING`,
		rec.Ticket, rec.Timestamp.Unix(), rec.Symbol, string(rec.Direction),
		rec.EntryPrice, rec.SL, rec.TP, rec.Volume, rec.RiskMoney, string(types.StatusOpen),
	)
	return err
}

// RecordClose resolves the ticket's row. Only a row still in OPEN status is
// updated; a ticket already closed is left untouched. Closing a ticket with
// no OPEN row (recovery of an untracked position) inserts a closed row
// directly.
func (l *SQLiteLedger) RecordClose(ticket int64, closePrice, profit *float64, status types.CloseStatus) error {
	res, err := l.db.Exec(`
		UPDATE trades
		SET close_price = ?, profit = ?, status = ?, closed_at = ?
		WHERE ticket = ? AND status = ?`,
		nullable(closePrice), nullable(profit), string(status), time.Now().Unix(),
		ticket, string(types.StatusOpen),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	// Either already closed (suppress) or never opened (insert closed row).
	var existing string
	err = l.db.QueryRow(`SELECT status FROM trades WHERE ticket = ?`, ticket).Scan(&existing)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	now := time.Now().Unix()
	_, err = l.db.Exec(`
		INSERT INTO trades
		(ticket, opened_at, closed_at, symbol, direction, entry_price, close_price, profit, sl, tp, volume, risk_money, status)
		VALUES (?, ?, ?, '', '', 0, ?, ?, 0, 0, 0, 0, ?)`,
		ticket, now, now, nullable(closePrice), nullable(profit), string(status),
	)
	return err
}

func (l *SQLiteLedger) RecordPending(p types.PendingSubmission) error {
	_, err := l.db.Exec(`
		INSERT INTO pending_submissions
		(id, symbol, phase, direction, volume, price, sl, tp, risk_money, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Symbol, p.Phase, string(p.Direction),
		p.Volume, p.Price, p.SL, p.TP, p.RiskMoney, p.CreatedAt.Unix(),
	)
	return err
}

func (l *SQLiteLedger) ResolvePending(id string) error {
	_, err := l.db.Exec(`DELETE FROM pending_submissions WHERE id = ?`, id)
	return err
}

func (l *SQLiteLedger) ListPending() ([]types.PendingSubmission, error) {
	rows, err := l.db.Query(`
		SELECT id, symbol, phase, direction, volume, price, sl, tp, risk_money, created_at
		FROM pending_submissions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.PendingSubmission
	for rows.Next() {
		var p types.PendingSubmission
		var dir string
		var createdAt int64
		if err := rows.Scan(&p.ID, &p.Symbol, &p.Phase, &dir,
			&p.Volume, &p.Price, &p.SL, &p.TP, &p.RiskMoney, &createdAt); err != nil {
			return nil, err
		}
		p.Direction = types.Direction(dir)
		p.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (l *SQLiteLedger) GetTrade(ticket int64) (types.TradeRecord, error) {
	row := l.db.QueryRow(`
		SELECT ticket, opened_at, symbol, direction, entry_price, close_price, profit,
		       sl, tp, volume, risk_money, status
		FROM trades WHERE ticket = ?`, ticket)
	rec, err := scanTrade(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return types.TradeRecord{}, fmt.Errorf("%w: ticket %d", ErrNotFound, ticket)
	}
	return rec, err
}

func (l *SQLiteLedger) TradesClosedBetween(from, to time.Time) ([]types.TradeRecord, error) {
	rows, err := l.db.Query(`
		SELECT ticket, opened_at, symbol, direction, entry_price, close_price, profit,
		       sl, tp, volume, risk_money, status
		FROM trades
		WHERE closed_at IS NOT NULL AND closed_at >= ? AND closed_at < ?
		ORDER BY closed_at`, from.Unix(), to.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func scanTrade(scan func(dest ...any) error) (types.TradeRecord, error) {
	var rec types.TradeRecord
	var openedAt int64
	var dir, status string
	var closePrice, profit sql.NullFloat64
	err := scan(&rec.Ticket, &openedAt, &rec.Symbol, &dir, &rec.EntryPrice,
		&closePrice, &profit, &rec.SL, &rec.TP, &rec.Volume, &rec.RiskMoney, &status)
	if err != nil {
		return types.TradeRecord{}, err
	}
	rec.Timestamp = time.Unix(openedAt, 0)
	rec.Direction = types.Direction(dir)
	rec.Status = types.CloseStatus(status)
	if closePrice.Valid {
		v := closePrice.Float64
		rec.ClosePrice = &v
	}
	if profit.Valid {
		v := profit.Float64
		rec.Profit = &v
	}
	return rec, nil
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
