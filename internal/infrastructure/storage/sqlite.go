package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vitos/options_alerts/internal/domain"
)

var ErrNotFound = domain.ErrNotFound

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			ticker TEXT NOT NULL,
			strategy TEXT NOT NULL,
			direction TEXT NOT NULL,
			confidence TEXT NOT NULL,
			time_sensitivity TEXT NOT NULL,
			entry_price REAL NOT NULL,
			stop_loss REAL NOT NULL,
			profit_target REAL NOT NULL,
			risk_pct REAL NOT NULL,
			score REAL NOT NULL,
			status TEXT NOT NULL,
			expires_at TEXT,
			created_at TEXT NOT NULL,
			payload TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_ticker ON alerts(ticker, direction);`,
		`CREATE TABLE IF NOT EXISTS positions (
			trade_id TEXT PRIMARY KEY,
			alert_id TEXT,
			ticker TEXT NOT NULL,
			strategy_type TEXT NOT NULL,
			direction TEXT NOT NULL,
			legs TEXT NOT NULL,
			credit REAL NOT NULL DEFAULT 0,
			debit REAL NOT NULL DEFAULT 0,
			contracts INTEGER NOT NULL DEFAULT 1,
			risk_pct REAL NOT NULL DEFAULT 0,
			expiration DATETIME NOT NULL,
			event_date DATETIME,
			status TEXT NOT NULL,
			opened_at DATETIME NOT NULL,
			closed_at DATETIME,
			realized_pnl REAL NOT NULL DEFAULT 0,
			close_reason TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_positions_status ON positions(status);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

// AlertRepository Implementation

func (s *SQLiteStore) SaveAlert(ctx context.Context, rec domain.AlertRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal alert %s: %w", rec.ID, err)
	}
	query := `INSERT INTO alerts (id, ticker, strategy, direction, confidence, time_sensitivity, entry_price, stop_loss, profit_target, risk_pct, score, status, expires_at, created_at, payload)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT(id) DO UPDATE SET status=excluded.status, payload=excluded.payload`
	_, err = s.db.ExecContext(ctx, query,
		rec.ID, rec.Ticker, rec.Kind, rec.Direction, rec.Confidence, rec.TimeSensitivity,
		rec.EntryPrice, rec.StopLoss, rec.ProfitTarget, rec.RiskFraction, rec.Score,
		rec.Status, rec.ExpiresAt, rec.CreatedAt, string(payload))
	return err
}

func (s *SQLiteStore) ListAlerts(ctx context.Context, limit int) ([]domain.AlertRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM alerts ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AlertRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var rec domain.AlertRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("decode alert payload: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PositionRepository Implementation

const positionColumns = `trade_id, alert_id, ticker, strategy_type, direction, legs, credit, debit, contracts, risk_pct, expiration, event_date, status, opened_at, closed_at, realized_pnl, close_reason`

func (s *SQLiteStore) SavePosition(ctx context.Context, p *domain.TrackedPosition) error {
	legs, err := json.Marshal(p.Legs)
	if err != nil {
		return fmt.Errorf("marshal legs: %w", err)
	}
	status := p.Status
	if status == "" {
		status = domain.PositionOpen
	}
	query := `INSERT INTO positions (` + positionColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT(trade_id) DO UPDATE SET
			  contracts=excluded.contracts,
			  status=excluded.status,
			  closed_at=excluded.closed_at,
			  realized_pnl=excluded.realized_pnl,
			  close_reason=excluded.close_reason`
	_, err = s.db.ExecContext(ctx, query,
		p.TradeID, p.AlertID, p.Ticker, p.StrategyType, string(p.Direction), string(legs),
		p.Credit, p.Debit, p.Contracts, p.RiskFraction, p.Expiration, nullTime(p.EventDate),
		string(status), p.OpenedAt, nullUTC(p.ClosedAt), p.RealizedPnL, p.CloseReason)
	return err
}

func (s *SQLiteStore) GetPosition(ctx context.Context, tradeID string) (*domain.TrackedPosition, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+positionColumns+` FROM positions WHERE trade_id = ?`, tradeID)
	p, err := scanPosition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("position %s: %w", tradeID, ErrNotFound)
	}
	return p, err
}

func (s *SQLiteStore) ListOpenPositions(ctx context.Context) ([]*domain.TrackedPosition, error) {
	return s.queryPositions(ctx, `SELECT `+positionColumns+` FROM positions WHERE status = ? ORDER BY opened_at`, string(domain.PositionOpen))
}

func (s *SQLiteStore) ListClosedSince(ctx context.Context, since time.Time) ([]*domain.TrackedPosition, error) {
	return s.queryPositions(ctx, `SELECT `+positionColumns+` FROM positions WHERE status = ? AND closed_at >= ? ORDER BY closed_at`, string(domain.PositionClosed), since.UTC())
}

func (s *SQLiteStore) ClosePosition(ctx context.Context, tradeID string, pnl float64, reason string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE positions SET status = ?, closed_at = ?, realized_pnl = ?, close_reason = ? WHERE trade_id = ? AND status = ?`,
		string(domain.PositionClosed), at.UTC(), pnl, reason, tradeID, string(domain.PositionOpen))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("open position %s: %w", tradeID, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) queryPositions(ctx context.Context, query string, args ...any) ([]*domain.TrackedPosition, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.TrackedPosition
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPosition(row scanner) (*domain.TrackedPosition, error) {
	var (
		p         domain.TrackedPosition
		alertID   sql.NullString
		direction string
		legs      string
		status    string
		eventDate sql.NullTime
		closedAt  sql.NullTime
	)
	err := row.Scan(&p.TradeID, &alertID, &p.Ticker, &p.StrategyType, &direction, &legs,
		&p.Credit, &p.Debit, &p.Contracts, &p.RiskFraction, &p.Expiration, &eventDate,
		&status, &p.OpenedAt, &closedAt, &p.RealizedPnL, &p.CloseReason)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(legs), &p.Legs); err != nil {
		return nil, fmt.Errorf("decode legs of %s: %w", p.TradeID, err)
	}
	p.AlertID = alertID.String
	p.Direction = domain.Direction(direction)
	p.Status = domain.PositionStatus(status)
	if eventDate.Valid {
		t := eventDate.Time
		p.EventDate = &t
	}
	if closedAt.Valid {
		t := closedAt.Time
		p.ClosedAt = &t
	}
	return &p, nil
}

// closed_at is compared as text, so it is always written in UTC.
func nullUTC(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
