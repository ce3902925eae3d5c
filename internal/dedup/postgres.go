package dedup

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	alreadyAlertedSQL = `SELECT $2 = ANY(symbols) FROM daily_alerts WHERE alert_date = $1;`

	recordAlertedSQL = `INSERT INTO daily_alerts (alert_date, symbols)
    VALUES ($1, $2)
    ON CONFLICT (alert_date) DO UPDATE
    SET symbols = ARRAY(
        SELECT DISTINCT s
        FROM unnest(daily_alerts.symbols || EXCLUDED.symbols) AS s
        ORDER BY s
    );`
)

// PostgresStore persists the daily alerted set as a single row per calendar
// date. The upsert merges symbol sets server-side, so interleaved runs
// cannot lose each other's writes; queries are keyed by date, so a stale row
// from a previous day is simply never read.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wires a pgx pool into a dedup store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// AlreadyAlerted reports whether the symbol was recorded for the given day.
func (s *PostgresStore) AlreadyAlerted(ctx context.Context, day, symbol string) (bool, error) {
	if s == nil || s.pool == nil {
		return false, errors.New("dedup: pool not configured")
	}

	var alerted bool
	err := s.pool.QueryRow(ctx, alreadyAlertedSQL, day, symbol).Scan(&alerted)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query alerted set: %w", err)
	}
	return alerted, nil
}

// RecordAlerted merges the symbols into the day's row atomically.
func (s *PostgresStore) RecordAlerted(ctx context.Context, day string, symbols []string) error {
	if s == nil || s.pool == nil {
		return errors.New("dedup: pool not configured")
	}
	if len(symbols) == 0 {
		return nil
	}

	if _, err := s.pool.Exec(ctx, recordAlertedSQL, day, symbols); err != nil {
		return fmt.Errorf("record alerted symbols: %w", err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
