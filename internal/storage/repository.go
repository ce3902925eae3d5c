package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertAlertSQL = `INSERT INTO alert_history (
        run_ts,
        mode,
        symbol,
        venue,
        change_pct,
        conditions
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    )
    RETURNING id, created_at;`

	listRecentAlertsSQL = `SELECT
        id,
        run_ts,
        mode,
        symbol,
        venue,
        change_pct,
        conditions,
        created_at
    FROM alert_history
    ORDER BY created_at DESC, id DESC
    LIMIT $1;`

	deleteAlertsBeforeSQL = `DELETE FROM alert_history WHERE created_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// AlertStore defines operations for alert auditing.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error
}

// AdvisoryLocker exposes advisory lock helpers, used to keep overlapping
// scheduled invocations from racing each other.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to the alert audit trail.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool exposes the underlying pool so sibling stores can share it.
func (s *Store) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// Best effort: the lock dies with the connection anyway.
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertAlert persists one dispatched alert row.
func (s *Store) InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertRecord{}, err
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		alert.RunTS,
		alert.Mode,
		alert.Symbol,
		alert.Venue,
		alert.ChangePct.String(),
		alert.Conditions,
	)
	if err := row.Scan(&alert.ID, &alert.CreatedAt); err != nil {
		return AlertRecord{}, fmt.Errorf("insert alert: %w", err)
	}
	return alert, nil
}

// ListRecentAlerts lists the most recently dispatched alerts.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]AlertRecord, 0, limit)
	for rows.Next() {
		var alert AlertRecord
		var changePct string
		if err := rows.Scan(
			&alert.ID,
			&alert.RunTS,
			&alert.Mode,
			&alert.Symbol,
			&alert.Venue,
			&changePct,
			&alert.Conditions,
			&alert.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		if parsed, parseErr := decimal.NewFromString(changePct); parseErr == nil {
			alert.ChangePct = parsed
		}
		alerts = append(alerts, alert)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// DeleteAlertsBefore prunes audit rows older than the given time.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan); err != nil {
		return fmt.Errorf("delete alerts before %s: %w", olderThan, err)
	}
	return nil
}

var (
	_ AlertStore     = (*Store)(nil)
	_ AdvisoryLocker = (*Store)(nil)
)
