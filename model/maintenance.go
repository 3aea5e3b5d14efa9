package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const maintenanceLockID = 91423001

// RunMaintenance executes housekeeping tasks.
// Tasks are idempotent and safe to run multiple times.
func RunMaintenance(ctx context.Context, s *Store, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	logger.Info("maintenance: start")

	// Try to acquire a DB-level singleton lock (Postgres only).
	unlock, err := tryAcquireLock(ctx, s)
	if err != nil {
		return err
	}
	if unlock != nil {
		defer unlock()
	}

	// 1) Delete API tokens that are either disabled or expired
	if err := deleteInvalidAPITokens(ctx, s); err != nil {
		return fmt.Errorf("delete invalid API tokens: %w", err)
	}

	// 2) Delete consumed and expired one-time codes
	if err := deleteStaleOneTimeCodes(ctx, s); err != nil {
		return fmt.Errorf("delete one-time codes: %w", err)
	}

	// 3) Expire lapsed subscriptions
	n, err := s.ExpireSubscriptions(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("expire subscriptions: %w", err)
	}
	if n > 0 {
		logger.Info("maintenance: subscriptions expired", "count", n)
	}

	// 4) Run VACUUM/ANALYZE depending on the DB engine
	if err := vacuumAnalyze(ctx, s); err != nil {
		return fmt.Errorf("vacuum/analyze: %w", err)
	}

	logger.Info("maintenance: done", "duration", time.Since(start).Truncate(time.Millisecond).String())
	return nil
}

// --------------------------------------------------------------------
// DB locking (only relevant for Postgres, safe no-op for SQLite)
// --------------------------------------------------------------------

func tryAcquireLock(ctx context.Context, s *Store) (func(), error) {
	sqlDB, err := s.db.DB()
	if err != nil {
		return nil, err
	}

	switch s.db.Dialector.Name() {
	case "postgres":
		var got bool
		if err := sqlDB.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", maintenanceLockID).Scan(&got); err != nil {
			return nil, err
		}
		if !got {
			return nil, errors.New("another maintenance run is in progress")
		}
		return func() {
			_, _ = sqlDB.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", maintenanceLockID)
		}, nil
	default:
		// No locking available in SQLite
		return nil, nil
	}
}

// --------------------------------------------------------------------
// Maintenance tasks
// --------------------------------------------------------------------

// deleteInvalidAPITokens removes tokens that are explicitly disabled
// or past their expiration date.
func deleteInvalidAPITokens(ctx context.Context, s *Store) error {
	return s.db.WithContext(ctx).
		Exec(`DELETE FROM api_tokens WHERE disabled = ? OR (expires_at IS NOT NULL AND expires_at < ?)`,
			true, time.Now().UTC()).
		Error
}

// deleteStaleOneTimeCodes removes codes that are consumed or expired for
// more than a day.
func deleteStaleOneTimeCodes(ctx context.Context, s *Store) error {
	return s.db.WithContext(ctx).
		Exec(`DELETE FROM one_time_codes WHERE consumed_at IS NOT NULL OR expires_at < ?`,
			time.Now().UTC().Add(-24*time.Hour)).
		Error
}

// vacuumAnalyze runs database cleanup commands depending on DB engine.
func vacuumAnalyze(ctx context.Context, s *Store) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	switch s.db.Dialector.Name() {
	case "postgres":
		_, err = sqlDB.ExecContext(ctx, "VACUUM (ANALYZE)")
	case "sqlite":
		_, err = sqlDB.ExecContext(ctx, "VACUUM")
		if err == nil {
			_, _ = sqlDB.ExecContext(ctx, "PRAGMA optimize")
		}
	}
	return err
}
