// Package maintenance reports on and tidies the library database.
package maintenance

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sydlexius/cadence/internal/backup"
	"github.com/sydlexius/cadence/internal/database"
	"github.com/sydlexius/cadence/internal/store"
)

const lastOptimizeKey = "maintenance.last_optimize_at"

// Counter reports record counts.
type Counter interface {
	Counts(ctx context.Context) (store.Counts, error)
}

// Status holds database maintenance status information.
type Status struct {
	DBFileSize     int64        `json:"db_file_size"`
	WALFileSize    int64        `json:"wal_file_size"`
	PageCount      int64        `json:"page_count"`
	PageSize       int64        `json:"page_size"`
	FreePages      int64        `json:"free_pages"`
	SchemaVersion  int64        `json:"schema_version"`
	Records        store.Counts `json:"records"`
	LastOptimizeAt string       `json:"last_optimize_at,omitempty"`
	LastBackupAt   string       `json:"last_backup_at,omitempty"`
}

// Service provides database maintenance operations.
type Service struct {
	db      *sql.DB
	dbPath  string
	counter Counter
	logger  *slog.Logger
}

// NewService creates a maintenance service. counter may be nil.
func NewService(db *sql.DB, dbPath string, counter Counter, logger *slog.Logger) *Service {
	return &Service{
		db:      db,
		dbPath:  dbPath,
		counter: counter,
		logger:  logger.With(slog.String("component", "maintenance")),
	}
}

// Status returns current database maintenance status. Individual probes that
// fail are logged and left at zero.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	st := &Status{}

	if info, err := os.Stat(s.dbPath); err == nil {
		st.DBFileSize = info.Size()
	}
	if info, err := os.Stat(s.dbPath + "-wal"); err == nil {
		st.WALFileSize = info.Size()
	}

	for pragma, dest := range map[string]*int64{
		"page_count":     &st.PageCount,
		"page_size":      &st.PageSize,
		"freelist_count": &st.FreePages,
	} {
		if err := s.db.QueryRowContext(ctx, "PRAGMA "+pragma).Scan(dest); err != nil {
			s.logger.Warn("reading pragma", "pragma", pragma, "error", err)
		}
	}

	v, err := database.Version(s.db)
	if err != nil {
		return nil, err
	}
	st.SchemaVersion = v

	if s.counter != nil {
		counts, err := s.counter.Counts(ctx)
		if err != nil {
			return nil, fmt.Errorf("counting records: %w", err)
		}
		st.Records = counts
	}

	st.LastOptimizeAt = s.setting(ctx, lastOptimizeKey)
	st.LastBackupAt = s.setting(ctx, backup.LastBackupKey)
	return st, nil
}

// Optimize runs PRAGMA optimize followed by a WAL checkpoint.
func (s *Service) Optimize(ctx context.Context) error {
	s.logger.Info("running PRAGMA optimize")
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return fmt.Errorf("PRAGMA optimize: %w", err)
	}

	s.logger.Info("running WAL checkpoint")
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("WAL checkpoint: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		lastOptimizeKey, now, now)
	if err != nil {
		s.logger.Warn("recording optimize timestamp", "error", err)
	}

	s.logger.Info("optimize complete")
	return nil
}

// Vacuum runs VACUUM to rebuild the database file.
func (s *Service) Vacuum(ctx context.Context) error {
	s.logger.Info("running VACUUM")
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("VACUUM: %w", err)
	}
	s.logger.Info("vacuum complete")
	return nil
}

// StartScheduler runs optimize on a fixed interval until the context is canceled.
func (s *Service) StartScheduler(ctx context.Context, interval time.Duration) {
	s.logger.Info("maintenance scheduler started",
		slog.String("interval", interval.String()))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("maintenance scheduler stopped")
			return
		case <-ticker.C:
			if err := s.Optimize(ctx); err != nil {
				s.logger.Error("scheduled optimize failed", slog.Any("error", err))
			}
		}
	}
}

func (s *Service) setting(ctx context.Context, key string) string {
	var v string
	if err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v); err != nil {
		return ""
	}
	return v
}
