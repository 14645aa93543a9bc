// Package backup takes consistent snapshots of the library database.
package backup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	filePrefix  = "cadence-"
	fileSuffix  = ".db"
	stampLayout = "20060102-150405"

	// LastBackupKey is the settings key holding the time of the last backup.
	LastBackupKey = "backup.last_at"
)

// backupPattern matches backup filenames: cadence-YYYYMMDD-HHMMSS.db
var backupPattern = regexp.MustCompile(`^cadence-\d{8}-\d{6}\.db$`)

// Info describes a backup file.
type Info struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Options configures the backup service.
type Options struct {
	Dir string
	// Retention is the number of backups kept by Prune. Zero keeps all.
	Retention int
	// MaxAgeDays removes backups older than this many days. Zero disables it.
	MaxAgeDays int
}

// Service manages database backups.
type Service struct {
	db         *sql.DB
	dir        string
	retention  int
	maxAgeDays int
	now        func() time.Time
	logger     *slog.Logger
}

// NewService creates a backup service.
func NewService(db *sql.DB, opts Options, logger *slog.Logger) *Service {
	return &Service{
		db:         db,
		dir:        opts.Dir,
		retention:  opts.Retention,
		maxAgeDays: opts.MaxAgeDays,
		now:        time.Now,
		logger:     logger.With(slog.String("component", "backup")),
	}
}

// Dir returns the backup directory.
func (s *Service) Dir() string { return s.dir }

// Backup writes a snapshot of the database using VACUUM INTO and then prunes
// old snapshots.
func (s *Service) Backup(ctx context.Context) (*Info, error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	now := s.now().UTC()
	filename := filePrefix + now.Format(stampLayout) + fileSuffix
	dest := filepath.Join(s.dir, filename)
	if _, err := os.Stat(dest); err == nil {
		return nil, fmt.Errorf("backup %s already exists", filename)
	}

	s.logger.Info("starting backup", slog.String("dest", dest))
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return nil, fmt.Errorf("VACUUM INTO: %w", err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("stat backup file: %w", err)
	}
	s.recordLastBackup(ctx, now)

	s.logger.Info("backup complete",
		slog.String("filename", filename),
		slog.Int64("size", info.Size()))

	if err := s.Prune(); err != nil {
		s.logger.Warn("backup prune failed", slog.Any("error", err))
	}

	return &Info{Filename: filename, Size: info.Size(), CreatedAt: now}, nil
}

func (s *Service) recordLastBackup(ctx context.Context, at time.Time) {
	stamp := at.Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		LastBackupKey, stamp, stamp)
	if err != nil {
		s.logger.Warn("recording backup timestamp", "error", err)
	}
}

// List returns all backup files, newest first.
func (s *Service) List() ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var backups []Info
	for _, entry := range entries {
		if entry.IsDir() || !backupPattern.MatchString(entry.Name()) {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}

		stamp := strings.TrimSuffix(strings.TrimPrefix(entry.Name(), filePrefix), fileSuffix)
		ts, err := time.Parse(stampLayout, stamp)
		if err != nil {
			ts = fi.ModTime()
		}
		backups = append(backups, Info{Filename: entry.Name(), Size: fi.Size(), CreatedAt: ts})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// Delete removes a single backup file by filename.
func (s *Service) Delete(filename string) error {
	if !IsValidFilename(filename) {
		return fmt.Errorf("invalid backup filename %q", filename)
	}
	if err := os.Remove(filepath.Join(s.dir, filename)); err != nil { //nolint:gosec // G703: filename validated above
		return fmt.Errorf("removing backup: %w", err)
	}
	s.logger.Info("backup deleted", slog.String("filename", filename))
	return nil
}

// Prune deletes backups beyond the retention count and older than the max age.
func (s *Service) Prune() error {
	backups, err := s.List()
	if err != nil {
		return err
	}

	var cutoff time.Time
	if s.maxAgeDays > 0 {
		cutoff = s.now().UTC().AddDate(0, 0, -s.maxAgeDays)
	}
	for i, b := range backups {
		overCount := s.retention > 0 && i >= s.retention
		tooOld := !cutoff.IsZero() && b.CreatedAt.Before(cutoff)
		if !overCount && !tooOld {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, b.Filename)); err != nil {
			s.logger.Warn("failed to remove old backup",
				slog.String("filename", b.Filename),
				slog.Any("error", err))
			continue
		}
		s.logger.Info("pruned backup",
			slog.String("filename", b.Filename),
			slog.Bool("over_retention", overCount),
			slog.Bool("too_old", tooOld))
	}
	return nil
}

// IsValidFilename checks that filename matches the backup pattern and
// contains no path separators.
func IsValidFilename(filename string) bool {
	if strings.ContainsAny(filename, `/\`) || strings.Contains(filename, "..") {
		return false
	}
	return backupPattern.MatchString(filename)
}
