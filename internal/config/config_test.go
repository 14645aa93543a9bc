package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/sydlexius/cadence/internal/match"
	"github.com/sydlexius/cadence/internal/policy"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/data")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/tmp/data/cadence/cadence.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Match.Threshold != match.DefaultThreshold {
		t.Errorf("Threshold = %v, want %v", cfg.Match.Threshold, match.DefaultThreshold)
	}
	if cfg.Duplicates.Strategy != policy.KeepExisting {
		t.Errorf("Strategy = %q, want %q", cfg.Duplicates.Strategy, policy.KeepExisting)
	}
	if cfg.Inbox.Debounce != 2*time.Second {
		t.Errorf("Debounce = %v, want 2s", cfg.Inbox.Debounce)
	}
	if cfg.Backup.Retention != 7 {
		t.Errorf("Retention = %d, want 7", cfg.Backup.Retention)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /srv/cadence/library.db
library:
  path: /music
logging:
  level: debug
  format: json
match:
  threshold: 0.8
  track_weights:
    length: 0.3
duplicates:
  strategy: merge
  unique_by: [mb_album_id]
inbox:
  path: /srv/inbox
  debounce: 500ms
  rate: 5
backup:
  dir: /srv/backups
  retention: 3
maintenance:
  interval: 6h
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"database", cfg.Database.Path, "/srv/cadence/library.db"},
		{"library", cfg.Library.Path, "/music"},
		{"log level", cfg.Logging.Level, "debug"},
		{"log format", cfg.Logging.Format, "json"},
		{"threshold", cfg.Match.Threshold, 0.8},
		{"strategy", cfg.Duplicates.Strategy, policy.Merge},
		{"inbox", cfg.Inbox.Path, "/srv/inbox"},
		{"debounce", cfg.Inbox.Debounce, 500 * time.Millisecond},
		{"poll default kept", cfg.Inbox.PollInterval, 30 * time.Second},
		{"inbox rate", cfg.Inbox.Rate, 5.0},
		{"backup dir", cfg.Backup.Dir, "/srv/backups"},
		{"retention", cfg.Backup.Retention, 3},
		{"maintenance", cfg.Maintenance.Interval, 6 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}

	if !slices.Equal(cfg.Duplicates.UniqueBy, []string{"mb_album_id"}) {
		t.Errorf("UniqueBy = %q, want [mb_album_id]", cfg.Duplicates.UniqueBy)
	}

	s, err := cfg.Match.Scorer()
	if err != nil {
		t.Fatalf("Scorer: %v", err)
	}
	if s == match.DefaultScorer() {
		t.Error("expected a custom scorer for weight overrides")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "database:\n  path: /from/file.db\nduplicates:\n  strategy: merge\n")
	t.Setenv("CADENCE_DB_PATH", "/from/env.db")
	t.Setenv("CADENCE_DUPLICATE_STRATEGY", "keep-newest")
	t.Setenv("CADENCE_MATCH_THRESHOLD", "0.9")
	t.Setenv("CADENCE_INBOX_DEBOUNCE", "1s")
	t.Setenv("CADENCE_BACKUP_RETENTION", "10")
	t.Setenv("CADENCE_DUPLICATE_UNIQUE_BY", "mb_album_id, mb_track_id")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/from/env.db" {
		t.Errorf("Database.Path = %q, want env value", cfg.Database.Path)
	}
	if cfg.Duplicates.Strategy != policy.KeepNewest {
		t.Errorf("Strategy = %q, want keep-newest", cfg.Duplicates.Strategy)
	}
	if cfg.Match.Threshold != 0.9 {
		t.Errorf("Threshold = %v, want 0.9", cfg.Match.Threshold)
	}
	if cfg.Inbox.Debounce != time.Second {
		t.Errorf("Debounce = %v, want 1s", cfg.Inbox.Debounce)
	}
	if cfg.Backup.Retention != 10 {
		t.Errorf("Retention = %d, want 10", cfg.Backup.Retention)
	}
	if !slices.Equal(cfg.Duplicates.UniqueBy, []string{"mb_album_id", "mb_track_id"}) {
		t.Errorf("UniqueBy = %q, want both identity fields", cfg.Duplicates.UniqueBy)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		env     map[string]string
		wantErr string
	}{
		{name: "bad yaml", body: "database: [", wantErr: "loading config file"},
		{name: "empty db path", body: "database:\n  path: \"\"\n", wantErr: "database path"},
		{name: "log level", body: "logging:\n  level: loud\n", wantErr: "log level"},
		{name: "log format", body: "logging:\n  format: xml\n", wantErr: "log format"},
		{name: "negative threshold", body: "match:\n  threshold: -0.1\n", wantErr: "threshold"},
		{name: "strategy", body: "duplicates:\n  strategy: coin-flip\n", wantErr: "duplicate strategy"},
		{name: "unique_by", body: "duplicates:\n  unique_by: [isrc]\n", wantErr: "unique_by"},
		{name: "unknown weight field", body: "match:\n  album_weights:\n    colour: 1\n", wantErr: "album weights"},
		{name: "weight out of range", body: "match:\n  track_weights:\n    title: 2\n", wantErr: "track weights"},
		{name: "negative inbox rate", body: "inbox:\n  rate: -1\n", wantErr: "inbox rate"},
		{name: "negative retention", body: "backup:\n  retention: -1\n", wantErr: "retention"},
		{name: "env threshold", env: map[string]string{"CADENCE_MATCH_THRESHOLD": "high"}, wantErr: "CADENCE_MATCH_THRESHOLD"},
		{name: "env debounce", env: map[string]string{"CADENCE_INBOX_DEBOUNCE": "soon"}, wantErr: "CADENCE_INBOX_DEBOUNCE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv(EnvConfig, "/etc/cadence.yaml")
	if got := DefaultPath(); got != "/etc/cadence.yaml" {
		t.Errorf("DefaultPath = %q, want env value", got)
	}

	t.Setenv(EnvConfig, "")
	t.Setenv("XDG_CONFIG_HOME", "/home/u/.config")
	if got := DefaultPath(); got != "/home/u/.config/cadence/config.yaml" {
		t.Errorf("DefaultPath = %q", got)
	}
}

func TestMatchConfig_DefaultScorer(t *testing.T) {
	s, err := MatchConfig{Threshold: 0.7}.Scorer()
	if err != nil {
		t.Fatalf("Scorer: %v", err)
	}
	if s != match.DefaultScorer() {
		t.Error("expected the default scorer without overrides")
	}
}
