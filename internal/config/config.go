// Package config loads cadence configuration from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sydlexius/cadence/internal/duplicate"
	"github.com/sydlexius/cadence/internal/library"
	"github.com/sydlexius/cadence/internal/logging"
	"github.com/sydlexius/cadence/internal/match"
	"github.com/sydlexius/cadence/internal/policy"
)

// EnvConfig names the environment variable overriding the config file path.
const EnvConfig = "CADENCE_CONFIG"

// Config holds all application configuration.
type Config struct {
	Database    DatabaseConfig    `yaml:"database"`
	Library     LibraryConfig     `yaml:"library"`
	Logging     logging.Config    `yaml:"logging"`
	Match       MatchConfig       `yaml:"match"`
	Duplicates  DuplicatesConfig  `yaml:"duplicates"`
	Inbox       InboxConfig       `yaml:"inbox"`
	Backup      BackupConfig      `yaml:"backup"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LibraryConfig holds the music library root. Relative paths in manifests
// are resolved against it.
type LibraryConfig struct {
	Path string `yaml:"path"`
}

// MatchConfig holds scoring settings. Weight maps override entries of the
// default tables by field name.
type MatchConfig struct {
	Threshold    float64            `yaml:"threshold"`
	AlbumWeights map[string]float64 `yaml:"album_weights"`
	TrackWeights map[string]float64 `yaml:"track_weights"`
}

// DuplicatesConfig selects the duplicate resolution strategy.
type DuplicatesConfig struct {
	Strategy string `yaml:"strategy"`
	// UniqueBy lists identity fields (mb_album_id, mb_track_id) that make
	// records with the same value duplicates regardless of path.
	UniqueBy []string `yaml:"unique_by"`
}

// InboxConfig holds the manifest drop directory settings.
type InboxConfig struct {
	Path         string        `yaml:"path"`
	Debounce     time.Duration `yaml:"debounce"`
	PollInterval time.Duration `yaml:"poll_interval"`
	// Rate caps manifests added per second; zero is unlimited.
	Rate float64 `yaml:"rate"`
}

// BackupConfig holds database snapshot settings.
type BackupConfig struct {
	Dir        string `yaml:"dir"`
	Retention  int    `yaml:"retention"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// MaintenanceConfig holds the optimize schedule used while watching.
// A zero interval disables it.
type MaintenanceConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Default returns a Config with sensible defaults under the user data directory.
func Default() *Config {
	data := dataDir()
	return &Config{
		Database: DatabaseConfig{Path: filepath.Join(data, "cadence.db")},
		Library:  LibraryConfig{},
		Logging:  logging.DefaultConfig(),
		Match: MatchConfig{
			Threshold: match.DefaultThreshold,
		},
		Duplicates: DuplicatesConfig{Strategy: policy.KeepExisting},
		Inbox: InboxConfig{
			Path:         filepath.Join(data, "inbox"),
			Debounce:     2 * time.Second,
			PollInterval: 30 * time.Second,
		},
		Backup: BackupConfig{
			Dir:       filepath.Join(data, "backups"),
			Retention: 7,
		},
		Maintenance: MaintenanceConfig{Interval: 24 * time.Hour},
	}
}

func dataDir() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return filepath.Join(v, "cadence")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "cadence")
	}
	return "cadence"
}

// DefaultPath returns the config file used when none is given on the
// command line: $CADENCE_CONFIG, else the user config directory.
func DefaultPath() string {
	if v := os.Getenv(EnvConfig); v != "" {
		return v
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "cadence", "config.yaml")
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is chosen by the user
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() error {
	strs := map[string]*string{
		"CADENCE_DB_PATH":            &c.Database.Path,
		"CADENCE_LIBRARY_PATH":       &c.Library.Path,
		"CADENCE_LOG_LEVEL":          &c.Logging.Level,
		"CADENCE_LOG_FORMAT":         &c.Logging.Format,
		"CADENCE_LOG_FILE":           &c.Logging.File,
		"CADENCE_DUPLICATE_STRATEGY": &c.Duplicates.Strategy,
		"CADENCE_INBOX_PATH":         &c.Inbox.Path,
		"CADENCE_BACKUP_DIR":         &c.Backup.Dir,
	}
	for key, dest := range strs {
		if v := os.Getenv(key); v != "" {
			*dest = v
		}
	}

	if v := os.Getenv("CADENCE_DUPLICATE_UNIQUE_BY"); v != "" {
		c.Duplicates.UniqueBy = nil
		for _, f := range strings.Split(v, ",") {
			if f = strings.TrimSpace(f); f != "" {
				c.Duplicates.UniqueBy = append(c.Duplicates.UniqueBy, f)
			}
		}
	}
	if v := os.Getenv("CADENCE_MATCH_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("CADENCE_MATCH_THRESHOLD: %w", err)
		}
		c.Match.Threshold = f
	}
	if v := os.Getenv("CADENCE_INBOX_DEBOUNCE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CADENCE_INBOX_DEBOUNCE: %w", err)
		}
		c.Inbox.Debounce = d
	}
	if v := os.Getenv("CADENCE_BACKUP_RETENTION"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CADENCE_BACKUP_RETENTION: %w", err)
		}
		c.Backup.Retention = n
	}
	return nil
}

func (c *Config) validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}
	if !logging.ValidFormat(c.Logging.Format) {
		return fmt.Errorf("invalid log format %q", c.Logging.Format)
	}
	if c.Match.Threshold < 0 {
		return fmt.Errorf("match threshold must not be negative: %v", c.Match.Threshold)
	}
	if !policy.Valid(c.Duplicates.Strategy) {
		return fmt.Errorf("unknown duplicate strategy %q (want one of %v)", c.Duplicates.Strategy, policy.Names())
	}
	for _, f := range c.Duplicates.UniqueBy {
		if !duplicate.ValidIdentityField(f) {
			return fmt.Errorf("unknown duplicates.unique_by field %q (want one of %v)", f, duplicate.IdentityFields())
		}
	}
	if _, err := c.Match.Scorer(); err != nil {
		return err
	}
	if c.Inbox.Debounce < 0 || c.Inbox.PollInterval < 0 {
		return errors.New("inbox durations must not be negative")
	}
	if c.Inbox.Rate < 0 {
		return fmt.Errorf("inbox rate must not be negative: %v", c.Inbox.Rate)
	}
	if c.Backup.Retention < 0 || c.Backup.MaxAgeDays < 0 {
		return errors.New("backup retention must not be negative")
	}
	if c.Maintenance.Interval < 0 {
		return errors.New("maintenance interval must not be negative")
	}
	return nil
}

// Scorer builds the record scorer from the default weight tables and the
// configured overrides.
func (m MatchConfig) Scorer() (*match.Scorer, error) {
	if len(m.AlbumWeights) == 0 && len(m.TrackWeights) == 0 {
		return match.DefaultScorer(), nil
	}
	album, err := match.WithOverrides(library.KindAlbum, match.DefaultAlbumWeights(), m.AlbumWeights)
	if err != nil {
		return nil, fmt.Errorf("album weights: %w", err)
	}
	track, err := match.WithOverrides(library.KindTrack, match.DefaultTrackWeights(), m.TrackWeights)
	if err != nil {
		return nil, fmt.Errorf("track weights: %w", err)
	}
	return match.NewScorer(album, track)
}
