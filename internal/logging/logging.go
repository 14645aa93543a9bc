// Package logging builds the process logger. Console output goes to stderr so
// that command output on stdout stays machine readable.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config describes the desired logging configuration.
type Config struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxFiles   int    `yaml:"max_files"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// DefaultConfig returns the configuration used before any file is loaded.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "text",
		MaxSizeMB:  50,
		MaxFiles:   3,
		MaxAgeDays: 30,
	}
}

// String returns a human-readable summary of the config.
func (c Config) String() string {
	s := fmt.Sprintf("level=%s format=%s", c.Level, c.Format)
	if c.File != "" {
		s += fmt.Sprintf(" file=%s max_size=%dMB max_files=%d max_age=%dd",
			c.File, c.MaxSizeMB, c.MaxFiles, c.MaxAgeDays)
	}
	return s
}

// swapHandler delegates to an inner handler that can be replaced at runtime.
// Loggers derived with With or WithGroup replay their derivations on the
// current inner handler, so they keep following later swaps.
type swapHandler struct {
	inner  *atomic.Pointer[slog.Handler]
	derive []func(slog.Handler) slog.Handler
}

func (h *swapHandler) current() slog.Handler {
	inner := *h.inner.Load()
	for _, d := range h.derive {
		inner = d(inner)
	}
	return inner
}

func (h *swapHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.current().Enabled(ctx, level)
}

func (h *swapHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.current().Handle(ctx, r)
}

func (h *swapHandler) with(d func(slog.Handler) slog.Handler) *swapHandler {
	derive := make([]func(slog.Handler) slog.Handler, len(h.derive), len(h.derive)+1)
	copy(derive, h.derive)
	return &swapHandler{inner: h.inner, derive: append(derive, d)}
}

func (h *swapHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return h.with(func(inner slog.Handler) slog.Handler { return inner.WithAttrs(attrs) })
}

func (h *swapHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.with(func(inner slog.Handler) slog.Handler { return inner.WithGroup(name) })
}

// Manager owns the logger and lets the CLI apply the loaded configuration
// after the logger has already been handed out.
type Manager struct {
	console  io.Writer
	levelVar *slog.LevelVar
	inner    *atomic.Pointer[slog.Handler]
	config   Config
	mu       sync.Mutex
	closer   io.Closer
}

// NewManager creates a Manager writing to console (stderr when nil) and
// returns it with a ready-to-use logger.
func NewManager(cfg Config, console io.Writer) (*Manager, *slog.Logger) {
	if console == nil {
		console = os.Stderr
	}
	m := &Manager{
		console:  console,
		levelVar: &slog.LevelVar{},
		inner:    &atomic.Pointer[slog.Handler]{},
		config:   cfg,
	}
	m.levelVar.Set(ParseLevel(cfg.Level))
	m.install(cfg)
	return m, slog.New(&swapHandler{inner: m.inner})
}

// Reconfigure applies a new configuration. Level changes take effect
// immediately; format or file changes rebuild the handler.
func (m *Manager) Reconfigure(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.levelVar.Set(ParseLevel(cfg.Level))
	old := m.config
	m.config = cfg
	if cfg.Format == old.Format && cfg.File == old.File &&
		cfg.MaxSizeMB == old.MaxSizeMB && cfg.MaxFiles == old.MaxFiles && cfg.MaxAgeDays == old.MaxAgeDays {
		return
	}
	if m.closer != nil {
		_ = m.closer.Close()
		m.closer = nil
	}
	m.install(cfg)
}

func (m *Manager) install(cfg Config) {
	w := m.console
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    positive(cfg.MaxSizeMB, 50),
			MaxBackups: positive(cfg.MaxFiles, 3),
			MaxAge:     positive(cfg.MaxAgeDays, 30),
		}
		w = io.MultiWriter(m.console, lj)
		m.closer = lj
	}

	opts := &slog.HandlerOptions{Level: m.levelVar}
	var h slog.Handler
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	m.inner.Store(&h)
}

// Config returns the current configuration snapshot.
func (m *Manager) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Close releases the log file, if any.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closer == nil {
		return nil
	}
	err := m.closer.Close()
	m.closer = nil
	return err
}

func positive(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

// ParseLevel converts a level name to slog.Level, defaulting to Info.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidLevel returns true if s is a recognized log level.
func ValidLevel(s string) bool {
	switch s {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

// ValidFormat returns true if s is a recognized log format.
func ValidFormat(s string) bool {
	return s == "text" || s == "json"
}
