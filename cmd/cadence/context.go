package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sydlexius/cadence/internal/config"
	"github.com/sydlexius/cadence/internal/logging"
)

// commandContext carries state shared by all subcommands of one invocation.
type commandContext struct {
	configFlag *string

	cfg    *config.Config
	logs   *logging.Manager
	logger *slog.Logger

	// stdin feeds the prompt strategy; interactive overrides terminal
	// detection. Both are replaced in tests.
	stdin       io.Reader
	interactive func() bool
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// setup builds the logger on the command's stderr and loads the config.
func (c *commandContext) setup(cmd *cobra.Command) error {
	c.logs, c.logger = logging.NewManager(logging.DefaultConfig(), cmd.ErrOrStderr())
	if c.stdin == nil {
		c.stdin = cmd.InOrStdin()
	}

	path := strings.TrimSpace(*c.configFlag)
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	c.logs.Reconfigure(cfg.Logging)
	c.cfg = cfg

	c.logger.Debug("configuration loaded",
		slog.String("path", path),
		slog.String("database", cfg.Database.Path),
		slog.String("strategy", cfg.Duplicates.Strategy),
		slog.String("logging", cfg.Logging.String()))
	return nil
}

func (c *commandContext) close() error {
	if c.logs == nil {
		return nil
	}
	return c.logs.Close()
}
