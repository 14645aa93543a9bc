package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sydlexius/cadence/internal/inbox"
	"github.com/sydlexius/cadence/internal/library"
	"github.com/sydlexius/cadence/internal/store"
)

// manifestAdder roots manifest paths at the library before adding them.
type manifestAdder struct {
	root string
	add  func(ctx context.Context, album *library.Album) (store.Summary, error)
}

func (m manifestAdder) Add(ctx context.Context, album *library.Album) (store.Summary, error) {
	library.ResolvePaths(album, m.root)
	return m.add(ctx, album)
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var debounce time.Duration
	var once bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Add album manifests dropped into the inbox directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withApp(cmd, func(a *app) error {
				svc := inbox.New(inbox.Options{
					Dir:          a.cfg.Inbox.Path,
					Debounce:     a.cfg.Inbox.Debounce,
					PollInterval: a.cfg.Inbox.PollInterval,
					Rate:         a.cfg.Inbox.Rate,
					Adder:        manifestAdder{root: a.cfg.Library.Path, add: a.importer().Add},
					Events:       a.bus,
					Logger:       a.logger,
				})
				if cmd.Flags().Changed("debounce") {
					svc.SetDebounce(debounce)
				}

				if once {
					res := svc.ProcessPending(cmd.Context())
					fmt.Fprintf(cmd.OutOrStdout(), "Processed %d manifest(s), %d failed\n", res.Processed, res.Failed)
					return nil
				}

				a.logger.Info("watching inbox", slog.String("dir", a.cfg.Inbox.Path))
				g, gctx := errgroup.WithContext(cmd.Context())
				g.Go(func() error { return svc.Start(gctx) })
				if interval := a.cfg.Maintenance.Interval; interval > 0 {
					g.Go(func() error {
						maintenanceFor(a).StartScheduler(gctx, interval)
						return nil
					})
				}
				if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 0, "Override the configured debounce interval")
	cmd.Flags().BoolVar(&once, "once", false, "Process waiting manifests and exit")
	return cmd
}
