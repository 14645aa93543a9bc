package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sydlexius/cadence/internal/config"
	"github.com/sydlexius/cadence/internal/database"
	"github.com/sydlexius/cadence/internal/duplicate"
	"github.com/sydlexius/cadence/internal/event"
	"github.com/sydlexius/cadence/internal/importer"
	"github.com/sydlexius/cadence/internal/library"
	"github.com/sydlexius/cadence/internal/match"
	"github.com/sydlexius/cadence/internal/policy"
	"github.com/sydlexius/cadence/internal/store"
)

// app holds the services opened for a single command.
type app struct {
	ctx    *commandContext
	cfg    *config.Config
	db     *sql.DB
	store  *store.Store
	bus    *event.Bus
	scorer *match.Scorer
	logger *slog.Logger
	cmd    *cobra.Command
}

// withApp opens and migrates the database, starts the event bus, and runs fn.
// Everything is torn down when fn returns.
func (c *commandContext) withApp(cmd *cobra.Command, fn func(*app) error) error {
	db, err := database.Open(c.cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	if err := database.Migrate(db); err != nil {
		return err
	}

	scorer, err := c.cfg.Match.Scorer()
	if err != nil {
		return err
	}

	bus := event.NewBus(c.logger, 0)
	bus.SubscribeAll(logEvent(c.logger))
	go bus.Start()
	defer bus.Close()

	return fn(&app{
		ctx:    c,
		cfg:    c.cfg,
		db:     db,
		store:  store.New(db, c.logger),
		bus:    bus,
		scorer: scorer,
		logger: c.logger,
		cmd:    cmd,
	})
}

// newSession opens a unit of work whose duplicates are handled by the
// configured strategy and identity fields.
func (a *app) newSession() (*store.Session, error) {
	sess := a.store.NewSession()
	resolver, err := policy.New(a.cfg.Duplicates.Strategy, sess, policy.Options{
		Events:      a.bus,
		Logger:      a.logger,
		In:          a.ctx.stdin,
		Out:         a.cmd.ErrOrStderr(),
		Interactive: a.ctx.interactive,
	})
	if err != nil {
		return nil, fmt.Errorf("building duplicate strategy: %w", err)
	}

	engine := duplicate.NewEngine(duplicate.Options{
		Store:     sess,
		Resolvers: []duplicate.Resolver{resolver},
		Logger:    a.logger,
	})
	if err := engine.AddIdentityPredicates(a.cfg.Duplicates.UniqueBy); err != nil {
		return nil, err
	}
	sess.SetEngine(engine)
	return sess, nil
}

func (a *app) importer() *importer.Importer {
	return importer.New(importer.Options{
		Sessions:  a.newSession,
		Scorer:    a.scorer,
		Threshold: a.cfg.Match.Threshold,
		Events:    a.bus,
		Logger:    a.logger,
	})
}

// readManifest decodes an album manifest and roots its relative paths at
// the configured library path.
func (a *app) readManifest(path string) (*library.Album, error) {
	album, err := library.ReadAlbumFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	library.ResolvePaths(album, a.cfg.Library.Path)
	return album, nil
}

func logEvent(logger *slog.Logger) event.Handler {
	logger = logger.With(slog.String("component", "events"))
	return func(e event.Event) {
		attrs := make([]any, 0, len(e.Data)+1)
		attrs = append(attrs, slog.String("type", string(e.Type)))
		for k, v := range e.Data {
			attrs = append(attrs, slog.Any(k, v))
		}
		logger.Debug("event", attrs...)
	}
}
