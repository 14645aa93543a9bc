// Package inbox watches a drop directory for album manifests and adds them
// to the library.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/sydlexius/cadence/internal/event"
	"github.com/sydlexius/cadence/internal/filesystem"
	"github.com/sydlexius/cadence/internal/library"
	"github.com/sydlexius/cadence/internal/store"
)

// Suffixes appended to a manifest once it has been handled.
const (
	DoneSuffix   = ".done"
	FailedSuffix = ".failed"
)

// Adder stores a decoded album.
type Adder interface {
	Add(ctx context.Context, album *library.Album) (store.Summary, error)
}

// Options configures the inbox service.
type Options struct {
	Dir          string
	Debounce     time.Duration
	PollInterval time.Duration
	// Rate caps manifests handled per second. Zero means no limit.
	Rate         float64
	Adder        Adder
	Events       event.Publisher
	Logger       *slog.Logger
}

// Result counts the manifests handled by one pass over the inbox.
type Result struct {
	Processed int
	Failed    int
}

// Service turns manifests dropped into the inbox directory into albums.
type Service struct {
	dir          string
	adder        Adder
	events       event.Publisher
	logger       *slog.Logger
	debounce     time.Duration
	pollInterval time.Duration
	limiter      *rate.Limiter

	mu sync.Mutex
}

// New creates an inbox service.
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Service{
		dir:          opts.Dir,
		adder:        opts.Adder,
		events:       opts.Events,
		logger:       logger.With(slog.String("component", "inbox")),
		debounce:     opts.Debounce,
		pollInterval: opts.PollInterval,
	}
	if s.debounce <= 0 {
		s.debounce = time.Second
	}
	if s.pollInterval <= 0 {
		s.pollInterval = time.Minute
	}
	if opts.Rate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.Rate), 1)
	}
	return s
}

// SetDebounce overrides the debounce interval.
func (s *Service) SetDebounce(d time.Duration) {
	s.debounce = d
}

// Start processes anything already waiting, then watches the inbox until ctx
// is canceled. When fsnotify is unavailable for the directory the service
// still runs, polling on PollInterval.
func (s *Service) Start(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("creating inbox: %w", err)
	}
	s.ProcessPending(ctx)

	var eventCh <-chan fsnotify.Event
	var errCh <-chan error
	if Probe(s.dir, 2*time.Second) {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			s.logger.Warn("fsnotify unavailable, running poll-only", "error", err)
		} else {
			defer w.Close() //nolint:errcheck
			if err := w.Add(s.dir); err != nil {
				return fmt.Errorf("watching inbox: %w", err)
			}
			eventCh, errCh = w.Events, w.Errors
		}
	} else {
		s.logger.Warn("inbox does not deliver change events, running poll-only", "path", s.dir)
	}

	s.logger.Info("inbox watcher starting",
		slog.String("path", s.dir),
		slog.Bool("notify", eventCh != nil),
		slog.String("poll_interval", s.pollInterval.String()))

	pollTicker := time.NewTicker(s.pollInterval)
	defer pollTicker.Stop()

	// Starts stopped; reset on each manifest event.
	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("inbox watcher stopping")
			return nil

		case ev, ok := <-eventCh:
			if !ok {
				return errors.New("fsnotify event channel closed")
			}
			if !isManifest(ev.Name) || !(ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write)) {
				continue
			}
			if !debounceTimer.Stop() {
				select {
				case <-debounceTimer.C:
				default:
				}
			}
			debounceTimer.Reset(s.debounce)
			pending = true

		case err, ok := <-errCh:
			if !ok {
				return errors.New("fsnotify error channel closed")
			}
			s.logger.Error("fsnotify error", "error", err)

		case <-debounceTimer.C:
			if pending {
				pending = false
				s.ProcessPending(ctx)
			}

		case <-pollTicker.C:
			if !pending {
				s.ProcessPending(ctx)
			}
		}
	}
}

// ProcessPending handles every manifest currently in the inbox, in name
// order. Each is renamed with DoneSuffix or FailedSuffix afterwards.
func (s *Service) ProcessPending(ctx context.Context) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res Result
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Error("reading inbox", "path", s.dir, "error", err)
		return res
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && isManifest(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				break
			}
		}
		path := filepath.Join(s.dir, name)
		if err := s.process(ctx, path); err != nil {
			res.Failed++
			s.fail(path, err)
			continue
		}
		res.Processed++
		s.finish(path, DoneSuffix)
	}
	if res.Processed+res.Failed > 0 {
		s.logger.Info("inbox processed",
			slog.Int("processed", res.Processed),
			slog.Int("failed", res.Failed))
	}
	return res
}

func (s *Service) process(ctx context.Context, path string) error {
	album, err := library.ReadAlbumFile(path)
	if err != nil {
		return err
	}
	if _, err := s.adder.Add(ctx, album); err != nil {
		return err
	}
	s.logger.Debug("manifest added", slog.String("file", filepath.Base(path)), slog.Any("album", album))
	return nil
}

func (s *Service) fail(path string, cause error) {
	s.logger.Error("manifest failed", slog.String("file", filepath.Base(path)), slog.Any("error", cause))
	if s.events != nil {
		s.events.Publish(event.Event{
			Type: event.InboxFailed,
			Data: map[string]any{
				"file":  filepath.Base(path),
				"error": cause.Error(),
			},
		})
	}
	s.finish(path, FailedSuffix)
}

func (s *Service) finish(path, suffix string) {
	if err := filesystem.Move(path, path+suffix); err != nil {
		s.logger.Error("renaming handled manifest", "file", path, "error", err)
	}
}

func isManifest(name string) bool {
	base := filepath.Base(name)
	return !strings.HasPrefix(base, ".") && strings.EqualFold(filepath.Ext(base), ".json")
}
