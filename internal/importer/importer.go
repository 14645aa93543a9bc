// Package importer applies metadata from a candidate release to an album
// already in the library.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/sydlexius/cadence/internal/event"
	"github.com/sydlexius/cadence/internal/library"
	"github.com/sydlexius/cadence/internal/match"
	"github.com/sydlexius/cadence/internal/store"
)

// TrackChange is the field diff of one local track after import.
type TrackChange struct {
	Key  library.TrackKey    `json:"key"`
	Path string              `json:"path"`
	Diff *library.DiffResult `json:"diff"`
}

// Result describes an import, or what an import would do.
type Result struct {
	AlbumID string              `json:"album_id"`
	Matches []match.TrackMatch  `json:"-"`
	Summary match.Summary       `json:"summary"`
	Album   *library.DiffResult `json:"album"`
	Tracks  []TrackChange       `json:"tracks,omitempty"`
	// Dropped counts candidate tracks with no local counterpart.
	Dropped int `json:"dropped"`
	// NewExtras counts candidate extras the album does not have yet.
	NewExtras int           `json:"new_extras"`
	Written   store.Summary `json:"written"`
}

// Options configures an Importer.
type Options struct {
	// Sessions opens a unit of work with duplicate resolution wired in.
	Sessions  func() (*store.Session, error)
	Scorer    *match.Scorer
	Threshold float64
	Events    event.Publisher
	Logger    *slog.Logger
}

// Importer merges candidate releases into stored albums.
type Importer struct {
	sessions  func() (*store.Session, error)
	scorer    *match.Scorer
	threshold float64
	events    event.Publisher
	logger    *slog.Logger
}

// New creates an importer. A nil Scorer uses the default weights.
func New(opts Options) *Importer {
	if opts.Scorer == nil {
		opts.Scorer = match.DefaultScorer()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Importer{
		sessions:  opts.Sessions,
		scorer:    opts.Scorer,
		threshold: opts.Threshold,
		events:    opts.Events,
		logger:    opts.Logger.With(slog.String("component", "importer")),
	}
}

// Preview reports what Import would change without writing anything.
// The candidate is not modified.
func (im *Importer) Preview(ctx context.Context, albumID string, candidate *library.Album) (*Result, error) {
	if candidate == nil {
		return nil, errors.New("no candidate album")
	}
	sess, err := im.sessions()
	if err != nil {
		return nil, err
	}
	album, err := sess.GetAlbum(ctx, albumID)
	if err != nil {
		return nil, fmt.Errorf("loading album: %w", err)
	}
	res, _ := im.plan(album, candidate)
	return res, nil
}

// Import pairs the candidate's tracks with the album's, overwrites the album
// with every value the candidate sets and commits the result. Candidate
// tracks without a local counterpart are ignored. The candidate is not
// modified.
func (im *Importer) Import(ctx context.Context, albumID string, candidate *library.Album) (*Result, error) {
	if candidate == nil {
		return nil, errors.New("no candidate album")
	}
	sess, err := im.sessions()
	if err != nil {
		return nil, err
	}
	album, err := sess.GetAlbum(ctx, albumID)
	if err != nil {
		return nil, fmt.Errorf("loading album: %w", err)
	}

	res, prepared := im.plan(album, candidate)
	album.Merge(prepared, true)
	sess.MarkDirty(album)

	written, err := sess.Commit(ctx)
	if err != nil {
		return nil, fmt.Errorf("committing import: %w", err)
	}
	res.Written = written

	im.logger.Info("album imported",
		slog.Any("album", album),
		slog.Int("matched", res.Summary.Matched),
		slog.Int("missing", res.Summary.OldOnly),
		slog.Int("dropped", res.Dropped),
		slog.Int("changed_fields", len(res.Album.Changed())))
	if im.events != nil {
		im.events.Publish(event.Event{
			Type: event.AlbumImported,
			Data: map[string]any{
				"album_id": album.ID,
				"album":    album.String(),
				"matched":  res.Summary.Matched,
				"missing":  res.Summary.OldOnly,
				"dropped":  res.Dropped,
			},
		})
	}
	return res, nil
}

// plan matches the candidate against the album, re-keys matched candidate
// tracks onto their local partners, drops the rest, and diffs the album
// against the projected merge. It returns the prepared copy of the candidate.
func (im *Importer) plan(album, candidate *library.Album) (*Result, *library.Album) {
	prepared := candidate.Clone()
	matches := im.scorer.Tracks(album, prepared, im.threshold)

	res := &Result{
		AlbumID: album.ID,
		Matches: matches,
		Summary: match.Summarize(matches),
	}
	for _, m := range matches {
		switch {
		case m.Matched():
			m.New.Disc, m.New.TrackNum = m.Old.Disc, m.Old.TrackNum
		case m.New != nil:
			prepared.RemoveTrack(m.New)
			res.Dropped++
		}
	}
	for _, e := range prepared.Extras {
		if album.ExtraByKey(prepared.ExtraKey(e)) == nil {
			res.NewExtras++
		}
	}

	projected := album.Clone()
	projected.Merge(prepared.Clone(), true)
	res.Album = library.Diff(album, projected)
	for _, m := range matches {
		if !m.Matched() {
			continue
		}
		d := library.Diff(m.Old, projected.TrackByKey(m.Old.Key()))
		if d.HasDiff {
			res.Tracks = append(res.Tracks, TrackChange{Key: m.Old.Key(), Path: m.Old.Path, Diff: d})
		}
	}
	return res, prepared
}

// Add stores a new album with its tracks and extras. Clashes with stored
// records go through the session's duplicate resolution.
func (im *Importer) Add(ctx context.Context, album *library.Album) (store.Summary, error) {
	if album == nil {
		return store.Summary{}, errors.New("no album")
	}
	sess, err := im.sessions()
	if err != nil {
		return store.Summary{}, err
	}
	sess.Add(album)
	written, err := sess.Commit(ctx)
	if err != nil {
		return store.Summary{}, fmt.Errorf("adding album: %w", err)
	}

	im.logger.Info("album added",
		slog.Any("album", album),
		slog.Int("tracks", len(album.Tracks)),
		slog.Int("inserted", written.Inserted),
		slog.Int("deleted", written.Deleted))
	if im.events != nil {
		state := "stored"
		if sess.State(album) != library.StatePersistent {
			state = "discarded"
		}
		im.events.Publish(event.Event{
			Type: event.AlbumAdded,
			Data: map[string]any{
				"album_id": album.ID,
				"album":    album.String(),
				"tracks":   len(album.Tracks),
				"state":    state,
			},
		})
		im.events.Publish(event.Event{
			Type: event.BatchCommitted,
			Data: map[string]any{
				"inserted": written.Inserted,
				"updated":  written.Updated,
				"deleted":  written.Deleted,
			},
		})
	}
	return written, nil
}
