package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	sq "github.com/Masterminds/squirrel"

	"github.com/sydlexius/cadence/internal/library"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Counts holds the number of stored records per kind.
type Counts struct {
	Albums int `json:"albums"`
	Tracks int `json:"tracks"`
	Extras int `json:"extras"`
}

// Store reads library records from the database. Writes go through a Session.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a store over an open, migrated database.
func New(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		db:     db,
		logger: logger.With(slog.String("component", "store")),
	}
}

// GetAlbum loads an album together with its tracks and extras.
func (s *Store) GetAlbum(ctx context.Context, id string) (*library.Album, error) {
	query, args, err := sq.Select(albumColumns...).From("albums").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building album query: %w", err)
	}
	a, err := scanAlbum(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("album %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting album: %w", err)
	}

	tracks, err := s.listTracks(ctx, sq.Eq{"album_id": id})
	if err != nil {
		return nil, err
	}
	extras, err := s.listExtras(ctx, sq.Eq{"album_id": id})
	if err != nil {
		return nil, err
	}
	a.Tracks = tracks
	a.Extras = extras
	return a, nil
}

// ListAlbums loads every album with its children, ordered by artist and title.
func (s *Store) ListAlbums(ctx context.Context) ([]*library.Album, error) {
	query, args, err := sq.Select(albumColumns...).From("albums").
		OrderBy("artist", "title", "path", "id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("building album query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing albums: %w", err)
	}
	defer closeRows(rows)

	var albums []*library.Album
	byID := make(map[string]*library.Album)
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning album: %w", err)
		}
		albums = append(albums, a)
		byID[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing albums: %w", err)
	}

	tracks, err := s.listTracks(ctx, nil)
	if err != nil {
		return nil, err
	}
	for _, t := range tracks {
		if a := byID[t.AlbumID]; a != nil {
			a.Tracks = append(a.Tracks, t)
		}
	}
	extras, err := s.listExtras(ctx, nil)
	if err != nil {
		return nil, err
	}
	for _, e := range extras {
		if a := byID[e.AlbumID]; a != nil {
			a.Extras = append(a.Extras, e)
		}
	}
	return albums, nil
}

// QueryAll returns every stored record of the given kind. Tracks and extras
// are returned attached to their loaded albums.
func (s *Store) QueryAll(ctx context.Context, kind library.Kind) ([]library.Record, error) {
	albums, err := s.ListAlbums(ctx)
	if err != nil {
		return nil, err
	}
	return flatten(albums, kind), nil
}

func flatten(albums []*library.Album, kind library.Kind) []library.Record {
	var out []library.Record
	for _, a := range albums {
		switch kind {
		case library.KindAlbum:
			out = append(out, a)
		case library.KindTrack:
			for _, t := range a.Tracks {
				out = append(out, t)
			}
		case library.KindExtra:
			for _, e := range a.Extras {
				out = append(out, e)
			}
		}
	}
	return out
}

// Counts returns the number of stored albums, tracks and extras.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	for _, t := range []struct {
		table string
		dst   *int
	}{
		{"albums", &c.Albums},
		{"tracks", &c.Tracks},
		{"extras", &c.Extras},
	} {
		query, args, err := sq.Select("COUNT(*)").From(t.table).ToSql()
		if err != nil {
			return Counts{}, fmt.Errorf("building count query: %w", err)
		}
		if err := s.db.QueryRowContext(ctx, query, args...).Scan(t.dst); err != nil {
			return Counts{}, fmt.Errorf("counting %s: %w", t.table, err)
		}
	}
	return c, nil
}

func (s *Store) listTracks(ctx context.Context, where sq.Sqlizer) ([]*library.Track, error) {
	b := sq.Select(trackColumns...).From("tracks").OrderBy("album_id", "disc", "track_num", "path")
	if where != nil {
		b = b.Where(where)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building track query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tracks: %w", err)
	}
	defer closeRows(rows)

	var tracks []*library.Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning track: %w", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

func (s *Store) listExtras(ctx context.Context, where sq.Sqlizer) ([]*library.Extra, error) {
	b := sq.Select(extraColumns...).From("extras").OrderBy("album_id", "path")
	if where != nil {
		b = b.Where(where)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building extra query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing extras: %w", err)
	}
	defer closeRows(rows)

	var extras []*library.Extra
	for rows.Next() {
		e, err := scanExtra(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning extra: %w", err)
		}
		extras = append(extras, e)
	}
	return extras, rows.Err()
}
