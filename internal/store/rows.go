package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sydlexius/cadence/internal/library"
)

var albumColumns = []string{
	"id", "path", "artist", "title", "barcode", "catalog_nums", "country",
	"date", "original_date", "disc_total", "label", "media", "track_total",
	"mb_album_id", "custom", "created_at", "updated_at",
}

var trackColumns = []string{
	"id", "album_id", "path", "disc", "track_num", "title", "artist", "genres",
	"length", "mb_track_id", "custom", "created_at", "updated_at",
}

var extraColumns = []string{
	"id", "album_id", "path", "custom", "created_at", "updated_at",
}

type scanner interface{ Scan(...any) error }

func scanAlbum(row scanner) (*library.Album, error) {
	var a library.Album
	var catalogNums, date, originalDate, custom, createdAt, updatedAt string
	err := row.Scan(
		&a.ID, &a.Path, &a.Artist, &a.Title, &a.Barcode, &catalogNums, &a.Country,
		&date, &originalDate, &a.DiscTotal, &a.Label, &a.Media, &a.TrackTotal,
		&a.MBAlbumID, &custom, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.CatalogNums = unmarshalStrings(catalogNums)
	if a.Date, err = library.ParseDate(date); err != nil {
		return nil, fmt.Errorf("album %s: %w", a.ID, err)
	}
	if a.OriginalDate, err = library.ParseDate(originalDate); err != nil {
		return nil, fmt.Errorf("album %s: %w", a.ID, err)
	}
	if err := unmarshalCustom(custom, &a.Custom); err != nil {
		return nil, fmt.Errorf("album %s: %w", a.ID, err)
	}
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return &a, nil
}

func scanTrack(row scanner) (*library.Track, error) {
	var t library.Track
	var genres, custom, createdAt, updatedAt string
	err := row.Scan(
		&t.ID, &t.AlbumID, &t.Path, &t.Disc, &t.TrackNum, &t.Title, &t.Artist, &genres,
		&t.Length, &t.MBTrackID, &custom, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Genres = unmarshalStrings(genres)
	if err := unmarshalCustom(custom, &t.Custom); err != nil {
		return nil, fmt.Errorf("track %s: %w", t.ID, err)
	}
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return &t, nil
}

func scanExtra(row scanner) (*library.Extra, error) {
	var e library.Extra
	var custom, createdAt, updatedAt string
	if err := row.Scan(&e.ID, &e.AlbumID, &e.Path, &custom, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := unmarshalCustom(custom, &e.Custom); err != nil {
		return nil, fmt.Errorf("extra %s: %w", e.ID, err)
	}
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return &e, nil
}

// albumRow maps an album onto its column values. created_at is included so
// the map can feed an INSERT; updates drop it.
func albumRow(a *library.Album) map[string]any {
	return map[string]any{
		"id":            a.ID,
		"path":          a.Path,
		"artist":        a.Artist,
		"title":         a.Title,
		"barcode":       a.Barcode,
		"catalog_nums":  marshalStrings(a.CatalogNums),
		"country":       a.Country,
		"date":          a.Date.String(),
		"original_date": a.OriginalDate.String(),
		"disc_total":    a.DiscTotal,
		"label":         a.Label,
		"media":         a.Media,
		"track_total":   a.TrackTotal,
		"mb_album_id":   a.MBAlbumID,
		"custom":        marshalCustom(&a.Custom),
		"created_at":    formatTime(a.CreatedAt),
		"updated_at":    formatTime(a.UpdatedAt),
	}
}

func trackRow(t *library.Track) map[string]any {
	return map[string]any{
		"id":          t.ID,
		"album_id":    t.AlbumID,
		"path":        t.Path,
		"disc":        t.Disc,
		"track_num":   t.TrackNum,
		"title":       t.Title,
		"artist":      t.Artist,
		"genres":      marshalStrings(t.Genres),
		"length":      t.Length,
		"mb_track_id": t.MBTrackID,
		"custom":      marshalCustom(&t.Custom),
		"created_at":  formatTime(t.CreatedAt),
		"updated_at":  formatTime(t.UpdatedAt),
	}
}

func extraRow(e *library.Extra) map[string]any {
	return map[string]any{
		"id":         e.ID,
		"album_id":   e.AlbumID,
		"path":       e.Path,
		"custom":     marshalCustom(&e.Custom),
		"created_at": formatTime(e.CreatedAt),
		"updated_at": formatTime(e.UpdatedAt),
	}
}

func recordRow(r library.Record) (string, map[string]any) {
	switch v := r.(type) {
	case *library.Album:
		return "albums", albumRow(v)
	case *library.Track:
		return "tracks", trackRow(v)
	case *library.Extra:
		return "extras", extraRow(v)
	}
	panic(fmt.Sprintf("store: unsupported record type %T", r))
}

func tableFor(kind library.Kind) string {
	switch kind {
	case library.KindAlbum:
		return "albums"
	case library.KindTrack:
		return "tracks"
	case library.KindExtra:
		return "extras"
	}
	panic(fmt.Sprintf("store: unknown kind %q", kind))
}

// marshalStrings encodes a string slice as a JSON array string.
func marshalStrings(s []string) string {
	if len(s) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(s)
	return string(data)
}

// unmarshalStrings decodes a JSON array string; malformed input yields nil.
func unmarshalStrings(data string) []string {
	if data == "" || data == "[]" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil
	}
	return out
}

func marshalCustom(f *library.Fields) string {
	if f.Len() == 0 {
		return "{}"
	}
	data, err := json.Marshal(f)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func unmarshalCustom(data string, f *library.Fields) error {
	if data == "" || data == "{}" {
		return nil
	}
	if err := json.Unmarshal([]byte(data), f); err != nil {
		return fmt.Errorf("decoding custom fields: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a time string, handling both RFC3339 and SQLite datetime formats.
func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}

func closeRows(rows *sql.Rows) {
	_ = rows.Close()
}
