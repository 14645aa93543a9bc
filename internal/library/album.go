package library

import (
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Album is a release owning its tracks and extras.
type Album struct {
	ID           string    `json:"id,omitempty"`
	Path         string    `json:"path"`
	Artist       string    `json:"artist"`
	Title        string    `json:"title"`
	Barcode      string    `json:"barcode,omitempty"`
	CatalogNums  []string  `json:"catalog_nums,omitempty"`
	Country      string    `json:"country,omitempty"`
	Date         Date      `json:"date"`
	OriginalDate Date      `json:"original_date"`
	DiscTotal    int       `json:"disc_total,omitempty"`
	Label        string    `json:"label,omitempty"`
	Media        string    `json:"media,omitempty"`
	TrackTotal   int       `json:"track_total,omitempty"`
	MBAlbumID    string    `json:"mb_album_id,omitempty"`
	Custom       Fields    `json:"custom"`
	Tracks       []*Track  `json:"tracks"`
	Extras       []*Extra  `json:"extras"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Kind returns KindAlbum.
func (a *Album) Kind() Kind { return KindAlbum }

// RecordID returns the store ID.
func (a *Album) RecordID() string { return a.ID }

// RecordPath returns the album directory.
func (a *Album) RecordPath() string { return a.Path }

// CustomFields returns the album's custom field map.
func (a *Album) CustomFields() *Fields { return &a.Custom }

// Created returns the creation time.
func (a *Album) Created() time.Time { return a.CreatedAt }

// String renders "Artist - Title (year)".
func (a *Album) String() string {
	s := a.Artist + " - " + a.Title
	if !a.Date.IsZero() {
		s += " (" + a.Date.Format("2006") + ")"
	}
	return s
}

// LogValue implements slog.LogValuer.
func (a *Album) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("kind", string(KindAlbum)),
		slog.String("id", a.ID),
		slog.String("artist", a.Artist),
		slog.String("title", a.Title),
		slog.String("path", a.Path),
	)
}

// AddTrack re-parents t onto the album.
func (a *Album) AddTrack(t *Track) {
	t.AlbumID = a.ID
	a.Tracks = append(a.Tracks, t)
}

// AddExtra re-parents e onto the album.
func (a *Album) AddExtra(e *Extra) {
	e.AlbumID = a.ID
	a.Extras = append(a.Extras, e)
}

// RemoveTrack detaches t and reports whether it was a child.
func (a *Album) RemoveTrack(t *Track) bool {
	n := len(a.Tracks)
	a.Tracks = slices.DeleteFunc(a.Tracks, func(c *Track) bool { return c == t })
	return len(a.Tracks) != n
}

// RemoveExtra detaches e and reports whether it was a child.
func (a *Album) RemoveExtra(e *Extra) bool {
	n := len(a.Extras)
	a.Extras = slices.DeleteFunc(a.Extras, func(c *Extra) bool { return c == e })
	return len(a.Extras) != n
}

// TrackByKey returns the first track with the given disc and number.
func (a *Album) TrackByKey(k TrackKey) *Track {
	for _, t := range a.Tracks {
		if t.Key() == k {
			return t
		}
	}
	return nil
}

// ExtraKey returns the identity of e within the album: its path relative
// to the album directory. Extras outside the directory are keyed by base name.
func (a *Album) ExtraKey(e *Extra) string {
	if !filepath.IsAbs(e.Path) {
		return filepath.ToSlash(filepath.Clean(e.Path))
	}
	if a.Path != "" {
		rel, err := filepath.Rel(a.Path, e.Path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.Base(e.Path)
}

// ExtraByKey returns the extra whose ExtraKey equals key.
func (a *Album) ExtraByKey(key string) *Extra {
	for _, e := range a.Extras {
		if a.ExtraKey(e) == key {
			return e
		}
	}
	return nil
}

// NormalizeStrings sorts and deduplicates a string set, dropping empties.
func NormalizeStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
