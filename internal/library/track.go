package library

import (
	"fmt"
	"log/slog"
	"time"
)

// TrackKey identifies a track within its album.
type TrackKey struct {
	Disc     int
	TrackNum int
}

func (k TrackKey) String() string {
	return fmt.Sprintf("%d-%02d", k.Disc, k.TrackNum)
}

// Track is a single audio file belonging to one album.
type Track struct {
	ID        string    `json:"id,omitempty"`
	AlbumID   string    `json:"album_id,omitempty"`
	Path      string    `json:"path"`
	Disc      int       `json:"disc"`
	TrackNum  int       `json:"track_num"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist,omitempty"`
	Genres    []string  `json:"genres,omitempty"`
	Length    float64   `json:"length,omitempty"`
	MBTrackID string    `json:"mb_track_id,omitempty"`
	Custom    Fields    `json:"custom"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Kind returns KindTrack.
func (t *Track) Kind() Kind { return KindTrack }

// RecordID returns the store ID.
func (t *Track) RecordID() string { return t.ID }

// RecordPath returns the audio file path.
func (t *Track) RecordPath() string { return t.Path }

// CustomFields returns the track's custom field map.
func (t *Track) CustomFields() *Fields { return &t.Custom }

// Created returns the creation time.
func (t *Track) Created() time.Time { return t.CreatedAt }

// Key returns the (disc, track number) identity.
func (t *Track) Key() TrackKey { return TrackKey{Disc: t.Disc, TrackNum: t.TrackNum} }

// LogValue implements slog.LogValuer.
func (t *Track) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("kind", string(KindTrack)),
		slog.String("id", t.ID),
		slog.String("album_id", t.AlbumID),
		slog.Int("disc", t.Disc),
		slog.Int("track_num", t.TrackNum),
		slog.String("title", t.Title),
	)
}

// Extra is a non-audio file (artwork, log, cue sheet) kept with an album.
type Extra struct {
	ID        string    `json:"id,omitempty"`
	AlbumID   string    `json:"album_id,omitempty"`
	Path      string    `json:"path"`
	Custom    Fields    `json:"custom"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Kind returns KindExtra.
func (e *Extra) Kind() Kind { return KindExtra }

// RecordID returns the store ID.
func (e *Extra) RecordID() string { return e.ID }

// RecordPath returns the file path.
func (e *Extra) RecordPath() string { return e.Path }

// CustomFields returns the extra's custom field map.
func (e *Extra) CustomFields() *Fields { return &e.Custom }

// Created returns the creation time.
func (e *Extra) Created() time.Time { return e.CreatedAt }

// LogValue implements slog.LogValuer.
func (e *Extra) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("kind", string(KindExtra)),
		slog.String("id", e.ID),
		slog.String("album_id", e.AlbumID),
		slog.String("path", e.Path),
	)
}
