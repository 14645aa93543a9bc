package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sydlexius/cadence/internal/database"
	"github.com/sydlexius/cadence/internal/library"
)

func setupTestDB(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(db, nil)
}

func testAlbum(path string, tracks int) *library.Album {
	a := &library.Album{
		Path:        path,
		Artist:      "Wire",
		Title:       "Pink Flag",
		CatalogNums: []string{"HARV 0007"},
		Date:        library.NewDate(1977, 11, 1),
		TrackTotal:  tracks,
	}
	for i := 1; i <= tracks; i++ {
		a.AddTrack(&library.Track{
			Path:     fmt.Sprintf("%s/%02d.flac", path, i),
			Disc:     1,
			TrackNum: i,
			Title:    fmt.Sprintf("Track %d", i),
			Genres:   []string{"post-punk"},
			Length:   120.5,
		})
	}
	a.AddExtra(&library.Extra{Path: path + "/cover.jpg"})
	return a
}

func seed(t *testing.T, st *Store, albums ...*library.Album) {
	t.Helper()
	sess := st.NewSession()
	for _, a := range albums {
		sess.Add(a)
	}
	if _, err := sess.Commit(context.Background()); err != nil {
		t.Fatalf("seeding: %v", err)
	}
}

func TestGetAlbum_RoundTrip(t *testing.T) {
	st := setupTestDB(t)
	ctx := context.Background()

	a := testAlbum("/music/wire/pink-flag", 2)
	a.Custom.Set("mood", library.StringValue("tense"))
	a.Custom.Set("plays", library.IntValue(7))
	a.Tracks[0].Custom.Set("bpm", library.FloatValue(162.5))
	seed(t, st, a)

	got, err := st.GetAlbum(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAlbum: %v", err)
	}
	if got.Title != "Pink Flag" || got.Artist != "Wire" {
		t.Errorf("album = %q by %q", got.Title, got.Artist)
	}
	if !got.Date.SameDay(a.Date) {
		t.Errorf("Date = %s, want %s", got.Date, a.Date)
	}
	if len(got.CatalogNums) != 1 || got.CatalogNums[0] != "HARV 0007" {
		t.Errorf("CatalogNums = %v", got.CatalogNums)
	}
	if !got.Custom.Equal(&a.Custom) {
		t.Errorf("Custom = %v, want %v", got.Custom.Keys(), a.Custom.Keys())
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not stored")
	}
	if len(got.Tracks) != 2 || len(got.Extras) != 1 {
		t.Fatalf("children = %d tracks, %d extras, want 2 and 1", len(got.Tracks), len(got.Extras))
	}
	tr := got.Tracks[0]
	if tr.AlbumID != a.ID || tr.TrackNum != 1 || tr.Length != 120.5 {
		t.Errorf("track = %+v", tr)
	}
	if v, ok := tr.Custom.Get("bpm"); !ok || !v.Equal(library.FloatValue(162.5)) {
		t.Errorf("track custom bpm = %v, %v", v, ok)
	}
	if got.Extras[0].Path != "/music/wire/pink-flag/cover.jpg" {
		t.Errorf("extra path = %q", got.Extras[0].Path)
	}
}

func TestGetAlbum_NotFound(t *testing.T) {
	st := setupTestDB(t)
	_, err := st.GetAlbum(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListAlbums(t *testing.T) {
	st := setupTestDB(t)
	b := testAlbum("/music/b", 1)
	b.Artist = "Magazine"
	seed(t, st, testAlbum("/music/a", 2), b)

	albums, err := st.ListAlbums(context.Background())
	if err != nil {
		t.Fatalf("ListAlbums: %v", err)
	}
	if len(albums) != 2 {
		t.Fatalf("len = %d, want 2", len(albums))
	}
	if albums[0].Artist != "Magazine" {
		t.Errorf("albums[0] = %s, want ordered by artist", albums[0])
	}
	if len(albums[1].Tracks) != 2 || len(albums[0].Tracks) != 1 {
		t.Errorf("tracks not attached to their albums")
	}
}

func TestQueryAllAndCounts(t *testing.T) {
	st := setupTestDB(t)
	ctx := context.Background()
	seed(t, st, testAlbum("/music/a", 3), testAlbum("/music/b", 2))

	tracks, err := st.QueryAll(ctx, library.KindTrack)
	if err != nil {
		t.Fatalf("QueryAll: %v", err)
	}
	if len(tracks) != 5 {
		t.Errorf("len(tracks) = %d, want 5", len(tracks))
	}

	c, err := st.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if c != (Counts{Albums: 2, Tracks: 5, Extras: 2}) {
		t.Errorf("Counts = %+v", c)
	}
}
