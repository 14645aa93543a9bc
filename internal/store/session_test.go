package store

import (
	"context"
	"errors"
	"testing"

	"github.com/sydlexius/cadence/internal/duplicate"
	"github.com/sydlexius/cadence/internal/library"
	"github.com/sydlexius/cadence/internal/policy"
)

// removeOther is a resolver that keeps the incoming record.
func removeOther(sess *Session) duplicate.Resolver {
	return func(_ context.Context, _, other library.Record) error {
		sess.Remove(other)
		return nil
	}
}

func TestSession_States(t *testing.T) {
	st := setupTestDB(t)
	sess := st.NewSession()

	a := testAlbum("/music/a", 2)
	if got := sess.State(a); got != library.StateTransient {
		t.Errorf("State before Add = %s, want transient", got)
	}

	sess.Add(a)
	for _, r := range []library.Record{a, a.Tracks[0], a.Tracks[1], a.Extras[0]} {
		if got := sess.State(r); got != library.StatePending {
			t.Errorf("State(%s) after Add = %s, want pending", r.Kind(), got)
		}
	}
	if a.ID == "" || a.Tracks[0].AlbumID != a.ID || a.Extras[0].AlbumID != a.ID {
		t.Error("IDs not assigned on Add")
	}

	sum, err := sess.Commit(context.Background())
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if sum.Inserted != 4 {
		t.Errorf("Inserted = %d, want 4", sum.Inserted)
	}
	if got := sess.State(a.Tracks[1]); got != library.StatePersistent {
		t.Errorf("State after Commit = %s, want persistent", got)
	}

	sess.Remove(a)
	if got := sess.State(a.Tracks[0]); got != library.StateDeleted {
		t.Errorf("child State after album Remove = %s, want deleted", got)
	}
	if _, err := sess.Commit(context.Background()); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if got := sess.State(a); got != library.StateTransient {
		t.Errorf("State after deleting commit = %s, want transient", got)
	}

	c, _ := st.Counts(context.Background())
	if c != (Counts{}) {
		t.Errorf("Counts = %+v, want empty library", c)
	}
}

func TestSession_RemovePendingTrackDetaches(t *testing.T) {
	st := setupTestDB(t)
	sess := st.NewSession()

	a := testAlbum("/music/a", 3)
	sess.Add(a)
	dropped := a.Tracks[1]
	sess.Remove(dropped)
	if len(a.Tracks) != 2 {
		t.Fatalf("len(Tracks) = %d, want 2 after removing a track", len(a.Tracks))
	}

	if _, err := sess.Commit(context.Background()); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	got, err := st.GetAlbum(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("GetAlbum: %v", err)
	}
	if len(got.Tracks) != 2 {
		t.Errorf("stored tracks = %d, want 2", len(got.Tracks))
	}
}

func TestSession_UnresolvedDuplicateWritesNothing(t *testing.T) {
	st := setupTestDB(t)
	seed(t, st, testAlbum("/music/a", 1))

	sess := st.NewSession()
	sess.Add(testAlbum("/music/b", 1))
	sess.Add(testAlbum("/music/a", 1))

	_, err := sess.Commit(context.Background())
	if !errors.Is(err, duplicate.ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
	var dupErr *duplicate.DuplicateError
	if !errors.As(err, &dupErr) || dupErr.Item.RecordPath() != "/music/a" {
		t.Errorf("DuplicateError = %v", err)
	}

	c, _ := st.Counts(context.Background())
	if c.Albums != 1 || c.Tracks != 1 {
		t.Errorf("Counts = %+v, want the seeded album only", c)
	}
}

func TestSession_ResolverReplacesStored(t *testing.T) {
	st := setupTestDB(t)
	ctx := context.Background()
	old := testAlbum("/music/a", 2)
	seed(t, st, old)

	sess := st.NewSession()
	sess.SetEngine(duplicate.NewEngine(duplicate.Options{
		Store:     sess,
		Resolvers: []duplicate.Resolver{removeOther(sess)},
	}))

	replacement := testAlbum("/music/a", 2)
	replacement.Title = "Pink Flag (Remastered)"
	sess.Add(replacement)

	sum, err := sess.Commit(ctx)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if sum.Deleted != 4 || sum.Inserted != 4 {
		t.Errorf("Summary = %+v, want 4 deleted and 4 inserted", sum)
	}

	if _, err := st.GetAlbum(ctx, old.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("old album still stored: %v", err)
	}
	got, err := st.GetAlbum(ctx, replacement.ID)
	if err != nil {
		t.Fatalf("GetAlbum: %v", err)
	}
	if got.Title != "Pink Flag (Remastered)" || len(got.Tracks) != 2 {
		t.Errorf("stored = %s with %d tracks", got, len(got.Tracks))
	}
}

func TestSession_MergeStrategyAdoptsChildren(t *testing.T) {
	tests := []struct {
		strategy   string
		wantTitle  string
		wantTrack2 string
	}{
		{policy.Merge, "Pink Flag", "Track 2"},
		{policy.MergeOverwrite, "Pink Flag (Remastered)", "Track 2 (Remastered)"},
	}
	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			st := setupTestDB(t)
			ctx := context.Background()
			old := testAlbum("/music/a", 2)
			seed(t, st, old)

			sess := st.NewSession()
			resolver, err := policy.New(tt.strategy, sess, policy.Options{})
			if err != nil {
				t.Fatalf("policy.New: %v", err)
			}
			sess.SetEngine(duplicate.NewEngine(duplicate.Options{
				Store:     sess,
				Resolvers: []duplicate.Resolver{resolver},
			}))

			incoming := &library.Album{Path: "/music/a", Title: "Pink Flag (Remastered)", Label: "Harvest"}
			incoming.AddTrack(&library.Track{
				Path: "/music/a/02.flac", Disc: 1, TrackNum: 2,
				Title: "Track 2 (Remastered)", MBTrackID: "rec-2",
			})
			incoming.AddTrack(&library.Track{Path: "/music/a/03.flac", Disc: 1, TrackNum: 3, Title: "Track 3"})
			incoming.AddExtra(&library.Extra{Path: "/music/a/cover.jpg"})
			sess.Add(incoming)

			sum, err := sess.Commit(ctx)
			if err != nil {
				t.Fatalf("Commit: %v", err)
			}
			if sum.Inserted != 1 || sum.Deleted != 0 {
				t.Errorf("Summary = %+v, want only the new track inserted", sum)
			}

			if _, err := st.GetAlbum(ctx, incoming.ID); !errors.Is(err, ErrNotFound) {
				t.Errorf("merged album stored under its own ID: %v", err)
			}
			got, err := st.GetAlbum(ctx, old.ID)
			if err != nil {
				t.Fatalf("GetAlbum: %v", err)
			}
			if got.Label != "Harvest" || got.Title != tt.wantTitle {
				t.Errorf("album = %q label %q, want %q label Harvest", got.Title, got.Label, tt.wantTitle)
			}

			byNum := make(map[int]*library.Track)
			for _, tr := range got.Tracks {
				if tr.AlbumID != old.ID {
					t.Errorf("track %d AlbumID = %q, want %q", tr.TrackNum, tr.AlbumID, old.ID)
				}
				byNum[tr.TrackNum] = tr
			}
			if len(got.Tracks) != 3 || byNum[1] == nil || byNum[2] == nil || byNum[3] == nil {
				t.Fatalf("tracks = %d, want 1, 2 and 3", len(got.Tracks))
			}
			if byNum[2].MBTrackID != "rec-2" || byNum[2].Title != tt.wantTrack2 {
				t.Errorf("track 2 = %q %q, want %q rec-2", byNum[2].Title, byNum[2].MBTrackID, tt.wantTrack2)
			}
			if byNum[3].Path != "/music/a/03.flac" {
				t.Errorf("track 3 path = %q", byNum[3].Path)
			}

			c, err := st.Counts(ctx)
			if err != nil {
				t.Fatalf("Counts: %v", err)
			}
			if c != (Counts{Albums: 1, Tracks: 3, Extras: 1}) {
				t.Errorf("Counts = %+v, want 1/3/1", c)
			}
		})
	}
}

func TestSession_MarkDirty(t *testing.T) {
	st := setupTestDB(t)
	ctx := context.Background()
	seed(t, st, testAlbum("/music/a", 1))

	albums, _ := st.ListAlbums(ctx)
	id := albums[0].ID

	sess := st.NewSession()
	a, err := sess.GetAlbum(ctx, id)
	if err != nil {
		t.Fatalf("GetAlbum: %v", err)
	}
	if got := sess.State(a); got != library.StatePersistent {
		t.Fatalf("loaded State = %s, want persistent", got)
	}

	a.Label = "Harvest"
	a.Tracks[0].Title = "Reuters"
	a.AddTrack(&library.Track{Path: "/music/a/02.flac", Disc: 1, TrackNum: 2, Title: "Field Day for the Sundays"})
	sess.MarkDirty(a)

	sum, err := sess.Commit(ctx)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if sum.Inserted != 1 || sum.Updated != 3 {
		t.Errorf("Summary = %+v, want 1 inserted and 3 updated", sum)
	}

	got, _ := st.GetAlbum(ctx, id)
	if got.Label != "Harvest" {
		t.Errorf("Label = %q, want Harvest", got.Label)
	}
	if len(got.Tracks) != 2 || got.Tracks[0].Title != "Reuters" {
		t.Errorf("tracks = %+v", got.Tracks)
	}
}

func TestSession_QueryAllIdentity(t *testing.T) {
	st := setupTestDB(t)
	ctx := context.Background()
	seed(t, st, testAlbum("/music/a", 2), testAlbum("/music/b", 1))

	sess := st.NewSession()
	albums, _ := st.ListAlbums(ctx)
	a, _ := sess.GetAlbum(ctx, albums[0].ID)

	recs, err := sess.QueryAll(ctx, library.KindAlbum)
	if err != nil {
		t.Fatalf("QueryAll: %v", err)
	}
	found := false
	for _, r := range recs {
		if r == library.Record(a) {
			found = true
		}
	}
	if !found {
		t.Error("QueryAll returned a fresh copy of an album the session already holds")
	}

	sess.Remove(a)
	recs, _ = sess.QueryAll(ctx, library.KindAlbum)
	if len(recs) != 1 {
		t.Errorf("len = %d, want removed album excluded", len(recs))
	}
	tracks, _ := sess.QueryAll(ctx, library.KindTrack)
	for _, r := range tracks {
		if r.(*library.Track).AlbumID == a.ID {
			t.Error("children of a removed album still visible")
		}
	}
}

func TestSession_TrackWithoutAlbum(t *testing.T) {
	st := setupTestDB(t)
	sess := st.NewSession()
	sess.Add(&library.Track{Path: "/music/loose.flac", TrackNum: 1})

	if _, err := sess.Commit(context.Background()); err == nil {
		t.Error("expected error committing a track with no album")
	}
}
