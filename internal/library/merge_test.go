package library

import (
	"testing"
)

func testAlbum(path string) *Album {
	a := &Album{
		ID:     "album-" + path,
		Path:   path,
		Artist: "Wire",
		Title:  "Pink Flag",
	}
	a.AddTrack(&Track{Path: path + "/01.flac", Disc: 1, TrackNum: 1, Title: "Reuters"})
	a.AddTrack(&Track{Path: path + "/02.flac", Disc: 1, TrackNum: 2, Title: "Field Day for the Sundays"})
	a.AddExtra(&Extra{Path: path + "/cover.jpg"})
	return a
}

func TestMerge_ConflictRule(t *testing.T) {
	tests := []struct {
		name      string
		overwrite bool
		want      string
	}{
		{"keep target without overwrite", false, "keep"},
		{"take source with overwrite", true, "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &Album{Title: "keep"}
			source := &Album{Title: "other"}
			Merge(target, source, tt.overwrite)
			if target.Title != tt.want {
				t.Errorf("Title = %q, want %q", target.Title, tt.want)
			}
		})
	}
}

func TestMerge_FalsySourceNeverOverwrites(t *testing.T) {
	target := &Album{
		Artist:      "Wire",
		Barcode:     "5099902895021",
		CatalogNums: []string{"HARV 0007"},
		Date:        NewDate(1977, 11, 1),
		DiscTotal:   1,
		TrackTotal:  21,
	}
	target.Custom.Set("mood", StringValue("tense"))

	source := &Album{}
	source.Custom.Set("mood", StringValue(""))

	Merge(target, source, true)

	if target.Artist != "Wire" {
		t.Errorf("Artist = %q, want Wire", target.Artist)
	}
	if target.Barcode != "5099902895021" {
		t.Errorf("Barcode = %q, want unchanged", target.Barcode)
	}
	if len(target.CatalogNums) != 1 {
		t.Errorf("CatalogNums = %v, want unchanged", target.CatalogNums)
	}
	if target.Date.IsZero() {
		t.Error("Date was erased by a missing source date")
	}
	if target.DiscTotal != 1 || target.TrackTotal != 21 {
		t.Errorf("totals = %d/%d, want 1/21", target.DiscTotal, target.TrackTotal)
	}
	if v, _ := target.Custom.Get("mood"); v.String() != "tense" {
		t.Errorf("custom mood = %q, want tense", v.String())
	}
}

func TestMerge_FillsMissingTargetFields(t *testing.T) {
	target := &Track{Title: "Reuters"}
	source := &Track{Title: "Reuters (remaster)", Artist: "Wire", Length: 183.2, Genres: []string{"punk"}}

	Merge(target, source, false)

	if target.Title != "Reuters" {
		t.Errorf("Title = %q, want Reuters", target.Title)
	}
	if target.Artist != "Wire" {
		t.Errorf("Artist = %q, want Wire", target.Artist)
	}
	if target.Length != 183.2 {
		t.Errorf("Length = %v, want 183.2", target.Length)
	}
	if len(target.Genres) != 1 || target.Genres[0] != "punk" {
		t.Errorf("Genres = %v, want [punk]", target.Genres)
	}
}

func TestMerge_IdentityFieldsUntouched(t *testing.T) {
	target := &Track{ID: "t1", AlbumID: "a1", Path: "/music/a/01.flac"}
	source := &Track{ID: "t2", AlbumID: "a2", Path: "/music/b/01.flac", Title: "x"}

	Merge(target, source, true)

	if target.ID != "t1" || target.AlbumID != "a1" || target.Path != "/music/a/01.flac" {
		t.Errorf("identity changed: id=%q album=%q path=%q", target.ID, target.AlbumID, target.Path)
	}
}

func TestMerge_CustomFieldUnion(t *testing.T) {
	target := &Extra{}
	target.Custom.Set("source", StringValue("scan"))
	target.Custom.Set("rating", IntValue(0))

	source := &Extra{}
	source.Custom.Set("rating", IntValue(4))
	source.Custom.Set("source", StringValue("import"))
	source.Custom.Set("tags", ListValue(StringValue("a"), StringValue("b")))

	Merge(target, source, false)

	if v, _ := target.Custom.Get("source"); v.String() != "scan" {
		t.Errorf("source = %q, want scan", v.String())
	}
	if v, _ := target.Custom.Get("rating"); v.String() != "4" {
		t.Errorf("rating = %q, want 4", v.String())
	}
	if v, ok := target.Custom.Get("tags"); !ok || v.String() != "a, b" {
		t.Errorf("tags = %q (present=%v), want \"a, b\"", v.String(), ok)
	}
	keys := target.Custom.Keys()
	want := []string{"source", "rating", "tags"}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestMerge_CustomValuesAreCopied(t *testing.T) {
	target := &Track{}
	source := &Track{}
	inner := NewFields("k", StringValue("v"))
	source.Custom.Set("nested", MapValue(inner))

	Merge(target, source, false)
	inner.Set("k", StringValue("changed"))

	got, _ := target.Custom.Get("nested")
	m, _ := got.Map()
	if v, _ := m.Get("k"); v.String() != "v" {
		t.Errorf("nested.k = %q, want v (merge must not alias source values)", v.String())
	}
}

func TestAlbumMerge_ChildrenByKey(t *testing.T) {
	target := testAlbum("/music/a")
	source := &Album{ID: "candidate", Path: "/music/b", Title: "Pink Flag (Remastered)"}
	source.AddTrack(&Track{Disc: 1, TrackNum: 1, Title: "Reuters", Artist: "Wire"})
	source.AddTrack(&Track{Disc: 1, TrackNum: 3, Title: "Lowdown", Path: "/music/b/03.flac"})
	source.AddExtra(&Extra{Path: "/music/b/cover.jpg", Custom: *NewFields("kind", StringValue("front"))})
	source.AddExtra(&Extra{Path: "/music/b/rip.log"})

	target.Merge(source, false)

	if target.Title != "Pink Flag" {
		t.Errorf("Title = %q, want Pink Flag", target.Title)
	}
	if len(target.Tracks) != 3 {
		t.Fatalf("len(Tracks) = %d, want 3", len(target.Tracks))
	}
	first := target.TrackByKey(TrackKey{Disc: 1, TrackNum: 1})
	if first.Artist != "Wire" {
		t.Errorf("track 1 Artist = %q, want Wire (recursive merge)", first.Artist)
	}
	if first.Path != "/music/a/01.flac" {
		t.Errorf("track 1 Path = %q, want target path kept", first.Path)
	}
	adopted := target.TrackByKey(TrackKey{Disc: 1, TrackNum: 3})
	if adopted == nil {
		t.Fatal("track 3 not adopted")
	}
	if adopted.AlbumID != target.ID {
		t.Errorf("adopted AlbumID = %q, want %q", adopted.AlbumID, target.ID)
	}
	if len(source.Tracks) != 1 {
		t.Errorf("len(source.Tracks) = %d, want 1 after re-parenting", len(source.Tracks))
	}
	if target.TrackByKey(TrackKey{Disc: 1, TrackNum: 2}) == nil {
		t.Error("target-only track 2 was dropped")
	}

	if len(target.Extras) != 2 {
		t.Fatalf("len(Extras) = %d, want 2", len(target.Extras))
	}
	cover := target.ExtraByKey("cover.jpg")
	if v, _ := cover.Custom.Get("kind"); v.String() != "front" {
		t.Errorf("cover kind = %q, want front", v.String())
	}
	if target.ExtraByKey("rip.log") == nil {
		t.Error("rip.log not adopted")
	}
}

func TestAlbumMerge_OverwriteCascadesToTracks(t *testing.T) {
	target := testAlbum("/music/a")
	source := &Album{}
	source.AddTrack(&Track{Disc: 1, TrackNum: 2, Title: "Field Day For The Sundays"})

	target.Merge(source, true)

	if got := target.TrackByKey(TrackKey{Disc: 1, TrackNum: 2}).Title; got != "Field Day For The Sundays" {
		t.Errorf("track 2 Title = %q, want overwritten title", got)
	}
}

func TestMerge_KindMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic merging a track into an album")
		}
	}()
	Merge(&Album{}, &Track{}, false)
}

func TestExtraKey(t *testing.T) {
	a := &Album{Path: "/music/Wire/Pink Flag"}
	tests := []struct {
		path string
		want string
	}{
		{"/music/Wire/Pink Flag/cover.jpg", "cover.jpg"},
		{"/music/Wire/Pink Flag/scans/back.jpg", "scans/back.jpg"},
		{"/elsewhere/cover.jpg", "cover.jpg"},
		{"scans/front.jpg", "scans/front.jpg"},
	}
	for _, tt := range tests {
		if got := a.ExtraKey(&Extra{Path: tt.path}); got != tt.want {
			t.Errorf("ExtraKey(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestAlbumMerge_MovedExtraKeepsPath(t *testing.T) {
	a := &Album{ID: "a1", Path: "/music/Wire/Pink Flag"}
	a.AddExtra(&Extra{Path: "/music/Wire/Pink Flag/cover.jpg"})
	o := &Album{ID: "o1", Path: "/incoming/pink-flag"}
	back := &Extra{Path: "/incoming/pink-flag/scans/back.jpg"}
	o.AddExtra(back)
	o.AddExtra(&Extra{Path: "/incoming/pink-flag/cover.jpg"})

	a.Merge(o, false)

	if len(a.Extras) != 2 || len(o.Extras) != 1 {
		t.Fatalf("extras = %d on target and %d on source, want 2 and 1", len(a.Extras), len(o.Extras))
	}
	if back.Path != "/incoming/pink-flag/scans/back.jpg" || back.AlbumID != "a1" {
		t.Errorf("moved extra = %+v, want original path under album a1", back)
	}
	if got := a.ExtraKey(back); got != "back.jpg" {
		t.Errorf("ExtraKey(moved) = %q, want base name", got)
	}
}
