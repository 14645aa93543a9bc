package library

import (
	"encoding/json"
	"testing"
)

func TestValue_IsZero(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"null", NullValue(), true},
		{"empty string", StringValue(""), true},
		{"string", StringValue("x"), false},
		{"zero int", IntValue(0), true},
		{"int", IntValue(3), false},
		{"zero float", FloatValue(0), true},
		{"false", BoolValue(false), true},
		{"true", BoolValue(true), false},
		{"empty list", ListValue(), true},
		{"list", ListValue(NullValue()), false},
		{"empty map", MapValue(nil), true},
		{"map", MapValue(NewFields("a", IntValue(1))), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.IsZero(); got != tt.want {
				t.Errorf("IsZero() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFields_JSONKeepsOrder(t *testing.T) {
	in := `{"zeta":"z","alpha":1,"mid":[1.5,true,null],"obj":{"b":2,"a":1}}`

	var f Fields
	if err := json.Unmarshal([]byte(in), &f); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	keys := f.Keys()
	want := []string{"zeta", "alpha", "mid", "obj"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys = %v, want %v", keys, want)
		}
	}

	alpha, _ := f.Get("alpha")
	if n, ok := alpha.Int(); !ok || n != 1 {
		t.Errorf("alpha = %v (%s), want int 1", alpha, alpha.Type())
	}
	mid, _ := f.Get("mid")
	items, ok := mid.List()
	if !ok || len(items) != 3 {
		t.Fatalf("mid = %v, want 3-item list", mid)
	}
	if fl, ok := items[0].Float(); !ok || fl != 1.5 {
		t.Errorf("mid[0] = %v, want float 1.5", items[0])
	}

	out, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != in {
		t.Errorf("Marshal = %s, want %s", out, in)
	}
}

func TestFields_UnmarshalRejectsNonObject(t *testing.T) {
	var f Fields
	if err := json.Unmarshal([]byte(`[1,2]`), &f); err == nil {
		t.Error("expected error for array input")
	}
}

func TestFields_Delete(t *testing.T) {
	f := NewFields("a", IntValue(1), "b", IntValue(2), "c", IntValue(3))
	f.Delete("b")
	f.Delete("missing")
	if f.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", f.Len())
	}
	if keys := f.Keys(); keys[0] != "a" || keys[1] != "c" {
		t.Errorf("keys = %v, want [a c]", keys)
	}
}

func TestFields_EqualIgnoresOrder(t *testing.T) {
	a := NewFields("x", StringValue("1"), "y", ListValue(IntValue(2)))
	b := NewFields("y", ListValue(IntValue(2)), "x", StringValue("1"))
	if !a.Equal(b) {
		t.Error("expected maps with the same entries to be equal")
	}
	b.Set("x", IntValue(1))
	if a.Equal(b) {
		t.Error("string and int values must not compare equal")
	}
}

func TestAlbumJSON_RoundTripsManifest(t *testing.T) {
	manifest := `{
		"path": "/music/Wire/Pink Flag",
		"artist": "Wire",
		"title": "Pink Flag",
		"date": "1977-11",
		"catalog_nums": ["HARV 0007"],
		"custom": {"source": "vinyl"},
		"tracks": [{"path": "/music/Wire/Pink Flag/01.flac", "disc": 1, "track_num": 1, "title": "Reuters"}],
		"extras": [{"path": "/music/Wire/Pink Flag/cover.jpg"}]
	}`
	var a Album
	if err := json.Unmarshal([]byte(manifest), &a); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if a.Date.String() != "1977-11-01" {
		t.Errorf("Date = %q, want 1977-11-01", a.Date.String())
	}
	if len(a.Tracks) != 1 || a.Tracks[0].Title != "Reuters" {
		t.Errorf("Tracks = %+v, want one Reuters track", a.Tracks)
	}
	if v, _ := a.Custom.Get("source"); v.String() != "vinyl" {
		t.Errorf("custom source = %q, want vinyl", v.String())
	}
}
