package match

import (
	"fmt"
	"slices"

	"github.com/sydlexius/cadence/internal/library"
)

// Comparison selects how two field values are compared.
type Comparison int

// Comparison kinds.
const (
	Exact Comparison = iota
	StringSimilarity
	DurationTolerant
)

// String returns the comparison name.
func (c Comparison) String() string {
	switch c {
	case StringSimilarity:
		return "string_similarity"
	case DurationTolerant:
		return "duration_tolerant"
	default:
		return "exact"
	}
}

// Weight is the importance of one field when scoring two records.
type Weight struct {
	Field   string
	Weight  float64
	Compare Comparison
}

// Table is the ordered list of weighted fields for one record kind.
type Table []Weight

// Total returns the sum of all weights.
func (t Table) Total() float64 {
	var sum float64
	for _, w := range t {
		sum += w.Weight
	}
	return sum
}

type albumField struct {
	compare Comparison
	get     func(*library.Album) any
}

type trackField struct {
	compare Comparison
	get     func(*library.Track) any
}

// albumFields lists every album field that can carry a weight.
var albumFields = map[string]albumField{
	"artist":        {StringSimilarity, func(a *library.Album) any { return a.Artist }},
	"barcode":       {Exact, func(a *library.Album) any { return a.Barcode }},
	"catalog_nums":  {Exact, func(a *library.Album) any { return a.CatalogNums }},
	"country":       {Exact, func(a *library.Album) any { return a.Country }},
	"date":          {Exact, func(a *library.Album) any { return a.Date }},
	"original_date": {Exact, func(a *library.Album) any { return a.OriginalDate }},
	"disc_total":    {Exact, func(a *library.Album) any { return a.DiscTotal }},
	"label":         {StringSimilarity, func(a *library.Album) any { return a.Label }},
	"media":         {StringSimilarity, func(a *library.Album) any { return a.Media }},
	"title":         {StringSimilarity, func(a *library.Album) any { return a.Title }},
	"track_total":   {Exact, func(a *library.Album) any { return a.TrackTotal }},
	"mb_album_id":   {Exact, func(a *library.Album) any { return a.MBAlbumID }},
}

// trackFields lists every track field that can carry a weight.
var trackFields = map[string]trackField{
	"disc":        {Exact, func(t *library.Track) any { return t.Disc }},
	"title":       {StringSimilarity, func(t *library.Track) any { return t.Title }},
	"track_num":   {Exact, func(t *library.Track) any { return t.TrackNum }},
	"artist":      {StringSimilarity, func(t *library.Track) any { return t.Artist }},
	"length":      {DurationTolerant, func(t *library.Track) any { return t.Length }},
	"mb_track_id": {Exact, func(t *library.Track) any { return t.MBTrackID }},
}

// DefaultAlbumWeights returns the album table used when nothing is configured.
func DefaultAlbumWeights() Table {
	return Table{
		{"artist", 0.8, StringSimilarity},
		{"barcode", 1.0, Exact},
		{"catalog_nums", 1.0, Exact},
		{"country", 0.3, Exact},
		{"date", 0.2, Exact},
		{"disc_total", 0.8, Exact},
		{"label", 0.1, StringSimilarity},
		{"media", 0.4, StringSimilarity},
		{"title", 0.9, StringSimilarity},
		{"track_total", 1.0, Exact},
	}
}

// DefaultTrackWeights returns the track table used when nothing is configured.
func DefaultTrackWeights() Table {
	return Table{
		{"disc", 0.3, Exact},
		{"title", 0.7, StringSimilarity},
		{"track_num", 0.9, Exact},
	}
}

// KnownFields returns the sorted field names that kind accepts in a table.
func KnownFields(kind library.Kind) []string {
	var names []string
	switch kind {
	case library.KindAlbum:
		for name := range albumFields {
			names = append(names, name)
		}
	case library.KindTrack:
		for name := range trackFields {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// WithOverrides returns a copy of base with the given field weights applied.
// Fields already in base keep their position; new fields are appended in
// sorted order. A weight of zero keeps the field but stops it counting.
func WithOverrides(kind library.Kind, base Table, overrides map[string]float64) (Table, error) {
	out := slices.Clone(base)
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		weight := overrides[name]
		if weight < 0 || weight > 1 {
			return nil, fmt.Errorf("%s weight for %q must be between 0 and 1, got %v", kind, name, weight)
		}
		cmp, ok := fieldComparison(kind, name)
		if !ok {
			return nil, fmt.Errorf("unknown %s field %q", kind, name)
		}
		idx := slices.IndexFunc(out, func(w Weight) bool { return w.Field == name })
		if idx >= 0 {
			out[idx].Weight = weight
			continue
		}
		out = append(out, Weight{Field: name, Weight: weight, Compare: cmp})
	}
	return out, nil
}

func fieldComparison(kind library.Kind, name string) (Comparison, bool) {
	switch kind {
	case library.KindAlbum:
		f, ok := albumFields[name]
		return f.compare, ok
	case library.KindTrack:
		f, ok := trackFields[name]
		return f.compare, ok
	}
	return Exact, false
}
