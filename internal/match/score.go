package match

import (
	"fmt"

	"github.com/sydlexius/cadence/internal/library"
)

// Scorer aggregates weighted field penalties into a similarity in [0, 1].
type Scorer struct {
	album Table
	track Table
}

var defaultScorer = &Scorer{
	album: DefaultAlbumWeights(),
	track: DefaultTrackWeights(),
}

// DefaultScorer returns a scorer using the built-in weight tables.
func DefaultScorer() *Scorer { return defaultScorer }

// NewScorer validates the tables and returns a scorer using them.
func NewScorer(album, track Table) (*Scorer, error) {
	if err := validateTable(library.KindAlbum, album); err != nil {
		return nil, err
	}
	if err := validateTable(library.KindTrack, track); err != nil {
		return nil, err
	}
	return &Scorer{album: album, track: track}, nil
}

func validateTable(kind library.Kind, t Table) error {
	if t.Total() <= 0 {
		return fmt.Errorf("%s weights must sum to more than zero", kind)
	}
	seen := make(map[string]bool, len(t))
	for _, w := range t {
		cmp, ok := fieldComparison(kind, w.Field)
		if !ok {
			return fmt.Errorf("unknown %s field %q", kind, w.Field)
		}
		if cmp != w.Compare {
			return fmt.Errorf("%s field %q is compared as %s, not %s", kind, w.Field, cmp, w.Compare)
		}
		if w.Weight < 0 || w.Weight > 1 {
			return fmt.Errorf("%s weight for %q must be between 0 and 1, got %v", kind, w.Field, w.Weight)
		}
		if seen[w.Field] {
			return fmt.Errorf("duplicate %s field %q", kind, w.Field)
		}
		seen[w.Field] = true
	}
	return nil
}

// Weights returns the table used for kind.
func (s *Scorer) Weights(kind library.Kind) Table {
	switch kind {
	case library.KindAlbum:
		return s.album
	case library.KindTrack:
		return s.track
	}
	return nil
}

// Score returns how similar a and b are using the default tables.
func Score(a, b library.Record) float64 {
	return defaultScorer.Score(a, b)
}

// Score returns 1 minus the weighted mean penalty of a and b. Both records
// must be albums or both tracks; any other pairing panics.
func (s *Scorer) Score(a, b library.Record) float64 {
	var penalty, total float64
	switch x := a.(type) {
	case *library.Album:
		y, ok := b.(*library.Album)
		if !ok {
			panic(fmt.Sprintf("match: scoring %T against %T", a, b))
		}
		for _, w := range s.album {
			f := albumFields[w.Field]
			penalty += Penalty(f.get(x), f.get(y), w.Compare) * w.Weight
			total += w.Weight
		}
	case *library.Track:
		y, ok := b.(*library.Track)
		if !ok {
			panic(fmt.Sprintf("match: scoring %T against %T", a, b))
		}
		for _, w := range s.track {
			f := trackFields[w.Field]
			penalty += Penalty(f.get(x), f.get(y), w.Compare) * w.Weight
			total += w.Weight
		}
	default:
		panic(fmt.Sprintf("match: cannot score %T records", a))
	}
	return 1 - penalty/total
}
