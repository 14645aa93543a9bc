package match

import (
	"sort"

	"github.com/sydlexius/cadence/internal/library"
)

// DefaultThreshold is the minimum score for two tracks to be paired.
const DefaultThreshold = 0.7

// TrackMatch pairs a track of the first album (Old) with one of the second
// (New). Either side is nil when the track found no partner.
type TrackMatch struct {
	Old   *library.Track
	New   *library.Track
	Score float64
}

// Matched reports whether both sides are present.
func (m TrackMatch) Matched() bool {
	return m.Old != nil && m.New != nil
}

// Summary counts the kinds of entries in a pairing.
type Summary struct {
	Matched int
	OldOnly int
	NewOnly int
}

// Summarize tallies matches.
func Summarize(matches []TrackMatch) Summary {
	var s Summary
	for _, m := range matches {
		switch {
		case m.Matched():
			s.Matched++
		case m.Old != nil:
			s.OldOnly++
		default:
			s.NewOnly++
		}
	}
	return s
}

// Tracks pairs the tracks of a and b using the default weights.
func Tracks(a, b *library.Album, threshold float64) []TrackMatch {
	return defaultScorer.Tracks(a, b, threshold)
}

type scoredPair struct {
	i, j  int
	score float64
}

// Tracks pairs the tracks of a and b greedily: every cross pair is scored,
// pairs are taken best first, and a pair is accepted when it reaches the
// threshold and neither track is already taken. Ties keep enumeration order
// (a's index, then b's). Greedy selection is not globally optimal; a strong
// early pair can leave two weaker tracks that would have matched elsewhere
// unpaired.
//
// The result holds accepted pairs in acceptance order, then a's unmatched
// tracks, then b's, so every input track appears exactly once.
func (s *Scorer) Tracks(a, b *library.Album, threshold float64) []TrackMatch {
	pairs := make([]scoredPair, 0, len(a.Tracks)*len(b.Tracks))
	for i, ta := range a.Tracks {
		for j, tb := range b.Tracks {
			pairs = append(pairs, scoredPair{i: i, j: j, score: s.Score(ta, tb)})
		}
	}
	sort.SliceStable(pairs, func(x, y int) bool {
		return pairs[x].score > pairs[y].score
	})

	usedA := make([]bool, len(a.Tracks))
	usedB := make([]bool, len(b.Tracks))
	matches := make([]TrackMatch, 0, len(a.Tracks)+len(b.Tracks))
	for _, p := range pairs {
		if p.score < threshold {
			break
		}
		if usedA[p.i] || usedB[p.j] {
			continue
		}
		usedA[p.i] = true
		usedB[p.j] = true
		matches = append(matches, TrackMatch{Old: a.Tracks[p.i], New: b.Tracks[p.j], Score: p.score})
	}

	for i, t := range a.Tracks {
		if !usedA[i] {
			matches = append(matches, TrackMatch{Old: t})
		}
	}
	for j, t := range b.Tracks {
		if !usedB[j] {
			matches = append(matches, TrackMatch{New: t})
		}
	}
	return matches
}
