package match

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
	"golang.org/x/text/unicode/norm"

	"github.com/sydlexius/cadence/internal/library"
)

const (
	penaltyBothMissing = 0.2
	penaltyOneMissing  = 0.1

	// Duration ratios at or below durationTolerance cost nothing; at or
	// above durationMismatch they cost the full penalty.
	durationTolerance = 0.02
	durationMismatch  = 0.12
)

// Penalty scores the dissimilarity of one field in [0, 1]. Missing values
// (nil, "", 0, zero dates, empty sets) take fixed penalties so that two
// records agreeing only by absence never look identical.
//
// Values must be of a type the comparison understands; anything else is a
// programming error and panics.
func Penalty(a, b any, cmp Comparison) float64 {
	aMissing, bMissing := missing(a), missing(b)
	switch {
	case aMissing && bMissing:
		return penaltyBothMissing
	case aMissing || bMissing:
		return penaltyOneMissing
	}

	switch cmp {
	case Exact:
		if equal(a, b) {
			return 0
		}
		return 1
	case StringSimilarity:
		return 1 - Similarity(asString(a), asString(b))
	case DurationTolerant:
		return durationPenalty(asFloat(a), asFloat(b))
	default:
		panic(fmt.Sprintf("match: unknown comparison %d", cmp))
	}
}

// Similarity returns the longest-common-subsequence ratio of a and b:
// 2*LCS / (len(a)+len(b)) counted in runes after NFC normalisation.
// It is symmetric and Similarity(x, x) == 1.
func Similarity(a, b string) float64 {
	a = norm.NFC.String(a)
	b = norm.NFC.String(b)
	if a == b {
		return 1
	}
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 1
	}
	return 2 * float64(edlib.LCS(a, b)) / float64(total)
}

func durationPenalty(a, b float64) float64 {
	longest := math.Max(math.Abs(a), math.Abs(b))
	if longest == 0 {
		return 0
	}
	ratio := math.Abs(a-b) / longest
	switch {
	case ratio <= durationTolerance:
		return 0
	case ratio >= durationMismatch:
		return 1
	default:
		return (ratio - durationTolerance) / (durationMismatch - durationTolerance)
	}
}

func missing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case int:
		return x == 0
	case int64:
		return x == 0
	case float64:
		return x == 0
	case []string:
		return len(x) == 0
	case library.Date:
		return x.IsZero()
	case time.Time:
		return x.IsZero()
	default:
		panic(fmt.Sprintf("match: unsupported field type %T", v))
	}
}

func equal(a, b any) bool {
	switch x := a.(type) {
	case string:
		return x == mustType[string](b)
	case int:
		return x == mustType[int](b)
	case int64:
		return x == mustType[int64](b)
	case float64:
		return x == mustType[float64](b)
	case []string:
		return slices.Equal(library.NormalizeStrings(x), library.NormalizeStrings(mustType[[]string](b)))
	case library.Date:
		return x.SameDay(mustType[library.Date](b))
	case time.Time:
		return x.Equal(mustType[time.Time](b))
	default:
		panic(fmt.Sprintf("match: unsupported field type %T", a))
	}
}

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []string:
		return strings.Join(library.NormalizeStrings(x), ", ")
	default:
		panic(fmt.Sprintf("match: string similarity on %T", v))
	}
}

func asFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case int64:
		return float64(x)
	default:
		panic(fmt.Sprintf("match: duration comparison on %T", v))
	}
}

func mustType[T any](v any) T {
	x, ok := v.(T)
	if !ok {
		var zero T
		panic(fmt.Sprintf("match: comparing %T with %T", zero, v))
	}
	return x
}
