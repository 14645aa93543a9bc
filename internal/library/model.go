package library

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Kind identifies a record variant.
type Kind string

// Record kinds.
const (
	KindAlbum Kind = "album"
	KindTrack Kind = "track"
	KindExtra Kind = "extra"
)

// Rank orders kinds so that albums are handled before their children.
func (k Kind) Rank() int {
	switch k {
	case KindAlbum:
		return 0
	case KindTrack:
		return 1
	case KindExtra:
		return 2
	default:
		return 3
	}
}

// ParseKind converts a string into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindAlbum, KindTrack, KindExtra:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown record kind: %q", s)
}

// State is the lifecycle stage of a record with respect to the store.
type State int

// Store states.
const (
	StateTransient State = iota
	StatePending
	StatePersistent
	StateDeleted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StatePersistent:
		return "persistent"
	case StateDeleted:
		return "deleted"
	default:
		return "transient"
	}
}

// Removed reports whether a record in this state is already out of the
// library: never submitted, or deleted.
func (s State) Removed() bool {
	return s == StateTransient || s == StateDeleted
}

// Record is implemented by *Album, *Track and *Extra.
type Record interface {
	Kind() Kind
	RecordID() string
	RecordPath() string
	CustomFields() *Fields
	Created() time.Time
	slog.LogValuer
}

// Date is a calendar date without time of day. The zero Date is missing.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate returns the Date for the given year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses YYYY-MM-DD, YYYY-MM or YYYY. An empty string yields the zero Date.
func ParseDate(s string) (Date, error) {
	if s == "" {
		return Date{}, nil
	}
	for _, layout := range []string{dateLayout, "2006-01", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{t}, nil
		}
	}
	return Date{}, fmt.Errorf("invalid date: %q", s)
}

// SameDay reports whether both dates fall on the same calendar day.
func (d Date) SameDay(o Date) bool {
	y1, m1, d1 := d.Date()
	y2, m2, d2 := o.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// String formats the date as YYYY-MM-DD, or "" when missing.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// MarshalJSON encodes the date as "YYYY-MM-DD" or null.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts null, "", or any layout ParseDate understands.
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
