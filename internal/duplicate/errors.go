package duplicate

import (
	"errors"
	"fmt"

	"github.com/sydlexius/cadence/internal/library"
)

// ErrDuplicate is matched by every DuplicateError.
var ErrDuplicate = errors.New("duplicate record")

// DuplicateError reports a pair that is still a duplicate after every
// resolver ran. The surrounding unit of work must not be committed.
type DuplicateError struct {
	Item  library.Record
	Other library.Record
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("unresolved duplicate %s: %s conflicts with %s",
		e.Item.Kind(), describe(e.Item), describe(e.Other))
}

// Unwrap lets errors.Is match ErrDuplicate.
func (e *DuplicateError) Unwrap() error { return ErrDuplicate }

func describe(r library.Record) string {
	switch {
	case r.RecordPath() != "":
		return r.RecordPath()
	case r.RecordID() != "":
		return "id " + r.RecordID()
	}
	if s, ok := r.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%p", r)
}
