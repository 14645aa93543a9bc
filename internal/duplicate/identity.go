package duplicate

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sydlexius/cadence/internal/library"
)

// Identity fields accepted by IdentityPredicate.
const (
	FieldMBAlbumID = "mb_album_id"
	FieldMBTrackID = "mb_track_id"
)

// IdentityFields lists the fields that can mark records as the same release
// or recording.
func IdentityFields() []string {
	return []string{FieldMBAlbumID, FieldMBTrackID}
}

// IdentityPredicate returns a predicate that makes two records non-unique
// when both carry the same non-empty value for field, along with the kind
// it applies to. Records missing the value get no opinion.
func IdentityPredicate(field string) (library.Kind, Predicate, error) {
	switch field {
	case FieldMBAlbumID:
		return library.KindAlbum, func(item, other library.Record) *bool {
			return sameIdentity(item.(*library.Album).MBAlbumID, other.(*library.Album).MBAlbumID)
		}, nil
	case FieldMBTrackID:
		return library.KindTrack, func(item, other library.Record) *bool {
			return sameIdentity(item.(*library.Track).MBTrackID, other.(*library.Track).MBTrackID)
		}, nil
	}
	return "", nil, fmt.Errorf("unknown identity field %q (want one of %s)",
		field, strings.Join(IdentityFields(), ", "))
}

// ValidIdentityField reports whether field is accepted by IdentityPredicate.
func ValidIdentityField(field string) bool {
	return slices.Contains(IdentityFields(), field)
}

// AddIdentityPredicates registers an identity predicate for each field.
func (e *Engine) AddIdentityPredicates(fields []string) error {
	for _, f := range fields {
		kind, p, err := IdentityPredicate(f)
		if err != nil {
			return err
		}
		e.AddPredicate(kind, p)
	}
	return nil
}

func sameIdentity(a, b string) *bool {
	if a != "" && a == b {
		return Verdict(false)
	}
	return nil
}
