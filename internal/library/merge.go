package library

import (
	"fmt"
	"slices"
)

// Merge folds source into target, which must be the same kind. A field is
// copied only when the source value is set and either overwrite is true or
// the target value is unset, so missing source data never erases anything.
// IDs, album ownership, paths and timestamps are never merged.
func Merge(target, source Record, overwrite bool) {
	switch t := target.(type) {
	case *Album:
		s, ok := source.(*Album)
		if !ok {
			panic(kindMismatch("merge", target, source))
		}
		t.Merge(s, overwrite)
	case *Track:
		s, ok := source.(*Track)
		if !ok {
			panic(kindMismatch("merge", target, source))
		}
		t.Merge(s, overwrite)
	case *Extra:
		s, ok := source.(*Extra)
		if !ok {
			panic(kindMismatch("merge", target, source))
		}
		t.Merge(s, overwrite)
	default:
		panic(fmt.Sprintf("library: merge of unsupported record type %T", target))
	}
}

// Merge folds o into a, then merges children by identity key. Tracks are
// keyed by (disc, track number) and extras by their album-relative path;
// source children without a counterpart are moved onto a.
//
// Moved children keep their paths. An extra moved from an album stored
// elsewhere is therefore outside a.Path, and ExtraKey falls back to its base
// name for it in later merges.
func (a *Album) Merge(o *Album, overwrite bool) {
	if a == o {
		return
	}
	mergeString(&a.Artist, o.Artist, overwrite)
	mergeString(&a.Title, o.Title, overwrite)
	mergeString(&a.Barcode, o.Barcode, overwrite)
	mergeStrings(&a.CatalogNums, o.CatalogNums, overwrite)
	mergeString(&a.Country, o.Country, overwrite)
	mergeDate(&a.Date, o.Date, overwrite)
	mergeDate(&a.OriginalDate, o.OriginalDate, overwrite)
	mergeInt(&a.DiscTotal, o.DiscTotal, overwrite)
	mergeString(&a.Label, o.Label, overwrite)
	mergeString(&a.Media, o.Media, overwrite)
	mergeInt(&a.TrackTotal, o.TrackTotal, overwrite)
	mergeString(&a.MBAlbumID, o.MBAlbumID, overwrite)
	mergeCustom(&a.Custom, &o.Custom, overwrite)

	for _, ot := range slices.Clone(o.Tracks) {
		if t := a.TrackByKey(ot.Key()); t != nil {
			t.Merge(ot, overwrite)
			continue
		}
		o.RemoveTrack(ot)
		a.AddTrack(ot)
	}
	for _, oe := range slices.Clone(o.Extras) {
		if e := a.ExtraByKey(o.ExtraKey(oe)); e != nil {
			e.Merge(oe, overwrite)
			continue
		}
		o.RemoveExtra(oe)
		a.AddExtra(oe)
	}
}

// Merge folds o into t.
func (t *Track) Merge(o *Track, overwrite bool) {
	if t == o {
		return
	}
	mergeInt(&t.Disc, o.Disc, overwrite)
	mergeInt(&t.TrackNum, o.TrackNum, overwrite)
	mergeString(&t.Title, o.Title, overwrite)
	mergeString(&t.Artist, o.Artist, overwrite)
	mergeStrings(&t.Genres, o.Genres, overwrite)
	mergeFloat(&t.Length, o.Length, overwrite)
	mergeString(&t.MBTrackID, o.MBTrackID, overwrite)
	mergeCustom(&t.Custom, &o.Custom, overwrite)
}

// Merge folds o into e. Extras carry only custom fields.
func (e *Extra) Merge(o *Extra, overwrite bool) {
	if e == o {
		return
	}
	mergeCustom(&e.Custom, &o.Custom, overwrite)
}

func mergeString(dst *string, src string, overwrite bool) {
	if src != "" && (overwrite || *dst == "") {
		*dst = src
	}
}

func mergeInt(dst *int, src int, overwrite bool) {
	if src != 0 && (overwrite || *dst == 0) {
		*dst = src
	}
}

func mergeFloat(dst *float64, src float64, overwrite bool) {
	if src != 0 && (overwrite || *dst == 0) {
		*dst = src
	}
}

func mergeDate(dst *Date, src Date, overwrite bool) {
	if !src.IsZero() && (overwrite || dst.IsZero()) {
		*dst = src
	}
}

func mergeStrings(dst *[]string, src []string, overwrite bool) {
	if len(src) > 0 && (overwrite || len(*dst) == 0) {
		*dst = slices.Clone(src)
	}
}

// mergeCustom applies the field rule to the union of both key sets.
func mergeCustom(dst, src *Fields, overwrite bool) {
	for _, k := range src.Keys() {
		sv, _ := src.Get(k)
		if sv.IsZero() {
			continue
		}
		dv, _ := dst.Get(k)
		if overwrite || dv.IsZero() {
			dst.Set(k, sv.Clone())
		}
	}
}

func kindMismatch(op string, a, b Record) string {
	return fmt.Sprintf("library: %s across kinds: %T and %T", op, a, b)
}
