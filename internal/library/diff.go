package library

import (
	"strconv"
	"strings"
)

// Diff statuses.
const (
	DiffAdded     = "added"
	DiffRemoved   = "removed"
	DiffChanged   = "changed"
	DiffUnchanged = "unchanged"
)

// FieldDiff represents a change in a single field between two records.
type FieldDiff struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
	Status   string `json:"status"`
}

// DiffResult holds the field-level comparison of two records.
type DiffResult struct {
	Fields  []FieldDiff `json:"fields"`
	HasDiff bool        `json:"has_diff"`
}

// Changed returns only the fields whose status is not unchanged.
func (d *DiffResult) Changed() []FieldDiff {
	var out []FieldDiff
	for _, f := range d.Fields {
		if f.Status != DiffUnchanged {
			out = append(out, f)
		}
	}
	return out
}

type displayField struct {
	name  string
	value string
}

// Diff compares old and newRec field by field, custom fields included.
// Either may be nil, in which case every field of the other is added or
// removed. Non-nil records must be the same kind.
func Diff(old, newRec Record) *DiffResult {
	if old != nil && newRec != nil && old.Kind() != newRec.Kind() {
		panic(kindMismatch("diff", old, newRec))
	}
	result := &DiffResult{}

	oldFields := displayFields(old)
	newFields := displayFields(newRec)
	// Both lists share the same order for the fixed fields; custom keys are
	// appended per record, so index them by name.
	newByName := make(map[string]string, len(newFields))
	for _, f := range newFields {
		newByName[f.name] = f.value
	}
	seen := make(map[string]bool, len(oldFields))

	for _, f := range oldFields {
		seen[f.name] = true
		result.add(f.name, f.value, newByName[f.name])
	}
	for _, f := range newFields {
		if !seen[f.name] {
			result.add(f.name, "", f.value)
		}
	}
	return result
}

func (d *DiffResult) add(name, oldVal, newVal string) {
	fd := FieldDiff{Field: name, OldValue: oldVal, NewValue: newVal}
	switch {
	case oldVal == "" && newVal != "":
		fd.Status = DiffAdded
	case oldVal != "" && newVal == "":
		fd.Status = DiffRemoved
	case oldVal != newVal:
		fd.Status = DiffChanged
	default:
		fd.Status = DiffUnchanged
	}
	if fd.Status != DiffUnchanged {
		d.HasDiff = true
	}
	d.Fields = append(d.Fields, fd)
}

func displayFields(r Record) []displayField {
	var out []displayField
	switch v := r.(type) {
	case nil:
		return nil
	case *Album:
		out = []displayField{
			{"Artist", v.Artist},
			{"Title", v.Title},
			{"Barcode", v.Barcode},
			{"Catalog Numbers", strings.Join(v.CatalogNums, ", ")},
			{"Country", v.Country},
			{"Date", v.Date.String()},
			{"Original Date", v.OriginalDate.String()},
			{"Disc Total", intString(v.DiscTotal)},
			{"Label", v.Label},
			{"Media", v.Media},
			{"Track Total", intString(v.TrackTotal)},
			{"MusicBrainz Album ID", v.MBAlbumID},
		}
	case *Track:
		out = []displayField{
			{"Disc", intString(v.Disc)},
			{"Track Number", intString(v.TrackNum)},
			{"Title", v.Title},
			{"Artist", v.Artist},
			{"Genres", strings.Join(v.Genres, ", ")},
			{"Length", floatString(v.Length)},
			{"MusicBrainz Track ID", v.MBTrackID},
		}
	case *Extra:
		out = []displayField{{"Path", v.Path}}
	}
	custom := r.CustomFields()
	for _, k := range custom.Keys() {
		val, _ := custom.Get(k)
		out = append(out, displayField{"custom." + k, val.String()})
	}
	return out
}

func intString(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func floatString(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
