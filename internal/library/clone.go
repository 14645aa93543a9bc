package library

import "slices"

// Clone returns a deep copy of the album, its children and custom fields.
func (a *Album) Clone() *Album {
	c := *a
	c.CatalogNums = slices.Clone(a.CatalogNums)
	c.Custom = *a.Custom.Clone()
	c.Tracks = make([]*Track, len(a.Tracks))
	for i, t := range a.Tracks {
		c.Tracks[i] = t.Clone()
	}
	c.Extras = make([]*Extra, len(a.Extras))
	for i, e := range a.Extras {
		c.Extras[i] = e.Clone()
	}
	return &c
}

// Clone returns a deep copy of the track.
func (t *Track) Clone() *Track {
	c := *t
	c.Genres = slices.Clone(t.Genres)
	c.Custom = *t.Custom.Clone()
	return &c
}

// Clone returns a deep copy of the extra.
func (e *Extra) Clone() *Extra {
	c := *e
	c.Custom = *e.Custom.Clone()
	return &c
}
