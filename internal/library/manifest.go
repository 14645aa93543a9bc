package library

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DecodeAlbum reads an album manifest: a JSON object in the same shape the
// album encodes to, with tracks and extras nested. Children are parented to
// the decoded album.
func DecodeAlbum(r io.Reader) (*Album, error) {
	var a Album
	dec := json.NewDecoder(r)
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("decoding album manifest: %w", err)
	}
	tracks, extras := a.Tracks, a.Extras
	a.Tracks, a.Extras = nil, nil
	for _, t := range tracks {
		if t != nil {
			a.AddTrack(t)
		}
	}
	for _, e := range extras {
		if e != nil {
			a.AddExtra(e)
		}
	}
	a.CatalogNums = NormalizeStrings(a.CatalogNums)
	return &a, nil
}

// ReadAlbumFile decodes the album manifest at path.
func ReadAlbumFile(path string) (*Album, error) {
	f, err := os.Open(path) //nolint:gosec // path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer f.Close() //nolint:errcheck
	return DecodeAlbum(f)
}

// ResolvePaths makes the relative paths of a and its children absolute under
// root. Empty paths and absolute paths are left alone, as is everything when
// root is empty.
func ResolvePaths(a *Album, root string) {
	if root == "" {
		return
	}
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(root, p)
	}
	a.Path = resolve(a.Path)
	for _, t := range a.Tracks {
		t.Path = resolve(t.Path)
	}
	for _, e := range a.Extras {
		e.Path = resolve(e.Path)
	}
}
