package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/sydlexius/cadence/internal/duplicate"
	"github.com/sydlexius/cadence/internal/library"
)

// Summary counts the rows written by a commit.
type Summary struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Deleted  int `json:"deleted"`
}

type ref struct {
	kind library.Kind
	id   string
}

// Session is a unit of work over the store. Records are added, removed and
// marked dirty in memory; Commit resolves duplicates and then writes every
// change in one transaction.
//
// A Session is not safe for concurrent use.
type Session struct {
	store  *Store
	engine *duplicate.Engine
	now    func() time.Time

	order     []library.Record
	states    map[library.Record]library.State
	persisted map[library.Record]bool
	dirty     map[library.Record]bool
	byID      map[ref]library.Record
	loaded    []*library.Album
}

// NewSession starts a unit of work. Until SetEngine is called, Commit checks
// for duplicates with no resolvers, so any clash fails the commit.
func (s *Store) NewSession() *Session {
	sess := &Session{
		store:     s,
		now:       time.Now,
		states:    make(map[library.Record]library.State),
		persisted: make(map[library.Record]bool),
		dirty:     make(map[library.Record]bool),
		byID:      make(map[ref]library.Record),
	}
	sess.engine = duplicate.NewEngine(duplicate.Options{Store: sess, Logger: s.logger})
	return sess
}

// SetEngine replaces the duplicate engine used by Commit. The engine should
// have been built with this session as its Store.
func (s *Session) SetEngine(e *duplicate.Engine) {
	s.engine = e
}

// State reports where r stands in this unit of work.
func (s *Session) State(r library.Record) library.State {
	if st, ok := s.states[r]; ok {
		return st
	}
	return library.StateTransient
}

// Add schedules r for insertion. Adding an album adds its tracks and extras.
// IDs are assigned here so that children can be keyed by album before commit.
func (s *Session) Add(r library.Record) {
	switch s.State(r) {
	case library.StatePending, library.StatePersistent:
		return
	case library.StateDeleted:
		if s.persisted[r] {
			s.states[r] = library.StatePersistent
			s.dirty[r] = true
		} else {
			s.states[r] = library.StatePending
		}
	default:
		s.track(r, library.StatePending)
	}
	if a, ok := r.(*library.Album); ok {
		s.adoptChildren(a)
	}
}

// Remove schedules r for deletion. Removing an album removes its children;
// removing a track or extra detaches it from its album.
func (s *Session) Remove(r library.Record) {
	if s.State(r).Removed() {
		return
	}
	s.states[r] = library.StateDeleted
	delete(s.dirty, r)

	switch v := r.(type) {
	case *library.Album:
		for _, t := range v.Tracks {
			s.Remove(t)
		}
		for _, e := range v.Extras {
			s.Remove(e)
		}
	case *library.Track:
		if a := s.parent(v.AlbumID); a != nil && s.State(a) != library.StateDeleted {
			a.RemoveTrack(v)
		}
	case *library.Extra:
		if a := s.parent(v.AlbumID); a != nil && s.State(a) != library.StateDeleted {
			a.RemoveExtra(v)
		}
	}
}

// MarkDirty schedules an update of a persistent record changed in place.
// Marking an album also covers its children, and any child not yet known to
// the session is added.
func (s *Session) MarkDirty(r library.Record) {
	switch s.State(r) {
	case library.StatePersistent:
		s.dirty[r] = true
	case library.StatePending:
	default:
		return
	}
	if a, ok := r.(*library.Album); ok {
		s.adoptChildren(a)
	}
}

// GetAlbum returns the album with the given ID, loading it from the store
// when the session has not seen it yet.
func (s *Session) GetAlbum(ctx context.Context, id string) (*library.Album, error) {
	if r, ok := s.byID[ref{library.KindAlbum, id}]; ok {
		if s.State(r).Removed() {
			return nil, fmt.Errorf("album %s: %w", id, ErrNotFound)
		}
		return r.(*library.Album), nil
	}
	a, err := s.store.GetAlbum(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.attach(a), nil
}

// QueryAll returns every stored record of kind that has not been removed in
// this session. Records already known to the session are returned as the
// same instances.
func (s *Session) QueryAll(ctx context.Context, kind library.Kind) ([]library.Record, error) {
	if s.loaded == nil {
		albums, err := s.store.ListAlbums(ctx)
		if err != nil {
			return nil, err
		}
		s.loaded = make([]*library.Album, 0, len(albums))
		for _, a := range albums {
			s.loaded = append(s.loaded, s.attach(a))
		}
	}
	var out []library.Record
	for _, r := range flatten(s.loaded, kind) {
		if s.persisted[r] && !s.State(r).Removed() {
			out = append(out, r)
		}
	}
	return out, nil
}

// Commit resolves duplicates among the new and changed records, then writes
// all pending changes in a single transaction. On any error nothing is
// written and the error is returned; an unresolved duplicate surfaces as a
// *duplicate.DuplicateError.
func (s *Session) Commit(ctx context.Context) (Summary, error) {
	defer func() { s.loaded = nil }()

	s.refreshChildren()
	if err := s.engine.ResolveBatch(ctx, s.batch()); err != nil {
		return Summary{}, err
	}
	s.refreshChildren()

	for _, r := range s.order {
		if s.State(r) != library.StatePending {
			continue
		}
		if err := checkParent(r); err != nil {
			return Summary{}, err
		}
	}

	var sum Summary
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return Summary{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now().UTC()
	if sum.Updated, err = s.writeUpdates(ctx, tx, now); err != nil {
		return Summary{}, err
	}
	if sum.Deleted, err = s.writeDeletes(ctx, tx); err != nil {
		return Summary{}, err
	}
	if sum.Inserted, err = s.writeInserts(ctx, tx, now); err != nil {
		return Summary{}, err
	}
	if err := tx.Commit(); err != nil {
		return Summary{}, fmt.Errorf("committing transaction: %w", err)
	}

	s.settle()
	s.store.logger.Debug("session committed",
		slog.Int("inserted", sum.Inserted),
		slog.Int("updated", sum.Updated),
		slog.Int("deleted", sum.Deleted))
	return sum, nil
}

func (s *Session) track(r library.Record, st library.State) {
	if _, ok := s.states[r]; !ok {
		s.order = append(s.order, r)
	}
	s.states[r] = st
	s.assignID(r)
	if id := r.RecordID(); id != "" {
		s.byID[ref{r.Kind(), id}] = r
	}
}

func (s *Session) assignID(r library.Record) {
	switch v := r.(type) {
	case *library.Album:
		if v.ID == "" {
			v.ID = uuid.New().String()
		}
	case *library.Track:
		if v.ID == "" {
			v.ID = uuid.New().String()
		}
	case *library.Extra:
		if v.ID == "" {
			v.ID = uuid.New().String()
		}
	}
}

// adoptChildren adds untracked children of a as pending, points every child
// at a, and marks persistent children of a dirty album dirty.
func (s *Session) adoptChildren(a *library.Album) {
	albumDirty := s.dirty[a]
	visit := func(child library.Record, albumID *string) {
		switch s.State(child) {
		case library.StateTransient:
			*albumID = a.ID
			s.track(child, library.StatePending)
		case library.StatePersistent:
			if *albumID != a.ID {
				*albumID = a.ID
				s.dirty[child] = true
			}
			if albumDirty {
				s.dirty[child] = true
			}
		case library.StatePending:
			*albumID = a.ID
		}
	}
	for _, t := range a.Tracks {
		visit(t, &t.AlbumID)
	}
	for _, e := range a.Extras {
		visit(e, &e.AlbumID)
	}
}

// refreshChildren picks up children attached to live albums since they were
// added or marked dirty, for example by a merge.
func (s *Session) refreshChildren() {
	for i := 0; i < len(s.order); i++ {
		a, ok := s.order[i].(*library.Album)
		if !ok {
			continue
		}
		if st := s.State(a); st == library.StatePending || s.dirty[a] {
			s.adoptChildren(a)
		}
	}
}

func (s *Session) attach(a *library.Album) *library.Album {
	if r, ok := s.byID[ref{library.KindAlbum, a.ID}]; ok {
		return r.(*library.Album)
	}
	s.markLoaded(a)
	for i, t := range a.Tracks {
		if r, ok := s.byID[ref{library.KindTrack, t.ID}]; ok {
			a.Tracks[i] = r.(*library.Track)
			continue
		}
		s.markLoaded(t)
	}
	for i, e := range a.Extras {
		if r, ok := s.byID[ref{library.KindExtra, e.ID}]; ok {
			a.Extras[i] = r.(*library.Extra)
			continue
		}
		s.markLoaded(e)
	}
	return a
}

func (s *Session) markLoaded(r library.Record) {
	s.track(r, library.StatePersistent)
	s.persisted[r] = true
}

func (s *Session) parent(albumID string) *library.Album {
	if albumID == "" {
		return nil
	}
	if r, ok := s.byID[ref{library.KindAlbum, albumID}]; ok {
		return r.(*library.Album)
	}
	return nil
}

// batch returns the records a commit would write: pending ones and dirty
// persistent ones, in the order the session first saw them.
func (s *Session) batch() []library.Record {
	var out []library.Record
	for _, r := range s.order {
		st := s.State(r)
		if st == library.StatePending || (st == library.StatePersistent && s.dirty[r]) {
			out = append(out, r)
		}
	}
	return out
}

func checkParent(r library.Record) error {
	var albumID string
	switch v := r.(type) {
	case *library.Track:
		albumID = v.AlbumID
	case *library.Extra:
		albumID = v.AlbumID
	default:
		return nil
	}
	if albumID == "" {
		return fmt.Errorf("%s %s has no album", r.Kind(), r.RecordPath())
	}
	return nil
}

func (s *Session) writeUpdates(ctx context.Context, tx *sql.Tx, now time.Time) (int, error) {
	n := 0
	for _, r := range s.order {
		if s.State(r) != library.StatePersistent || !s.dirty[r] {
			continue
		}
		touch(r, now, false)
		table, row := recordRow(r)
		delete(row, "id")
		delete(row, "created_at")
		query, args, err := sq.Update(table).SetMap(row).Where(sq.Eq{"id": r.RecordID()}).ToSql()
		if err != nil {
			return n, fmt.Errorf("building %s update: %w", r.Kind(), err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return n, fmt.Errorf("updating %s %s: %w", r.Kind(), r.RecordID(), err)
		}
		n++
	}
	return n, nil
}

func (s *Session) writeDeletes(ctx context.Context, tx *sql.Tx) (int, error) {
	n := 0
	for _, kind := range []library.Kind{library.KindExtra, library.KindTrack, library.KindAlbum} {
		var ids []string
		for _, r := range s.order {
			if r.Kind() == kind && s.State(r) == library.StateDeleted && s.persisted[r] {
				ids = append(ids, r.RecordID())
			}
		}
		if len(ids) == 0 {
			continue
		}
		query, args, err := sq.Delete(tableFor(kind)).Where(sq.Eq{"id": ids}).ToSql()
		if err != nil {
			return n, fmt.Errorf("building %s delete: %w", kind, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return n, fmt.Errorf("deleting %s records: %w", kind, err)
		}
		n += len(ids)
	}
	return n, nil
}

func (s *Session) writeInserts(ctx context.Context, tx *sql.Tx, now time.Time) (int, error) {
	pending := slices.DeleteFunc(slices.Clone(s.order), func(r library.Record) bool {
		return s.State(r) != library.StatePending
	})
	slices.SortStableFunc(pending, func(a, b library.Record) int {
		return a.Kind().Rank() - b.Kind().Rank()
	})

	for _, r := range pending {
		touch(r, now, true)
		table, row := recordRow(r)
		query, args, err := sq.Insert(table).SetMap(row).ToSql()
		if err != nil {
			return 0, fmt.Errorf("building %s insert: %w", r.Kind(), err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("inserting %s %s: %w", r.Kind(), r.RecordPath(), err)
		}
	}
	return len(pending), nil
}

func touch(r library.Record, now time.Time, created bool) {
	var createdAt, updatedAt *time.Time
	switch v := r.(type) {
	case *library.Album:
		createdAt, updatedAt = &v.CreatedAt, &v.UpdatedAt
	case *library.Track:
		createdAt, updatedAt = &v.CreatedAt, &v.UpdatedAt
	case *library.Extra:
		createdAt, updatedAt = &v.CreatedAt, &v.UpdatedAt
	default:
		return
	}
	if created && createdAt.IsZero() {
		*createdAt = now
	}
	*updatedAt = now
}

// settle moves the session to its post-commit state: pending records become
// persistent and deleted ones are forgotten.
func (s *Session) settle() {
	kept := s.order[:0]
	for _, r := range s.order {
		switch s.State(r) {
		case library.StateDeleted, library.StateTransient:
			delete(s.states, r)
			delete(s.persisted, r)
			if id := r.RecordID(); id != "" && s.byID[ref{r.Kind(), id}] == r {
				delete(s.byID, ref{r.Kind(), id})
			}
			continue
		case library.StatePending:
			s.states[r] = library.StatePersistent
			s.persisted[r] = true
		}
		kept = append(kept, r)
	}
	clear(s.order[len(kept):])
	s.order = kept
	clear(s.dirty)
}
