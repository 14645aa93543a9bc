package duplicate

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/sydlexius/cadence/internal/library"
)

// Store is the persistence collaborator the engine reads from.
type Store interface {
	// QueryAll returns every visible record of kind.
	QueryAll(ctx context.Context, kind library.Kind) ([]library.Record, error)
	// State reports where r stands in the current unit of work.
	State(r library.Record) library.State
}

// Predicate is an extra uniqueness check for one kind. Returning false makes
// the pair non-unique; nil means no opinion.
type Predicate func(item, other library.Record) *bool

// Resolver eliminates a duplicate pair by editing one or both records or by
// removing one of them from the store.
type Resolver func(ctx context.Context, item, other library.Record) error

// Verdict is a helper for predicates.
func Verdict(unique bool) *bool { return &unique }

// Options configures an Engine.
type Options struct {
	Store      Store
	Predicates map[library.Kind][]Predicate
	Resolvers  []Resolver
	Logger     *slog.Logger
}

// Engine finds records that break uniqueness and drives them to resolution.
type Engine struct {
	store      Store
	predicates map[library.Kind][]Predicate
	resolvers  []Resolver
	logger     *slog.Logger
}

// NewEngine creates an engine. Predicates and resolvers run in the order given.
func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	preds := make(map[library.Kind][]Predicate, len(opts.Predicates))
	for kind, ps := range opts.Predicates {
		preds[kind] = slices.Clone(ps)
	}
	return &Engine{
		store:      opts.Store,
		predicates: preds,
		resolvers:  slices.Clone(opts.Resolvers),
		logger:     logger.With(slog.String("component", "duplicates")),
	}
}

// AddPredicate appends a uniqueness predicate for kind.
func (e *Engine) AddPredicate(kind library.Kind, p Predicate) {
	e.predicates[kind] = append(e.predicates[kind], p)
}

// AddResolver appends a resolution strategy. Every resolver is invoked for
// each duplicate pair.
func (e *Engine) AddResolver(r Resolver) {
	e.resolvers = append(e.resolvers, r)
}

// IsUnique reports whether item and other may coexist in the library.
// Albums clash on path; tracks on path or on (track number, disc, album);
// extras on path. Any registered predicate answering false also makes the
// pair non-unique. Records of different kinds are always unique.
//
// The (track number, disc, album) check needs an AlbumID on both tracks.
// A Session assigns one on Add; tracks of an album that never went through
// a Session only clash on path.
func (e *Engine) IsUnique(item, other library.Record) bool {
	if item.Kind() != other.Kind() {
		return true
	}
	unique := builtinUnique(item, other)
	for _, p := range e.predicates[item.Kind()] {
		if v := p(item, other); v != nil && !*v {
			unique = false
		}
	}
	return unique
}

func builtinUnique(item, other library.Record) bool {
	if samePath(item.RecordPath(), other.RecordPath()) {
		return false
	}
	if x, ok := item.(*library.Track); ok {
		y := other.(*library.Track)
		if x.AlbumID != "" && x.AlbumID == y.AlbumID &&
			x.TrackNum == y.TrackNum && x.Disc == y.Disc {
			return false
		}
	}
	return true
}

func samePath(a, b string) bool {
	return a != "" && b != "" && filepath.Clean(a) == filepath.Clean(b)
}

// sameRecord reports whether a and b are the same record instance or carry
// the same store ID.
func sameRecord(a, b library.Record) bool {
	if a == b {
		return true
	}
	return a.Kind() == b.Kind() && a.RecordID() != "" && a.RecordID() == b.RecordID()
}

// FindDuplicates returns the members of candidates that clash with item.
// When candidates is nil every stored record of item's kind is checked.
func (e *Engine) FindDuplicates(ctx context.Context, item library.Record, candidates []library.Record) ([]library.Record, error) {
	if candidates == nil {
		stored, err := e.store.QueryAll(ctx, item.Kind())
		if err != nil {
			return nil, fmt.Errorf("querying %s records: %w", item.Kind(), err)
		}
		candidates = stored
	}
	return e.duplicatesIn(item, candidates), nil
}

func (e *Engine) duplicatesIn(item library.Record, candidates []library.Record) []library.Record {
	var dups []library.Record
	for _, other := range candidates {
		if other == nil || other.Kind() != item.Kind() || sameRecord(item, other) {
			continue
		}
		if !e.IsUnique(item, other) {
			dups = append(dups, other)
		}
	}
	return dups
}

type pair struct {
	a, b library.Record
}

// ResolveBatch checks every record of a unit of work against the rest of
// the batch and the store, and runs the resolvers on each clash. Albums are
// handled before tracks, and tracks before extras, so that resolving an album
// settles its children first. A pair is resolved at most once.
//
// If a pair is still non-unique after the resolvers ran and neither side was
// removed, ResolveBatch returns a *DuplicateError and the caller must roll back.
func (e *Engine) ResolveBatch(ctx context.Context, items []library.Record) error {
	ordered := slices.Clone(items)
	slices.SortStableFunc(ordered, func(a, b library.Record) int {
		return cmp.Compare(a.Kind().Rank(), b.Kind().Rank())
	})

	resolved := make(map[pair]bool)
	for i, item := range ordered {
		if e.removed(item) {
			continue
		}

		rest := make([]library.Record, 0, len(ordered)-1)
		rest = append(rest, ordered[:i]...)
		rest = append(rest, ordered[i+1:]...)
		dups := e.duplicatesIn(item, rest)

		stored, err := e.FindDuplicates(ctx, item, nil)
		if err != nil {
			return err
		}
		dups = append(dups, stored...)

		for _, other := range dups {
			if e.removed(item) {
				break
			}
			if resolved[pair{item, other}] || e.removed(other) {
				continue
			}
			if err := e.resolve(ctx, item, other); err != nil {
				return err
			}
			resolved[pair{item, other}] = true
			resolved[pair{other, item}] = true
		}
	}
	return nil
}

func (e *Engine) resolve(ctx context.Context, item, other library.Record) error {
	e.logger.Debug("resolving duplicate", slog.Any("item", item), slog.Any("other", other))
	for _, r := range e.resolvers {
		if err := r(ctx, item, other); err != nil {
			return fmt.Errorf("resolving duplicate %s %s: %w", item.Kind(), describe(item), err)
		}
	}
	if !e.IsUnique(item, other) && !e.removed(item) && !e.removed(other) {
		return &DuplicateError{Item: item, Other: other}
	}
	e.logger.Info("duplicate resolved",
		slog.Any("item", item),
		slog.Any("other", other),
		slog.String("item_state", e.store.State(item).String()),
		slog.String("other_state", e.store.State(other).String()))
	return nil
}

func (e *Engine) removed(r library.Record) bool {
	return e.store.State(r).Removed()
}
