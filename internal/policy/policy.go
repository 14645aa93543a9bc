// Package policy provides the named duplicate resolution strategies that can
// be plugged into a duplicate.Engine.
package policy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"golang.org/x/term"

	"github.com/sydlexius/cadence/internal/duplicate"
	"github.com/sydlexius/cadence/internal/event"
	"github.com/sydlexius/cadence/internal/library"
)

// Strategy names accepted by New.
const (
	KeepNewest     = "keep-newest"
	KeepExisting   = "keep-existing"
	Merge          = "merge"
	MergeOverwrite = "merge-overwrite"
	Prompt         = "prompt"
	None           = "none"
)

// Names lists every strategy name in display order.
func Names() []string {
	return []string{KeepNewest, KeepExisting, Merge, MergeOverwrite, Prompt, None}
}

// Valid reports whether name is a known strategy.
func Valid(name string) bool {
	return slices.Contains(Names(), name)
}

// Session is the unit of work a strategy edits.
type Session interface {
	Remove(r library.Record)
	MarkDirty(r library.Record)
}

// Options configures a strategy.
type Options struct {
	// Events receives a duplicate.resolved event per handled pair. Optional.
	Events event.Publisher
	Logger *slog.Logger

	// In and Out are used by the prompt strategy. They default to stdin and stderr.
	In  io.Reader
	Out io.Writer
	// Interactive reports whether In is a terminal. Defaults to checking stdin.
	Interactive func() bool
}

// New returns the resolver for the named strategy.
func New(name string, sess Session, opts Options) (duplicate.Resolver, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	p := &policy{
		name:   name,
		sess:   sess,
		events: opts.Events,
		logger: opts.Logger.With(slog.String("component", "policy"), slog.String("strategy", name)),
	}

	switch name {
	case KeepNewest:
		return p.keepNewest, nil
	case KeepExisting:
		return p.keepExisting, nil
	case Merge:
		return p.merge(false), nil
	case MergeOverwrite:
		return p.merge(true), nil
	case Prompt:
		pr := newPrompter(p, opts)
		return pr.resolve, nil
	case None:
		return func(context.Context, library.Record, library.Record) error { return nil }, nil
	}
	return nil, fmt.Errorf("unknown duplicate strategy %q (want one of %s)", name, strings.Join(Names(), ", "))
}

type policy struct {
	name   string
	sess   Session
	events event.Publisher
	logger *slog.Logger
}

// keepNewest removes the record created first. A record that has not been
// stored yet counts as newer than any stored one; ties remove other.
func (p *policy) keepNewest(_ context.Context, item, other library.Record) error {
	if older(item, other) {
		p.drop(item, other, "older")
		return nil
	}
	p.drop(other, item, "older")
	return nil
}

func older(a, b library.Record) bool {
	ca, cb := a.Created(), b.Created()
	switch {
	case ca.IsZero():
		return false
	case cb.IsZero():
		return true
	}
	return ca.Before(cb)
}

func (p *policy) keepExisting(_ context.Context, item, other library.Record) error {
	p.drop(item, other, "incoming")
	return nil
}

func (p *policy) merge(overwrite bool) duplicate.Resolver {
	return func(_ context.Context, item, other library.Record) error {
		p.mergeInto(item, other, overwrite)
		return nil
	}
}

// mergeInto folds item into other and removes item.
func (p *policy) mergeInto(item, other library.Record, overwrite bool) {
	library.Merge(other, item, overwrite)
	p.sess.MarkDirty(other)
	p.drop(item, other, "merged")
}

// drop removes loser from the session and reports that winner was kept.
func (p *policy) drop(loser, winner library.Record, reason string) {
	p.sess.Remove(loser)
	p.logger.Info("duplicate removed",
		slog.Any("removed", loser),
		slog.Any("kept", winner),
		slog.String("reason", reason))
	p.publish(loser, winner, reason)
}

func (p *policy) publish(removed, kept library.Record, reason string) {
	if p.events == nil {
		return
	}
	data := map[string]any{
		"strategy": p.name,
		"kind":     string(kept.Kind()),
		"reason":   reason,
		"kept":     label(kept),
		"removed":  label(removed),
	}
	p.events.Publish(event.Event{Type: event.DuplicateResolved, Data: data})
}

func label(r library.Record) string {
	var name string
	if s, ok := r.(fmt.Stringer); ok {
		name = strings.Trim(s.String(), " -")
	}
	path := r.RecordPath()
	switch {
	case name != "" && path != "":
		return name + " [" + path + "]"
	case name != "":
		return name
	case path != "":
		return path
	}
	return r.RecordID()
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
