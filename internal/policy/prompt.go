package policy

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sydlexius/cadence/internal/library"
)

type prompter struct {
	p           *policy
	in          *bufio.Reader
	out         io.Writer
	interactive func() bool
}

func newPrompter(p *policy, opts Options) *prompter {
	in := opts.In
	if in == nil {
		in = os.Stdin
	}
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	interactive := opts.Interactive
	if interactive == nil {
		interactive = stdinIsTerminal
	}
	return &prompter{p: p, in: bufio.NewReader(in), out: out, interactive: interactive}
}

// resolve asks the user how to handle the pair. Without a terminal it keeps
// the existing record.
func (pr *prompter) resolve(ctx context.Context, item, other library.Record) error {
	if !pr.interactive() {
		pr.p.logger.Warn("no terminal for prompt, keeping existing record")
		return pr.p.keepExisting(ctx, item, other)
	}

	fmt.Fprintf(pr.out, "\nDuplicate %s found:\n", item.Kind())
	fmt.Fprintf(pr.out, "  existing: %s\n", label(other))
	fmt.Fprintf(pr.out, "  incoming: %s\n", label(item))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(pr.out, "[e]keep existing, [n]keep incoming, [m]erge, [o]merge overwriting, [b]oth? ")
		line, err := pr.in.ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("reading answer: %w", err)
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "e":
			pr.p.drop(item, other, "chosen")
			return nil
		case "n":
			pr.p.drop(other, item, "chosen")
			return nil
		case "m":
			pr.p.mergeInto(item, other, false)
			return nil
		case "o":
			pr.p.mergeInto(item, other, true)
			return nil
		case "b":
			pr.p.logger.Info("keeping both records", "item", item, "other", other)
			return nil
		}
		fmt.Fprintln(pr.out, "Please answer e, n, m, o or b.")
	}
}
