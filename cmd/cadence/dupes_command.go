package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sydlexius/cadence/internal/duplicate"
	"github.com/sydlexius/cadence/internal/library"
	"github.com/sydlexius/cadence/internal/match"
)

// clash is a pair of stored records reported by the dupes command.
type clash struct {
	Kind   library.Kind `json:"kind"`
	Left   string       `json:"left"`
	Right  string       `json:"right"`
	Reason string       `json:"reason"`
	Score  float64      `json:"score"`
}

func newDupesCommand(ctx *commandContext) *cobra.Command {
	var similar float64
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "dupes",
		Short: "List stored records that clash or look alike",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withApp(cmd, func(a *app) error {
				clashes, err := findClashes(cmd.Context(), a, similar)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, clashes)
				}
				if len(clashes) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No duplicates found")
					return nil
				}
				rows := make([][]string, 0, len(clashes))
				for _, c := range clashes {
					rows = append(rows, []string{string(c.Kind), c.Left, c.Right, c.Reason, strconv.FormatFloat(c.Score, 'f', 3, 64)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Kind", "Record", "Clashes With", "Reason", "Score"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight}))
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&similar, "similar", 0.9, "Also report albums scoring at least this much (0 disables)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

// findClashes checks every stored record against the rest with the
// uniqueness rules, then lists album pairs scoring at or above similar.
func findClashes(ctx context.Context, a *app, similar float64) ([]clash, error) {
	sess := a.store.NewSession()
	engine := duplicate.NewEngine(duplicate.Options{Store: sess, Logger: a.logger})
	if err := engine.AddIdentityPredicates(a.cfg.Duplicates.UniqueBy); err != nil {
		return nil, err
	}

	seen := make(map[[2]library.Record]bool)
	var out []clash
	for _, kind := range []library.Kind{library.KindAlbum, library.KindTrack, library.KindExtra} {
		records, err := sess.QueryAll(ctx, kind)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			dups, err := engine.FindDuplicates(ctx, r, records)
			if err != nil {
				return nil, err
			}
			for _, d := range dups {
				if seen[[2]library.Record{d, r}] {
					continue
				}
				seen[[2]library.Record{r, d}] = true
				out = append(out, clash{Kind: kind, Left: recordLabel(r), Right: recordLabel(d), Reason: "not unique", Score: scoreOf(a.scorer, r, d)})
			}
		}

		if kind != library.KindAlbum || similar <= 0 {
			continue
		}
		for i, r := range records {
			for _, d := range records[i+1:] {
				if seen[[2]library.Record{r, d}] || seen[[2]library.Record{d, r}] {
					continue
				}
				if s := a.scorer.Score(r, d); s >= similar {
					out = append(out, clash{Kind: kind, Left: recordLabel(r), Right: recordLabel(d), Reason: "similar", Score: s})
				}
			}
		}
	}
	return out, nil
}

func scoreOf(s *match.Scorer, a, b library.Record) float64 {
	if a.Kind() == library.KindExtra {
		return 0
	}
	return s.Score(a, b)
}

func recordLabel(r library.Record) string {
	label := r.RecordPath()
	if s, ok := r.(fmt.Stringer); ok && r.Kind() == library.KindAlbum {
		label = s.String()
	}
	if label == "" {
		label = "(no path)"
	}
	return label + " [" + r.RecordID() + "]"
}
