package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sydlexius/cadence/internal/match"
)

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var threshold float64

	cmd := &cobra.Command{
		Use:   "match <album-id> <album-id>",
		Short: "Score two stored albums and pair their tracks",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app) error {
				left, err := a.store.GetAlbum(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				right, err := a.store.GetAlbum(cmd.Context(), args[1])
				if err != nil {
					return err
				}

				if !cmd.Flags().Changed("threshold") {
					threshold = a.cfg.Match.Threshold
				}
				matches := a.scorer.Tracks(left, right, threshold)
				sum := match.Summarize(matches)

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Album score: %.3f (%s vs %s)\n", a.scorer.Score(left, right), left, right)
				fmt.Fprintln(out, renderMatches(matches))
				fmt.Fprintf(out, "Tracks: %d matched, %d only in %s, %d only in %s (threshold %.2f)\n",
					sum.Matched, sum.OldOnly, args[0], sum.NewOnly, args[1], threshold)
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", match.DefaultThreshold, "Minimum track score for a pairing (default from config)")
	return cmd
}
