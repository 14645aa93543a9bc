package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sydlexius/cadence/internal/importer"
	"github.com/sydlexius/cadence/internal/library"
	"github.com/sydlexius/cadence/internal/match"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var preview bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "import <album-id> <candidate.json>",
		Short: "Apply metadata from a candidate release to a stored album",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app) error {
				candidate, err := a.readManifest(args[1])
				if err != nil {
					return err
				}

				im := a.importer()
				var res *importer.Result
				if preview {
					res, err = im.Preview(cmd.Context(), args[0], candidate)
				} else {
					res, err = im.Import(cmd.Context(), args[0], candidate)
				}
				if err != nil {
					return err
				}

				if jsonOut {
					return writeJSON(cmd, res)
				}
				printImport(cmd.OutOrStdout(), res, preview)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&preview, "preview", false, "Show the changes without writing them")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func printImport(w io.Writer, res *importer.Result, preview bool) {
	fmt.Fprintln(w, renderMatches(res.Matches))
	fmt.Fprintf(w, "Tracks: %d matched, %d local only, %d candidate only\n",
		res.Summary.Matched, res.Summary.OldOnly, res.Summary.NewOnly)

	rows := diffRows("album", res.Album)
	for _, tc := range res.Tracks {
		rows = append(rows, diffRows(tc.Key.String(), tc.Diff)...)
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "No field changes")
	} else {
		fmt.Fprintln(w, renderTable([]string{"Record", "Field", "Current", "Candidate", "Status"}, rows, nil))
	}

	if res.Dropped > 0 {
		fmt.Fprintf(w, "Dropped %d candidate track(s) with no local file\n", res.Dropped)
	}
	if res.NewExtras > 0 {
		fmt.Fprintf(w, "%d new extra(s)\n", res.NewExtras)
	}
	if preview {
		fmt.Fprintln(w, "Preview only, nothing written")
		return
	}
	fmt.Fprintf(w, "Imported into %s (%d inserted, %d updated, %d deleted)\n",
		res.AlbumID, res.Written.Inserted, res.Written.Updated, res.Written.Deleted)
}

func diffRows(record string, d *library.DiffResult) [][]string {
	if d == nil {
		return nil
	}
	var rows [][]string
	for _, f := range d.Changed() {
		rows = append(rows, []string{record, f.Field, f.OldValue, f.NewValue, f.Status})
	}
	return rows
}

func renderMatches(matches []match.TrackMatch) string {
	rows := make([][]string, 0, len(matches))
	for _, m := range matches {
		score := "-"
		if m.Matched() {
			score = strconv.FormatFloat(m.Score, 'f', 3, 64)
		}
		rows = append(rows, []string{trackLabel(m.Old), trackLabel(m.New), score})
	}
	return renderTable([]string{"Local", "Candidate", "Score"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight})
}

func trackLabel(t *library.Track) string {
	if t == nil {
		return "-"
	}
	return t.Key().String() + " " + t.Title
}
