package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sydlexius/cadence/internal/database"
	"github.com/sydlexius/cadence/internal/filesystem"
	"github.com/sydlexius/cadence/internal/library"
)

// exportDocument is the JSON written by the export command. Each album is a
// manifest that add accepts.
type exportDocument struct {
	SchemaVersion int64            `json:"schema_version"`
	ExportedAt    time.Time        `json:"exported_at"`
	Albums        []*library.Album `json:"albums"`
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write the whole library as JSON (use - for stdout)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app) error {
				albums, err := a.store.ListAlbums(cmd.Context())
				if err != nil {
					return err
				}
				version, err := database.Version(a.db)
				if err != nil {
					return err
				}
				doc := exportDocument{
					SchemaVersion: version,
					ExportedAt:    time.Now().UTC(),
					Albums:        albums,
				}
				if doc.Albums == nil {
					doc.Albums = []*library.Album{}
				}

				if args[0] == "-" {
					return writeJSON(cmd, doc)
				}
				if err := filesystem.WriteJSONAtomic(args[0], doc, 0o644); err != nil {
					return fmt.Errorf("writing export: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d album(s) to %s\n", len(albums), args[0])
				return nil
			})
		},
	}
}
