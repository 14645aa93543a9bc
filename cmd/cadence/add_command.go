package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <manifest.json>...",
		Short: "Add albums described by JSON manifests",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app) error {
				im := a.importer()
				for _, path := range args {
					album, err := a.readManifest(path)
					if err != nil {
						return err
					}
					written, err := im.Add(cmd.Context(), album)
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					if written.Inserted == 0 {
						fmt.Fprintf(cmd.OutOrStdout(), "Kept existing records for %s (%d updated, %d deleted)\n",
							album, written.Updated, written.Deleted)
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Added %s as %s (%d inserted, %d updated, %d deleted)\n",
						album, album.ID, written.Inserted, written.Updated, written.Deleted)
				}
				return nil
			})
		},
	}
}
