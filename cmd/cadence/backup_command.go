package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sydlexius/cadence/internal/backup"
)

func newBackupCommand(ctx *commandContext) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the library database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withApp(cmd, func(a *app) error {
				svc := backup.NewService(a.db, backup.Options{
					Dir:        a.cfg.Backup.Dir,
					Retention:  a.cfg.Backup.Retention,
					MaxAgeDays: a.cfg.Backup.MaxAgeDays,
				}, a.logger)

				if !list {
					info, err := svc.Backup(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes) to %s\n", info.Filename, info.Size, svc.Dir())
					return nil
				}

				backups, err := svc.List()
				if err != nil {
					return err
				}
				if len(backups) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No backups")
					return nil
				}
				rows := make([][]string, 0, len(backups))
				for _, b := range backups {
					rows = append(rows, []string{b.Filename, b.CreatedAt.Format("2006-01-02 15:04:05"), strconv.FormatInt(b.Size, 10)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"File", "Created (UTC)", "Bytes"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight}))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "List existing backups instead of taking one")
	return cmd
}
