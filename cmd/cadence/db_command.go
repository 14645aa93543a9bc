package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sydlexius/cadence/internal/maintenance"
)

func newDBCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Inspect and maintain the library database",
	}

	var jsonOut bool
	status := &cobra.Command{
		Use:   "status",
		Short: "Show database size, schema version and record counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withApp(cmd, func(a *app) error {
				st, err := maintenanceFor(a).Status(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, st)
				}
				rows := [][]string{
					{"Database", a.cfg.Database.Path},
					{"Schema version", strconv.FormatInt(st.SchemaVersion, 10)},
					{"File size", strconv.FormatInt(st.DBFileSize, 10)},
					{"WAL size", strconv.FormatInt(st.WALFileSize, 10)},
					{"Pages", fmt.Sprintf("%d x %d (%d free)", st.PageCount, st.PageSize, st.FreePages)},
					{"Albums", strconv.Itoa(st.Records.Albums)},
					{"Tracks", strconv.Itoa(st.Records.Tracks)},
					{"Extras", strconv.Itoa(st.Records.Extras)},
					{"Last optimize", orNever(st.LastOptimizeAt)},
					{"Last backup", orNever(st.LastBackupAt)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Item", "Value"}, rows, nil))
				return nil
			})
		},
	}
	status.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")

	optimize := &cobra.Command{
		Use:   "optimize",
		Short: "Run PRAGMA optimize and checkpoint the WAL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withApp(cmd, func(a *app) error {
				if err := maintenanceFor(a).Optimize(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Optimize complete")
				return nil
			})
		},
	}

	vacuum := &cobra.Command{
		Use:   "vacuum",
		Short: "Rebuild the database file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withApp(cmd, func(a *app) error {
				if err := maintenanceFor(a).Vacuum(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Vacuum complete")
				return nil
			})
		},
	}

	cmd.AddCommand(status, optimize, vacuum)
	return cmd
}

func maintenanceFor(a *app) *maintenance.Service {
	return maintenance.NewService(a.db, a.cfg.Database.Path, a.store, a.logger)
}

func orNever(s string) string {
	if s == "" {
		return "never"
	}
	return s
}
