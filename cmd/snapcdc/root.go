package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mickamy/snapcdc"
	"github.com/mickamy/snapcdc/internal/config"
	"github.com/mickamy/snapcdc/internal/ident"
	"github.com/mickamy/snapcdc/sqlstore"
)

// app carries the state shared by every subcommand once the root command
// has connected to the database.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	store   *sqlstore.Store
	handler *snapcdc.Handler
}

// table qualifies a bare table name with the configured namespace.
func (a *app) table(name string) string {
	return ident.Join(ident.Qualify(name, a.cfg.Namespace))
}

func newRootCmd(cfg config.Config) *cobra.Command {
	a := &app{cfg: cfg}

	rootCmd := &cobra.Command{
		Use:   "snapcdc",
		Short: "Change data capture over table snapshots",
		Long: "Capture snapshots of SQL tables, list the row-level changes between them, " +
			"export change sets and replay them onto other tables.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.store == nil {
				return nil
			}
			return a.store.Close()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfg.Driver, "driver", cfg.Driver, `Database driver, "sqlite" or "pgx"`)
	flags.StringVar(&a.cfg.DSN, "dsn", cfg.DSN, "Data source name")
	flags.StringVar(&a.cfg.Namespace, "namespace", cfg.Namespace, "Namespace used to qualify bare table names")
	flags.StringVar(&a.cfg.SnapshotSuffix, "snapshot-suffix", cfg.SnapshotSuffix, "Suffix of snapshot metadata tables")
	flags.BoolVar(&a.cfg.StrictKeys, "strict-keys", cfg.StrictKeys, "Fail when key columns do not identify rows uniquely")
	flags.StringVar(&a.cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flags.StringVar(&a.cfg.LogFormat, "log-format", cfg.LogFormat, `Log format, "text" or "json"`)

	rootCmd.AddCommand(
		newMigrateCmd(a),
		newCaptureCmd(a),
		newChangesCmd(a),
		newLogCmd(a),
		newSummaryCmd(a),
		newExportCmd(a),
		newReplayCmd(a),
	)
	return rootCmd
}

func (a *app) open(cmd *cobra.Command) error {
	logger, err := a.cfg.Logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	store, err := sqlstore.Open(cmd.Context(), a.cfg.Driver, a.cfg.DSN, sqlstore.Config{
		SnapshotSuffix: a.cfg.SnapshotSuffix,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	a.logger = logger
	a.store = store
	a.handler = snapcdc.New(store, snapcdc.Config{
		DefaultNamespace: a.cfg.Namespace,
		StrictKeys:       a.cfg.StrictKeys,
		Logger:           logger,
	})
	return nil
}

// writeOutput writes s to path, or to the command's stdout when path is empty.
func writeOutput(cmd *cobra.Command, path, s string) error {
	if path == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), s)
		return err
	}
	if err := os.WriteFile(path, []byte(s), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
