package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [table...]",
		Short: "Create snapshot tables",
		Long:  `Create the snapshot metadata and row tables for each named table. Existing snapshot tables are kept.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets := make([]any, len(args))
			for i, name := range args {
				targets[i] = a.table(name)
			}
			if err := a.store.Migrate(cmd.Context(), targets...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d table(s)\n", len(args))
			return nil
		},
	}
}

func newCaptureCmd(a *app) *cobra.Command {
	var operation string
	cmd := &cobra.Command{
		Use:   "capture [table]",
		Short: "Capture a snapshot of a table",
		Long:  `Copy the current contents of a table into a new snapshot.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := a.store.Capture(cmd.Context(), a.table(args[0]), operation)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", info.ID, info.Timestamp.Format(time.RFC3339Nano))
			return nil
		},
	}
	cmd.Flags().StringVar(&operation, "operation", "capture", "Label recorded on the snapshot")
	return cmd
}

func newLogCmd(a *app) *cobra.Command {
	var (
		limit int
		keys  []string
	)
	cmd := &cobra.Command{
		Use:   "log [table]",
		Short: "Show the change history of a table",
		Long:  `Diff every consecutive pair of snapshots and list the change counts, oldest first.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := a.handler.GetChangeLog(cmd.Context(), args[0], limit, keys)
			if err != nil {
				return err
			}
			if len(log) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No changes found.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "From\tTo\tTimestamp\tOperation\tInserts\tUpdates\tDeletes")
			fmt.Fprintln(w, "----\t--\t---------\t---------\t-------\t-------\t-------")
			for _, e := range log {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
					e.FromSnapshot, e.ToSnapshot, e.Timestamp.Format(time.RFC3339), e.Operation,
					e.Summary.Inserts, e.Summary.Updates, e.Summary.Deletes)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of entries (default 100)")
	cmd.Flags().StringSliceVar(&keys, "key", nil, "Key columns (default: first column)")
	return cmd
}
