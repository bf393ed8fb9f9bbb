package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/mickamy/snapcdc"
)

type rangeFlags struct {
	from string
	to   string
	keys []string
}

func (f *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "Snapshot id or RFC3339 time to diff from (default: predecessor of --to)")
	cmd.Flags().StringVar(&f.to, "to", "", "Snapshot id or RFC3339 time to diff to (default: latest)")
	cmd.Flags().StringSliceVar(&f.keys, "key", nil, "Key columns (default: first column)")
}

func (f *rangeFlags) toRange() snapcdc.Range {
	return snapcdc.Range{From: f.from, To: f.to, KeyColumns: f.keys}
}

func newChangesCmd(a *app) *cobra.Command {
	var rf rangeFlags
	cmd := &cobra.Command{
		Use:   "changes [table]",
		Short: "List row-level changes between two snapshots",
		Long:  `Print the change set between two snapshots of a table as JSON.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := a.handler.GetChanges(cmd.Context(), args[0], rf.toRange())
			if err != nil {
				return err
			}
			out, err := snapcdc.Export(cs, snapcdc.FormatJSON)
			if err != nil {
				return err
			}
			return writeOutput(cmd, "", out)
		},
	}
	rf.register(cmd)
	return cmd
}

func newSummaryCmd(a *app) *cobra.Command {
	var rf rangeFlags
	cmd := &cobra.Command{
		Use:   "summary [table]",
		Short: "Summarize changes between two snapshots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.handler.GetChangeSummary(cmd.Context(), args[0], rf.toRange())
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(s, "", "  ")
			if err != nil {
				return err
			}
			return writeOutput(cmd, "", string(b))
		},
	}
	rf.register(cmd)
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		rf     rangeFlags
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export [table]",
		Short: "Export changes between two snapshots",
		Long:  `Export the change set between two snapshots of a table as JSON or CSV.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := snapcdc.ParseFormat(format)
			if err != nil {
				return err
			}
			out, err := a.handler.ExportChanges(cmd.Context(), args[0], rf.toRange(), f)
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, out)
		},
	}
	rf.register(cmd)
	cmd.Flags().StringVar(&format, "format", "json", `Output format, "json" or "csv"`)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	return cmd
}
