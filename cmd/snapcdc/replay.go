package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mickamy/snapcdc"
)

func newReplayCmd(a *app) *cobra.Command {
	var (
		target   string
		capture  bool
		operator string
		traceID  string
		reason   string
	)
	cmd := &cobra.Command{
		Use:   "replay [export.json]",
		Short: "Replay an exported change set onto a table",
		Long: `Apply every change of a JSON export to the target table. Failing changes are ` +
			`reported and the rest are still applied.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func(f *os.File) {
				_ = f.Close()
			}(f)
			cs, err := snapcdc.ParseChangeSet(f)
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			ctx := cmd.Context()
			if operator != "" {
				ctx = snapcdc.WithOperator(ctx, operator)
			}
			if traceID != "" {
				ctx = snapcdc.WithTraceID(ctx, traceID)
			}
			if reason != "" {
				ctx = snapcdc.WithReason(ctx, reason)
			}
			res, err := a.handler.ReplayChanges(ctx, cs, a.store, target)
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return err
			}
			if err := writeOutput(cmd, "", string(b)); err != nil {
				return err
			}

			if capture {
				if _, err := a.store.Capture(ctx, a.table(target), "replay"); err != nil {
					return err
				}
			}
			if res.Failed > 0 {
				return fmt.Errorf("%d of %d changes failed", res.Failed, len(cs.Changes))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "Table to apply the changes to")
	cmd.Flags().BoolVar(&capture, "capture", false, "Capture a snapshot of the target afterwards")
	cmd.Flags().StringVar(&operator, "operator", "", "Operator recorded in the replay log")
	cmd.Flags().StringVar(&traceID, "trace-id", "", "Trace id recorded in the replay log")
	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded in the replay log")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}
