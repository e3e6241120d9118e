package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vnykmshr/wareflow/pkg/report"
	"github.com/vnykmshr/wareflow/pkg/store"
)

func newReportCommand(a *app) *cobra.Command {
	var (
		runID  string
		list   int
		export string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show stored run reports",
		Long:  "Prints the latest stored run, a specific run with --run, or a list of recent runs with --list.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if list > 0 {
				summaries, err := st.List(ctx, list)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, report.RenderList(summaries))
				return nil
			}

			var r *report.Run
			if runID != "" {
				r, err = st.Get(ctx, runID)
			} else {
				r, err = st.Latest(ctx)
			}
			if errors.Is(err, store.ErrNotFound) {
				if runID != "" {
					return fmt.Errorf("run %s not found", runID)
				}
				fmt.Fprintln(a.out, "no runs recorded")
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(a.out, report.Render(r))
			if export != "" {
				paths, err := report.Export(export, r)
				if err != nil {
					return err
				}
				for _, p := range paths {
					fmt.Fprintln(a.out, "wrote", p)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "run ID to show")
	cmd.Flags().IntVarP(&list, "list", "l", 0, "list the N most recent runs")
	cmd.Flags().StringVarP(&export, "export", "o", "", "directory to write CSV tables to")
	return cmd
}
