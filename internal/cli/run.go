package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vnykmshr/wareflow/pkg/report"
	"github.com/vnykmshr/wareflow/pkg/store"
)

type runOptions struct {
	orders  int
	seed    uint64
	runs    int
	export  string
	backend string
}

func newRunCommand(a *app) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the scheduling pipeline",
		Long: `Runs the pipeline against freshly generated warehouse data, stores the
report and prints a summary. Repeated runs share one rule selector, so a
changed workload between runs can switch the scheduling rule.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("orders") {
				a.cfg.Synth.Orders = opts.orders
			}
			if flags.Changed("seed") {
				a.cfg.Synth.Seed = opts.seed
			}
			if flags.Changed("store") {
				a.cfg.Store.Backend = opts.backend
			}
			if errs := a.cfg.Validate(); len(errs) > 0 {
				return errs
			}
			return a.run(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.orders, "orders", "n", 0, "number of orders to generate")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "seed for the synthetic data")
	cmd.Flags().IntVar(&opts.runs, "runs", 1, "number of consecutive runs")
	cmd.Flags().StringVarP(&opts.export, "export", "o", "", "directory to write CSV tables to")
	cmd.Flags().StringVar(&opts.backend, "store", "", fmt.Sprintf("store backend override %v", store.Backends))
	return cmd
}

func (a *app) run(cmd *cobra.Command, opts runOptions) error {
	if opts.runs <= 0 {
		return fmt.Errorf("--runs must be positive, got %d", opts.runs)
	}
	ctx := cmd.Context()

	eng, err := a.newEngine(nil)
	if err != nil {
		return err
	}
	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	for i := 0; i < opts.runs; i++ {
		r, runErr := eng.Run(ctx)
		if r != nil {
			if err := st.Save(ctx, r); err != nil {
				a.log.Warn("failed to save run", zap.String("run", r.ID), zap.Error(err))
			}
		}
		if runErr != nil {
			return runErr
		}

		fmt.Fprintln(a.out, report.Render(r))
		if desc := a.cfg.Describe(r.Decision.Rule); desc != "" {
			fmt.Fprintf(a.out, "%s: %s\n", r.Decision.Rule, desc)
		}

		if opts.export != "" {
			paths, err := report.Export(opts.export, r)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(a.out, "wrote", p)
			}
		}
	}
	return nil
}
