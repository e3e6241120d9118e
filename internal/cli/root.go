// Package cli implements the wareflow command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/vnykmshr/wareflow/internal/config"
	"github.com/vnykmshr/wareflow/internal/logging"
	"github.com/vnykmshr/wareflow/pkg/engine"
	"github.com/vnykmshr/wareflow/pkg/metrics"
	"github.com/vnykmshr/wareflow/pkg/store"
)

// skipConfig marks commands that must work without a loadable config.
const skipConfig = "skip-config"

// app holds the state shared by the commands of one invocation.
type app struct {
	cfgFile string
	verbose bool

	v   *viper.Viper
	cfg *config.Config
	log *zap.Logger
	out io.Writer
}

// NewRootCommand builds the wareflow command tree. Output is written to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	a := &app{out: out, log: zap.NewNop()}

	root := &cobra.Command{
		Use:   "wareflow",
		Short: "Adaptive scheduling pipeline for warehouse logistics",
		Long: `wareflow runs an adaptive scheduling pipeline over a simulated warehouse.

Each run builds the partition topology, picks a scheduling rule from the
current workload, decomposes orders into equipment operations, assigns units,
dispatches commands to the terminal and corrects the model from feedback.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipConfig] == "true" {
				return nil
			}
			return a.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
	}
	root.SetOut(out)
	root.SetErr(out)

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default: $XDG_CONFIG_HOME/wareflow/config.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newRunCommand(a),
		newServeCommand(a),
		newReportCommand(a),
		newConfigCommand(a),
	)
	return root
}

// Execute runs the command tree against os.Args.
func Execute(ctx context.Context) error {
	return NewRootCommand(os.Stdout).ExecuteContext(ctx)
}

func (a *app) load() error {
	v, err := config.New(a.cfgFile)
	if err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, a.verbose)
	if err != nil {
		return err
	}

	a.v = v
	a.cfg = cfg
	a.log = log
	log.Debug("config loaded", zap.String("file", v.ConfigFileUsed()))
	return nil
}

func (a *app) newEngine(m *metrics.Registry) (*engine.Engine, error) {
	return engine.New(a.cfg.Engine(), engine.WithLogger(a.log), engine.WithMetrics(m))
}

func (a *app) openStore(ctx context.Context) (store.Store, error) {
	s, err := store.Open(ctx, a.cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", a.cfg.Store.Backend, err)
	}
	return s, nil
}
