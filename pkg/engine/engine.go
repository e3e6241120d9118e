package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vnykmshr/wareflow/pkg/correction"
	"github.com/vnykmshr/wareflow/pkg/execution"
	"github.com/vnykmshr/wareflow/pkg/metrics"
	"github.com/vnykmshr/wareflow/pkg/progress"
	"github.com/vnykmshr/wareflow/pkg/report"
	"github.com/vnykmshr/wareflow/pkg/scheduling/assign"
	"github.com/vnykmshr/wareflow/pkg/scheduling/decompose"
	"github.com/vnykmshr/wareflow/pkg/scheduling/pipeline"
	"github.com/vnykmshr/wareflow/pkg/scheduling/rules"
	"github.com/vnykmshr/wareflow/pkg/scheduling/strategy"
	"github.com/vnykmshr/wareflow/pkg/synth"
	"github.com/vnykmshr/wareflow/pkg/warehouse"
)

// Clock supplies the time used for planning and stamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Source supplies the inputs of one run. run counts from zero.
type Source interface {
	Snapshot(ctx context.Context, run int) (synth.Snapshot, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, run int) (synth.Snapshot, error)

// Snapshot calls f(ctx, run).
func (f SourceFunc) Snapshot(ctx context.Context, run int) (synth.Snapshot, error) {
	return f(ctx, run)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for run and stage events.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithMetrics records runs on m.
func WithMetrics(m *metrics.Registry) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock overrides the system clock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithSource replaces the synthetic data generator.
func WithSource(s Source) Option {
	return func(e *Engine) { e.source = s }
}

// WithTerminal replaces the simulated terminal used for feedback.
func WithTerminal(t execution.Terminal) Option {
	return func(e *Engine) { e.terminal = t }
}

// Engine runs the scheduling pipeline. Runs are serialized: the world state
// of a run is only touched by that run. The rule selector lives as long as
// the engine, so consecutive runs can switch rules.
type Engine struct {
	mu       sync.Mutex
	cfg      Config
	selector *rules.Selector
	pipeline *pipeline.Pipeline[*runState]
	throttle *execution.Throttle

	log      *zap.Logger
	metrics  *metrics.Registry
	clock    Clock
	source   Source
	terminal execution.Terminal

	runs int
	last *warehouse.WorldState
}

// New creates an engine from cfg.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}

	e := &Engine{
		cfg:      cfg,
		selector: rules.NewSelector(cfg.Sensitivity),
		log:      zap.NewNop(),
		clock:    systemClock{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.source == nil {
		e.source = SourceFunc(e.synthetic)
	}
	if cfg.Rate > 0 {
		e.throttle = execution.NewThrottle(cfg.Rate, cfg.Burst, e.clock)
	}

	e.pipeline = pipeline.NewWithConfig[*runState](pipeline.Config{
		StopOnError: true,
		OnStageComplete: func(sr pipeline.StageResult) {
			e.metrics.ObserveStage(sr.StageName, sr.Duration, sr.Error)
			e.log.Debug("stage complete",
				zap.String("stage", sr.StageName),
				zap.Duration("duration", sr.Duration),
				zap.Error(sr.Error))
		},
	})
	for _, st := range stages {
		e.pipeline.AddStage(e.stage(st))
	}
	return e, nil
}

// synthetic generates run inputs from the configured layout and seed.
func (e *Engine) synthetic(_ context.Context, run int) (synth.Snapshot, error) {
	gen := synth.New(e.cfg.Layout, e.cfg.Seed+uint64(run), synth.WithClock(e.clock.Now))
	return gen.Snapshot(e.cfg.Orders), nil
}

// Reconfigure applies cfg to subsequent runs. The active rule is kept.
func (e *Engine) Reconfigure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.cfg = cfg
	e.selector.SetSensitivity(cfg.Sensitivity)
	switch {
	case cfg.Rate <= 0:
		e.throttle = nil
	case e.throttle == nil:
		e.throttle = execution.NewThrottle(cfg.Rate, cfg.Burst, e.clock)
	default:
		e.throttle.SetRate(cfg.Rate)
	}
	return nil
}

// Config returns the current configuration.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// ActiveRule returns the rule selected by the latest run.
func (e *Engine) ActiveRule() rules.Rule {
	return e.selector.Active()
}

// State returns the world state left by the last successful run, or nil.
func (e *Engine) State() *warehouse.WorldState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// Stats returns cumulative pipeline statistics.
func (e *Engine) Stats() pipeline.Stats {
	return e.pipeline.Stats()
}

// Run executes one pass of the pipeline. A stage failure is returned as a
// *StageError together with the partial report.
func (e *Engine) Run(ctx context.Context) (*report.Run, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	runNumber := e.runs
	e.runs++

	id := uuid.New().String()
	log := e.log.With(zap.String("run", id))
	st := &runState{
		cfg:      e.cfg,
		number:   runNumber,
		log:      log,
		progress: progress.New(e.cfg.ProgressTotal, log),
		run: &report.Run{
			ID:        id,
			Seed:      e.cfg.Seed + uint64(runNumber),
			StartedAt: e.clock.Now(),
		},
	}

	log.Info("run started", zap.Int("number", runNumber))
	result, err := e.pipeline.Execute(ctx, st)

	st.run.FinishedAt = e.clock.Now()
	for _, sr := range result.StageResults {
		st.run.Stages = append(st.run.Stages, report.StageTiming{Stage: sr.StageName, Duration: sr.Duration})
	}
	e.metrics.ObserveRun(result.Duration, err)

	if err != nil {
		serr := &StageError{Phase: phaseOf(result.FailedStage), Stage: result.FailedStage, Err: err}
		log.Error("run failed", zap.Error(serr))
		return st.run, serr
	}

	st.phase = PhaseDone
	st.progress.Complete("run complete")
	e.last = st.world
	log.Info("run finished",
		zap.String("rule", string(st.run.Decision.Rule)),
		zap.Int("commands", len(st.run.Commands)),
		zap.Int("calibrated", st.run.Calibrated),
		zap.Duration("duration", result.Duration))
	return st.run, nil
}

// runState is the value threaded through the pipeline stages.
type runState struct {
	cfg      Config
	number   int
	log      *zap.Logger
	progress *progress.Logger

	phase    Phase
	snapshot synth.Snapshot
	world    *warehouse.WorldState
	run      *report.Run
}

// stageDef binds a pipeline stage to the phase it completes and its
// progress milestones.
type stageDef struct {
	name  string
	phase Phase
	start milestone
	done  milestone
	fn    func(e *Engine, ctx context.Context, st *runState) error
}

type milestone struct {
	step    int
	message string
}

// Stage names, in execution order.
const (
	StageBuildTopology    = "build topology"
	StageInjectState      = "inject state"
	StageSelectRule       = "select rule"
	StageDecompose        = "decompose tasks"
	StageAssign           = "assign resources"
	StageIssueCommands    = "issue commands"
	StageCollectFeedback  = "collect feedback"
	StageCorrectDeviation = "correct deviations"
)

var stages = []stageDef{
	{StageBuildTopology, PhaseTopologyBuilt,
		milestone{5, "building warehouse model"}, milestone{15, "warehouse model built"}, (*Engine).buildTopology},
	{StageInjectState, PhaseStateInjected,
		milestone{6, "injecting runtime data"}, milestone{8, "inventory and orders synchronized"}, (*Engine).injectState},
	{StageSelectRule, PhaseRuleSelected,
		milestone{7, "extracting state features"}, milestone{11, "scheduling rule selected"}, (*Engine).selectRule},
	{StageDecompose, PhaseTasksDecomposed,
		milestone{6, "decomposing orders"}, milestone{7, "orders decomposed"}, (*Engine).decompose},
	{StageAssign, PhaseResourcesAssigned,
		milestone{8, "matching equipment"}, milestone{7, "resource plan ready"}, (*Engine).assign},
	{StageIssueCommands, PhaseCommandsIssued,
		milestone{8, "generating control commands"}, milestone{9, "commands issued"}, (*Engine).issueCommands},
	{StageCollectFeedback, PhaseFeedbackCollected,
		milestone{10, "collecting terminal feedback"}, milestone{9, "feedback collected"}, (*Engine).collectFeedback},
	{StageCorrectDeviation, PhaseDeviationCorrected,
		milestone{7, "computing deviations"}, milestone{5, "model state calibrated"}, (*Engine).correct},
}

func phaseOf(stage string) Phase {
	for _, s := range stages {
		if s.name == stage {
			return s.phase
		}
	}
	return PhaseIdle
}

func (e *Engine) stage(def stageDef) pipeline.Stage[*runState] {
	return pipeline.NewStageFunc(def.name, func(ctx context.Context, st *runState) (*runState, error) {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		st.progress.Update(def.start.step, def.start.message)
		if err := def.fn(e, ctx, st); err != nil {
			return st, err
		}
		st.phase = def.phase
		st.progress.Update(def.done.step, def.done.message)
		return st, nil
	})
}

func (e *Engine) buildTopology(ctx context.Context, st *runState) error {
	snap, err := e.source.Snapshot(ctx, st.number)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	st.snapshot = snap

	world, err := warehouse.Build(snap.Topology, snap.Units)
	if err != nil {
		return err
	}
	st.world = world
	st.log.Debug("topology built",
		zap.Int("partitions", len(world.Partitions)),
		zap.Int("edges", len(world.Topology.Edges)),
		zap.Int("equipment", len(world.Equipment)))
	return nil
}

func (e *Engine) injectState(_ context.Context, st *runState) error {
	if err := st.world.Inject(st.snapshot.Inventory, st.snapshot.Orders); err != nil {
		return err
	}
	st.run.Orders = append([]warehouse.Order(nil), st.world.Orders...)
	return nil
}

func (e *Engine) selectRule(_ context.Context, st *runState) error {
	features := rules.ExtractFeatures(st.world, st.cfg.BacklogCapacity)
	d := e.selector.Evaluate(features)
	st.run.Decision = d

	names := make([]string, len(rules.Candidates))
	for i, c := range rules.Candidates {
		names[i] = string(c)
	}
	e.metrics.ObserveRule(string(d.Rule), names, d.Switched)

	if d.Switched {
		st.progress.Update(2, "scheduling rule switched to "+string(d.Rule))
	}
	st.log.Info("rule selected",
		zap.String("rule", string(d.Rule)),
		zap.Bool("switched", d.Switched),
		zap.Float64("change", d.Change),
		zap.Float64("backlog", features.Backlog),
		zap.Float64("load", features.Load),
		zap.Float64("efficiency", features.Efficiency))
	return nil
}

func (e *Engine) decompose(_ context.Context, st *runState) error {
	ops, err := decompose.Decompose(st.world, st.world.Orders)
	if err != nil {
		return err
	}
	st.run.Operations = ops
	e.metrics.ObserveDecomposition(len(st.world.Orders), len(ops))
	return nil
}

func (e *Engine) assign(_ context.Context, st *runState) error {
	a := assign.New(assign.Config{
		Policy:   st.cfg.Fallback,
		Interval: st.cfg.Interval,
		Clock:    e.clock,
	})
	plan, err := a.Assign(st.world, st.run.Operations)
	if err != nil {
		return err
	}
	for _, p := range plan {
		if p.Fallback {
			e.metrics.ObserveFallback(p.Category)
			st.log.Warn("no running unit available, reusing",
				zap.String("category", p.Category),
				zap.String("equipment", p.EquipmentID),
				zap.String("order", p.ID))
		}
	}
	st.run.Plan = plan
	return nil
}

func (e *Engine) dispatcher(st *runState) *execution.Dispatcher {
	terminal := e.terminal
	if terminal == nil {
		terminal = execution.NewSimulatedTerminal(st.run.Seed, st.world.Topology.Partitions, e.clock)
	}
	return execution.NewDispatcher(terminal, execution.Config{
		Workers:     st.cfg.Workers,
		TaskTimeout: st.cfg.TaskTimeout,
		Throttle:    e.throttle,
		Clock:       e.clock,
		Logger:      st.log,
	})
}

func (e *Engine) issueCommands(_ context.Context, st *runState) error {
	cmds := strategy.NewExecutor(st.world.Topology, st.run.Seed).Commands(st.run.Plan)
	st.run.Commands = e.dispatcher(st).Issue(cmds)
	return nil
}

func (e *Engine) collectFeedback(ctx context.Context, st *runState) error {
	fb, err := e.dispatcher(st).Collect(ctx, st.run.Commands)
	if err != nil {
		return err
	}
	for _, f := range fb {
		e.metrics.ObserveFeedback(f.StatusCode)
		if f.Anomaly != "" {
			st.log.Warn("terminal reported anomaly",
				zap.String("command", f.CommandID),
				zap.String("equipment", f.EquipmentID),
				zap.String("anomaly", f.Anomaly))
		}
	}
	st.run.Feedback = fb
	return nil
}

func (e *Engine) correct(_ context.Context, st *runState) error {
	c := correction.New(st.cfg.Correction)
	devs := c.Analyze(st.world, st.run.Feedback)
	for _, d := range devs {
		e.metrics.ObserveDeviation(d.Score, d.OverThreshold)
	}
	st.run.Deviations = devs

	flagged := c.Calibrate(st.world, devs)
	st.run.Calibrated = flagged
	st.progress.Update(4, fmt.Sprintf("%d deviations over threshold", flagged))
	return nil
}

// IsStageError reports whether err came from a pipeline stage and returns it.
func IsStageError(err error) (*StageError, bool) {
	var serr *StageError
	ok := errors.As(err, &serr)
	return serr, ok
}
