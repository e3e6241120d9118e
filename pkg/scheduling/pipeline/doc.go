/*
Package pipeline runs a typed value through a fixed sequence of stages with
callbacks, timeouts and execution statistics.

The scheduling engine builds one Pipeline over its run state and registers a
stage per phase; the same package is usable for any sequential workflow.

# Quick Start

	p := pipeline.New[*Order]()

	p.AddStageFunc("validate", func(ctx context.Context, o *Order) (*Order, error) {
		return o, o.Validate()
	})
	p.AddStageFunc("price", func(ctx context.Context, o *Order) (*Order, error) {
		o.Total = price(o)
		return o, nil
	})

	result, err := p.Execute(ctx, order)
	if err != nil {
		log.Printf("stage %s failed: %v", result.FailedStage, err)
	}

# Custom Stages

	type auditStage struct{ log *zap.Logger }

	func (s auditStage) Name() string { return "audit" }

	func (s auditStage) Execute(ctx context.Context, o *Order) (*Order, error) {
		s.log.Info("order audited", zap.String("id", o.ID))
		return o, nil
	}

	p.AddStage(auditStage{log: logger})

# Error Handling

With StopOnError (the default for New) the first failing stage ends the
execution; Result.FailedStage names it. Without it, a failing stage is skipped
and its input is passed to the next stage. A panicking stage is recovered
and reported as that stage's error.

# Monitoring

	config := pipeline.Config{
		StopOnError: true,
		OnStageStart: func(stage string) {
			logger.Debug("stage started", zap.String("stage", stage))
		},
		OnStageComplete: func(r pipeline.StageResult) {
			stageDuration.WithLabelValues(r.StageName).Observe(r.Duration.Seconds())
		},
		OnError: func(stage string, err error) {
			logger.Warn("stage failed", zap.String("stage", stage), zap.Error(err))
		},
	}

# Statistics

	stats := p.Stats()
	fmt.Printf("runs=%d ok=%d failed=%d avg=%v\n",
		stats.TotalExecutions, stats.SuccessfulRuns, stats.FailedRuns, stats.AverageDuration)

# Thread Safety

Execute and ExecuteAsync may be called from multiple goroutines. Stages see
the value they are handed; sharing a pointer across concurrent executions is
the caller's concern.
*/
package pipeline
