package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"
)

// Stage represents a single processing stage in a pipeline.
type Stage[T any] interface {
	// Execute processes the input and returns the value handed to the next
	// stage.
	Execute(ctx context.Context, input T) (T, error)

	// Name returns a unique identifier for this stage.
	Name() string
}

// StageFunc adapts a function to the Stage interface.
type StageFunc[T any] struct {
	name string
	fn   func(ctx context.Context, input T) (T, error)
}

// Execute implements the Stage interface for StageFunc.
func (sf *StageFunc[T]) Execute(ctx context.Context, input T) (T, error) {
	return sf.fn(ctx, input)
}

// Name returns the stage name.
func (sf *StageFunc[T]) Name() string {
	return sf.name
}

// NewStageFunc creates a new stage from a function.
func NewStageFunc[T any](name string, fn func(ctx context.Context, input T) (T, error)) Stage[T] {
	return &StageFunc[T]{name: name, fn: fn}
}

// Result represents the outcome of a pipeline execution.
type Result[T any] struct {
	// Output is the value returned by the last successful stage
	Output T

	// Error is the first stage error, or the context error
	Error error

	// FailedStage names the stage that produced Error, if any
	FailedStage string

	// Duration is the total execution time
	Duration time.Duration

	// StageResults contains results from each executed stage
	StageResults []StageResult

	StartTime time.Time
	EndTime   time.Time
}

// StageResult represents the result of a single stage execution.
type StageResult struct {
	StageName string
	Error     error
	Duration  time.Duration
	StartTime time.Time
	EndTime   time.Time
}

// Stats holds pipeline execution statistics.
type Stats struct {
	TotalExecutions int64
	SuccessfulRuns  int64
	FailedRuns      int64
	TotalDuration   time.Duration
	AverageDuration time.Duration
	StageStats      map[string]StageStats
	LastExecutionAt time.Time
}

// StageStats holds statistics for individual stages.
type StageStats struct {
	Name            string
	ExecutionCount  int64
	SuccessCount    int64
	ErrorCount      int64
	TotalDuration   time.Duration
	AverageDuration time.Duration
}

// Config holds pipeline configuration options.
type Config struct {
	// Timeout bounds a whole execution. Zero means no limit.
	Timeout time.Duration

	// OnStageStart is called when a stage starts execution.
	OnStageStart func(stageName string)

	// OnStageComplete is called when a stage completes.
	OnStageComplete func(result StageResult)

	// OnPipelineStart is called when pipeline execution starts.
	OnPipelineStart func()

	// OnPipelineComplete is called with the stage results and error of an
	// execution.
	OnPipelineComplete func(stages []StageResult, err error)

	// OnError is called when a stage fails.
	OnError func(stageName string, err error)

	// StopOnError determines if pipeline should stop on first error.
	// If false, a failed stage is skipped and its input is handed on.
	StopOnError bool
}

// Pipeline runs a fixed sequence of stages over a value of type T.
// Execute may be called concurrently; stages must then be safe for it.
type Pipeline[T any] struct {
	stages []Stage[T]
	config Config
	stats  Stats
	mu     sync.RWMutex
}

// New creates a pipeline that stops on the first error.
func New[T any]() *Pipeline[T] {
	return NewWithConfig[T](Config{StopOnError: true})
}

// NewWithConfig creates a new pipeline with the specified configuration.
func NewWithConfig[T any](config Config) *Pipeline[T] {
	return &Pipeline[T]{
		config: config,
		stats: Stats{
			StageStats: make(map[string]StageStats),
		},
	}
}

// Execute runs the pipeline with the given input.
func (p *Pipeline[T]) Execute(ctx context.Context, input T) (*Result[T], error) {
	result := <-p.ExecuteAsync(ctx, input)
	return result, result.Error
}

// ExecuteAsync runs the pipeline in a new goroutine and delivers the result
// on the returned channel.
func (p *Pipeline[T]) ExecuteAsync(ctx context.Context, input T) <-chan *Result[T] {
	resultCh := make(chan *Result[T], 1)

	p.mu.RLock()
	stages := make([]Stage[T], len(p.stages))
	copy(stages, p.stages)
	config := p.config
	p.mu.RUnlock()

	go func() {
		defer close(resultCh)

		result := &Result[T]{
			StartTime:    time.Now(),
			StageResults: make([]StageResult, 0, len(stages)),
		}

		if config.OnPipelineStart != nil {
			config.OnPipelineStart()
		}

		if config.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, config.Timeout)
			defer cancel()
		}

		result.Output, result.FailedStage, result.Error = p.executeStages(ctx, config, stages, input, result)
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(result.StartTime)

		p.updateStats(result.Duration, result.EndTime, result.Error)

		if config.OnPipelineComplete != nil {
			config.OnPipelineComplete(result.StageResults, result.Error)
		}

		resultCh <- result
	}()

	return resultCh
}

func (p *Pipeline[T]) executeStages(ctx context.Context, config Config, stages []Stage[T], input T, result *Result[T]) (T, string, error) {
	current := input

	for _, stage := range stages {
		select {
		case <-ctx.Done():
			return current, stage.Name(), ctx.Err()
		default:
		}

		output, sr := p.executeStage(ctx, config, stage, current)
		result.StageResults = append(result.StageResults, sr)

		if sr.Error != nil {
			if config.OnError != nil {
				config.OnError(stage.Name(), sr.Error)
			}
			if config.StopOnError {
				return current, stage.Name(), sr.Error
			}
			continue
		}
		current = output
	}

	return current, "", nil
}

func (p *Pipeline[T]) executeStage(ctx context.Context, config Config, stage Stage[T], input T) (output T, sr StageResult) {
	sr.StageName = stage.Name()
	sr.StartTime = time.Now()

	if config.OnStageStart != nil {
		config.OnStageStart(sr.StageName)
	}

	defer func() {
		if r := recover(); r != nil {
			output = input
			sr.Error = fmt.Errorf("stage %s panicked: %v\nStack trace:\n%s", sr.StageName, r, debug.Stack())
		}
		sr.EndTime = time.Now()
		sr.Duration = sr.EndTime.Sub(sr.StartTime)

		p.updateStageStats(sr)

		if config.OnStageComplete != nil {
			config.OnStageComplete(sr)
		}
	}()

	output, sr.Error = stage.Execute(ctx, input)
	return output, sr
}

// AddStage adds a stage to the pipeline.
func (p *Pipeline[T]) AddStage(stage Stage[T]) *Pipeline[T] {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stages = append(p.stages, stage)
	if _, exists := p.stats.StageStats[stage.Name()]; !exists {
		p.stats.StageStats[stage.Name()] = StageStats{Name: stage.Name()}
	}
	return p
}

// AddStageFunc adds a stage function to the pipeline.
func (p *Pipeline[T]) AddStageFunc(name string, fn func(ctx context.Context, input T) (T, error)) *Pipeline[T] {
	return p.AddStage(NewStageFunc(name, fn))
}

// SetTimeout sets the timeout for pipeline execution.
func (p *Pipeline[T]) SetTimeout(timeout time.Duration) *Pipeline[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config.Timeout = timeout
	return p
}

// Stages returns all stages in the pipeline.
func (p *Pipeline[T]) Stages() []Stage[T] {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stages := make([]Stage[T], len(p.stages))
	copy(stages, p.stages)
	return stages
}

// Stats returns pipeline execution statistics.
func (p *Pipeline[T]) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	statsCopy := p.stats
	statsCopy.StageStats = make(map[string]StageStats, len(p.stats.StageStats))
	for k, v := range p.stats.StageStats {
		statsCopy.StageStats[k] = v
	}
	if statsCopy.TotalExecutions > 0 {
		statsCopy.AverageDuration = time.Duration(int64(statsCopy.TotalDuration) / statsCopy.TotalExecutions)
	}
	return statsCopy
}

func (p *Pipeline[T]) updateStats(d time.Duration, end time.Time, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.TotalExecutions++
	p.stats.TotalDuration += d
	p.stats.LastExecutionAt = end
	if err == nil {
		p.stats.SuccessfulRuns++
	} else {
		p.stats.FailedRuns++
	}
}

func (p *Pipeline[T]) updateStageStats(sr StageResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats, exists := p.stats.StageStats[sr.StageName]
	if !exists {
		stats = StageStats{Name: sr.StageName}
	}

	stats.ExecutionCount++
	stats.TotalDuration += sr.Duration
	if sr.Error == nil {
		stats.SuccessCount++
	} else {
		stats.ErrorCount++
	}
	stats.AverageDuration = time.Duration(int64(stats.TotalDuration) / stats.ExecutionCount)

	p.stats.StageStats[sr.StageName] = stats
}
