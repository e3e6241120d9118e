package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vnykmshr/wareflow/internal/testutil"
)

// testStage appends its name to the input.
type testStage struct {
	name     string
	executed *int32
	duration time.Duration
	err      error
}

func (ts *testStage) Execute(ctx context.Context, input string) (string, error) {
	atomic.AddInt32(ts.executed, 1)

	if ts.duration > 0 {
		select {
		case <-time.After(ts.duration):
		case <-ctx.Done():
			return input, ctx.Err()
		}
	}

	if ts.err != nil {
		return input, ts.err
	}
	return input + "->" + ts.name, nil
}

func (ts *testStage) Name() string {
	return ts.name
}

func TestNew(t *testing.T) {
	p := New[string]()
	testutil.AssertEqual(t, len(p.Stages()), 0)
	testutil.AssertEqual(t, p.config.StopOnError, true)
}

func TestBasicExecution(t *testing.T) {
	var executed int32
	p := New[string]().
		AddStage(&testStage{name: "locate", executed: &executed}).
		AddStage(&testStage{name: "plan", executed: &executed}).
		AddStage(&testStage{name: "dispatch", executed: &executed})

	result, err := p.Execute(context.Background(), "ORD1")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, result.Output, "ORD1->locate->plan->dispatch")
	testutil.AssertEqual(t, len(result.StageResults), 3)
	testutil.AssertEqual(t, result.FailedStage, "")
	testutil.AssertEqual(t, atomic.LoadInt32(&executed), int32(3))
}

func TestExecuteAsync(t *testing.T) {
	p := New[int]().AddStageFunc("double", func(_ context.Context, n int) (int, error) {
		return n * 2, nil
	})

	result := <-p.ExecuteAsync(context.Background(), 21)
	testutil.AssertNoError(t, result.Error)
	testutil.AssertEqual(t, result.Output, 42)
}

func TestStageErrorStops(t *testing.T) {
	var executed int32
	boom := errors.New("no stacker available")
	p := New[string]().
		AddStage(&testStage{name: "locate", executed: &executed}).
		AddStage(&testStage{name: "assign", executed: &executed, err: boom}).
		AddStage(&testStage{name: "issue", executed: &executed})

	result, err := p.Execute(context.Background(), "ORD1")
	if !errors.Is(err, boom) {
		t.Fatalf("expected stage error, got %v", err)
	}
	testutil.AssertEqual(t, result.FailedStage, "assign")
	testutil.AssertEqual(t, result.Output, "ORD1->locate")
	testutil.AssertEqual(t, len(result.StageResults), 2)
	testutil.AssertEqual(t, atomic.LoadInt32(&executed), int32(2))
}

func TestStageErrorContinue(t *testing.T) {
	var executed int32
	p := NewWithConfig[string](Config{StopOnError: false}).
		AddStage(&testStage{name: "a", executed: &executed}).
		AddStage(&testStage{name: "b", executed: &executed, err: errors.New("skip me")}).
		AddStage(&testStage{name: "c", executed: &executed})

	result, err := p.Execute(context.Background(), "x")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, result.Output, "x->a->c")
	testutil.AssertError(t, result.StageResults[1].Error)
}

func TestStagePanicRecovered(t *testing.T) {
	p := New[string]().AddStageFunc("jam", func(context.Context, string) (string, error) {
		panic("conveyor jammed")
	})

	result, err := p.Execute(context.Background(), "in")
	testutil.AssertError(t, err)
	if !strings.Contains(err.Error(), "conveyor jammed") {
		t.Errorf("panic value missing from %q", err.Error())
	}
	testutil.AssertEqual(t, result.Output, "in")
	testutil.AssertEqual(t, p.Stats().StageStats["jam"].ErrorCount, int64(1))
}

func TestContextCancellation(t *testing.T) {
	var executed int32
	p := New[string]().AddStage(&testStage{name: "s", executed: &executed})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := p.Execute(ctx, "x")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	testutil.AssertEqual(t, result.FailedStage, "s")
	testutil.AssertEqual(t, atomic.LoadInt32(&executed), int32(0))
}

func TestPipelineTimeout(t *testing.T) {
	var executed int32
	p := New[string]().
		SetTimeout(20*time.Millisecond).
		AddStage(&testStage{name: "slow", executed: &executed, duration: time.Second})

	start := time.Now()
	_, err := p.Execute(context.Background(), "x")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("timeout did not interrupt the stage")
	}
}

func TestStats(t *testing.T) {
	p := New[string]()

	stats := p.Stats()
	testutil.AssertEqual(t, stats.TotalExecutions, int64(0))

	var executed int32
	stage := &testStage{name: "test", executed: &executed}
	p.AddStage(stage)

	_, err := p.Execute(context.Background(), "input")
	testutil.AssertNoError(t, err)

	stats = p.Stats()
	testutil.AssertEqual(t, stats.TotalExecutions, int64(1))
	testutil.AssertEqual(t, stats.SuccessfulRuns, int64(1))
	testutil.AssertEqual(t, stats.StageStats["test"].SuccessCount, int64(1))

	stage.err = fmt.Errorf("test error")
	_, err = p.Execute(context.Background(), "input")
	testutil.AssertError(t, err)

	stats = p.Stats()
	testutil.AssertEqual(t, stats.TotalExecutions, int64(2))
	testutil.AssertEqual(t, stats.FailedRuns, int64(1))
	stageStats := stats.StageStats["test"]
	testutil.AssertEqual(t, stageStats.ExecutionCount, int64(2))
	testutil.AssertEqual(t, stageStats.ErrorCount, int64(1))
	if stats.LastExecutionAt.IsZero() {
		t.Error("LastExecutionAt should be set")
	}
}

func TestCallbacks(t *testing.T) {
	pipelineStarted := testutil.NewCallbackTracker()
	pipelineCompleted := testutil.NewCallbackTracker()
	stageStarted := testutil.NewCallbackTracker()
	stageCompleted := testutil.NewCallbackTracker()
	onError := testutil.NewCallbackTracker()

	p := NewWithConfig[string](Config{
		StopOnError:     true,
		OnPipelineStart: func() { pipelineStarted.Mark() },
		OnPipelineComplete: func(stages []StageResult, err error) {
			pipelineCompleted.Mark(len(stages))
		},
		OnStageStart:    func(name string) { stageStarted.Mark(name) },
		OnStageComplete: func(r StageResult) { stageCompleted.Mark(r.StageName) },
		OnError:         func(name string, _ error) { onError.Mark(name) },
	})

	var executed int32
	p.AddStage(&testStage{name: "ok", executed: &executed})
	p.AddStage(&testStage{name: "bad", executed: &executed, err: errors.New("test error")})

	_, err := p.Execute(context.Background(), "input")
	testutil.AssertError(t, err)

	pipelineStarted.AssertCallCount(t, 1)
	pipelineCompleted.AssertCallCount(t, 1)
	testutil.AssertEqual(t, pipelineCompleted.Value(), interface{}(2))
	stageStarted.AssertCallCount(t, 2)
	stageCompleted.AssertCallCount(t, 2)
	onError.AssertCallCount(t, 1)
	testutil.AssertEqual(t, onError.Value(), interface{}("bad"))
}

func TestConcurrentExecution(t *testing.T) {
	p := New[int]().AddStageFunc("inc", func(_ context.Context, n int) (int, error) {
		return n + 1, nil
	})

	const runs = 20
	results := make([]<-chan *Result[int], runs)
	for i := range results {
		results[i] = p.ExecuteAsync(context.Background(), i)
	}
	for i, ch := range results {
		r := <-ch
		testutil.AssertNoError(t, r.Error)
		testutil.AssertEqual(t, r.Output, i+1)
	}
	testutil.AssertEqual(t, p.Stats().TotalExecutions, int64(runs))
}

func TestEmptyPipeline(t *testing.T) {
	result, err := New[string]().Execute(context.Background(), "unchanged")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, result.Output, "unchanged")
	testutil.AssertEqual(t, len(result.StageResults), 0)
}

func TestStageResultTiming(t *testing.T) {
	var executed int32
	p := New[string]().AddStage(&testStage{name: "wait", executed: &executed, duration: 10 * time.Millisecond})

	result, err := p.Execute(context.Background(), "x")
	testutil.AssertNoError(t, err)

	sr := result.StageResults[0]
	if sr.Duration < 10*time.Millisecond {
		t.Errorf("stage duration %v shorter than its sleep", sr.Duration)
	}
	if !sr.EndTime.After(sr.StartTime) {
		t.Error("end time should follow start time")
	}
	if result.Duration < sr.Duration {
		t.Error("pipeline duration should cover the stage")
	}
}
