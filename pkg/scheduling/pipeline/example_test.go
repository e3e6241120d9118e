package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Example runs a small order-handling chain.
func Example() {
	type ticket struct {
		ID    string
		Steps []string
	}

	p := New[*ticket]()
	for _, step := range []string{"locate", "pick", "confirm"} {
		step := step
		p.AddStageFunc(step, func(_ context.Context, t *ticket) (*ticket, error) {
			t.Steps = append(t.Steps, step)
			return t, nil
		})
	}

	result, err := p.Execute(context.Background(), &ticket{ID: "ORD2025001"})
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println(result.Output.ID, strings.Join(result.Output.Steps, " > "))
	fmt.Println("stages:", len(result.StageResults))

	// Output:
	// ORD2025001 locate > pick > confirm
	// stages: 3
}

// Example_errorHandling shows how the failing stage is reported.
func Example_errorHandling() {
	p := New[int]().
		AddStageFunc("reserve", func(_ context.Context, qty int) (int, error) {
			return qty, nil
		}).
		AddStageFunc("allocate", func(_ context.Context, qty int) (int, error) {
			if qty > 100 {
				return qty, errors.New("insufficient stock")
			}
			return qty, nil
		})

	result, err := p.Execute(context.Background(), 250)
	fmt.Printf("stage=%s err=%v\n", result.FailedStage, err)

	// Output:
	// stage=allocate err=insufficient stock
}

// Example_statistics reads execution counters.
func Example_statistics() {
	p := New[int]().AddStageFunc("noop", func(_ context.Context, n int) (int, error) {
		return n, nil
	})

	for i := 0; i < 3; i++ {
		_, _ = p.Execute(context.Background(), i)
	}

	stats := p.Stats()
	fmt.Printf("runs=%d ok=%d stage=%d\n",
		stats.TotalExecutions, stats.SuccessfulRuns, stats.StageStats["noop"].ExecutionCount)

	// Output:
	// runs=3 ok=3 stage=3
}
