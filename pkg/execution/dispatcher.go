package execution

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	wferrors "github.com/vnykmshr/wareflow/pkg/common/errors"
	"github.com/vnykmshr/wareflow/pkg/warehouse"
)

// Config configures a Dispatcher.
type Config struct {
	// Workers is the number of concurrent deliveries. Defaults to 4.
	Workers int

	// TaskTimeout bounds a single delivery. Zero means no per-command limit.
	TaskTimeout time.Duration

	// Throttle limits the issue rate. Nil disables throttling.
	Throttle *Throttle

	// Clock stamps issued commands. Defaults to the system clock.
	Clock Clock

	// Logger receives per-command debug lines. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Dispatcher issues commands and collects terminal feedback with a bounded
// set of workers.
type Dispatcher struct {
	terminal Terminal
	config   Config
}

type delivery struct {
	index int
	cmd   warehouse.Command
}

// NewDispatcher creates a Dispatcher delivering through terminal.
func NewDispatcher(terminal Terminal, cfg Config) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Dispatcher{terminal: terminal, config: cfg}
}

// Issue marks every command as issued at the current time. The input slice
// is not modified.
func (d *Dispatcher) Issue(cmds []warehouse.Command) []warehouse.Command {
	now := d.config.Clock.Now()
	issued := make([]warehouse.Command, len(cmds))
	for i, c := range cmds {
		c.IssueStatus = warehouse.IssueStatusIssued
		c.IssuedAt = now
		issued[i] = c
	}
	return issued
}

// Collect delivers every command and returns the feedback in command order.
// Deliveries run concurrently; any failure fails the whole batch.
func (d *Dispatcher) Collect(ctx context.Context, cmds []warehouse.Command) ([]warehouse.Feedback, error) {
	if len(cmds) == 0 {
		return nil, nil
	}

	feedback := make([]warehouse.Feedback, len(cmds))
	errs := make([]error, len(cmds))
	queue := make(chan delivery)

	workers := d.config.Workers
	if workers > len(cmds) {
		workers = len(cmds)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for job := range queue {
				feedback[job.index], errs[job.index] = d.deliver(ctx, id, job.cmd)
			}
		}(w)
	}

feed:
	for i, c := range cmds {
		select {
		case queue <- delivery{index: i, cmd: c}:
		case <-ctx.Done():
			break feed
		}
	}
	close(queue)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("collect feedback: %w", err)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return feedback, nil
}

// deliver sends one command, applying the throttle and the task timeout.
func (d *Dispatcher) deliver(ctx context.Context, worker int, cmd warehouse.Command) (fb warehouse.Feedback, err error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("terminal panicked: %v\nStack trace:\n%s", r, debug.Stack())
		}
		if err != nil {
			err = wferrors.NewOperationError("execution", "Deliver", err).
				WithContext("command " + cmd.ID)
		}
		d.config.Logger.Debug("command delivered",
			zap.String("command", cmd.ID),
			zap.String("equipment", cmd.EquipmentID),
			zap.Int("worker", worker),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
	}()

	if d.config.Throttle != nil {
		if err = d.config.Throttle.Wait(ctx); err != nil {
			return warehouse.Feedback{}, err
		}
	}

	if d.config.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.TaskTimeout)
		defer cancel()
	}

	return d.terminal.Deliver(ctx, cmd)
}
