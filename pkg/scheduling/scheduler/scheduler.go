package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is the unit of scheduled work.
type Job interface {
	Run(ctx context.Context) error
}

// JobFunc adapts a function to the Job interface.
type JobFunc func(ctx context.Context) error

// Run calls f(ctx).
func (f JobFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Task describes a scheduled job.
type Task struct {
	ID       string
	RunAt    time.Time
	Interval time.Duration // zero for one-time and cron tasks
	Cron     string
	Created  time.Time
	Runs     int64
	Skipped  int64
}

// Config holds scheduler configuration.
type Config struct {
	// Location for cron schedules. Defaults to time.Local.
	Location *time.Location

	// TickInterval is how often ready tasks are checked (default: 50ms).
	TickInterval time.Duration

	// MaxTasks caps the number of scheduled tasks (default: 10000).
	MaxTasks int

	// Logger receives job failures and skipped runs.
	Logger *zap.Logger

	// OnError is called when a job returns an error or panics.
	OnError func(id string, err error)
}

type scheduledTask struct {
	id           string
	job          Job
	runAt        time.Time
	interval     time.Duration
	cronExpr     string
	cronSchedule cron.Schedule
	created      time.Time
	running      bool
	runs         int64
	skipped      int64
}

// Scheduler runs jobs at fixed times, intervals or cron schedules. A job
// whose previous run has not finished is skipped for that tick rather than
// run concurrently with itself.
type Scheduler struct {
	location     *time.Location
	tickInterval time.Duration
	maxTasks     int
	cronParser   cron.Parser
	log          *zap.Logger
	onError      func(string, error)

	mu      sync.Mutex
	tasks   map[string]*scheduledTask
	running bool
	cancel  context.CancelFunc
	loopWg  sync.WaitGroup
	jobWg   sync.WaitGroup
}

// New creates a scheduler with default configuration.
func New() *Scheduler {
	return NewWithConfig(Config{})
}

// NewWithConfig creates a scheduler with custom configuration.
func NewWithConfig(cfg Config) *Scheduler {
	location := cfg.Location
	if location == nil {
		location = time.Local
	}
	tickInterval := cfg.TickInterval
	if tickInterval <= 0 {
		tickInterval = 50 * time.Millisecond
	}
	maxTasks := cfg.MaxTasks
	if maxTasks <= 0 {
		maxTasks = 10000
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Scheduler{
		location:     location,
		tickInterval: tickInterval,
		maxTasks:     maxTasks,
		cronParser:   NewCronParser(),
		log:          log,
		onError:      cfg.OnError,
		tasks:        make(map[string]*scheduledTask),
	}
}

// NewCronParser accepts six-field expressions (with seconds) and
// descriptors such as "@every 5m" or "@hourly".
func NewCronParser() cron.Parser {
	return cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
}

// ValidateCron reports whether expr parses with NewCronParser.
func ValidateCron(expr string) error {
	if _, err := NewCronParser().Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

func validateID(id string, job Job) error {
	if id == "" {
		return fmt.Errorf("task ID cannot be empty")
	}
	if len(id) > 255 {
		return fmt.Errorf("task ID too long (max 255 characters)")
	}
	if job == nil {
		return fmt.Errorf("job cannot be nil")
	}
	return nil
}

func (s *Scheduler) add(t *scheduledTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[t.id]; exists {
		return fmt.Errorf("task with ID %q already exists, use a different ID or cancel the existing task first", t.id)
	}
	if len(s.tasks) >= s.maxTasks {
		return fmt.Errorf("cannot schedule task: maximum number of tasks (%d) reached", s.maxTasks)
	}
	t.created = time.Now()
	s.tasks[t.id] = t
	return nil
}

// Schedule runs job once at runAt.
func (s *Scheduler) Schedule(id string, job Job, runAt time.Time) error {
	if err := validateID(id, job); err != nil {
		return err
	}
	if runAt.IsZero() {
		return fmt.Errorf("task run time cannot be zero")
	}
	return s.add(&scheduledTask{id: id, job: job, runAt: runAt})
}

// ScheduleRepeating runs job now and then every interval.
func (s *Scheduler) ScheduleRepeating(id string, job Job, interval time.Duration) error {
	if err := validateID(id, job); err != nil {
		return err
	}
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", interval)
	}
	return s.add(&scheduledTask{id: id, job: job, runAt: time.Now(), interval: interval})
}

// ScheduleCron runs job on a cron schedule.
func (s *Scheduler) ScheduleCron(id string, cronExpr string, job Job) error {
	if err := validateID(id, job); err != nil {
		return err
	}
	if cronExpr == "" {
		return fmt.Errorf("cron expression cannot be empty")
	}
	schedule, err := s.cronParser.Parse(cronExpr)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return s.add(&scheduledTask{
		id:           id,
		job:          job,
		runAt:        schedule.Next(time.Now().In(s.location)),
		cronExpr:     cronExpr,
		cronSchedule: schedule,
	})
}

// Cancel removes a task. A run already in progress finishes.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[id]; exists {
		delete(s.tasks, id)
		return true
	}
	return false
}

// CancelAll removes every task.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = make(map[string]*scheduledTask)
}

// List returns the scheduled tasks ordered by next run time.
func (s *Scheduler) List() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, Task{
			ID:       t.id,
			RunAt:    t.runAt,
			Interval: t.interval,
			Cron:     t.cronExpr,
			Created:  t.created,
			Runs:     t.runs,
			Skipped:  t.skipped,
		})
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].RunAt.Before(tasks[j].RunAt)
	})
	return tasks
}

// Start begins dispatching tasks. Jobs receive a context derived from ctx
// that is cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running, call Stop() first")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.loopWg.Add(1)
	go s.run(runCtx)
	return nil
}

// Stop halts dispatching, cancels running jobs and closes the returned
// channel once they have returned.
func (s *Scheduler) Stop() <-chan struct{} {
	s.mu.Lock()
	if s.running {
		s.running = false
		s.cancel()
	}
	s.mu.Unlock()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		s.loopWg.Wait()
		s.jobWg.Wait()
	}()
	return stopped
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.loopWg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.processReadyTasks(ctx)
		}
	}
}

func (s *Scheduler) processReadyTasks(ctx context.Context) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.tasks {
		if now.Before(t.runAt) {
			continue
		}

		switch {
		case t.interval > 0:
			t.runAt = now.Add(t.interval)
		case t.cronSchedule != nil:
			t.runAt = t.cronSchedule.Next(now.In(s.location))
		default:
			delete(s.tasks, id)
		}

		if t.running {
			t.skipped++
			s.log.Warn("scheduled job still running, skipping", zap.String("task", id))
			continue
		}

		t.running = true
		t.runs++
		s.jobWg.Add(1)
		go s.execute(ctx, t)
	}
}

func (s *Scheduler) execute(ctx context.Context, t *scheduledTask) {
	defer s.jobWg.Done()

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v\nStack trace:\n%s", r, debug.Stack())
		}

		s.mu.Lock()
		t.running = false
		s.mu.Unlock()

		if err != nil {
			s.log.Error("scheduled job failed", zap.String("task", t.id), zap.Error(err))
			if s.onError != nil {
				s.onError(t.id, err)
			}
		}
	}()

	err = t.job.Run(ctx)
}
