// Package scheduler runs jobs at a fixed time, at a fixed interval or on a cron
// schedule.
//
// The serve command uses it to trigger scheduling runs:
//
//	s := scheduler.NewWithConfig(scheduler.Config{Logger: logger})
//	if err := s.ScheduleCron("pipeline", "@every 5m", scheduler.JobFunc(runOnce)); err != nil {
//		return err
//	}
//	if err := s.Start(ctx); err != nil {
//		return err
//	}
//	defer func() { <-s.Stop() }()
//
// Cron expressions have six fields, seconds first ("0 */5 * * * *"), or use a
// descriptor such as "@hourly" or "@every 90s". They are parsed with
// github.com/robfig/cron/v3.
//
// # Overlap
//
// Each job runs in its own goroutine. If a job is still running when it
// becomes due again, that occurrence is skipped and counted in Task.Skipped.
//
// # Failures
//
// Errors and recovered panics are logged and passed to Config.OnError; the
// task stays scheduled.
//
// # Shutdown
//
// Stop cancels the context handed to running jobs and closes its channel
// once the dispatch loop and every job have returned.
package scheduler
