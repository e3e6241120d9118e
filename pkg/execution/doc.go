/*
Package execution issues control commands to equipment terminals and
collects their feedback.

# Dispatcher

A Dispatcher fans commands out to a fixed number of workers. Each delivery
waits on an optional Throttle, runs under an optional per-command timeout and
recovers terminal panics into errors. Feedback is stored by command index,
so the returned slice is always in command order regardless of which worker
finished first:

	d := execution.NewDispatcher(terminal, execution.Config{
		Workers:     4,
		TaskTimeout: 2 * time.Second,
		Throttle:    execution.NewThrottle(50, 10, nil),
	})
	issued := d.Issue(commands)
	feedback, err := d.Collect(ctx, issued)

# Terminals

Terminal is the seam to real equipment. SimulatedTerminal produces
reproducible feedback for demonstrations and tests.

# Throttle

Throttle is a token bucket: rate tokens per second, at most burst stored.
Wait reserves a token and sleeps off any deficit, returning a wrapped
ErrRateLimited if the context ends first.
*/
package execution
