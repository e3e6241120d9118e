package execution

import (
	"context"
	"math"
	"sync"
	"time"

	wferrors "github.com/vnykmshr/wareflow/pkg/common/errors"
)

// Clock provides the current time. It can be mocked for testing.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Throttle is a token bucket limiting how fast commands are issued to
// terminals. A rate <= 0 disables throttling.
type Throttle struct {
	mu         sync.Mutex
	rate       float64 // tokens per second
	burst      int
	tokens     float64
	lastUpdate time.Time
	clock      Clock
}

// NewThrottle creates a throttle with a full bucket. A nil clock uses the
// system clock.
func NewThrottle(rate float64, burst int, clock Clock) *Throttle {
	if burst <= 0 {
		burst = 1
	}
	if clock == nil {
		clock = systemClock{}
	}
	return &Throttle{
		rate:       rate,
		burst:      burst,
		tokens:     float64(burst),
		lastUpdate: clock.Now(),
		clock:      clock,
	}
}

// Allow takes a token if one is available now.
func (t *Throttle) Allow() bool {
	if t.unlimited() {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refill(t.clock.Now())
	if t.tokens >= 1 {
		t.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or ctx is done. The token is taken
// up front; the returned error wraps ErrRateLimited when ctx ends first.
func (t *Throttle) Wait(ctx context.Context) error {
	if t.unlimited() {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	t.mu.Lock()
	now := t.clock.Now()
	t.refill(now)
	t.tokens-- // may go negative; that debt is the wait
	var delay time.Duration
	if t.tokens < 0 {
		delay = time.Duration(-t.tokens / t.rate * float64(time.Second))
	}
	t.mu.Unlock()

	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		t.mu.Lock()
		t.tokens = math.Min(t.tokens+1, float64(t.burst))
		t.mu.Unlock()
		return wferrors.NewOperationError("execution", "Throttle.Wait", wferrors.ErrRateLimited).
			WithContext(ctx.Err().Error())
	}
}

// Tokens returns the number of tokens currently available.
func (t *Throttle) Tokens() float64 {
	if t.unlimited() {
		return math.Inf(1)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refill(t.clock.Now())
	return t.tokens
}

// SetRate changes the refill rate, keeping accumulated tokens.
func (t *Throttle) SetRate(rate float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refill(t.clock.Now())
	t.rate = rate
}

func (t *Throttle) unlimited() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rate <= 0
}

func (t *Throttle) refill(now time.Time) {
	elapsed := now.Sub(t.lastUpdate)
	if elapsed <= 0 {
		return
	}
	t.tokens = math.Min(t.tokens+elapsed.Seconds()*t.rate, float64(t.burst))
	t.lastUpdate = now
}
