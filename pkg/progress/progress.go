// Package progress reports run milestones with a cumulative completion
// percentage.
package progress

import (
	"sync"

	"go.uber.org/zap"
)

// DefaultTotal is the number of units that make up a full run.
const DefaultTotal = 100

// Logger accumulates progress units and logs each milestone. Steps past the
// total are clamped, so the percentage never exceeds 100.
type Logger struct {
	mu          sync.Mutex
	total       int
	accumulated int
	log         *zap.Logger
}

// New creates a progress logger. A non-positive total uses DefaultTotal and
// a nil logger discards output.
func New(total int, log *zap.Logger) *Logger {
	if total <= 0 {
		total = DefaultTotal
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{total: total, log: log}
}

// Update adds step units (clamped to what remains) and logs message with
// the resulting percentage. It returns the units actually applied.
func (p *Logger) Update(step int, message string) int {
	p.mu.Lock()
	remaining := p.total - p.accumulated
	applied := step
	if applied > remaining {
		applied = remaining
	}
	if applied < 0 {
		applied = 0
	}
	p.accumulated += applied
	pct := p.percentLocked()
	p.mu.Unlock()

	p.log.Info(message, zap.Float64("progress_pct", pct), zap.Int("step", applied))
	return applied
}

// Complete fills any remaining units and logs message at 100%.
func (p *Logger) Complete(message string) {
	p.mu.Lock()
	remaining := p.total - p.accumulated
	p.mu.Unlock()
	p.Update(remaining, message)
}

// Percent returns the cumulative completion percentage.
func (p *Logger) Percent() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.percentLocked()
}

// Reset starts a new run.
func (p *Logger) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accumulated = 0
}

func (p *Logger) percentLocked() float64 {
	pct := float64(p.accumulated) / float64(p.total) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}
