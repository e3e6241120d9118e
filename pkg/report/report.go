// Package report holds the record of a completed scheduling run and
// renders it as CSV tables or a terminal summary.
package report

import (
	"time"

	"github.com/vnykmshr/wareflow/pkg/scheduling/rules"
	"github.com/vnykmshr/wareflow/pkg/warehouse"
)

// StageTiming is the wall time of one pipeline stage.
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// Run is everything a single pipeline run produced.
type Run struct {
	ID         string                `json:"id"`
	Seed       uint64                `json:"seed"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
	Decision   rules.Decision        `json:"decision"`
	Orders     []warehouse.Order     `json:"orders"`
	Operations []warehouse.Operation `json:"operations"`
	Plan       []warehouse.PlanEntry `json:"plan"`
	Commands   []warehouse.Command   `json:"commands"`
	Feedback   []warehouse.Feedback  `json:"feedback"`
	Deviations []warehouse.Deviation `json:"deviations"`
	Calibrated int                   `json:"calibrated"`
	Stages     []StageTiming         `json:"stages"`
}

// Summary is the one-line view of a run kept in store listings.
type Summary struct {
	ID            string        `json:"id"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
	Rule          rules.Rule    `json:"rule"`
	Switched      bool          `json:"switched"`
	Orders        int           `json:"orders"`
	Operations    int           `json:"operations"`
	Commands      int           `json:"commands"`
	Fallbacks     int           `json:"fallbacks"`
	OverThreshold int           `json:"over_threshold"`
	Calibrated    int           `json:"calibrated"`
}

// Summary condenses r.
func (r *Run) Summary() Summary {
	s := Summary{
		ID:         r.ID,
		StartedAt:  r.StartedAt,
		Duration:   r.FinishedAt.Sub(r.StartedAt),
		Rule:       r.Decision.Rule,
		Switched:   r.Decision.Switched,
		Orders:     len(r.Orders),
		Operations: len(r.Operations),
		Commands:   len(r.Commands),
		Calibrated: r.Calibrated,
	}
	for _, p := range r.Plan {
		if p.Fallback {
			s.Fallbacks++
		}
	}
	for _, d := range r.Deviations {
		if d.OverThreshold {
			s.OverThreshold++
		}
	}
	return s
}
