// Package correction compares terminal feedback with the model's prediction
// and flags equipment whose state has drifted.
package correction

import (
	"math"

	"github.com/vnykmshr/wareflow/pkg/warehouse"
)

// CompareMode selects the predicted value a reported position is checked
// against.
type CompareMode string

const (
	// CompareStatus checks the reported position against the unit's recorded
	// status. A position never equals a status, so every record carries a
	// position deviation of 1.
	CompareStatus CompareMode = "status"
	// ComparePosition checks against the unit's recorded partition.
	ComparePosition CompareMode = "position"
)

// Defaults.
const (
	DefaultThreshold         = 5.0
	DefaultPredictedProgress = 85
)

// Config controls deviation analysis.
type Config struct {
	Threshold         float64
	PredictedProgress int
	Compare           CompareMode
}

// DefaultConfig returns the stock analysis settings.
func DefaultConfig() Config {
	return Config{
		Threshold:         DefaultThreshold,
		PredictedProgress: DefaultPredictedProgress,
		Compare:           CompareStatus,
	}
}

// Score combines a position and a progress deviation into a 0..10 score.
func Score(position int, progress float64) float64 {
	return (float64(position)*0.3 + progress*0.7) * 10
}

// Corrector analyses feedback batches.
type Corrector struct {
	cfg Config
}

// New creates a Corrector. Zero fields take their DefaultConfig values.
func New(cfg Config) *Corrector {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.PredictedProgress <= 0 {
		cfg.PredictedProgress = DefaultPredictedProgress
	}
	if cfg.Compare == "" {
		cfg.Compare = CompareStatus
	}
	return &Corrector{cfg: cfg}
}

// Analyze produces one deviation per feedback record, in input order.
func (c *Corrector) Analyze(s *warehouse.WorldState, feedback []warehouse.Feedback) []warehouse.Deviation {
	out := make([]warehouse.Deviation, 0, len(feedback))
	for _, fb := range feedback {
		position := 0
		if fb.Position != c.predicted(s, fb.EquipmentID) {
			position = 1
		}
		progress := math.Abs(float64(fb.Progress-c.cfg.PredictedProgress)) / 100
		progress = math.Max(0, math.Min(1, progress))

		score := Score(position, progress)
		out = append(out, warehouse.Deviation{
			EquipmentID:   fb.EquipmentID,
			CommandID:     fb.CommandID,
			Position:      position,
			Progress:      progress,
			Score:         score,
			OverThreshold: score > c.cfg.Threshold,
		})
	}
	return out
}

func (c *Corrector) predicted(s *warehouse.WorldState, id string) string {
	if c.cfg.Compare == ComparePosition {
		return s.Position(id)
	}
	return string(s.Status(id))
}

// Calibrate marks every over-threshold unit as needing calibration and
// returns the number of over-threshold records (a unit flagged twice counts
// twice).
func (c *Corrector) Calibrate(s *warehouse.WorldState, deviations []warehouse.Deviation) int {
	n := 0
	for _, d := range deviations {
		if !d.OverThreshold {
			continue
		}
		n++
		s.SetStatus(d.EquipmentID, warehouse.StatusNeedsCalibration)
	}
	return n
}
