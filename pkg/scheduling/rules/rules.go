// Package rules scores the candidate scheduling rules against a feature
// snapshot of the warehouse and tracks the active rule across runs.
package rules

import (
	"math"
	"sync"

	"github.com/vnykmshr/wareflow/pkg/warehouse"
)

// Rule names a scheduling policy.
type Rule string

const (
	Priority          Rule = "priority"
	PathOptimization  Rule = "path optimization"
	ConflictAvoidance Rule = "conflict avoidance"
)

// Candidates lists the rules in tie-break order.
var Candidates = []Rule{Priority, PathOptimization, ConflictAvoidance}

// Known reports whether r is one of the candidate rules.
func Known(r Rule) bool {
	for _, c := range Candidates {
		if c == r {
			return true
		}
	}
	return false
}

// Definition pairs a rule with its human-readable description.
type Definition struct {
	Name        Rule   `mapstructure:"name" yaml:"name" json:"name"`
	Description string `mapstructure:"description" yaml:"description" json:"description"`
}

// DefaultDefinitions returns the built-in rule descriptions.
func DefaultDefinitions() []Definition {
	return []Definition{
		{Priority, "overdue orders first, then urgent, then normal"},
		{PathOptimization, "prefer the shortest topological path with the highest passage efficiency"},
		{ConflictAvoidance, "allow one mobile unit per path segment per time window"},
	}
}

// Features is the state vector the rules are scored on.
type Features struct {
	Backlog    float64 `json:"backlog"`
	Load       float64 `json:"load"`
	Efficiency float64 `json:"efficiency"`
}

// Scores holds one score per candidate rule.
type Scores struct {
	Priority          float64 `json:"priority"`
	PathOptimization  float64 `json:"path_optimization"`
	ConflictAvoidance float64 `json:"conflict_avoidance"`
}

// Of returns the score of r.
func (s Scores) Of(r Rule) float64 {
	switch r {
	case Priority:
		return s.Priority
	case PathOptimization:
		return s.PathOptimization
	case ConflictAvoidance:
		return s.ConflictAvoidance
	}
	return math.Inf(-1)
}

// Best returns the highest-scoring rule. Exact ties go to the earlier
// candidate.
func (s Scores) Best() Rule {
	best := Candidates[0]
	for _, r := range Candidates[1:] {
		if s.Of(r) > s.Of(best) {
			best = r
		}
	}
	return best
}

// Score computes the weighted score of every rule.
func Score(f Features) Scores {
	return Scores{
		Priority:          f.Backlog*0.6 + f.Load*0.4,
		PathOptimization:  f.Efficiency*0.7 + (1-f.Load)*0.3,
		ConflictAvoidance: f.Load*0.5 + (1-f.Efficiency)*0.5,
	}
}

// Select returns the argmax rule for f.
func Select(f Features) Rule {
	return Score(f).Best()
}

// DefaultBacklogCapacity is the order count that maps to a backlog of 1.0.
const DefaultBacklogCapacity = 20

// defaultLoad is used when no unit is in normal operation.
const defaultLoad = 0.5

// ExtractFeatures derives the feature vector from the world state.
//
// Backlog is the order count over capacity. Load is the mean recorded load of
// running units as a fraction, or 0.5 if none are running. Efficiency is the
// mean edge efficiency as a fraction.
func ExtractFeatures(s *warehouse.WorldState, capacity int) Features {
	if capacity <= 0 {
		capacity = DefaultBacklogCapacity
	}

	load := defaultLoad
	var sum float64
	var n int
	for _, id := range s.EquipmentIDs() {
		u := s.Equipment[id]
		if u.Status == warehouse.StatusRunning {
			sum += u.Load / 100
			n++
		}
	}
	if n > 0 {
		load = sum / float64(n)
	}

	return Features{
		Backlog:    float64(len(s.Orders)) / float64(capacity),
		Load:       load,
		Efficiency: s.Topology.MeanEfficiency(),
	}
}

// Decision is the outcome of one Selector evaluation.
type Decision struct {
	Rule     Rule     `json:"rule"`
	Previous Rule     `json:"previous,omitempty"`
	Initial  bool     `json:"initial"`
	Switched bool     `json:"switched"`
	Change   float64  `json:"change"`
	Features Features `json:"features"`
	Scores   Scores   `json:"scores"`
}

// DefaultSensitivity is the mean feature change required to switch rules.
const DefaultSensitivity = 0.3

// Selector holds the active rule between runs. It is safe for concurrent use.
type Selector struct {
	mu          sync.Mutex
	sensitivity float64
	active      Rule
	last        Features
}

// NewSelector creates a selector with the given switch sensitivity.
func NewSelector(sensitivity float64) *Selector {
	return &Selector{sensitivity: sensitivity}
}

// Evaluate scores f and decides the active rule.
//
// The first call adopts the argmax. Afterwards the active rule changes only
// when the argmax differs from it and the mean absolute change of the three
// features since the previous evaluation exceeds the sensitivity. The
// snapshot is updated on every call.
func (s *Selector) Evaluate(f Features) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	scores := Score(f)
	best := scores.Best()
	d := Decision{Previous: s.active, Features: f, Scores: scores}

	if s.active == "" {
		s.active = best
		s.last = f
		d.Rule = best
		d.Initial = true
		return d
	}

	d.Change = (math.Abs(f.Backlog-s.last.Backlog) +
		math.Abs(f.Load-s.last.Load) +
		math.Abs(f.Efficiency-s.last.Efficiency)) / 3
	if best != s.active && d.Change > s.sensitivity {
		s.active = best
		d.Switched = true
	}
	s.last = f
	d.Rule = s.active
	return d
}

// Active returns the current rule, or "" before the first evaluation.
func (s *Selector) Active() Rule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SetSensitivity updates the switch threshold, e.g. after a config reload.
func (s *Selector) SetSensitivity(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sensitivity = v
}
