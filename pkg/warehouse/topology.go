package warehouse

import (
	"fmt"

	wferrors "github.com/vnykmshr/wareflow/pkg/common/errors"
)

// Edge is a directed passage between two partitions.
type Edge struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Length     int     `json:"length"`
	Efficiency float64 `json:"efficiency"` // percent
}

// Topology is the partition graph. Partitions keep registration order, which
// fixes the order of every partition list derived from it.
type Topology struct {
	Partitions []string `json:"partitions"`
	Edges      []Edge   `json:"edges"`
}

// Validate checks that there is at least one partition, names are unique and
// every edge references registered partitions.
func (t Topology) Validate() error {
	if len(t.Partitions) == 0 {
		return fmt.Errorf("no partitions: %w", wferrors.ErrInvalidTopology)
	}
	seen := make(map[string]bool, len(t.Partitions))
	for _, p := range t.Partitions {
		if p == "" {
			return fmt.Errorf("empty partition name: %w", wferrors.ErrInvalidTopology)
		}
		if seen[p] {
			return fmt.Errorf("duplicate partition %q: %w", p, wferrors.ErrInvalidTopology)
		}
		seen[p] = true
	}
	for _, e := range t.Edges {
		if !seen[e.Source] {
			return fmt.Errorf("edge %s->%s: unknown source: %w", e.Source, e.Target, wferrors.ErrInvalidTopology)
		}
		if !seen[e.Target] {
			return fmt.Errorf("edge %s->%s: unknown target: %w", e.Source, e.Target, wferrors.ErrInvalidTopology)
		}
	}
	return nil
}

// Has reports whether p is a registered partition.
func (t Topology) Has(p string) bool {
	for _, name := range t.Partitions {
		if name == p {
			return true
		}
	}
	return false
}

// ConnectsFrom reports whether any edge leaves source.
func (t Topology) ConnectsFrom(source string) bool {
	for _, e := range t.Edges {
		if e.Source == source {
			return true
		}
	}
	return false
}

// ConnectsInto reports whether any edge enters target.
func (t Topology) ConnectsInto(target string) bool {
	for _, e := range t.Edges {
		if e.Target == target {
			return true
		}
	}
	return false
}

// MeanEfficiency returns the average edge efficiency as a fraction of 1.
// A topology without edges has efficiency 0.
func (t Topology) MeanEfficiency() float64 {
	if len(t.Edges) == 0 {
		return 0
	}
	var sum float64
	for _, e := range t.Edges {
		sum += e.Efficiency
	}
	return sum / float64(len(t.Edges)) / 100
}
