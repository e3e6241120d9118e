package store

import (
	"context"
	"sort"
	"sync"

	"github.com/vnykmshr/wareflow/pkg/report"
)

// Memory keeps runs in process memory.
type Memory struct {
	mu   sync.RWMutex
	runs map[string]*report.Run
	seq  map[string]int
	next int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		runs: make(map[string]*report.Run),
		seq:  make(map[string]int),
	}
}

func (m *Memory) Save(_ context.Context, r *report.Run) error {
	if err := checkRun(r); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *r
	m.runs[r.ID] = &cp
	if _, ok := m.seq[r.ID]; !ok {
		m.seq[r.ID] = m.next
		m.next++
	}
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*report.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// ordered returns runs newest first; insertion order breaks ties.
func (m *Memory) ordered() []*report.Run {
	runs := make([]*report.Run, 0, len(m.runs))
	for _, r := range m.runs {
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].StartedAt.After(runs[j].StartedAt)
		}
		return m.seq[runs[i].ID] > m.seq[runs[j].ID]
	})
	return runs
}

func (m *Memory) Latest(_ context.Context) (*report.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := m.ordered()
	if len(runs) == 0 {
		return nil, ErrNotFound
	}
	cp := *runs[0]
	return &cp, nil
}

func (m *Memory) List(_ context.Context, limit int) ([]report.Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := m.ordered()
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	out := make([]report.Summary, 0, len(runs))
	for _, r := range runs {
		out = append(out, r.Summary())
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
