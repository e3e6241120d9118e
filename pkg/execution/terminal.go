package execution

import (
	"context"
	"hash/fnv"
	"math/rand/v2"

	"github.com/vnykmshr/wareflow/pkg/synth"
	"github.com/vnykmshr/wareflow/pkg/warehouse"
)

// AnomalyPathDeviation is the note attached to one feedback in ten.
const AnomalyPathDeviation = "minor path deviation"

var (
	statusCodes   = []int{200, 201, 202}
	statusWeights = []float64{0.90, 0.05, 0.05}
)

// Terminal delivers a command to the equipment executing it and returns the
// equipment's report.
type Terminal interface {
	Deliver(ctx context.Context, cmd warehouse.Command) (warehouse.Feedback, error)
}

// TerminalFunc adapts a function to the Terminal interface.
type TerminalFunc func(ctx context.Context, cmd warehouse.Command) (warehouse.Feedback, error)

// Deliver calls f(ctx, cmd).
func (f TerminalFunc) Deliver(ctx context.Context, cmd warehouse.Command) (warehouse.Feedback, error) {
	return f(ctx, cmd)
}

// SimulatedTerminal fabricates feedback. Each command draws from its own
// source derived from the seed and the command ID, so results do not depend
// on delivery order.
type SimulatedTerminal struct {
	seed       uint64
	partitions []string
	clock      Clock
}

// NewSimulatedTerminal reports positions drawn from partitions.
func NewSimulatedTerminal(seed uint64, partitions []string, clock Clock) *SimulatedTerminal {
	if clock == nil {
		clock = systemClock{}
	}
	return &SimulatedTerminal{
		seed:       seed,
		partitions: append([]string(nil), partitions...),
		clock:      clock,
	}
}

// Deliver returns a status code of 200, 201 or 202 (weights 0.90/0.05/0.05),
// a random position, progress 70..99 and, one time in ten, an anomaly note.
func (s *SimulatedTerminal) Deliver(ctx context.Context, cmd warehouse.Command) (warehouse.Feedback, error) {
	if err := ctx.Err(); err != nil {
		return warehouse.Feedback{}, err
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(cmd.ID))
	rng := rand.New(rand.NewPCG(s.seed, h.Sum64()))

	fb := warehouse.Feedback{
		CommandID:   cmd.ID,
		TaskID:      cmd.TaskID,
		EquipmentID: cmd.EquipmentID,
		StatusCode:  statusCodes[synth.Weighted(rng, statusWeights)],
		Progress:    70 + rng.IntN(30),
		ReportedAt:  s.clock.Now(),
	}
	if len(s.partitions) > 0 {
		fb.Position = s.partitions[rng.IntN(len(s.partitions))]
	}
	if rng.Float64() < 0.1 {
		fb.Anomaly = AnomalyPathDeviation
	}
	return fb, nil
}
