package engine

import "fmt"

// Phase is the position of a run in the scheduling state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseTopologyBuilt
	PhaseStateInjected
	PhaseRuleSelected
	PhaseTasksDecomposed
	PhaseResourcesAssigned
	PhaseCommandsIssued
	PhaseFeedbackCollected
	PhaseDeviationCorrected
	PhaseDone
)

var phaseNames = [...]string{
	"idle",
	"topology built",
	"state injected",
	"rule selected",
	"tasks decomposed",
	"resources assigned",
	"commands issued",
	"feedback collected",
	"deviation corrected",
	"done",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// StageError reports the stage that aborted a run. Phase is the phase the
// run was moving into when the stage failed.
type StageError struct {
	Phase Phase
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %q (%s) failed: %v", e.Stage, e.Phase, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
