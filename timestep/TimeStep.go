// Package timestep implements timesteps of the agent-environment
// interaction
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StepType denotes the type of step that a TimeStep can be, either a
// first environmental step, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// EndType denotes the way in which an episode ended. Episodes may end
// by reaching a terminal state or by hitting the environmental step
// limit while in a non-terminal state.
type EndType int

const (
	// TerminalStateReached indicates that an episode ended because the
	// environment reached a terminal state
	TerminalStateReached EndType = iota

	// Timeout indicates that an episode ended because the step limit
	// was reached
	Timeout

	// NoEnd indicates that an episode has not yet ended
	NoEnd
)

func (e EndType) String() string {
	switch e {
	case TerminalStateReached:
		return "TerminalStateReached"
	case Timeout:
		return "Timeout"
	default:
		return "NoEnd"
	}
}

// TimeStep packages together a single timestep in an environment
type TimeStep struct {
	StepType    StepType
	Reward      float64
	Discount    float64
	Observation mat.Vector
	Number      int
	EndType     EndType
}

// New constructs a new TimeStep
func New(t StepType, r, d float64, o mat.Vector, n int) TimeStep {
	return TimeStep{t, r, d, o, n, NoEnd}
}

// First returns whether a TimeStep is the first in an environment
func (t *TimeStep) First() bool {
	return t.StepType == First
}

// Mid returns whether a TimeStep is a middle step in an environment
func (t *TimeStep) Mid() bool {
	return t.StepType == Mid
}

// Last returns whether a TimeStep is the last step in an environment
func (t *TimeStep) Last() bool {
	return t.StepType == Last
}

// SetEnd records the way in which the episode containing the TimeStep
// ended
func (t *TimeStep) SetEnd(e EndType) {
	t.EndType = e
}

// TerminatedEarly returns whether the episode containing the TimeStep
// ended due to reaching a terminal state before the step limit
func (t *TimeStep) TerminatedEarly() bool {
	return t.Last() && t.EndType == TerminalStateReached
}

// TimedOut returns whether the episode containing the TimeStep ended
// due to the environmental step limit
func (t *TimeStep) TimedOut() bool {
	return t.Last() && t.EndType == Timeout
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  Reward:  %.2f  |  Discount: %.2f  |  " +
		"Step Number:  %v"

	return fmt.Sprintf(str, t.StepType, t.Reward, t.Discount, t.Number)
}

// Transition packages together a single environmental transition
// (S, A, R, S', done) for storage in an experience replay buffer.
// Once inserted into a buffer, the buffer owns the record.
type Transition struct {
	State     mat.Vector
	Action    mat.Vector
	Reward    float64
	NextState mat.Vector
	Done      bool
}

// NewTransition packages a timestep, the action taken in that
// timestep, and the resulting timestep into a Transition. The reward
// and termination flag are taken from the resulting timestep.
func NewTransition(step TimeStep, action mat.Vector,
	nextStep TimeStep) Transition {
	return Transition{
		State:     step.Observation,
		Action:    action,
		Reward:    nextStep.Reward,
		NextState: nextStep.Observation,
		Done:      nextStep.Last(),
	}
}
