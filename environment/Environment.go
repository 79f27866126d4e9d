// Package environment outlines the interfaces and structs needed to
// implement concrete environments
package environment

import (
	"gonum.org/v1/gonum/mat"

	"github.com/playmeow/playmeow/timestep"
)

// Starter implements a distribution of starting states and samples
// starting states for environments
type Starter interface {
	Start() mat.Vector
}

// Ender determines whether an episode should end on the current
// timestep, modifying the timestep in-place to mark the ending
type Ender interface {
	End(*timestep.TimeStep) bool
}

// Environment implements a simulated environment. An Environment
// starts ready to use; Reset begins a new episode and returns its
// first timestep. Step is an error when called before the first Reset
// or after a terminal timestep without an intervening Reset.
type Environment interface {
	Reset() timestep.TimeStep
	Step(action mat.Vector) (timestep.TimeStep, bool, error)
	RewardSpec() Spec
	DiscountSpec() Spec
	ObservationSpec() Spec
	ActionSpec() Spec
}
