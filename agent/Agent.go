// Package agent defines agent and function approximator interfaces
package agent

import (
	"github.com/playmeow/playmeow/timestep"
	"gonum.org/v1/gonum/mat"
)

// Model is a trainable function approximator mapping observation
// feature rows to action-value rows. Implementations hold their own
// weights, and Polyak moves the receiver's weights toward a source
// model's weights.
type Model interface {
	// Predict computes the model output for each row of states
	Predict(states *mat.Dense) (*mat.Dense, error)

	// Fit performs one gradient step toward targets and returns
	// the loss before the update
	Fit(states, targets *mat.Dense) (float64, error)

	// Clone returns a copy of the model with identical weights
	Clone() (Model, error)

	// Polyak sets the receiver's weights to
	// tau*source + (1-tau)*receiver
	Polyak(source Model, tau float64) error

	// Features returns the number of input features per row
	Features() int

	// Outputs returns the number of outputs per row
	Outputs() int

	// Close frees any resources held by the model
	Close() error
}

// Agent determines the implementation details of a learning agent
//
// An Agent selects actions with SelectAction, accumulates transitions
// with AddExperience, and updates its weights with TrainOnBatch.
// UpdateTarget moves the agent's bootstrap target weights toward its
// online weights.
type Agent interface {
	// SelectAction chooses an action for the observation in t. With
	// probability epsilon the action is random, otherwise it is
	// greedy with respect to the agent's online model.
	SelectAction(t timestep.TimeStep, epsilon float64) *mat.VecDense

	// AddExperience records a transition for later training
	AddExperience(t timestep.Transition) error

	// TrainOnBatch samples a batch of stored transitions and performs
	// one gradient step. The returned bool is false when not enough
	// transitions have been stored yet, which is not an error.
	TrainOnBatch() (loss float64, ok bool, err error)

	// UpdateTarget moves the target model's weights toward the
	// online model's weights by factor tau
	UpdateTarget(tau float64) error
}

// A Closer is an agent that must be closed after it is done learning
type Closer interface {
	Agent
	Close() error
}
