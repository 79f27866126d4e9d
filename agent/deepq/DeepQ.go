// Package deepq implements a deep Q-learning style agent for the
// cat-and-laser environment. The agent couples an experience replay
// buffer to an online model and a target model, selecting continuous
// 2D laser displacements with an epsilon greedy policy.
package deepq

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/playmeow/playmeow/agent"
	"github.com/playmeow/playmeow/expreplay"
	ts "github.com/playmeow/playmeow/timestep"
)

// DeepQ implements a Q-learning style agent over a continuous 2D
// output head. Bootstrapped targets take the max over the model's
// output dimensions and overwrite every output of a sampled row, even
// though the outputs are continuous actions rather than discrete
// action values. This matches the update rule the hyperparameters
// were tuned with and is kept as-is.
type DeepQ struct {
	model  agent.Model // Online weights, trained each batch
	target agent.Model // Bootstrap targets, Polyak updates only

	replay expreplay.ExperienceReplayer

	gamma    float64
	window   int
	features int // Untiled observation features per timestep

	rng *rand.Rand
}

// New creates and returns a new DeepQ agent. The target model is
// constructed by cloning model's weights. The model input width must
// be the untiled observation length times config.Window.
func New(model agent.Model, config Config, seed uint64) (*DeepQ, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	if model == nil {
		return nil, fmt.Errorf("new: no model given")
	}
	if model.Outputs() != 2 {
		return nil, fmt.Errorf("new: model must output 2-dimensional "+
			"actions, got %v outputs", model.Outputs())
	}
	if model.Features()%config.Window != 0 {
		return nil, fmt.Errorf("new: model takes %v features, which is "+
			"not a multiple of window length %v", model.Features(),
			config.Window)
	}
	features := model.Features() / config.Window

	target, err := model.Clone()
	if err != nil {
		return nil, fmt.Errorf("new: could not clone target model: %v", err)
	}

	replayConfig := expreplay.Config{
		MaxCapacity: config.ReplayCapacity,
		BatchSize:   config.BatchSize,
	}
	replay, err := replayConfig.Create(features, model.Outputs(), seed)
	if err != nil {
		return nil, fmt.Errorf("new: could not create replay buffer: %v",
			err)
	}

	return &DeepQ{
		model:    model,
		target:   target,
		replay:   replay,
		gamma:    config.Gamma,
		window:   config.Window,
		features: features,
		rng:      rand.New(rand.NewSource(seed)),
	}, nil
}

// SelectAction chooses a laser displacement for the observation in t.
// With probability epsilon the action is a uniformly random unit
// direction, otherwise it is the online model's prediction. Callers
// hold the epsilon schedule; the agent keeps no exploration state.
func (d *DeepQ) SelectAction(t ts.TimeStep, epsilon float64) *mat.VecDense {
	if d.rng.Float64() < epsilon {
		angle := d.rng.Float64() * 2 * math.Pi
		return mat.NewVecDense(2, []float64{
			math.Cos(angle),
			math.Sin(angle),
		})
	}

	prediction, err := d.model.Predict(d.tileObs(t.Observation))
	if err != nil {
		panic(fmt.Sprintf("selectAction: could not predict: %v", err))
	}
	return mat.NewVecDense(2, prediction.RawRowView(0))
}

// AddExperience records a transition in the replay buffer
func (d *DeepQ) AddExperience(t ts.Transition) error {
	return d.replay.Add(t)
}

// TrainOnBatch samples a batch of transitions and performs one
// gradient step of the online model toward bootstrapped targets. When
// the buffer holds fewer transitions than a batch, no update is
// performed and ok is false; this is normal early in training and not
// an error.
func (d *DeepQ) TrainOnBatch() (loss float64, ok bool, err error) {
	states, _, rewards, nextStates, dones, err := d.replay.Sample()
	if expreplay.IsEmptyBuffer(err) || expreplay.IsInsufficientSamples(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("trainOnBatch: could not sample: %v",
			err)
	}
	batchSize := len(rewards)

	stateBatch := d.tileBatch(states, batchSize)
	nextStateBatch := d.tileBatch(nextStates, batchSize)

	nextQ, err := d.target.Predict(nextStateBatch)
	if err != nil {
		return 0, false, fmt.Errorf("trainOnBatch: could not compute "+
			"next state values: %v", err)
	}
	currentQ, err := d.model.Predict(stateBatch)
	if err != nil {
		return 0, false, fmt.Errorf("trainOnBatch: could not compute "+
			"current state values: %v", err)
	}

	// Each sampled row's bootstrapped scalar overwrites every output
	// dimension of that row
	targets := mat.DenseCopyOf(currentQ)
	_, outputs := targets.Dims()
	for i := 0; i < batchSize; i++ {
		target := rewards[i]
		if !dones[i] {
			target += d.gamma * floats.Max(nextQ.RawRowView(i))
		}
		for j := 0; j < outputs; j++ {
			targets.Set(i, j, target)
		}
	}

	loss, err = d.model.Fit(stateBatch, targets)
	if err != nil {
		return 0, false, fmt.Errorf("trainOnBatch: could not fit: %v", err)
	}
	return loss, true, nil
}

// UpdateTarget moves the target model's weights toward the online
// model's weights: target = tau*online + (1-tau)*target
func (d *DeepQ) UpdateTarget(tau float64) error {
	if tau < 0 || tau > 1 {
		return fmt.Errorf("updateTarget: tau must be in [0, 1], got %v",
			tau)
	}
	return d.target.Polyak(d.model, tau)
}

// Close frees the resources of the online and target models
func (d *DeepQ) Close() error {
	if err := d.model.Close(); err != nil {
		return err
	}
	return d.target.Close()
}

// tileObs repeats a single observation across the input window,
// producing the 1 x (window * features) row the model expects
func (d *DeepQ) tileObs(obs mat.Vector) *mat.Dense {
	width := d.window * d.features
	row := make([]float64, width)
	for w := 0; w < d.window; w++ {
		for i := 0; i < d.features; i++ {
			row[w*d.features+i] = obs.AtVec(i)
		}
	}
	return mat.NewDense(1, width, row)
}

// tileBatch tiles each row of a flat row-major batch of untiled
// observations across the input window
func (d *DeepQ) tileBatch(flat []float64, rows int) *mat.Dense {
	width := d.window * d.features
	data := make([]float64, rows*width)
	for r := 0; r < rows; r++ {
		row := flat[r*d.features : (r+1)*d.features]
		for w := 0; w < d.window; w++ {
			copy(data[r*width+w*d.features:r*width+(w+1)*d.features], row)
		}
	}
	return mat.NewDense(rows, width, data)
}
