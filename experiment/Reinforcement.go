// Package experiment implements functionality for running a
// reinforcement learning experiment
package experiment

import (
	"context"
	"fmt"
	"sync"

	"github.com/samuelfneumann/progressbar"

	"github.com/playmeow/playmeow/agent"
	env "github.com/playmeow/playmeow/environment"
	"github.com/playmeow/playmeow/experiment/trackers"
	ts "github.com/playmeow/playmeow/timestep"
)

// Config represents a configuration of the training loop
type Config struct {
	NEpisodes            int
	InitialEpsilon       float64
	FinalEpsilon         float64
	EpsilonDecaySteps    int
	TargetUpdateInterval int     // Episodes between target updates
	Tau                  float64 // Polyak averaging constant
}

// NewConfig returns a Config with default hyperparameters for the
// given number of episodes
func NewConfig(nEpisodes int) Config {
	return Config{
		NEpisodes:            nEpisodes,
		InitialEpsilon:       1.0,
		FinalEpsilon:         0.1,
		EpsilonDecaySteps:    500,
		TargetUpdateInterval: 10,
		Tau:                  0.1,
	}
}

// Validate ensures that the Config is valid
func (c Config) Validate() error {
	if c.NEpisodes < 1 {
		return fmt.Errorf("number of episodes must be positive, got %v",
			c.NEpisodes)
	}
	if c.InitialEpsilon < c.FinalEpsilon {
		return fmt.Errorf("initial epsilon (%v) cannot be below final "+
			"epsilon (%v)", c.InitialEpsilon, c.FinalEpsilon)
	}
	if c.FinalEpsilon < 0 || c.InitialEpsilon > 1 {
		return fmt.Errorf("epsilon range [%v, %v] must lie in [0, 1]",
			c.FinalEpsilon, c.InitialEpsilon)
	}
	if c.EpsilonDecaySteps < 1 {
		return fmt.Errorf("epsilon decay steps must be positive, got %v",
			c.EpsilonDecaySteps)
	}
	if c.TargetUpdateInterval < 1 {
		return fmt.Errorf("target update interval must be positive, "+
			"got %v", c.TargetUpdateInterval)
	}
	if c.Tau < 0 || c.Tau > 1 {
		return fmt.Errorf("tau must be in [0, 1], got %v", c.Tau)
	}
	return nil
}

// Epsilon returns the exploration rate for an episode: linear decay
// from initial to final over decaySteps episodes, floored at final
func Epsilon(episode int, initial, final float64, decaySteps int) float64 {
	epsilon := initial - (initial-final)*float64(episode)/float64(decaySteps)
	if epsilon < final {
		return final
	}
	return epsilon
}

// Reinforcement runs an agent on an environment for a fixed number of
// episodes, training the agent after every step and soft-updating its
// target model at an episode interval.
//
// The episodic returns are accumulated behind a mutex so that another
// goroutine can poll progress with Returns() while Run is driving the
// loop.
type Reinforcement struct {
	environment env.Environment
	agent       agent.Agent
	config      Config

	mu      sync.Mutex
	returns []float64

	trackers []trackers.Tracker
}

// NewReinforcement creates and returns a new Reinforcement experiment
// on a given environment with a given agent. The t parameter is a
// slice of trackers.Tracker which determine what data is saved.
func NewReinforcement(e env.Environment, a agent.Agent, config Config,
	t ...trackers.Tracker) (*Reinforcement, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("newreinforcement: %v", err)
	}
	if e == nil || a == nil {
		return nil, fmt.Errorf("newreinforcement: no environment or agent")
	}

	return &Reinforcement{
		environment: e,
		agent:       a,
		config:      config,
		trackers:    t,
	}, nil
}

// Register registers a trackers.Tracker with the experiment so that
// data generated during the experiment can be tracked and saved
func (r *Reinforcement) Register(t trackers.Tracker) {
	r.trackers = append(r.trackers, t)
}

// Run runs every episode of the experiment and returns the episodic
// returns. Cancellation of ctx is checked once per episode; on
// cancellation the returns accumulated so far are returned along with
// the context's error.
func (r *Reinforcement) Run(ctx context.Context) ([]float64, error) {
	bar := progressbar.NewManual(50, r.config.NEpisodes)

	for episode := 0; episode < r.config.NEpisodes; episode++ {
		select {
		case <-ctx.Done():
			return r.Returns(), ctx.Err()
		default:
		}

		epsilon := Epsilon(episode, r.config.InitialEpsilon,
			r.config.FinalEpsilon, r.config.EpsilonDecaySteps)

		episodeReturn, err := r.runEpisode(epsilon)
		if err != nil {
			return r.Returns(), fmt.Errorf("run: episode %v: %v", episode,
				err)
		}

		r.mu.Lock()
		r.returns = append(r.returns, episodeReturn)
		r.mu.Unlock()

		if (episode+1)%r.config.TargetUpdateInterval == 0 {
			if err := r.agent.UpdateTarget(r.config.Tau); err != nil {
				return r.Returns(), fmt.Errorf("run: could not update "+
					"target model: %v", err)
			}
		}

		bar.Increment()
		bar.Display()
	}

	return r.Returns(), nil
}

// runEpisode runs a single episode, training the agent on every step,
// and returns the episodic return
func (r *Reinforcement) runEpisode(epsilon float64) (float64, error) {
	step := r.environment.Reset()
	r.track(step)

	var episodeReturn float64
	for !step.Last() {
		action := r.agent.SelectAction(step, epsilon)

		nextStep, _, err := r.environment.Step(action)
		if err != nil {
			return 0, err
		}
		r.track(nextStep)

		transition := ts.NewTransition(step, action, nextStep)
		if err := r.agent.AddExperience(transition); err != nil {
			return 0, fmt.Errorf("could not record transition: %v", err)
		}
		if _, _, err := r.agent.TrainOnBatch(); err != nil {
			return 0, fmt.Errorf("could not train: %v", err)
		}

		episodeReturn += nextStep.Reward
		step = nextStep
	}

	return episodeReturn, nil
}

// Returns returns a copy of the episodic returns of all completed
// episodes. It is safe to call concurrently with Run.
func (r *Reinforcement) Returns() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	returns := make([]float64, len(r.returns))
	copy(returns, r.returns)
	return returns
}

// Save saves all the data cached by the experiment's Trackers to disk
func (r *Reinforcement) Save() error {
	for _, tracker := range r.trackers {
		if err := tracker.Save(); err != nil {
			return err
		}
	}
	return nil
}

// track tracks the current timestep by caching its data in each
// Tracker
func (r *Reinforcement) track(t ts.TimeStep) {
	for _, tracker := range r.trackers {
		tracker.Track(t)
	}
}
