package experiment

import (
	"context"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/playmeow/playmeow/agent"
	"github.com/playmeow/playmeow/environment/catlaser"
	ts "github.com/playmeow/playmeow/timestep"
)

// fixedAgent always moves the laser in the same direction and records
// how it was driven
type fixedAgent struct {
	experiences   int
	trainCalls    int
	targetUpdates []float64
	epsilons      []float64
}

func (f *fixedAgent) SelectAction(t ts.TimeStep,
	epsilon float64) *mat.VecDense {
	f.epsilons = append(f.epsilons, epsilon)
	return mat.NewVecDense(2, []float64{0.5, -0.5})
}

func (f *fixedAgent) AddExperience(t ts.Transition) error {
	f.experiences++
	return nil
}

func (f *fixedAgent) TrainOnBatch() (float64, bool, error) {
	f.trainCalls++
	return 0, false, nil
}

func (f *fixedAgent) UpdateTarget(tau float64) error {
	f.targetUpdates = append(f.targetUpdates, tau)
	return nil
}

var _ agent.Agent = (*fixedAgent)(nil)

func newTestEnvironment(t *testing.T, maxSteps int) *catlaser.CatLaser {
	t.Helper()

	config := catlaser.NewConfig()
	config.MaxEpisodeSteps = maxSteps
	config.EngagementThreshold = 0

	environment, err := catlaser.New(config, 14)
	if err != nil {
		t.Fatalf("could not create environment: %v", err)
	}
	return environment
}

func TestEpsilonDecay(t *testing.T) {
	prev := math.Inf(1)
	for episode := 0; episode <= 600; episode++ {
		epsilon := Epsilon(episode, 1.0, 0.1, 500)
		if epsilon > prev {
			t.Fatalf("epsilon increased from %v to %v at episode %v", prev,
				epsilon, episode)
		}
		if epsilon < 0.1 {
			t.Fatalf("epsilon %v dropped below the floor at episode %v",
				epsilon, episode)
		}
		prev = epsilon
	}

	if e := Epsilon(0, 1.0, 0.1, 500); e != 1.0 {
		t.Errorf("epsilon at episode 0 = %v, expected 1.0", e)
	}
	if e := Epsilon(500, 1.0, 0.1, 500); math.Abs(e-0.1) > 1e-12 {
		t.Errorf("epsilon at episode 500 = %v, expected 0.1", e)
	}
	if e := Epsilon(10000, 1.0, 0.1, 500); e != 0.1 {
		t.Errorf("epsilon past decay = %v, expected 0.1", e)
	}
}

func TestRunCollectsReturns(t *testing.T) {
	a := new(fixedAgent)
	config := NewConfig(5)
	config.TargetUpdateInterval = 2

	experiment, err := NewReinforcement(newTestEnvironment(t, 10), a, config)
	if err != nil {
		t.Fatalf("could not create experiment: %v", err)
	}

	returns, err := experiment.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(returns) != 5 {
		t.Fatalf("collected %v returns, expected 5", len(returns))
	}
	for i, episodeReturn := range returns {
		if math.IsNaN(episodeReturn) {
			t.Errorf("return %v is NaN", i)
		}
	}

	// Episodes run 10 steps each, and the agent trains on every step
	if a.experiences != 50 {
		t.Errorf("recorded %v experiences, expected 50", a.experiences)
	}
	if a.trainCalls != 50 {
		t.Errorf("trained %v times, expected 50", a.trainCalls)
	}

	// Target updates happen after episodes 2 and 4
	if len(a.targetUpdates) != 2 {
		t.Fatalf("updated target %v times, expected 2", len(a.targetUpdates))
	}
	for _, tau := range a.targetUpdates {
		if tau != config.Tau {
			t.Errorf("target updated with tau %v, expected %v", tau,
				config.Tau)
		}
	}

	// The driven epsilons follow the decay schedule
	if a.epsilons[0] != Epsilon(0, config.InitialEpsilon,
		config.FinalEpsilon, config.EpsilonDecaySteps) {
		t.Errorf("first epsilon = %v, expected the schedule's start",
			a.epsilons[0])
	}
}

func TestRunCancellation(t *testing.T) {
	a := new(fixedAgent)
	experiment, err := NewReinforcement(newTestEnvironment(t, 10), a,
		NewConfig(1000))
	if err != nil {
		t.Fatalf("could not create experiment: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	returns, err := experiment.Run(ctx)
	if err != context.Canceled {
		t.Fatalf("run returned %v, expected context.Canceled", err)
	}
	if len(returns) != 0 {
		t.Errorf("cancelled run collected %v returns before starting",
			len(returns))
	}
}

func TestConfigValidation(t *testing.T) {
	if err := NewConfig(100).Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}

	config := NewConfig(0)
	if err := config.Validate(); err == nil {
		t.Error("zero episodes did not fail")
	}

	config = NewConfig(10)
	config.InitialEpsilon = 0.05
	if err := config.Validate(); err == nil {
		t.Error("initial epsilon below final did not fail")
	}

	config = NewConfig(10)
	config.Tau = 2
	if err := config.Validate(); err == nil {
		t.Error("tau > 1 did not fail")
	}
}
