package expreplay

import (
	"sync"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/playmeow/playmeow/timestep"
)

// transition builds a transition whose reward identifies it
func transition(reward float64, featureSize, actionSize int) timestep.Transition {
	return timestep.Transition{
		State:     mat.NewVecDense(featureSize, nil),
		Action:    mat.NewVecDense(actionSize, nil),
		Reward:    reward,
		NextState: mat.NewVecDense(featureSize, nil),
		Done:      false,
	}
}

func TestFifoEviction(t *testing.T) {
	capacity := 5
	replay, err := New(capacity, 2, 3, 2, 1)
	if err != nil {
		t.Fatalf("could not create buffer: %v", err)
	}

	// Insert capacity+1 transitions
	for i := 0; i <= capacity; i++ {
		if err := replay.Add(transition(float64(i), 3, 2)); err != nil {
			t.Fatalf("add %v: %v", i, err)
		}
	}

	if replay.Capacity() != capacity {
		t.Fatalf("capacity = %v, expected %v", replay.Capacity(), capacity)
	}

	// The oldest transition (reward 0) must be gone and the remaining
	// transitions must be in their original relative order
	c := replay.(*cache)
	for logical := 0; logical < capacity; logical++ {
		expected := float64(logical + 1)
		if got := c.rewardAt(logical); got != expected {
			t.Errorf("logical index %v holds reward %v, expected %v",
				logical, got, expected)
		}
	}
}

func TestSampleInsufficientData(t *testing.T) {
	replay, err := New(10, 4, 2, 2, 1)
	if err != nil {
		t.Fatalf("could not create buffer: %v", err)
	}

	_, _, _, _, _, err = replay.Sample()
	if !IsEmptyBuffer(err) {
		t.Errorf("expected an empty-buffer error, got %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := replay.Add(transition(float64(i), 2, 2)); err != nil {
			t.Fatalf("add %v: %v", i, err)
		}
	}

	_, _, _, _, _, err = replay.Sample()
	if !IsInsufficientSamples(err) {
		t.Errorf("expected an insufficient-samples error, got %v", err)
	}
}

func TestSampleWithoutReplacement(t *testing.T) {
	batch := 8
	replay, err := New(8, batch, 1, 1, 3)
	if err != nil {
		t.Fatalf("could not create buffer: %v", err)
	}
	for i := 0; i < batch; i++ {
		if err := replay.Add(transition(float64(i), 1, 1)); err != nil {
			t.Fatalf("add %v: %v", i, err)
		}
	}

	// With batch size equal to buffer size, sampling without
	// replacement must return every transition exactly once
	_, _, rewards, _, _, err := replay.Sample()
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	seen := make(map[float64]int)
	for _, r := range rewards {
		seen[r]++
	}
	for i := 0; i < batch; i++ {
		if seen[float64(i)] != 1 {
			t.Errorf("reward %v sampled %v times, expected exactly once",
				i, seen[float64(i)])
		}
	}
}

func TestSampleShapes(t *testing.T) {
	featureSize, actionSize, batch := 10, 2, 4
	replay, err := New(100, batch, featureSize, actionSize, 5)
	if err != nil {
		t.Fatalf("could not create buffer: %v", err)
	}

	state := mat.NewVecDense(featureSize, nil)
	for i := 0; i < featureSize; i++ {
		state.SetVec(i, float64(i))
	}
	for i := 0; i < 20; i++ {
		err := replay.Add(timestep.Transition{
			State:     state,
			Action:    mat.NewVecDense(actionSize, []float64{1, -1}),
			Reward:    0.5,
			NextState: state,
			Done:      true,
		})
		if err != nil {
			t.Fatalf("add %v: %v", i, err)
		}
	}

	states, actions, rewards, nextStates, dones, err := replay.Sample()
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if len(states) != batch*featureSize {
		t.Errorf("states length = %v, expected %v", len(states),
			batch*featureSize)
	}
	if len(actions) != batch*actionSize {
		t.Errorf("actions length = %v, expected %v", len(actions),
			batch*actionSize)
	}
	if len(rewards) != batch || len(dones) != batch {
		t.Errorf("rewards/dones lengths = %v/%v, expected %v",
			len(rewards), len(dones), batch)
	}
	for i := 0; i < batch; i++ {
		if nextStates[i*featureSize+3] != 3.0 {
			t.Errorf("row %v: next state feature 3 = %v, expected 3",
				i, nextStates[i*featureSize+3])
		}
		if !dones[i] {
			t.Errorf("row %v: expected done", i)
		}
	}
}

func TestAddInvalidSizes(t *testing.T) {
	replay, err := New(10, 2, 3, 2, 1)
	if err != nil {
		t.Fatalf("could not create buffer: %v", err)
	}

	if err := replay.Add(transition(0, 4, 2)); err == nil {
		t.Error("expected an error for a mis-sized state")
	}
	if err := replay.Add(transition(0, 3, 1)); err == nil {
		t.Error("expected an error for a mis-sized action")
	}
}

// TestConcurrentAccess inserts and samples from separate goroutines;
// run with -race to verify the mutex guard.
func TestConcurrentAccess(t *testing.T) {
	replay, err := New(64, 8, 2, 2, 9)
	if err != nil {
		t.Fatalf("could not create buffer: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if err := replay.Add(transition(float64(i), 2, 2)); err != nil {
				t.Errorf("add %v: %v", i, err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_, _, _, _, _, err := replay.Sample()
			if err != nil && !IsInsufficientSamples(err) &&
				!IsEmptyBuffer(err) {
				t.Errorf("sample %v: %v", i, err)
				return
			}
		}
	}()
	wg.Wait()
}
