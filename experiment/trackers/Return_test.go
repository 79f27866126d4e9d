package trackers

import (
	"math"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	ts "github.com/playmeow/playmeow/timestep"
)

func step(number int, reward float64, t ts.StepType) ts.TimeStep {
	obs := mat.NewVecDense(1, []float64{0})
	return ts.New(t, reward, 1.0, obs, number)
}

func TestReturnTracksEpisodes(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "returns.bin")
	tracker := NewReturn(filename)

	// Two episodes: returns 0.6 and -0.2
	tracker.Track(step(0, 0, ts.First))
	tracker.Track(step(1, 0.1, ts.Mid))
	tracker.Track(step(2, 0.5, ts.Last))

	tracker.Track(step(0, 0, ts.First))
	tracker.Track(step(1, -0.2, ts.Last))

	if err := tracker.Save(); err != nil {
		t.Fatalf("could not save: %v", err)
	}

	data, err := LoadData(filename)
	if err != nil {
		t.Fatalf("could not load: %v", err)
	}
	expected := []float64{0.6, -0.2}
	if len(data) != len(expected) {
		t.Fatalf("loaded %v returns, expected %v", len(data), len(expected))
	}
	for i, want := range expected {
		if math.Abs(data[i]-want) > 1e-12 {
			t.Errorf("return %v = %v, expected %v", i, data[i], want)
		}
	}
}

func TestReturnPanicsOnGap(t *testing.T) {
	tracker := NewReturn(filepath.Join(t.TempDir(), "returns.bin"))
	tracker.Track(step(0, 0, ts.First))

	defer func() {
		if recover() == nil {
			t.Error("tracking a non-sequential timestep did not panic")
		}
	}()
	tracker.Track(step(5, 0.1, ts.Mid))
}

func TestEpisodeLength(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "lengths.bin")
	tracker := NewEpisodeLength(filename)

	tracker.Track(step(0, 0, ts.First))
	tracker.Track(step(1, 0, ts.Mid))
	tracker.Track(step(2, 0, ts.Last))
	tracker.Track(step(0, 0, ts.First))
	tracker.Track(step(1, 0, ts.Last))

	if err := tracker.Save(); err != nil {
		t.Fatalf("could not save: %v", err)
	}

	data, err := LoadData(filename)
	if err != nil {
		t.Fatalf("could not load: %v", err)
	}
	if len(data) != 2 || data[0] != 2 || data[1] != 1 {
		t.Errorf("loaded lengths %v, expected [2 1]", data)
	}
}
