package catlaser

import (
	"testing"
)

func TestObservationVector(t *testing.T) {
	obs := Observation{
		RelX: 1, RelZ: 2,
		VelX: 3, VelZ: 4,
		Speed: 5, Heading: 6,
		Engaged: 1, TimeSinceEngagement: 0.07,
		BoundaryDistX: 8, BoundaryDistZ: 9,
	}

	vec := obs.Vector()
	expected := []float64{1, 2, 3, 4, 5, 6, 1, 0.07, 8, 9}
	if vec.Len() != ObservationDims {
		t.Fatalf("vector has %v features, expected %v", vec.Len(),
			ObservationDims)
	}
	for i, value := range expected {
		if vec.AtVec(i) != value {
			t.Errorf("feature %v = %v, expected %v", i, vec.AtVec(i), value)
		}
	}
}

func TestZeroVelocityObservation(t *testing.T) {
	env, err := New(NewConfig(), 31)
	if err != nil {
		t.Fatalf("could not create environment: %v", err)
	}
	step := env.Reset()

	// Velocity is zeroed on reset; speed and heading must be zero
	// rather than NaN from a zero-vector normalization
	if speed := step.Observation.AtVec(4); speed != 0 {
		t.Errorf("speed = %v, expected 0", speed)
	}
	if heading := step.Observation.AtVec(5); heading != 0 {
		t.Errorf("heading = %v, expected 0", heading)
	}
}
