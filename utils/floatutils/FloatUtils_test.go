package floatutils

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r1"
)

func TestClip(t *testing.T) {
	tests := []struct {
		value, min, max, expected float64
	}{
		{0.5, -1.0, 1.0, 0.5},
		{1.5, -1.0, 1.0, 1.0},
		{-1.5, -1.0, 1.0, -1.0},
		{-1.0, -1.0, 1.0, -1.0},
		{1.0, -1.0, 1.0, 1.0},
	}

	for _, test := range tests {
		if got := Clip(test.value, test.min, test.max); got != test.expected {
			t.Errorf("clip(%v, %v, %v) = %v, expected %v", test.value,
				test.min, test.max, got, test.expected)
		}
	}
}

func TestClipInterval(t *testing.T) {
	interval := r1.Interval{Min: -2.0, Max: 2.0}
	if got := ClipInterval(3.0, interval); got != 2.0 {
		t.Errorf("expected 2.0, got %v", got)
	}
	if got := ClipInterval(-3.0, interval); got != -2.0 {
		t.Errorf("expected -2.0, got %v", got)
	}
}

func TestMinMax(t *testing.T) {
	values := []float64{3.0, -1.0, 2.5, 0.0}
	if got := Min(values...); got != -1.0 {
		t.Errorf("expected -1.0, got %v", got)
	}
	if got := Max(values...); got != 3.0 {
		t.Errorf("expected 3.0, got %v", got)
	}
}
