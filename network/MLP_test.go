package network

import (
	"encoding/json"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/playmeow/playmeow/initwfn"
	"github.com/playmeow/playmeow/solver"
)

func newTestMLP(t *testing.T, features, batch, outputs int,
	init *initwfn.InitWFn) *MLP {
	t.Helper()

	config := Config{
		Hidden:      []int{3},
		Biases:      []bool{true},
		Activations: []*Activation{ReLU()},
		Head:        TanH(),
	}
	sol, err := solver.NewVanilla(0.1, batch)
	if err != nil {
		t.Fatalf("could not create solver: %v", err)
	}

	m, err := NewMLP(features, batch, outputs, config, init, sol)
	if err != nil {
		t.Fatalf("could not create MLP: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func zeroes(t *testing.T) *initwfn.InitWFn {
	t.Helper()
	init, err := initwfn.NewZeroes()
	if err != nil {
		t.Fatalf("could not create initializer: %v", err)
	}
	return init
}

func TestPredictShapes(t *testing.T) {
	m := newTestMLP(t, 4, 2, 2, zeroes(t))

	// Zero weights and a tanh head predict exactly zero everywhere
	batch := mat.NewDense(2, 4, []float64{
		1, 2, 3, 4,
		5, 6, 7, 8,
	})
	out, err := m.Predict(batch)
	if err != nil {
		t.Fatalf("batch predict failed: %v", err)
	}
	rows, cols := out.Dims()
	if rows != 2 || cols != 2 {
		t.Fatalf("batch output is %vx%v, expected 2x2", rows, cols)
	}
	for r := 0; r < rows; r++ {
		for j := 0; j < cols; j++ {
			if out.At(r, j) != 0 {
				t.Errorf("output (%v, %v) = %v, expected 0", r, j,
					out.At(r, j))
			}
		}
	}

	// Row counts other than the batch size run row by row
	odd := mat.NewDense(3, 4, nil)
	out, err = m.Predict(odd)
	if err != nil {
		t.Fatalf("off-batch predict failed: %v", err)
	}
	rows, cols = out.Dims()
	if rows != 3 || cols != 2 {
		t.Errorf("off-batch output is %vx%v, expected 3x2", rows, cols)
	}

	if _, err := m.Predict(mat.NewDense(2, 5, nil)); err == nil {
		t.Error("predict with wrong feature count did not fail")
	}
}

func TestFitReducesLoss(t *testing.T) {
	m := newTestMLP(t, 4, 2, 2, zeroes(t))

	states := mat.NewDense(2, 4, []float64{
		1, 0, 0, 1,
		0, 1, 1, 0,
	})
	targets := mat.NewDense(2, 2, []float64{
		0.5, 0.5,
		0.5, 0.5,
	})

	// Zero weights predict zero, so the first MSE is exactly 0.25
	loss, err := m.Fit(states, targets)
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	if loss != 0.25 {
		t.Errorf("initial loss = %v, expected 0.25", loss)
	}

	for i := 0; i < 5; i++ {
		if _, err := m.Fit(states, targets); err != nil {
			t.Fatalf("fit %v failed: %v", i, err)
		}
	}
	final, err := m.Fit(states, targets)
	if err != nil {
		t.Fatalf("final fit failed: %v", err)
	}
	if final >= loss {
		t.Errorf("loss did not decrease: %v -> %v", loss, final)
	}

	if _, err := m.Fit(mat.NewDense(3, 4, nil),
		mat.NewDense(3, 2, nil)); err == nil {
		t.Error("fit with wrong batch size did not fail")
	}
}

func TestCloneMatchesSource(t *testing.T) {
	init, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		t.Fatalf("could not create initializer: %v", err)
	}
	m := newTestMLP(t, 4, 2, 2, init)

	cloned, err := m.Clone()
	if err != nil {
		t.Fatalf("could not clone: %v", err)
	}
	clone := cloned.(*MLP)
	defer clone.Close()

	states := mat.NewDense(2, 4, []float64{
		0.1, -0.3, 0.7, 0.2,
		-0.5, 0.4, -0.1, 0.9,
	})
	want, err := m.Predict(states)
	if err != nil {
		t.Fatalf("source predict failed: %v", err)
	}
	got, err := clone.Predict(states)
	if err != nil {
		t.Fatalf("clone predict failed: %v", err)
	}

	if !mat.EqualApprox(want, got, 1e-15) {
		t.Errorf("clone predictions differ from source:\n%v\n%v",
			mat.Formatted(want), mat.Formatted(got))
	}
}

func TestPolyak(t *testing.T) {
	online := newTestMLP(t, 4, 2, 2, zeroes(t))

	constant, err := initwfn.NewConstant(0.5)
	if err != nil {
		t.Fatalf("could not create initializer: %v", err)
	}
	target := newTestMLP(t, 4, 2, 2, constant)

	states := mat.NewDense(2, 4, []float64{
		0.2, 0.4, -0.1, 0.3,
		-0.2, 0.1, 0.5, -0.4,
	})
	before, err := target.Predict(states)
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}

	// tau=0 leaves the target untouched
	if err := target.Polyak(online, 0); err != nil {
		t.Fatalf("tau=0 update failed: %v", err)
	}
	after, err := target.Predict(states)
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if !mat.EqualApprox(before, after, 1e-15) {
		t.Error("tau=0 changed the target's predictions")
	}

	// tau=1 makes the target exactly the online network
	if err := target.Polyak(online, 1); err != nil {
		t.Fatalf("tau=1 update failed: %v", err)
	}
	onlineNodes := online.trainNet.Learnables()
	targetNodes := target.trainNet.Learnables()
	for i := range targetNodes {
		want := onlineNodes[i].Value().Data().([]float64)
		got := targetNodes[i].Value().Data().([]float64)
		for j := range want {
			if want[j] != got[j] {
				t.Fatalf("weight %v element %v = %v, expected %v", i, j,
					got[j], want[j])
			}
		}
	}
}

func TestNewMLPValidation(t *testing.T) {
	init := zeroes(t)
	sol, err := solver.NewVanilla(0.1, 2)
	if err != nil {
		t.Fatalf("could not create solver: %v", err)
	}

	bad := NewConfig()
	bad.Activations = bad.Activations[:1]
	if _, err := NewMLP(4, 2, 2, bad, init, sol); err == nil {
		t.Error("mismatched activations did not fail")
	}

	if _, err := NewMLP(0, 2, 2, NewConfig(), init, sol); err == nil {
		t.Error("zero features did not fail")
	}
	if _, err := NewMLP(4, 2, 2, NewConfig(), nil, sol); err == nil {
		t.Error("nil initializer did not fail")
	}
	if _, err := NewMLP(4, 2, 2, NewConfig(), init, nil); err == nil {
		t.Error("nil solver did not fail")
	}
}

func TestActivationJSON(t *testing.T) {
	for _, act := range []*Activation{ReLU(), TanH(), Identity(), Nil()} {
		encoded, err := json.Marshal(act)
		if err != nil {
			t.Fatalf("could not marshal %v: %v", act, err)
		}

		decoded := new(Activation)
		if err := json.Unmarshal(encoded, decoded); err != nil {
			t.Fatalf("could not unmarshal %v: %v", act, err)
		}
		if decoded.String() != act.String() {
			t.Errorf("roundtrip of %v produced %v", act, decoded)
		}
	}

	decoded := new(Activation)
	if err := json.Unmarshal([]byte(`"sigmoid"`), decoded); err == nil {
		t.Error("unknown activation did not fail to unmarshal")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := NewConfig().Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}

	config := NewConfig()
	config.Hidden[0] = 0
	if err := config.Validate(); err == nil {
		t.Error("zero-unit hidden layer did not fail")
	}

	config = NewConfig()
	config.Head = nil
	if err := config.Validate(); err == nil {
		t.Error("missing head activation did not fail")
	}
}

func TestTanHHeadBoundsOutputs(t *testing.T) {
	init, err := initwfn.NewConstant(2.0)
	if err != nil {
		t.Fatalf("could not create initializer: %v", err)
	}
	m := newTestMLP(t, 4, 2, 2, init)

	states := mat.NewDense(2, 4, []float64{
		3, 3, 3, 3,
		-3, -3, -3, -3,
	})
	out, err := m.Predict(states)
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	rows, cols := out.Dims()
	for r := 0; r < rows; r++ {
		for j := 0; j < cols; j++ {
			if v := out.At(r, j); math.Abs(v) > 1 {
				t.Errorf("output (%v, %v) = %v outside [-1, 1]", r, j, v)
			}
		}
	}
}
