// Package network implements gorgonia-backed feed forward neural
// networks for approximating laser movement policies.
package network

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/playmeow/playmeow/agent"
	"github.com/playmeow/playmeow/initwfn"
	"github.com/playmeow/playmeow/solver"
)

// Config describes the architecture of an MLP. For index i, Hidden[i]
// is the number of units in hidden layer i, Biases[i] is whether that
// layer has a bias unit, and Activations[i] is its activation
// function. Head is the activation of the output layer, which always
// has a bias unit.
type Config struct {
	Hidden      []int
	Biases      []bool
	Activations []*Activation
	Head        *Activation
}

// NewConfig returns the default architecture: three ReLU hidden
// layers and a tanh head bounding outputs to [-1, 1]
func NewConfig() Config {
	return Config{
		Hidden:      []int{128, 256, 128},
		Biases:      []bool{true, true, true},
		Activations: []*Activation{ReLU(), ReLU(), ReLU()},
		Head:        TanH(),
	}
}

// Validate ensures that the Config is valid
func (c Config) Validate() error {
	if len(c.Hidden) != len(c.Activations) {
		return fmt.Errorf("invalid number of activations\n\twant(%v)"+
			"\n\thave(%v)", len(c.Hidden), len(c.Activations))
	}
	if len(c.Hidden) != len(c.Biases) {
		return fmt.Errorf("invalid number of biases\n\twant(%v)"+
			"\n\thave(%v)", len(c.Hidden), len(c.Biases))
	}
	for i, size := range c.Hidden {
		if size < 1 {
			return fmt.Errorf("hidden layer %v has %v units", i, size)
		}
	}
	if c.Head == nil {
		return fmt.Errorf("no head activation")
	}
	return nil
}

// feedForward holds one forward pass of an MLP on its own
// computational graph at a fixed batch size
type feedForward struct {
	g      *G.ExprGraph
	layers []Layer
	input  *G.Node

	batchSize int
	features  int
	outputs   int

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// newFeedForward creates a feed forward network on a fresh graph. The
// output layer is appended to the hidden layers described by config.
func newFeedForward(features, batch, outputs int, config Config,
	init G.InitWFn) (*feedForward, error) {
	g := G.NewGraph()
	input := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, features),
		G.WithName("input"),
		G.WithInit(G.Zeroes()),
	)

	sizes := append([]int{}, config.Hidden...)
	sizes = append(sizes, outputs)
	biases := append([]bool{}, config.Biases...)
	biases = append(biases, true)
	activations := append([]*Activation{}, config.Activations...)
	activations = append(activations, config.Head)

	net := &feedForward{
		g:         g,
		layers:    addfcLayers(g, sizes, biases, activations, init, features),
		input:     input,
		batchSize: batch,
		features:  features,
		outputs:   outputs,
	}
	if err := net.fwd(); err != nil {
		return nil, err
	}
	return net, nil
}

// cloneWithBatch clones the network to a fresh graph with a new input
// batch size, keeping the current weight values
func (f *feedForward) cloneWithBatch(batch int) (*feedForward, error) {
	g := G.NewGraph()
	input := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, f.features),
		G.WithName("input"),
		G.WithInit(G.Zeroes()),
	)

	layers := make([]Layer, len(f.layers))
	for i := range f.layers {
		layers[i] = f.layers[i].CloneTo(g)
	}

	net := &feedForward{
		g:         g,
		layers:    layers,
		input:     input,
		batchSize: batch,
		features:  f.features,
		outputs:   f.outputs,
	}
	if err := net.fwd(); err != nil {
		return nil, err
	}
	return net, nil
}

// fwd runs the forward pass of every layer on the input node and
// records the prediction node
func (f *feedForward) fwd() error {
	pred := f.input
	var err error
	for i, l := range f.layers {
		if pred, err = l.fwd(pred); err != nil {
			return fmt.Errorf("fwd: could not compute forward pass of "+
				"layer %v: %v", i, err)
		}
	}

	f.prediction = pred
	G.Read(f.prediction, &f.predVal)
	return nil
}

// SetInput sets the value of the input node before running the
// forward pass
func (f *feedForward) SetInput(input []float64) error {
	if len(input) != f.features*f.batchSize {
		return fmt.Errorf("setinput: invalid number of inputs"+
			"\n\twant(%v)\n\thave(%v)", f.features*f.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(f.input.Shape()...),
	)
	return G.Let(f.input, inputTensor)
}

// Set sets the network's weights to be equal to those of source
func (f *feedForward) Set(source *feedForward) error {
	sourceNodes := source.Learnables()
	nodes := f.Learnables()
	for i, learnable := range nodes {
		sourceLearnable := sourceNodes[i].Clone()
		err := G.Let(learnable, sourceLearnable.(*G.Node).Value())
		if err != nil {
			return err
		}
	}
	return nil
}

// Polyak sets the network's weights to a Polyak average between its
// existing weights and the weights of source
func (f *feedForward) Polyak(source *feedForward, tau float64) error {
	sourceNodes := source.Learnables()
	nodes := f.Learnables()
	for i := range nodes {
		weights := nodes[i].Value().(*tensor.Dense)
		sourceWeights := sourceNodes[i].Value().(*tensor.Dense)

		weights, err := weights.MulScalar(1-tau, true)
		if err != nil {
			return err
		}

		sourceWeights, err = sourceWeights.MulScalar(tau, true)
		if err != nil {
			return err
		}

		newWeights, err := weights.Add(sourceWeights)
		if err != nil {
			return err
		}

		if err := G.Let(nodes[i], newWeights); err != nil {
			return err
		}
	}
	return nil
}

// Learnables returns the learnable nodes of the network
func (f *feedForward) Learnables() G.Nodes {
	// Lazy instantiation
	if f.learnables == nil {
		learnables := make([]*G.Node, 0, 2*len(f.layers))
		for i := range f.layers {
			learnables = append(learnables, f.layers[i].Weights())
			if bias := f.layers[i].Bias(); bias != nil {
				learnables = append(learnables, bias)
			}
		}
		f.learnables = G.Nodes(learnables)
	}
	return f.learnables
}

// Model returns the learnable nodes with their gradients
func (f *feedForward) Model() []G.ValueGrad {
	// Lazy instantiation
	if f.model == nil {
		model := make([]G.ValueGrad, 0, 2*len(f.layers))
		for _, node := range f.Learnables() {
			model = append(model, node)
		}
		f.model = model
	}
	return f.model
}

// Output returns the value of the network's prediction node after the
// last forward pass
func (f *feedForward) Output() G.Value {
	return f.predVal
}

// MLP implements agent.Model with a gorgonia multi-layered perceptron
// trained by MSE loss toward caller-supplied targets.
//
// Three copies of the forward pass live on separate graphs sharing
// weight values: stepNet predicts for a single observation, predNet
// predicts for a full batch, and trainNet carries the loss and
// gradient nodes used to learn the weights. After every gradient step
// the learned weights are copied back to the two prediction networks.
type MLP struct {
	config       Config
	init         *initwfn.InitWFn
	solverConfig *solver.Solver

	stepNet *feedForward
	stepVM  G.VM

	predNet *feedForward
	predVM  G.VM

	trainNet *feedForward
	trainVM  G.VM
	solver   G.Solver

	targets *G.Node
	lossVal G.Value

	features  int
	batchSize int
	outputs   int
}

// NewMLP creates and returns a new MLP. The batchSize parameter fixes
// the number of rows accepted by Fit and by batch Predict calls.
func NewMLP(features, batchSize, outputs int, config Config,
	init *initwfn.InitWFn, sol *solver.Solver) (*MLP, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("newmlp: %v", err)
	}
	if features < 1 || batchSize < 1 || outputs < 1 {
		return nil, fmt.Errorf("newmlp: invalid dimensions %vx%vx%v",
			features, batchSize, outputs)
	}
	if init == nil || sol == nil {
		return nil, fmt.Errorf("newmlp: no weight initializer or solver")
	}

	trainNet, err := newFeedForward(features, batchSize, outputs, config,
		init.InitWFn())
	if err != nil {
		return nil, fmt.Errorf("newmlp: could not create training "+
			"network: %v", err)
	}
	stepNet, err := trainNet.cloneWithBatch(1)
	if err != nil {
		return nil, fmt.Errorf("newmlp: could not create step network: %v",
			err)
	}
	predNet, err := trainNet.cloneWithBatch(batchSize)
	if err != nil {
		return nil, fmt.Errorf("newmlp: could not create prediction "+
			"network: %v", err)
	}

	m := &MLP{
		config:       config,
		init:         init,
		solverConfig: sol,
		stepNet:      stepNet,
		predNet:      predNet,
		trainNet:     trainNet,
		solver:       sol.New(),
		features:     features,
		batchSize:    batchSize,
		outputs:      outputs,
	}

	// Mean squared error toward the target values
	gTrain := trainNet.g
	m.targets = G.NewMatrix(
		gTrain,
		tensor.Float64,
		G.WithShape(batchSize, outputs),
		G.WithName("targets"),
	)
	losses := G.Must(G.Sub(trainNet.prediction, m.targets))
	losses = G.Must(G.Square(losses))
	cost := G.Must(G.Mean(losses))
	G.Read(cost, &m.lossVal)

	if _, err := G.Grad(cost, trainNet.Learnables()...); err != nil {
		return nil, fmt.Errorf("newmlp: could not compute gradient: %v",
			err)
	}

	m.trainVM = G.NewTapeMachine(
		gTrain,
		G.BindDualValues(trainNet.Learnables()...),
	)
	m.stepVM = G.NewTapeMachine(stepNet.g)
	m.predVM = G.NewTapeMachine(predNet.g)

	return m, nil
}

// Predict computes the model output for each row of states. A batch
// with exactly the configured batch size runs in one forward pass;
// any other number of rows is predicted row by row.
func (m *MLP) Predict(states *mat.Dense) (*mat.Dense, error) {
	rows, cols := states.Dims()
	if cols != m.features {
		return nil, fmt.Errorf("predict: invalid number of features"+
			"\n\twant(%v)\n\thave(%v)", m.features, cols)
	}

	out := mat.NewDense(rows, m.outputs, nil)
	if rows == m.batchSize {
		if err := m.predNet.SetInput(flatten(states)); err != nil {
			return nil, fmt.Errorf("predict: could not set input: %v", err)
		}
		if err := m.predVM.RunAll(); err != nil {
			return nil, fmt.Errorf("predict: could not run graph: %v", err)
		}
		data := m.predNet.Output().Data().([]float64)
		for r := 0; r < rows; r++ {
			for j := 0; j < m.outputs; j++ {
				out.Set(r, j, data[r*m.outputs+j])
			}
		}
		m.predVM.Reset()
		return out, nil
	}

	for r := 0; r < rows; r++ {
		row := make([]float64, cols)
		copy(row, states.RawRowView(r))
		if err := m.stepNet.SetInput(row); err != nil {
			return nil, fmt.Errorf("predict: could not set input for "+
				"row %v: %v", r, err)
		}
		if err := m.stepVM.RunAll(); err != nil {
			return nil, fmt.Errorf("predict: could not run graph for "+
				"row %v: %v", r, err)
		}
		data := m.stepNet.Output().Data().([]float64)
		for j := 0; j < m.outputs; j++ {
			out.Set(r, j, data[j])
		}
		m.stepVM.Reset()
	}
	return out, nil
}

// Fit performs one solver step toward targets and returns the MSE
// loss before the update. Both arguments must have exactly batch size
// rows.
func (m *MLP) Fit(states, targets *mat.Dense) (float64, error) {
	rows, cols := states.Dims()
	if rows != m.batchSize || cols != m.features {
		return 0, fmt.Errorf("fit: states are %vx%v, expected %vx%v", rows,
			cols, m.batchSize, m.features)
	}
	tRows, tCols := targets.Dims()
	if tRows != m.batchSize || tCols != m.outputs {
		return 0, fmt.Errorf("fit: targets are %vx%v, expected %vx%v",
			tRows, tCols, m.batchSize, m.outputs)
	}

	if err := m.trainNet.SetInput(flatten(states)); err != nil {
		return 0, fmt.Errorf("fit: could not set input: %v", err)
	}
	targetTensor := tensor.New(
		tensor.WithBacking(flatten(targets)),
		tensor.WithShape(m.batchSize, m.outputs),
	)
	if err := G.Let(m.targets, targetTensor); err != nil {
		return 0, fmt.Errorf("fit: could not set targets: %v", err)
	}

	if err := m.trainVM.RunAll(); err != nil {
		return 0, fmt.Errorf("fit: could not run graph: %v", err)
	}
	loss := m.lossVal.Data().(float64)

	if err := m.solver.Step(m.trainNet.Model()); err != nil {
		return 0, fmt.Errorf("fit: could not step solver: %v", err)
	}
	m.trainVM.Reset()

	// Propagate the learned weights to the prediction networks
	if err := m.stepNet.Set(m.trainNet); err != nil {
		return 0, fmt.Errorf("fit: could not sync step network: %v", err)
	}
	if err := m.predNet.Set(m.trainNet); err != nil {
		return 0, fmt.Errorf("fit: could not sync prediction network: %v",
			err)
	}

	return loss, nil
}

// Clone returns a new MLP with the same architecture and the same
// weight values but a fresh solver
func (m *MLP) Clone() (agent.Model, error) {
	clone, err := NewMLP(m.features, m.batchSize, m.outputs, m.config,
		m.init, m.solverConfig)
	if err != nil {
		return nil, fmt.Errorf("clone: %v", err)
	}
	if err := clone.set(m); err != nil {
		return nil, fmt.Errorf("clone: could not copy weights: %v", err)
	}
	return clone, nil
}

// Polyak sets the receiver's weights to tau*source + (1-tau)*receiver.
// The source model must also be an MLP.
func (m *MLP) Polyak(source agent.Model, tau float64) error {
	src, ok := source.(*MLP)
	if !ok {
		return fmt.Errorf("polyak: source is %T, not an MLP", source)
	}

	// An exact copy at tau=1 avoids floating point residue from the
	// averaging arithmetic
	if tau == 1.0 {
		return m.set(src)
	}
	if err := m.trainNet.Polyak(src.trainNet, tau); err != nil {
		return err
	}
	return m.sync()
}

// Features returns the number of input features per row
func (m *MLP) Features() int {
	return m.features
}

// Outputs returns the number of outputs per row
func (m *MLP) Outputs() int {
	return m.outputs
}

// BatchSize returns the number of rows accepted by Fit
func (m *MLP) BatchSize() int {
	return m.batchSize
}

// Close frees the virtual machines of all three networks
func (m *MLP) Close() error {
	if err := m.stepVM.Close(); err != nil {
		return err
	}
	if err := m.predVM.Close(); err != nil {
		return err
	}
	return m.trainVM.Close()
}

// set copies the weight values of src into all three networks
func (m *MLP) set(src *MLP) error {
	if err := m.trainNet.Set(src.trainNet); err != nil {
		return err
	}
	return m.sync()
}

// sync copies the training network's weights to the prediction
// networks
func (m *MLP) sync() error {
	if err := m.stepNet.Set(m.trainNet); err != nil {
		return err
	}
	return m.predNet.Set(m.trainNet)
}

// flatten copies a dense matrix into a flat row-major backing slice
func flatten(d *mat.Dense) []float64 {
	rows, cols := d.Dims()
	data := make([]float64, rows*cols)
	for r := 0; r < rows; r++ {
		copy(data[r*cols:(r+1)*cols], d.RawRowView(r))
	}
	return data
}

var _ agent.Model = (*MLP)(nil)
