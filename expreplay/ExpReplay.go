// Package expreplay implements experience replay buffers
package expreplay

import (
	"fmt"
	"sync"

	"golang.org/x/exp/rand"

	"github.com/playmeow/playmeow/timestep"
)

// ExperienceReplayer implements a bounded experience replay buffer.
// Implementations are safe for concurrent use so that a training
// goroutine can insert while an observer polls.
type ExperienceReplayer interface {
	// Add adds a transition to the buffer, evicting the oldest
	// transition first when the buffer is at capacity
	Add(t timestep.Transition) error

	// Sample draws a batch of transitions uniformly at random without
	// replacement. The states, actions and next states are returned as
	// flat row-major batches.
	Sample() (states, actions, rewards, nextStates []float64,
		dones []bool, err error)

	// Capacity returns the current number of samples in the buffer
	Capacity() int

	// MaxCapacity returns the maximum allowable samples in the buffer
	MaxCapacity() int

	// BatchSize returns the number of samples returned by Sample()
	BatchSize() int
}

// Config implements a specific configuration of an ExperienceReplayer
type Config struct {
	MaxCapacity int
	BatchSize   int
}

// Create creates and returns the ExperienceReplayer with the specified
// Config.
func (c Config) Create(featureSize, actionSize int,
	seed uint64) (ExperienceReplayer, error) {
	return New(c.MaxCapacity, c.BatchSize, featureSize, actionSize, seed)
}

// cache implements a concrete ExperienceReplayer as a ring of flat
// float64 caches. Insertion order is tracked by the ring itself:
// logical index 0 is always the oldest transition.
type cache struct {
	mu sync.Mutex

	stateCache     []float64
	actionCache    []float64
	rewardCache    []float64
	nextStateCache []float64
	doneCache      []bool

	front int // physical index of the oldest transition
	size  int

	maxCapacity int
	batchSize   int
	featureSize int
	actionSize  int

	rng *rand.Rand
}

// New creates and returns a new ExperienceReplayer with strict FIFO
// eviction and uniform sampling without replacement. The featureSize
// and actionSize parameters define the size of the state and action
// vectors stored in the buffer.
func New(maxCapacity, batchSize, featureSize,
	actionSize int, seed uint64) (ExperienceReplayer, error) {
	if maxCapacity < 1 {
		return nil, fmt.Errorf("new: maxCapacity must be >= 1")
	}
	if batchSize < 1 {
		return nil, fmt.Errorf("new: batchSize must be >= 1")
	}
	if maxCapacity < batchSize {
		return nil, fmt.Errorf("new: cannot have batch size (%v) > max "+
			"buffer capacity (%v)", batchSize, maxCapacity)
	}
	if featureSize < 1 || actionSize < 1 {
		return nil, fmt.Errorf("new: feature size (%v) and action size "+
			"(%v) must be positive", featureSize, actionSize)
	}

	return &cache{
		stateCache:     make([]float64, maxCapacity*featureSize),
		actionCache:    make([]float64, maxCapacity*actionSize),
		rewardCache:    make([]float64, maxCapacity),
		nextStateCache: make([]float64, maxCapacity*featureSize),
		doneCache:      make([]bool, maxCapacity),

		maxCapacity: maxCapacity,
		batchSize:   batchSize,
		featureSize: featureSize,
		actionSize:  actionSize,

		rng: rand.New(rand.NewSource(seed)),
	}, nil
}

// Add adds a transition to the cache, evicting the oldest transition
// when the cache is full
func (c *cache) Add(t timestep.Transition) error {
	if t.State == nil || t.State.Len() != c.featureSize ||
		t.NextState == nil || t.NextState.Len() != c.featureSize {
		return fmt.Errorf("add: invalid feature size \n\twant(%v)",
			c.featureSize)
	}
	if t.Action == nil || t.Action.Len() != c.actionSize {
		return fmt.Errorf("add: invalid action size \n\twant(%v)\n\thave"+
			"(%v)", c.actionSize, t.Action)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	index := (c.front + c.size) % c.maxCapacity
	if c.size == c.maxCapacity {
		// Overwrite the oldest transition
		index = c.front
		c.front = (c.front + 1) % c.maxCapacity
	} else {
		c.size++
	}

	stateInd := index * c.featureSize
	actionInd := index * c.actionSize
	for i := 0; i < c.featureSize; i++ {
		c.stateCache[stateInd+i] = t.State.AtVec(i)
		c.nextStateCache[stateInd+i] = t.NextState.AtVec(i)
	}
	for i := 0; i < c.actionSize; i++ {
		c.actionCache[actionInd+i] = t.Action.AtVec(i)
	}
	c.rewardCache[index] = t.Reward
	c.doneCache[index] = t.Done

	return nil
}

// Sample draws BatchSize transitions uniformly without replacement
func (c *cache) Sample() ([]float64, []float64, []float64, []float64,
	[]bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.size == 0 {
		return nil, nil, nil, nil, nil, &ExpReplayError{
			Op:  "sample",
			Err: errEmptyCache,
		}
	}
	if c.size < c.batchSize {
		return nil, nil, nil, nil, nil, &ExpReplayError{
			Op:  "sample",
			Err: errInsufficientSamples,
		}
	}

	indices := c.rng.Perm(c.size)[:c.batchSize]

	states := make([]float64, c.batchSize*c.featureSize)
	actions := make([]float64, c.batchSize*c.actionSize)
	rewards := make([]float64, c.batchSize)
	nextStates := make([]float64, c.batchSize*c.featureSize)
	dones := make([]bool, c.batchSize)

	for i, logical := range indices {
		index := (c.front + logical) % c.maxCapacity

		stateInd := index * c.featureSize
		copy(states[i*c.featureSize:(i+1)*c.featureSize],
			c.stateCache[stateInd:stateInd+c.featureSize])
		copy(nextStates[i*c.featureSize:(i+1)*c.featureSize],
			c.nextStateCache[stateInd:stateInd+c.featureSize])

		actionInd := index * c.actionSize
		copy(actions[i*c.actionSize:(i+1)*c.actionSize],
			c.actionCache[actionInd:actionInd+c.actionSize])

		rewards[i] = c.rewardCache[index]
		dones[i] = c.doneCache[index]
	}

	return states, actions, rewards, nextStates, dones, nil
}

// Capacity returns the current number of elements in the cache that
// are available for sampling
func (c *cache) Capacity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// MaxCapacity returns the maximum number of elements that are allowed
// in the cache
func (c *cache) MaxCapacity() int {
	return c.maxCapacity
}

// BatchSize returns the number of samples sampled using Sample()
func (c *cache) BatchSize() int {
	return c.batchSize
}

// rewardAt returns the reward of the transition at a logical index,
// with logical index 0 being the oldest transition. Used by tests to
// verify insertion order.
func (c *cache) rewardAt(logical int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rewardCache[(c.front+logical)%c.maxCapacity]
}
