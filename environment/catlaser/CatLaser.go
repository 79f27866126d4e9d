// Package catlaser implements the cat-and-laser play environment. A
// robotic laser pointer moves inside a rectangular play area while a
// simulated cat reacts to it; the agent controls the laser and is
// rewarded for keeping the cat engaged away from walls and corners.
package catlaser

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/playmeow/playmeow/environment"
	"github.com/playmeow/playmeow/timestep"
	"github.com/playmeow/playmeow/utils/floatutils"
)

const (
	ActionDims      int = 2
	MinAction           = -1.0
	MaxAction           = 1.0

	// LaserSpeedScale converts a unit action into the maximum laser
	// displacement per step
	LaserSpeedScale = 0.1

	// Interest dynamics. Interest rises while the cat is engaged and
	// decays otherwise, clamped to [0, 1].
	InterestGain  = 0.05
	InterestDecay = 0.01

	// EngagementInterestGate is the minimum interest level at which
	// the cat will engage with a nearby laser
	EngagementInterestGate = 0.3

	// Session termination thresholds
	SessionCompleteSteps    = 100
	SessionCompleteInterest = 0.6
	SessionAbandonInterest  = 0.2

	// BoundaryMargin is the wall distance below which cats slow down,
	// are repelled, and generate a reward penalty
	BoundaryMargin = 0.25

	// CornerRadius is the corner distance below which the corner
	// penalty applies
	CornerRadius = 0.35

	// Reward terms
	engagedReward    = 0.1
	disengagedReward = -0.2
	completeReward   = 0.4
	abandonedReward  = -0.3
	proximityReward  = 0.01
	proximityMin     = 0.2
	proximityMax     = 1.0
	boundaryPenalty  = 0.05
	cornerPenalty    = 0.1

	// Laser start distance from the cat on Reset
	minStartRadius = 0.5
	maxStartRadius = 1.0
)

// CatLaser implements the cat-and-laser environment. All sampling is
// drawn from a single seeded source so runs are reproducible.
//
// CatLaser implements environment.Environment.
type CatLaser struct {
	config   Config
	xBounds  r1.Interval
	zBounds  r1.Interval
	discount float64

	catStarter environment.UniformStarter
	stepLimit  environment.StepLimit
	rng        *rand.Rand
	noise      distuv.Normal // direction noise in the cat policy
	impulse    distuv.Normal // sudden-movement impulses
	angleJit   distuv.Normal // center-bias angle jitter near walls

	catX, catZ     float64
	laserX, laserZ float64
	velX, velZ     float64

	engaged             bool
	timeSinceEngagement int
	playDuration        int
	interest            float64
	episodeSteps        int

	active   bool
	lastStep timestep.TimeStep
	lastInfo Info
}

// New creates a new CatLaser environment with the given configuration.
// All randomness for the run is derived from seed.
func New(config Config, seed uint64) (*CatLaser, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: invalid configuration: %v", err)
	}

	xBounds := r1.Interval{Min: config.Bounds[0], Max: config.Bounds[1]}
	zBounds := r1.Interval{Min: config.Bounds[2], Max: config.Bounds[3]}

	src := rand.NewSource(seed)
	starter := environment.NewUniformStarter(
		[]r1.Interval{xBounds, zBounds},
		src,
	)

	return &CatLaser{
		config:     config,
		xBounds:    xBounds,
		zBounds:    zBounds,
		discount:   config.Discount,
		catStarter: starter,
		stepLimit:  environment.NewStepLimit(config.MaxEpisodeSteps),
		rng:        rand.New(src),
		noise:      distuv.Normal{Mu: 0, Sigma: directionNoiseStddev, Src: src},
		impulse:    distuv.Normal{Mu: 0, Sigma: impulseStddev, Src: src},
		angleJit:   distuv.Normal{Mu: 0, Sigma: math.Pi / 4, Src: src},
		interest:   1.0,
	}, nil
}

// Reset begins a new episode. The cat starts uniformly within bounds
// and the laser starts at a random angle and distance from the cat,
// clamped into bounds.
func (c *CatLaser) Reset() timestep.TimeStep {
	start := c.catStarter.Start()
	c.catX, c.catZ = start.AtVec(0), start.AtVec(1)

	angle := c.rng.Float64() * 2 * math.Pi
	radius := c.uniform(minStartRadius, maxStartRadius)
	c.laserX = floatutils.ClipInterval(c.catX+radius*math.Cos(angle), c.xBounds)
	c.laserZ = floatutils.ClipInterval(c.catZ+radius*math.Sin(angle), c.zBounds)

	c.velX, c.velZ = 0, 0
	c.engaged = false
	c.timeSinceEngagement = 0
	c.playDuration = 0
	c.interest = 1.0
	c.episodeSteps = 0
	c.lastInfo = Info{InterestLevel: 1.0}

	c.lastStep = timestep.New(timestep.First, 0, c.discount,
		c.observation().Vector(), 0)
	c.active = true

	return c.lastStep
}

// Step advances the environment by one timestep. The action is the
// desired laser displacement as a unit-scaled 2-vector; components are
// clipped to [MinAction, MaxAction] before being scaled. Stepping a
// finished or un-reset environment is an error, as is a non-finite
// action.
func (c *CatLaser) Step(action mat.Vector) (timestep.TimeStep, bool, error) {
	if !c.active {
		if c.lastStep.Last() {
			return timestep.TimeStep{}, true, fmt.Errorf("step: episode " +
				"has ended, Reset must be called")
		}
		return timestep.TimeStep{}, true, fmt.Errorf("step: Reset must be " +
			"called before Step")
	}
	ax, az, err := validAction(action)
	if err != nil {
		return timestep.TimeStep{}, false, err
	}

	c.episodeSteps++

	// Move the laser and clamp into bounds
	c.laserX = floatutils.ClipInterval(c.laserX+ax*LaserSpeedScale, c.xBounds)
	c.laserZ = floatutils.ClipInterval(c.laserZ+az*LaserSpeedScale, c.zBounds)

	c.updateCat()

	// Engagement requires proximity and a sufficiently interested cat
	distance := math.Hypot(c.catX-c.laserX, c.catZ-c.laserZ)
	c.engaged = distance < c.config.EngagementThreshold &&
		c.interest > EngagementInterestGate

	if c.engaged {
		c.timeSinceEngagement = 0
		c.interest = math.Min(1.0, c.interest+InterestGain)
	} else {
		c.timeSinceEngagement++
		c.interest = math.Max(0.0, c.interest-InterestDecay)
	}

	c.playDuration++

	complete := c.playDuration >= SessionCompleteSteps &&
		c.interest > SessionCompleteInterest
	abandoned := c.interest < SessionAbandonInterest

	reward := c.reward(distance, complete, abandoned)

	step := timestep.New(timestep.Mid, reward, c.discount,
		c.observation().Vector(), c.episodeSteps)
	if complete || abandoned {
		step.StepType = timestep.Last
		step.SetEnd(timestep.TerminalStateReached)
	} else {
		c.stepLimit.End(&step)
	}

	c.lastInfo = Info{
		DistanceToCat:    distance,
		Engagement:       c.engaged,
		InterestLevel:    c.interest,
		SessionComplete:  complete,
		SessionAbandoned: abandoned,
	}
	c.lastStep = step
	if step.Last() {
		c.active = false
	}

	return step, step.Last(), nil
}

// reward computes the per-step reward against the post-update state
func (c *CatLaser) reward(distance float64, complete, abandoned bool) float64 {
	var reward float64

	if c.engaged {
		reward += engagedReward
	} else {
		reward += disengagedReward
	}

	if complete {
		reward += completeReward
	} else if abandoned {
		reward += abandonedReward
	}

	if distance >= proximityMin && distance <= proximityMax {
		reward += proximityReward
	}

	// Penalize play near walls
	minWallDist := floatutils.Min(
		c.catX-c.xBounds.Min,
		c.xBounds.Max-c.catX,
		c.catZ-c.zBounds.Min,
		c.zBounds.Max-c.catZ,
	)
	if minWallDist < BoundaryMargin {
		reward -= boundaryPenalty * (1.0 - minWallDist/BoundaryMargin)
	}

	// Penalize play in corners, using the nearest corner only
	cornerDist := math.Inf(1)
	for _, x := range []float64{c.xBounds.Min, c.xBounds.Max} {
		for _, z := range []float64{c.zBounds.Min, c.zBounds.Max} {
			cornerDist = math.Min(cornerDist,
				math.Hypot(c.catX-x, c.catZ-z))
		}
	}
	if cornerDist < CornerRadius {
		reward -= cornerPenalty * (1.0 - cornerDist/CornerRadius)
	}

	return reward
}

// validAction validates and clips an action's components
func validAction(action mat.Vector) (float64, float64, error) {
	if action == nil || action.Len() != ActionDims {
		return 0, 0, fmt.Errorf("step: actions must be %v-dimensional",
			ActionDims)
	}
	ax, az := action.AtVec(0), action.AtVec(1)
	if math.IsNaN(ax) || math.IsNaN(az) || math.IsInf(ax, 0) ||
		math.IsInf(az, 0) {
		return 0, 0, fmt.Errorf("step: invalid action (%v, %v): components "+
			"must be finite", ax, az)
	}
	return floatutils.Clip(ax, MinAction, MaxAction),
		floatutils.Clip(az, MinAction, MaxAction), nil
}

// uniform samples uniformly from [min, max)
func (c *CatLaser) uniform(min, max float64) float64 {
	return min + c.rng.Float64()*(max-min)
}

// LastTimeStep returns the last TimeStep that occurred in the
// environment
func (c *CatLaser) LastTimeStep() timestep.TimeStep {
	return c.lastStep
}

// LastInfo returns the diagnostics computed during the last Step
func (c *CatLaser) LastInfo() Info {
	return c.lastInfo
}

// CatPosition returns the cat's current position
func (c *CatLaser) CatPosition() (x, z float64) {
	return c.catX, c.catZ
}

// LaserPosition returns the laser's current position
func (c *CatLaser) LaserPosition() (x, z float64) {
	return c.laserX, c.laserZ
}

// InterestLevel returns the cat's current interest level
func (c *CatLaser) InterestLevel() float64 {
	return c.interest
}

// ObservationSpec returns the observation specification of the
// environment
func (c *CatLaser) ObservationSpec() environment.Spec {
	shape := mat.NewVecDense(ObservationDims, nil)

	xWidth := c.xBounds.Max - c.xBounds.Min
	zWidth := c.zBounds.Max - c.zBounds.Min
	inf := math.Inf(1)

	lowerBound := mat.NewVecDense(ObservationDims, []float64{
		-xWidth, -zWidth, -inf, -inf, 0, -math.Pi, 0, 0, 0, 0,
	})
	upperBound := mat.NewVecDense(ObservationDims, []float64{
		xWidth, zWidth, inf, inf, inf, math.Pi, 1, inf, xWidth / 2,
		zWidth / 2,
	})

	return environment.NewSpec(shape, environment.Observation, lowerBound,
		upperBound, environment.Continuous)
}

// ActionSpec returns the action specification of the environment
func (c *CatLaser) ActionSpec() environment.Spec {
	shape := mat.NewVecDense(ActionDims, nil)
	lowerBound := mat.NewVecDense(ActionDims, []float64{MinAction, MinAction})
	upperBound := mat.NewVecDense(ActionDims, []float64{MaxAction, MaxAction})

	return environment.NewSpec(shape, environment.Action, lowerBound,
		upperBound, environment.Continuous)
}

// DiscountSpec returns the discount specification of the environment
func (c *CatLaser) DiscountSpec() environment.Spec {
	shape := mat.NewVecDense(1, nil)
	bound := mat.NewVecDense(1, []float64{c.discount})

	return environment.NewSpec(shape, environment.Discount, bound, bound,
		environment.Continuous)
}

// RewardSpec returns the reward specification of the environment
func (c *CatLaser) RewardSpec() environment.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{
		disengagedReward + abandonedReward - boundaryPenalty - cornerPenalty,
	})
	upperBound := mat.NewVecDense(1, []float64{
		engagedReward + completeReward + proximityReward,
	})

	return environment.NewSpec(shape, environment.Reward, lowerBound,
		upperBound, environment.Continuous)
}

// String converts the environment to a string representation
func (c *CatLaser) String() string {
	str := "CatLaser  |  cat: (%.2f, %.2f)  |  laser: (%.2f, %.2f)  |  " +
		"interest: %.2f"
	return fmt.Sprintf(str, c.catX, c.catZ, c.laserX, c.laserZ, c.interest)
}
