package catlaser

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// ObservationDims is the number of scalar features in an Observation
const ObservationDims int = 10

// DefaultWindow is the default window length the observation is tiled
// across when converted for a windowed function approximator
const DefaultWindow int = 10

// Observation is the state the environment exposes to an agent. Fields
// are named so that feature ordering mistakes cannot silently occur;
// Vector flattens the fields in their canonical order.
type Observation struct {
	// Cat position relative to the laser
	RelX, RelZ float64

	// Cat velocity
	VelX, VelZ float64

	// Cat speed and heading angle
	Speed   float64
	Heading float64

	// Engaged is 1 if the cat is currently engaged with the laser,
	// 0 otherwise
	Engaged float64

	// TimeSinceEngagement is normalized by 100 steps
	TimeSinceEngagement float64

	// Minimum distance from the laser to each boundary axis
	BoundaryDistX, BoundaryDistZ float64
}

// Vector flattens the observation into its canonical feature order
func (o Observation) Vector() *mat.VecDense {
	return mat.NewVecDense(ObservationDims, []float64{
		o.RelX,
		o.RelZ,
		o.VelX,
		o.VelZ,
		o.Speed,
		o.Heading,
		o.Engaged,
		o.TimeSinceEngagement,
		o.BoundaryDistX,
		o.BoundaryDistZ,
	})
}

// Info exposes diagnostic values computed during the last Step
type Info struct {
	DistanceToCat    float64
	Engagement       bool
	InterestLevel    float64
	SessionComplete  bool
	SessionAbandoned bool
}

// observation assembles the current Observation from environment state
func (c *CatLaser) observation() Observation {
	speed := math.Hypot(c.velX, c.velZ)

	// Heading of the unit velocity vector; zero velocity is
	// special-cased to a zero heading instead of dividing by zero
	var heading float64
	if speed > 0 {
		heading = math.Atan2(c.velZ/speed, c.velX/speed)
	}

	engaged := 0.0
	if c.engaged {
		engaged = 1.0
	}

	return Observation{
		RelX:                c.catX - c.laserX,
		RelZ:                c.catZ - c.laserZ,
		VelX:                c.velX,
		VelZ:                c.velZ,
		Speed:               speed,
		Heading:             heading,
		Engaged:             engaged,
		TimeSinceEngagement: float64(c.timeSinceEngagement) / 100.0,
		BoundaryDistX: math.Min(c.laserX-c.xBounds.Min,
			c.xBounds.Max-c.laserX),
		BoundaryDistZ: math.Min(c.laserZ-c.zBounds.Min,
			c.zBounds.Max-c.laserZ),
	}
}
