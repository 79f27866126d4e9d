package catlaser

import (
	"fmt"
	"math"
)

// Config describes a cat-and-laser environment. A Config is constructed
// once and passed by value into New; the environment holds no ambient
// global settings.
type Config struct {
	// Bounds of the rectangular play area: MinX, MaxX, MinZ, MaxZ
	Bounds [4]float64

	// CatSpeedRange is the [min, max] speed of the simulated cat
	CatSpeedRange [2]float64

	// EngagementThreshold is the cat-laser distance below which the
	// cat can engage with the laser
	EngagementThreshold float64

	// MaxEpisodeSteps limits the episode length
	MaxEpisodeSteps int

	// Discount is reported on every timestep
	Discount float64
}

// NewConfig returns a Config with the default environment parameters
func NewConfig() Config {
	return Config{
		Bounds:              [4]float64{-2.0, 2.0, -2.0, 2.0},
		CatSpeedRange:       [2]float64{0.1, 0.8},
		EngagementThreshold: 0.3,
		MaxEpisodeSteps:     300,
		Discount:            0.99,
	}
}

// Validate checks that a Config describes a legal environment
func (c Config) Validate() error {
	for _, bound := range c.Bounds {
		if math.IsNaN(bound) || math.IsInf(bound, 0) {
			return fmt.Errorf("validate: bounds must be finite, have %v",
				c.Bounds)
		}
	}
	if c.Bounds[0] >= c.Bounds[1] {
		return fmt.Errorf("validate: x bounds are empty: [%v, %v]",
			c.Bounds[0], c.Bounds[1])
	}
	if c.Bounds[2] >= c.Bounds[3] {
		return fmt.Errorf("validate: z bounds are empty: [%v, %v]",
			c.Bounds[2], c.Bounds[3])
	}
	if c.CatSpeedRange[0] < 0 || c.CatSpeedRange[1] < c.CatSpeedRange[0] {
		return fmt.Errorf("validate: illegal cat speed range %v",
			c.CatSpeedRange)
	}
	if c.EngagementThreshold < 0 {
		return fmt.Errorf("validate: engagement threshold must be "+
			"non-negative, have %v", c.EngagementThreshold)
	}
	if c.MaxEpisodeSteps < 1 {
		return fmt.Errorf("validate: episodes must allow at least one "+
			"step, have %v", c.MaxEpisodeSteps)
	}
	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("validate: discount must be in [0, 1], have %v",
			c.Discount)
	}
	return nil
}
