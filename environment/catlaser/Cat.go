package catlaser

import "math"

// Cat behavioral policy parameters. The cat is a hand-authored
// reactive controller, not a learned one.
const (
	// chaseRadius is the distance within which an interested cat sees
	// and chases the laser
	chaseRadius = 1.5

	// catchRadius is the distance at which the cat catches the laser
	// and darts off in a random direction
	catchRadius = 0.1

	// highInterestGate splits the randomness of the chase direction:
	// highly interested cats track the laser more tightly
	highInterestGate = 0.7

	directionNoiseStddev = 0.3
	impulseStddev        = 0.5

	// idleMoveProb is the per-step chance an uninterested cat wanders
	idleMoveProb = 0.1

	// impulseProb is the per-step chance of a sudden movement
	impulseProb = 0.01

	// friction decays the velocity of an uninterested cat
	friction = 0.9

	// Wall collision response: clamp inward by bounceOffset and
	// reflect the velocity component at half magnitude
	bounceOffset  = 0.01
	bounceDamping = 0.5

	// Speed scaling near walls and in corners
	wallSpeedFactor   = 0.8
	cornerSpeedFactor = 0.7
)

// updateCat advances the cat one step: pick a velocity from the
// reactive policy, maybe add a sudden impulse, then integrate the
// position with wall bounces.
func (c *CatLaser) updateCat() {
	vecX := c.laserX - c.catX
	vecZ := c.laserZ - c.catZ
	distance := math.Hypot(vecX, vecZ)

	var dirX, dirZ float64
	if distance > 0 {
		dirX, dirZ = vecX/distance, vecZ/distance
	}

	nearWallX := c.catX < c.xBounds.Min+BoundaryMargin ||
		c.catX > c.xBounds.Max-BoundaryMargin
	nearWallZ := c.catZ < c.zBounds.Min+BoundaryMargin ||
		c.catZ > c.zBounds.Max-BoundaryMargin
	nearWall := nearWallX || nearWallZ
	inCorner := nearWallX && nearWallZ

	if c.interest > EngagementInterestGate && distance < chaseRadius {
		if distance < catchRadius {
			// Caught the laser: dart off in a random direction
			angle := c.rng.Float64() * 2 * math.Pi
			speed := c.uniform(c.config.CatSpeedRange[0],
				c.config.CatSpeedRange[1])
			c.velX = math.Cos(angle) * speed
			c.velZ = math.Sin(angle) * speed
		} else {
			c.chase(dirX, dirZ, nearWall, inCorner)
		}
	} else {
		c.idle(nearWall)
	}

	// Cats sometimes just bolt, though never into a wall
	if c.rng.Float64() < impulseProb && !nearWall {
		c.velX += c.impulse.Rand()
		c.velZ += c.impulse.Rand()
	}

	c.integrate()
}

// chase blends three directional forces: the direction to the laser,
// Gaussian noise, and repulsion away from nearby walls. The blend
// weights depend on whether the cat is free, near one wall, or in a
// corner.
func (c *CatLaser) chase(dirX, dirZ float64, nearWall, inCorner bool) {
	var repX, repZ float64
	if nearWall {
		repX, repZ = c.wallRepulsion()
	}

	var randomFactor float64
	if c.interest > highInterestGate {
		randomFactor = c.uniform(0.7, 1.0)
	} else {
		randomFactor = c.uniform(0.3, 0.7)
	}
	noiseX := c.noise.Rand()
	noiseZ := c.noise.Rand()

	var repWeight, dirWeight, noiseWeight float64
	switch {
	case inCorner:
		repWeight, dirWeight, noiseWeight = 1.5, 0.5, 0.5
	case nearWall:
		repWeight, dirWeight, noiseWeight = 1.0, 0.7, 0.3
	default:
		repWeight, dirWeight, noiseWeight = 0.0, randomFactor,
			1.0-randomFactor
	}

	// Normalize the repulsion before blending, guarding the zero
	// vector
	repNorm := math.Hypot(repX, repZ)
	if repNorm > 0 {
		repX /= repNorm
		repZ /= repNorm
	}

	x := dirX*dirWeight + noiseX*noiseWeight + repX*repWeight
	z := dirZ*dirWeight + noiseZ*noiseWeight + repZ*repWeight
	norm := math.Hypot(x, z)
	if norm > 0 {
		x /= norm
		z /= norm
	}

	positionFactor := 1.0
	if nearWall {
		positionFactor = wallSpeedFactor
	}
	if inCorner {
		positionFactor = cornerSpeedFactor
	}

	baseSpeed := c.uniform(c.config.CatSpeedRange[0], c.config.CatSpeedRange[1])
	speed := baseSpeed * c.interest * positionFactor
	c.velX = x * speed
	c.velZ = z * speed
}

// wallRepulsion sums per-wall repulsion terms, each scaled by
// proximity to its wall
func (c *CatLaser) wallRepulsion() (float64, float64) {
	var repX, repZ float64

	if d := c.catX - c.xBounds.Min; d < BoundaryMargin {
		repX += 1.0 - d/BoundaryMargin
	}
	if d := c.xBounds.Max - c.catX; d < BoundaryMargin {
		repX -= 1.0 - d/BoundaryMargin
	}
	if d := c.catZ - c.zBounds.Min; d < BoundaryMargin {
		repZ += 1.0 - d/BoundaryMargin
	}
	if d := c.zBounds.Max - c.catZ; d < BoundaryMargin {
		repZ -= 1.0 - d/BoundaryMargin
	}

	return repX, repZ
}

// idle handles the uninterested cat: an occasional low-speed wander,
// biased toward the center of the play area when near a wall,
// otherwise friction.
func (c *CatLaser) idle(nearWall bool) {
	if c.rng.Float64() < idleMoveProb {
		var angle float64
		if nearWall {
			centerX := (c.xBounds.Min + c.xBounds.Max) / 2
			centerZ := (c.zBounds.Min + c.zBounds.Max) / 2
			angle = math.Atan2(centerZ-c.catZ, centerX-c.catX) +
				c.angleJit.Rand()
		} else {
			angle = c.rng.Float64() * 2 * math.Pi
		}
		speed := c.uniform(0, c.config.CatSpeedRange[0])
		c.velX = math.Cos(angle) * speed
		c.velZ = math.Sin(angle) * speed
	} else {
		c.velX *= friction
		c.velZ *= friction
	}
}

// integrate applies the velocity to the cat's position, bouncing off
// walls with an inward offset and half the energy
func (c *CatLaser) integrate() {
	newX := c.catX + c.velX
	newZ := c.catZ + c.velZ

	if newX < c.xBounds.Min {
		newX = c.xBounds.Min + bounceOffset
		c.velX = math.Abs(c.velX) * bounceDamping
	} else if newX > c.xBounds.Max {
		newX = c.xBounds.Max - bounceOffset
		c.velX = -math.Abs(c.velX) * bounceDamping
	}

	if newZ < c.zBounds.Min {
		newZ = c.zBounds.Min + bounceOffset
		c.velZ = math.Abs(c.velZ) * bounceDamping
	} else if newZ > c.zBounds.Max {
		newZ = c.zBounds.Max - bounceOffset
		c.velZ = -math.Abs(c.velZ) * bounceDamping
	}

	c.catX, c.catZ = newX, newZ
}
