package deepq

// Reward mirrors the environment's engagement, completion and
// proximity reward terms for callers that synthesize rewards outside
// the environment, such as replaying externally recorded play
// sessions. Signs and magnitudes follow the environment's reward
// function, with an additional penalty when the laser sits in a
// prohibited zone.
func Reward(engaged bool, distance float64, inProhibitedZone,
	sessionComplete, sessionAbandoned bool) float64 {
	var reward float64

	if engaged {
		reward += 0.1
	} else {
		reward -= 0.2
	}

	if sessionComplete {
		reward += 0.4
	} else if sessionAbandoned {
		reward -= 0.3
	}

	// A NaN distance fails both comparisons and earns nothing
	if distance >= 0.2 && distance <= 1.0 {
		reward += 0.01
	}

	if inProhibitedZone {
		reward -= 0.1
	}

	return reward
}
