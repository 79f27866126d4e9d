package deepq

import "fmt"

// Config implements a configuration for a DeepQ agent
type Config struct {
	Gamma          float64 // Discount factor for bootstrapped targets
	ReplayCapacity int     // Maximum transitions held in replay
	BatchSize      int     // Transitions per gradient step
	Window         int     // Observation copies per model input row
}

// NewConfig returns a Config with default hyperparameters
func NewConfig() Config {
	return Config{
		Gamma:          0.99,
		ReplayCapacity: 10000,
		BatchSize:      32,
		Window:         10,
	}
}

// Validate ensures that the Config is valid
func (c Config) Validate() error {
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("gamma must be in [0, 1], got %v", c.Gamma)
	}
	if c.ReplayCapacity < 1 {
		return fmt.Errorf("replay capacity must be positive, got %v",
			c.ReplayCapacity)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be positive, got %v", c.BatchSize)
	}
	if c.BatchSize > c.ReplayCapacity {
		return fmt.Errorf("batch size (%v) cannot exceed replay "+
			"capacity (%v)", c.BatchSize, c.ReplayCapacity)
	}
	if c.Window < 1 {
		return fmt.Errorf("window must be positive, got %v", c.Window)
	}
	return nil
}
