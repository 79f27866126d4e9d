// Package config composes the configuration of every component of a
// training run into one JSON serializable structure
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/playmeow/playmeow/agent/deepq"
	"github.com/playmeow/playmeow/environment/catlaser"
	"github.com/playmeow/playmeow/experiment"
	"github.com/playmeow/playmeow/initwfn"
	"github.com/playmeow/playmeow/network"
	"github.com/playmeow/playmeow/solver"
)

// Config describes a full training run
type Config struct {
	Seed uint64

	Environment catlaser.Config
	Agent       deepq.Config
	Network     network.Config
	Experiment  experiment.Config

	InitWFn *initwfn.InitWFn
	Solver  *solver.Solver
}

// Default returns the default configuration for a training run of
// nEpisodes episodes
func Default(nEpisodes int) (Config, error) {
	agent := deepq.NewConfig()

	init, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		return Config{}, fmt.Errorf("default: could not create weight "+
			"initializer: %v", err)
	}
	sol, err := solver.NewDefaultAdam(0.001, agent.BatchSize)
	if err != nil {
		return Config{}, fmt.Errorf("default: could not create solver: %v",
			err)
	}

	return Config{
		Seed:        1,
		Environment: catlaser.NewConfig(),
		Agent:       agent,
		Network:     network.NewConfig(),
		Experiment:  experiment.NewConfig(nEpisodes),
		InitWFn:     init,
		Solver:      sol,
	}, nil
}

// Validate ensures that every component configuration is valid
func (c Config) Validate() error {
	if err := c.Environment.Validate(); err != nil {
		return fmt.Errorf("environment: %v", err)
	}
	if err := c.Agent.Validate(); err != nil {
		return fmt.Errorf("agent: %v", err)
	}
	if err := c.Network.Validate(); err != nil {
		return fmt.Errorf("network: %v", err)
	}
	if err := c.Experiment.Validate(); err != nil {
		return fmt.Errorf("experiment: %v", err)
	}
	if c.InitWFn == nil {
		return fmt.Errorf("no weight initializer")
	}
	if c.Solver == nil {
		return fmt.Errorf("no solver")
	}
	return nil
}

// Load reads and validates a Config from a JSON file
func Load(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("load: could not read config: %v", err)
	}

	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("load: could not parse config: %v", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("load: invalid config: %v", err)
	}

	return c, nil
}

// Save writes the Config to a JSON file
func (c Config) Save(filename string) error {
	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return fmt.Errorf("save: could not marshal config: %v", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("save: could not write config: %v", err)
	}
	return nil
}
