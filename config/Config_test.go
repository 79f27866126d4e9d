package config

import (
	"path/filepath"
	"testing"

	"github.com/playmeow/playmeow/solver"
)

func TestRoundTrip(t *testing.T) {
	c, err := Default(250)
	if err != nil {
		t.Fatalf("could not create default config: %v", err)
	}
	c.Seed = 99
	c.Environment.EngagementThreshold = 0.4
	c.Agent.BatchSize = 16
	c.Network.Hidden = []int{32, 32}
	c.Network.Biases = []bool{true, false}
	c.Network.Activations = c.Network.Activations[:2]

	filename := filepath.Join(t.TempDir(), "config.json")
	if err := c.Save(filename); err != nil {
		t.Fatalf("could not save: %v", err)
	}

	loaded, err := Load(filename)
	if err != nil {
		t.Fatalf("could not load: %v", err)
	}

	if loaded.Seed != 99 {
		t.Errorf("seed = %v, expected 99", loaded.Seed)
	}
	if loaded.Environment.EngagementThreshold != 0.4 {
		t.Errorf("engagement threshold = %v, expected 0.4",
			loaded.Environment.EngagementThreshold)
	}
	if loaded.Agent.BatchSize != 16 {
		t.Errorf("batch size = %v, expected 16", loaded.Agent.BatchSize)
	}
	if len(loaded.Network.Hidden) != 2 || loaded.Network.Hidden[0] != 32 {
		t.Errorf("hidden layers = %v, expected [32 32]",
			loaded.Network.Hidden)
	}
	if loaded.Network.Activations[0].String() != "relu" {
		t.Errorf("activation = %v, expected relu",
			loaded.Network.Activations[0])
	}
	if loaded.Experiment.NEpisodes != 250 {
		t.Errorf("episodes = %v, expected 250", loaded.Experiment.NEpisodes)
	}

	if loaded.Solver.Type != solver.Adam {
		t.Errorf("solver type = %v, expected Adam", loaded.Solver.Type)
	}
	if loaded.Solver.Solver == nil {
		t.Error("loaded solver was not instantiated")
	}
	if loaded.InitWFn.InitWFn() == nil {
		t.Error("loaded weight initializer was not instantiated")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	c, err := Default(100)
	if err != nil {
		t.Fatalf("could not create default config: %v", err)
	}
	c.Agent.BatchSize = 0

	filename := filepath.Join(t.TempDir(), "config.json")
	if err := c.Save(filename); err != nil {
		t.Fatalf("could not save: %v", err)
	}
	if _, err := Load(filename); err == nil {
		t.Error("invalid config did not fail to load")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file did not fail to load")
	}
}
