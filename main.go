package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"gonum.org/v1/gonum/spatial/r1"

	"github.com/playmeow/playmeow/agent/deepq"
	"github.com/playmeow/playmeow/config"
	"github.com/playmeow/playmeow/environment/catlaser"
	"github.com/playmeow/playmeow/experiment"
	"github.com/playmeow/playmeow/experiment/trackers"
	"github.com/playmeow/playmeow/network"
	"github.com/playmeow/playmeow/render"
)

func main() {
	var (
		configFile = flag.String("config", "", "JSON configuration file; "+
			"defaults are used when empty")
		episodes = flag.Int("episodes", 1000, "number of training "+
			"episodes (ignored when -config is given)")
		dataFile = flag.String("data", "./returns.bin", "file for "+
			"episodic return data")
		imageFile = flag.String("image", "./trajectory.png", "file for "+
			"the greedy episode trajectory; empty disables rendering")
	)
	flag.Parse()

	var cfg config.Config
	var err error
	if *configFile != "" {
		cfg, err = config.Load(*configFile)
	} else {
		cfg, err = config.Default(*episodes)
	}
	if err != nil {
		log.Fatalf("could not configure run: %v", err)
	}

	environment, err := catlaser.New(cfg.Environment, cfg.Seed)
	if err != nil {
		log.Fatalf("could not create environment: %v", err)
	}

	features := cfg.Agent.Window * catlaser.ObservationDims
	model, err := network.NewMLP(features, cfg.Agent.BatchSize,
		catlaser.ActionDims, cfg.Network, cfg.InitWFn, cfg.Solver)
	if err != nil {
		log.Fatalf("could not create network: %v", err)
	}

	agent, err := deepq.New(model, cfg.Agent, cfg.Seed)
	if err != nil {
		log.Fatalf("could not create agent: %v", err)
	}
	defer agent.Close()

	tracker := trackers.NewReturn(*dataFile)
	e, err := experiment.NewReinforcement(environment, agent,
		cfg.Experiment, tracker)
	if err != nil {
		log.Fatalf("could not create experiment: %v", err)
	}

	// Interrupting the run keeps the returns collected so far
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	returns, runErr := e.Run(ctx)
	if runErr != nil && runErr != context.Canceled {
		log.Fatalf("run failed: %v", runErr)
	}

	if err := e.Save(); err != nil {
		log.Fatalf("could not save return data: %v", err)
	}

	fmt.Println()
	if runErr == context.Canceled {
		fmt.Printf("interrupted after %v episodes\n", len(returns))
	}
	tail := 10
	if len(returns) < tail {
		tail = len(returns)
	}
	if tail > 0 {
		fmt.Printf("final returns: %v\n", returns[len(returns)-tail:])
	}

	if *imageFile != "" && runErr == nil {
		if err := renderGreedyEpisode(environment, agent,
			cfg.Environment, *imageFile); err != nil {
			log.Fatalf("could not render trajectory: %v", err)
		}
		fmt.Printf("greedy trajectory written to %v\n", *imageFile)
	}
}

// renderGreedyEpisode runs one episode with a purely greedy policy
// and writes the cat and laser trajectories to a PNG file
func renderGreedyEpisode(environment *catlaser.CatLaser,
	agent *deepq.DeepQ, cfg catlaser.Config, filename string) error {
	xBounds := r1.Interval{Min: cfg.Bounds[0], Max: cfg.Bounds[1]}
	zBounds := r1.Interval{Min: cfg.Bounds[2], Max: cfg.Bounds[3]}
	trajectory, err := render.NewTrajectory(xBounds, zBounds, 600, 600)
	if err != nil {
		return err
	}

	step := environment.Reset()
	catX, catZ := environment.CatPosition()
	laserX, laserZ := environment.LaserPosition()
	trajectory.Observe(catX, catZ, laserX, laserZ)

	for !step.Last() {
		action := agent.SelectAction(step, 0.0)
		step, _, err = environment.Step(action)
		if err != nil {
			return err
		}

		catX, catZ = environment.CatPosition()
		laserX, laserZ = environment.LaserPosition()
		trajectory.Observe(catX, catZ, laserX, laserZ)
	}

	return trajectory.Save(filename)
}
