// Package experiment assembles a complete balancing rig from a config: the
// simulated board behind the hardware assembly, a controller and the
// control task.
package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/balancer/internal/bus"
	"github.com/san-kum/balancer/internal/config"
	"github.com/san-kum/balancer/internal/control"
	"github.com/san-kum/balancer/internal/dynamo"
	"github.com/san-kum/balancer/internal/hw"
	"github.com/san-kum/balancer/internal/sim"
	"github.com/san-kum/balancer/internal/task"
	"github.com/sirupsen/logrus"
)

// Rig is a wired board, controller and control task sharing one clock.
type Rig struct {
	Board      *sim.Board
	Hardware   *hw.Hardware
	Controller dynamo.Controller
	Task       *task.ControlTask
}

// Build wires a rig on clock. The control task is not started.
func Build(reg *Registry, cfg *config.Config, clock control.Clock, log logrus.FieldLogger) (*Rig, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	integ, err := reg.GetIntegrator(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	board := sim.NewBoard(cfg.PlantModel(), integ, clock, cfg.BoardConfig())

	hardware, err := hw.Assembly{
		Sensor:     board,
		Left:       board.Left,
		Right:      board.Right,
		Bus:        bus.New("i2c-1"),
		BusTimeout: cfg.Control.BusTimeout,
		Logger:     log,
	}.Build()
	if err != nil {
		return nil, err
	}

	ctrl, err := reg.GetController(cfg.Controller, cfg.Params(), clock)
	if err != nil {
		return nil, err
	}

	ct := task.NewControlTask(hardware.Sensor, hardware.Motors, ctrl, task.ControlConfig{
		Period:  cfg.Control.Period,
		Verbose: cfg.Log.Verbose,
	}, log)

	return &Rig{Board: board, Hardware: hardware, Controller: ctrl, Task: ct}, nil
}

// Experiment is a lockstep simulation of one configuration.
type Experiment struct {
	cfg       *config.Config
	clock     *control.VirtualClock
	rig       *Rig
	simulator *sim.Simulator
}

func New(reg *Registry, cfg *config.Config, log logrus.FieldLogger) (*Experiment, error) {
	clock := control.NewVirtualClock()
	rig, err := Build(reg, cfg, clock, log)
	if err != nil {
		return nil, err
	}

	s := sim.New(rig.Board, clock, rig.Task)
	for _, m := range reg.DefaultMetrics() {
		s.AddMetric(m)
	}
	return &Experiment{cfg: cfg, clock: clock, rig: rig, simulator: s}, nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.simulator.Run(ctx, e.cfg.SimConfig())
}

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}

func (e *Experiment) Rig() *Rig {
	return e.rig
}

func (e *Experiment) Config() *config.Config {
	return e.cfg
}
