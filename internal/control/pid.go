package control

import (
	"time"

	"github.com/felixge/pidctrl"
	"github.com/san-kum/balancer/internal/dynamo"
	"github.com/san-kum/balancer/internal/filter"
)

// PID balances with a full PID law on the filtered tilt error.
type PID struct {
	params   Params
	clock    Clock
	pid      *pidctrl.PIDController
	lastStep time.Duration
	base     timeBase

	err     filter.Smoother
	prevErr float32
	lastOut float64
}

func NewPID(p Params, clock Clock) *PID {
	pid := pidctrl.NewPIDController(float64(p.Kp), float64(p.Ki), float64(p.Kd()))
	pid.SetOutputLimits(-1, 1)
	pid.Set(0)

	now := clock.Now()
	return &PID{
		params:   p,
		clock:    clock,
		pid:      pid,
		lastStep: now,
		base:     timeBase{epoch: now},
		err:      filter.NewLowPass(0),
	}
}

func (c *PID) Step(in dynamo.Vector3) dynamo.MotorCommand {
	now := c.clock.Now()
	elapsed := now - c.lastStep

	raw := c.params.Target.Tilt() - in.Tilt()
	c.prevErr = c.err.Current()
	e := c.err.Filter(raw, c.base.at(now, c.lastStep, c.err), c.params.ErrorTimeConst)

	// The measurement is the negated error so that the setpoint is zero error.
	if elapsed > 0 {
		c.lastOut = c.pid.UpdateDuration(float64(-e), elapsed)
	}

	c.lastStep = now
	return c.params.command(float32(c.lastOut))
}

func (c *PID) State() dynamo.Telemetry {
	return dynamo.Telemetry{
		Error:           c.err.Current(),
		ErrorDerivative: c.err.Current() - c.prevErr,
		Time:            seconds(c.lastStep),
	}
}

func (c *PID) GetParams() map[string]float64 {
	return c.params.get()
}

func (c *PID) SetParam(name string, value float64) error {
	if err := c.params.set(name, value); err != nil {
		return err
	}
	c.pid.SetPID(float64(c.params.Kp), float64(c.params.Ki), float64(c.params.Kd()))
	return nil
}
