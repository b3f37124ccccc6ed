package control

import (
	"time"

	"github.com/san-kum/balancer/internal/dynamo"
	"github.com/san-kum/balancer/internal/filter"
)

// Attitude is the PD balancing controller.
//
// Each step derives the tilt error from the Y and Z components of the sample,
// smooths it with a short time constant, smooths the change of the smoothed
// error with a longer one and feeds both into Kp*e + Kd*de/dt.
type Attitude struct {
	params   Params
	clock    Clock
	lastStep time.Duration
	base     timeBase

	err      filter.Smoother
	errDeriv filter.Smoother
}

func NewAttitude(p Params, clock Clock) *Attitude {
	now := clock.Now()
	return &Attitude{
		params:   p,
		clock:    clock,
		lastStep: now,
		base:     timeBase{epoch: now},
		err:      filter.NewLowPass(0),
		errDeriv: filter.NewLowPass(0),
	}
}

func (a *Attitude) Step(in dynamo.Vector3) dynamo.MotorCommand {
	now := a.clock.Now()
	t := a.base.at(now, a.lastStep, a.err, a.errDeriv)
	dt := seconds(now - a.lastStep)

	raw := a.params.Target.Tilt() - in.Tilt()

	prev := a.err.Current()
	e := a.err.Filter(raw, t, a.params.ErrorTimeConst)
	de := a.errDeriv.Filter(e-prev, t, a.params.DerivativeTimeConst)

	u := a.params.Kp * e
	// dt <= 0 only happens when the clock is reset; drop the D term then.
	if kd := a.params.Kd(); kd != 0 && dt > 0 {
		u += kd * de / dt
	}

	a.lastStep = now
	return a.params.command(u)
}

func (a *Attitude) State() dynamo.Telemetry {
	return dynamo.Telemetry{
		Error:           a.err.Current(),
		ErrorDerivative: a.errDeriv.Current(),
		Time:            seconds(a.lastStep),
	}
}

func (a *Attitude) Params() Params {
	return a.params
}

// GetParams returns tunable parameters for live adjustment
func (a *Attitude) GetParams() map[string]float64 {
	return a.params.get()
}

// SetParam adjusts a single parameter, rejecting values that fail validation.
func (a *Attitude) SetParam(name string, value float64) error {
	return a.params.set(name, value)
}
