package metrics

import (
	"math"

	"github.com/san-kum/balancer/internal/sim"
	"github.com/san-kum/balancer/internal/task"
)

// ControlEffort is the mean absolute duty over commanded cycles.
type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(s sim.Sample) {
	if s.Outcome == task.SensorFault {
		return
	}
	c.sum += (math.Abs(float64(s.Command.Left)) + math.Abs(float64(s.Command.Right))) / 2
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

// DeadbandRatio is the share of commanded cycles whose output was zeroed.
type DeadbandRatio struct {
	zero    int
	samples int
}

func NewDeadbandRatio() *DeadbandRatio {
	return &DeadbandRatio{}
}

func (d *DeadbandRatio) Name() string {
	return "deadband_ratio"
}

func (d *DeadbandRatio) Observe(s sim.Sample) {
	if s.Outcome == task.SensorFault {
		return
	}
	d.samples++
	if s.Command.IsZero() {
		d.zero++
	}
}

func (d *DeadbandRatio) Value() float64 {
	if d.samples == 0 {
		return 0
	}
	return float64(d.zero) / float64(d.samples)
}

func (d *DeadbandRatio) Reset() {
	d.zero = 0
	d.samples = 0
}
