package control

import (
	"time"

	"github.com/san-kum/balancer/internal/dynamo"
)

// Off never drives the motors. Useful to watch the plant fall.
type Off struct {
	clock    Clock
	lastStep time.Duration
}

func NewOff(clock Clock) *Off {
	return &Off{clock: clock, lastStep: clock.Now()}
}

func (o *Off) Step(in dynamo.Vector3) dynamo.MotorCommand {
	o.lastStep = o.clock.Now()
	return dynamo.MotorCommand{}
}

func (o *Off) State() dynamo.Telemetry {
	return dynamo.Telemetry{Time: seconds(o.lastStep)}
}
