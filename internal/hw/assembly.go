package hw

import (
	"time"

	"github.com/san-kum/balancer/internal/bus"
	"github.com/san-kum/balancer/internal/dynamo"
	"github.com/sirupsen/logrus"
)

// Assembly lists the parts of a board. Populate it field by field and call
// Build.
type Assembly struct {
	Sensor     AccelSensor
	Left       *Motor
	Right      *Motor
	Bus        *bus.Bus
	BusTimeout time.Duration
	Logger     logrus.FieldLogger
}

// Hardware is an assembled board.
type Hardware struct {
	Sensor AccelSensor
	Motors *MotorPair
	Bus    *bus.Bus
	Guard  *GlitchGuard
}

func (a Assembly) Build() (*Hardware, error) {
	switch {
	case a.Sensor == nil:
		return nil, &dynamo.ConfigError{Field: "sensor", Reason: "required"}
	case a.Left == nil:
		return nil, &dynamo.ConfigError{Field: "left motor", Reason: "required"}
	case a.Right == nil:
		return nil, &dynamo.ConfigError{Field: "right motor", Reason: "required"}
	case a.Left == a.Right:
		return nil, &dynamo.ConfigError{Field: "right motor", Reason: "same motor as left"}
	case a.Bus == nil:
		return nil, &dynamo.ConfigError{Field: "bus", Reason: "required"}
	case a.BusTimeout <= 0:
		return nil, &dynamo.ConfigError{Field: "bus timeout", Reason: "must be positive"}
	}

	log := a.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	guard := NewGlitchGuard(NewBusSensor(a.Bus, a.Sensor, a.BusTimeout), log.WithField("component", "accel"))
	return &Hardware{
		Sensor: guard,
		Motors: &MotorPair{Left: a.Left, Right: a.Right},
		Bus:    a.Bus,
		Guard:  guard,
	}, nil
}

// Stop halts both wheels.
func (h *Hardware) Stop() {
	h.Motors.Stop()
}
