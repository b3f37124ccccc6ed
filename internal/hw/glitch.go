package hw

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/san-kum/balancer/internal/dynamo"
	"github.com/sirupsen/logrus"
)

// InvalidReading is what the accelerometer reports for a component it could
// not measure.
const InvalidReading = -0.01

// GlitchGuard replaces samples carrying InvalidReading with the last good one.
// Until a good sample has been seen a glitch is reported as ErrInvalidSample.
type GlitchGuard struct {
	sensor AccelSensor
	log    logrus.FieldLogger

	last     dynamo.Vector3
	haveLast bool
	glitches atomic.Uint64
}

func NewGlitchGuard(sensor AccelSensor, log logrus.FieldLogger) *GlitchGuard {
	return &GlitchGuard{sensor: sensor, log: log}
}

func (g *GlitchGuard) ReadAcceleration(ctx context.Context) (dynamo.Vector3, error) {
	v, err := g.sensor.ReadAcceleration(ctx)
	if err != nil {
		return v, err
	}
	if v.X == InvalidReading || v.Y == InvalidReading || v.Z == InvalidReading {
		g.glitches.Add(1)
		g.log.WithField("sample", v).Warn("accelerometer returned invalid value")
		if !g.haveLast {
			return dynamo.Vector3{}, fmt.Errorf("glitch before first good sample %v: %w", v, dynamo.ErrInvalidSample)
		}
		return g.last, nil
	}
	g.last = v
	g.haveLast = true
	return v, nil
}

func (g *GlitchGuard) Glitches() uint64 {
	return g.glitches.Load()
}
