package hw

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/san-kum/balancer/internal/bus"
	"github.com/san-kum/balancer/internal/dynamo"
)

// BusSensor performs every read as one bus transaction bounded by timeout.
type BusSensor struct {
	bus     *bus.Bus
	sensor  AccelSensor
	timeout time.Duration
}

func NewBusSensor(b *bus.Bus, sensor AccelSensor, timeout time.Duration) *BusSensor {
	return &BusSensor{bus: b, sensor: sensor, timeout: timeout}
}

func (s *BusSensor) ReadAcceleration(ctx context.Context) (dynamo.Vector3, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var v dynamo.Vector3
	err := s.bus.Do(ctx, func(ctx context.Context) error {
		var err error
		v, err = s.sensor.ReadAcceleration(ctx)
		return err
	})
	if errors.Is(err, context.DeadlineExceeded) {
		return v, fmt.Errorf("%w after %v on %s", ErrSensorTimeout, s.timeout, s.bus.Name())
	}
	return v, err
}
