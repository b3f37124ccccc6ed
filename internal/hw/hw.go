// Package hw defines the hardware collaborators of the balancing loop and
// the pin-level pieces used to drive them.
package hw

import (
	"context"
	"errors"

	"github.com/san-kum/balancer/internal/dynamo"
)

var (
	// ErrInvalidDuty is returned for a duty outside -100..100.
	ErrInvalidDuty = errors.New("hw: invalid duty")

	// ErrSensorTimeout is returned when a sensor transaction exceeds the bus timeout.
	ErrSensorTimeout = errors.New("hw: sensor timeout")

	// ErrBusFault is a failed bus transaction.
	ErrBusFault = errors.New("hw: bus fault")
)

// AccelSensor produces one acceleration sample per call.
type AccelSensor interface {
	ReadAcceleration(ctx context.Context) (dynamo.Vector3, error)
}

// MotorDriver applies a signed duty pair to the wheels.
type MotorDriver interface {
	SetMotorDuty(ctx context.Context, left, right int16) error
}

//go:generate mockgen -destination=../task/mock_hw_test.go -package=task_test github.com/san-kum/balancer/internal/hw AccelSensor,MotorDriver
