package hw

import (
	"context"
	"fmt"
	"sync"
)

const MaxDuty = 100

// DigitalOut is a push-pull output pin. rpio.Pin satisfies it.
type DigitalOut interface {
	High()
	Low()
}

// PWMOut is a pulse width modulated output. rpio.Pin satisfies it.
type PWMOut interface {
	DutyCycle(dutyLen, cycleLen uint32)
}

// Motor drives one wheel through an H-bridge: two direction pins and a PWM
// channel.
type Motor struct {
	name  string
	dir1  DigitalOut
	dir2  DigitalOut
	pwm   PWMOut
	cycle uint32

	mu      sync.Mutex
	speed   int16
	stopped bool
}

// NewMotor creates a stopped motor. cycle is the PWM cycle length that maps
// to full duty.
func NewMotor(name string, dir1, dir2 DigitalOut, pwm PWMOut, cycle uint32) *Motor {
	if cycle == 0 {
		cycle = MaxDuty
	}
	return &Motor{name: name, dir1: dir1, dir2: dir2, pwm: pwm, cycle: cycle, stopped: true}
}

func (m *Motor) Name() string {
	return m.name
}

// SetSpeed sets direction from the sign and duty from the magnitude.
// Zero brakes with both direction pins high.
func (m *Motor) SetSpeed(speed int16) error {
	if speed > MaxDuty || speed < -MaxDuty {
		return fmt.Errorf("%s motor speed %d: %w", m.name, speed, ErrInvalidDuty)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	abs := speed
	switch {
	case speed == 0:
		m.dir1.High()
		m.dir2.High()
	case speed > 0:
		m.dir1.High()
		m.dir2.Low()
	default:
		m.dir1.Low()
		m.dir2.High()
		abs = -speed
	}
	m.pwm.DutyCycle(uint32(abs)*m.cycle/MaxDuty, m.cycle)

	m.speed = speed
	m.stopped = false
	return nil
}

// Stop lets the wheel coast: both direction pins low, zero duty.
func (m *Motor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dir1.Low()
	m.dir2.Low()
	m.pwm.DutyCycle(0, m.cycle)
	m.speed = 0
	m.stopped = true
}

func (m *Motor) IsStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// Speed is the last commanded signed duty.
func (m *Motor) Speed() int16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speed
}

// MotorPair commands the left wheel, then the right.
type MotorPair struct {
	Left  *Motor
	Right *Motor
}

func (p *MotorPair) SetMotorDuty(ctx context.Context, left, right int16) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.Left.SetSpeed(left); err != nil {
		return err
	}
	return p.Right.SetSpeed(right)
}

func (p *MotorPair) Stop() {
	p.Left.Stop()
	p.Right.Stop()
}
