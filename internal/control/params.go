package control

import (
	"fmt"
	"math"

	"github.com/san-kum/balancer/internal/dynamo"
)

const (
	// DefaultKp maps a 30 degree error to full-scale output.
	DefaultKp = 6 / math.Pi

	DefaultTd                  = 0.03
	DefaultErrorTimeConst      = 0.06
	DefaultDerivativeTimeConst = 0.12
	DefaultDeadband            = 5
	DefaultMaxDuty             = 100

	dutyScale = 100
)

// DefaultTarget leans slightly off vertical to counter the mechanical offset
// of the chassis.
var DefaultTarget = dynamo.Vector3{X: 0, Y: -0.1, Z: 1.0}

type Params struct {
	Target              dynamo.Vector3
	Kp                  float32
	Ki                  float32
	Td                  float32
	ErrorTimeConst      float32
	DerivativeTimeConst float32
	Deadband            int16
	MaxDuty             int16
}

func DefaultParams() Params {
	return Params{
		Target:              DefaultTarget,
		Kp:                  DefaultKp,
		Td:                  DefaultTd,
		ErrorTimeConst:      DefaultErrorTimeConst,
		DerivativeTimeConst: DefaultDerivativeTimeConst,
		Deadband:            DefaultDeadband,
		MaxDuty:             DefaultMaxDuty,
	}
}

func (p Params) Validate() error {
	if !p.Target.IsValid() || (p.Target.Y == 0 && p.Target.Z == 0) {
		return &dynamo.ConfigError{Field: "target", Reason: fmt.Sprintf("%v has no direction in the Y-Z plane", p.Target)}
	}
	for name, v := range map[string]float32{
		"kp":                    p.Kp,
		"ki":                    p.Ki,
		"td":                    p.Td,
		"error_time_const":      p.ErrorTimeConst,
		"derivative_time_const": p.DerivativeTimeConst,
	} {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) || v < 0 {
			return &dynamo.ConfigError{Field: name, Reason: fmt.Sprintf("must be a finite non-negative number, got %v", v)}
		}
	}
	if p.MaxDuty <= 0 || p.MaxDuty > DefaultMaxDuty {
		return &dynamo.ConfigError{Field: "max_duty", Reason: fmt.Sprintf("must be in 1..%d, got %d", DefaultMaxDuty, p.MaxDuty)}
	}
	if p.Deadband < 0 || p.Deadband > p.MaxDuty {
		return &dynamo.ConfigError{Field: "deadband", Reason: fmt.Sprintf("must be in 0..%d, got %d", p.MaxDuty, p.Deadband)}
	}
	return nil
}

// Kd is the derivative gain Td*Kp.
func (p Params) Kd() float32 {
	return p.Td * p.Kp
}

// command maps a normalized control effort to a differential duty pair.
// Left is inverted so both wheels push the chassis the same way.
func (p Params) command(u float32) dynamo.MotorCommand {
	return dynamo.MotorCommand{
		Left:  p.Duty(-u * dutyScale),
		Right: p.Duty(u * dutyScale),
	}
}

// Duty truncates raw toward zero, saturates at MaxDuty and zeroes anything
// inside the deadband. NaN maps to zero.
func (p Params) Duty(raw float32) int16 {
	if raw != raw {
		return 0
	}
	limit := float32(p.MaxDuty)
	if raw > limit {
		raw = limit
	} else if raw < -limit {
		raw = -limit
	}

	d := int16(raw)
	if d > -p.Deadband && d < p.Deadband {
		return 0
	}
	return d
}

func (p *Params) get() map[string]float64 {
	return map[string]float64{
		"kp":       float64(p.Kp),
		"ki":       float64(p.Ki),
		"td":       float64(p.Td),
		"tau_e":    float64(p.ErrorTimeConst),
		"tau_d":    float64(p.DerivativeTimeConst),
		"deadband": float64(p.Deadband),
	}
}

func (p *Params) set(name string, value float64) error {
	next := *p
	switch name {
	case "kp":
		next.Kp = float32(value)
	case "ki":
		next.Ki = float32(value)
	case "td":
		next.Td = float32(value)
	case "tau_e":
		next.ErrorTimeConst = float32(value)
	case "tau_d":
		next.DerivativeTimeConst = float32(value)
	case "deadband":
		if math.IsNaN(value) || value < 0 || value > float64(p.MaxDuty) {
			return &dynamo.ConfigError{Field: "deadband", Reason: fmt.Sprintf("must be in 0..%d, got %v", p.MaxDuty, value)}
		}
		next.Deadband = int16(value)
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*p = next
	return nil
}
