package dynamo

import (
	"fmt"
	"math"
)

// Vector3 is a 3-axis acceleration sample in sensor coordinates.
type Vector3 struct {
	X float32 `json:"x" yaml:"x"`
	Y float32 `json:"y" yaml:"y"`
	Z float32 `json:"z" yaml:"z"`
}

func (v Vector3) IsValid() bool {
	for _, c := range [...]float32{v.X, v.Y, v.Z} {
		f := float64(c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// Tilt returns the angle of the vector in the Y-Z plane.
func (v Vector3) Tilt() float32 {
	return float32(math.Atan2(float64(v.Y), float64(v.Z)))
}

func (v Vector3) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}

// MotorCommand is a signed duty pair. The sign encodes direction.
type MotorCommand struct {
	Left  int16 `json:"left"`
	Right int16 `json:"right"`
}

func (c MotorCommand) IsZero() bool {
	return c.Left == 0 && c.Right == 0
}

// Telemetry is a snapshot of controller state.
type Telemetry struct {
	Error           float32 `json:"error"`
	ErrorDerivative float32 `json:"error_derivative"`
	Time            float32 `json:"time"`
}

// Lines renders the snapshot as one human-readable key/value pair per line.
func (t Telemetry) Lines() []string {
	return []string{
		fmt.Sprintf("error: %.3e", t.Error),
		fmt.Sprintf("error_derivative: %.3e", t.ErrorDerivative),
		fmt.Sprintf("time: %.3e", t.Time),
	}
}

type Controller interface {
	Step(in Vector3) MotorCommand
	State() Telemetry
}

// Configurable controllers accept live parameter changes.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// State is the plant state vector.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type Control []float64

type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}
