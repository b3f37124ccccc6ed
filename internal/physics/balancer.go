package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/balancer/internal/dynamo"
)

// Balancer is a two-wheeled inverted pendulum reduced to the plane of travel:
// the wheel axle behaves as a cart and the chassis as a pole hinged on it.
//
// State is [position, velocity, tilt, tilt rate]. Positive tilt leans the
// chassis toward positive position. Control is the net wheel force.
type Balancer struct {
	WheelMass  float64
	BodyMass   float64
	BodyLength float64
	Gravity    float64

	// Damping is viscous friction about the axle, in 1/s.
	Damping float64

	// MaxForce is the wheel force at full duty.
	MaxForce float64

	// MountOffset is the angle between the sensor Z axis and the chassis axis.
	MountOffset float64
}

func NewBalancer() *Balancer {
	return &Balancer{
		WheelMass:   1.0,
		BodyMass:    0.1,
		BodyLength:  1.0,
		Gravity:     9.81,
		Damping:     2.0,
		MaxForce:    10.0,
		MountOffset: math.Atan2(0.1, 1.0),
	}
}

func (b *Balancer) StateDim() int {
	return 4
}

func (b *Balancer) ControlDim() int {
	return 1
}

func (b *Balancer) Validate() error {
	for name, v := range map[string]float64{
		"wheel_mass":  b.WheelMass,
		"body_mass":   b.BodyMass,
		"body_length": b.BodyLength,
		"gravity":     b.Gravity,
		"max_force":   b.MaxForce,
	} {
		if !(v > 0) || math.IsInf(v, 0) {
			return &dynamo.ConfigError{Field: "plant." + name, Reason: fmt.Sprintf("must be positive, got %v", v)}
		}
	}
	if b.Damping < 0 {
		return &dynamo.ConfigError{Field: "plant.damping", Reason: "must not be negative"}
	}
	return nil
}

func (b *Balancer) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	vel := x[1]
	theta := x[2]
	omega := x[3]

	force := 0.0
	if len(u) > 0 {
		force = u[0]
	}

	total := b.WheelMass + b.BodyMass
	l := b.BodyLength
	sint, cost := math.Sin(theta), math.Cos(theta)

	temp := (force + b.BodyMass*l*omega*omega*sint) / total
	alpha := (b.Gravity*sint-cost*temp)/(l*(4.0/3.0-b.BodyMass*cost*cost/total)) - b.Damping*omega
	acc := temp - b.BodyMass*l*alpha*cost/total

	return dynamo.State{vel, acc, omega, alpha}
}

// Force converts a duty pair into net wheel force. The wheels face opposite
// ways, so forward travel is right positive and left negative.
func (b *Balancer) Force(left, right int16) float64 {
	drive := (float64(right) - float64(left)) / 2
	return b.MaxForce * drive / 100
}

// Sense returns the gravity vector as seen by the chassis accelerometer,
// in units of g.
func (b *Balancer) Sense(x dynamo.State) dynamo.Vector3 {
	phi := x[2] + b.MountOffset
	return dynamo.Vector3{
		X: 0,
		Y: float32(-math.Sin(phi)),
		Z: float32(math.Cos(phi)),
	}
}

// Fallen reports whether the chassis is past horizontal.
func (b *Balancer) Fallen(x dynamo.State) bool {
	return math.Abs(x[2]) >= math.Pi/2
}

// Tilt is the chassis angle of x.
func Tilt(x dynamo.State) float64 {
	return x[2]
}
