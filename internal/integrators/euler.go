package integrators

import "github.com/san-kum/balancer/internal/dynamo"

// Euler is the explicit first order stepper.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	dx := dyn.Derive(x, u, t)
	next := make(dynamo.State, len(x))
	for i := range x {
		next[i] = x[i] + dt*dx[i]
	}
	return next
}

// Advance integrates x over span with a constant control, using steps no
// longer than maxStep.
func Advance(integ dynamo.Integrator, dyn dynamo.System, x dynamo.State, u dynamo.Control, t, span, maxStep float64) dynamo.State {
	if span <= 0 {
		return x
	}
	n := int(span / maxStep)
	if float64(n)*maxStep < span {
		n++
	}
	h := span / float64(n)
	for i := 0; i < n; i++ {
		x = integ.Step(dyn, x, u, t, h)
		t += h
	}
	return x
}

func New(name string) (dynamo.Integrator, bool) {
	switch name {
	case "rk4", "":
		return NewRK4(), true
	case "euler":
		return NewEuler(), true
	}
	return nil, false
}
