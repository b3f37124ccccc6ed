package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/balancer/internal/control"
	"github.com/san-kum/balancer/internal/dynamo"
	"github.com/san-kum/balancer/internal/integrators"
	"github.com/san-kum/balancer/internal/metrics"
	"github.com/san-kum/balancer/internal/sim"
)

type ControllerFactory func(p control.Params, clock control.Clock) dynamo.Controller

type Registry struct {
	controllers map[string]ControllerFactory
}

func NewRegistry() *Registry {
	r := &Registry{controllers: make(map[string]ControllerFactory)}

	r.controllers["pd"] = func(p control.Params, clock control.Clock) dynamo.Controller {
		return control.NewAttitude(p, clock)
	}
	r.controllers["pid"] = func(p control.Params, clock control.Clock) dynamo.Controller {
		return control.NewPID(p, clock)
	}
	r.controllers["off"] = func(_ control.Params, clock control.Clock) dynamo.Controller {
		return control.NewOff(clock)
	}
	return r
}

// Register adds or replaces a controller kind.
func (r *Registry) Register(name string, f ControllerFactory) {
	r.controllers[name] = f
}

func (r *Registry) GetController(name string, p control.Params, clock control.Clock) (dynamo.Controller, error) {
	fn, ok := r.controllers[name]
	if !ok {
		return nil, fmt.Errorf("unknown controller: %s", name)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return fn(p, clock), nil
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	integ, ok := integrators.New(name)
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return integ, nil
}

func (r *Registry) ListControllers() []string {
	names := make([]string, 0, len(r.controllers))
	for name := range r.controllers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) DefaultMetrics() []sim.Metric {
	return metrics.Default()
}
