// Package sim runs the control task against a simulated board in lockstep
// with a virtual clock, so a run of any length finishes as fast as the CPU
// allows and is reproducible from its seed.
package sim

import (
	"context"
	"time"

	"github.com/san-kum/balancer/internal/control"
	"github.com/san-kum/balancer/internal/dynamo"
	"github.com/san-kum/balancer/internal/task"
)

type Simulator struct {
	board     *Board
	clock     *control.VirtualClock
	task      *task.ControlTask
	metrics   []Metric
	observers []Observer
}

// New wires a simulator. clock must be the clock that board and the
// controller inside ct read.
func New(board *Board, clock *control.VirtualClock, ct *task.ControlTask) *Simulator {
	return &Simulator{
		board:     board,
		clock:     clock,
		task:      ct,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Board() *Board { return s.board }

// Step advances the clock one period and runs one control cycle.
func (s *Simulator) Step(ctx context.Context, period time.Duration) Sample {
	s.clock.Advance(period)
	c := s.task.Cycle(ctx)
	x := s.board.State()

	sample := Sample{
		Time:      s.clock.Now().Seconds(),
		Position:  x[0],
		Velocity:  x[1],
		Tilt:      x[2],
		TiltRate:  x[3],
		Command:   c.Command,
		Telemetry: c.Telemetry,
		Outcome:   c.Outcome,
	}
	for _, m := range s.metrics {
		m.Observe(sample)
	}
	for _, o := range s.observers {
		o.OnSample(sample)
	}
	return sample
}

func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	steps := int(cfg.Duration / cfg.Period)
	result := &Result{
		Samples: make([]Sample, 0, steps),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			s.collect(result)
			return result, ctx.Err()
		default:
		}

		sample := s.Step(ctx, cfg.Period)
		result.Samples = append(result.Samples, sample)
		if sample.Outcome == task.SensorFault {
			result.Skipped++
		}

		cycle := uint64(i + 1)
		if !s.board.State().IsValid() {
			result.Errors = append(result.Errors, SimError{
				Time:    sample.Time,
				Cycle:   cycle,
				Message: "invalid plant state (NaN/Inf)",
			})
			break
		}

		if !result.Fell && s.board.Fallen() {
			result.Fell = true
			result.FellAt = sample.Time
			result.Errors = append(result.Errors, SimError{
				Time:    sample.Time,
				Cycle:   cycle,
				Message: "chassis past horizontal",
				Err:     dynamo.ErrFallen,
			})
			if cfg.StopOnFall {
				break
			}
		}
	}

	s.collect(result)
	return result, nil
}

func (s *Simulator) collect(result *Result) {
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}
