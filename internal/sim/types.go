package sim

import (
	"fmt"
	"time"

	"github.com/san-kum/balancer/internal/dynamo"
	"github.com/san-kum/balancer/internal/task"
)

// Sample is the plant and loop state right after one control cycle.
type Sample struct {
	Time      float64
	Tilt      float64
	TiltRate  float64
	Position  float64
	Velocity  float64
	Command   dynamo.MotorCommand
	Telemetry dynamo.Telemetry
	Outcome   task.Outcome
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Observer interface {
	OnSample(s Sample)
}

type Config struct {
	Duration time.Duration
	Period   time.Duration

	// StopOnFall ends the run as soon as the chassis is past horizontal.
	StopOnFall bool
}

func (c Config) Validate() error {
	if c.Period <= 0 {
		return fmt.Errorf("period must be positive, got %v", c.Period)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %v", c.Duration)
	}
	return nil
}

type Result struct {
	Samples []Sample
	Metrics map[string]float64

	Fell    bool
	FellAt  float64
	Skipped int

	// Errors holds the events that ended or marked the run, in order.
	Errors []error
}

// Final returns the last sample, or the zero Sample for an empty run.
func (r *Result) Final() Sample {
	if len(r.Samples) == 0 {
		return Sample{}
	}
	return r.Samples[len(r.Samples)-1]
}

// Tilts returns the tilt series.
func (r *Result) Tilts() []float64 {
	out := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = s.Tilt
	}
	return out
}

// SimError locates a run event at a time and cycle. Err, when set, is the
// sentinel it reports.
type SimError struct {
	Time    float64
	Cycle   uint64
	Message string
	Err     error
}

func (e SimError) Error() string {
	return fmt.Sprintf("t=%.3f cycle=%d: %s", e.Time, e.Cycle, e.Message)
}

func (e SimError) Unwrap() error {
	return e.Err
}
