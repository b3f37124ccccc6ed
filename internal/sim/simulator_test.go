package sim

import (
	"context"
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"github.com/san-kum/balancer/internal/control"
	"github.com/san-kum/balancer/internal/dynamo"
	"github.com/san-kum/balancer/internal/hw"
	"github.com/san-kum/balancer/internal/integrators"
	"github.com/san-kum/balancer/internal/physics"
	"github.com/san-kum/balancer/internal/task"
	"github.com/sirupsen/logrus"
)

type tiltPeak struct{ peak float64 }

func (t *tiltPeak) Name() string     { return "peak" }
func (t *tiltPeak) Observe(s Sample) { t.peak = math.Max(t.peak, math.Abs(s.Tilt)) }
func (t *tiltPeak) Value() float64   { return t.peak }
func (t *tiltPeak) Reset()           { t.peak = 0 }

func newSim(t *testing.T, kind string, cfg BoardConfig) *Simulator {
	t.Helper()
	clock := control.NewVirtualClock()
	board := NewBoard(physics.NewBalancer(), integrators.NewRK4(), clock, cfg)

	var ctrl dynamo.Controller
	switch kind {
	case "pd":
		ctrl = control.NewAttitude(control.DefaultParams(), clock)
	case "off":
		ctrl = control.NewOff(clock)
	default:
		t.Fatalf("unknown controller %q", kind)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)
	ct := task.NewControlTask(board, board.Motors(), ctrl, task.ControlConfig{Period: 10 * time.Millisecond}, log)
	return New(board, clock, ct)
}

func runFor(t *testing.T, s *Simulator, d time.Duration) *Result {
	t.Helper()
	res, err := s.Run(context.Background(), Config{Duration: d, Period: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return res
}

func TestControllerHoldsChassisUp(t *testing.T) {
	controlled := runFor(t, newSim(t, "pd", BoardConfig{InitialTilt: 0.2}), time.Second)
	free := runFor(t, newSim(t, "off", BoardConfig{InitialTilt: 0.2}), time.Second)

	if len(controlled.Samples) != 100 {
		t.Fatalf("expected 100 samples, got %d", len(controlled.Samples))
	}

	ct := math.Abs(controlled.Final().Tilt)
	ft := math.Abs(free.Final().Tilt)
	if ct >= 0.3 {
		t.Errorf("controlled tilt after 1s = %.3f, want < 0.3", ct)
	}
	if ft <= 0.5 {
		t.Errorf("uncontrolled tilt after 1s = %.3f, want > 0.5", ft)
	}
	if controlled.Fell {
		t.Error("controlled run fell")
	}
}

func TestControllerSettles(t *testing.T) {
	s := newSim(t, "pd", BoardConfig{InitialTilt: 0.15})
	runFor(t, s, 4*time.Second)

	peak := &tiltPeak{}
	s.AddMetric(peak)
	res := runFor(t, s, time.Second)

	if res.Metrics["peak"] > 0.1 {
		t.Errorf("tilt still swings %.3f rad after 4s", res.Metrics["peak"])
	}
}

func TestSkippedCyclesAreCounted(t *testing.T) {
	s := newSim(t, "pd", BoardConfig{InitialTilt: 0.1, FaultRate: 0.2, Seed: 7})
	res := runFor(t, s, 3*time.Second)

	if res.Skipped == 0 {
		t.Fatal("expected skipped cycles")
	}
	if res.Skipped != s.Board().Faults() {
		t.Errorf("skipped %d cycles but board injected %d faults", res.Skipped, s.Board().Faults())
	}
	for _, smp := range res.Samples {
		if smp.Outcome == task.SensorFault && !smp.Command.IsZero() {
			t.Fatalf("skipped cycle at t=%.2f carries a command", smp.Time)
		}
	}
	if res.Fell {
		t.Errorf("fell at t=%.2f with 20%% dropped reads", res.FellAt)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	cfg := BoardConfig{InitialTilt: 0.1, Noise: 0.02, FaultRate: 0.05, Seed: 42}
	a := runFor(t, newSim(t, "pd", cfg), 500*time.Millisecond)
	b := runFor(t, newSim(t, "pd", cfg), 500*time.Millisecond)

	for i := range a.Samples {
		if a.Samples[i] != b.Samples[i] {
			t.Fatalf("sample %d differs: %+v vs %+v", i, a.Samples[i], b.Samples[i])
		}
	}
}

func TestStopOnFall(t *testing.T) {
	s := newSim(t, "off", BoardConfig{InitialTilt: 0.3})
	res, err := s.Run(context.Background(), Config{Duration: 5 * time.Second, Period: 10 * time.Millisecond, StopOnFall: true})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Fell {
		t.Fatal("expected the uncontrolled chassis to fall")
	}
	if res.FellAt >= 5 || len(res.Samples) >= 500 {
		t.Errorf("run continued after fall at %.2f", res.FellAt)
	}
	if math.Abs(res.Final().Tilt) != math.Pi/2 {
		t.Errorf("fallen chassis should rest at horizontal, got %v", res.Final().Tilt)
	}
	if len(res.Errors) != 1 || !errors.Is(res.Errors[0], dynamo.ErrFallen) {
		t.Fatalf("expected one fall event, got %v", res.Errors)
	}
	var se SimError
	if !errors.As(res.Errors[0], &se) || se.Cycle != uint64(len(res.Samples)) {
		t.Errorf("fall event %+v does not point at the last cycle %d", se, len(res.Samples))
	}
}

func TestInvalidStateEndsRun(t *testing.T) {
	s := newSim(t, "pd", BoardConfig{InitialTilt: 0.1})
	s.board.x[2] = math.NaN()

	res := runFor(t, s, time.Second)
	if len(res.Samples) != 1 {
		t.Fatalf("run continued for %d cycles on a NaN state", len(res.Samples))
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected one error, got %v", res.Errors)
	}
	var se SimError
	if !errors.As(res.Errors[0], &se) || se.Cycle != 1 {
		t.Errorf("unexpected error %v", res.Errors[0])
	}
	if errors.Is(res.Errors[0], dynamo.ErrFallen) {
		t.Error("invalid state reported as a fall")
	}
	if res.Samples[0].Outcome != task.SensorFault {
		t.Errorf("NaN sample reached the controller: outcome %v", res.Samples[0].Outcome)
	}
}

func TestGlitchesAreFiltered(t *testing.T) {
	clock := control.NewVirtualClock()
	board := NewBoard(physics.NewBalancer(), integrators.NewRK4(), clock, BoardConfig{GlitchRate: 1})

	log := logrus.New()
	log.SetOutput(io.Discard)
	guard := hw.NewGlitchGuard(board, log)

	clock.Advance(10 * time.Millisecond)
	v, err := guard.ReadAcceleration(context.Background())
	if !errors.Is(err, dynamo.ErrInvalidSample) {
		t.Fatalf("expected invalid sample before any good read, got %v (%v)", err, v)
	}
	if guard.Glitches() != 1 {
		t.Errorf("glitches = %d, want 1", guard.Glitches())
	}
}

func TestRunCanceled(t *testing.T) {
	s := newSim(t, "pd", BoardConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.Run(ctx, Config{Duration: time.Second, Period: 10 * time.Millisecond})
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(res.Samples) != 0 {
		t.Errorf("canceled run produced %d samples", len(res.Samples))
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero period", Config{Duration: time.Second}},
		{"negative duration", Config{Duration: -time.Second, Period: time.Millisecond}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := newSim(t, "pd", BoardConfig{}).Run(context.Background(), tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}

	if err := (BoardConfig{FaultRate: 1.5}).Validate(); err == nil {
		t.Error("fault rate above 1 accepted")
	}
	if err := (BoardConfig{InitialTilt: 2}).Validate(); err == nil {
		t.Error("fallen initial tilt accepted")
	}
}
