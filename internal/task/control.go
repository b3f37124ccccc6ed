package task

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/san-kum/balancer/internal/dynamo"
	"github.com/san-kum/balancer/internal/hw"
	"github.com/sirupsen/logrus"
)

const DefaultControlPeriod = 10 * time.Millisecond

type Outcome int

const (
	Commanded Outcome = iota
	SensorFault
	InvalidDuty
	MotorFault
)

func (o Outcome) String() string {
	switch o {
	case Commanded:
		return "commanded"
	case SensorFault:
		return "sensor_fault"
	case InvalidDuty:
		return "invalid_duty"
	case MotorFault:
		return "motor_fault"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Cycle describes one pass of the control loop. Command and Telemetry are
// zero when the cycle was skipped.
type Cycle struct {
	Seq       uint64
	Sample    dynamo.Vector3
	Command   dynamo.MotorCommand
	Telemetry dynamo.Telemetry
	Outcome   Outcome
	Err       error
}

// Skipped reports whether the controller was bypassed.
func (c Cycle) Skipped() bool {
	return c.Outcome == SensorFault
}

type Observer interface {
	OnCycle(c Cycle)
}

type ControlConfig struct {
	Period time.Duration

	// Verbose logs the sample and controller state of every cycle at debug level.
	Verbose bool
}

type ControlTask struct {
	sensor  hw.AccelSensor
	motors  hw.MotorDriver
	ctrl    dynamo.Controller
	cfg     ControlConfig
	log     logrus.FieldLogger
	metrics *Metrics

	observers []Observer
	seq       atomic.Uint64
}

func NewControlTask(sensor hw.AccelSensor, motors hw.MotorDriver, ctrl dynamo.Controller, cfg ControlConfig, log logrus.FieldLogger) *ControlTask {
	if cfg.Period <= 0 {
		cfg.Period = DefaultControlPeriod
	}
	return &ControlTask{
		sensor: sensor,
		motors: motors,
		ctrl:   ctrl,
		cfg:    cfg,
		log:    log.WithField("task", "control"),
	}
}

func (t *ControlTask) SetMetrics(m *Metrics)  { t.metrics = m }
func (t *ControlTask) AddObserver(o Observer) { t.observers = append(t.observers, o) }

func (t *ControlTask) Controller() dynamo.Controller {
	return t.ctrl
}

// Cycles is the number of cycles started so far.
func (t *ControlTask) Cycles() uint64 {
	return t.seq.Load()
}

// Run loops until ctx is done. The next deadline is armed before the cycle
// starts so processing time does not stretch the period.
func (t *ControlTask) Run(ctx context.Context) error {
	t.log.WithField("period", t.cfg.Period).Info("control task started")
	defer t.log.Info("control task stopped")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		deadline := time.NewTimer(t.cfg.Period)
		t.Cycle(ctx)

		select {
		case <-ctx.Done():
			deadline.Stop()
			return ctx.Err()
		case <-deadline.C:
		}
	}
}

// Cycle runs a single pass: read, step, command.
func (t *ControlTask) Cycle(ctx context.Context) Cycle {
	start := time.Now()
	c := Cycle{Seq: t.seq.Add(1)}

	in, err := t.sensor.ReadAcceleration(ctx)
	if err == nil && !in.IsValid() {
		err = fmt.Errorf("%w: %v", dynamo.ErrInvalidSample, in)
	}
	if err != nil {
		c.Outcome = SensorFault
		c.Err = err
		if ctx.Err() == nil {
			t.log.WithError(err).WithField("cycle", c.Seq).Error("accelerometer read failed, skipping cycle")
		}
		t.finish(c, start)
		return c
	}
	c.Sample = in

	c.Command = t.ctrl.Step(in)
	c.Telemetry = t.ctrl.State()

	if err := t.motors.SetMotorDuty(ctx, c.Command.Left, c.Command.Right); err != nil {
		c.Err = err
		entry := t.log.WithError(err).WithFields(logrus.Fields{
			"cycle": c.Seq,
			"left":  c.Command.Left,
			"right": c.Command.Right,
		})
		if errors.Is(err, hw.ErrInvalidDuty) {
			c.Outcome = InvalidDuty
			entry.Warn("motor rejected duty")
		} else {
			c.Outcome = MotorFault
			entry.Error("motor command failed")
		}
	}

	if t.cfg.Verbose {
		t.trace(c)
	}

	t.finish(c, start)
	return c
}

func (t *ControlTask) trace(c Cycle) {
	lines := []string{
		fmt.Sprintf("ax: %.3e", c.Sample.X),
		fmt.Sprintf("ay: %.3e", c.Sample.Y),
		fmt.Sprintf("az: %.3e", c.Sample.Z),
		fmt.Sprintf("theta: %.3e", c.Sample.Tilt()),
	}
	for _, l := range append(lines, c.Telemetry.Lines()...) {
		t.log.Debug(l)
	}
}

func (t *ControlTask) finish(c Cycle, start time.Time) {
	t.metrics.observeCycle(c, time.Since(start).Seconds())
	for _, o := range t.observers {
		o.OnCycle(c)
	}
}
