package task_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"go.uber.org/mock/gomock"

	"github.com/san-kum/balancer/internal/control"
	"github.com/san-kum/balancer/internal/dynamo"
	"github.com/san-kum/balancer/internal/hw"
	"github.com/san-kum/balancer/internal/task"
)

type cycleRecorder struct {
	cycles []task.Cycle
}

func (r *cycleRecorder) OnCycle(c task.Cycle) { r.cycles = append(r.cycles, c) }

func messages(hook *test.Hook, level logrus.Level) []string {
	var out []string
	for _, e := range hook.AllEntries() {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

var _ = Describe("ControlTask", func() {
	var (
		mockCtrl *gomock.Controller
		sensor   *MockAccelSensor
		motors   *MockMotorDriver
		clock    *control.VirtualClock
		ctrl     *control.Attitude
		logger   *logrus.Logger
		hook     *test.Hook
		cfg      task.ControlConfig
		ct       *task.ControlTask
		ctx      context.Context
	)

	leaning := dynamo.Vector3{X: 0, Y: 0.5, Z: 0.8}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		sensor = NewMockAccelSensor(mockCtrl)
		motors = NewMockMotorDriver(mockCtrl)
		clock = control.NewVirtualClock()
		ctrl = control.NewAttitude(control.DefaultParams(), clock)
		logger, hook = test.NewNullLogger()
		logger.SetLevel(logrus.DebugLevel)
		cfg = task.ControlConfig{Period: time.Millisecond}
		ctx = context.Background()
	})

	JustBeforeEach(func() {
		ct = task.NewControlTask(sensor, motors, ctrl, cfg, logger)
	})

	Context("when the sensor fails", func() {
		It("should neither step the controller nor command the motors", func() {
			sensor.EXPECT().ReadAcceleration(gomock.Any()).
				Return(dynamo.Vector3{}, hw.ErrBusFault).Times(5)

			for i := 0; i < 5; i++ {
				clock.Advance(10 * time.Millisecond)
				c := ct.Cycle(ctx)
				Expect(c.Skipped()).To(BeTrue())
				Expect(c.Outcome).To(Equal(task.SensorFault))
				Expect(c.Err).To(MatchError(hw.ErrBusFault))
				Expect(c.Command.IsZero()).To(BeTrue())
			}

			Expect(ctrl.State()).To(Equal(dynamo.Telemetry{}))
			Expect(messages(hook, logrus.ErrorLevel)).To(HaveLen(5))
			Expect(ct.Cycles()).To(Equal(uint64(5)))
		})

		It("should resume commanding once reads succeed", func() {
			gomock.InOrder(
				sensor.EXPECT().ReadAcceleration(gomock.Any()).Return(dynamo.Vector3{}, hw.ErrSensorTimeout).Times(5),
				sensor.EXPECT().ReadAcceleration(gomock.Any()).Return(leaning, nil).Times(1),
			)
			motors.EXPECT().SetMotorDuty(gomock.Any(), int16(26), int16(-26)).Return(nil).Times(1)

			for i := 0; i < 5; i++ {
				ct.Cycle(ctx)
			}
			clock.Advance(10 * time.Millisecond)
			c := ct.Cycle(ctx)

			Expect(c.Outcome).To(Equal(task.Commanded))
			Expect(c.Command).To(Equal(dynamo.MotorCommand{Left: 26, Right: -26}))
			Expect(c.Telemetry.Time).To(BeNumerically("~", 0.01, 1e-6))
		})

		It("should treat a non-finite sample as a failed read", func() {
			nan := float32(math.NaN())
			sensor.EXPECT().ReadAcceleration(gomock.Any()).Return(dynamo.Vector3{Y: nan, Z: 1}, nil)

			c := ct.Cycle(ctx)
			Expect(c.Skipped()).To(BeTrue())
			Expect(c.Err).To(MatchError(dynamo.ErrInvalidSample))
		})
	})

	Context("when the motors reject a command", func() {
		It("should warn on invalid duty and keep commanding", func() {
			sensor.EXPECT().ReadAcceleration(gomock.Any()).Return(leaning, nil).Times(2)
			gomock.InOrder(
				motors.EXPECT().SetMotorDuty(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(fmt.Errorf("left motor: %w", hw.ErrInvalidDuty)),
				motors.EXPECT().SetMotorDuty(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil),
			)

			clock.Advance(10 * time.Millisecond)
			Expect(ct.Cycle(ctx).Outcome).To(Equal(task.InvalidDuty))
			Expect(hook.LastEntry().Level).To(Equal(logrus.WarnLevel))

			clock.Advance(10 * time.Millisecond)
			Expect(ct.Cycle(ctx).Outcome).To(Equal(task.Commanded))
		})

		It("should log other motor errors at error level", func() {
			sensor.EXPECT().ReadAcceleration(gomock.Any()).Return(leaning, nil)
			motors.EXPECT().SetMotorDuty(gomock.Any(), gomock.Any(), gomock.Any()).
				Return(errors.New("pwm channel fault"))

			c := ct.Cycle(ctx)
			Expect(c.Outcome).To(Equal(task.MotorFault))
			Expect(c.Skipped()).To(BeFalse())
			Expect(messages(hook, logrus.ErrorLevel)).To(ConsistOf("motor command failed"))
		})
	})

	Context("with verbose diagnostics", func() {
		BeforeEach(func() {
			cfg.Verbose = true
		})

		It("should log one line per field", func() {
			sensor.EXPECT().ReadAcceleration(gomock.Any()).Return(leaning, nil)
			motors.EXPECT().SetMotorDuty(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

			clock.Advance(10 * time.Millisecond)
			ct.Cycle(ctx)

			lines := messages(hook, logrus.DebugLevel)
			Expect(lines).To(HaveLen(7))
			for i, key := range []string{"ax", "ay", "az", "theta", "error", "error_derivative", "time"} {
				Expect(lines[i]).To(HavePrefix(key + ": "))
			}
			Expect(lines[6]).To(Equal("time: 1.000e-02"))
		})
	})

	It("should report cycles to observers and metrics", func() {
		gomock.InOrder(
			sensor.EXPECT().ReadAcceleration(gomock.Any()).Return(dynamo.Vector3{}, hw.ErrBusFault).Times(2),
			sensor.EXPECT().ReadAcceleration(gomock.Any()).Return(leaning, nil),
		)
		motors.EXPECT().SetMotorDuty(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

		reg := prometheus.NewRegistry()
		m := task.NewMetrics(reg)
		rec := &cycleRecorder{}
		ct.SetMetrics(m)
		ct.AddObserver(rec)

		clock.Advance(10 * time.Millisecond)
		for i := 0; i < 3; i++ {
			ct.Cycle(ctx)
		}

		Expect(rec.cycles).To(HaveLen(3))
		Expect(rec.cycles[0].Seq).To(Equal(uint64(1)))
		Expect(rec.cycles[2].Outcome).To(Equal(task.Commanded))

		Expect(testutil.ToFloat64(m.Cycles)).To(Equal(3.0))
		Expect(testutil.ToFloat64(m.SkippedCycles)).To(Equal(2.0))
		Expect(testutil.ToFloat64(m.Duty.WithLabelValues("right"))).To(Equal(float64(rec.cycles[2].Command.Right)))
	})

	Describe("Run", func() {
		It("should survive consecutive sensor failures and keep iterating", func() {
			var reads, commands, readsBeforeFirstCommand atomic.Int64

			sensor.EXPECT().ReadAcceleration(gomock.Any()).DoAndReturn(
				func(context.Context) (dynamo.Vector3, error) {
					if reads.Add(1) <= 5 {
						return dynamo.Vector3{}, hw.ErrBusFault
					}
					return leaning, nil
				}).AnyTimes()
			motors.EXPECT().SetMotorDuty(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
				func(context.Context, int16, int16) error {
					if commands.Add(1) == 1 {
						readsBeforeFirstCommand.Store(reads.Load())
					}
					return nil
				}).AnyTimes()

			runCtx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- ct.Run(runCtx) }()

			Eventually(commands.Load).Should(BeNumerically(">=", 3))
			cancel()
			Eventually(done).Should(Receive(MatchError(context.Canceled)))

			Expect(readsBeforeFirstCommand.Load()).To(Equal(int64(6)))
			Expect(ct.Cycles()).To(BeNumerically(">=", 8))
		})

		It("should never run two cycles at once", func() {
			var inside, overlaps atomic.Int32

			sensor.EXPECT().ReadAcceleration(gomock.Any()).DoAndReturn(
				func(context.Context) (dynamo.Vector3, error) {
					if inside.Add(1) > 1 {
						overlaps.Add(1)
					}
					time.Sleep(2 * time.Millisecond)
					return leaning, nil
				}).AnyTimes()
			motors.EXPECT().SetMotorDuty(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
				func(context.Context, int16, int16) error {
					inside.Add(-1)
					return nil
				}).AnyTimes()

			runCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			Expect(ct.Run(runCtx)).To(MatchError(context.DeadlineExceeded))

			Expect(overlaps.Load()).To(BeZero())
			Expect(ct.Cycles()).To(BeNumerically(">", 3))
		})
	})
})
