package task_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/balancer/internal/bus"
	"github.com/san-kum/balancer/internal/control"
	"github.com/san-kum/balancer/internal/display"
	"github.com/san-kum/balancer/internal/dynamo"
	"github.com/san-kum/balancer/internal/hw"
	"github.com/san-kum/balancer/internal/task"
)

type recordingPanel struct {
	mu     sync.Mutex
	frames []display.Frame
	err    error
	onDraw func()
}

func (p *recordingPanel) Draw(ctx context.Context, f display.Frame) error {
	p.mu.Lock()
	p.frames = append(p.frames, f)
	p.mu.Unlock()
	if p.onDraw != nil {
		p.onDraw()
	}
	return p.err
}

func (p *recordingPanel) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

// sharedDevice stands in for two peripherals on one bus and counts
// transactions that interleave.
type sharedDevice struct {
	inside, overlaps atomic.Int32
	reads            atomic.Int32
}

func (d *sharedDevice) transact() {
	if d.inside.Add(1) > 1 {
		d.overlaps.Add(1)
	}
	time.Sleep(500 * time.Microsecond)
	d.inside.Add(-1)
}

func (d *sharedDevice) ReadAcceleration(ctx context.Context) (dynamo.Vector3, error) {
	d.transact()
	d.reads.Add(1)
	return dynamo.Vector3{Y: -0.1, Z: 1}, nil
}

var _ = Describe("DisplayTask", func() {
	var (
		b      *bus.Bus
		logger *logrus.Logger
		hook   *test.Hook
	)

	BeforeEach(func() {
		b = bus.New("spi0")
		logger, hook = test.NewNullLogger()
	})

	It("should draw while holding the bus", func() {
		var unguarded atomic.Int32
		panel := &recordingPanel{}
		panel.onDraw = func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
			defer cancel()
			if g, err := b.Acquire(ctx); err == nil {
				unguarded.Add(1)
				g.Release()
			}
		}

		dt := task.NewDisplayTask(b, panel, task.DisplayConfig{Period: 5 * time.Millisecond}, logger)
		Expect(dt.Refresh(context.Background())).To(Succeed())
		Expect(dt.Refresh(context.Background())).To(Succeed())

		Expect(unguarded.Load()).To(BeZero())
		Expect(panel.frames[1].Seq).To(Equal(uint64(2)))
		Expect(panel.frames[1].Bus.Transactions).To(Equal(uint64(1)))
	})

	It("should keep refreshing after a failed draw", func() {
		panel := &recordingPanel{err: errors.New("display not ready")}
		reg := prometheus.NewRegistry()
		m := task.NewMetrics(reg)

		dt := task.NewDisplayTask(b, panel, task.DisplayConfig{Period: 2 * time.Millisecond}, logger)
		dt.SetMetrics(m)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- dt.Run(ctx) }()

		Eventually(panel.Count).Should(BeNumerically(">=", 3))
		cancel()
		Eventually(done).Should(Receive(MatchError(context.Canceled)))

		Expect(testutil.ToFloat64(m.DisplayErrors)).To(BeNumerically(">=", 3))
		Expect(testutil.ToFloat64(m.DisplayFrames)).To(BeZero())
		Expect(messages(hook, logrus.WarnLevel)).NotTo(BeEmpty())
	})

	It("should give up on a refresh when the bus stays busy", func() {
		panel := &recordingPanel{}
		g, err := b.Acquire(context.Background())
		Expect(err).NotTo(HaveOccurred())
		defer g.Release()

		dt := task.NewDisplayTask(b, panel, task.DisplayConfig{Period: 10 * time.Millisecond, Timeout: 5 * time.Millisecond}, logger)
		Expect(dt.Refresh(context.Background())).To(MatchError(context.DeadlineExceeded))
		Expect(panel.Count()).To(BeZero())
		Expect(hook.LastEntry().Level).To(Equal(logrus.WarnLevel))
	})
})

var _ = Describe("Control and display tasks", func() {
	It("should never interleave transactions on the shared bus", func() {
		logger, _ := test.NewNullLogger()
		b := bus.New("i2c0")
		dev := &sharedDevice{}

		left, _, _, _ := hw.NewLatchMotor("left")
		right, _, _, _ := hw.NewLatchMotor("right")
		board, err := hw.Assembly{
			Sensor:     dev,
			Left:       left,
			Right:      right,
			Bus:        b,
			BusTimeout: 50 * time.Millisecond,
			Logger:     logger,
		}.Build()
		Expect(err).NotTo(HaveOccurred())

		ctrl := control.NewAttitude(control.DefaultParams(), control.NewSystemClock())
		ct := task.NewControlTask(board.Sensor, board.Motors, ctrl, task.ControlConfig{Period: time.Millisecond}, logger)
		panel := &recordingPanel{onDraw: dev.transact}
		dt := task.NewDisplayTask(b, panel, task.DisplayConfig{Period: 3 * time.Millisecond}, logger)

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error { return ct.Run(ctx) })
		g.Go(func() error { return dt.Run(ctx) })
		Expect(g.Wait()).To(MatchError(context.DeadlineExceeded))

		Expect(dev.overlaps.Load()).To(BeZero())
		Expect(dev.reads.Load()).To(BeNumerically(">", 5))
		Expect(panel.Count()).To(BeNumerically(">", 5))
		Expect(b.Stats().Transactions).To(BeNumerically(">", 10))
	})
})
