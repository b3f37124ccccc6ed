package task

import (
	"context"
	"time"

	"github.com/san-kum/balancer/internal/bus"
	"github.com/san-kum/balancer/internal/display"
	"github.com/sirupsen/logrus"
)

const DefaultDisplayPeriod = 100 * time.Millisecond

type DisplayConfig struct {
	Period time.Duration

	// Timeout bounds one refresh including the wait for the bus.
	Timeout time.Duration
}

type DisplayTask struct {
	bus     *bus.Bus
	panel   display.Panel
	cfg     DisplayConfig
	log     logrus.FieldLogger
	metrics *Metrics

	start  time.Time
	frames uint64
}

func NewDisplayTask(b *bus.Bus, panel display.Panel, cfg DisplayConfig, log logrus.FieldLogger) *DisplayTask {
	if cfg.Period <= 0 {
		cfg.Period = DefaultDisplayPeriod
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = cfg.Period
	}
	return &DisplayTask{
		bus:   b,
		panel: panel,
		cfg:   cfg,
		log:   log.WithField("task", "display"),
		start: time.Now(),
	}
}

func (t *DisplayTask) SetMetrics(m *Metrics) { t.metrics = m }

func (t *DisplayTask) Run(ctx context.Context) error {
	t.start = time.Now()
	t.log.WithField("period", t.cfg.Period).Info("display task started")
	defer t.log.Info("display task stopped")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		deadline := time.NewTimer(t.cfg.Period)
		t.Refresh(ctx)

		select {
		case <-ctx.Done():
			deadline.Stop()
			return ctx.Err()
		case <-deadline.C:
		}
	}
}

// Refresh draws one frame while holding the bus.
func (t *DisplayTask) Refresh(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, t.cfg.Timeout)
	defer cancel()

	t.frames++
	f := display.Frame{
		Seq:    t.frames,
		Uptime: time.Since(t.start),
		Bus:    t.bus.Stats(),
	}

	err := t.bus.Do(ctx, func(ctx context.Context) error {
		return t.panel.Draw(ctx, f)
	})
	t.metrics.observeFrame(err)
	if err != nil && parent.Err() == nil {
		t.log.WithError(err).Warn("display refresh failed")
	}
	return err
}
