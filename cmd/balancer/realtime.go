package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/san-kum/balancer/internal/control"
	"github.com/san-kum/balancer/internal/display"
	"github.com/san-kum/balancer/internal/dynamo"
	"github.com/san-kum/balancer/internal/experiment"
	"github.com/san-kum/balancer/internal/hw"
	"github.com/san-kum/balancer/internal/logging"
	"github.com/san-kum/balancer/internal/task"
	"github.com/san-kum/balancer/internal/viz"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// runRealtime runs the control and display tasks concurrently on the wall
// clock until interrupted. The motors are stopped on the way out.
func runRealtime(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if runFor > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runFor)
		defer cancel()
	}

	rig, err := experiment.Build(experiment.NewRegistry(), cfg, control.NewSystemClock(), log)
	if err != nil {
		return err
	}
	defer rig.Hardware.Stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	metrics := task.NewMetrics(reg)
	rig.Task.SetMetrics(metrics)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return rig.Task.Run(gctx) })

	if showPanel {
		dt := task.NewDisplayTask(rig.Hardware.Bus, display.NewTextPanel(os.Stdout, true), task.DisplayConfig{
			Period:  cfg.Control.DisplayPeriod,
			Timeout: cfg.Control.DisplayTimeout,
		}, log)
		dt.SetMetrics(metrics)
		g.Go(func() error { return dt.Run(gctx) })
	}

	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}

		g.Go(func() error {
			log.WithField("addr", cfg.Metrics.Addr).Info("serving metrics")
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdown, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return srv.Shutdown(shutdown)
		})
	}

	g.Go(func() error { return watchFall(gctx, rig, log) })

	err = g.Wait()
	log.WithFields(logrus.Fields{
		"cycles":   rig.Task.Cycles(),
		"faults":   rig.Board.Faults(),
		"glitches": rig.Hardware.Guard.Glitches(),
	}).Info("stopped")

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// watchFall reports once when the simulated chassis goes past horizontal.
// The control loop keeps running regardless.
func watchFall(ctx context.Context, rig *experiment.Rig, log logrus.FieldLogger) error {
	t := time.NewTicker(100 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if rig.Board.Fallen() {
				log.WithError(dynamo.ErrFallen).WithField("tilt", rig.Board.State()[2]).Warn("chassis fell")
				<-ctx.Done()
				return ctx.Err()
			}
		}
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	exp, err := experiment.New(experiment.NewRegistry(), cfg, logging.Discard())
	if err != nil {
		return err
	}

	m := viz.NewModel(cmd.Context(), exp.GetSimulator(), exp.Rig().Controller, cfg.Control.Period, cfg.Sim.InitialTilt, cfg.Controller)
	return viz.Run(m)
}

// motorTest ramps both wheels forward, back and to rest through the GPIO
// pins in the hardware section of the config.
func motorTest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	if rampStep <= 0 || rampStep > hw.MaxDuty {
		return fmt.Errorf("step must be in 1..%d", hw.MaxDuty)
	}

	closeGPIO, err := hw.OpenGPIO()
	if err != nil {
		return err
	}
	defer closeGPIO()

	h := cfg.Hardware
	pair := &hw.MotorPair{
		Left:  hw.NewGPIOMotor("left", h.Left, h.PWMFreq, h.CycleLen),
		Right: hw.NewGPIOMotor("right", h.Right, h.PWMFreq, h.CycleLen),
	}
	defer pair.Stop()

	ctx := cmd.Context()
	for _, duty := range ramp(rampStep) {
		if err := pair.SetMotorDuty(ctx, duty, duty); err != nil {
			log.WithError(err).WithField("duty", duty).Warn("motor command rejected")
		} else {
			log.WithField("duty", duty).Info("duty")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(rampDwell):
		}
	}
	return nil
}

// ramp climbs from 0 to full forward, sweeps to full reverse and returns to 0.
func ramp(step int) []int16 {
	var out []int16
	for d := 0; d < hw.MaxDuty; d += step {
		out = append(out, int16(d))
	}
	for d := hw.MaxDuty; d > -hw.MaxDuty; d -= step {
		out = append(out, int16(d))
	}
	for d := -hw.MaxDuty; d <= 0; d += step {
		out = append(out, int16(d))
	}
	return out
}
