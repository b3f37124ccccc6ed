package task

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments both tasks. A nil *Metrics records nothing.
type Metrics struct {
	Cycles        prometheus.Counter
	SkippedCycles prometheus.Counter
	MotorErrors   *prometheus.CounterVec
	Duty          *prometheus.GaugeVec
	TiltError     prometheus.Gauge
	CycleSeconds  prometheus.Histogram
	DisplayFrames prometheus.Counter
	DisplayErrors prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "balancer_control_cycles_total",
			Help: "Control cycles started.",
		}),
		SkippedCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "balancer_control_skipped_cycles_total",
			Help: "Control cycles skipped after a failed sensor read.",
		}),
		MotorErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "balancer_motor_errors_total",
			Help: "Rejected motor commands.",
		}, []string{"kind"}),
		Duty: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "balancer_motor_duty",
			Help: "Last commanded signed duty.",
		}, []string{"wheel"}),
		TiltError: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "balancer_tilt_error_radians",
			Help: "Filtered tilt error after the last step.",
		}),
		CycleSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "balancer_control_cycle_seconds",
			Help:    "Time spent in one control cycle.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 10),
		}),
		DisplayFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "balancer_display_frames_total",
			Help: "Display frames drawn.",
		}),
		DisplayErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "balancer_display_errors_total",
			Help: "Display refreshes that failed.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Cycles, m.SkippedCycles, m.MotorErrors, m.Duty,
			m.TiltError, m.CycleSeconds, m.DisplayFrames, m.DisplayErrors)
	}
	return m
}

func (m *Metrics) observeCycle(c Cycle, seconds float64) {
	if m == nil {
		return
	}
	m.Cycles.Inc()
	m.CycleSeconds.Observe(seconds)
	switch c.Outcome {
	case SensorFault:
		m.SkippedCycles.Inc()
		return
	case InvalidDuty:
		m.MotorErrors.WithLabelValues("invalid_duty").Inc()
	case MotorFault:
		m.MotorErrors.WithLabelValues("transport").Inc()
	}
	m.Duty.WithLabelValues("left").Set(float64(c.Command.Left))
	m.Duty.WithLabelValues("right").Set(float64(c.Command.Right))
	m.TiltError.Set(float64(c.Telemetry.Error))
}

func (m *Metrics) observeFrame(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.DisplayErrors.Inc()
		return
	}
	m.DisplayFrames.Inc()
}
