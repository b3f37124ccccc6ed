package metrics

import (
	"math"

	"github.com/san-kum/balancer/internal/sim"
)

// TiltRMS is the root mean square chassis tilt in radians.
type TiltRMS struct {
	sumSq   float64
	samples int
}

func NewTiltRMS() *TiltRMS {
	return &TiltRMS{}
}

func (t *TiltRMS) Name() string { return "tilt_rms" }

func (t *TiltRMS) Observe(s sim.Sample) {
	t.sumSq += s.Tilt * s.Tilt
	t.samples++
}

func (t *TiltRMS) Value() float64 {
	if t.samples == 0 {
		return 0
	}
	return math.Sqrt(t.sumSq / float64(t.samples))
}

func (t *TiltRMS) Reset() {
	t.sumSq = 0
	t.samples = 0
}

// MaxTilt is the largest |tilt| seen.
type MaxTilt struct {
	max float64
}

func NewMaxTilt() *MaxTilt {
	return &MaxTilt{}
}

func (m *MaxTilt) Name() string { return "max_tilt" }

func (m *MaxTilt) Observe(s sim.Sample) {
	m.max = math.Max(m.max, math.Abs(s.Tilt))
}

func (m *MaxTilt) Value() float64 { return m.max }
func (m *MaxTilt) Reset()         { m.max = 0 }

// Default is the metric set recorded with every run.
func Default() []sim.Metric {
	return []sim.Metric{
		NewTiltRMS(),
		NewMaxTilt(),
		NewUpright(0.1),
		NewControlEffort(),
		NewDeadbandRatio(),
	}
}
