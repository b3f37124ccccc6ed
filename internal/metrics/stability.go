package metrics

import (
	"math"

	"github.com/san-kum/balancer/internal/sim"
)

// Upright is the share of samples with |tilt| within threshold.
type Upright struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewUpright(threshold float64) *Upright {
	return &Upright{
		name:      "upright",
		threshold: threshold,
	}
}

func (u *Upright) Name() string {
	return u.name
}

func (u *Upright) Observe(s sim.Sample) {
	u.samples++
	if math.Abs(s.Tilt) > u.threshold {
		u.violations++
	}
}

func (u *Upright) Value() float64 {
	if u.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(u.violations)/float64(u.samples)
}

func (u *Upright) Reset() {
	u.violations = 0
	u.samples = 0
}
