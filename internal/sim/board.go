package sim

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/san-kum/balancer/internal/control"
	"github.com/san-kum/balancer/internal/dynamo"
	"github.com/san-kum/balancer/internal/hw"
	"github.com/san-kum/balancer/internal/integrators"
	"github.com/san-kum/balancer/internal/physics"
)

const DefaultSubstep = time.Millisecond

type BoardConfig struct {
	InitialTilt float64

	// Noise is the standard deviation added to each accelerometer axis, in g.
	Noise float64

	// FaultRate is the probability that a read fails outright.
	FaultRate float64

	// GlitchRate is the probability that a read reports InvalidReading on one axis.
	GlitchRate float64

	Seed    int64
	Substep time.Duration
}

func (c BoardConfig) Validate() error {
	for name, p := range map[string]float64{"fault_rate": c.FaultRate, "glitch_rate": c.GlitchRate} {
		if p < 0 || p > 1 {
			return &dynamo.ConfigError{Field: "sim." + name, Reason: fmt.Sprintf("must be in [0, 1], got %v", p)}
		}
	}
	if c.Noise < 0 {
		return &dynamo.ConfigError{Field: "sim.noise", Reason: "must not be negative"}
	}
	if math.Abs(c.InitialTilt) >= math.Pi/2 {
		return &dynamo.ConfigError{Field: "sim.init_tilt", Reason: "already fallen"}
	}
	return nil
}

// Board simulates the vehicle: an accelerometer and two motors attached to
// the plant. The plant is integrated up to the clock on every access, using
// whatever duty the motors held since the previous access.
type Board struct {
	plant *physics.Balancer
	integ dynamo.Integrator
	clock control.Clock
	cfg   BoardConfig

	Left  *hw.Motor
	Right *hw.Motor

	mu     sync.Mutex
	x      dynamo.State
	synced time.Duration
	rng    *rand.Rand
	reads  int
	faults int
}

func NewBoard(plant *physics.Balancer, integ dynamo.Integrator, clock control.Clock, cfg BoardConfig) *Board {
	if cfg.Substep <= 0 {
		cfg.Substep = DefaultSubstep
	}
	left, _, _, _ := hw.NewLatchMotor("left")
	right, _, _, _ := hw.NewLatchMotor("right")

	return &Board{
		plant:  plant,
		integ:  integ,
		clock:  clock,
		cfg:    cfg,
		Left:   left,
		Right:  right,
		x:      dynamo.State{0, 0, cfg.InitialTilt, 0},
		synced: clock.Now(),
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}
}

func (b *Board) Motors() *hw.MotorPair {
	return &hw.MotorPair{Left: b.Left, Right: b.Right}
}

// sync must be called with b.mu held.
func (b *Board) sync() {
	now := b.clock.Now()
	if now <= b.synced {
		return
	}
	if !b.plant.Fallen(b.x) {
		u := dynamo.Control{b.plant.Force(b.Left.Speed(), b.Right.Speed())}
		span := (now - b.synced).Seconds()
		b.x = integrators.Advance(b.integ, b.plant, b.x, u, b.synced.Seconds(), span, b.cfg.Substep.Seconds())
		if b.plant.Fallen(b.x) {
			b.x[1], b.x[3] = 0, 0
			b.x[2] = math.Copysign(math.Pi/2, b.x[2])
		}
	}
	b.synced = now
}

func (b *Board) ReadAcceleration(ctx context.Context) (dynamo.Vector3, error) {
	if err := ctx.Err(); err != nil {
		return dynamo.Vector3{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.sync()
	b.reads++

	if b.cfg.FaultRate > 0 && b.rng.Float64() < b.cfg.FaultRate {
		b.faults++
		return dynamo.Vector3{}, fmt.Errorf("simulated nack on read %d: %w", b.reads, hw.ErrBusFault)
	}

	v := b.plant.Sense(b.x)
	if b.cfg.Noise > 0 {
		v.Y += float32(b.rng.NormFloat64() * b.cfg.Noise)
		v.Z += float32(b.rng.NormFloat64() * b.cfg.Noise)
	}
	if b.cfg.GlitchRate > 0 && b.rng.Float64() < b.cfg.GlitchRate {
		v.Y = hw.InvalidReading
	}
	return v, nil
}

// State returns a copy of the plant state at the current clock time.
func (b *Board) State() dynamo.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sync()
	return b.x.Clone()
}

func (b *Board) Fallen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sync()
	return b.plant.Fallen(b.x)
}

// Nudge adds rate to the tilt rate, as if the chassis were pushed.
func (b *Board) Nudge(rate float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sync()
	if !b.plant.Fallen(b.x) {
		b.x[3] += rate
	}
}

// Reset puts the chassis back at tilt with everything at rest.
func (b *Board) Reset(tilt float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.x = dynamo.State{0, 0, tilt, 0}
	b.synced = b.clock.Now()
}

// Faults is the number of reads that failed on purpose.
func (b *Board) Faults() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.faults
}
