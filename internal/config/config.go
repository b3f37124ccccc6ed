package config

import (
	"fmt"
	"os"
	"time"

	"github.com/san-kum/balancer/internal/control"
	"github.com/san-kum/balancer/internal/dynamo"
	"github.com/san-kum/balancer/internal/hw"
	"github.com/san-kum/balancer/internal/integrators"
	"github.com/san-kum/balancer/internal/physics"
	"github.com/san-kum/balancer/internal/sim"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPeriod         = 10 * time.Millisecond
	DefaultDisplayPeriod  = 100 * time.Millisecond
	DefaultDisplayTimeout = 50 * time.Millisecond
	DefaultBusTimeout     = 50 * time.Millisecond
	DefaultDuration       = 10 * time.Second
	DefaultInitialTilt    = 0.2
	DefaultPWMFreq        = 100000
	DefaultCycleLen       = 100
	DefaultMetricsAddr    = ":9108"
)

var Controllers = []string{"pd", "pid", "off"}

type Config struct {
	Controller string         `yaml:"controller"`
	Integrator string         `yaml:"integrator"`
	Control    ControlConfig  `yaml:"control"`
	Gains      GainsConfig    `yaml:"gains"`
	Plant      PlantConfig    `yaml:"plant"`
	Sim        SimConfig      `yaml:"sim"`
	Hardware   HardwareConfig `yaml:"hardware"`
	Log        LogConfig      `yaml:"log"`
	Metrics    MetricsConfig  `yaml:"metrics"`
}

type ControlConfig struct {
	Period         time.Duration `yaml:"period"`
	DisplayPeriod  time.Duration `yaml:"display_period"`
	DisplayTimeout time.Duration `yaml:"display_timeout"`
	BusTimeout     time.Duration `yaml:"bus_timeout"`
}

type GainsConfig struct {
	Target   dynamo.Vector3 `yaml:"target"`
	Kp       float64        `yaml:"kp"`
	Ki       float64        `yaml:"ki"`
	Td       float64        `yaml:"td"`
	TauE     float64        `yaml:"tau_e"`
	TauD     float64        `yaml:"tau_d"`
	Deadband int            `yaml:"deadband"`
	MaxDuty  int            `yaml:"max_duty"`
}

type PlantConfig struct {
	WheelMass   float64 `yaml:"wheel_mass"`
	BodyMass    float64 `yaml:"body_mass"`
	BodyLength  float64 `yaml:"body_length"`
	Gravity     float64 `yaml:"gravity"`
	Damping     float64 `yaml:"damping"`
	MaxForce    float64 `yaml:"max_force"`
	MountOffset float64 `yaml:"mount_offset"`
}

type SimConfig struct {
	Duration    time.Duration `yaml:"duration"`
	Seed        int64         `yaml:"seed"`
	InitialTilt float64       `yaml:"init_tilt"`
	Noise       float64       `yaml:"noise"`
	FaultRate   float64       `yaml:"fault_rate"`
	GlitchRate  float64       `yaml:"glitch_rate"`
	StopOnFall  bool          `yaml:"stop_on_fall"`
}

type HardwareConfig struct {
	Left     hw.PinMap `yaml:"left"`
	Right    hw.PinMap `yaml:"right"`
	PWMFreq  int       `yaml:"pwm_freq"`
	CycleLen uint32    `yaml:"cycle_len"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Verbose bool   `yaml:"verbose"`
}

type MetricsConfig struct {
	// Addr is where run serves prometheus metrics. Empty disables the endpoint.
	Addr string `yaml:"addr"`
}

func DefaultConfig() *Config {
	plant := physics.NewBalancer()
	return &Config{
		Controller: "pd",
		Integrator: "rk4",
		Control: ControlConfig{
			Period:         DefaultPeriod,
			DisplayPeriod:  DefaultDisplayPeriod,
			DisplayTimeout: DefaultDisplayTimeout,
			BusTimeout:     DefaultBusTimeout,
		},
		Gains: GainsConfig{
			Target:   control.DefaultTarget,
			Kp:       control.DefaultKp,
			Td:       control.DefaultTd,
			TauE:     control.DefaultErrorTimeConst,
			TauD:     control.DefaultDerivativeTimeConst,
			Deadband: control.DefaultDeadband,
			MaxDuty:  control.DefaultMaxDuty,
		},
		Plant: PlantConfig{
			WheelMass:   plant.WheelMass,
			BodyMass:    plant.BodyMass,
			BodyLength:  plant.BodyLength,
			Gravity:     plant.Gravity,
			Damping:     plant.Damping,
			MaxForce:    plant.MaxForce,
			MountOffset: plant.MountOffset,
		},
		Sim: SimConfig{
			Duration:    DefaultDuration,
			InitialTilt: DefaultInitialTilt,
			StopOnFall:  true,
		},
		Hardware: HardwareConfig{
			Left:     hw.PinMap{Dir1: 5, Dir2: 6, PWM: 12},
			Right:    hw.PinMap{Dir1: 20, Dir2: 21, PWM: 13},
			PWMFreq:  DefaultPWMFreq,
			CycleLen: DefaultCycleLen,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a yaml file over the defaults, so a file only needs the keys
// it changes.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := Overlay(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Overlay reads a yaml file over cfg.
func Overlay(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if !knownController(c.Controller) {
		return &dynamo.ConfigError{Field: "controller", Reason: fmt.Sprintf("unknown kind %q", c.Controller)}
	}
	if _, ok := integrators.New(c.Integrator); !ok {
		return &dynamo.ConfigError{Field: "integrator", Reason: fmt.Sprintf("unknown integrator %q", c.Integrator)}
	}
	for name, d := range map[string]time.Duration{
		"control.period":          c.Control.Period,
		"control.display_period":  c.Control.DisplayPeriod,
		"control.display_timeout": c.Control.DisplayTimeout,
		"control.bus_timeout":     c.Control.BusTimeout,
	} {
		if d <= 0 {
			return &dynamo.ConfigError{Field: name, Reason: fmt.Sprintf("must be positive, got %v", d)}
		}
	}
	// Checked before Params narrows them to int16.
	if c.Gains.MaxDuty <= 0 || c.Gains.MaxDuty > control.DefaultMaxDuty {
		return &dynamo.ConfigError{Field: "max_duty", Reason: fmt.Sprintf("must be in 1..%d, got %d", control.DefaultMaxDuty, c.Gains.MaxDuty)}
	}
	if c.Gains.Deadband < 0 || c.Gains.Deadband > c.Gains.MaxDuty {
		return &dynamo.ConfigError{Field: "deadband", Reason: fmt.Sprintf("must be in 0..%d, got %d", c.Gains.MaxDuty, c.Gains.Deadband)}
	}
	if err := c.Params().Validate(); err != nil {
		return err
	}
	if err := c.PlantModel().Validate(); err != nil {
		return err
	}
	if c.Sim.Duration <= 0 {
		return &dynamo.ConfigError{Field: "sim.duration", Reason: "must be positive"}
	}
	if err := c.BoardConfig().Validate(); err != nil {
		return err
	}
	if err := c.Hardware.Validate(); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return &dynamo.ConfigError{Field: "log.level", Reason: err.Error()}
	}
	return nil
}

func (h HardwareConfig) Validate() error {
	if err := h.Left.Validate(); err != nil {
		return &dynamo.ConfigError{Field: "hardware.left", Reason: err.Error()}
	}
	if err := h.Right.Validate(); err != nil {
		return &dynamo.ConfigError{Field: "hardware.right", Reason: err.Error()}
	}
	used := map[int]bool{h.Left.Dir1: true, h.Left.Dir2: true, h.Left.PWM: true}
	for _, p := range []int{h.Right.Dir1, h.Right.Dir2, h.Right.PWM} {
		if used[p] {
			return &dynamo.ConfigError{Field: "hardware.right", Reason: fmt.Sprintf("bcm pin %d shared with left motor", p)}
		}
	}
	if h.PWMFreq <= 0 || h.CycleLen == 0 {
		return &dynamo.ConfigError{Field: "hardware.pwm", Reason: "frequency and cycle length must be positive"}
	}
	return nil
}

// Params converts the gains section into controller parameters.
func (c *Config) Params() control.Params {
	g := c.Gains
	return control.Params{
		Target:              g.Target,
		Kp:                  float32(g.Kp),
		Ki:                  float32(g.Ki),
		Td:                  float32(g.Td),
		ErrorTimeConst:      float32(g.TauE),
		DerivativeTimeConst: float32(g.TauD),
		Deadband:            int16(g.Deadband),
		MaxDuty:             int16(g.MaxDuty),
	}
}

func (c *Config) PlantModel() *physics.Balancer {
	p := c.Plant
	return &physics.Balancer{
		WheelMass:   p.WheelMass,
		BodyMass:    p.BodyMass,
		BodyLength:  p.BodyLength,
		Gravity:     p.Gravity,
		Damping:     p.Damping,
		MaxForce:    p.MaxForce,
		MountOffset: p.MountOffset,
	}
}

func (c *Config) BoardConfig() sim.BoardConfig {
	return sim.BoardConfig{
		InitialTilt: c.Sim.InitialTilt,
		Noise:       c.Sim.Noise,
		FaultRate:   c.Sim.FaultRate,
		GlitchRate:  c.Sim.GlitchRate,
		Seed:        c.Sim.Seed,
	}
}

func (c *Config) SimConfig() sim.Config {
	return sim.Config{
		Duration:   c.Sim.Duration,
		Period:     c.Control.Period,
		StopOnFall: c.Sim.StopOnFall,
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

func knownController(name string) bool {
	for _, n := range Controllers {
		if n == name {
			return true
		}
	}
	return false
}
