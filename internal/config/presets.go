package config

import (
	"sort"
	"time"
)

// Presets adjust the default configuration.
var Presets = map[string]func(*Config){
	"default": func(*Config) {},

	// Proportional only: the chassis nods around the target.
	"nod": func(c *Config) {
		c.Gains.Td = 0
	},

	"stiff": func(c *Config) {
		c.Gains.Kp *= 2
		c.Gains.Td = 0.05
	},

	"noisy": func(c *Config) {
		c.Sim.Noise = 0.02
		c.Sim.FaultRate = 0.05
		c.Sim.GlitchRate = 0.02
	},

	"pid": func(c *Config) {
		c.Controller = "pid"
		c.Gains.Ki = 0.5
	},

	"freefall": func(c *Config) {
		c.Controller = "off"
		c.Sim.InitialTilt = 0.05
		c.Sim.Duration = 3 * time.Second
	},

	"recover": func(c *Config) {
		c.Sim.InitialTilt = 0.35
	},
}

// GetPreset returns the default configuration with the named preset applied,
// or nil if there is no such preset.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
