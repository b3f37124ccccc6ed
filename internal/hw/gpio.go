package hw

import (
	"fmt"

	rpio "github.com/stianeikeland/go-rpio/v4"
)

// PinMap holds BCM pin numbers for one H-bridge channel.
type PinMap struct {
	Dir1 int `yaml:"dir1"`
	Dir2 int `yaml:"dir2"`
	PWM  int `yaml:"pwm"`
}

func (p PinMap) Validate() error {
	pins := map[int]bool{}
	for _, n := range []int{p.Dir1, p.Dir2, p.PWM} {
		if n < 0 || n > 27 {
			return fmt.Errorf("bcm pin %d out of range", n)
		}
		if pins[n] {
			return fmt.Errorf("bcm pin %d used twice", n)
		}
		pins[n] = true
	}
	return nil
}

// OpenGPIO maps the Raspberry Pi GPIO registers. The returned func unmaps them.
func OpenGPIO() (func() error, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}
	return rpio.Close, nil
}

// NewGPIOMotor drives a motor through real pins. OpenGPIO must be called first.
func NewGPIOMotor(name string, pins PinMap, freq int, cycle uint32) *Motor {
	dir1 := rpio.Pin(pins.Dir1)
	dir1.Output()
	dir2 := rpio.Pin(pins.Dir2)
	dir2.Output()

	pwm := rpio.Pin(pins.PWM)
	pwm.Mode(rpio.Pwm)
	pwm.Freq(freq)

	m := NewMotor(name, dir1, dir2, pwm, cycle)
	m.Stop()
	return m
}
