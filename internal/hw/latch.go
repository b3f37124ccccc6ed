package hw

import "sync"

// Latch is an in-memory pin that remembers what was written to it.
type Latch struct {
	mu    sync.Mutex
	high  bool
	duty  uint32
	cycle uint32
}

func (l *Latch) High() {
	l.mu.Lock()
	l.high = true
	l.mu.Unlock()
}

func (l *Latch) Low() {
	l.mu.Lock()
	l.high = false
	l.mu.Unlock()
}

func (l *Latch) DutyCycle(dutyLen, cycleLen uint32) {
	l.mu.Lock()
	l.duty, l.cycle = dutyLen, cycleLen
	l.mu.Unlock()
}

func (l *Latch) IsHigh() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.high
}

// Fraction is duty/cycle, 0 before the first write.
func (l *Latch) Fraction() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cycle == 0 {
		return 0
	}
	return float64(l.duty) / float64(l.cycle)
}

// NewLatchMotor builds a motor on latch pins and returns the pins for inspection.
func NewLatchMotor(name string) (*Motor, *Latch, *Latch, *Latch) {
	dir1, dir2, pwm := &Latch{}, &Latch{}, &Latch{}
	return NewMotor(name, dir1, dir2, pwm, MaxDuty), dir1, dir2, pwm
}
