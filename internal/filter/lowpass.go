// Package filter implements the single-pole smoothing used by the controllers.
package filter

// Smoother is a time-aware scalar filter.
type Smoother interface {
	Filter(input, time, timeConst float32) float32
	Current() float32
	Reset(value float32)
}

// LowPass is a single-pole exponential filter over irregular sample
// intervals. The zero value starts at 0 with last time 0.
type LowPass struct {
	value    float32
	lastTime float32
}

func NewLowPass(initial float32) *LowPass {
	return &LowPass{value: initial}
}

// Filter blends input into the current value with weight dt/max(timeConst, dt).
// Clamping the time constant keeps the weight in [0, 1] when a sample arrives
// later than timeConst. Last time never decreases: a time earlier than the
// previous one leaves the filter untouched.
func (f *LowPass) Filter(input, time, timeConst float32) float32 {
	dt := time - f.lastTime
	if dt < 0 {
		return f.value
	}

	t := timeConst
	if dt > t {
		t = dt
	}

	if t > 0 {
		w := dt / t
		f.value = (1-w)*f.value + w*input
	}
	f.lastTime = time

	return f.value
}

func (f *LowPass) Current() float32 {
	return f.value
}

func (f *LowPass) LastTime() float32 {
	return f.lastTime
}

// Reset restores the filter to value with last time 0. Callers that move
// their time base use it to re-anchor.
func (f *LowPass) Reset(value float32) {
	f.value = value
	f.lastTime = 0
}
