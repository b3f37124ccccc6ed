package control

import (
	"sync/atomic"
	"time"

	"github.com/san-kum/balancer/internal/filter"
)

// Clock reports elapsed time since an arbitrary epoch.
type Clock interface {
	Now() time.Duration
}

// SystemClock measures monotonic wall time since its creation.
type SystemClock struct {
	start time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

func (c *SystemClock) Now() time.Duration {
	return time.Since(c.start)
}

// VirtualClock only moves when told to.
type VirtualClock struct {
	now atomic.Int64
}

func NewVirtualClock() *VirtualClock {
	return &VirtualClock{}
}

func (c *VirtualClock) Now() time.Duration {
	return time.Duration(c.now.Load())
}

func (c *VirtualClock) Advance(d time.Duration) time.Duration {
	return time.Duration(c.now.Add(int64(d)))
}

// Set moves the clock to t, which may be earlier than the current time.
func (c *VirtualClock) Set(t time.Duration) {
	c.now.Store(int64(t))
}

// rebaseAfter bounds filter timestamps. float32 seconds keep microsecond
// resolution below a minute; after 40 h a 10 ms step rounds to 0 or 15.6 ms.
const rebaseAfter = time.Minute

// timeBase hands filters float32 timestamps relative to a moving epoch.
type timeBase struct {
	epoch time.Duration
}

// at returns the filter time of now. Once the last step is rebaseAfter past
// the epoch, the epoch moves to last and filters are re-anchored at time 0,
// which requires that every filter was last applied at last.
func (b *timeBase) at(now, last time.Duration, filters ...filter.Smoother) float32 {
	if last-b.epoch >= rebaseAfter {
		b.epoch = last
		for _, f := range filters {
			f.Reset(f.Current())
		}
	}
	return seconds(now - b.epoch)
}

func seconds(d time.Duration) float32 {
	return float32(d.Seconds())
}
