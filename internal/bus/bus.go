// Package bus serializes transactions on a peripheral bus shared by
// independently scheduled tasks.
package bus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Bus hands out one exclusive Guard at a time.
type Bus struct {
	name string
	sem  *semaphore.Weighted

	transactions atomic.Uint64
	contended    atomic.Uint64
	waitNanos    atomic.Int64
}

func New(name string) *Bus {
	return &Bus{name: name, sem: semaphore.NewWeighted(1)}
}

func (b *Bus) Name() string {
	return b.name
}

// Acquire blocks until the bus is free or ctx is done.
func (b *Bus) Acquire(ctx context.Context) (*Guard, error) {
	if !b.sem.TryAcquire(1) {
		b.contended.Add(1)
		start := time.Now()
		if err := b.sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("acquire bus %s: %w", b.name, err)
		}
		b.waitNanos.Add(int64(time.Since(start)))
	}
	b.transactions.Add(1)
	return &Guard{bus: b}, nil
}

// Do runs fn while holding the bus. The guard is released when fn returns,
// even if it panics.
func (b *Bus) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	g, err := b.Acquire(ctx)
	if err != nil {
		return err
	}
	defer g.Release()
	return fn(ctx)
}

type Stats struct {
	Transactions uint64
	Contended    uint64
	Wait         time.Duration
}

func (b *Bus) Stats() Stats {
	return Stats{
		Transactions: b.transactions.Load(),
		Contended:    b.contended.Load(),
		Wait:         time.Duration(b.waitNanos.Load()),
	}
}

// Guard is exclusive ownership of the bus for one transaction.
type Guard struct {
	bus  *Bus
	once sync.Once
}

// Release returns the bus. Calling it more than once is a no-op.
func (g *Guard) Release() {
	g.once.Do(func() { g.bus.sem.Release(1) })
}
