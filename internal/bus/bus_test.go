package bus_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/balancer/internal/bus"
)

var _ = Describe("Bus", func() {
	var b *bus.Bus

	BeforeEach(func() {
		b = bus.New("i2c0")
	})

	It("should hand out one guard at a time", func() {
		g, err := b.Acquire(context.Background())
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = b.Acquire(ctx)
		Expect(err).To(MatchError(context.DeadlineExceeded))

		g.Release()
		g2, err := b.Acquire(context.Background())
		Expect(err).NotTo(HaveOccurred())
		g2.Release()
	})

	It("should tolerate releasing a guard twice", func() {
		g, err := b.Acquire(context.Background())
		Expect(err).NotTo(HaveOccurred())
		g.Release()
		g.Release()

		g, err = b.Acquire(context.Background())
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err = b.Acquire(ctx)
		Expect(err).To(HaveOccurred())
		g.Release()
	})

	It("should never overlap transactions", func() {
		var inside, overlaps atomic.Int32
		var wg sync.WaitGroup

		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				for i := 0; i < 50; i++ {
					err := b.Do(context.Background(), func(context.Context) error {
						if inside.Add(1) > 1 {
							overlaps.Add(1)
						}
						time.Sleep(50 * time.Microsecond)
						inside.Add(-1)
						return nil
					})
					Expect(err).NotTo(HaveOccurred())
				}
			}()
		}
		wg.Wait()

		Expect(overlaps.Load()).To(BeZero())
		Expect(b.Stats().Transactions).To(Equal(uint64(200)))
	})

	It("should release the bus when the transaction fails", func() {
		boom := errors.New("nack")
		err := b.Do(context.Background(), func(context.Context) error { return boom })
		Expect(err).To(MatchError(boom))

		g, err := b.Acquire(context.Background())
		Expect(err).NotTo(HaveOccurred())
		g.Release()
	})

	It("should count contended acquisitions", func() {
		g, err := b.Acquire(context.Background())
		Expect(err).NotTo(HaveOccurred())

		done := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			defer close(done)
			g2, err := b.Acquire(context.Background())
			Expect(err).NotTo(HaveOccurred())
			g2.Release()
		}()

		Eventually(func() uint64 { return b.Stats().Contended }).Should(Equal(uint64(1)))
		g.Release()
		Eventually(done).Should(BeClosed())
		Expect(b.Stats().Transactions).To(Equal(uint64(2)))
	})
})
