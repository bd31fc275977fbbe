package balancer_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/reviewgate/reviewgate/internal/balancer"
	"github.com/reviewgate/reviewgate/internal/provider"
)

var _ = Describe("RefreshAll", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("should probe every provider on the first pass", func() {
		lb := balancer.New(balancer.Options{
			HealthCheckInterval: time.Hour,
			Logger:              testLogger(),
		})
		a := newStubAdapter("openai")
		b := newStubAdapter("huggingface")
		Expect(lb.AddProvider("openai", a)).To(Succeed())
		Expect(lb.AddProvider("huggingface", b)).To(Succeed())

		lb.RefreshAll(ctx)

		Expect(a.probeCount()).To(Equal(1))
		Expect(b.probeCount()).To(Equal(1))
		Expect(lb.Providers()[0].Status()).To(Equal(balancer.StatusHealthy))
		Expect(lb.Providers()[1].Status()).To(Equal(balancer.StatusHealthy))
	})

	It("should skip probing while the interval has not elapsed", func() {
		lb := balancer.New(balancer.Options{
			HealthCheckInterval: time.Hour,
			Logger:              testLogger(),
		})
		a := newStubAdapter("openai")
		Expect(lb.AddProvider("openai", a)).To(Succeed())

		lb.RefreshAll(ctx)
		lb.RefreshAll(ctx)
		lb.RefreshAll(ctx)

		Expect(a.probeCount()).To(Equal(1))
	})

	It("should probe again once the interval elapses", func() {
		lb := balancer.New(balancer.Options{
			HealthCheckInterval: 5 * time.Millisecond,
			Logger:              testLogger(),
		})
		a := newStubAdapter("openai")
		Expect(lb.AddProvider("openai", a)).To(Succeed())

		lb.RefreshAll(ctx)
		Expect(a.probeCount()).To(Equal(1))

		Eventually(func() int {
			lb.RefreshAll(ctx)
			return a.probeCount()
		}).Should(BeNumerically(">=", 2))
	})

	It("should degrade a provider whose probe fails", func() {
		lb := balancer.New(balancer.Options{
			HealthCheckInterval: time.Hour,
			MaxFailures:         3,
			Logger:              testLogger(),
		})
		a := newStubAdapter("openai")
		a.setProbeStatus(provider.StatusDegraded)
		Expect(lb.AddProvider("openai", a)).To(Succeed())

		lb.RefreshAll(ctx)

		record := lb.Providers()[0]
		Expect(record.Status()).To(Equal(balancer.StatusDegraded))
		Expect(record.ConsecutiveFailures()).To(Equal(1))
	})

	It("should bring a failed provider back through a clean probe", func() {
		lb := balancer.New(balancer.Options{
			HealthCheckInterval: time.Millisecond,
			MaxFailures:         2,
			Logger:              testLogger(),
		})
		a := newStubAdapter("openai")
		a.setProbeStatus(provider.StatusDegraded)
		Expect(lb.AddProvider("openai", a)).To(Succeed())

		Eventually(func() balancer.ProviderStatus {
			lb.RefreshAll(ctx)
			return lb.Providers()[0].Status()
		}).Should(Equal(balancer.StatusFailed))

		a.setProbeStatus(provider.StatusOK)

		Eventually(func() balancer.ProviderStatus {
			lb.RefreshAll(ctx)
			return lb.Providers()[0].Status()
		}).Should(Equal(balancer.StatusHealthy))
		Expect(lb.Providers()[0].ConsecutiveFailures()).To(Equal(0))
	})

	It("should stamp the probe time on each record", func() {
		lb := balancer.New(balancer.Options{
			HealthCheckInterval: time.Hour,
			Logger:              testLogger(),
		})
		a := newStubAdapter("openai")
		Expect(lb.AddProvider("openai", a)).To(Succeed())

		Expect(lb.Providers()[0].LastHealthCheckAt().IsZero()).To(BeTrue())
		lb.RefreshAll(ctx)
		Expect(lb.Providers()[0].LastHealthCheckAt().IsZero()).To(BeFalse())
	})
})
