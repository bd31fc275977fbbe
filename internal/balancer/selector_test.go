package balancer_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/reviewgate/reviewgate/internal/balancer"
	"github.com/reviewgate/reviewgate/internal/provider"
)

var _ = Describe("SelectProvider", func() {
	var (
		lb  *balancer.LoadBalancer
		ctx context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		lb = balancer.New(balancer.Options{
			HealthCheckInterval: time.Hour,
			MaxFailures:         3,
			Logger:              testLogger(),
		})
	})

	Context("with multiple healthy providers", func() {
		BeforeEach(func() {
			Expect(lb.AddProvider("openai", newStubAdapter("openai"))).To(Succeed())
			Expect(lb.AddProvider("huggingface", newStubAdapter("huggingface"))).To(Succeed())
			Expect(lb.AddProvider("anthropic", newStubAdapter("anthropic"))).To(Succeed())
			lb.RefreshAll(ctx)
		})

		It("should rotate through them in registration order", func() {
			var picked []string
			for i := 0; i < 6; i++ {
				record, err := lb.SelectProvider()
				Expect(err).NotTo(HaveOccurred())
				picked = append(picked, record.Name())
			}

			Expect(picked).To(Equal([]string{
				"openai", "huggingface", "anthropic",
				"openai", "huggingface", "anthropic",
			}))
		})
	})

	Context("with no healthy providers", func() {
		It("should fall back to the degraded tier", func() {
			degraded := newStubAdapter("openai")
			degraded.setProbeStatus(provider.StatusDegraded)
			Expect(lb.AddProvider("openai", degraded)).To(Succeed())
			lb.RefreshAll(ctx)
			Expect(lb.Providers()[0].Status()).To(Equal(balancer.StatusDegraded))

			record, err := lb.SelectProvider()
			Expect(err).NotTo(HaveOccurred())
			Expect(record.Name()).To(Equal("openai"))
		})

		It("should never pick a failed provider", func() {
			failed := newStubAdapter("openai")
			failed.setProbeStatus(provider.StatusDegraded)

			strict := balancer.New(balancer.Options{
				HealthCheckInterval: time.Hour,
				MaxFailures:         1,
				Logger:              testLogger(),
			})
			Expect(strict.AddProvider("openai", failed)).To(Succeed())
			strict.RefreshAll(ctx)
			Expect(strict.Providers()[0].Status()).To(Equal(balancer.StatusFailed))

			_, err := strict.SelectProvider()
			Expect(err).To(MatchError(balancer.ErrNoAvailableProviders))
		})
	})

	Context("with mixed tiers", func() {
		It("should keep traffic on the healthy tier", func() {
			degraded := newStubAdapter("openai")
			degraded.setProbeStatus(provider.StatusDegraded)
			Expect(lb.AddProvider("openai", degraded)).To(Succeed())
			Expect(lb.AddProvider("huggingface", newStubAdapter("huggingface"))).To(Succeed())
			lb.RefreshAll(ctx)

			for i := 0; i < 4; i++ {
				record, err := lb.SelectProvider()
				Expect(err).NotTo(HaveOccurred())
				Expect(record.Name()).To(Equal("huggingface"))
			}
		})
	})

	Context("with no providers at all", func() {
		It("should report no available providers", func() {
			_, err := lb.SelectProvider()
			Expect(err).To(MatchError(balancer.ErrNoAvailableProviders))
		})
	})
})
