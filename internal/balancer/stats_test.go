package balancer_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/reviewgate/reviewgate/internal/balancer"
	"github.com/reviewgate/reviewgate/internal/provider"
)

var _ = Describe("Stats", func() {
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

	Context("before any traffic", func() {
		It("should report zero totals and a 0% distribution", func() {
			Expect(lb.AddProvider("openai", newStubAdapter("openai"))).To(Succeed())
			Expect(lb.AddProvider("huggingface", newStubAdapter("huggingface"))).To(Succeed())

			stats := lb.Stats()
			Expect(stats.TotalRequests).To(Equal(int64(0)))
			Expect(stats.Providers.Total).To(Equal(2))
			Expect(stats.Providers.Unknown).To(Equal(2))
			Expect(stats.Distribution).To(HaveKeyWithValue("openai", "0%"))
			Expect(stats.Distribution).To(HaveKeyWithValue("huggingface", "0%"))
		})
	})

	Context("after traffic has flowed", func() {
		It("should count providers per state", func() {
			failing := newStubAdapter("openai")
			failing.setGenerateErr(errors.New("boom"))
			Expect(lb.AddProvider("openai", failing)).To(Succeed())
			Expect(lb.AddProvider("huggingface", newStubAdapter("huggingface"))).To(Succeed())

			_, err := lb.GenerateReview(ctx, "review this", provider.GenerateOptions{})
			Expect(err).NotTo(HaveOccurred())

			stats := lb.Stats()
			Expect(stats.Providers.Healthy).To(Equal(1))
			Expect(stats.Providers.Degraded).To(Equal(1))
			Expect(stats.Providers.Failed).To(Equal(0))
		})

		It("should attribute the distribution to the serving provider", func() {
			Expect(lb.AddProvider("openai", newStubAdapter("openai"))).To(Succeed())

			for i := 0; i < 4; i++ {
				_, err := lb.GenerateReview(ctx, "review this", provider.GenerateOptions{})
				Expect(err).NotTo(HaveOccurred())
			}

			stats := lb.Stats()
			Expect(stats.TotalRequests).To(Equal(int64(4)))
			Expect(stats.Distribution).To(HaveKeyWithValue("openai", "100.0%"))
		})

		It("should split the distribution across serving providers", func() {
			Expect(lb.AddProvider("openai", newStubAdapter("openai"))).To(Succeed())
			Expect(lb.AddProvider("huggingface", newStubAdapter("huggingface"))).To(Succeed())

			for i := 0; i < 4; i++ {
				_, err := lb.GenerateReview(ctx, "review this", provider.GenerateOptions{})
				Expect(err).NotTo(HaveOccurred())
			}

			stats := lb.Stats()
			Expect(stats.Distribution).To(HaveKeyWithValue("openai", "50.0%"))
			Expect(stats.Distribution).To(HaveKeyWithValue("huggingface", "50.0%"))
		})

		It("should expose the last probe time once checks have run", func() {
			Expect(lb.AddProvider("openai", newStubAdapter("openai"))).To(Succeed())

			Expect(lb.Stats().LastHealthCheck.IsZero()).To(BeTrue())
			lb.RefreshAll(ctx)
			Expect(lb.Stats().LastHealthCheck.IsZero()).To(BeFalse())
		})
	})

	Describe("ProviderDetails", func() {
		It("should mirror per-provider counters", func() {
			adapter := newStubAdapter("openai")
			Expect(lb.AddProvider("openai", adapter)).To(Succeed())

			_, err := lb.GenerateReview(ctx, "review this", provider.GenerateOptions{})
			Expect(err).NotTo(HaveOccurred())

			detail := findDetail(lb.ProviderDetails(), "openai")
			Expect(detail.Status).To(Equal(balancer.StatusHealthy))
			Expect(detail.RequestsHandled).To(Equal(int64(1)))
			Expect(detail.ConsecutiveFailures).To(Equal(0))
			Expect(detail.LastRequest.IsZero()).To(BeFalse())
			Expect(detail.LastHealthCheck.IsZero()).To(BeFalse())
		})
	})
})
