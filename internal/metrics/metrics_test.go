package metrics_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/reviewgate/reviewgate/internal/metrics"
)

var _ = Describe("Metrics", func() {
	var m *metrics.Metrics

	BeforeEach(func() {
		m = metrics.NewMetrics()
	})

	Describe("IncrementRequests", func() {
		It("should increment request count for a provider", func() {
			m.IncrementRequests("openai")
			m.IncrementRequests("openai")

			snap := m.Snapshot()
			Expect(snap.TotalRequests).To(Equal(int64(2)))
			Expect(snap.Providers["openai"].Requests).To(Equal(int64(2)))
		})

		It("should track multiple providers separately", func() {
			m.IncrementRequests("openai")
			m.IncrementRequests("huggingface")
			m.IncrementRequests("openai")

			snap := m.Snapshot()
			Expect(snap.TotalRequests).To(Equal(int64(3)))
			Expect(snap.Providers["openai"].Requests).To(Equal(int64(2)))
			Expect(snap.Providers["huggingface"].Requests).To(Equal(int64(1)))
		})
	})

	Describe("RecordCompletion", func() {
		It("should record latency and outcome", func() {
			m.RecordCompletion("openai", 100*time.Millisecond, true)
			m.RecordCompletion("openai", 200*time.Millisecond, false)

			snap := m.Snapshot()
			pm := snap.Providers["openai"]

			Expect(pm.AvgLatency).To(Equal(150 * time.Millisecond))
			Expect(pm.Successes).To(Equal(int64(1)))
			Expect(pm.Failures).To(Equal(int64(1)))
		})

		It("should calculate percentiles correctly", func() {
			for i := 1; i <= 100; i++ {
				m.RecordCompletion("openai", time.Duration(i)*time.Millisecond, true)
			}

			snap := m.Snapshot()
			pm := snap.Providers["openai"]

			Expect(pm.P50Latency).To(BeNumerically("~", 50*time.Millisecond, 1*time.Millisecond))
			Expect(pm.P95Latency).To(BeNumerically("~", 95*time.Millisecond, 1*time.Millisecond))
			Expect(pm.P99Latency).To(BeNumerically("~", 99*time.Millisecond, 1*time.Millisecond))
		})

		It("should limit stored latencies to 1000", func() {
			for i := 1; i <= 1500; i++ {
				m.RecordCompletion("openai", time.Duration(i)*time.Millisecond, true)
			}

			snap := m.Snapshot()
			Expect(snap.Providers["openai"].AvgLatency).To(BeNumerically(">", 500*time.Millisecond))
		})
	})

	Describe("RecordFailover", func() {
		It("should count failovers per provider and in total", func() {
			m.RecordFailover("openai")
			m.RecordFailover("openai")
			m.RecordFailover("huggingface")

			snap := m.Snapshot()
			Expect(snap.TotalFailovers).To(Equal(int64(3)))
			Expect(snap.Providers["openai"].Failovers).To(Equal(int64(2)))
		})
	})

	Describe("UpdateHealthStatus", func() {
		It("should track health status changes", func() {
			m.UpdateHealthStatus("openai", "healthy")
			Expect(m.Snapshot().Providers["openai"].Health).To(Equal("healthy"))

			m.UpdateHealthStatus("openai", "failed")
			Expect(m.Snapshot().Providers["openai"].Health).To(Equal("failed"))
		})
	})

	Describe("Snapshot", func() {
		It("should include uptime", func() {
			time.Sleep(10 * time.Millisecond)

			snap := m.Snapshot()
			Expect(snap.Uptime).To(BeNumerically(">", 0))
		})

		It("should handle empty metrics", func() {
			snap := m.Snapshot()

			Expect(snap.TotalRequests).To(Equal(int64(0)))
			Expect(snap.Providers).To(BeEmpty())
		})

		It("should return independent snapshots", func() {
			m.IncrementRequests("openai")

			snap1 := m.Snapshot()
			m.IncrementRequests("openai")
			snap2 := m.Snapshot()

			Expect(snap1.TotalRequests).To(Equal(int64(1)))
			Expect(snap2.TotalRequests).To(Equal(int64(2)))
		})
	})
})
