package provider_test

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/reviewgate/reviewgate/internal/provider"
)

var _ = Describe("APIError", func() {
	Describe("Transient", func() {
		It("should treat throttling and server errors as transient", func() {
			for _, code := range []int{429, 500, 502, 503, 504} {
				err := &provider.APIError{Provider: "openai", StatusCode: code}
				Expect(err.Transient()).To(BeTrue(), "status %d", code)
			}
		})

		It("should treat client errors as permanent", func() {
			for _, code := range []int{400, 401, 403, 404, 422} {
				err := &provider.APIError{Provider: "openai", StatusCode: code}
				Expect(err.Transient()).To(BeFalse(), "status %d", code)
			}
		})
	})

	Describe("Error", func() {
		It("should name the provider and status", func() {
			err := &provider.APIError{
				Provider:   "huggingface",
				StatusCode: http.StatusServiceUnavailable,
				Body:       "model is loading",
			}
			Expect(err.Error()).To(ContainSubstring("huggingface"))
			Expect(err.Error()).To(ContainSubstring("503"))
			Expect(err.Error()).To(ContainSubstring("model is loading"))
		})

		It("should truncate oversized bodies", func() {
			long := make([]byte, 5000)
			for i := range long {
				long[i] = 'x'
			}
			err := &provider.APIError{Provider: "openai", StatusCode: 500, Body: string(long)}
			Expect(len(err.Error())).To(BeNumerically("<", 1100))
		})
	})
})
