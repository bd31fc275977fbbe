package provider_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/reviewgate/reviewgate/internal/provider"
)

func hfSettings(baseURL string) provider.Settings {
	return provider.Settings{
		APIKey:            "hf-test-key",
		Model:             "meta-llama/Meta-Llama-3-8B-Instruct",
		BaseURL:           baseURL,
		MaxTokens:         512,
		Temperature:       0.2,
		RequestTimeout:    5 * time.Second,
		RequestsPerMinute: 600,
	}
}

var _ = Describe("HuggingFace", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("HealthCheck", func() {
		It("should send a one-token probe without waiting for a cold model", func() {
			var received map[string]any
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/models/meta-llama/Meta-Llama-3-8B-Instruct"))
				Expect(r.Header.Get("Authorization")).To(Equal("Bearer hf-test-key"))
				Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
				json.NewEncoder(w).Encode([]map[string]string{{"generated_text": "pong"}})
			}))
			defer server.Close()

			adapter := provider.NewHuggingFace(hfSettings(server.URL), testLogger())
			result := adapter.HealthCheck(ctx)

			Expect(result.Status).To(Equal(provider.StatusOK))
			Expect(result.Provider).To(Equal("huggingface"))

			params := received["parameters"].(map[string]any)
			Expect(params["max_new_tokens"]).To(BeEquivalentTo(1))
			options := received["options"].(map[string]any)
			Expect(options["wait_for_model"]).To(BeFalse())
		})

		It("should map a loading model to a degraded probe", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			}))
			defer server.Close()

			adapter := provider.NewHuggingFace(hfSettings(server.URL), testLogger())
			result := adapter.HealthCheck(ctx)

			Expect(result.Status).To(Equal(provider.StatusDegraded))
			Expect(result.Reason).To(Equal("model_loading_or_busy"))
		})

		It("should report degraded when the key or model is missing", func() {
			settings := hfSettings("http://unused")
			settings.Model = ""
			adapter := provider.NewHuggingFace(settings, testLogger())

			result := adapter.HealthCheck(ctx)
			Expect(result.Status).To(Equal(provider.StatusDegraded))
			Expect(result.Reason).To(Equal("missing_api_key_or_model"))
		})
	})

	Describe("GenerateReview", func() {
		It("should wait for the model and return the generated text", func() {
			var received map[string]any
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
				json.NewEncoder(w).Encode([]map[string]string{{"generated_text": "consider extracting a helper"}})
			}))
			defer server.Close()

			adapter := provider.NewHuggingFace(hfSettings(server.URL), testLogger())
			result, err := adapter.GenerateReview(ctx, "review this diff", provider.GenerateOptions{})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Content).To(Equal("consider extracting a helper"))
			Expect(result.ProviderUsed).To(Equal("huggingface"))

			Expect(received["inputs"]).To(Equal("review this diff"))
			options := received["options"].(map[string]any)
			Expect(options["wait_for_model"]).To(BeTrue())
		})

		It("should append the JSON instruction when structured output is requested", func() {
			var received map[string]any
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
				json.NewEncoder(w).Encode([]map[string]string{{"generated_text": `{"summary":"ok"}`}})
			}))
			defer server.Close()

			adapter := provider.NewHuggingFace(hfSettings(server.URL), testLogger())
			_, err := adapter.GenerateReview(ctx, "review this", provider.GenerateOptions{JSONOutput: true})
			Expect(err).NotTo(HaveOccurred())

			Expect(received["inputs"]).To(ContainSubstring("review this"))
			Expect(received["inputs"]).To(ContainSubstring("valid, minified JSON object"))
		})

		It("should accept the single-object response shape", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]string{"generated_text": "single shape"})
			}))
			defer server.Close()

			adapter := provider.NewHuggingFace(hfSettings(server.URL), testLogger())
			result, err := adapter.GenerateReview(ctx, "review this", provider.GenerateOptions{})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Content).To(Equal("single shape"))
		})

		It("should reject a payload with no generated text", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]string{"error": "something odd"})
			}))
			defer server.Close()

			adapter := provider.NewHuggingFace(hfSettings(server.URL), testLogger())
			_, err := adapter.GenerateReview(ctx, "review this", provider.GenerateOptions{})
			Expect(err).To(MatchError(ContainSubstring("unexpected Hugging Face response shape")))
		})
	})
})
