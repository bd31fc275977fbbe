// Mockprovider is an OpenAI-compatible stub server for local balancer testing.
// It answers the model lookup and chat completion endpoints with configurable
// latency and failure rate, so failover behavior can be exercised without
// real API keys.
//
// Usage:
//
//	go run ./scripts/mockprovider -port 8091 -latency 200ms -fail-rate 0.0
//	go run ./scripts/mockprovider -port 8092 -latency 50ms -fail-rate 0.5
//
// Point a provider's base_url at http://localhost:<port> to use it.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
)

func main() {
	port := flag.Int("port", 8091, "port to listen on")
	model := flag.String("model", "gpt-4o-mini", "model id to report")
	latency := flag.Duration("latency", 100*time.Millisecond, "artificial response delay")
	failRate := flag.Float64("fail-rate", 0.0, "fraction of completion calls answered with 500")
	flag.Parse()

	mux := http.NewServeMux()

	mux.HandleFunc("GET /models/", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(*latency)
		writeJSON(w, http.StatusOK, map[string]string{"id": *model, "object": "model"})
	})

	mux.HandleFunc("POST /chat/completions", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		log.Printf("request: path=%s from=%s bytes=%d", r.URL.Path, r.RemoteAddr, len(body))

		time.Sleep(*latency)

		if rand.Float64() < *failRate {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "injected failure"})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"id":    "chatcmpl-" + uuid.NewString(),
			"model": *model,
			"choices": []map[string]any{
				{
					"index": 0,
					"message": map[string]string{
						"role":    "assistant",
						"content": "Mock review: the change looks reasonable. Consider adding tests for the error paths.",
					},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]int{"prompt_tokens": 100, "completion_tokens": 20, "total_tokens": 120},
		})
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("starting mock provider on %s (model=%s latency=%v fail-rate=%.2f)", addr, *model, *latency, *failRate)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
