// Loadtest is a concurrent HTTP load testing tool for the review API. It
// measures throughput, latency percentiles, and how responses distribute
// across LLM providers.
//
// Usage:
//
//	go run ./scripts/loadtest -url http://localhost:8080/review-pr -concurrency 10 -requests 200
//	go run ./scripts/loadtest -url http://localhost:8080/review-pr -requests 1000 -out summary.json
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type reviewResponse struct {
	Status       string `json:"status"`
	ProviderUsed string `json:"llm_provider_used"`
}

type providerStats struct {
	Count     int32
	Success   int32
	Failure   int32
	Latencies []time.Duration
}

func main() {
	var (
		url         = flag.String("url", "http://localhost:8080/review-pr", "Target URL")
		concurrency = flag.Int("concurrency", 10, "Number of concurrent workers")
		requests    = flag.Int("requests", 100, "Total number of requests to send")
		prURL       = flag.String("pr", "https://github.com/golang/go/pull/1", "PR URL to submit")
		timeoutSec  = flag.Int("timeout", 180, "Per-request timeout in seconds")
		outJSON     = flag.String("out", "", "Write JSON summary to this file (optional)")
		verbose     = flag.Bool("v", false, "Verbose per-request logging to stdout")
	)
	flag.Parse()

	body := fmt.Sprintf(`{"pr_url":%q,"auto_comment":false}`, *prURL)
	client := &http.Client{Timeout: time.Duration(*timeoutSec) * time.Second}

	jobs := make(chan int)
	var wg sync.WaitGroup

	var total, success, failure int32

	stats := make(map[string]*providerStats)
	var statsMu sync.Mutex

	var allLatencies []time.Duration
	var latMu sync.Mutex

	statusCodes := make(map[int]int32)
	var statusMu sync.Mutex

	testStart := time.Now()

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range jobs {
				atomic.AddInt32(&total, 1)
				start := time.Now()

				req, err := http.NewRequest(http.MethodPost, *url, bytes.NewBufferString(body))
				if err != nil {
					atomic.AddInt32(&failure, 1)
					continue
				}
				req.Header.Set("Content-Type", "application/json")

				resp, err := client.Do(req)
				dur := time.Since(start)

				latMu.Lock()
				allLatencies = append(allLatencies, dur)
				latMu.Unlock()

				if err != nil {
					atomic.AddInt32(&failure, 1)
					if *verbose {
						fmt.Printf("[%d] idx=%d error=%v\n", workerID, idx, err)
					}
					continue
				}

				statusMu.Lock()
				statusCodes[resp.StatusCode]++
				statusMu.Unlock()

				ok := resp.StatusCode >= 200 && resp.StatusCode <= 299
				if ok {
					atomic.AddInt32(&success, 1)
				} else {
					atomic.AddInt32(&failure, 1)
				}

				provider := "(unknown)"
				respBody, _ := io.ReadAll(resp.Body)
				resp.Body.Close()
				var parsed reviewResponse
				if err := json.Unmarshal(respBody, &parsed); err == nil && parsed.ProviderUsed != "" {
					provider = parsed.ProviderUsed
				}

				statsMu.Lock()
				ps, found := stats[provider]
				if !found {
					ps = &providerStats{}
					stats[provider] = ps
				}
				ps.Count++
				if ok {
					ps.Success++
				} else {
					ps.Failure++
				}
				ps.Latencies = append(ps.Latencies, dur)
				statsMu.Unlock()

				if *verbose {
					fmt.Printf("[%d] idx=%d provider=%s status=%d dur=%v\n", workerID, idx, provider, resp.StatusCode, dur)
				}
			}
		}(i)
	}

	go func() {
		for i := 0; i < *requests; i++ {
			jobs <- i
		}
		close(jobs)
	}()

	wg.Wait()
	totalDuration := time.Since(testStart)
	throughput := float64(total) / totalDuration.Seconds()

	fmt.Println("--- Load Test Summary ---")
	fmt.Printf("Target: %s\n", *url)
	fmt.Printf("Requests: %d  Concurrency: %d\n", *requests, *concurrency)
	fmt.Printf("Total sent: %d  Success: %d  Failure: %d\n", total, success, failure)
	fmt.Printf("Duration: %v  Throughput: %.2f req/s\n", totalDuration, throughput)

	fmt.Println("\nStatus codes:")
	var scKeys []int
	for k := range statusCodes {
		scKeys = append(scKeys, k)
	}
	sort.Ints(scKeys)
	for _, k := range scKeys {
		fmt.Printf("  %d -> %d\n", k, statusCodes[k])
	}

	fmt.Println("\nProvider distribution & stats:")
	var names []string
	for k := range stats {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		ps := stats[name]
		fmt.Printf("  %s -> total=%d success=%d failure=%d\n", name, ps.Count, ps.Success, ps.Failure)
		if len(ps.Latencies) > 0 {
			p50, p90, p95, p99 := percentiles(ps.Latencies)
			fmt.Printf("    latencies: samples=%d p50=%v p90=%v p95=%v p99=%v\n",
				len(ps.Latencies), p50, p90, p95, p99)
		}
	}

	if len(allLatencies) > 0 {
		p50, p90, p95, p99 := percentiles(allLatencies)
		fmt.Println("\nOverall latencies:")
		fmt.Printf("  samples=%d p50=%v p90=%v p95=%v p99=%v\n", len(allLatencies), p50, p90, p95, p99)
	}

	if *outJSON != "" {
		writeSummary(*outJSON, *url, *requests, *concurrency, total, success, failure, totalDuration, throughput, stats)
	}

	if failure > 0 {
		os.Exit(2)
	}
}

func percentiles(latencies []time.Duration) (p50, p90, p95, p99 time.Duration) {
	tmp := make([]time.Duration, len(latencies))
	copy(tmp, latencies)
	sort.Slice(tmp, func(i, j int) bool { return tmp[i] < tmp[j] })

	pick := func(pct float64) time.Duration {
		idx := int(float64(len(tmp)-1) * pct)
		return tmp[idx]
	}
	return pick(0.50), pick(0.90), pick(0.95), pick(0.99)
}

func writeSummary(path, target string, requests, concurrency int, total, success, failure int32, duration time.Duration, throughput float64, stats map[string]*providerStats) {
	type providerSummary struct {
		Total   int32   `json:"total"`
		Success int32   `json:"success"`
		Failure int32   `json:"failure"`
		P50     float64 `json:"p50_ms"`
		P95     float64 `json:"p95_ms"`
		P99     float64 `json:"p99_ms"`
	}

	summary := map[string]*providerSummary{}
	for name, ps := range stats {
		s := &providerSummary{Total: ps.Count, Success: ps.Success, Failure: ps.Failure}
		if len(ps.Latencies) > 0 {
			p50, _, p95, p99 := percentiles(ps.Latencies)
			s.P50 = float64(p50.Milliseconds())
			s.P95 = float64(p95.Milliseconds())
			s.P99 = float64(p99.Milliseconds())
		}
		summary[name] = s
	}

	report := map[string]any{
		"target":         target,
		"requests":       requests,
		"concurrency":    concurrency,
		"total_sent":     total,
		"success":        success,
		"failure":        failure,
		"duration_ms":    duration.Milliseconds(),
		"throughput_rps": throughput,
		"providers":      summary,
	}

	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create json file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)
	fmt.Printf("\nWrote JSON summary to %s\n", path)
}
