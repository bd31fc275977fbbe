// Package balancer routes generation requests across interchangeable LLM
// provider adapters. It tracks a health state machine per provider, probes
// all providers concurrently behind a global rate gate, selects providers
// with a tiered round-robin policy (healthy first, degraded as fallback),
// retries failed requests against alternate providers until every eligible
// provider has been tried once, and exposes utilization and latency
// statistics.
package balancer
