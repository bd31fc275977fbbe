// Package provider defines the adapter capability each LLM backend exposes
// to the load balancer (a cheap health probe plus a generation call) and
// implements adapters for the OpenAI chat-completions API and the Hugging
// Face inference API. Adapters own their transport-level retry policy and
// client-side rate limiting; the balancer only sees the final outcome of
// each call.
package provider
