// Package review defines the review request/response model and assembles
// LLM prompts from pull request metadata and diffs.
package review
