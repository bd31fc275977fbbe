// Package handler implements the HTTP handlers of the review API.
// It coordinates PR fetching, prompt assembly, provider dispatch and
// error mapping.
package handler
