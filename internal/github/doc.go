// Package github is a thin client for the GitHub REST API, covering the
// pull request endpoints the review flow needs: metadata, changed files
// with patches, and conversation comments.
package github
