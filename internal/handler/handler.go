package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/reviewgate/reviewgate/internal/balancer"
	"github.com/reviewgate/reviewgate/internal/github"
	"github.com/reviewgate/reviewgate/internal/metrics"
	"github.com/reviewgate/reviewgate/internal/provider"
	"github.com/reviewgate/reviewgate/internal/review"
)

// Handler serves the review API on top of the provider load balancer.
type Handler struct {
	logger           *slog.Logger
	balancer         *balancer.LoadBalancer
	github           *github.Client
	metricsCollector *metrics.Collector
}

func New(logger *slog.Logger, lb *balancer.LoadBalancer, gh *github.Client, collector *metrics.Collector) *Handler {
	return &Handler{
		logger:           logger,
		balancer:         lb,
		github:           gh,
		metricsCollector: collector,
	}
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// ReviewPR runs the full review flow: parse the PR URL, fetch metadata and
// changed files, assemble the prompt, dispatch it through the balancer and
// optionally post the result back as a PR comment.
func (h *Handler) ReviewPR(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	logger := h.logger.With(slog.String("request_id", requestID))

	h.emitEvent(metrics.MetricEvent{Type: metrics.EventRequestReceived, Timestamp: time.Now()})

	if h.github == nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:     "GitHub not configured",
			RequestID: requestID,
		})
		return
	}

	var req review.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:     "invalid request body: " + err.Error(),
			RequestID: requestID,
		})
		return
	}

	owner, repo, number, err := github.ParsePRURL(req.PRURL)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), RequestID: requestID})
		return
	}

	logger.Info("review requested",
		slog.String("repo", owner+"/"+repo),
		slog.Int("pr", number),
		slog.Bool("auto_comment", req.AutoComment))

	details, files, err := h.github.GetPRDetailsAndFiles(r.Context(), owner, repo, number)
	if err != nil {
		h.writeGitHubError(w, logger, requestID, err)
		return
	}

	if len(files) == 0 {
		writeJSON(w, http.StatusOK, map[string]string{"message": "No files changed in this PR"})
		return
	}

	prompt := review.BuildPrompt(details, files)

	result, err := h.balancer.GenerateReview(r.Context(), prompt, provider.GenerateOptions{})
	if err != nil {
		h.writeBalancerError(w, logger, requestID, err)
		return
	}

	commented := false
	if req.AutoComment {
		if err := h.github.PostReviewComment(r.Context(), owner, repo, number, result.Content); err != nil {
			// The review itself succeeded; report it and flag the comment failure.
			logger.Warn("posting review comment failed", slog.String("error", err.Error()))
		} else {
			commented = true
		}
	}

	logger.Info("review completed",
		slog.String("provider", result.Balancer.ProviderUsed),
		slog.Int64("latency_ms", result.Balancer.LatencyMs),
		slog.Int("files_reviewed", len(files)))

	writeJSON(w, http.StatusOK, review.Response{
		Status:        "success",
		FilesReviewed: len(files),
		ReviewContent: result.Content,
		ProviderUsed:  result.Balancer.ProviderUsed,
		Commented:     commented,
		RequestID:     requestID,
	})
}

// Health reports service liveness and the configuration state of the
// review dependencies.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	githubState := "missing_token"
	if h.github != nil {
		githubState = "configured"
	}

	stats := h.balancer.Stats()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"services": map[string]any{
			"github": githubState,
			"llm": map[string]any{
				"providers_total":   stats.Providers.Total,
				"providers_healthy": stats.Providers.Healthy,
			},
		},
	})
}

// LLMStatus refreshes provider health and returns balancer statistics with
// per-provider details.
func (h *Handler) LLMStatus(w http.ResponseWriter, r *http.Request) {
	h.balancer.RefreshAll(r.Context())

	writeJSON(w, http.StatusOK, map[string]any{
		"stats":     h.balancer.Stats(),
		"providers": h.balancer.ProviderDetails(),
	})
}

func (h *Handler) writeGitHubError(w http.ResponseWriter, logger *slog.Logger, requestID string, err error) {
	status := http.StatusBadGateway

	var apiErr *github.APIError
	if errors.As(err, &apiErr) {
		// Pass the upstream status through so 404s and auth failures keep
		// their meaning for the caller.
		status = apiErr.StatusCode
	}

	logger.Warn("GitHub request failed",
		slog.Int("status", status),
		slog.String("error", err.Error()))

	writeJSON(w, status, errorResponse{Error: err.Error(), RequestID: requestID})
}

func (h *Handler) writeBalancerError(w http.ResponseWriter, logger *slog.Logger, requestID string, err error) {
	status := http.StatusBadGateway
	if errors.Is(err, balancer.ErrNoAvailableProviders) {
		status = http.StatusServiceUnavailable
	}

	logger.Error("review generation failed",
		slog.Int("status", status),
		slog.String("error", err.Error()))

	writeJSON(w, status, errorResponse{Error: err.Error(), RequestID: requestID})
}

func (h *Handler) emitEvent(event metrics.MetricEvent) {
	if h.metricsCollector == nil {
		return
	}
	h.metricsCollector.Emit(event)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
