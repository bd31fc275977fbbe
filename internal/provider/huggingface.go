package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// HuggingFace calls the Hugging Face serverless inference API for
// text-generation models such as the LLaMA Instruct family.
type HuggingFace struct {
	apiKey      string
	model       string
	baseURL     string
	maxTokens   int
	temperature float64
	client      *http.Client
	limiter     *rate.Limiter
	logger      *slog.Logger
}

type hfParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	ReturnFullText bool    `json:"return_full_text"`
}

type hfOptions struct {
	WaitForModel bool `json:"wait_for_model"`
	UseCache     bool `json:"use_cache"`
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
	Options    hfOptions    `json:"options"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

// NewHuggingFace creates a Hugging Face adapter from the given settings.
func NewHuggingFace(settings Settings, logger *slog.Logger) *HuggingFace {
	return &HuggingFace{
		apiKey:      settings.APIKey,
		model:       settings.Model,
		baseURL:     strings.TrimRight(settings.BaseURL, "/"),
		maxTokens:   settings.MaxTokens,
		temperature: settings.Temperature,
		client:      &http.Client{Timeout: settings.RequestTimeout},
		limiter:     newAdapterLimiter(settings.RequestsPerMinute),
		logger:      logger,
	}
}

func (h *HuggingFace) Name() string { return "huggingface" }

// HealthCheck issues a one-token inference with wait_for_model disabled so a
// cold backend answers fast instead of blocking the probe.
func (h *HuggingFace) HealthCheck(ctx context.Context) HealthResult {
	start := time.Now()

	if h.apiKey == "" || h.model == "" {
		return HealthResult{Provider: h.Name(), Status: StatusDegraded, Reason: "missing_api_key_or_model"}
	}

	payload := hfRequest{
		Inputs: "ping",
		Parameters: hfParameters{
			MaxNewTokens:   1,
			Temperature:    0.0,
			ReturnFullText: false,
		},
		Options: hfOptions{WaitForModel: false, UseCache: true},
	}

	_, err := h.doRequest(ctx, payload)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return HealthResult{
			Provider:  h.Name(),
			Status:    StatusDegraded,
			Model:     h.model,
			LatencyMs: latency,
			Reason:    healthReason(err),
		}
	}

	return HealthResult{Provider: h.Name(), Status: StatusOK, Model: h.model, LatencyMs: latency}
}

// GenerateReview sends a single-turn prompt to the configured model. JSON
// output is requested through a prompt instruction since the serverless API
// does not enforce response schemas.
func (h *HuggingFace) GenerateReview(ctx context.Context, prompt string, opts GenerateOptions) (*GenerateResult, error) {
	if h.apiKey == "" || h.model == "" {
		return nil, fmt.Errorf("no Hugging Face API key or model configured")
	}

	effectivePrompt := prompt
	if opts.JSONOutput {
		effectivePrompt = prompt + "\n\nReturn ONLY a valid, minified JSON object. Do not include any prose before or after."
	}

	params := hfParameters{
		MaxNewTokens:   h.maxTokens,
		Temperature:    h.temperature,
		ReturnFullText: false,
	}
	if opts.MaxTokens > 0 {
		params.MaxNewTokens = opts.MaxTokens
	}
	if opts.Temperature != nil {
		params.Temperature = *opts.Temperature
	}

	payload := hfRequest{
		Inputs:     effectivePrompt,
		Parameters: params,
		Options:    hfOptions{WaitForModel: true, UseCache: true},
	}

	respBody, err := h.doRequest(ctx, payload)
	if err != nil {
		return nil, err
	}

	message, err := parseHFGeneration(respBody)
	if err != nil {
		return nil, err
	}

	return &GenerateResult{
		Content:      message,
		ProviderUsed: h.Name(),
		ProviderName: "Hugging Face " + h.model,
		Usage:        map[string]int{},
	}, nil
}

// parseHFGeneration handles both response shapes the inference API returns:
// a list of generations or a single object.
func parseHFGeneration(body []byte) (string, error) {
	var list []hfGeneration
	if err := json.Unmarshal(body, &list); err == nil && len(list) > 0 && list[0].GeneratedText != "" {
		return list[0].GeneratedText, nil
	}

	var single struct {
		GeneratedText string `json:"generated_text"`
		Answer        string `json:"answer"`
	}
	if err := json.Unmarshal(body, &single); err == nil {
		if single.GeneratedText != "" {
			return single.GeneratedText, nil
		}
		if single.Answer != "" {
			return single.Answer, nil
		}
	}

	return "", fmt.Errorf("unexpected Hugging Face response shape: %s", truncate(string(body), 500))
}

func (h *HuggingFace) doRequest(ctx context.Context, payload hfRequest) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	var respBody []byte

	err = retryWithBackoff(ctx, func() error {
		if err := h.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/models/"+h.model, bytes.NewReader(reqBody))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := h.client.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			apiErr := &APIError{Provider: h.Name(), StatusCode: resp.StatusCode, Body: string(data)}
			if apiErr.Transient() {
				h.logger.Warn("retryable Hugging Face response",
					slog.Int("status", resp.StatusCode),
					slog.String("request_id", resp.Header.Get("x-request-id")))
			}
			return apiErr
		}

		respBody = data
		return nil
	})
	if err != nil {
		return nil, err
	}

	return respBody, nil
}
