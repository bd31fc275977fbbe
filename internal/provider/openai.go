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

const openaiSystemPrompt = "You are an expert software engineer and strict code reviewer."

// OpenAI calls the OpenAI chat-completions API (or any compatible gateway).
type OpenAI struct {
	apiKey      string
	model       string
	baseURL     string
	maxTokens   int
	temperature float64
	client      *http.Client
	limiter     *rate.Limiter
	logger      *slog.Logger
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiRequest struct {
	Model          string           `json:"model"`
	Messages       []openaiMessage  `json:"messages"`
	MaxTokens      int              `json:"max_tokens"`
	Temperature    float64          `json:"temperature"`
	ResponseFormat *responseFormat  `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type openaiResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage map[string]int `json:"usage"`
}

type openaiModel struct {
	ID string `json:"id"`
}

// NewOpenAI creates an OpenAI adapter from the given settings.
func NewOpenAI(settings Settings, logger *slog.Logger) *OpenAI {
	return &OpenAI{
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

func (o *OpenAI) Name() string { return "openai" }

// HealthCheck verifies key validity and model accessibility with a model
// lookup, which is cheaper than a completion. It never returns an error.
func (o *OpenAI) HealthCheck(ctx context.Context) HealthResult {
	start := time.Now()

	if o.apiKey == "" {
		return HealthResult{Provider: o.Name(), Status: StatusDegraded, Reason: "missing_api_key"}
	}

	body, err := o.doRequest(ctx, http.MethodGet, "/models/"+o.model, nil)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return HealthResult{
			Provider:  o.Name(),
			Status:    StatusDegraded,
			Model:     o.model,
			LatencyMs: latency,
			Reason:    healthReason(err),
		}
	}

	var m openaiModel
	model := o.model
	if err := json.Unmarshal(body, &m); err == nil && m.ID != "" {
		model = m.ID
	}

	return HealthResult{Provider: o.Name(), Status: StatusOK, Model: model, LatencyMs: latency}
}

// GenerateReview sends the prompt as a single-turn chat completion.
func (o *OpenAI) GenerateReview(ctx context.Context, prompt string, opts GenerateOptions) (*GenerateResult, error) {
	if o.apiKey == "" {
		return nil, fmt.Errorf("no OpenAI API key configured")
	}

	payload := openaiRequest{
		Model: o.model,
		Messages: []openaiMessage{
			{Role: "system", Content: openaiSystemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
	}
	if opts.MaxTokens > 0 {
		payload.MaxTokens = opts.MaxTokens
	}
	if opts.Temperature != nil {
		payload.Temperature = *opts.Temperature
	}
	if opts.JSONOutput {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	respBody, err := o.doRequest(ctx, http.MethodPost, "/chat/completions", reqBody)
	if err != nil {
		return nil, err
	}

	var result openaiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("unexpected OpenAI response shape: %s", truncate(string(respBody), 500))
	}

	return &GenerateResult{
		Content:      result.Choices[0].Message.Content,
		ProviderUsed: o.Name(),
		ProviderName: "OpenAI " + o.model,
		Usage:        result.Usage,
		ID:           result.ID,
	}, nil
}

func (o *OpenAI) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var respBody []byte

	err := retryWithBackoff(ctx, func() error {
		if err := o.limiter.Wait(ctx); err != nil {
			return err
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, o.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := o.client.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			apiErr := &APIError{Provider: o.Name(), StatusCode: resp.StatusCode, Body: string(data)}
			if apiErr.Transient() {
				o.logger.Warn("retryable OpenAI response",
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
