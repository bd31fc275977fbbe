package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAPIBase = "https://api.github.com"
	userAgent      = "reviewgate/1.0"
)

var prURLRe = regexp.MustCompile(`^https://github\.com/([^/]+)/([^/]+)/pull/(\d+)$`)

// APIError is a non-success response from the GitHub REST API. The status code
// is preserved so callers can map it onto their own responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GitHub API error (status %d): %s", e.StatusCode, e.Body)
}

// PRDetails is the subset of pull request metadata used to build review prompts.
type PRDetails struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	State     string `json:"state"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	User      struct {
		Login string `json:"login"`
	} `json:"user"`
	Head struct {
		Ref string `json:"ref"`
	} `json:"head"`
	Base struct {
		Ref string `json:"ref"`
	} `json:"base"`
}

// PRFile is one changed file in a pull request, including its unified diff.
type PRFile struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Patch     string `json:"patch"`
}

// Client provides access to the GitHub REST API using a personal access token.
type Client struct {
	token   string
	apiBase string
	httpCli *http.Client
	logger  *slog.Logger
}

// NewClient creates a GitHub client. An empty apiBase falls back to the
// public API endpoint.
func NewClient(token, apiBase string, logger *slog.Logger) *Client {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}

	return &Client{
		token:   token,
		apiBase: strings.TrimRight(apiBase, "/"),
		httpCli: &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

// ParsePRURL extracts owner, repo and pull request number from a browser URL
// of the form https://github.com/owner/repo/pull/123.
func ParsePRURL(prURL string) (owner, repo string, number int, err error) {
	m := prURLRe.FindStringSubmatch(strings.TrimSpace(prURL))
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid GitHub PR URL format, expected https://github.com/owner/repo/pull/number")
	}

	number, err = strconv.Atoi(m[3])
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid PR number %q: %w", m[3], err)
	}

	return m[1], m[2], number, nil
}

// GetPRDetails fetches pull request metadata.
func (c *Client) GetPRDetails(ctx context.Context, owner, repo string, number int) (*PRDetails, error) {
	body, err := c.get(ctx, fmt.Sprintf("/repos/%s/%s/pulls/%d", owner, repo, number))
	if err != nil {
		return nil, err
	}

	var details PRDetails
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, fmt.Errorf("parsing PR details: %w", err)
	}

	return &details, nil
}

// GetPRFiles fetches the changed files of a pull request with their patches.
func (c *Client) GetPRFiles(ctx context.Context, owner, repo string, number int) ([]PRFile, error) {
	body, err := c.get(ctx, fmt.Sprintf("/repos/%s/%s/pulls/%d/files", owner, repo, number))
	if err != nil {
		return nil, err
	}

	var files []PRFile
	if err := json.Unmarshal(body, &files); err != nil {
		return nil, fmt.Errorf("parsing PR files: %w", err)
	}

	return files, nil
}

// GetPRDetailsAndFiles fetches metadata and changed files in one call.
func (c *Client) GetPRDetailsAndFiles(ctx context.Context, owner, repo string, number int) (*PRDetails, []PRFile, error) {
	details, err := c.GetPRDetails(ctx, owner, repo, number)
	if err != nil {
		return nil, nil, err
	}

	files, err := c.GetPRFiles(ctx, owner, repo, number)
	if err != nil {
		return nil, nil, err
	}

	return details, files, nil
}

// PostReviewComment posts a plain issue comment on the pull request
// conversation thread.
func (c *Client) PostReviewComment(ctx context.Context, owner, repo string, number int, comment string) error {
	payload, err := json.Marshal(map[string]string{"body": comment})
	if err != nil {
		return fmt.Errorf("marshaling comment: %w", err)
	}

	endpoint := fmt.Sprintf("/repos/%s/%s/issues/%d/comments", owner, repo, number)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return fmt.Errorf("posting comment: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	c.logger.Info("posted review comment",
		slog.String("repo", owner+"/"+repo),
		slog.Int("pr", number))

	return nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling GitHub: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", userAgent)
}
