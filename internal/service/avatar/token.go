package avatar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL  = "https://api.heygen.com"
	createTokenPath = "/v1/streaming.create_token"
)

// ErrNotConfigured is returned when no API key was supplied.
var ErrNotConfigured = errors.New("avatar api key is not configured")

// TokenIssuer mints short-lived access tokens for the browser avatar SDK.
type TokenIssuer interface {
	IssueAccessToken(ctx context.Context) (string, error)
}

// Config describes the avatar vendor API.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Enabled reports whether a key is available.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// Client calls the HeyGen streaming token endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a token client. A missing key is only reported when a
// token is requested.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

type createTokenResponse struct {
	Data struct {
		Token string `json:"token"`
	} `json:"data"`
	Error any `json:"error"`
}

// IssueAccessToken requests a new streaming token. The token is opaque to
// this service and only handed back to the caller.
func (c *Client) IssueAccessToken(ctx context.Context) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+createTokenPath, bytes.NewReader([]byte("{}")))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("token endpoint returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed createTokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if parsed.Data.Token == "" {
		return "", errors.New("token endpoint returned an empty token")
	}
	return parsed.Data.Token, nil
}
