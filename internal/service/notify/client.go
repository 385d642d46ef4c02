package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultUserAgent  = "HeyGen-Interview-Bot/1.0"
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 3
)

// ErrNoWebhookURL is returned when neither the request nor the
// configuration names a destination.
var ErrNoWebhookURL = errors.New("webhook URL not configured")

// Config describes the automation endpoints.
type Config struct {
	StartedURL      string
	EndedURL        string
	UserAgent       string
	Timeout         time.Duration
	MaxRetries      int
	InitialInterval time.Duration
}

// Delivery describes a successful webhook call.
type Delivery struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body,omitempty"`
	Attempts   int    `json:"attempts"`
}

// Notifier delivers interview events to the external automation.
type Notifier interface {
	URLFor(event EventType, override string) string
	Send(ctx context.Context, url string, payload Payload) (Delivery, error)
}

// Client posts JSON payloads to the automation webhooks, retrying transient
// failures with exponential backoff.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a webhook client.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

// URLFor picks the override if present, else the configured URL for event.
func (c *Client) URLFor(event EventType, override string) string {
	if url := strings.TrimSpace(override); url != "" {
		return url
	}
	switch event {
	case EventInterviewStarted:
		return strings.TrimSpace(c.cfg.StartedURL)
	case EventInterviewEnded:
		return strings.TrimSpace(c.cfg.EndedURL)
	default:
		return ""
	}
}

// Send posts payload to url. 4xx answers are not retried.
func (c *Client) Send(ctx context.Context, url string, payload Payload) (Delivery, error) {
	if strings.TrimSpace(url) == "" {
		return Delivery{}, ErrNoWebhookURL
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Delivery{}, fmt.Errorf("encode %s payload: %w", payload.Event, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.cfg.InitialInterval
	expo.MaxElapsedTime = c.cfg.Timeout
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(c.cfg.MaxRetries)), ctx)

	var delivery Delivery
	operation := func() error {
		delivery.Attempts++
		status, respBody, err := c.post(ctx, url, body)
		if err != nil {
			return err
		}
		if status >= 400 && status < 500 {
			return backoff.Permanent(fmt.Errorf("HTTP %d: %s", status, respBody))
		}
		if status >= 500 {
			return fmt.Errorf("HTTP %d: %s", status, respBody)
		}
		delivery.StatusCode = status
		delivery.Body = respBody
		return nil
	}

	notifyRetry := func(err error, wait time.Duration) {
		log.Printf("[notify] %s delivery for session=%s failed (%v), retrying in %s", payload.Event, payload.SessionID, err, wait)
	}

	if err := backoff.RetryNotify(operation, policy, notifyRetry); err != nil {
		log.Printf("[notify] %s delivery for session=%s gave up after %d attempts: %v", payload.Event, payload.SessionID, delivery.Attempts, err)
		return Delivery{Attempts: delivery.Attempts}, err
	}

	log.Printf("[notify] %s delivered for session=%s to %s", payload.Event, payload.SessionID, MaskURL(url))
	return delivery, nil
}

func (c *Client) post(ctx context.Context, url string, body []byte) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, "", backoff.Permanent(fmt.Errorf("build webhook request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return 0, "", fmt.Errorf("read webhook response: %w", err)
	}
	return resp.StatusCode, strings.TrimSpace(string(respBody)), nil
}

// MaskURL hides the last path segment, which usually carries the webhook
// token.
func MaskURL(url string) string {
	idx := strings.LastIndex(url, "/")
	if idx < 0 || idx < strings.Index(url, "://")+3 {
		return url
	}
	return url[:idx] + "/***"
}
