package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/errors"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/infrastructure/config"
)

// Client talks to the model-serving sidecar that scores headline sentiment.
// Scores are polarity values in [-1, 1]. It implements the pipeline's
// SentimentScorer contract.
type Client struct {
	baseURL string
	client  *http.Client
	breaker *circuitBreaker
	logger  *zap.Logger
}

// NewClient builds a sentiment client from configuration.
func NewClient(cfg config.SentimentConfig, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:5001"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: &circuitBreaker{threshold: 5, cooldown: 30 * time.Second},
		logger:  logger,
	}
}

type scoreRequest struct {
	Title string `json:"title"`
}

type scoreResponse struct {
	Score float64 `json:"score"`
}

// Score returns the sentiment polarity of a single article title. An empty
// title is neutral without a round trip, matching the scorer's own behavior.
func (c *Client) Score(ctx context.Context, title string) (float64, error) {
	if title == "" {
		return 0, nil
	}
	if !c.breaker.allow() {
		return 0, errors.NewFetchError("sentiment", "scorer circuit open")
	}

	payload, err := json.Marshal(scoreRequest{Title: title})
	if err != nil {
		return 0, errors.NewFetchError("sentiment", "encoding request").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/score", bytes.NewReader(payload))
	if err != nil {
		return 0, errors.NewFetchError("sentiment", "building request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.breaker.fail()
		return 0, errors.NewFetchError("sentiment", "request failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.breaker.fail()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		c.logger.Warn("sentiment scorer returned non-200",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return 0, errors.NewFetchError("sentiment", fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	var result scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.breaker.fail()
		return 0, errors.NewFetchError("sentiment", "decoding response").WithCause(err)
	}
	c.breaker.success()

	return clamp(result.Score), nil
}

// Health probes the sidecar's readiness endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sentiment health: %s", resp.Status)
	}
	return nil
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// circuitBreaker stops hammering the sidecar while it is down. A handful of
// consecutive failures open it; it closes again after the cooldown.
type circuitBreaker struct {
	mu        sync.Mutex
	failures  int
	threshold int
	openedAt  time.Time
	cooldown  time.Duration
}

func (c *circuitBreaker) allow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures < c.threshold {
		return true
	}
	if time.Since(c.openedAt) > c.cooldown {
		c.failures = 0
		c.openedAt = time.Time{}
		return true
	}
	return false
}

func (c *circuitBreaker) success() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = 0
	c.openedAt = time.Time{}
}

func (c *circuitBreaker) fail() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures++
	if c.failures >= c.threshold {
		c.openedAt = time.Now()
	}
}
