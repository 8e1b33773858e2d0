package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/errors"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/event"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/infrastructure/config"
)

const systemPrompt = "You are a helpful assistant that summarizes news articles objectively and accurately."

// An article scoring below this is grouped into the negative section of the
// prompt.
const negativeCutoff = 0.4

// OpenAIClient produces a narrative summary of a run's scored articles via
// the chat completions API. It implements the pipeline's Summarizer
// contract.
type OpenAIClient struct {
	cfg    config.OpenAIConfig
	client *http.Client
	logger *zap.Logger
}

// NewOpenAIClient builds a summarizer client from configuration.
func NewOpenAIClient(cfg config.OpenAIConfig, logger *zap.Logger) *OpenAIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Summarize renders the articles into a two-section prompt split by
// sentiment and returns the model's narrative. The caller never passes an
// empty slice.
func (c *OpenAIClient) Summarize(ctx context.Context, articles []event.Article) (string, error) {
	if c.cfg.APIKey == "" {
		return "", errors.NewSummarizationError("missing API key")
	}

	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(articles)},
		},
		Temperature: 0,
		MaxTokens:   1000,
	})
	if err != nil {
		return "", errors.NewSummarizationError("encoding request").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", errors.NewSummarizationError("building request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errors.NewSummarizationError("request failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("openai returned non-200",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw))
		return "", errors.NewSummarizationError(fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", errors.NewSummarizationError("decoding response").WithCause(err)
	}
	if result.Error != nil {
		return "", errors.NewSummarizationError(result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", errors.NewSummarizationError("response carried no choices")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// buildPrompt groups articles by their already-computed score and asks for a
// two-section negative/positive summary.
func buildPrompt(articles []event.Article) string {
	var negative, positive []event.Article
	for _, a := range articles {
		if a.Score < negativeCutoff {
			negative = append(negative, a)
		} else {
			positive = append(positive, a)
		}
	}

	var b strings.Builder
	b.WriteString("Here are news articles about a specific country or region.\n")

	if len(negative) > 0 {
		b.WriteString("\nNEGATIVE NEWS ARTICLES:\n")
		for i, a := range negative {
			fmt.Fprintf(&b, "Negative Article %d:\nTitle: %s\nSummary: %s\n\n", i+1, a.Title, a.Snippet)
		}
	}
	if len(positive) > 0 {
		b.WriteString("\nPOSITIVE NEWS ARTICLES:\n")
		for i, a := range positive {
			fmt.Fprintf(&b, "Positive Article %d:\nTitle: %s\nSummary: %s\n\n", i+1, a.Title, a.Snippet)
		}
	}

	b.WriteString(`
Please provide a concise summary that includes TWO distinct sections:

SECTION 1: NEGATIVE NEWS SUMMARY
1. The main negative events or issues being reported
2. Common themes or patterns across the negative articles

SECTION 2: POSITIVE NEWS SUMMARY
1. The main positive developments or achievements being reported
2. Common themes or patterns of progress across the positive articles

Use markdown headers and bullet points, keep the response factual,
balanced, and under 1000 words.`)

	return b.String()
}
