package news

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/errors"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/event"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/infrastructure/config"
)

// SerperClient retrieves recent news coverage for a country through the
// Serper news search API. It implements the pipeline's ArticleSource
// contract.
type SerperClient struct {
	cfg    config.NewsConfig
	client *http.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewSerperClient builds a news client from configuration.
func NewSerperClient(cfg config.NewsConfig, logger *zap.Logger) *SerperClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://google.serper.dev/news"
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SerperClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger,
		now:    time.Now,
	}
}

type searchRequest struct {
	Query     string `json:"q"`
	TimeRange string `json:"timeRange"`
}

type searchResponse struct {
	News []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
		Date    string `json:"date"`
	} `json:"news"`
}

// FetchArticles returns news items for the given country within the
// configured lookback window. Serper only supports coarse recency windows,
// so the lookback is mapped to the closest supported one. Publication times
// come from the response's date field; items with an unparseable date fall
// back to the fetch time. An empty result set is an empty slice.
func (c *SerperClient) FetchArticles(ctx context.Context, country string) ([]event.Article, error) {
	if c.cfg.APIKey == "" {
		return nil, errors.NewFetchError("news", "missing API key")
	}

	payload, err := json.Marshal(searchRequest{
		Query:     country + " news",
		TimeRange: timeRange(c.cfg.Lookback),
	})
	if err != nil {
		return nil, errors.NewFetchError("news", "encoding request").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.NewFetchError("news", "building request").WithCause(err)
	}
	req.Header.Set("X-API-KEY", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.NewFetchError("news", "request failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("serper returned non-200",
			zap.Int("status", resp.StatusCode),
			zap.String("country", country),
			zap.ByteString("body", body))
		return nil, errors.NewFetchError("news", fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.NewFetchError("news", "decoding response").WithCause(err)
	}

	fetched := c.now()
	articles := make([]event.Article, 0, len(result.News))
	for _, item := range result.News {
		if item.Title == "" {
			continue
		}
		published, ok := parsePublished(fetched, item.Date)
		if !ok {
			published = fetched
		}
		articles = append(articles, event.Article{
			Title:       item.Title,
			Snippet:     item.Snippet,
			Link:        item.Link,
			PublishedAt: published,
		})
	}

	c.logger.Debug("fetched news articles",
		zap.String("country", country),
		zap.Int("articles", len(articles)))

	return articles, nil
}

// timeRange maps a lookback duration onto Serper's fixed recency buckets.
func timeRange(span time.Duration) string {
	switch {
	case span <= 24*time.Hour:
		return "1d"
	case span <= 7*24*time.Hour:
		return "1w"
	default:
		return "1m"
	}
}

var relativeDate = regexp.MustCompile(`^(\d+)\s+(minute|hour|day|week|month)s?\s+ago$`)

var absoluteLayouts = []string{
	time.RFC3339,
	"Jan 2, 2006",
	"2 Jan 2006",
	"2006-01-02",
}

// parsePublished resolves Serper's date field, which is usually a relative
// phrase ("2 hours ago") but occasionally an absolute date.
func parsePublished(now time.Time, raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	lower := strings.ToLower(raw)
	if lower == "yesterday" {
		return now.AddDate(0, 0, -1), true
	}
	if m := relativeDate.FindStringSubmatch(lower); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, false
		}
		switch m[2] {
		case "minute":
			return now.Add(-time.Duration(n) * time.Minute), true
		case "hour":
			return now.Add(-time.Duration(n) * time.Hour), true
		case "day":
			return now.AddDate(0, 0, -n), true
		case "week":
			return now.AddDate(0, 0, -7*n), true
		case "month":
			return now.AddDate(0, -n, 0), true
		}
	}

	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
