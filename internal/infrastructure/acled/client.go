package acled

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/errors"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/event"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/infrastructure/config"
)

const dateLayout = "2006-01-02"

// Client fetches violent-event records from the ACLED read API. It implements
// the pipeline's EventSource contract and rate-limits outbound requests so a
// multi-country batch stays inside the upstream quota.
type Client struct {
	cfg     config.ACLEDConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient builds an ACLED client from configuration, filling conservative
// defaults for anything unset.
func NewClient(cfg config.ACLEDConfig, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.acleddata.com/acled/read"
	}
	if cfg.EventTypes == "" {
		cfg.EventTypes = "Violence against civilians|Explosions/Remote violence|Battles"
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 2
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = int(cfg.RateLimit) * 2
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		cfg:     cfg,
		client:  httpClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		logger:  logger,
	}
}

// apiResponse mirrors the relevant slice of the ACLED read payload. Numeric
// fields arrive as strings.
type apiResponse struct {
	Count int `json:"count"`
	Data  []struct {
		EventDate  string `json:"event_date"`
		EventType  string `json:"event_type"`
		Fatalities string `json:"fatalities"`
	} `json:"data"`
}

// FetchEvents retrieves all violent events for a country between start and
// end inclusive. A reachable API with zero matching rows yields an empty
// slice, not an error; credential or transport problems yield a fetch error.
func (c *Client) FetchEvents(ctx context.Context, country string, start, end time.Time) ([]event.Record, error) {
	if c.cfg.Key == "" || c.cfg.Email == "" {
		return nil, errors.NewFetchError("acled", "missing API credentials")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.NewFetchError("acled", "rate limiter wait cancelled").WithCause(err)
	}

	params := url.Values{}
	params.Set("key", c.cfg.Key)
	params.Set("email", c.cfg.Email)
	params.Set("country", country)
	params.Set("event_date_where", "BETWEEN")
	params.Set("event_date", fmt.Sprintf("%s|%s", start.Format(dateLayout), end.Format(dateLayout)))
	params.Set("event_type", c.cfg.EventTypes)
	params.Set("limit", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.NewFetchError("acled", "building request").WithCause(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.NewFetchError("acled", "request failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("acled returned non-200",
			zap.Int("status", resp.StatusCode),
			zap.String("country", country),
			zap.ByteString("body", body))
		return nil, errors.NewFetchError("acled", fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.NewFetchError("acled", "decoding response").WithCause(err)
	}

	records := make([]event.Record, 0, len(payload.Data))
	for _, row := range payload.Data {
		ts, err := time.Parse(dateLayout, row.EventDate)
		if err != nil {
			c.logger.Warn("skipping event with unparseable date",
				zap.String("event_date", row.EventDate),
				zap.String("country", country))
			continue
		}
		records = append(records, event.NewRecord(ts, map[string]float64{
			event.MetricFatalities: event.ParseMetricValue(row.Fatalities),
		}))
	}

	c.logger.Debug("fetched acled events",
		zap.String("country", country),
		zap.Int("records", len(records)))

	return records, nil
}
