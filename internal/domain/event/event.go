package event

import (
	"strconv"
	"strings"
	"time"
)

// Well-known metric names produced by the acquisition layer.
const (
	MetricEvents     = "events"
	MetricFatalities = "fatalities"
	MetricArticles   = "articles"
	MetricNegativity = "negativity"
)

// Record is one raw, timestamped observation: a single violent event with its
// fatality count, or a single news article with its sentiment score. Records
// are immutable once produced by the acquisition layer.
type Record struct {
	Timestamp time.Time          `json:"timestamp"`
	Values    map[string]float64 `json:"values"`
}

// NewRecord creates a record with a copy of the supplied values.
func NewRecord(ts time.Time, values map[string]float64) Record {
	copied := make(map[string]float64, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return Record{Timestamp: ts, Values: copied}
}

// ParseMetricValue converts an upstream string field to a number. Upstream
// APIs occasionally send blanks or garbage in numeric fields; a single bad
// value must not fail the whole record, so it degrades to zero.
func ParseMetricValue(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

// Article is a news item returned by the search collaborator. Score is filled
// in by the sentiment scorer after retrieval and stays zero until then.
type Article struct {
	Title       string    `json:"title"`
	Snippet     string    `json:"snippet"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"published_at"`
	Score       float64   `json:"sentiment_score"`
}
