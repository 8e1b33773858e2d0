package analysis

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the terminal state of one pipeline execution.
type RunStatus int

const (
	StatusCompleted RunStatus = iota
	StatusSkippedNoData
)

func (s RunStatus) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusSkippedNoData:
		return "skipped_no_data"
	default:
		return "unknown"
	}
}

// ParseRunStatus converts a stored status string back to a RunStatus.
func ParseRunStatus(s string) (RunStatus, error) {
	switch s {
	case "completed":
		return StatusCompleted, nil
	case "skipped_no_data":
		return StatusSkippedNoData, nil
	default:
		return 0, fmt.Errorf("unknown run status %q", s)
	}
}

// SentimentStats is the run-level summary of the scored articles.
type SentimentStats struct {
	MeanScore         float64 `json:"mean_score"`
	StdDev            float64 `json:"std_dev"`
	MostNegativeTitle string  `json:"most_negative_title"`
	MostNegativeScore float64 `json:"most_negative_score"`
	MostPositiveTitle string  `json:"most_positive_title"`
	MostPositiveScore float64 `json:"most_positive_score"`
	Summary           string  `json:"summary"`
}

// Run is one complete, timestamped execution of the pipeline for one country.
// It is immutable after creation; later runs supersede it in the store's
// latest-by-timestamp view without ever mutating it.
type Run struct {
	ID      uuid.UUID `json:"id"`
	Country string    `json:"country"`
	RunAt   time.Time `json:"run_at"`
	Status  RunStatus `json:"status"`
	HasData bool      `json:"has_data"`

	Totals       map[string]float64 `json:"totals"`
	LatestBucket *Bucket            `json:"latest_bucket,omitempty"`
	TrendPct     map[string]int     `json:"trend_pct"`
	RecentAlerts []string           `json:"recent_alerts"`

	Sentiment    *SentimentStats `json:"sentiment,omitempty"`
	ArticleCount *int            `json:"article_count,omitempty"`
}

// NewRun creates an empty run shell for a country. Totals and trend maps
// start empty so a no-data run serializes with zeroed fields rather than
// nulls.
func NewRun(country string, now time.Time) *Run {
	return &Run{
		ID:           uuid.New(),
		Country:      country,
		RunAt:        now.UTC(),
		Status:       StatusSkippedNoData,
		Totals:       map[string]float64{},
		TrendPct:     map[string]int{},
		RecentAlerts: []string{},
	}
}

// AlertSource identifies which pipeline produced an alert.
type AlertSource string

const (
	AlertSourceEvents    AlertSource = "events"
	AlertSourceSentiment AlertSource = "sentiment"
)

// Alert is a denormalized, human-readable fact derived from one anomaly flag
// of one run. A run owns zero or more alerts.
type Alert struct {
	ID      uuid.UUID   `json:"id"`
	RunID   uuid.UUID   `json:"run_id"`
	Country string      `json:"country"`
	RunAt   time.Time   `json:"run_at"`
	Source  AlertSource `json:"source"`
	Metric  string      `json:"metric"`
	Text    string      `json:"text"`
}

// NewAlert builds an alert owned by the given run.
func NewAlert(run *Run, source AlertSource, metric, text string) Alert {
	return Alert{
		ID:      uuid.New(),
		RunID:   run.ID,
		Country: run.Country,
		RunAt:   run.RunAt,
		Source:  source,
		Metric:  metric,
		Text:    text,
	}
}
