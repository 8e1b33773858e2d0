package pipeline

import (
	"context"
	"time"

	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/analysis"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/event"
)

// EventSource fetches raw violent-event records for one country.
type EventSource interface {
	// FetchEvents returns every event in [start, end). "No data" is an
	// empty slice, never nil-as-sentinel; errors are reserved for
	// transport and credential failures.
	FetchEvents(ctx context.Context, country string, start, end time.Time) ([]event.Record, error)
}

// ArticleSource fetches recent news articles for one country.
type ArticleSource interface {
	// FetchArticles returns recent coverage mentioning the country.
	FetchArticles(ctx context.Context, country string) ([]event.Article, error)
}

// SentimentScorer scores a headline in [-1.0, 1.0], negative to positive.
type SentimentScorer interface {
	Score(ctx context.Context, title string) (float64, error)
}

// Summarizer produces prose covering a set of scored articles. Never called
// with an empty slice.
type Summarizer interface {
	Summarize(ctx context.Context, articles []event.Article) (string, error)
}

// RunStore persists completed runs with their alerts and scored articles.
type RunStore interface {
	Persist(ctx context.Context, run *analysis.Run, alerts []analysis.Alert, articles []event.Article) error
}

// MetricsCollector records pipeline observability counters.
type MetricsCollector interface {
	// RecordRun records one finished run with its terminal status.
	RecordRun(country string, status analysis.RunStatus, duration time.Duration)
	// RecordAnomalies records how many alerts a run raised per source.
	RecordAnomalies(country string, source analysis.AlertSource, count int)
}

// Service runs the full analysis pipeline for one country.
type Service interface {
	// Run executes fetch, build, detect, summarize and persist, returning
	// the stored run. Missing upstream data yields a skipped run, not an
	// error; the error return is reserved for persistence failures.
	Run(ctx context.Context, country string) (*analysis.Run, error)
}
