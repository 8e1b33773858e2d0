package fixtures

import (
	"testing"
	"time"

	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/analysis"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/event"
)

// RunBuilder builds test analysis runs
type RunBuilder struct {
	t       *testing.T
	country string
	runAt   time.Time
	run     *analysis.Run
}

// NewRunBuilder creates a RunBuilder with a completed weekly run that has a
// plausible yearly total and latest bucket.
func NewRunBuilder(t *testing.T) *RunBuilder {
	t.Helper()
	runAt := time.Date(2024, 3, 25, 6, 0, 0, 0, time.UTC)
	run := analysis.NewRun("Sudan", runAt)
	run.Status = analysis.StatusCompleted
	run.HasData = true
	run.Totals = map[string]float64{event.MetricEvents: 520, event.MetricFatalities: 1040}
	run.TrendPct = map[string]int{event.MetricEvents: 307, event.MetricFatalities: 0}
	run.RecentAlerts = []string{}
	run.LatestBucket = &analysis.Bucket{
		PeriodStart: runAt.AddDate(0, 0, -7).Truncate(24 * time.Hour),
		Values:      map[string]float64{event.MetricEvents: 60, event.MetricFatalities: 120},
	}
	return &RunBuilder{t: t, run: run}
}

// WithCountry sets the country, keeping the generated ID.
func (b *RunBuilder) WithCountry(country string) *RunBuilder {
	b.run.Country = country
	return b
}

// WithRunAt sets the run timestamp.
func (b *RunBuilder) WithRunAt(at time.Time) *RunBuilder {
	b.run.RunAt = at.UTC()
	return b
}

// Skipped turns the run into a skipped-no-data shell.
func (b *RunBuilder) Skipped() *RunBuilder {
	b.run.Status = analysis.StatusSkippedNoData
	b.run.HasData = false
	b.run.Totals = map[string]float64{}
	b.run.TrendPct = map[string]int{}
	b.run.LatestBucket = nil
	return b
}

// WithoutLatestBucket drops the latest bucket, as stored by runs persisted
// before that column existed.
func (b *RunBuilder) WithoutLatestBucket() *RunBuilder {
	b.run.LatestBucket = nil
	return b
}

// WithAlertTexts appends alert lines to the run's recent-alerts list.
func (b *RunBuilder) WithAlertTexts(texts ...string) *RunBuilder {
	b.run.RecentAlerts = append(b.run.RecentAlerts, texts...)
	return b
}

// WithSentiment attaches sentiment stats and an article count.
func (b *RunBuilder) WithSentiment(stats analysis.SentimentStats, articleCount int) *RunBuilder {
	b.run.Sentiment = &stats
	b.run.ArticleCount = &articleCount
	return b
}

// Build returns the run.
func (b *RunBuilder) Build() *analysis.Run {
	return b.run
}
