package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/analysis"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/errors"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/event"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/service/anomaly"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/service/timeseries"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/service/trend"
)

// Config carries the tunable knobs of one pipeline run.
type Config struct {
	Period        analysis.Period
	Window        int
	Threshold     float64
	Lookback      int
	EventLookback time.Duration
}

// DefaultConfig returns the standing defaults: weekly buckets, a 12-bucket
// window at two standard deviations, a 4-bucket alert lookback, and one year
// of event history.
func DefaultConfig() Config {
	return Config{
		Period:        analysis.PeriodWeek,
		Window:        12,
		Threshold:     2.0,
		Lookback:      4,
		EventLookback: 365 * 24 * time.Hour,
	}
}

type service struct {
	events     EventSource
	articles   ArticleSource
	scorer     SentimentScorer
	summarizer Summarizer
	store      RunStore
	metrics    MetricsCollector

	builder  *timeseries.Builder
	detector *anomaly.Detector
	trends   *trend.Summarizer

	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires the run orchestrator. summarizer and metrics may be nil;
// a nil summarizer always falls back to the deterministic rendering.
func NewService(
	events EventSource,
	articles ArticleSource,
	scorer SentimentScorer,
	summarizer Summarizer,
	store RunStore,
	metrics MetricsCollector,
	cfg Config,
	logger *slog.Logger,
) Service {
	return &service{
		events:     events,
		articles:   articles,
		scorer:     scorer,
		summarizer: summarizer,
		store:      store,
		metrics:    metrics,
		builder:    timeseries.NewBuilder(),
		detector:   anomaly.NewDetector(cfg.Threshold, cfg.Window),
		trends:     trend.NewSummarizer(cfg.Lookback),
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// Run executes both pipelines for one country under a single timestamp and
// persists the merged result. Upstream failures and empty data degrade to a
// skipped run; only a persistence failure is an error.
func (s *service) Run(ctx context.Context, country string) (*analysis.Run, error) {
	started := s.now()
	run := analysis.NewRun(country, started)
	log := s.logger.With("country", country, "run_id", run.ID)

	eventAlerts := s.runEvents(ctx, run, log)
	sentimentAlerts, articles := s.runSentiment(ctx, run, log)

	if run.HasData {
		run.Status = analysis.StatusCompleted
	}

	alerts := make([]analysis.Alert, 0, len(eventAlerts)+len(sentimentAlerts))
	for _, a := range eventAlerts {
		alerts = append(alerts, analysis.NewAlert(run, analysis.AlertSourceEvents, a.Metric, a.Text))
		run.RecentAlerts = append(run.RecentAlerts, a.Text)
	}
	for _, a := range sentimentAlerts {
		alerts = append(alerts, analysis.NewAlert(run, analysis.AlertSourceSentiment, a.Metric, a.Text))
		run.RecentAlerts = append(run.RecentAlerts, a.Text)
	}

	if err := s.store.Persist(ctx, run, alerts, articles); err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("persisting run for %s", country))
	}

	if s.metrics != nil {
		s.metrics.RecordRun(country, run.Status, s.now().Sub(started))
		s.metrics.RecordAnomalies(country, analysis.AlertSourceEvents, len(eventAlerts))
		s.metrics.RecordAnomalies(country, analysis.AlertSourceSentiment, len(sentimentAlerts))
	}
	log.InfoContext(ctx, "analysis run finished",
		"status", run.Status.String(),
		"alerts", len(alerts),
		"has_data", run.HasData)
	return run, nil
}

// runEvents executes the violent-event half of the run and folds its results
// into run in place.
func (s *service) runEvents(ctx context.Context, run *analysis.Run, log *slog.Logger) []trend.Alert {
	end := run.RunAt
	records, err := s.events.FetchEvents(ctx, run.Country, end.Add(-s.cfg.EventLookback), end)
	if err != nil {
		if errors.IsNoData(err) {
			log.WarnContext(ctx, "no event data, skipping events pipeline", "error", err)
		} else {
			log.ErrorContext(ctx, "unexpected event source failure, skipping events pipeline", "error", err)
		}
		records = nil
	}

	series := s.builder.Build(run.Country, records, s.cfg.Period, analysis.ViolenceMetrics)
	if series.Empty() {
		return nil
	}

	flagged := s.detector.Detect(series)
	s.fold(run, flagged)
	run.LatestBucket = series.Latest()
	return s.trends.Alerts(flagged)
}

// runSentiment executes the news half: fetch, score, bucket, detect. It also
// computes the run-level sentiment statistics and summary text. Returns the
// alerts plus the scored articles for persistence.
func (s *service) runSentiment(ctx context.Context, run *analysis.Run, log *slog.Logger) ([]trend.Alert, []event.Article) {
	fetched, err := s.articles.FetchArticles(ctx, run.Country)
	if err != nil {
		if errors.IsNoData(err) {
			log.WarnContext(ctx, "no article data, skipping sentiment pipeline", "error", err)
		} else {
			log.ErrorContext(ctx, "unexpected article source failure, skipping sentiment pipeline", "error", err)
		}
		return nil, nil
	}

	scored := make([]event.Article, 0, len(fetched))
	records := make([]event.Record, 0, len(fetched))
	for _, a := range fetched {
		score, err := s.scorer.Score(ctx, a.Title)
		if err != nil {
			log.WarnContext(ctx, "scoring failed, dropping article", "title", a.Title, "error", err)
			continue
		}
		a.Score = score
		scored = append(scored, a)
		// Negativity inverts the score so that a surge of bad news is a
		// spike above the rolling norm, same side as the events test.
		records = append(records, event.NewRecord(a.PublishedAt, map[string]float64{
			event.MetricNegativity: -score,
		}))
	}
	if len(scored) == 0 {
		return nil, nil
	}

	series := s.builder.Build(run.Country, records, s.cfg.Period, analysis.SentimentMetrics)
	flagged := s.detector.Detect(series)
	s.fold(run, flagged)

	count := len(scored)
	run.ArticleCount = &count
	run.Sentiment = s.sentimentStats(ctx, scored, log)
	return s.trends.Alerts(flagged), scored
}

// fold merges one pipeline's flagged series into the run record.
func (s *service) fold(run *analysis.Run, flagged analysis.FlaggedSeries) {
	run.HasData = true
	for name, total := range flagged.Totals() {
		run.Totals[name] = total
	}
	for name, pct := range s.trends.TrendPct(flagged) {
		run.TrendPct[name] = pct
	}
}

func (s *service) sentimentStats(ctx context.Context, scored []event.Article, log *slog.Logger) *analysis.SentimentStats {
	stats := &analysis.SentimentStats{
		MostNegativeScore: scored[0].Score,
		MostNegativeTitle: scored[0].Title,
		MostPositiveScore: scored[0].Score,
		MostPositiveTitle: scored[0].Title,
	}
	var sum float64
	for _, a := range scored {
		sum += a.Score
		if a.Score < stats.MostNegativeScore {
			stats.MostNegativeScore, stats.MostNegativeTitle = a.Score, a.Title
		}
		if a.Score > stats.MostPositiveScore {
			stats.MostPositiveScore, stats.MostPositiveTitle = a.Score, a.Title
		}
	}
	stats.MeanScore = sum / float64(len(scored))
	if len(scored) > 1 {
		var sq float64
		for _, a := range scored {
			sq += (a.Score - stats.MeanScore) * (a.Score - stats.MeanScore)
		}
		stats.StdDev = math.Sqrt(sq / float64(len(scored)-1))
	}

	byNegativity := make([]event.Article, len(scored))
	copy(byNegativity, scored)
	sort.SliceStable(byNegativity, func(i, j int) bool {
		return byNegativity[i].Score < byNegativity[j].Score
	})

	if s.summarizer != nil {
		summary, err := s.summarizer.Summarize(ctx, byNegativity)
		if err == nil && summary != "" {
			stats.Summary = summary
			return stats
		}
		log.WarnContext(ctx, "summarization failed, using fallback rendering", "error", err)
	}
	stats.Summary = fallbackSummary(byNegativity)
	return stats
}

// fallbackSummary renders a deterministic digest when the summarization
// collaborator is unavailable. The summary field is never left blank.
func fallbackSummary(byNegativity []event.Article) string {
	const limit = 5
	var b strings.Builder
	b.WriteString("Most negative recent coverage:\n")
	for i, a := range byNegativity {
		if i == limit {
			break
		}
		fmt.Fprintf(&b, "%d. %s (score %.2f)\n", i+1, a.Title, a.Score)
	}
	return strings.TrimRight(b.String(), "\n")
}
