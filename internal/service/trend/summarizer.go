package trend

import (
	"fmt"
	"math"

	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/analysis"
)

// Summarizer turns a flagged series into the human-facing pieces of a run:
// alert sentences for recent anomalies and a percentage trend per metric.
type Summarizer struct {
	lookback int
}

// NewSummarizer creates a summarizer that scans the trailing lookback buckets
// for alerts (typically 4).
func NewSummarizer(lookback int) *Summarizer {
	return &Summarizer{lookback: lookback}
}

// Alert is one rendered anomaly, tagged with the metric that raised it.
type Alert struct {
	Metric string
	Text   string
}

// Alerts renders one sentence per anomalous metric in the trailing lookback
// buckets, oldest first. Values are truncated to whole numbers for display;
// unitless metrics keep two decimals since truncation would erase them.
func (s *Summarizer) Alerts(flagged analysis.FlaggedSeries) []Alert {
	var alerts []Alert
	start := flagged.Len() - s.lookback
	if start < 0 {
		start = 0
	}
	for i := start; i < flagged.Len(); i++ {
		label := flagged.Period.Label(flagged.Buckets[i].PeriodStart)
		for _, m := range flagged.Metrics {
			flag := flagged.Flags[i][m.Name]
			if !flag.Anomaly || flag.MovingAvg == nil {
				continue
			}
			value := flagged.Buckets[i].Values[m.Name]
			alerts = append(alerts, Alert{
				Metric: m.Name,
				Text:   formatAlert(m, label, value, *flag.MovingAvg),
			})
		}
	}
	return alerts
}

// TrendPct compares the latest bucket of each metric against its moving
// average: +50 means half again above the recent norm. Metrics without
// statistics, and moving averages of zero, report a flat trend.
func (s *Summarizer) TrendPct(flagged analysis.FlaggedSeries) map[string]int {
	trend := make(map[string]int, len(flagged.Metrics))
	latest := flagged.Latest()
	flags := flagged.LatestFlags()
	for _, m := range flagged.Metrics {
		trend[m.Name] = 0
		if latest == nil || flags == nil {
			continue
		}
		flag := flags[m.Name]
		if flag.MovingAvg == nil || *flag.MovingAvg <= 0 {
			continue
		}
		pct := (latest.Values[m.Name]/(*flag.MovingAvg) - 1) * 100
		trend[m.Name] = int(math.Round(pct))
	}
	return trend
}

func formatAlert(m analysis.Metric, periodLabel string, value, expected float64) string {
	if m.Unit == "" {
		return fmt.Sprintf("Unusual spike in %s in %s: %.2f (expected around %.2f)",
			m.Label, periodLabel, value, expected)
	}
	return fmt.Sprintf("Unusual spike in %s in %s: %d %s (expected around %d)",
		m.Label, periodLabel, int(value), m.Unit, int(expected))
}
