package trend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/analysis"
)

func flaggedWeekly(values []float64, flags []analysis.Flag) analysis.FlaggedSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	metric := analysis.Metric{Name: "events", Label: "violent events", Unit: "events"}
	fs := analysis.FlaggedSeries{
		Series: analysis.Series{
			Country: "Sudan",
			Period:  analysis.PeriodWeek,
			Metrics: []analysis.Metric{metric},
		},
	}
	for i, v := range values {
		fs.Buckets = append(fs.Buckets, analysis.Bucket{
			PeriodStart: start.AddDate(0, 0, 7*i),
			Values:      map[string]float64{"events": v},
		})
		fs.Flags = append(fs.Flags, analysis.BucketFlags{"events": flags[i]})
	}
	return fs
}

func statFlag(anomaly bool, avg, std float64) analysis.Flag {
	return analysis.Flag{Anomaly: anomaly, MovingAvg: &avg, MovingStd: &std}
}

func TestSummarizer_Alerts_RecentWindowOnly(t *testing.T) {
	// Six buckets; anomalies at index 1 (too old) and index 4 (recent).
	values := []float64{10, 50, 10, 11, 48, 10}
	flags := []analysis.Flag{
		{},
		statFlag(true, 12, 2),
		statFlag(false, 15, 10),
		statFlag(false, 14, 9),
		statFlag(true, 12.7, 3),
		statFlag(false, 18, 12),
	}

	alerts := NewSummarizer(4).Alerts(flaggedWeekly(values, flags))

	require.Len(t, alerts, 1)
	assert.Equal(t, "events", alerts[0].Metric)
	assert.Equal(t, "Unusual spike in violent events in Week 05, 2024: 48 events (expected around 12)", alerts[0].Text)
}

func TestSummarizer_Alerts_TruncatesDisplayValues(t *testing.T) {
	values := []float64{10, 10, 10, 35.9}
	flags := []analysis.Flag{{}, {}, statFlag(false, 10, 0), statFlag(true, 16.4, 3)}

	alerts := NewSummarizer(4).Alerts(flaggedWeekly(values, flags))

	require.Len(t, alerts, 1)
	assert.Equal(t, "Unusual spike in violent events in Week 04, 2024: 35 events (expected around 16)", alerts[0].Text)
}

func TestSummarizer_Alerts_NoAnomalies(t *testing.T) {
	values := []float64{10, 10, 10}
	flags := []analysis.Flag{{}, {}, statFlag(false, 10, 0)}

	assert.Empty(t, NewSummarizer(4).Alerts(flaggedWeekly(values, flags)))
}

func TestSummarizer_TrendPct(t *testing.T) {
	tests := []struct {
		name   string
		latest float64
		flag   analysis.Flag
		want   int
	}{
		{"above the norm", 15, statFlag(true, 10, 1), 50},
		{"below the norm", 5, statFlag(false, 10, 1), -50},
		{"rounds to nearest", 11.6, statFlag(false, 10, 1), 16},
		{"no statistics", 15, analysis.Flag{}, 0},
		{"zero moving average", 15, statFlag(false, 0, 0), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flaggedWeekly(
				[]float64{1, 1, tt.latest},
				[]analysis.Flag{{}, {}, tt.flag},
			)
			trend := NewSummarizer(4).TrendPct(fs)
			assert.Equal(t, tt.want, trend["events"])
		})
	}
}

func TestSummarizer_TrendPct_EmptySeries(t *testing.T) {
	fs := analysis.FlaggedSeries{Series: analysis.Series{
		Period:  analysis.PeriodWeek,
		Metrics: []analysis.Metric{{Name: "events"}},
	}}

	trend := NewSummarizer(4).TrendPct(fs)

	assert.Equal(t, map[string]int{"events": 0}, trend)
}

func TestSummarizer_Alerts_UnitlessMetricKeepsDecimals(t *testing.T) {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	metric := analysis.Metric{Name: "negativity", Label: "negative news sentiment"}
	avg, std := 0.21, 0.05
	fs := analysis.FlaggedSeries{
		Series: analysis.Series{
			Country: "Chad",
			Period:  analysis.PeriodWeek,
			Metrics: []analysis.Metric{metric},
		},
	}
	fs.Buckets = []analysis.Bucket{{
		PeriodStart: start,
		Values:      map[string]float64{"negativity": 0.62},
	}}
	fs.Flags = []analysis.BucketFlags{{
		"negativity": {Anomaly: true, MovingAvg: &avg, MovingStd: &std},
	}}

	alerts := NewSummarizer(4).Alerts(fs)

	require.Len(t, alerts, 1)
	assert.Equal(t, "negativity", alerts[0].Metric)
	assert.Equal(t, "Unusual spike in negative news sentiment in Week 10, 2024: 0.62 (expected around 0.21)", alerts[0].Text)
}
