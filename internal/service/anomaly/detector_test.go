package anomaly

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/analysis"
)

func weeklySeries(metric string, values []float64) analysis.Series {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) // a Monday
	s := analysis.Series{
		Country: "Testland",
		Period:  analysis.PeriodWeek,
		Metrics: []analysis.Metric{{Name: metric, Label: metric, Aggregation: analysis.AggregationSum}},
	}
	for i, v := range values {
		s.Buckets = append(s.Buckets, analysis.Bucket{
			PeriodStart: start.AddDate(0, 0, 7*i),
			Values:      map[string]float64{metric: v},
		})
	}
	return s
}

func TestDetector_EffectiveWindow(t *testing.T) {
	d := NewDetector(2.0, 12)

	tests := []struct {
		name   string
		length int
		want   int
	}{
		{"full history uses nominal", 20, 12},
		{"exactly nominal", 12, 12},
		{"short history halves", 11, 5},
		{"half below floor clamps to three", 7, 3},
		{"minimum history", 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.EffectiveWindow(tt.length))
		})
	}
}

func TestDetector_Detect_SpikeFlagged(t *testing.T) {
	// Twelve quiet weeks around 10, then a spike, then quiet again.
	values := []float64{10, 12, 9, 11, 10, 10, 13, 9, 11, 10, 12, 10, 60, 11, 10}
	d := NewDetector(2.0, 12)

	flagged := d.Detect(weeklySeries("events", values))
	require.Len(t, flagged.Flags, len(values))

	// No statistics before a full window is available.
	for i := 0; i < 11; i++ {
		f := flagged.Flags[i]["events"]
		assert.False(t, f.Anomaly, "bucket %d", i)
		assert.Nil(t, f.MovingAvg, "bucket %d", i)
		assert.Nil(t, f.MovingStd, "bucket %d", i)
	}

	first := flagged.Flags[11]["events"]
	require.NotNil(t, first.MovingAvg)
	require.NotNil(t, first.MovingStd)
	assert.InDelta(t, 10.583, *first.MovingAvg, 0.01)
	assert.False(t, first.Anomaly)

	// The window includes the spike itself, so the mean is already pulled
	// up when the spike is judged.
	spike := flagged.Flags[12]["events"]
	require.NotNil(t, spike.MovingAvg)
	assert.InDelta(t, 14.75, *spike.MovingAvg, 0.01)
	assert.True(t, spike.Anomaly)

	// The weeks after the spike settle back under the inflated band.
	assert.False(t, flagged.Flags[13]["events"].Anomaly)
	assert.False(t, flagged.Flags[14]["events"].Anomaly)
}

func TestDetector_Detect_TooShort(t *testing.T) {
	d := NewDetector(2.0, 12)

	for _, values := range [][]float64{{}, {5}, {5, 500}} {
		flagged := d.Detect(weeklySeries("events", values))
		require.Len(t, flagged.Flags, len(values))
		for i, flags := range flagged.Flags {
			f := flags["events"]
			assert.False(t, f.Anomaly, "bucket %d", i)
			assert.Nil(t, f.MovingAvg, "bucket %d", i)
		}
	}
}

func TestDetector_Detect_ConstantSeries(t *testing.T) {
	// Zero variance: a value equal to the flat mean never flags even
	// though the band degenerates to the mean itself.
	d := NewDetector(2.0, 3)

	flat := d.Detect(weeklySeries("events", []float64{5, 5, 5, 5, 5}))
	for i, flags := range flat.Flags {
		assert.False(t, flags["events"].Anomaly, "bucket %d", i)
	}

	last := flat.LatestFlags()["events"]
	require.NotNil(t, last.MovingStd)
	assert.Zero(t, *last.MovingStd)
	assert.Equal(t, 5.0, *last.MovingAvg)
}

func TestDetector_Detect_OneSided(t *testing.T) {
	// A collapse below the norm is not an anomaly.
	d := NewDetector(2.0, 3)

	flagged := d.Detect(weeklySeries("events", []float64{10, 11, 10, 0}))
	assert.False(t, flagged.LatestFlags()["events"].Anomaly)
}

func TestDetector_Detect_ThresholdMonotonic(t *testing.T) {
	// Raising the threshold can only clear flags, never add them.
	values := []float64{10, 12, 9, 11, 10, 13, 9, 11, 25}
	series := weeklySeries("events", values)

	var prevCount int
	first := true
	for _, threshold := range []float64{0.5, 1.0, 2.0, 3.0, 5.0} {
		flagged := NewDetector(threshold, 4).Detect(series)
		count := 0
		for _, flags := range flagged.Flags {
			if flags["events"].Anomaly {
				count++
			}
		}
		if !first {
			assert.LessOrEqual(t, count, prevCount, "threshold %v", threshold)
		}
		prevCount, first = count, false
	}
}

func TestDetector_Detect_AllMetrics(t *testing.T) {
	// Each metric column is judged independently.
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := analysis.Series{
		Country: "Testland",
		Period:  analysis.PeriodWeek,
		Metrics: analysis.ViolenceMetrics,
	}
	events := []float64{4, 5, 4, 5, 30}
	fatalities := []float64{2, 2, 3, 2, 2}
	for i := range events {
		s.Buckets = append(s.Buckets, analysis.Bucket{
			PeriodStart: start.AddDate(0, 0, 7*i),
			Values: map[string]float64{
				"events":     events[i],
				"fatalities": fatalities[i],
			},
		})
	}

	flagged := NewDetector(1.0, 4).Detect(s)
	last := flagged.LatestFlags()
	assert.True(t, last["events"].Anomaly)
	assert.False(t, last["fatalities"].Anomaly)
}
