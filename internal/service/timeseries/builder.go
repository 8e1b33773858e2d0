package timeseries

import (
	"sort"
	"time"

	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/analysis"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/event"
)

// Builder groups raw timestamped records into a dense, ordered series of
// calendar buckets. Periods with no records are not emitted, so the series is
// sparse across true calendar time but dense across periods with activity.
type Builder struct{}

// NewBuilder creates a series builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build aggregates records into one bucket per calendar period for the given
// metric family. An empty record set yields an explicitly-empty series, which
// downstream treats as "no data" rather than an error. Build never mutates
// its input and is deterministic: the same records always produce an
// identical series.
func (b *Builder) Build(country string, records []event.Record, period analysis.Period, metrics []analysis.Metric) analysis.Series {
	series := analysis.Series{
		Country: country,
		Period:  period,
		Metrics: metrics,
	}
	if len(records) == 0 {
		return series
	}

	type accumulator struct {
		sums  map[string]float64
		count int
	}
	groups := make(map[time.Time]*accumulator)
	for _, rec := range records {
		start := period.Truncate(rec.Timestamp)
		acc, ok := groups[start]
		if !ok {
			acc = &accumulator{sums: make(map[string]float64, len(metrics))}
			groups[start] = acc
		}
		acc.count++
		for _, m := range metrics {
			acc.sums[m.Name] += rec.Values[m.Name]
		}
	}

	starts := make([]time.Time, 0, len(groups))
	for start := range groups {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	series.Buckets = make([]analysis.Bucket, 0, len(starts))
	for _, start := range starts {
		acc := groups[start]
		values := make(map[string]float64, len(metrics))
		for _, m := range metrics {
			switch m.Aggregation {
			case analysis.AggregationCount:
				values[m.Name] = float64(acc.count)
			case analysis.AggregationMean:
				values[m.Name] = acc.sums[m.Name] / float64(acc.count)
			default:
				values[m.Name] = acc.sums[m.Name]
			}
		}
		series.Buckets = append(series.Buckets, analysis.Bucket{
			PeriodStart: start,
			Values:      values,
		})
	}
	return series
}
