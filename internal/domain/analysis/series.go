package analysis

import (
	"fmt"
	"time"
)

// Period is the fixed calendar bucket width a series is aggregated over.
type Period int

const (
	PeriodWeek Period = iota
	PeriodMonth
)

func (p Period) String() string {
	switch p {
	case PeriodWeek:
		return "week"
	case PeriodMonth:
		return "month"
	default:
		return "unknown"
	}
}

// ParsePeriod converts a configuration string to a Period.
func ParsePeriod(s string) (Period, error) {
	switch s {
	case "week":
		return PeriodWeek, nil
	case "month":
		return PeriodMonth, nil
	default:
		return 0, fmt.Errorf("invalid period %q (want week or month)", s)
	}
}

// Truncate returns the start of the calendar period containing t: the Monday
// of the ISO week, or the first of the month. Always in UTC so that records
// from different source timezones land in the same bucket.
func (p Period) Truncate(t time.Time) time.Time {
	t = t.UTC()
	switch p {
	case PeriodMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		weekday := int(t.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday belongs to the preceding ISO week
		}
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return day.AddDate(0, 0, -(weekday - 1))
	}
}

// Label renders a human-readable name for the period starting at t, used in
// alert text.
func (p Period) Label(t time.Time) string {
	switch p {
	case PeriodMonth:
		return t.Format("January 2006")
	default:
		year, week := t.ISOWeek()
		return fmt.Sprintf("Week %02d, %d", week, year)
	}
}

// Aggregation describes how record values collapse into one bucket value.
type Aggregation int

const (
	// AggregationCount counts records regardless of their value.
	AggregationCount Aggregation = iota
	// AggregationSum totals the metric value across records.
	AggregationSum
	// AggregationMean averages the metric value across records in the bucket.
	AggregationMean
)

// Metric describes one series column: its wire name, the label used in alert
// text, an optional unit suffix, and its aggregation rule.
type Metric struct {
	Name        string      `json:"name"`
	Label       string      `json:"label"`
	Unit        string      `json:"unit,omitempty"`
	Aggregation Aggregation `json:"-"`
}

// The two metric families the pipeline runs over.
var (
	// ViolenceMetrics is the violent-event family: occurrence count plus
	// summed fatalities per period.
	ViolenceMetrics = []Metric{
		{Name: "events", Label: "violent events", Unit: "events", Aggregation: AggregationCount},
		{Name: "fatalities", Label: "fatalities", Unit: "deaths", Aggregation: AggregationSum},
	}

	// SentimentMetrics is the news family: article count plus mean
	// negativity (inverted sentiment score, so that a surge of negative
	// coverage is a spike above the rolling norm).
	SentimentMetrics = []Metric{
		{Name: "articles", Label: "news articles", Unit: "articles", Aggregation: AggregationCount},
		{Name: "negativity", Label: "negative news sentiment", Aggregation: AggregationMean},
	}
)

// Bucket holds the aggregated metric values for one calendar period.
type Bucket struct {
	PeriodStart time.Time          `json:"period_start"`
	Values      map[string]float64 `json:"values"`
}

// Series is an ordered sequence of buckets for one country and one metric
// family. PeriodStart is strictly increasing; periods with no records are
// absent rather than zero-filled.
type Series struct {
	Country string   `json:"country"`
	Period  Period   `json:"period"`
	Metrics []Metric `json:"metrics"`
	Buckets []Bucket `json:"buckets"`
}

// Len returns the number of buckets.
func (s Series) Len() int { return len(s.Buckets) }

// Empty reports whether the series has no buckets at all.
func (s Series) Empty() bool { return len(s.Buckets) == 0 }

// Latest returns the most recent bucket, or nil for an empty series.
func (s Series) Latest() *Bucket {
	if len(s.Buckets) == 0 {
		return nil
	}
	return &s.Buckets[len(s.Buckets)-1]
}

// Values extracts the column for one metric in bucket order.
func (s Series) Values(metric string) []float64 {
	out := make([]float64, len(s.Buckets))
	for i, b := range s.Buckets {
		out[i] = b.Values[metric]
	}
	return out
}

// Totals sums every metric across all buckets. Count and sum metrics total
// naturally; mean metrics total as the sum of per-bucket means, which callers
// treat as informational only.
func (s Series) Totals() map[string]float64 {
	totals := make(map[string]float64, len(s.Metrics))
	for _, m := range s.Metrics {
		var sum float64
		for _, b := range s.Buckets {
			sum += b.Values[m.Name]
		}
		totals[m.Name] = sum
	}
	return totals
}

// Flag is the anomaly annotation for one metric of one bucket. MovingAvg and
// MovingStd are nil for buckets without enough trailing history.
type Flag struct {
	Anomaly   bool     `json:"is_anomaly"`
	MovingAvg *float64 `json:"moving_avg,omitempty"`
	MovingStd *float64 `json:"moving_std,omitempty"`
}

// BucketFlags maps metric name to its flag for one bucket.
type BucketFlags map[string]Flag

// FlaggedSeries is a series annotated by the anomaly detector. Flags is
// parallel to Buckets.
type FlaggedSeries struct {
	Series
	Flags []BucketFlags `json:"flags"`
}

// LatestFlags returns the flags of the most recent bucket, or nil.
func (f FlaggedSeries) LatestFlags() BucketFlags {
	if len(f.Flags) == 0 {
		return nil
	}
	return f.Flags[len(f.Flags)-1]
}
