package anomaly

import (
	"math"

	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/analysis"
)

// minHistory is the hard floor below which rolling statistics are not
// meaningful and detection is skipped entirely.
const minHistory = 3

// Detector flags buckets whose value spikes above the rolling norm. Detection
// is one-sided: only surges above mean + threshold*std are anomalies, drops
// below are not, matching the alerting use case.
type Detector struct {
	threshold     float64
	nominalWindow int
}

// NewDetector creates a detector. threshold is the number of rolling standard
// deviations that marks a spike (policy decision, typically 2.0);
// nominalWindow is the preferred trailing window in buckets.
func NewDetector(threshold float64, nominalWindow int) *Detector {
	return &Detector{threshold: threshold, nominalWindow: nominalWindow}
}

// EffectiveWindow returns the window actually used for a series of the given
// length: the nominal window when there is enough history, otherwise
// max(3, length/2). A shrunk window keeps a usable if noisier signal instead
// of failing on sparse data.
func (d *Detector) EffectiveWindow(length int) int {
	if length >= d.nominalWindow {
		return d.nominalWindow
	}
	w := length / 2
	if w < minHistory {
		w = minHistory
	}
	return w
}

// Detect annotates every bucket of the series with per-metric anomaly flags.
// Series shorter than 3 buckets get all-clear flags with no statistics. The
// first effectiveWindow-1 buckets of longer series likewise carry no
// statistics and are never anomalous.
func (d *Detector) Detect(series analysis.Series) analysis.FlaggedSeries {
	flagged := analysis.FlaggedSeries{
		Series: series,
		Flags:  make([]analysis.BucketFlags, series.Len()),
	}
	for i := range flagged.Flags {
		flags := make(analysis.BucketFlags, len(series.Metrics))
		for _, m := range series.Metrics {
			flags[m.Name] = analysis.Flag{}
		}
		flagged.Flags[i] = flags
	}
	if series.Len() < minHistory {
		return flagged
	}

	window := d.EffectiveWindow(series.Len())
	for _, m := range series.Metrics {
		values := series.Values(m.Name)
		for i := window - 1; i < len(values); i++ {
			avg, std := rollingStats(values[i+1-window : i+1])
			f := analysis.Flag{
				MovingAvg: ptr(avg),
				MovingStd: ptr(std),
			}
			// With zero variance the bare > test still does the
			// right thing: any value strictly above the mean spikes.
			f.Anomaly = values[i] > avg+d.threshold*std
			flagged.Flags[i][m.Name] = f
		}
	}
	return flagged
}

// rollingStats returns the mean and sample standard deviation of window.
func rollingStats(window []float64) (avg, std float64) {
	n := float64(len(window))
	var sum float64
	for _, v := range window {
		sum += v
	}
	avg = sum / n

	if len(window) < 2 {
		return avg, 0
	}
	var sq float64
	for _, v := range window {
		sq += (v - avg) * (v - avg)
	}
	std = math.Sqrt(sq / (n - 1))
	return avg, std
}

func ptr(v float64) *float64 { return &v }
