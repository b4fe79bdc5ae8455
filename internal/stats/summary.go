// Package stats derives display statistics from a single sensor series,
// tolerating missing and invalid samples.
package stats

import (
	"fmt"
	"math"

	"airmon/internal/series"
)

// NoData is the sentinel shown when a statistic cannot be computed.
const NoData = "no data"

// Summary holds the formatted statistics for one series. Each field is
// either a two-decimal number or the NoData sentinel; sentinel-valued
// extrema are never exposed as numbers.
type Summary struct {
	Latest string
	Mean   string
	Min    string
	Max    string
}

func valid(s series.Sample) bool {
	return s.Value != nil && !math.IsNaN(*s.Value)
}

// Summarize computes latest/mean/min/max for one series. The latest value
// is the sample at index 0 (series are stored newest first); mean, min and
// max consider every valid sample and each independently falls back to
// NoData when no valid sample exists.
func Summarize(s series.Series) Summary {
	out := Summary{Latest: NoData, Mean: NoData, Min: NoData, Max: NoData}

	if len(s) > 0 && valid(s[0]) {
		out.Latest = fmt.Sprintf("%.2f", *s[0].Value)
	}

	var (
		sum      float64
		count    int
		min, max float64
	)
	for _, sample := range s {
		if !valid(sample) {
			continue
		}
		v := *sample.Value
		if count == 0 {
			min, max = v, v
		} else {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		sum += v
		count++
	}

	if count > 0 {
		out.Mean = fmt.Sprintf("%.2f", sum/float64(count))
		out.Min = fmt.Sprintf("%.2f", min)
		out.Max = fmt.Sprintf("%.2f", max)
	}
	return out
}
