// Package aggregator turns a reading series into summary statistics and
// time-bucketed trends. All functions are pure.
package aggregator

import (
	"errors"

	"pressuredash/internal/modules/pressure/types"
)

// ErrEmptyInput is returned when statistics are requested for no values.
var ErrEmptyInput = errors.New("aggregator: no values")

const (
	lowFactor  = 0.7
	highFactor = 1.3
)

// Thresholds are the fixed bounds for the below/within/above buckets.
// Both bounds are inclusive for "within".
type Thresholds struct {
	Low  float64
	High float64
}

// ComputeStats returns average, extremes, the distribution relative to the
// average and the distribution relative to th.
func ComputeStats(values []float64, th Thresholds) (types.Stats, error) {
	if len(values) == 0 {
		return types.Stats{}, ErrEmptyInput
	}

	sum := 0.0
	minV, maxV := values[0], values[0]
	for _, v := range values {
		sum += v
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	avg := sum / float64(len(values))

	st := types.Stats{Avg: avg, Min: minV, Max: maxV}
	lowBound := avg * lowFactor
	highBound := avg * highFactor
	for _, v := range values {
		switch {
		case v < lowBound:
			st.Low++
		case v > highBound:
			st.High++
		default:
			st.Medium++
		}

		switch {
		case v < th.Low:
			st.Below++
		case v > th.High:
			st.Above++
		default:
			st.Within++
		}
	}
	return st, nil
}

// Values extracts the reading values in order.
func Values(readings []types.Reading) []float64 {
	out := make([]float64, len(readings))
	for i, r := range readings {
		out[i] = r.Value
	}
	return out
}
