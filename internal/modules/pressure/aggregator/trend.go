package aggregator

import (
	"fmt"
	"time"

	"pressuredash/internal/modules/pressure/types"
)

// ComputeHourlyTrend averages readings per hour of day. Readings from
// different dates that share an hour land in the same bucket. Only hours
// present in the input are returned, in first-seen order.
func ComputeHourlyTrend(readings []types.Reading) []types.TrendBucket {
	return groupAverage(readings, HourKey)
}

// ComputeDailyTrend averages readings per calendar date, in first-seen order.
func ComputeDailyTrend(readings []types.Reading) []types.TrendBucket {
	return groupAverage(readings, DayKey)
}

// HourKey formats the hour of t as "H:00", e.g. "9:00".
func HourKey(t time.Time) string {
	return fmt.Sprintf("%d:00", t.Hour())
}

// DayKey formats the date of t as "D-M-YYYY", e.g. "5-3-2025".
func DayKey(t time.Time) string {
	return fmt.Sprintf("%d-%d-%d", t.Day(), int(t.Month()), t.Year())
}

func groupAverage(readings []types.Reading, key func(time.Time) string) []types.TrendBucket {
	var buckets orderedBuckets
	for _, r := range readings {
		buckets.add(key(r.Timestamp), r.Value)
	}
	return buckets.averages()
}
