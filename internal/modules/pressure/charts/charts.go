// Package charts shapes aggregation results into the label/data series the
// dashboard's charting widget draws.
package charts

import (
	"time"

	"pressuredash/internal/modules/pressure/types"
)

const (
	lineChart = "line"
	barChart  = "bar"
	pieChart  = "pie"

	realtimeLabelLayout = "15:04:05"
)

type Options struct {
	// Reference is drawn as a flat line next to the realtime readings.
	Reference float64
	// Location is used for realtime labels; nil keeps each timestamp's own location.
	Location *time.Location
}

// Build returns every chart of the dashboard.
func Build(readings []types.Reading, st types.Stats, hourly, daily []types.TrendBucket, opts Options) types.Charts {
	return types.Charts{
		Realtime: realtime(readings, opts),
		Hourly:   trend("Hourly average", hourly),
		Daily:    trend("Daily average", daily),
		Average: types.ChartSeries{
			Type:     barChart,
			Labels:   []string{"Average pressure"},
			Datasets: []types.Dataset{{Label: "Average", Data: []float64{st.Avg}}},
		},
		Range: types.ChartSeries{
			Type:     barChart,
			Labels:   []string{"Min", "Average", "Max"},
			Datasets: []types.Dataset{{Label: "Pressure range", Data: []float64{st.Min, st.Avg, st.Max}}},
		},
		Threshold: types.ChartSeries{
			Type:   barChart,
			Labels: []string{"Below", "Within", "Above"},
			Datasets: []types.Dataset{{
				Label: "Readings per threshold band",
				Data:  []float64{float64(st.Below), float64(st.Within), float64(st.Above)},
			}},
		},
		Distribution: types.ChartSeries{
			Type:   pieChart,
			Labels: []string{"Low", "Medium", "High"},
			Datasets: []types.Dataset{{
				Label: "Distribution around average",
				Data:  []float64{float64(st.Low), float64(st.Medium), float64(st.High)},
			}},
		},
	}
}

func realtime(readings []types.Reading, opts Options) types.ChartSeries {
	labels := make([]string, len(readings))
	values := make([]float64, len(readings))
	reference := make([]float64, len(readings))
	for i, r := range readings {
		ts := r.Timestamp
		if opts.Location != nil {
			ts = ts.In(opts.Location)
		}
		labels[i] = ts.Format(realtimeLabelLayout)
		values[i] = r.Value
		reference[i] = opts.Reference
	}
	return types.ChartSeries{
		Type:   lineChart,
		Labels: labels,
		Datasets: []types.Dataset{
			{Label: "Pressure", Data: values},
			{Label: "Reference", Data: reference},
		},
	}
}

func trend(label string, buckets []types.TrendBucket) types.ChartSeries {
	labels := make([]string, len(buckets))
	data := make([]float64, len(buckets))
	for i, b := range buckets {
		labels[i] = b.Key
		data[i] = b.Average
	}
	return types.ChartSeries{
		Type:     lineChart,
		Labels:   labels,
		Datasets: []types.Dataset{{Label: label, Data: data}},
	}
}
