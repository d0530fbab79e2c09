package types

import "time"

// Reading is one pressure sample as delivered by the sensor API.
type Reading struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Series is the ordered reading list of one named sensor. Order is the
// order the source delivered, never re-sorted.
type Series struct {
	Name     string    `json:"name"`
	Readings []Reading `json:"values"`
}

type Stats struct {
	Avg    float64 `json:"avg"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Low    int     `json:"low"`
	Medium int     `json:"medium"`
	High   int     `json:"high"`
	Below  int     `json:"below"`
	Within int     `json:"within"`
	Above  int     `json:"above"`
}

// TrendBucket is the mean of all readings sharing one bucket key
// ("H:00" for hours, "D-M-YYYY" for days).
type TrendBucket struct {
	Key     string  `json:"key"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Dataset is one labelled data series inside a chart.
type Dataset struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
}

// ChartSeries is the label/data shape handed to the charting widget.
type ChartSeries struct {
	Type     string    `json:"type"`
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

type Charts struct {
	Realtime     ChartSeries `json:"realtime"`
	Hourly       ChartSeries `json:"hourly"`
	Daily        ChartSeries `json:"daily"`
	Average      ChartSeries `json:"average"`
	Range        ChartSeries `json:"range"`
	Threshold    ChartSeries `json:"threshold"`
	Distribution ChartSeries `json:"distribution"`
}

// Snapshot is the dashboard view model produced by one successful fetch.
// A snapshot is never modified after it has been published.
type Snapshot struct {
	ID        string        `json:"id"`
	Sensor    string        `json:"sensor"`
	FetchedAt time.Time     `json:"fetchedAt"`
	Readings  []Reading     `json:"readings"`
	Stats     Stats         `json:"stats"`
	Hourly    []TrendBucket `json:"hourly"`
	Daily     []TrendBucket `json:"daily"`
	Charts    Charts        `json:"charts"`
}

// SnapshotRecord is the persisted summary of a snapshot.
type SnapshotRecord struct {
	ID           string    `json:"id"`
	Sensor       string    `json:"sensor"`
	FetchedAt    time.Time `json:"fetchedAt"`
	ReadingCount int       `json:"readingCount"`
	Stats        Stats     `json:"stats"`
}

type FetchStatus struct {
	LastAttempt time.Time `json:"lastAttempt,omitzero"`
	LastSuccess time.Time `json:"lastSuccess,omitzero"`
	LastError   string    `json:"lastError,omitempty"`
	InFlight    bool      `json:"inFlight"`
}
