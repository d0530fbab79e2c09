// Package sensorapi fetches pressure readings from the remote sensor API.
package sensorapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"pressuredash/internal/modules/pressure/types"
)

// SelectFirst as a sensor name picks the first entry of the response.
const SelectFirst = "*"

const maxBodyBytes = 16 << 20

var (
	ErrMalformedResponse = errors.New("malformed sensor response")
	ErrSensorNotFound    = errors.New("sensor not found")
)

// StatusError reports a non-2xx response from the sensor API.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sensor api: unexpected status %d", e.StatusCode)
}

// sensorPayload mirrors one entry of the upstream JSON array. Values is a
// pointer so a missing "values" key can be told apart from an empty list.
type sensorPayload struct {
	Name   string            `json:"name"`
	Values *[]readingPayload `json:"values"`
}

type readingPayload struct {
	Timestamp string   `json:"timestamp"`
	Value     *float64 `json:"value"`
}

type Client struct {
	url        string
	httpClient *http.Client
	location   *time.Location
	logger     *slog.Logger
}

// NewClient returns a client for url. Zone-less timestamps are read in loc
// and every parsed timestamp is converted into loc.
func NewClient(url string, timeout time.Duration, loc *time.Location, logger *slog.Logger) *Client {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		location:   loc,
		logger:     logger,
	}
}

// Fetch issues one GET and returns the series of the sensor called name
// (SelectFirst for the first entry). Only the selected entry is validated;
// malformed entries of other sensors are ignored.
func (c *Client) Fetch(ctx context.Context, name string) (types.Series, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return types.Series{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.Series{}, fmt.Errorf("sensor api: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("close sensor api body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.CopyN(io.Discard, resp.Body, 512)
		return types.Series{}, &StatusError{StatusCode: resp.StatusCode}
	}

	var payload []sensorPayload
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&payload); err != nil {
		return types.Series{}, fmt.Errorf("%w: decode: %v", ErrMalformedResponse, err)
	}

	p, err := selectPayload(payload, name)
	if err != nil {
		return types.Series{}, err
	}
	series, err := c.convert(p)
	if err != nil {
		return types.Series{}, fmt.Errorf("%w: sensor %q: %v", ErrMalformedResponse, p.Name, err)
	}
	c.logger.Debug("sensor api fetched", "url", c.url, "sensors", len(payload), "sensor", series.Name, "readings", len(series.Readings))
	return series, nil
}

// selectPayload returns the entry called name, or the first entry when name
// is SelectFirst.
func selectPayload(payload []sensorPayload, name string) (sensorPayload, error) {
	if name == SelectFirst {
		if len(payload) == 0 {
			return sensorPayload{}, fmt.Errorf("%w: response is empty", ErrSensorNotFound)
		}
		return payload[0], nil
	}
	for _, p := range payload {
		if p.Name == name {
			return p, nil
		}
	}
	return sensorPayload{}, fmt.Errorf("%w: %q", ErrSensorNotFound, name)
}

func (c *Client) convert(p sensorPayload) (types.Series, error) {
	if p.Values == nil {
		return types.Series{}, errors.New("missing values")
	}
	readings := make([]types.Reading, 0, len(*p.Values))
	for i, v := range *p.Values {
		if v.Value == nil {
			return types.Series{}, fmt.Errorf("value %d: missing value", i)
		}
		ts, err := ParseTimestamp(v.Timestamp, c.location)
		if err != nil {
			return types.Series{}, fmt.Errorf("value %d: %w", i, err)
		}
		readings = append(readings, types.Reading{Timestamp: ts, Value: *v.Value})
	}
	return types.Series{Name: p.Name, Readings: readings}, nil
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z0700",
}

var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// dateOnlyLayout values are UTC midnight, as ECMAScript reads them.
const dateOnlyLayout = "2006-01-02"

// ParseTimestamp reads an ISO-8601 timestamp. Timestamps without a zone are
// taken to be in loc. The result is expressed in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("missing timestamp")
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(loc), nil
		}
	}
	for _, layout := range zonelessLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(dateOnlyLayout, s); err == nil {
		return t.In(loc), nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
