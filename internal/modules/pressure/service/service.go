// Package service runs the fetch cycle: pull readings from the sensor API,
// aggregate them and publish the result as the current dashboard snapshot.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"pressuredash/internal/modules/pressure/aggregator"
	"pressuredash/internal/modules/pressure/charts"
	"pressuredash/internal/modules/pressure/types"
)

// ErrFetchInFlight is returned by Refresh while another fetch is running.
var ErrFetchInFlight = errors.New("fetch already in progress")

// SensorSource returns the current series of the named sensor.
type SensorSource interface {
	Fetch(ctx context.Context, sensor string) (types.Series, error)
}

type SnapshotStore interface {
	InsertSnapshot(rec types.SnapshotRecord) error
}

type SnapshotPublisher interface {
	PublishSnapshot(snap *types.Snapshot) error
}

type Options struct {
	SensorName string
	Thresholds aggregator.Thresholds
	Reference  float64
	Location   *time.Location
}

type Service struct {
	source    SensorSource
	store     SnapshotStore
	publisher SnapshotPublisher
	opts      Options
	logger    *slog.Logger

	now   func() time.Time
	newID func() string

	snapshot atomic.Pointer[types.Snapshot]
	inFlight atomic.Bool

	statusMu sync.RWMutex
	status   types.FetchStatus
}

// NewService wires a fetch controller. store and publisher may be nil.
func NewService(source SensorSource, store SnapshotStore, publisher SnapshotPublisher, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Service{
		source:    source,
		store:     store,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// SensorName is the sensor this service aggregates.
func (s *Service) SensorName() string {
	return s.opts.SensorName
}

// Snapshot returns the latest successful snapshot, or nil before the first one.
func (s *Service) Snapshot() *types.Snapshot {
	return s.snapshot.Load()
}

func (s *Service) Status() types.FetchStatus {
	s.statusMu.RLock()
	st := s.status
	s.statusMu.RUnlock()
	st.InFlight = s.inFlight.Load()
	return st
}

// Refresh runs one fetch cycle and returns the snapshot it stored. On any
// error the previous snapshot stays in place. Only one cycle runs at a time;
// concurrent callers get ErrFetchInFlight.
func (s *Service) Refresh(ctx context.Context) (*types.Snapshot, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrFetchInFlight
	}
	defer s.inFlight.Store(false)

	started := s.now()
	snap, err := s.fetch(ctx, started)
	s.recordAttempt(started, err)
	if err != nil {
		return nil, err
	}

	s.snapshot.Store(snap)
	s.logger.Info("snapshot updated",
		"snapshot_id", snap.ID,
		"sensor", snap.Sensor,
		"readings", len(snap.Readings),
		"avg", snap.Stats.Avg,
	)

	s.persist(snap)
	s.publish(snap)
	return snap, nil
}

func (s *Service) fetch(ctx context.Context, fetchedAt time.Time) (*types.Snapshot, error) {
	series, err := s.source.Fetch(ctx, s.opts.SensorName)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	return s.build(series, fetchedAt)
}

// build derives a complete snapshot from series. The snapshot is only
// published once fully built.
func (s *Service) build(series types.Series, fetchedAt time.Time) (*types.Snapshot, error) {
	readings := series.Readings
	st, err := aggregator.ComputeStats(aggregator.Values(readings), s.opts.Thresholds)
	if err != nil {
		return nil, fmt.Errorf("sensor %q: %w", series.Name, err)
	}
	hourly := aggregator.ComputeHourlyTrend(readings)
	daily := aggregator.ComputeDailyTrend(readings)

	return &types.Snapshot{
		ID:        s.newID(),
		Sensor:    series.Name,
		FetchedAt: fetchedAt,
		Readings:  readings,
		Stats:     st,
		Hourly:    hourly,
		Daily:     daily,
		Charts: charts.Build(readings, st, hourly, daily, charts.Options{
			Reference: s.opts.Reference,
			Location:  s.opts.Location,
		}),
	}, nil
}

func (s *Service) persist(snap *types.Snapshot) {
	if s.store == nil {
		return
	}
	rec := types.SnapshotRecord{
		ID:           snap.ID,
		Sensor:       snap.Sensor,
		FetchedAt:    snap.FetchedAt,
		ReadingCount: len(snap.Readings),
		Stats:        snap.Stats,
	}
	if err := s.store.InsertSnapshot(rec); err != nil {
		s.logger.Error("failed to store snapshot", "snapshot_id", snap.ID, "error", err)
	}
}

func (s *Service) publish(snap *types.Snapshot) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishSnapshot(snap); err != nil {
		s.logger.Warn("failed to publish snapshot", "snapshot_id", snap.ID, "error", err)
	}
}

func (s *Service) recordAttempt(at time.Time, err error) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status.LastAttempt = at
	if err != nil {
		s.status.LastError = err.Error()
		return
	}
	s.status.LastSuccess = at
	s.status.LastError = ""
}

// Run refreshes once, then on every tick of interval until ctx is done.
// A zero interval disables polling. Fetch errors are logged, never returned.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	s.refreshAndLog(ctx)
	if interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.refreshAndLog(ctx)
		}
	}
}

func (s *Service) refreshAndLog(ctx context.Context) {
	_, err := s.Refresh(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrFetchInFlight):
		s.logger.Debug("poll skipped, fetch in progress")
	case ctx.Err() != nil:
		s.logger.Debug("fetch cancelled", "error", err)
	default:
		s.logger.Error("fetch failed", "sensor", s.opts.SensorName, "error", err)
	}
}
