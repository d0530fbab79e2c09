package repository

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pressuredash/internal/modules/pressure/types"
)

//go:embed sql/insert-snapshot.sql
var insertSnapshotSQL string

//go:embed sql/get-recent-snapshots.sql
var getRecentSnapshotsSQL string

//go:embed sql/get-snapshots.sql
var getSnapshotsSQL string

//go:embed sql/count-snapshots.sql
var countSnapshotsSQL string

// timestampLayout has a fixed width so fetched_at sorts lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

type SnapshotRepository interface {
	InsertSnapshot(rec types.SnapshotRecord) error
	GetRecentSnapshots(sensor string, limit int) ([]types.SnapshotRecord, error)
	GetSnapshots(sensor string, from time.Time, to time.Time, limit int) ([]types.SnapshotRecord, error)
	CountSnapshots(sensor string) (int, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) SnapshotRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) InsertSnapshot(rec types.SnapshotRecord) error {
	if rec.ID == "" {
		return errors.New("insert snapshot: missing id")
	}
	if rec.Sensor == "" {
		return errors.New("insert snapshot: missing sensor")
	}
	if rec.ReadingCount <= 0 {
		return fmt.Errorf("insert snapshot: reading_count must be positive: %d", rec.ReadingCount)
	}
	st := rec.Stats
	_, err := r.db.Exec(insertSnapshotSQL,
		rec.ID, rec.Sensor, formatTime(rec.FetchedAt), rec.ReadingCount,
		st.Avg, st.Min, st.Max,
		st.Low, st.Medium, st.High,
		st.Below, st.Within, st.Above,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (r *repositoryImpl) GetRecentSnapshots(sensor string, limit int) ([]types.SnapshotRecord, error) {
	rows, err := r.db.Query(getRecentSnapshotsSQL, sensor, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close recent snapshots rows", "error", err)
		}
	}()
	return scanSnapshots(rows)
}

// GetSnapshots returns snapshots of sensor fetched within [from, to], newest
// first. A zero from or to leaves that side open.
func (r *repositoryImpl) GetSnapshots(sensor string, from time.Time, to time.Time, limit int) ([]types.SnapshotRecord, error) {
	fromArg := zeroAsNull(from)
	toArg := zeroAsNull(to)
	rows, err := r.db.Query(getSnapshotsSQL, sensor, fromArg, fromArg, toArg, toArg, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close snapshots rows", "error", err)
		}
	}()
	return scanSnapshots(rows)
}

func (r *repositoryImpl) CountSnapshots(sensor string) (int, error) {
	var n int
	err := r.db.QueryRow(countSnapshotsSQL, sensor).Scan(&n)
	return n, err
}

func scanSnapshots(rows *sql.Rows) ([]types.SnapshotRecord, error) {
	var out []types.SnapshotRecord
	for rows.Next() {
		var rec types.SnapshotRecord
		var ts string
		st := &rec.Stats
		if err := rows.Scan(
			&rec.ID, &rec.Sensor, &ts, &rec.ReadingCount,
			&st.Avg, &st.Min, &st.Max,
			&st.Low, &st.Medium, &st.High,
			&st.Below, &st.Within, &st.Above,
		); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse fetched_at %q: %w", ts, err)
		}
		rec.FetchedAt = t
		out = append(out, rec)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func zeroAsNull(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}
