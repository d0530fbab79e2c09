package controller

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"

	"pressuredash/internal/modules/pressure/service"
	"pressuredash/internal/modules/pressure/types"
	"pressuredash/internal/modules/pressure/views"
	"pressuredash/internal/sensorapi"
	"pressuredash/internal/utils"
)

const noSnapshotMsg = "no sensor data fetched yet"

// summaryData builds the summary view model including the latest history
// rows. A history failure only drops the recent list.
func (c *pressureControllerImpl) summaryData(snap *types.Snapshot) views.SummaryData {
	data := views.NewSummaryData(c.service.SensorName(), snap, c.service.Status())
	sensor := c.resolveSensor("")
	if sensor == "" {
		return data
	}
	recent, err := c.repository.GetRecentSnapshots(sensor, recentSnapshotsLimit)
	if err != nil {
		slog.Error("summary: get recent snapshots failed", "sensor", sensor, "error", err)
		return data
	}
	data.Recent = recent
	return data
}

func (c *pressureControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	snap := c.service.Snapshot()
	data := views.DashboardData{
		Summary:        c.summaryData(snap),
		SummaryRefresh: summaryRefreshSeconds,
	}
	if snap != nil {
		data.Charts = &snap.Charts
	}

	var buf bytes.Buffer
	if err := views.RenderDashboard(&buf, &data); err != nil {
		slog.Error("dashboard template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	utils.WriteHTML(w, &buf)
}

func (c *pressureControllerImpl) handleSummaryPartial(w http.ResponseWriter, r *http.Request) {
	data := c.summaryData(c.service.Snapshot())

	var buf bytes.Buffer
	if err := views.RenderSummaryPartial(&buf, &data); err != nil {
		slog.Error("summary partial render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render")
		return
	}
	utils.WriteHTML(w, &buf)
}

// currentSnapshot writes 503 and returns nil before the first successful fetch.
func (c *pressureControllerImpl) currentSnapshot(w http.ResponseWriter) *types.Snapshot {
	snap := c.service.Snapshot()
	if snap == nil {
		utils.WriteError(w, http.StatusServiceUnavailable, noSnapshotMsg)
	}
	return snap
}

func (c *pressureControllerImpl) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if snap := c.currentSnapshot(w); snap != nil {
		utils.WriteJSON(w, http.StatusOK, snap)
	}
}

func (c *pressureControllerImpl) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := c.currentSnapshot(w)
	if snap == nil {
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"sensor":       snap.Sensor,
		"fetchedAt":    snap.FetchedAt,
		"readingCount": len(snap.Readings),
		"stats":        snap.Stats,
	})
}

func (c *pressureControllerImpl) handleTrend(w http.ResponseWriter, r *http.Request) {
	period := r.PathValue("period")
	if period != "hourly" && period != "daily" {
		utils.WriteError(w, http.StatusNotFound, "unknown trend period (expected hourly or daily)")
		return
	}
	snap := c.currentSnapshot(w)
	if snap == nil {
		return
	}
	buckets := snap.Hourly
	if period == "daily" {
		buckets = snap.Daily
	}
	utils.WriteJSON(w, http.StatusOK, buckets)
}

func (c *pressureControllerImpl) handleCharts(w http.ResponseWriter, r *http.Request) {
	if snap := c.currentSnapshot(w); snap != nil {
		utils.WriteJSON(w, http.StatusOK, snap.Charts)
	}
}

func (c *pressureControllerImpl) handleStatus(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, c.service.Status())
}

func (c *pressureControllerImpl) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := c.service.Refresh(r.Context())
	switch {
	case err == nil:
	case errors.Is(err, service.ErrFetchInFlight):
		utils.WriteError(w, http.StatusConflict, err.Error())
		return
	default:
		slog.Warn("refresh failed", "error", err)
		utils.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	utils.WriteJSON(w, http.StatusOK, types.SnapshotRecord{
		ID:           snap.ID,
		Sensor:       snap.Sensor,
		FetchedAt:    snap.FetchedAt,
		ReadingCount: len(snap.Readings),
		Stats:        snap.Stats,
	})
}

// resolveSensor picks the sensor whose history is listed: explicit if set,
// else the sensor of the current snapshot, else the configured name. It is
// empty while the configured name is SelectFirst and nothing was fetched.
func (c *pressureControllerImpl) resolveSensor(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if snap := c.service.Snapshot(); snap != nil {
		return snap.Sensor
	}
	if name := c.service.SensorName(); name != sensorapi.SelectFirst {
		return name
	}
	return ""
}

func (c *pressureControllerImpl) handleHistory(w http.ResponseWriter, r *http.Request) {
	from, to, limit, err := parseHistoryQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sensor := c.resolveSensor(r.URL.Query().Get("sensor"))
	items := []types.SnapshotRecord{}
	total := 0
	if sensor != "" {
		items, err = c.repository.GetSnapshots(sensor, from, to, limit)
		if err != nil {
			slog.Error("history: get snapshots failed", "sensor", sensor, "error", err)
			utils.WriteError(w, http.StatusInternalServerError, "failed to load history")
			return
		}
		if items == nil {
			items = []types.SnapshotRecord{}
		}
		total, err = c.repository.CountSnapshots(sensor)
		if err != nil {
			slog.Error("history: count snapshots failed", "sensor", sensor, "error", err)
			utils.WriteError(w, http.StatusInternalServerError, "failed to load history")
			return
		}
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"sensor": sensor,
		"from":   zeroAsNullTime(from),
		"to":     zeroAsNullTime(to),
		"limit":  limit,
		"total":  total,
		"items":  items,
	})
}
