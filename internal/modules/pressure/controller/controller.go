package controller

import (
	"context"
	"net/http"

	"pressuredash/internal/modules/pressure/repository"
	"pressuredash/internal/modules/pressure/types"
)

// SnapshotSource is the part of the fetch service the handlers read from.
type SnapshotSource interface {
	SensorName() string
	Snapshot() *types.Snapshot
	Status() types.FetchStatus
	Refresh(ctx context.Context) (*types.Snapshot, error)
}

type PressureController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type pressureControllerImpl struct {
	service    SnapshotSource
	repository repository.SnapshotRepository
}

func NewPressureController(service SnapshotSource, repository repository.SnapshotRepository) PressureController {
	return &pressureControllerImpl{service: service, repository: repository}
}

func (c *pressureControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", c.handleDashboard)
	mux.HandleFunc("GET /partials/summary", c.handleSummaryPartial)

	mux.HandleFunc("GET /api/v1/dashboard", c.handleSnapshot)
	mux.HandleFunc("GET /api/v1/stats", c.handleStats)
	mux.HandleFunc("GET /api/v1/trends/{period}", c.handleTrend)
	mux.HandleFunc("GET /api/v1/charts", c.handleCharts)
	mux.HandleFunc("GET /api/v1/status", c.handleStatus)
	mux.HandleFunc("POST /api/v1/refresh", c.handleRefresh)
	mux.HandleFunc("GET /api/v1/history", c.handleHistory)
}
