package httpapi

import (
	"database/sql"
	"log/slog"
	"net/http"

	"pressuredash/internal/modules/pressure/types"
	"pressuredash/internal/utils"
)

// FetchStatusProvider reports the state of the sensor fetch loop.
type FetchStatusProvider interface {
	Status() types.FetchStatus
}

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	db     *sql.DB
	status FetchStatusProvider
}

func NewHealthchecker(db *sql.DB, status FetchStatusProvider) healthchecker {
	return &healthcheckerImpl{db: db, status: status}
}

// handleHealthz only fails on the database. Upstream fetch failures are
// reported in the body but do not make the process unhealthy.
func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	var ok int
	if err := h.db.QueryRowContext(r.Context(), `SELECT 1`).Scan(&ok); err != nil {
		slog.Error("failed to check database connectivity", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to check database connectivity")
		return
	}
	body := map[string]any{"status": "ok"}
	if h.status != nil {
		body["fetch"] = h.status.Status()
	}
	utils.WriteJSON(w, http.StatusOK, body)
}

func registerHealthcheck(mux *http.ServeMux, db *sql.DB, status FetchStatusProvider) {
	healthchecker := NewHealthchecker(db, status)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
