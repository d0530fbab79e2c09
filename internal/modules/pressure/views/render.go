package views

import (
	"errors"
	"html/template"
	"io"
	"io/fs"
	"time"

	"pressuredash/internal/modules/pressure/types"
)

var dashboardTmpl *template.Template

var errNotLoaded = errors.New("dashboard template not loaded: call views.LoadTemplates during startup")

// loadTemplatesFromFS parses the page and partial templates under dir.
// Tests use it with in-memory filesystems.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	tmpl, err := template.ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	dashboardTmpl = tmpl
	return nil
}

// LoadTemplates loads the embedded templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

// SummaryData is the view model for the stats summary partial.
type SummaryData struct {
	Sensor       string
	Stats        *types.Stats
	ReadingCount int
	FetchedAt    time.Time
	Status       types.FetchStatus
	// Recent lists the latest persisted snapshots, newest first.
	Recent []types.SnapshotRecord
}

type DashboardData struct {
	Summary SummaryData
	// Charts is serialized into the page script; nil renders as null.
	Charts *types.Charts
	// SummaryRefresh is the HTMX polling period of the summary partial in seconds.
	SummaryRefresh int
}

// NewSummaryData builds the summary view model. snap may be nil before the
// first successful fetch.
func NewSummaryData(sensor string, snap *types.Snapshot, status types.FetchStatus) SummaryData {
	data := SummaryData{Sensor: sensor, Status: status}
	if snap == nil {
		return data
	}
	st := snap.Stats
	data.Sensor = snap.Sensor
	data.Stats = &st
	data.ReadingCount = len(snap.Readings)
	data.FetchedAt = snap.FetchedAt
	return data
}

func RenderDashboard(w io.Writer, data *DashboardData) error {
	if dashboardTmpl == nil {
		return errNotLoaded
	}
	return dashboardTmpl.ExecuteTemplate(w, "dashboard.html", data)
}

// RenderSummaryPartial executes only the summary partial, for HTMX refresh.
func RenderSummaryPartial(w io.Writer, data *SummaryData) error {
	if dashboardTmpl == nil {
		return errNotLoaded
	}
	return dashboardTmpl.ExecuteTemplate(w, "partials/summary.html", data)
}
