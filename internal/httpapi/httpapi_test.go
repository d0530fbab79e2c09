package httpapi

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"pressuredash/internal/config"
	"pressuredash/internal/modules/pressure/types"
)

type staticStatus types.FetchStatus

func (s staticStatus) Status() types.FetchStatus { return types.FetchStatus(s) }

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestServer(t *testing.T, db *sql.DB, status FetchStatusProvider) *httptest.Server {
	t.Helper()

	srv := NewServer(config.Config{HTTPAddr: ":0"}, NewMux(db, status), nil)
	ts := httptest.NewServer(srv.Handler)

	t.Cleanup(ts.Close)
	return ts
}

func mustGetJSON[T any](t *testing.T, client *http.Client, url string, out *T) *http.Response {
	t.Helper()

	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	return resp
}

func TestHealthz(t *testing.T) {
	t.Run("ok with fetch status", func(t *testing.T) {
		lastSuccess := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
		ts := newTestServer(t, openTestDB(t), staticStatus{LastAttempt: lastSuccess, LastSuccess: lastSuccess})

		var body struct {
			Status string            `json:"status"`
			Fetch  types.FetchStatus `json:"fetch"`
		}
		resp := mustGetJSON(t, ts.Client(), ts.URL+"/healthz", &body)

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status=%d want=%d", resp.StatusCode, http.StatusOK)
		}
		if body.Status != "ok" {
			t.Fatalf("body.status=%q want=%q", body.Status, "ok")
		}
		if !body.Fetch.LastSuccess.Equal(lastSuccess) {
			t.Fatalf("fetch.lastSuccess=%v want=%v", body.Fetch.LastSuccess, lastSuccess)
		}
	})

	t.Run("fetch errors keep the process healthy", func(t *testing.T) {
		ts := newTestServer(t, openTestDB(t), staticStatus{LastError: "fetch: connection refused"})

		var body map[string]any
		resp := mustGetJSON(t, ts.Client(), ts.URL+"/healthz", &body)

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status=%d want=%d", resp.StatusCode, http.StatusOK)
		}
	})

	t.Run("500 when database is closed", func(t *testing.T) {
		db := openTestDB(t)
		_ = db.Close()
		ts := newTestServer(t, db, nil)

		var body map[string]any
		resp := mustGetJSON(t, ts.Client(), ts.URL+"/healthz", &body)

		if resp.StatusCode != http.StatusInternalServerError {
			t.Fatalf("status=%d want=%d", resp.StatusCode, http.StatusInternalServerError)
		}
		if _, ok := body["message"]; !ok {
			t.Fatalf("expected message field, got %v", body)
		}
	})
}

func TestRouting_UnknownRoute(t *testing.T) {
	ts := newTestServer(t, openTestDB(t), nil)

	resp, err := ts.Client().Get(ts.URL + "/does-not-exist")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d want=%d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestRouting_WrongMethod(t *testing.T) {
	ts := newTestServer(t, openTestDB(t), nil)

	resp, err := ts.Client().Post(ts.URL+"/healthz", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d want=%d", resp.StatusCode, http.StatusMethodNotAllowed)
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := requestLogger(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status=%d want=%d", rec.Code, http.StatusBadGateway)
	}
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["level"] != "WARN" || entry["method"] != "POST" || entry["path"] != "/api/v1/refresh" {
		t.Errorf("log entry = %v", entry)
	}
	if status, _ := entry["status"].(float64); int(status) != http.StatusBadGateway {
		t.Errorf("logged status = %v; want %d", entry["status"], http.StatusBadGateway)
	}
	if !strings.Contains(buf.String(), "duration_ms") {
		t.Errorf("log entry missing duration_ms: %s", buf.String())
	}
}
