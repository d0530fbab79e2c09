//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const repoRootRel = ".."   // relative to ./e2e
const mainPkgRel = "./cmd" // main.go lives in cmd/

const nginxPort = nat.Port("80/tcp")

func TestSmoke_Dashboard(t *testing.T) {
	repoRoot := repoRootPath(t)
	sensorURL := startSensorAPI(t)

	bin := buildBinary(t, repoRoot)
	addr := pickFreeAddr(t)

	cmd := exec.Command(bin)
	cmd.Env = append(os.Environ(),
		"APP_ENV=dev",
		"LOG_LEVEL=debug",
		"HTTP_ADDR="+addr,
		"SENSOR_API_URL="+sensorURL,
		"SENSOR_NAME=FSR1",
		"TIMEZONE=UTC",
		"DB_DRIVER=sqlite3",
		"SQLITE_PATH="+filepath.Join(t.TempDir(), "pressuredash.db"),
		"MQTT_BROKER=",
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	})

	client := &http.Client{Timeout: 5 * time.Second}
	base := "http://" + addr

	waitForOK(t, client, base+"/healthz", 10*time.Second)
	waitForOK(t, client, base+"/api/v1/dashboard", 10*time.Second)

	var stats struct {
		Sensor       string `json:"sensor"`
		ReadingCount int    `json:"readingCount"`
		Stats        struct {
			Avg    float64 `json:"avg"`
			Min    float64 `json:"min"`
			Max    float64 `json:"max"`
			Below  int     `json:"below"`
			Within int     `json:"within"`
			Above  int     `json:"above"`
		} `json:"stats"`
	}
	getJSON(t, client, base+"/api/v1/stats", &stats)
	if stats.Sensor != "FSR1" || stats.ReadingCount != 4 {
		t.Fatalf("stats sensor=%q count=%d", stats.Sensor, stats.ReadingCount)
	}
	if stats.Stats.Avg != 150 || stats.Stats.Min != 80 || stats.Stats.Max != 250 {
		t.Fatalf("stats=%+v", stats.Stats)
	}
	if stats.Stats.Below != 1 || stats.Stats.Within != 2 || stats.Stats.Above != 1 {
		t.Fatalf("threshold buckets=%+v", stats.Stats)
	}

	var hourly []struct {
		Key     string  `json:"key"`
		Average float64 `json:"average"`
	}
	getJSON(t, client, base+"/api/v1/trends/hourly", &hourly)
	if len(hourly) != 2 || hourly[0].Key != "9:00" || hourly[0].Average != 100 || hourly[1].Key != "10:00" {
		t.Fatalf("hourly=%+v", hourly)
	}

	resp, err := client.Post(base+"/api/v1/refresh", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/v1/refresh: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status=%d want=%d", resp.StatusCode, http.StatusOK)
	}

	var history struct {
		Total int `json:"total"`
	}
	getJSON(t, client, base+"/api/v1/history", &history)
	if history.Total < 2 {
		t.Fatalf("history total=%d want >= 2", history.Total)
	}

	stopServer(t, cmd)
}

// startSensorAPI serves testdata/sensor.json from an nginx container and
// returns its URL.
func startSensorAPI(t *testing.T) string {
	t.Helper()

	fixtureDir, err := filepath.Abs("testdata")
	if err != nil {
		t.Fatalf("abs testdata: %v", err)
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "nginx:1.27-alpine",
		ExposedPorts: []string{string(nginxPort)},
		HostConfigModifier: func(hc *container.HostConfig) {
			hc.Binds = append(hc.Binds, fixtureDir+":/usr/share/nginx/html:ro")
		},
		WaitingFor: wait.ForHTTP("/sensor.json").WithPort(nginxPort).WithStartupTimeout(60 * time.Second),
	}

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start nginx container: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Terminate(ctx)
	})

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := c.MappedPort(ctx, nginxPort)
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}

	return "http://" + net.JoinHostPort(host, port.Port()) + "/sensor.json"
}

func repoRootPath(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	repo := filepath.Clean(filepath.Join(wd, repoRootRel))
	if _, err := os.Stat(filepath.Join(repo, "go.mod")); err != nil {
		t.Fatalf("repo root %q does not contain go.mod: %v", repo, err)
	}

	return repo
}

func buildBinary(t *testing.T, repoRoot string) string {
	t.Helper()

	out := filepath.Join(t.TempDir(), "pressuredash")

	build := exec.Command("go", "build", "-o", out, mainPkgRel)
	build.Dir = repoRoot
	build.Env = os.Environ()

	b, err := build.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(b))
	}

	return out
}

func pickFreeAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen :0: %v", err)
	}
	defer ln.Close()

	return ln.Addr().String()
}

func getJSON(t *testing.T, client *http.Client, url string, out any) {
	t.Helper()

	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s status=%d want=%d", url, resp.StatusCode, http.StatusOK)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func waitForOK(t *testing.T, client *http.Client, url string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("no 200 from %s after %s", url, timeout)
}

func stopServer(t *testing.T, cmd *exec.Cmd) {
	t.Helper()

	_ = cmd.Process.Signal(syscall.SIGTERM)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		t.Fatalf("server did not exit in time")
	case err := <-done:
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				t.Fatalf("server exited non-zero: %v", err)
			}
			t.Fatalf("server wait error: %v", err)
		}
	}
}
