package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"agentpanel/internal/config"
	"agentpanel/internal/configstore"
	"agentpanel/internal/logger"
	"agentpanel/internal/metrics"
	"agentpanel/internal/panel"
	"agentpanel/internal/service"
	"agentpanel/internal/supervision"
)

// writeSettings also detaches the global logger from the test's temp dir once
// the test ends.
func writeSettings(t *testing.T, dir, body string) string {
	t.Helper()
	t.Cleanup(func() { logger.SetOutput(io.Discard) })
	path := filepath.Join(dir, "agent-panel.json")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"--version"}, &stdout, &stderr); code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if !strings.HasPrefix(stdout.String(), "agentpanel ") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRun_BadFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"--no-such-flag"}, &stdout, &stderr); code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
}

func TestRun_InvalidSettingsWritesStartupError(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "logs", "agentpanel.log")
	settings := writeSettings(t, dir, `{
		"UnitName": "bad unit",
		"Logging": {"FilePath": "`+logFile+`"}
	}`)

	var stdout, stderr bytes.Buffer
	if code := run([]string{"--settings", settings}, &stdout, &stderr); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}

	data, err := os.ReadFile(filepath.Join(dir, "logs", service.StartupErrorFileName))
	if err != nil {
		t.Fatalf("startup error file not written next to the configured log: %v", err)
	}
	if !strings.Contains(string(data), "UnitName") {
		t.Errorf("startup error file = %q", data)
	}
	if !strings.Contains(stderr.String(), "UnitName") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRun_UsageErrorAfterLoggerInitReturnsCode(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "agentpanel.log")
	settings := writeSettings(t, dir, `{"Logging": {"FilePath": "`+logFile+`"}}`)

	var stdout, stderr bytes.Buffer
	code := run([]string{"--settings", settings, "--action", "view", "--set", "a=b"}, &stdout, &stderr)
	if code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("log file missing: %v", err)
	}
	if !strings.Contains(string(data), "Starting agentpanel") {
		t.Errorf("log file = %q", data)
	}
}

// stubFacility reports a fixed running state.
type stubFacility struct{}

func (stubFacility) Kind() supervision.Kind { return supervision.None }

func (stubFacility) State(context.Context, string) supervision.State {
	return supervision.StateRunning
}

func (stubFacility) LastLogLine(context.Context, string) string { return "" }

func (stubFacility) Tail(context.Context, string, int) string { return "" }

func (stubFacility) Restart(context.Context, string, string) supervision.Result {
	return supervision.Result{}
}

type stubSource struct{}

func (stubSource) Current() supervision.Facility { return stubFacility{} }

// lockedBuffer is written by the watch loop while the test reads it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatch_MissingConfigDirRefreshesOnTimer(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AgentConfigPath = filepath.Join(t.TempDir(), "nodir", "fpp-monitor-agent.json")
	cfg.WatchRefresh = 20 * time.Millisecond

	p := panel.New(configstore.New(cfg.AgentConfigPath), stubSource{}, supervision.Installation{},
		panel.Settings{UnitName: cfg.UnitName, TailLines: 200, MaxTailLines: 5000},
		panel.WithArch(func() string { return "arm64" }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &lockedBuffer{}
	errc := make(chan error, 1)
	go func() { errc <- watch(ctx, p, cfg, out, false, metrics.NewRecorder()) }()

	deadline := time.After(5 * time.Second)
	for strings.Count(out.String(), "Facility:") < 2 {
		select {
		case err := <-errc:
			t.Fatalf("watch returned early: %v", err)
		case <-deadline:
			t.Fatalf("no timer refresh, output:\n%s", out.String())
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("watch() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
