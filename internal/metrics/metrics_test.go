package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_Counters(t *testing.T) {
	r := NewRecorder()
	r.ObserveRestart("declarative", true)
	r.ObserveRestart("declarative", false)
	r.ObserveRestart("declarative", false)
	r.ObserveConfigWrite(true)
	r.SetServiceUp(true)

	if got := testutil.ToFloat64(r.restarts.WithLabelValues("declarative", "failure")); got != 2 {
		t.Errorf("restart failures = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.configWrites.WithLabelValues("success")); got != 1 {
		t.Errorf("config writes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.serviceUp); got != 1 {
		t.Errorf("service_up = %v, want 1", got)
	}

	r.SetServiceUp(false)
	if got := testutil.ToFloat64(r.serviceUp); got != 0 {
		t.Errorf("service_up = %v, want 0", got)
	}
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.ObserveRestart("none", true)
	r.SetServiceUp(true)

	path := filepath.Join(t.TempDir(), "agentpanel.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{
		"agentpanel_service_up 1",
		`agentpanel_restarts_total{facility="none",result="success"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("textfile missing %q:\n%s", want, out)
		}
	}
}

func TestRecorder_WriteTextfileBadDir(t *testing.T) {
	r := NewRecorder()
	err := r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"))
	if err == nil {
		t.Error("expected error for missing directory")
	}
}
