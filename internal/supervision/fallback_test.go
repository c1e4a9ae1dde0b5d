package supervision

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeLog(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFallback_State(t *testing.T) {
	tests := []struct {
		name   string
		finder *fakeFinder
		want   State
	}{
		{"present", &fakeFinder{running: true}, StateRunning},
		{"absent", &fakeFinder{running: false}, StateStopped},
		{"scan error", &fakeFinder{err: errors.New("permission denied")}, StateStopped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFallback(&fakeRunner{}, tt.finder, FallbackOptions{ProcessName: "fpp-monitor-agent"})
			if got := f.State(context.Background(), testUnit); got != tt.want {
				t.Errorf("State() = %q, want %q", got, tt.want)
			}
			if !reflect.DeepEqual(tt.finder.asked, []string{"fpp-monitor-agent"}) {
				t.Errorf("finder asked for %v", tt.finder.asked)
			}
		})
	}
}

func TestFallback_LastLogLine_FirstExistingFile(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "syslog")
	messages := writeLog(t, dir, "messages", "a\nb\n")

	r := &fakeRunner{respond: func(call) (string, error) { return "b\n", nil }}
	f := NewFallback(r, &fakeFinder{}, FallbackOptions{LogFiles: []string{missing, messages}})

	if got := f.LastLogLine(context.Background(), testUnit); got != "b" {
		t.Errorf("LastLogLine() = %q, want b", got)
	}
	want := []string{"tail -n 1 " + messages}
	if got := r.commands(); !reflect.DeepEqual(got, want) {
		t.Errorf("commands = %v, want %v", got, want)
	}
}

func TestFallback_LastLogLine_SkipsEmptyOutput(t *testing.T) {
	dir := t.TempDir()
	empty := writeLog(t, dir, "syslog", "")
	messages := writeLog(t, dir, "messages", "last\n")

	r := &fakeRunner{respond: func(c call) (string, error) {
		if c.args[len(c.args)-1] == empty {
			return "", nil
		}
		return "last\n", nil
	}}
	f := NewFallback(r, &fakeFinder{}, FallbackOptions{LogFiles: []string{empty, messages}})

	if got := f.LastLogLine(context.Background(), testUnit); got != "last" {
		t.Errorf("LastLogLine() = %q, want last", got)
	}
}

func TestFallback_LastLogLine_NoSource(t *testing.T) {
	r := &fakeRunner{}
	f := NewFallback(r, &fakeFinder{}, FallbackOptions{LogFiles: []string{"/nonexistent/a", "/nonexistent/b"}})

	if got := f.LastLogLine(context.Background(), testUnit); got != "" {
		t.Errorf("LastLogLine() = %q, want empty", got)
	}
	if len(r.commands()) != 0 {
		t.Errorf("runner should not be called: %v", r.commands())
	}
}

func TestFallback_Tail(t *testing.T) {
	dir := t.TempDir()
	syslog := writeLog(t, dir, "syslog", "x\n")
	messages := writeLog(t, dir, "messages", "y\n")

	r := &fakeRunner{respond: func(c call) (string, error) {
		if c.args[len(c.args)-1] == syslog {
			return "", &CommandError{Command: "tail", ExitCode: 1}
		}
		return "one\ntwo\n", nil
	}}
	f := NewFallback(r, &fakeFinder{}, FallbackOptions{LogFiles: []string{syslog, messages}})

	if got := f.Tail(context.Background(), testUnit, 50); got != "one\ntwo" {
		t.Errorf("Tail() = %q", got)
	}
	want := []string{"tail -n 50 " + syslog, "tail -n 50 " + messages}
	if got := r.commands(); !reflect.DeepEqual(got, want) {
		t.Errorf("commands = %v, want %v", got, want)
	}
}

func TestFallback_Tail_NoSource(t *testing.T) {
	f := NewFallback(&fakeRunner{}, &fakeFinder{}, FallbackOptions{LogFiles: []string{"/nonexistent/log"}})
	if got := f.Tail(context.Background(), testUnit, 10); got != NoLogSourceFound {
		t.Errorf("Tail() = %q, want %q", got, NoLogSourceFound)
	}
}

func TestFallback_Tail_AllSourcesFail(t *testing.T) {
	dir := t.TempDir()
	syslog := writeLog(t, dir, "syslog", "x\n")

	r := &fakeRunner{respond: func(call) (string, error) { return "", errors.New("boom") }}
	f := NewFallback(r, &fakeFinder{}, FallbackOptions{LogFiles: []string{syslog}})
	if got := f.Tail(context.Background(), testUnit, 10); got != NoLogSourceFound {
		t.Errorf("Tail() = %q, want %q", got, NoLogSourceFound)
	}
}

func TestFallback_Restart(t *testing.T) {
	r := &fakeRunner{}
	f := NewFallback(r, &fakeFinder{}, FallbackOptions{})

	res := f.Restart(context.Background(), testUnit, "/home/fpp/media/plugins/showops-agent/system/fpp-monitor-agent.sh")
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if len(res.Messages) != 1 || res.Messages[0] != "Systemd not available; fallback runner launched." {
		t.Errorf("Messages = %v", res.Messages)
	}
	want := [][]string{{"/home/fpp/media/plugins/showops-agent/system/fpp-monitor-agent.sh"}}
	if !reflect.DeepEqual(r.started, want) {
		t.Errorf("started = %v, want %v", r.started, want)
	}
}

func TestFallback_Restart_LaunchFailure(t *testing.T) {
	r := &fakeRunner{startErr: errors.New("fork/exec /missing.sh: no such file or directory")}
	res := NewFallback(r, &fakeFinder{}, FallbackOptions{}).Restart(context.Background(), testUnit, "/missing.sh")

	if len(res.Messages) != 0 {
		t.Errorf("unexpected messages: %v", res.Messages)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("Errors = %v", res.Errors)
	}
}

func TestFallback_DefaultLogFiles(t *testing.T) {
	f := NewFallback(&fakeRunner{}, &fakeFinder{}, FallbackOptions{})
	if !reflect.DeepEqual(f.logFiles, DefaultLogFiles) {
		t.Errorf("logFiles = %v, want %v", f.logFiles, DefaultLogFiles)
	}
}

func TestStatus_CombinesStateAndLastLine(t *testing.T) {
	r := &fakeRunner{respond: func(c call) (string, error) {
		if c.name == "systemctl" {
			return "active\n", nil
		}
		return "last entry\n", nil
	}}
	st := Status(context.Background(), NewSystemd(r, SystemdOptions{}), testUnit)
	if st.State != StateActive || st.LastLogLine != "last entry" {
		t.Errorf("Status() = %+v", st)
	}
	if !st.State.Running() {
		t.Error("active should count as running")
	}
}
