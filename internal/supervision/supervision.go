// Package supervision reports on and controls the monitoring agent through
// whichever supervision facility the host offers: systemd when present, a
// process-table scan plus a fallback runner script otherwise.
package supervision

import (
	"context"
	"regexp"
	"strings"
)

// Kind identifies a supervision facility.
type Kind string

const (
	// Declarative means systemd owns the agent unit.
	Declarative Kind = "declarative"
	// None means no service manager; the agent is found in the process table
	// and started through the fallback script.
	None Kind = "none"
)

// State is a unit state. Systemd states are passed through unchanged, so values
// beyond the constants below (activating, failed, ...) can appear.
type State string

const (
	StateActive   State = "active"
	StateInactive State = "inactive"
	StateRunning  State = "running"
	StateStopped  State = "stopped"
	StateUnknown  State = "unknown"
)

// Running reports whether s means the agent is up.
func (s State) Running() bool {
	return s == StateActive || s == StateRunning
}

// Fixed texts returned by Tail when no log can be produced.
const (
	LogSubsystemUnavailable = "log subsystem unavailable"
	NoLogSourceFound        = "no log source found"
)

// ServiceStatus is the observed state of the agent unit.
type ServiceStatus struct {
	State       State  `json:"state"`
	LastLogLine string `json:"last_log_line,omitempty"`
}

// Result collects the operator-facing outcome of a lifecycle command.
type Result struct {
	Messages []string
	Errors   []string
}

// Facility is one way of supervising the agent. Implementations never return
// errors: failures degrade to a safe default and are logged.
type Facility interface {
	Kind() Kind
	State(ctx context.Context, unit string) State
	LastLogLine(ctx context.Context, unit string) string
	Tail(ctx context.Context, unit string, lines int) string
	Restart(ctx context.Context, unit, fallbackScript string) Result
}

// Status queries both the state and the most recent log line of unit.
func Status(ctx context.Context, f Facility, unit string) ServiceStatus {
	return ServiceStatus{
		State:       f.State(ctx, unit),
		LastLogLine: f.LastLogLine(ctx, unit),
	}
}

var unitNamePattern = regexp.MustCompile(`^[A-Za-z0-9@._:-]+$`)

// ValidUnitName reports whether name is safe to pass as a unit argument: a
// restricted character set that cannot be read as a command-line option.
func ValidUnitName(name string) bool {
	return name != "" && !strings.HasPrefix(name, "-") && unitNamePattern.MatchString(name)
}

func firstLine(out string) string {
	line, _, _ := strings.Cut(strings.TrimLeft(out, "\r\n"), "\n")
	return strings.TrimSpace(line)
}
