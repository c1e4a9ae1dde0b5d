package supervision

import (
	"context"
	"os"
	"strconv"
	"strings"

	"agentpanel/internal/logger"
)

// DefaultLogFiles are the system logs probed, in order, when there is no journal.
var DefaultLogFiles = []string{"/var/log/syslog", "/var/log/messages"}

// FallbackOptions configures the facility used when no service manager is present.
type FallbackOptions struct {
	// ProcessName is the agent's canonical executable name.
	ProcessName string
	// LogFiles are probed in order for log output.
	LogFiles []string
}

// Fallback supervises the agent without a service manager.
type Fallback struct {
	runner      Runner
	finder      ProcessFinder
	processName string
	logFiles    []string
}

// NewFallback creates the fallback facility.
func NewFallback(runner Runner, finder ProcessFinder, opts FallbackOptions) *Fallback {
	files := opts.LogFiles
	if len(files) == 0 {
		files = DefaultLogFiles
	}
	return &Fallback{
		runner:      runner,
		finder:      finder,
		processName: opts.ProcessName,
		logFiles:    append([]string(nil), files...),
	}
}

func (f *Fallback) Kind() Kind { return None }

// State reports running when a matching process is in the process table.
func (f *Fallback) State(ctx context.Context, _ string) State {
	ctx, cancel := context.WithTimeout(ctx, DefaultCommandTimeout)
	defer cancel()

	running, err := f.finder.Running(ctx, f.processName)
	if err != nil {
		log := logger.WithComponent("fallback")
		log.Warn().Err(err).
			Str("process", f.processName).
			Msg("Process table scan failed")
		return StateStopped
	}
	if running {
		return StateRunning
	}
	return StateStopped
}

// LastLogLine returns the last line of the first system log that has one.
func (f *Fallback) LastLogLine(ctx context.Context, _ string) string {
	for _, path := range f.existingLogFiles() {
		out, err := f.runner.Output(ctx, "tail", "-n", "1", path)
		if err != nil {
			continue
		}
		if line := firstLine(out); line != "" {
			return line
		}
	}
	return ""
}

// Tail returns the last lines of the first system log that can be read.
func (f *Fallback) Tail(ctx context.Context, _ string, lines int) string {
	if lines < 0 {
		lines = 0
	}
	for _, path := range f.existingLogFiles() {
		out, err := f.runner.Output(ctx, "tail", "-n", strconv.Itoa(lines), path)
		if err != nil {
			log := logger.WithComponent("fallback")
			log.Debug().Err(err).Str("path", path).Msg("tail failed")
			continue
		}
		return strings.TrimRight(out, "\n")
	}
	return NoLogSourceFound
}

// Restart launches the fallback runner script detached. Whether the agent then
// comes up is not observed; the caller re-queries State.
func (f *Fallback) Restart(_ context.Context, _ string, fallbackScript string) Result {
	log := logger.WithComponent("fallback")

	if err := f.runner.StartDetached(fallbackScript); err != nil {
		log.Error().Err(err).Str("script", fallbackScript).Msg("Failed to launch fallback runner")
		return Result{Errors: []string{"Failed to launch fallback runner: " + err.Error()}}
	}

	log.Info().Str("script", fallbackScript).Msg("Fallback runner launched")
	return Result{Messages: []string{"Systemd not available; fallback runner launched."}}
}

func (f *Fallback) existingLogFiles() []string {
	var found []string
	for _, path := range f.logFiles {
		if fileExists(path) {
			found = append(found, path)
		}
	}
	return found
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
