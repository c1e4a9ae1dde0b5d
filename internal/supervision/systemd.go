package supervision

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"agentpanel/internal/logger"
)

// DefaultRestartTimeout bounds a systemctl restart, which waits for the unit to stop and start.
const DefaultRestartTimeout = 30 * time.Second

// SystemdOptions configures the systemd facility.
type SystemdOptions struct {
	// Elevate is prepended to privileged commands, e.g. ["sudo", "-n"]. Empty runs them directly.
	Elevate        []string
	RestartTimeout time.Duration
}

// Systemd supervises the agent through systemctl and journalctl.
type Systemd struct {
	runner         Runner
	elevate        []string
	restartTimeout time.Duration
}

// NewSystemd creates the systemd facility.
func NewSystemd(runner Runner, opts SystemdOptions) *Systemd {
	timeout := opts.RestartTimeout
	if timeout <= 0 {
		timeout = DefaultRestartTimeout
	}
	return &Systemd{
		runner:         runner,
		elevate:        append([]string(nil), opts.Elevate...),
		restartTimeout: timeout,
	}
}

func (s *Systemd) Kind() Kind { return Declarative }

// State returns the unit's active state as systemctl reports it. Any failure,
// including states systemctl signals with a non-zero exit, maps to inactive.
func (s *Systemd) State(ctx context.Context, unit string) State {
	log := logger.WithComponent("systemd")

	if !ValidUnitName(unit) {
		log.Error().Str("unit", unit).Msg("Refusing to query invalid unit name")
		return StateInactive
	}

	out, err := s.runner.Output(ctx, "systemctl", "is-active", unit)
	if err != nil {
		log.Debug().Err(err).Str("unit", unit).Msg("systemctl is-active failed")
		return StateInactive
	}
	line := firstLine(out)
	if line == "" {
		return StateInactive
	}
	return State(line)
}

// LastLogLine returns the unit's most recent journal entry.
func (s *Systemd) LastLogLine(ctx context.Context, unit string) string {
	if !ValidUnitName(unit) {
		return ""
	}
	out, err := s.runner.Output(ctx, "journalctl", "-u", unit, "-n", "1", "--no-pager", "--quiet", "--output=short-iso")
	if err != nil {
		log := logger.WithComponent("systemd")
		log.Debug().Err(err).Str("unit", unit).Msg("journalctl last line failed")
		return ""
	}
	return firstJournalEntry(out)
}

// firstJournalEntry skips "-- ... --" marker lines such as "-- No entries --".
func firstJournalEntry(out string) string {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-- ") {
			continue
		}
		return line
	}
	return ""
}

// Tail returns the last lines journal entries of unit.
func (s *Systemd) Tail(ctx context.Context, unit string, lines int) string {
	log := logger.WithComponent("systemd")

	if lines < 0 {
		lines = 0
	}
	if !ValidUnitName(unit) {
		log.Error().Str("unit", unit).Msg("Refusing to tail invalid unit name")
		return LogSubsystemUnavailable
	}

	out, err := s.runner.Output(ctx, "journalctl", "-u", unit, "-n", strconv.Itoa(lines), "--no-pager", "--quiet")
	if err != nil {
		log.Warn().Err(err).Str("unit", unit).Msg("journalctl tail failed")
		return LogSubsystemUnavailable
	}
	return strings.TrimRight(out, "\n")
}

// Restart asks systemd to restart unit with elevated privilege.
func (s *Systemd) Restart(ctx context.Context, unit, _ string) Result {
	log := logger.WithComponent("systemd")

	if !ValidUnitName(unit) {
		return Result{Errors: []string{fmt.Sprintf("Failed to restart via systemd: invalid unit name %q.", unit)}}
	}

	ctx, cancel := context.WithTimeout(ctx, s.restartTimeout)
	defer cancel()

	name, args := "systemctl", []string{"restart", unit}
	if len(s.elevate) > 0 {
		args = append(append(append([]string(nil), s.elevate[1:]...), name), args...)
		name = s.elevate[0]
	}

	out, err := s.runner.CombinedOutput(ctx, name, args...)
	if err == nil {
		log.Info().Str("unit", unit).Msg("Agent restarted via systemd")
		return Result{Messages: []string{"Agent restarted via systemd."}}
	}

	log.Error().Err(err).Str("unit", unit).Str("output", out).Msg("systemctl restart failed")
	return Result{Errors: []string{"Failed to restart via systemd: " + restartFailureDetail(out, err)}}
}

func restartFailureDetail(out string, err error) string {
	var cerr *CommandError
	if errors.As(err, &cerr) && cerr.TimedOut {
		return fmt.Sprintf("systemctl restart timed out after %s.", cerr.Timeout)
	}
	if detail := strings.TrimSpace(out); detail != "" {
		return detail
	}
	if errors.As(err, &cerr) && cerr.ExitCode >= 0 {
		return fmt.Sprintf("systemctl restart exited with code %d.", cerr.ExitCode)
	}
	return fmt.Sprintf("systemctl restart could not be run: %v.", err)
}
