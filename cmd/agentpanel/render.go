package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"agentpanel/internal/panel"
)

// render writes resp for a terminal, or as indented JSON for the host page.
func render(w io.Writer, resp panel.Response, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	for _, m := range resp.Messages {
		fmt.Fprintf(w, "OK: %s\n", m)
	}
	for _, e := range resp.Errors {
		fmt.Fprintf(w, "ERROR: %s\n", e)
	}
	if resp.Logs != "" {
		fmt.Fprintf(w, "%s\n", resp.Logs)
	}
	if resp.Snapshot == nil {
		return nil
	}
	if len(resp.Messages)+len(resp.Errors) > 0 || resp.Logs != "" {
		fmt.Fprintln(w)
	}
	return renderSnapshot(w, resp.Snapshot)
}

func renderSnapshot(w io.Writer, s *panel.Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	running := "not running"
	if s.Running {
		running = "running"
	}
	enrolled := "not enrolled"
	if s.Enrolled {
		enrolled = "enrolled as " + s.DeviceID
	}
	heartbeat := "never"
	if s.LastHeartbeat != "" {
		heartbeat = s.LastHeartbeat
		if s.HeartbeatAge > 0 {
			heartbeat += fmt.Sprintf(" (%s ago)", s.HeartbeatAge.Truncate(time.Second))
		}
	}

	fmt.Fprintf(tw, "Facility:\t%s\n", s.Facility)
	fmt.Fprintf(tw, "Status:\t%s (%s)\n", s.Status, running)
	fmt.Fprintf(tw, "Installed:\t%s\n", yesNo(s.Installed))
	fmt.Fprintf(tw, "Agent version:\t%s (%s)\n", s.AgentVersion, s.Arch)
	fmt.Fprintf(tw, "Enrollment:\t%s\n", enrolled)
	fmt.Fprintf(tw, "Last heartbeat:\t%s\n", heartbeat)
	fmt.Fprintf(tw, "Last log line:\t%s\n", s.LastLogLine)
	fmt.Fprintf(tw, "Checked at:\t%s\n", s.CheckedAt.Format(time.RFC3339))

	keys := make([]string, 0, len(s.Config))
	for k := range s.Config {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(tw, "  %s\t%s\n", k, displayValue(k, s.Config.String(k)))
	}
	return tw.Flush()
}

// displayValue hides credentials in terminal output.
func displayValue(key, value string) string {
	if strings.Contains(key, "token") {
		if value == "" {
			return "(empty)"
		}
		return "(set)"
	}
	return value
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
