// Package hostinfo reports facts about the agent installation and the host it
// runs on.
package hostinfo

import (
	"os"
	"strings"
)

// Unknown is reported when a value cannot be determined.
const Unknown = "unknown"

// AgentVersion returns the trimmed contents of the first non-empty version
// file in paths, or Unknown.
func AgentVersion(paths []string) string {
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		if v := strings.TrimSpace(string(data)); v != "" {
			return v
		}
	}
	return Unknown
}

// normalizeArch maps a kernel machine name onto the names agent builds are
// published under.
func normalizeArch(machine string) string {
	m := strings.ToLower(strings.TrimSpace(machine))
	switch {
	case m == "":
		return Unknown
	case strings.HasPrefix(m, "armv7"):
		return "armv7"
	case m == "aarch64" || m == "arm64":
		return "arm64"
	default:
		return m
	}
}
