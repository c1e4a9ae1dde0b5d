package supervision

import (
	"os/exec"

	"github.com/coreos/go-systemd/v22/util"
)

// Detector decides which supervision facility the host offers.
type Detector struct {
	// sentinel reports whether the systemd runtime directory exists.
	sentinel  func() bool
	lookPath  func(file string) (string, error)
	systemctl string
}

// NewDetector creates a Detector for the running host.
func NewDetector() *Detector {
	return &Detector{
		sentinel:  util.IsRunningSystemd,
		lookPath:  exec.LookPath,
		systemctl: "systemctl",
	}
}

// Detect returns Declarative only when systemd is running and systemctl is on
// PATH. It has no side effects; callers detect once per request.
func (d *Detector) Detect() Kind {
	if !d.sentinel() {
		return None
	}
	if _, err := d.lookPath(d.systemctl); err != nil {
		return None
	}
	return Declarative
}

// Supervisor picks the facility matching the host at call time.
type Supervisor struct {
	detector    *Detector
	declarative Facility
	fallback    Facility
}

// NewSupervisor combines a detector with the two facility implementations.
func NewSupervisor(detector *Detector, declarative, fallback Facility) *Supervisor {
	return &Supervisor{detector: detector, declarative: declarative, fallback: fallback}
}

// Current detects the host facility and returns its implementation.
func (s *Supervisor) Current() Facility {
	if s.detector.Detect() == Declarative {
		return s.declarative
	}
	return s.fallback
}
