package supervision

import "path/filepath"

// Installation lists where an installed agent leaves traces on disk.
type Installation struct {
	// UnitDirs are searched for the unit definition file.
	UnitDirs []string
	// BinaryPaths are the known agent executable locations.
	BinaryPaths []string
}

// DefaultUnitDirs are the standard systemd unit directories.
var DefaultUnitDirs = []string{"/etc/systemd/system", "/lib/systemd/system"}

// IsInstalled reports whether any trace of the agent exists: a unit file, the
// fallback script or an agent binary. It says nothing about whether the unit is
// enabled or running.
func (i Installation) IsInstalled(unit, fallbackScript string) bool {
	if ValidUnitName(unit) {
		for _, dir := range i.UnitDirs {
			if fileExists(filepath.Join(dir, unit)) {
				return true
			}
		}
	}
	if fileExists(fallbackScript) {
		return true
	}
	for _, path := range i.BinaryPaths {
		if fileExists(path) {
			return true
		}
	}
	return false
}
