//go:build !windows

package hostinfo

import (
	"golang.org/x/sys/unix"
)

// Arch returns the normalized machine architecture from uname(2).
func Arch() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return Unknown
	}
	return normalizeArch(unix.ByteSliceToString(uts.Machine[:]))
}
