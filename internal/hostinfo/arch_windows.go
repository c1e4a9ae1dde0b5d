//go:build windows

package hostinfo

import "runtime"

// Arch returns the architecture the binary was built for.
func Arch() string {
	return normalizeArch(runtime.GOARCH)
}
