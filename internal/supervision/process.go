package supervision

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessFinder looks for a running process by name.
type ProcessFinder interface {
	Running(ctx context.Context, name string) (bool, error)
}

// ProcessTable scans the host process table. A process matches when its name,
// executable basename or command line contains name. The scanning process
// itself is skipped.
type ProcessTable struct {
	selfPID int32
}

// NewProcessTable creates a ProcessFinder over the host process table.
func NewProcessTable() *ProcessTable {
	return &ProcessTable{selfPID: int32(os.Getpid())}
}

func (t *ProcessTable) Running(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, nil
	}

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return false, err
	}

	for _, p := range procs {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}

		if p.Pid == t.selfPID {
			continue
		}
		if pname, err := p.NameWithContext(ctx); err == nil && pname == name {
			return true, nil
		}
		if exe, err := p.ExeWithContext(ctx); err == nil && filepath.Base(exe) == name {
			return true, nil
		}
		if cmdline, err := p.CmdlineWithContext(ctx); err == nil && strings.Contains(cmdline, name) {
			return true, nil
		}
	}
	return false, nil
}
