package service

import (
	"context"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v4/process"
)

// AlreadyRunning reports whether another process with our executable name
// is alive. This is the whole single-instance story: concurrent
// invocations are prevented here, the core never takes any lock.
func AlreadyRunning(ctx context.Context) (bool, error) {
	exe, err := os.Executable()
	if err != nil {
		return false, err
	}
	self := filepath.Base(exe)
	selfPid := int32(os.Getpid())

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return false, err
	}
	for _, p := range procs {
		if p.Pid == selfPid {
			continue
		}
		name, err := p.NameWithContext(ctx)
		if err != nil {
			// process may have exited meanwhile
			continue
		}
		if name == self {
			return true, nil
		}
	}
	return false, nil
}
