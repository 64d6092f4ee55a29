//go:build !windows

package detector

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// PIDAlive returns true if a process with the given pid exists. EPERM means
// the process exists but belongs to another user, so it counts as alive; any
// other error is treated as dead.
func PIDAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

// PIDDetector detects by a bare PID number.
type PIDDetector struct{ PID int }

func (d PIDDetector) Alive() (bool, error) { return PIDAlive(d.PID), nil }
func (d PIDDetector) Describe() string     { return fmt.Sprintf("pid:%d", d.PID) }

// StartTimeDetector detects by PID plus the process start time recorded when
// the PID was first observed. A matching PID with a different start time is a
// reused PID, not our process.
type StartTimeDetector struct {
	PID       int
	StartUnix int64
}

func (d StartTimeDetector) Alive() (bool, error) {
	if !PIDAlive(d.PID) {
		return false, nil
	}
	if d.StartUnix > 0 {
		if cur := ProcStartUnix(d.PID); cur > 0 && cur != d.StartUnix {
			return false, nil
		}
	}
	return true, nil
}

func (d StartTimeDetector) Describe() string {
	return fmt.Sprintf("pid:%d@%d", d.PID, d.StartUnix)
}

// PIDFileDetector detects via a file holding a single integer PID, as written
// by the state store for worker processes.
type PIDFileDetector struct{ Path string }

func (d PIDFileDetector) Alive() (bool, error) {
	data, err := os.ReadFile(d.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false, fmt.Errorf("invalid pid in %s: %w", d.Path, err)
	}
	return PIDAlive(pid), nil
}

func (d PIDFileDetector) Describe() string { return "pidfile:" + d.Path }
