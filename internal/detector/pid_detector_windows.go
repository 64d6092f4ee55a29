//go:build windows

package detector

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

func PIDAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	ok, err := gopsproc.PidExists(int32(pid))
	return err == nil && ok
}

// ProcStartUnix returns the process start time as Unix seconds, 0 on error.
func ProcStartUnix(pid int) int64 {
	p, err := gopsproc.NewProcess(int32(pid))
	if err != nil {
		return 0
	}
	ms, err := p.CreateTime()
	if err != nil || ms <= 0 {
		return 0
	}
	return ms / 1000
}

type PIDDetector struct{ PID int }

func (d PIDDetector) Alive() (bool, error) { return PIDAlive(d.PID), nil }
func (d PIDDetector) Describe() string     { return fmt.Sprintf("pid:%d", d.PID) }

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
