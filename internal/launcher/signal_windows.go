//go:build windows

package launcher

import "os"

// Windows has no SIGTERM; both paths fall back to Process.Kill.

func Terminate(pid int) error { return Kill(pid) }

func Kill(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}
