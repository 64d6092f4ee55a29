//go:build !windows

package launcher

import "syscall"

// Terminate asks the process to exit gracefully.
func Terminate(pid int) error { return syscall.Kill(pid, syscall.SIGTERM) }

// Kill stops the process immediately.
func Kill(pid int) error { return syscall.Kill(pid, syscall.SIGKILL) }
