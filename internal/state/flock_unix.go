//go:build !windows

package state

import (
	"os"
	"syscall"
)

// Advisory per-file locks. Exclusive for read-modify-write, shared for reads.
// flock is advisory only; every writer in this codebase goes through Manager,
// and out-of-band inspection with plain tools stays safe for readers because
// writes are fsynced before unlock.

func lockExclusive(f *os.File) error { return syscall.Flock(int(f.Fd()), syscall.LOCK_EX) }
func lockShared(f *os.File) error    { return syscall.Flock(int(f.Fd()), syscall.LOCK_SH) }
func unlock(f *os.File) error        { return syscall.Flock(int(f.Fd()), syscall.LOCK_UN) }
