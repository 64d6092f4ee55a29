//go:build windows

package state

import "os"

// Windows has no flock; rely on the OS-level sharing semantics of the file
// handle. Single-writer discipline is preserved because every mutation is a
// whole-file rewrite followed by Sync.

func lockExclusive(_ *os.File) error { return nil }
func lockShared(_ *os.File) error    { return nil }
func unlock(_ *os.File) error        { return nil }
