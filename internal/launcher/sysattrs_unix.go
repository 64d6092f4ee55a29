//go:build !windows

package launcher

import "syscall"

// sysProcAttrDetached puts the child in a new session so that termination of
// the launcher's process group does not reach it.
func sysProcAttrDetached() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
