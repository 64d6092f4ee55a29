// Package launcher starts detached OS processes that outlive the launching
// process. Children are placed in a new session so signals to (or exit of)
// the launcher never propagate to them.
package launcher

import (
	"fmt"
	"os"
	"os/exec"
)

// Spec describes one detached launch.
type Spec struct {
	Path       string
	Args       []string
	WorkDir    string
	Env        []string // appended to the current environment
	StdoutPath string
	StderrPath string
}

// Launch starts the process and returns its PID immediately, without waiting
// for it to exit or become ready. Output streams are redirected to the given
// files, never inherited. A background reaper collects the exit status so a
// long-lived launcher does not accumulate zombies.
func Launch(spec Spec) (int, error) {
	// #nosec G204 -- command resolution is done by the workload package
	cmd := exec.Command(spec.Path, spec.Args...)
	if spec.WorkDir != "" {
		cmd.Dir = spec.WorkDir
	}
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	cmd.SysProcAttr = sysProcAttrDetached()

	stdout, err := openLog(spec.StdoutPath)
	if err != nil {
		return 0, err
	}
	stderr, err := openLog(spec.StderrPath)
	if err != nil {
		_ = closeIfFile(stdout)
		return 0, err
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		_ = closeIfFile(stdout)
		_ = closeIfFile(stderr)
		return 0, fmt.Errorf("start %s: %w", spec.Path, err)
	}
	pid := cmd.Process.Pid

	// The child owns the descriptors now; ours can go.
	_ = closeIfFile(stdout)
	_ = closeIfFile(stderr)

	go func() { _ = cmd.Wait() }()

	return pid, nil
}

func openLog(path string) (*os.File, error) {
	if path == "" {
		return os.OpenFile(os.DevNull, os.O_RDWR, 0)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}
	return f, nil
}

func closeIfFile(f *os.File) error {
	if f == nil {
		return nil
	}
	return f.Close()
}
