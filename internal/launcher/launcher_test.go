//go:build !windows

package launcher

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLaunchWritesOutputAndReturnsPID(t *testing.T) {
	dir := t.TempDir()
	stdout := filepath.Join(dir, "out.log")

	pid, err := Launch(Spec{
		Path:       "/bin/sh",
		Args:       []string{"-c", "echo hello-from-child"},
		WorkDir:    dir,
		StdoutPath: stdout,
	})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if pid <= 0 {
		t.Fatalf("pid = %d, want > 0", pid)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		data, err := os.ReadFile(stdout)
		if err == nil && strings.Contains(string(data), "hello-from-child") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("child output never appeared, got %q (err %v)", data, err)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestLaunchEnvAppended(t *testing.T) {
	dir := t.TempDir()
	stdout := filepath.Join(dir, "out.log")

	_, err := Launch(Spec{
		Path:       "/bin/sh",
		Args:       []string{"-c", "echo $LAUNCH_TEST_VAR"},
		Env:        []string{"LAUNCH_TEST_VAR=wired"},
		StdoutPath: stdout,
	})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		data, _ := os.ReadFile(stdout)
		if strings.Contains(string(data), "wired") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("env var not seen by child, got %q", data)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestLaunchMissingBinary(t *testing.T) {
	_, err := Launch(Spec{Path: "/nonexistent/definitely-not-a-binary"})
	if err == nil {
		t.Fatal("Launch succeeded for missing binary")
	}
}

func TestLaunchMissingLogDir(t *testing.T) {
	_, err := Launch(Spec{
		Path:       "/bin/sh",
		Args:       []string{"-c", "true"},
		StdoutPath: "/nonexistent-dir/out.log",
	})
	if err == nil {
		t.Fatal("Launch succeeded with unwritable log path")
	}
}
