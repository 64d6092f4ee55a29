package workload

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// wellKnownExec is the path of a provisioned executable relative to a
// replica workdir.
const wellKnownExec = "runtime/bin/workload"

// Provisioner prepares an execution environment inside a replica workdir and
// returns the path of the workload executable.
type Provisioner interface {
	Provision(ctx context.Context, workdir, appTag string) (string, error)
}

// ArtifactProvisioner links a pre-built runtime out of one of the configured
// artifact roots into the workdir. Provisioning is a no-op when an
// executable already exists at the well-known subpath.
type ArtifactProvisioner struct {
	// Roots are searched in order for <root>/<appTag>/bin/workload.
	Roots []string
}

func (p ArtifactProvisioner) Provision(ctx context.Context, workdir, appTag string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	execPath := filepath.Join(workdir, wellKnownExec)
	if _, err := os.Stat(execPath); err == nil {
		slog.Debug("runtime already provisioned", "exec", execPath)
		return execPath, nil
	}
	if appTag == "" {
		return "", fmt.Errorf("no runtime at %s and no app_tag to provision one", execPath)
	}

	for _, root := range p.Roots {
		candidate := filepath.Join(root, appTag, "bin", "workload")
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(filepath.Join(workdir, "runtime")), 0o750); err != nil {
			return "", err
		}
		if err := os.Symlink(filepath.Join(root, appTag), filepath.Join(workdir, "runtime")); err != nil && !os.IsExist(err) {
			return "", fmt.Errorf("link runtime for tag %s: %w", appTag, err)
		}
		slog.Info("provisioned runtime", "app_tag", appTag, "exec", execPath)
		return execPath, nil
	}
	return "", fmt.Errorf("no runtime artifact found for app_tag %q in %v", appTag, p.Roots)
}
