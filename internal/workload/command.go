package workload

import (
	"fmt"
	"strconv"
)

// Command is a fully resolved invocation for the launcher.
type Command struct {
	Path string
	Args []string
	Env  []string
}

// LaunchParams are the inputs to per-mode command resolution.
type LaunchParams struct {
	Exec       string // provisioned workload executable
	ConfigPath string // model config file inside the workdir
	Port       int    // listen port, 0 for modes without a local endpoint
	Namespace  string
	LogPath    string
	Workdir    string
}

// BuildCommand resolves the argv and environment for the given mode. Exactly
// one resolver exists per supported mode; an unrecognized mode is a hard
// error.
func BuildCommand(mode Mode, p LaunchParams) (Command, error) {
	if p.Exec == "" {
		return Command{}, fmt.Errorf("no executable resolved for mode %s", mode)
	}
	switch {
	case mode.IsReplica():
		return replicaCommand(mode, p), nil
	case mode.IsGateway():
		return gatewayCommand(mode, p), nil
	case mode.IsPlatform():
		return platformCommand(mode, p), nil
	}
	return Command{}, fmt.Errorf("unsupported server mode: %q", mode)
}

func replicaCommand(mode Mode, p LaunchParams) Command {
	args := []string{
		"serve",
		"--config", p.ConfigPath,
		"--port", strconv.Itoa(p.Port),
	}
	if p.LogPath != "" {
		args = append(args, "--log-file", p.LogPath)
	}
	if mode.IsMock() {
		args = append(args, "--mock-backend")
	}
	return Command{Path: p.Exec, Args: args, Env: baseEnv(p)}
}

func gatewayCommand(mode Mode, p LaunchParams) Command {
	args := []string{
		"gateway",
		"--config", p.ConfigPath,
		"--port", strconv.Itoa(p.Port),
	}
	if mode.IsMock() {
		args = append(args, "--mock-backend")
	}
	return Command{Path: p.Exec, Args: args, Env: baseEnv(p)}
}

// Platform workloads expose themselves through their own control plane, so
// the command carries no local port.
func platformCommand(mode Mode, p LaunchParams) Command {
	args := []string{
		"deploy",
		"--config", p.ConfigPath,
	}
	if mode.IsMock() {
		args = append(args, "--mock-backend")
	}
	return Command{Path: p.Exec, Args: args, Env: baseEnv(p)}
}

func baseEnv(p LaunchParams) []string {
	env := []string{"WORKLOAD_WORKDIR=" + p.Workdir}
	if p.Namespace != "" {
		env = append(env, "WORKLOAD_NAMESPACE="+p.Namespace)
	}
	return env
}
