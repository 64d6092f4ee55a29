// Package config loads the replicad TOML configuration file. Every section
// is optional; defaults produce a working single-host deployment.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/loykin/replicad/internal/logger"
	"github.com/loykin/replicad/internal/manager"
	"github.com/loykin/replicad/internal/worker"
)

// FileConfig represents the top-level TOML structure.
type FileConfig struct {
	Server    ServerConfig    `toml:"server" mapstructure:"server"`
	Workdir   WorkdirConfig   `toml:"workdir" mapstructure:"workdir"`
	Monitor   MonitorConfig   `toml:"monitor" mapstructure:"monitor"`
	Timeouts  TimeoutsConfig  `toml:"timeouts" mapstructure:"timeouts"`
	Log       LogConfig       `toml:"log" mapstructure:"log"`
	History   HistoryConfig   `toml:"history" mapstructure:"history"`
	Metrics   MetricsConfig   `toml:"metrics" mapstructure:"metrics"`
	Artifacts ArtifactsConfig `toml:"artifacts" mapstructure:"artifacts"`
}

type ServerConfig struct {
	Host     string `toml:"host" mapstructure:"host"`
	Port     int    `toml:"port" mapstructure:"port"`
	BasePath string `toml:"base_path" mapstructure:"base_path"`
}

func (s ServerConfig) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

type WorkdirConfig struct {
	Root string `toml:"root" mapstructure:"root"`
}

type MonitorConfig struct {
	IntervalS  int    `toml:"interval_s" mapstructure:"interval_s"`
	RunMetaRel string `toml:"run_meta" mapstructure:"run_meta"`
}

type TimeoutsConfig struct {
	ReadinessS    int `toml:"readiness_s" mapstructure:"readiness_s"`
	PollIntervalS int `toml:"poll_interval_s" mapstructure:"poll_interval_s"`
	StopGraceS    int `toml:"stop_grace_s" mapstructure:"stop_grace_s"`
}

type LogConfig struct {
	Level      string `toml:"level" mapstructure:"level"`
	Dir        string `toml:"dir" mapstructure:"dir"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

type HistoryConfig struct {
	DSN string `toml:"dsn" mapstructure:"dsn"`
}

type MetricsConfig struct {
	Listen string `toml:"listen" mapstructure:"listen"`
}

type ArtifactsConfig struct {
	Roots []string `toml:"roots" mapstructure:"roots"`
}

// Default returns the built-in configuration used when no file is given.
func Default() FileConfig {
	return FileConfig{
		Server:   ServerConfig{Host: "0.0.0.0", Port: 8080, BasePath: "/api/v1"},
		Workdir:  WorkdirConfig{Root: "/tmp/replicad"},
		Monitor:  MonitorConfig{IntervalS: 30, RunMetaRel: "run_meta.json"},
		Timeouts: TimeoutsConfig{ReadinessS: 1800, PollIntervalS: 5, StopGraceS: 5},
		Log:      LogConfig{Level: "info"},
	}
}

// Load reads path (TOML) over the defaults. Environment variables prefixed
// REPLICAD_ override file values, e.g. REPLICAD_SERVER_PORT=9090.
func Load(path string) (FileConfig, error) {
	fc := Default()
	v := viper.New()
	v.SetEnvPrefix("REPLICAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(filepath.Clean(path))
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return FileConfig{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(&fc); err != nil {
		return FileConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, nil
}

// LoggerConfig maps the [log] section to the logger package.
func (fc FileConfig) LoggerConfig() logger.Config {
	return logger.Config{
		Level:      fc.Log.Level,
		Dir:        fc.Log.Dir,
		MaxSizeMB:  fc.Log.MaxSizeMB,
		MaxBackups: fc.Log.MaxBackups,
		MaxAgeDays: fc.Log.MaxAgeDays,
		Compress:   fc.Log.Compress,
	}
}

// ManagerConfig maps the file sections to the coordinator's settings.
// configPath, when set, is forwarded to spawned workers.
func (fc FileConfig) ManagerConfig(configPath string) manager.Config {
	return manager.Config{
		WorkdirRoot:      fc.Workdir.Root,
		MonitorInterval:  time.Duration(fc.Monitor.IntervalS) * time.Second,
		StopGrace:        time.Duration(fc.Timeouts.StopGraceS) * time.Second,
		RunMetaRelPath:   fc.Monitor.RunMetaRel,
		WorkerConfigPath: configPath,
	}
}

// WorkerConfig maps the file sections to the worker's settings.
func (fc FileConfig) WorkerConfig() worker.Config {
	return worker.Config{
		ReadinessTimeout: time.Duration(fc.Timeouts.ReadinessS) * time.Second,
		PollInterval:     time.Duration(fc.Timeouts.PollIntervalS) * time.Second,
		ArtifactRoots:    fc.Artifacts.Roots,
	}
}
