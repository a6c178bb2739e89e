// Package config provides configuration helpers for the timelapse commands.
package config

import (
	"os"
	"path/filepath"
)

// Default well-known paths. Each can be overridden by environment variable
// or by the daemon's own control file; flags take precedence over both.
const (
	DefaultConfigPath  = "config_tl.json"
	DefaultLockPath    = "/tmp/tlcfg.lock"
	DefaultSensorLog   = "sensor_log.csv"
	DefaultColorLog    = "color_log.csv"
	DefaultPresetsDir  = "/mnt/hdd/timelapse/presets"
	DefaultLuxColumn   = "veml_autolux"
	DefaultRedColumn   = "tcs_r"
	DefaultGreenColumn = "tcs_g"
	DefaultBlueColumn  = "tcs_b"
)

// ConfigPath returns the live capture config path from TL_CONFIG_PATH.
// Falls back to the provided default if not set.
func ConfigPath(def string) string {
	if p := os.Getenv("TL_CONFIG_PATH"); p != "" {
		return p
	}
	if def != "" {
		return def
	}
	return DefaultConfigPath
}

// LockPath returns the shared config lock path from TL_LOCK_PATH or default.
func LockPath() string {
	if p := os.Getenv("TL_LOCK_PATH"); p != "" {
		return p
	}
	return DefaultLockPath
}

// LogRoot returns the directory for daemon log and pid files from LOG_ROOT.
// Falls back to ./logs next to the config file.
func LogRoot(configPath string) string {
	if p := os.Getenv("LOG_ROOT"); p != "" {
		return p
	}
	return filepath.Join(filepath.Dir(configPath), "logs")
}

// TlctlCommand returns the supervisor command from TLCTL_CMD or default.
func TlctlCommand() string {
	if p := os.Getenv("TLCTL_CMD"); p != "" {
		return p
	}
	return "tlctl"
}
