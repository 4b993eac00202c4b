package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/deploymenttheory/go-app-orchestrator/internal/common/osutil"
)

// dirKind selects one of the per-user application directories
type dirKind int

const (
	configDir dirKind = iota
	dataDir
	logDir
)

// devDirs are used instead of user directories in a development environment
var devDirs = map[dirKind]string{
	configDir: "config",
	dataDir:   "data",
	logDir:    "logs",
}

// GetHomeDir returns the user's home directory
func GetHomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return home, nil
}

// GetConfigDir returns the per-user configuration directory
func GetConfigDir(appName string) (string, error) {
	return appDir(appName, configDir)
}

// GetDataDir returns the per-user data directory, home of the document archive
func GetDataDir(appName string) (string, error) {
	return appDir(appName, dataDir)
}

// GetLogDir returns the per-user log directory
func GetLogDir(appName string) (string, error) {
	return appDir(appName, logDir)
}

// GetSystemConfigDir returns the system-wide configuration directory
func GetSystemConfigDir(appName string) (string, error) {
	if osutil.IsDevEnvironment() {
		return devDirs[configDir], nil
	}

	switch runtime.GOOS {
	case osutil.Windows:
		return filepath.Join(envOr("ProgramData", filepath.Join("C:", "ProgramData")), appName), nil
	case osutil.MacOS:
		return filepath.Join("/Library", "Application Support", appName), nil
	}
	local := filepath.Join("/usr/local/etc", appName)
	if !DirExists(filepath.Join("/etc", appName)) && DirExists(local) {
		return local, nil
	}
	return filepath.Join("/etc", appName), nil
}

func appDir(appName string, kind dirKind) (string, error) {
	if osutil.IsDevEnvironment() {
		return devDirs[kind], nil
	}
	home, err := GetHomeDir()
	if err != nil {
		return "", err
	}

	switch runtime.GOOS {
	case osutil.Windows:
		if kind == configDir {
			return filepath.Join(envOr("APPDATA", filepath.Join(home, "AppData", "Roaming")), appName), nil
		}
		sub := map[dirKind]string{dataDir: "Data", logDir: "Logs"}[kind]
		return filepath.Join(envOr("LOCALAPPDATA", filepath.Join(home, "AppData", "Local")), appName, sub), nil

	case osutil.MacOS:
		if kind == logDir {
			return filepath.Join(home, "Library", "Logs", appName), nil
		}
		return filepath.Join(home, "Library", "Application Support", appName), nil
	}

	// XDG base directories
	switch kind {
	case configDir:
		return filepath.Join(envOr("XDG_CONFIG_HOME", filepath.Join(home, ".config")), appName), nil
	case logDir:
		if state := os.Getenv("XDG_STATE_HOME"); state != "" {
			return filepath.Join(state, appName, "logs"), nil
		}
		return filepath.Join(envOr("XDG_DATA_HOME", filepath.Join(home, ".local", "share")), appName, "logs"), nil
	}
	return filepath.Join(envOr("XDG_DATA_HOME", filepath.Join(home, ".local", "share")), appName), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
