package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Platform identifiers.
const (
	platformLinux  = "linux"
	platformDarwin = "darwin"
)

// Application directory name used across all platforms.
const appName = "ledger-go"

// File names inside the config and data directories.
const (
	configFileName     = "config.toml"
	credentialFileName = "credential.json"
	databaseFileName   = "ledger.db"
)

// DefaultConfigDir returns the platform-specific directory for config files.
// On Linux, respects XDG_CONFIG_HOME (defaults to ~/.config/ledger-go).
// On macOS, uses ~/Library/Application Support/ledger-go.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		return xdgDir("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".config", appName)
	}
}

// DefaultDataDir returns the platform-specific directory for the credential
// file and the SQLite database.
// On Linux, respects XDG_DATA_HOME (defaults to ~/.local/share/ledger-go).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		return xdgDir("XDG_DATA_HOME", filepath.Join(home, ".local", "share"))
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".local", "share", appName)
	}
}

func xdgDir(envVar, fallbackBase string) string {
	if xdg := os.Getenv(envVar); xdg != "" {
		return filepath.Join(xdg, appName)
	}

	return filepath.Join(fallbackBase, appName)
}

// DefaultConfigPath returns the full path to the default config file.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, configFileName)
}

// DefaultTokenPath returns the fixed location of the credential file.
func DefaultTokenPath() string {
	dir := DefaultDataDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, credentialFileName)
}

// DefaultDatabasePath returns the fixed location of the SQLite database.
func DefaultDatabasePath() string {
	dir := DefaultDataDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, databaseFileName)
}

// expandTilde replaces a leading "~/" with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[2:])
}
