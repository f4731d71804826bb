package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/mitchellh/go-homedir"
)

// Platform identifiers.
const (
	platformLinux  = "linux"
	platformDarwin = "darwin"
)

// Application directory name used across all platforms.
const appName = "stagsync"

// File names inside the application directories.
const (
	configFileName      = "config.toml"
	credentialsFileName = "credentials.json"
	historyFileName     = "history.db"
	scratchDirName      = "scratch"
)

// The token lives where the desktop app has always kept it, so a login from
// either tool is visible to both.
const (
	tokenDirName  = ".stagstation"
	tokenFileName = "google-tokens.json"
)

// DefaultConfigDir returns the platform-specific directory for config files.
// On Linux, respects XDG_CONFIG_HOME (defaults to ~/.config/stagsync).
// On macOS, uses ~/Library/Application Support/stagsync.
func DefaultConfigDir() string {
	home, err := homedir.Dir()
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

// DefaultDataDir returns the platform-specific directory for application data
// (the history database and scratch archives).
// On Linux, respects XDG_DATA_HOME (defaults to ~/.local/share/stagsync).
func DefaultDataDir() string {
	home, err := homedir.Dir()
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

func xdgDir(envVar, fallback string) string {
	if xdg := os.Getenv(envVar); xdg != "" {
		return filepath.Join(xdg, appName)
	}

	return filepath.Join(fallback, appName)
}

// DefaultConfigPath returns the full path to the default config file.
// This is used as the fallback when neither STAGSYNC_CONFIG nor --config is
// specified.
func DefaultConfigPath() string {
	return joinIfSet(DefaultConfigDir(), configFileName)
}

// DefaultCredentialsPath returns where the OAuth client secret is looked for
// when none is configured.
func DefaultCredentialsPath() string {
	return joinIfSet(DefaultConfigDir(), credentialsFileName)
}

// DefaultTokenPath returns ~/.stagstation/google-tokens.json.
func DefaultTokenPath() string {
	home, err := homedir.Dir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, tokenDirName, tokenFileName)
}

// DefaultHistoryPath returns the transfer journal location.
func DefaultHistoryPath() string {
	return joinIfSet(DefaultDataDir(), historyFileName)
}

// DefaultScratchDir returns the directory for transient archives.
func DefaultScratchDir() string {
	return joinIfSet(DefaultDataDir(), scratchDirName)
}

func joinIfSet(dir, name string) string {
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, name)
}

// expandPath expands a leading ~ to the user's home directory. Paths that
// cannot be expanded are returned unchanged.
func expandPath(path string) string {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}

	return expanded
}
