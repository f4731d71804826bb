package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// configFilePermissions is the standard permission mode for config files.
const configFilePermissions = 0o644

// configDirPermissions is the standard permission mode for config directories.
const configDirPermissions = 0o755

// configTemplate is the config file written on first login. Every setting is
// present as a commented-out default so users can discover options without
// reading docs.
const configTemplate = `# stagsync configuration

[auth]
# OAuth client secret downloaded from the Google Cloud console
credentials_file = %q
# token_file = "~/.stagstation/google-tokens.json"

[sync]
# Copy a save aside before it is overwritten
# create_backups = true
# Empty keeps backups in a "backups" directory next to each save
# backup_dir = ""
# Encoding of slot entries inside cloud archives: host or portable
# archive_format = "host"

[meta]
# Pack the save-manager metadata side-car with uploads
# enabled = true
# auto: reuse the side-car from the newest archive; custom: read custom_path
# mode = "auto"
# custom_path = ""

[logging]
# debug, info, warn, error
# log_level = "info"

# Games are matched by id. Add more with their Drive folder name:
# [games.mygame]
# folder = "My Game"
# save_dir = "~/saves/mygame"
`

// EnsureConfigFile writes the default template to path unless a file is
// already there. It reports whether a file was created.
func EnsureConfigFile(path, credentialsPath string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("checking config file: %w", err)
	}

	slog.Info("creating config file",
		"path", path,
		"credentials_file", credentialsPath,
	)

	content := fmt.Sprintf(configTemplate, credentialsPath)
	if err := atomicWriteFile(path, []byte(content)); err != nil {
		return false, err
	}

	return true, nil
}

// atomicWriteFile writes data via a temp file in the same directory and
// renames it into place.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tempPath := f.Name()

	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()

		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tempPath, configFilePermissions); err != nil {
		return fmt.Errorf("setting file permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	succeeded = true

	return nil
}
