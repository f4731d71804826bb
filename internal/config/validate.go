package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"
)

// Validation range constants.
const (
	maxRequestsPerSecond = 100
	maxBurst             = 100
	minTimeout           = 5 * time.Second
)

var (
	validArchiveFormats = []string{"host", "portable"}
	validMetaModes      = []string{"auto", "custom"}
	validLogLevels      = []string{"debug", "info", "warn", "error"}
)

// gameIDPattern restricts game ids to what is comfortable on a command line.
var gameIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateSync(&cfg.Sync)...)
	errs = append(errs, validateMeta(&cfg.Meta)...)
	errs = append(errs, validateGames(cfg.Games)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateNetwork(&cfg.Network)...)

	return errors.Join(errs...)
}

// ValidateResolved checks constraints that only make sense once every
// override layer has been applied and paths have been expanded.
func ValidateResolved(r *Resolved) error {
	var errs []error

	paths := []struct{ key, value string }{
		{"token_file", r.TokenPath},
		{"history_file", r.HistoryPath},
		{"scratch_dir", r.ScratchDir},
		{"backup_dir", r.BackupDir},
		{"meta.custom_path", r.Meta.CustomPath},
	}

	for _, p := range paths {
		if p.value != "" && !filepath.IsAbs(p.value) {
			errs = append(errs, fmt.Errorf("%s: must be absolute after expansion, got %q", p.key, p.value))
		}
	}

	if r.TokenPath == "" {
		errs = append(errs, errors.New("token_file: could not determine a default location"))
	}

	return errors.Join(errs...)
}

func validateSync(s *SyncConfig) []error {
	var errs []error

	if !slices.Contains(validArchiveFormats, s.ArchiveFormat) {
		errs = append(errs, fmt.Errorf("archive_format: must be one of %s, got %q",
			strings.Join(validArchiveFormats, ", "), s.ArchiveFormat))
	}

	return errs
}

func validateMeta(m *MetaConfig) []error {
	var errs []error

	if !slices.Contains(validMetaModes, m.Mode) {
		errs = append(errs, fmt.Errorf("meta.mode: must be one of %s, got %q",
			strings.Join(validMetaModes, ", "), m.Mode))
	}

	return errs
}

func validateGames(games map[string]GameConfig) []error {
	var errs []error

	if len(games) == 0 {
		return []error{errors.New("games: at least one game must be configured")}
	}

	ids := make([]string, 0, len(games))
	for id := range games {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	for _, id := range ids {
		if !gameIDPattern.MatchString(id) {
			errs = append(errs, fmt.Errorf("games: id %q must be lowercase letters, digits, '-' or '_'", id))
		}

		if strings.TrimSpace(games[id].Folder) == "" {
			errs = append(errs, fmt.Errorf("games.%s.folder: must not be empty", id))
		}

		if strings.ContainsAny(games[id].Folder, `/\`) {
			errs = append(errs, fmt.Errorf("games.%s.folder: must be a single folder name, got %q", id, games[id].Folder))
		}
	}

	return errs
}

func validateLogging(l *LoggingConfig) []error {
	if !slices.Contains(validLogLevels, l.LogLevel) {
		return []error{fmt.Errorf("log_level: must be one of %s, got %q",
			strings.Join(validLogLevels, ", "), l.LogLevel)}
	}

	return nil
}

func validateNetwork(n *NetworkConfig) []error {
	var errs []error

	if n.RequestsPerSecond <= 0 || n.RequestsPerSecond > maxRequestsPerSecond {
		errs = append(errs, fmt.Errorf("requests_per_second: must be in (0, %d], got %v",
			maxRequestsPerSecond, n.RequestsPerSecond))
	}

	if n.Burst < 1 || n.Burst > maxBurst {
		errs = append(errs, fmt.Errorf("burst: must be between 1 and %d, got %d", maxBurst, n.Burst))
	}

	d, err := time.ParseDuration(n.Timeout)

	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("timeout: invalid duration %q: %w", n.Timeout, err))
	case d < minTimeout:
		errs = append(errs, fmt.Errorf("timeout: must be at least %s, got %s", minTimeout, d))
	}

	return errs
}
