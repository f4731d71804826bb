package config

import (
	"fmt"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v11"
)

// Environment variable names, exported for the CLI's help text.
const (
	EnvConfig        = "STAGSYNC_CONFIG"
	EnvCredentials   = "STAGSYNC_CREDENTIALS"
	EnvTokenFile     = "STAGSYNC_TOKEN_FILE"
	EnvLogLevel      = "STAGSYNC_LOG_LEVEL"
	EnvBackupDir     = "STAGSYNC_BACKUP_DIR"
	EnvScratchDir    = "STAGSYNC_SCRATCH_DIR"
	EnvArchiveFormat = "STAGSYNC_ARCHIVE_FORMAT"
	EnvHistoryFile   = "STAGSYNC_HISTORY_FILE"
)

// EnvOverrides holds values read from environment variables. Empty strings
// mean "not set"; they never clear a value from the config file.
type EnvOverrides struct {
	ConfigPath    string `env:"STAGSYNC_CONFIG"`
	Credentials   string `env:"STAGSYNC_CREDENTIALS"`
	TokenFile     string `env:"STAGSYNC_TOKEN_FILE"`
	LogLevel      string `env:"STAGSYNC_LOG_LEVEL"`
	BackupDir     string `env:"STAGSYNC_BACKUP_DIR"`
	ScratchDir    string `env:"STAGSYNC_SCRATCH_DIR"`
	ArchiveFormat string `env:"STAGSYNC_ARCHIVE_FORMAT"`
	HistoryFile   string `env:"STAGSYNC_HISTORY_FILE"`
}

// ReadEnvOverrides reads the STAGSYNC_* environment variables.
func ReadEnvOverrides() (EnvOverrides, error) {
	var overrides EnvOverrides
	if err := env.Parse(&overrides); err != nil {
		return EnvOverrides{}, fmt.Errorf("reading environment: %w", err)
	}

	return overrides, nil
}

// patch returns the overrides as a sparse Config.
func (e EnvOverrides) patch() Config {
	return Config{
		Auth: AuthConfig{
			CredentialsFile: e.Credentials,
			TokenFile:       e.TokenFile,
		},
		Sync: SyncConfig{
			BackupDir:     e.BackupDir,
			ScratchDir:    e.ScratchDir,
			ArchiveFormat: e.ArchiveFormat,
			HistoryFile:   e.HistoryFile,
		},
		Logging: LoggingConfig{
			LogLevel: e.LogLevel,
		},
	}
}

// applyEnv layers the non-empty overrides onto cfg.
func applyEnv(cfg *Config, e EnvOverrides) error {
	if err := mergo.Merge(cfg, e.patch(), mergo.WithOverride); err != nil {
		return fmt.Errorf("applying environment overrides: %w", err)
	}

	return nil
}
