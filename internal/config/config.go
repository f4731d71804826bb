// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for stagsync. Values are layered
// defaults -> config file -> environment -> CLI flags and resolved once into
// a fully-defaulted Resolved.
package config

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Auth    AuthConfig            `toml:"auth"`
	Sync    SyncConfig            `toml:"sync"`
	Meta    MetaConfig            `toml:"meta"`
	Games   map[string]GameConfig `toml:"games"`
	Logging LoggingConfig         `toml:"logging"`
	Network NetworkConfig         `toml:"network"`
}

// AuthConfig locates the OAuth client credentials and the saved token.
type AuthConfig struct {
	CredentialsFile string `toml:"credentials_file"`
	TokenFile       string `toml:"token_file"`
}

// SyncConfig controls the transfer pipelines.
type SyncConfig struct {
	CreateBackups bool   `toml:"create_backups"`
	BackupDir     string `toml:"backup_dir"`
	ScratchDir    string `toml:"scratch_dir"`
	ArchiveFormat string `toml:"archive_format"`
	HistoryFile   string `toml:"history_file"`
}

// MetaConfig controls the metadata side-car packed with uploads.
type MetaConfig struct {
	Enabled    bool   `toml:"enabled"`
	Mode       string `toml:"mode"`
	CustomPath string `toml:"custom_path"`
}

// GameConfig describes one game: its folder under the Drive root and,
// optionally, where its local saves live.
type GameConfig struct {
	Folder  string `toml:"folder"`
	SaveDir string `toml:"save_dir"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	LogLevel string `toml:"log_level"`
}

// NetworkConfig controls the Drive HTTP client.
type NetworkConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
	Timeout           string  `toml:"timeout"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Empty strings mean "not specified".
type CLIOverrides struct {
	ConfigPath      string // --config
	CredentialsPath string // --credentials
	LogLevel        string // derived from --verbose / --quiet
}
