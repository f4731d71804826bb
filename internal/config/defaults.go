package config

// Default values for configuration options.
const (
	defaultArchiveFormat     = "host"
	defaultMetaMode          = "auto"
	defaultLogLevel          = "info"
	defaultRequestsPerSecond = 10
	defaultBurst             = 10
	defaultTimeout           = "60s"
)

// Known games and their folder names under the Drive root.
const (
	GameHollowKnight = "hollowknight"
	GameSilksong     = "silksong"
)

// DefaultGames returns the built-in game table.
func DefaultGames() map[string]GameConfig {
	return map[string]GameConfig{
		GameHollowKnight: {Folder: "Hollow Knight"},
		GameSilksong:     {Folder: "Hollow Knight Silksong"},
	}
}

// DefaultConfig returns a Config populated with all default values. It is
// the starting point for TOML decoding, so unset fields keep their defaults.
func DefaultConfig() *Config {
	return &Config{
		Sync: SyncConfig{
			CreateBackups: true,
			ArchiveFormat: defaultArchiveFormat,
		},
		Meta: MetaConfig{
			Enabled: true,
			Mode:    defaultMetaMode,
		},
		Games: DefaultGames(),
		Logging: LoggingConfig{
			LogLevel: defaultLogLevel,
		},
		Network: NetworkConfig{
			RequestsPerSecond: defaultRequestsPerSecond,
			Burst:             defaultBurst,
			Timeout:           defaultTimeout,
		},
	}
}
