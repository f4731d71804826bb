package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/BurntSushi/toml"
)

// Resolved is the fully-defaulted configuration a process runs with. Every
// path is expanded and every layer (defaults -> file -> env -> CLI) applied.
type Resolved struct {
	ConfigPath      string
	CredentialsPath string
	TokenPath       string
	CreateBackups   bool
	// BackupDir empty means a "backups" directory next to each save.
	BackupDir     string
	ScratchDir    string
	ArchiveFormat string
	HistoryPath   string
	Meta          MetaConfig
	Games         map[string]GameConfig
	LogLevel      string
	Network       ResolvedNetwork
}

// ResolvedNetwork is NetworkConfig with the timeout parsed.
type ResolvedNetwork struct {
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
}

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal, with "did you mean?" suggestions.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the four-layer override chain:
// defaults -> config file -> environment variables -> CLI flags.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfgPath = expandPath(cfgPath)

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	if err := applyEnv(cfg, env); err != nil {
		return nil, err
	}

	if cli.CredentialsPath != "" {
		cfg.Auth.CredentialsFile = cli.CredentialsPath
	}

	if cli.LogLevel != "" {
		cfg.Logging.LogLevel = cli.LogLevel
	}

	// Env and CLI values bypass the file-level checks.
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	resolved := resolve(cfg, cfgPath)

	if err := ValidateResolved(resolved); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return resolved, nil
}

// resolve fills path defaults and expands ~ in every path.
func resolve(cfg *Config, cfgPath string) *Resolved {
	timeout, err := time.ParseDuration(cfg.Network.Timeout)
	if err != nil {
		timeout, _ = time.ParseDuration(defaultTimeout)
	}

	games := make(map[string]GameConfig, len(cfg.Games))
	for id, g := range cfg.Games {
		g.SaveDir = expandIfSet(g.SaveDir)
		games[id] = g
	}

	meta := cfg.Meta
	meta.CustomPath = expandIfSet(meta.CustomPath)

	return &Resolved{
		ConfigPath:      cfgPath,
		CredentialsPath: expandPath(orDefault(cfg.Auth.CredentialsFile, DefaultCredentialsPath())),
		TokenPath:       expandPath(orDefault(cfg.Auth.TokenFile, DefaultTokenPath())),
		CreateBackups:   cfg.Sync.CreateBackups,
		BackupDir:       expandIfSet(cfg.Sync.BackupDir),
		ScratchDir:      expandPath(orDefault(cfg.Sync.ScratchDir, DefaultScratchDir())),
		ArchiveFormat:   cfg.Sync.ArchiveFormat,
		HistoryPath:     expandPath(orDefault(cfg.Sync.HistoryFile, DefaultHistoryPath())),
		Meta:            meta,
		Games:           games,
		LogLevel:        cfg.Logging.LogLevel,
		Network: ResolvedNetwork{
			RequestsPerSecond: cfg.Network.RequestsPerSecond,
			Burst:             cfg.Network.Burst,
			Timeout:           timeout,
		},
	}
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}

	return fallback
}

func expandIfSet(path string) string {
	if path == "" {
		return ""
	}

	return expandPath(path)
}

// GameIDs returns the configured game ids in sorted order.
func (r *Resolved) GameIDs() []string {
	ids := make([]string, 0, len(r.Games))
	for id := range r.Games {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}
