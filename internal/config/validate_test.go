package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Games(t *testing.T) {
	tests := []struct {
		name  string
		games map[string]GameConfig
		want  string
	}{
		{"empty", map[string]GameConfig{}, "at least one game"},
		{"bad id", map[string]GameConfig{"Hollow Knight": {Folder: "Hollow Knight"}}, `id "Hollow Knight"`},
		{"blank folder", map[string]GameConfig{"hk": {Folder: "  "}}, "games.hk.folder: must not be empty"},
		{"nested folder", map[string]GameConfig{"hk": {Folder: "a/b"}}, "must be a single folder name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Games = tt.games

			assert.ErrorContains(t, Validate(cfg), tt.want)
		})
	}
}

func TestValidate_Network(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Network.RequestsPerSecond = 0
	cfg.Network.Timeout = "soon"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requests_per_second")
	assert.Contains(t, err.Error(), `timeout: invalid duration "soon"`)
}

func TestValidateResolved(t *testing.T) {
	r := &Resolved{
		TokenPath:   "/home/me/.stagstation/google-tokens.json",
		HistoryPath: "history.db",
		BackupDir:   "",
		Meta:        MetaConfig{CustomPath: "meta.bin"},
	}

	err := ValidateResolved(r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history_file")
	assert.Contains(t, err.Error(), "meta.custom_path")
	assert.NotContains(t, err.Error(), "backup_dir")

	r.TokenPath = ""
	assert.ErrorContains(t, ValidateResolved(r), "token_file: could not determine")
}
