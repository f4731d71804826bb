package main

import (
	"github.com/spf13/cobra"

	"github.com/stagstation/stagsync/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
}

// configView is the JSON schema for `config show --json`.
type configView struct {
	ConfigPath        string              `json:"config_path"`
	CredentialsFile   string              `json:"credentials_file"`
	TokenFile         string              `json:"token_file"`
	CreateBackups     bool                `json:"create_backups"`
	BackupDir         string              `json:"backup_dir"`
	ScratchDir        string              `json:"scratch_dir"`
	ArchiveFormat     string              `json:"archive_format"`
	HistoryFile       string              `json:"history_file"`
	MetaEnabled       bool                `json:"meta_enabled"`
	MetaMode          string              `json:"meta_mode"`
	MetaCustomPath    string              `json:"meta_custom_path,omitempty"`
	Games             map[string]gameView `json:"games"`
	LogLevel          string              `json:"log_level"`
	RequestsPerSecond float64             `json:"requests_per_second"`
	Burst             int                 `json:"burst"`
	Timeout           string              `json:"timeout"`
}

type gameView struct {
	Folder  string `json:"folder"`
	SaveDir string `json:"save_dir,omitempty"`
}

func newConfigView(r *config.Resolved) configView {
	games := make(map[string]gameView, len(r.Games))
	for id, g := range r.Games {
		games[id] = gameView{Folder: g.Folder, SaveDir: g.SaveDir}
	}

	return configView{
		ConfigPath:        r.ConfigPath,
		CredentialsFile:   r.CredentialsPath,
		TokenFile:         r.TokenPath,
		CreateBackups:     r.CreateBackups,
		BackupDir:         r.BackupDir,
		ScratchDir:        r.ScratchDir,
		ArchiveFormat:     r.ArchiveFormat,
		HistoryFile:       r.HistoryPath,
		MetaEnabled:       r.Meta.Enabled,
		MetaMode:          r.Meta.Mode,
		MetaCustomPath:    r.Meta.CustomPath,
		Games:             games,
		LogLevel:          r.LogLevel,
		RequestsPerSecond: r.Network.RequestsPerSecond,
		Burst:             r.Network.Burst,
		Timeout:           r.Network.Timeout.String(),
	}
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	if cc.Flags.JSON {
		return printJSON(cc.Out, newConfigView(cc.Cfg))
	}

	return config.RenderEffective(cc.Cfg, cc.Out)
}
