package config

import (
	"fmt"
	"io"
	"strings"
)

// RenderEffective writes the resolved configuration as a human-readable
// annotated summary to w. This powers the "config show" command.
func RenderEffective(r *Resolved, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (%s)\n\n", describeSource(r.ConfigPath))

	renderAuthSection(ew, r)
	renderSyncSection(ew, r)
	renderMetaSection(ew, &r.Meta)
	renderGamesSection(ew, r)
	renderLoggingSection(ew, r)
	renderNetworkSection(ew, &r.Network)

	return ew.err
}

func describeSource(path string) string {
	if path == "" {
		return "defaults only"
	}

	return "file " + path
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func renderAuthSection(ew *errWriter, r *Resolved) {
	ew.printf("[auth]\n")
	ew.printf("  credentials_file = %q\n", r.CredentialsPath)
	ew.printf("  token_file       = %q\n", r.TokenPath)
	ew.printf("\n")
}

func renderSyncSection(ew *errWriter, r *Resolved) {
	backupDir := r.BackupDir
	if backupDir == "" {
		backupDir = "(next to each save)"
	}

	ew.printf("[sync]\n")
	ew.printf("  create_backups = %t\n", r.CreateBackups)
	ew.printf("  backup_dir     = %q\n", backupDir)
	ew.printf("  scratch_dir    = %q\n", r.ScratchDir)
	ew.printf("  archive_format = %q\n", r.ArchiveFormat)
	ew.printf("  history_file   = %q\n", r.HistoryPath)
	ew.printf("\n")
}

func renderMetaSection(ew *errWriter, m *MetaConfig) {
	ew.printf("[meta]\n")
	ew.printf("  enabled     = %t\n", m.Enabled)
	ew.printf("  mode        = %q\n", m.Mode)

	if m.CustomPath != "" {
		ew.printf("  custom_path = %q\n", m.CustomPath)
	}

	ew.printf("\n")
}

func renderGamesSection(ew *errWriter, r *Resolved) {
	for _, id := range r.GameIDs() {
		g := r.Games[id]

		ew.printf("[games.%s]\n", id)
		ew.printf("  folder   = %q\n", g.Folder)

		if g.SaveDir != "" {
			ew.printf("  save_dir = %q\n", g.SaveDir)
		}

		ew.printf("\n")
	}
}

func renderLoggingSection(ew *errWriter, r *Resolved) {
	ew.printf("[logging]\n")
	ew.printf("  log_level = %q\n", r.LogLevel)
	ew.printf("\n")
}

func renderNetworkSection(ew *errWriter, n *ResolvedNetwork) {
	ew.printf("[network]\n")
	ew.printf("  requests_per_second = %s\n", strings.TrimSuffix(fmt.Sprintf("%.2f", n.RequestsPerSecond), ".00"))
	ew.printf("  burst               = %d\n", n.Burst)
	ew.printf("  timeout             = %q\n", n.Timeout.String())
}
