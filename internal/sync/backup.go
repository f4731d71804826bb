package sync

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// backupTimeLayout is the local-time suffix of backup and default save names.
const backupTimeLayout = "2006-01-02_15-04-05"

// BackupName is the file name a backup of localPath taken at t receives.
func BackupName(localPath string, t time.Time) string {
	return filepath.Base(localPath) + "_" + t.Local().Format(backupTimeLayout)
}

func (e *Engine) backupDir(localPath string) string {
	if e.settings.BackupDir != "" {
		return e.settings.BackupDir
	}

	return filepath.Join(filepath.Dir(localPath), "backups")
}

// backup copies localPath into the backup directory and returns the copy's
// path. Failures are logged and reported as an empty path; they never block
// the operation that asked for the backup.
func (e *Engine) backup(localPath string) string {
	if !e.settings.CreateBackups {
		return ""
	}

	path, err := e.copyToBackup(localPath)
	if err != nil {
		e.logger.Warn("backup failed, continuing",
			slog.String("path", localPath),
			slog.String("error", err.Error()),
		)

		return ""
	}

	e.logger.Info("created backup",
		slog.String("path", localPath),
		slog.String("backup", path),
	)

	return path
}

func (e *Engine) copyToBackup(localPath string) (string, error) {
	data, err := afero.ReadFile(e.fs, localPath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", localPath, err)
	}

	dir := e.backupDir(localPath)
	if err := e.fs.MkdirAll(dir, 0o755); err != nil { //nolint:mnd // standard dir perms
		return "", fmt.Errorf("creating backup directory %s: %w", dir, err)
	}

	base := filepath.Join(dir, BackupName(localPath, e.clock.Now()))
	path := base

	// Two backups within the same second keep both copies.
	for i := 1; ; i++ {
		exists, err := afero.Exists(e.fs, path)
		if err != nil {
			return "", fmt.Errorf("checking %s: %w", path, err)
		}

		if !exists {
			break
		}

		path = fmt.Sprintf("%s_%d", base, i)
	}

	if err := afero.WriteFile(e.fs, path, data, 0o600); err != nil { //nolint:mnd // owner-only
		return "", fmt.Errorf("writing %s: %w", path, err)
	}

	return path, nil
}
