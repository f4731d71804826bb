package sync

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
)

// scratchPath returns a unique path in the scratch directory. Concurrent
// callers never collide.
func (e *Engine) scratchPath(op string) (string, error) {
	dir := e.scratchDir()
	if err := e.fs.MkdirAll(dir, 0o700); err != nil { //nolint:mnd // owner-only
		return "", fmt.Errorf("sync: creating scratch directory %s: %w", dir, err)
	}

	return filepath.Join(dir, fmt.Sprintf("stagsync-%s-%s%s", op, uuid.NewString(), archiveSuffix)), nil
}

// removeScratch deletes a scratch file. Errors are swallowed.
func (e *Engine) removeScratch(path string) {
	if err := e.fs.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		e.logger.Debug("failed to remove scratch file",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}
