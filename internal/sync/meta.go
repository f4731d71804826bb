package sync

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/stagstation/stagsync/internal/gdrive"
)

// resolveMeta returns the metadata side-car to pack with an upload and a
// description of where it came from. Absence is never an error.
func (e *Engine) resolveMeta(ctx context.Context, files []gdrive.File) ([]byte, string) {
	m := e.settings.Meta
	if !m.Enabled {
		return nil, ""
	}

	if m.Mode == MetaCustom {
		return e.customMeta(m.CustomPath)
	}

	for _, f := range files {
		a, err := e.fetchArchive(ctx, f)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ""
			}

			e.skipArchive(f, err)

			continue
		}

		data, ok, err := a.Meta()
		if err != nil {
			e.skipArchive(f, err)
			continue
		}

		if ok {
			e.logger.Debug("using metadata from archive", slog.String("archive", f.Name))
			return data, "archive:" + f.Name
		}
	}

	e.logger.Warn("no metadata side-car found in cloud archives, uploading without it")

	return nil, ""
}

func (e *Engine) customMeta(path string) ([]byte, string) {
	if path == "" {
		e.logger.Warn("custom metadata mode without a path, uploading without metadata")
		return nil, ""
	}

	data, err := afero.ReadFile(e.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			e.logger.Warn("custom metadata file not found, uploading without it", slog.String("path", path))
		} else {
			e.logger.Warn("reading custom metadata failed, uploading without it",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}

		return nil, ""
	}

	return data, "file:" + path
}
