package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/text/unicode/norm"

	"github.com/stagstation/stagsync/internal/archive"
	"github.com/stagstation/stagsync/internal/gdrive"
	"github.com/stagstation/stagsync/internal/history"
	"github.com/stagstation/stagsync/internal/savecodec"
)

// UploadRequest names the slot to upload and the archive to create.
type UploadRequest struct {
	Game      string
	Slot      int
	LocalPath string
	// SaveName is the archive's display name; empty means DefaultSaveName.
	SaveName string
}

// UploadResult describes a completed upload.
type UploadResult struct {
	Archive    gdrive.File `json:"archive"`
	BackupPath string      `json:"backup_path,omitempty"`
	MetaSource string      `json:"meta_source,omitempty"`
	// TimeAligned reports whether the local mtime now equals the archive's.
	TimeAligned bool `json:"time_aligned"`
}

// DefaultSaveName is the display name used when the caller gives none.
func DefaultSaveName(now time.Time) string {
	return "PC - " + now.Local().Format(backupTimeLayout)
}

// ArchiveName turns a display name into the object name uploaded to Drive:
// NFC-normalized, trimmed, with a .zip suffix.
func ArchiveName(saveName string, now time.Time) string {
	name := strings.TrimSpace(norm.NFC.String(saveName))
	if name == "" {
		name = DefaultSaveName(now)
	}

	if !strings.HasSuffix(strings.ToLower(name), archiveSuffix) {
		name += archiveSuffix
	}

	return name
}

// UploadSlot backs up, converts, packs and uploads one local slot as a new
// archive, then aligns the local mtime with the archive's so the next
// comparison reports in-sync. Scratch files are removed on every path.
func (e *Engine) UploadSlot(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if req.Slot <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSlot, req.Slot)
	}

	if _, err := e.folderName(req.Game); err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(e.fs, req.LocalPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoLocalSave, req.LocalPath)
		}

		return nil, fmt.Errorf("sync: reading %s: %w", req.LocalPath, err)
	}

	result := &UploadResult{BackupPath: e.backup(req.LocalPath)}

	converted, err := savecodec.Convert(e.settings.ArchiveFormat.uploadDirection(), data)
	if err != nil {
		return nil, fmt.Errorf("sync: converting %s: %w", req.LocalPath, err)
	}

	folderID, files, err := e.uploadTarget(ctx, req.Game)
	if err != nil {
		return nil, err
	}

	meta, metaSource := e.resolveMeta(ctx, files)
	result.MetaSource = metaSource

	now := e.clock.Now()
	name := ArchiveName(req.SaveName, now)

	packed, err := archive.Pack([]archive.SlotFile{{Slot: req.Slot, Data: converted}}, meta, now)
	if err != nil {
		return nil, fmt.Errorf("sync: packing %s: %w", name, err)
	}

	content, err := e.stage(packed)
	if err != nil {
		return nil, err
	}

	uploaded, err := e.store.Upload(ctx, folderID, name, content)
	if err != nil {
		return nil, fmt.Errorf("sync: uploading %s slot %d: %w", req.Game, req.Slot, err)
	}

	result.Archive = *uploaded
	result.TimeAligned = e.alignTime(req.LocalPath, uploaded.ModifiedAt)

	e.logger.Info("uploaded slot",
		slog.String("game", req.Game),
		slog.Int("slot", req.Slot),
		slog.String("archive", uploaded.Name),
		slog.String("id", uploaded.ID),
	)

	e.record(ctx, history.Entry{
		Op:          history.OpUpload,
		Game:        req.Game,
		Slot:        req.Slot,
		LocalPath:   req.LocalPath,
		ArchiveID:   uploaded.ID,
		ArchiveName: uploaded.Name,
		BackupPath:  result.BackupPath,
		RemoteTime:  uploaded.ModifiedAt,
	})

	return result, nil
}

// uploadTarget resolves the game folder. The archive listing is only needed
// for automatic metadata discovery.
func (e *Engine) uploadTarget(ctx context.Context, game string) (string, []gdrive.File, error) {
	if e.settings.Meta.Enabled && e.settings.Meta.Mode == MetaAuto {
		return e.archives(ctx, game)
	}

	folder, err := e.folderName(game)
	if err != nil {
		return "", nil, err
	}

	folderID, err := e.store.GameFolder(ctx, folder)
	if err != nil {
		return "", nil, fmt.Errorf("sync: resolving folder for %s: %w", game, err)
	}

	return folderID, nil, nil
}

// stage writes the packed archive to a scratch file and reads it back as
// the upload body. The scratch file is always removed.
func (e *Engine) stage(packed []byte) ([]byte, error) {
	path, err := e.scratchPath("upload")
	if err != nil {
		return nil, err
	}
	defer e.removeScratch(path)

	if err := afero.WriteFile(e.fs, path, packed, 0o600); err != nil { //nolint:mnd // owner-only
		return nil, fmt.Errorf("sync: writing scratch archive: %w", err)
	}

	content, err := afero.ReadFile(e.fs, path)
	if err != nil {
		return nil, fmt.Errorf("sync: reading scratch archive: %w", err)
	}

	return content, nil
}

// alignTime sets path's mtime to t. Best-effort.
func (e *Engine) alignTime(path string, t time.Time) bool {
	if t.IsZero() {
		return false
	}

	if err := e.fs.Chtimes(path, t, t); err != nil {
		e.logger.Warn("failed to align local timestamp",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return false
	}

	return true
}
