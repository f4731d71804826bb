package sync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/stagstation/stagsync/internal/archive"
	"github.com/stagstation/stagsync/internal/history"
	"github.com/stagstation/stagsync/internal/savecodec"
)

// DownloadRequest names the archive entry to restore into LocalPath.
type DownloadRequest struct {
	Game      string
	Slot      int
	LocalPath string
	// ArchiveID selects the archive. Empty means the newest archive that
	// contains Slot.
	ArchiveID string
	// EntryName overrides the entry to extract; empty means user<Slot>.dat.
	EntryName string
}

// DownloadResult describes a completed download.
type DownloadResult struct {
	ArchiveID   string    `json:"archive_id"`
	ArchiveName string    `json:"archive_name"`
	EntryName   string    `json:"entry_name"`
	LocalPath   string    `json:"local_path"`
	BackupPath  string    `json:"backup_path,omitempty"`
	Bytes       int       `json:"bytes"`
	CloudTime   time.Time `json:"cloud_time,omitzero"`
}

// DownloadSlot backs up any existing local file, downloads the archive to
// scratch, extracts and converts the slot entry, and writes it to LocalPath
// atomically with the archive's modification time. Scratch files are removed
// on every path.
func (e *Engine) DownloadSlot(ctx context.Context, req DownloadRequest) (*DownloadResult, error) {
	if req.Slot <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSlot, req.Slot)
	}

	target, err := e.downloadTarget(ctx, req)
	if err != nil {
		return nil, err
	}

	entryName := req.EntryName
	if entryName == "" {
		entryName = target.EntryName
	}

	if entryName == "" {
		entryName = archive.SlotEntryName(req.Slot)
	}

	result := &DownloadResult{
		ArchiveID:   target.ArchiveID,
		ArchiveName: target.ArchiveName,
		EntryName:   entryName,
		LocalPath:   req.LocalPath,
		CloudTime:   target.ModifiedAt,
	}

	_, exists, err := e.statLocal(req.LocalPath)
	if err != nil {
		return nil, err
	}

	if exists {
		result.BackupPath = e.backup(req.LocalPath)
	}

	packed, err := e.fetchToScratch(ctx, target.ArchiveID)
	if err != nil {
		return nil, err
	}

	a, err := archive.Open(packed)
	if err != nil {
		return nil, fmt.Errorf("sync: opening archive %s: %w", target.ArchiveName, err)
	}

	entry, err := a.Entry(entryName)
	if err != nil {
		return nil, fmt.Errorf("sync: %s in %s: %w", entryName, target.ArchiveName, err)
	}

	converted, err := savecodec.Convert(e.settings.ArchiveFormat.downloadDirection(), entry)
	if err != nil {
		return nil, fmt.Errorf("sync: converting %s from %s: %w", entryName, target.ArchiveName, err)
	}

	if err := e.writeAtomic(req.LocalPath, converted, target.ModifiedAt); err != nil {
		return nil, err
	}

	result.Bytes = len(converted)

	e.logger.Info("downloaded slot",
		slog.String("game", req.Game),
		slog.Int("slot", req.Slot),
		slog.String("archive", target.ArchiveName),
		slog.String("path", req.LocalPath),
	)

	e.record(ctx, history.Entry{
		Op:          history.OpDownload,
		Game:        req.Game,
		Slot:        req.Slot,
		LocalPath:   req.LocalPath,
		ArchiveID:   target.ArchiveID,
		ArchiveName: target.ArchiveName,
		BackupPath:  result.BackupPath,
		RemoteTime:  target.ModifiedAt,
	})

	return result, nil
}

// downloadTarget resolves the archive to read from. With an explicit id the
// archive metadata is fetched for its name and modification time; otherwise
// the newest archive holding the slot is used.
func (e *Engine) downloadTarget(ctx context.Context, req DownloadRequest) (*CloudMatch, error) {
	if _, err := e.folderName(req.Game); err != nil {
		return nil, err
	}

	if req.ArchiveID != "" {
		f, err := e.store.GetFile(ctx, req.ArchiveID)
		if err != nil {
			return nil, fmt.Errorf("sync: looking up archive %s: %w", req.ArchiveID, err)
		}

		return &CloudMatch{ArchiveID: f.ID, ArchiveName: f.Name, ModifiedAt: f.ModifiedAt}, nil
	}

	_, files, err := e.archives(ctx, req.Game)
	if err != nil {
		return nil, err
	}

	match, err := e.findSlot(ctx, files, req.Slot)
	if err != nil {
		return nil, err
	}

	if match == nil {
		return nil, fmt.Errorf("%w: %s slot %d has no cloud archive", ErrNoSave, req.Game, req.Slot)
	}

	return match, nil
}

// fetchToScratch downloads an archive into a scratch file and returns its
// bytes. The scratch file is always removed.
func (e *Engine) fetchToScratch(ctx context.Context, fileID string) ([]byte, error) {
	path, err := e.scratchPath("download")
	if err != nil {
		return nil, err
	}
	defer e.removeScratch(path)

	f, err := e.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:mnd // owner-only
	if err != nil {
		return nil, fmt.Errorf("sync: creating scratch file: %w", err)
	}

	_, dlErr := e.store.Download(ctx, fileID, f)
	closeErr := f.Close()

	if dlErr != nil {
		return nil, fmt.Errorf("sync: downloading archive %s: %w", fileID, dlErr)
	}

	if closeErr != nil {
		return nil, fmt.Errorf("sync: closing scratch file: %w", closeErr)
	}

	data, err := afero.ReadFile(e.fs, path)
	if err != nil {
		return nil, fmt.Errorf("sync: reading scratch file: %w", err)
	}

	return data, nil
}

// writeAtomic writes data to path via a .partial sibling and a rename. A
// non-zero mtime is applied to the partial file before the rename.
func (e *Engine) writeAtomic(path string, data []byte, mtime time.Time) error {
	if err := e.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:mnd // standard dir perms
		return fmt.Errorf("sync: creating directory for %s: %w", path, err)
	}

	partial := path + ".partial"

	if err := afero.WriteFile(e.fs, partial, data, 0o644); err != nil { //nolint:mnd // save files are user-readable
		e.removeScratch(partial)
		return fmt.Errorf("sync: writing %s: %w", partial, err)
	}

	if !mtime.IsZero() {
		if err := e.fs.Chtimes(partial, mtime, mtime); err != nil {
			e.logger.Warn("failed to set mtime on partial",
				slog.String("path", partial),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := e.fs.Rename(partial, path); err != nil {
		e.removeScratch(partial)
		return fmt.Errorf("sync: renaming %s: %w", partial, err)
	}

	return nil
}
