package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/stagstation/stagsync/internal/history"
	"github.com/stagstation/stagsync/internal/savecodec"
	savesync "github.com/stagstation/stagsync/internal/sync"
)

// outputPerms is the mode of files written by Convert.
const outputPerms = 0o644

// ConvertResult describes a completed conversion.
type ConvertResult struct {
	Direction   savecodec.Direction `json:"direction"`
	InputPath   string              `json:"input_path"`
	OutputPath  string              `json:"output_path"`
	InputBytes  int                 `json:"input_bytes"`
	OutputBytes int                 `json:"output_bytes"`
}

// Convert transforms the file at inputPath in the given direction and writes
// the result to outputPath.
func (s *Service) Convert(_ context.Context, direction, inputPath, outputPath string) Result {
	return s.run("convert", func() (any, error) {
		dir, err := savecodec.ParseDirection(direction)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}

		if inputPath == "" || outputPath == "" {
			return nil, fmt.Errorf("%w: input and output paths are required", ErrInvalidArgument)
		}

		in, err := afero.ReadFile(s.fs, inputPath)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", inputPath, err)
		}

		out, err := savecodec.Convert(dir, in)
		if err != nil {
			return nil, err
		}

		if err := afero.WriteFile(s.fs, outputPath, out, outputPerms); err != nil {
			return nil, fmt.Errorf("writing %s: %w", outputPath, err)
		}

		s.logger.Info("converted save",
			slog.String("direction", string(dir)),
			slog.String("input", inputPath),
			slog.String("output", outputPath),
			slog.Int("bytes", len(out)),
		)

		return &ConvertResult{
			Direction:   dir,
			InputPath:   inputPath,
			OutputPath:  outputPath,
			InputBytes:  len(in),
			OutputBytes: len(out),
		}, nil
	})
}

// ListSaves lists the game's cloud archives, newest first.
func (s *Service) ListSaves(ctx context.Context, game string) Result {
	return s.run("list-saves", func() (any, error) {
		if err := requireGame(game); err != nil {
			return nil, err
		}

		e, err := s.engineFor(ctx)
		if err != nil {
			return nil, err
		}

		saves, err := e.ListSaves(ctx, game)
		if err != nil {
			return nil, err
		}

		if saves == nil {
			saves = []savesync.CloudSave{}
		}

		return saves, nil
	})
}

// CompareSlot compares one slot. An empty localPath resolves the slot inside
// the game's configured save directory.
func (s *Service) CompareSlot(ctx context.Context, game string, slot int, localPath string) Result {
	return s.run("compare-slot", func() (any, error) {
		if err := requireGame(game); err != nil {
			return nil, err
		}

		e, err := s.engineFor(ctx)
		if err != nil {
			return nil, err
		}

		path, err := s.localPath(e, game, slot, localPath)
		if err != nil {
			return nil, err
		}

		return e.CompareSlot(ctx, game, slot, path)
	})
}

// CompareAll compares slots 1..4 in saveDir (or the configured save
// directory) against one cloud listing.
func (s *Service) CompareAll(ctx context.Context, game, saveDir string) Result {
	return s.run("compare-all", func() (any, error) {
		if err := requireGame(game); err != nil {
			return nil, err
		}

		dir, err := s.saveDir(game, saveDir)
		if err != nil {
			return nil, err
		}

		e, err := s.engineFor(ctx)
		if err != nil {
			return nil, err
		}

		return e.CompareAll(ctx, game, dir)
	})
}

// UploadSlot uploads one slot as a new archive named saveName (or the
// default "PC - <timestamp>").
func (s *Service) UploadSlot(ctx context.Context, game string, slot int, localPath, saveName string) Result {
	return s.run("upload-slot", func() (any, error) {
		if err := requireGame(game); err != nil {
			return nil, err
		}

		e, err := s.engineFor(ctx)
		if err != nil {
			return nil, err
		}

		path, err := s.localPath(e, game, slot, localPath)
		if err != nil {
			return nil, err
		}

		return e.UploadSlot(ctx, savesync.UploadRequest{
			Game:      game,
			Slot:      slot,
			LocalPath: path,
			SaveName:  saveName,
		})
	})
}

// DownloadSlot restores one slot from archiveID (or the newest archive
// containing it) into localPath.
func (s *Service) DownloadSlot(ctx context.Context, game string, slot int, localPath, archiveID, entryName string) Result {
	return s.run("download-slot", func() (any, error) {
		if err := requireGame(game); err != nil {
			return nil, err
		}

		e, err := s.engineFor(ctx)
		if err != nil {
			return nil, err
		}

		path, err := s.localPath(e, game, slot, localPath)
		if err != nil {
			return nil, err
		}

		return e.DownloadSlot(ctx, savesync.DownloadRequest{
			Game:      game,
			Slot:      slot,
			LocalPath: path,
			ArchiveID: archiveID,
			EntryName: entryName,
		})
	})
}

// Watch reports a fresh comparison whenever a slot file in saveDir (or the
// configured save directory) changes. It blocks until ctx is done; a
// canceled context is a successful end of the watch.
func (s *Service) Watch(ctx context.Context, game, saveDir string, fn func(savesync.Comparison)) Result {
	return s.run("watch", func() (any, error) {
		if err := requireGame(game); err != nil {
			return nil, err
		}

		dir, err := s.saveDir(game, saveDir)
		if err != nil {
			return nil, err
		}

		e, err := s.engineFor(ctx)
		if err != nil {
			return nil, err
		}

		if err := e.Watch(ctx, game, dir, fn); err != nil && ctx.Err() == nil {
			return nil, err
		}

		return nil, nil
	})
}

// History returns the most recent transfers, newest first. A non-positive
// limit means history.DefaultLimit.
func (s *Service) History(ctx context.Context, limit int) Result {
	return s.run("history", func() (any, error) {
		s.mu.Lock()
		j, err := s.journalLocked(ctx)
		s.mu.Unlock()

		if err != nil {
			return nil, err
		}

		entries, err := j.Recent(ctx, limit)
		if err != nil {
			return nil, err
		}

		if entries == nil {
			entries = []history.Entry{}
		}

		return entries, nil
	})
}
