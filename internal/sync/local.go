package sync

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/afero"

	"github.com/stagstation/stagsync/internal/archive"
)

// statLocal returns the modification time of a local slot file. A missing
// file reports ok=false without error.
func (e *Engine) statLocal(path string) (time.Time, bool, error) {
	info, err := e.fs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, false, nil
		}

		return time.Time{}, false, fmt.Errorf("sync: stat %s: %w", path, err)
	}

	if !info.Mode().IsRegular() {
		return time.Time{}, false, fmt.Errorf("%w: %s", ErrNotRegular, path)
	}

	return info.ModTime(), true, nil
}

// ScanLocal lists slot files (user<N>.dat, any case) directly inside saveDir,
// ordered by slot. A missing directory yields an empty result.
func (e *Engine) ScanLocal(saveDir string) ([]LocalSlot, error) {
	entries, err := afero.ReadDir(e.fs, saveDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("sync: reading save directory %s: %w", saveDir, err)
	}

	var out []LocalSlot

	for _, info := range entries {
		if !info.Mode().IsRegular() {
			continue
		}

		slot, ok := archive.ParseSlotEntry(info.Name())
		if !ok {
			continue
		}

		out = append(out, LocalSlot{
			Slot:       slot,
			Path:       filepath.Join(saveDir, info.Name()),
			ModifiedAt: info.ModTime(),
			Size:       info.Size(),
		})
	}

	slices.SortFunc(out, func(a, b LocalSlot) int { return a.Slot - b.Slot })

	e.logger.Debug("scanned save directory",
		slog.String("dir", saveDir),
		slog.Int("slots", len(out)),
	)

	return out, nil
}

// slotPath returns the conventional path of slot inside saveDir, preferring
// an existing file whose name differs only by case.
func (e *Engine) slotPath(saveDir string, slot int, existing []LocalSlot) string {
	for _, l := range existing {
		if l.Slot == slot {
			return l.Path
		}
	}

	return filepath.Join(saveDir, archive.SlotEntryName(slot))
}

// SlotPath resolves slot inside saveDir, matching an existing file in any
// case and falling back to the conventional name.
func (e *Engine) SlotPath(saveDir string, slot int) (string, error) {
	if slot <= 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}

	locals, err := e.ScanLocal(saveDir)
	if err != nil {
		return "", err
	}

	return e.slotPath(saveDir, slot, locals), nil
}
