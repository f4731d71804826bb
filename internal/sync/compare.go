package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// classify compares two timestamps that both exist.
func classify(local, cloud time.Time) (Status, Action) {
	diff := local.Sub(cloud)

	switch {
	case diff.Abs() < SyncTolerance:
		return StatusInSync, ActionNone
	case diff > 0:
		return StatusLocalNewer, ActionUpload
	default:
		return StatusCloudNewer, ActionDownload
	}
}

// decide builds the comparison for a slot from what was observed. hasLocal
// false with no match is ErrNoSave.
func decide(game string, slot int, localPath string, localTime time.Time, hasLocal bool, match *CloudMatch) (Comparison, error) {
	c := Comparison{Game: game, Slot: slot, LocalPath: localPath, Match: match}

	switch {
	case !hasLocal && match == nil:
		return c, fmt.Errorf("%w: %s slot %d", ErrNoSave, game, slot)

	case !hasLocal:
		c.Status, c.Action = StatusCloudOnly, ActionNone
		c.CloudTime = match.ModifiedAt

	case match == nil:
		c.Status, c.Action = StatusLocalOnly, ActionUpload
		c.LocalTime = localTime

	default:
		c.LocalTime = localTime
		c.CloudTime = match.ModifiedAt
		c.Status, c.Action = classify(localTime, match.ModifiedAt)
	}

	return c, nil
}

// CompareSlot compares the local file at localPath with the newest cloud
// archive that contains slot. Archives are inspected newest-first and the
// first one containing the slot wins; archives that cannot be read are
// skipped.
func (e *Engine) CompareSlot(ctx context.Context, game string, slot int, localPath string) (Comparison, error) {
	if slot <= 0 {
		return Comparison{}, fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}

	localTime, hasLocal, err := e.statLocal(localPath)
	if err != nil {
		return Comparison{}, err
	}

	_, files, err := e.archives(ctx, game)
	if err != nil {
		return Comparison{}, err
	}

	match, err := e.findSlot(ctx, files, slot)
	if err != nil {
		return Comparison{}, err
	}

	c, err := decide(game, slot, localPath, localTime, hasLocal, match)
	if err != nil {
		return c, err
	}

	e.logger.Debug("compared slot",
		slog.String("game", game),
		slog.Int("slot", slot),
		slog.String("status", string(c.Status)),
	)

	return c, nil
}

// CompareAll compares slots 1..BulkSlots in saveDir against a single cloud
// listing. Slots that exist on neither side are omitted. Never transfers.
func (e *Engine) CompareAll(ctx context.Context, game, saveDir string) ([]Comparison, error) {
	saves, err := e.ListSaves(ctx, game)
	if err != nil {
		return nil, err
	}

	locals, err := e.ScanLocal(saveDir)
	if err != nil {
		return nil, err
	}

	out := make([]Comparison, 0, BulkSlots)

	for slot := 1; slot <= BulkSlots; slot++ {
		path := e.slotPath(saveDir, slot, locals)

		localTime, hasLocal, err := e.statLocal(path)
		if err != nil {
			return nil, err
		}

		c, err := decide(game, slot, path, localTime, hasLocal, matchFromSaves(saves, slot))
		if err != nil {
			continue // ErrNoSave: nothing on either side
		}

		out = append(out, c)
	}

	return out, nil
}

// matchFromSaves returns the newest save containing slot. saves must be
// ordered newest first.
func matchFromSaves(saves []CloudSave, slot int) *CloudMatch {
	for _, s := range saves {
		if entry, ok := s.HasSlot(slot); ok {
			return &CloudMatch{
				ArchiveID:   s.ArchiveID,
				ArchiveName: s.ArchiveName,
				EntryName:   entry,
				ModifiedAt:  s.ModifiedAt,
			}
		}
	}

	return nil
}
