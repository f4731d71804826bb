package sync

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/stagstation/stagsync/internal/archive"
	"github.com/stagstation/stagsync/internal/gdrive"
)

// archiveSuffix filters the game folder listing.
const archiveSuffix = ".zip"

// archives resolves a game's folder and lists its archives, newest first.
func (e *Engine) archives(ctx context.Context, game string) (string, []gdrive.File, error) {
	folder, err := e.folderName(game)
	if err != nil {
		return "", nil, err
	}

	folderID, err := e.store.GameFolder(ctx, folder)
	if err != nil {
		return "", nil, fmt.Errorf("sync: resolving folder for %s: %w", game, err)
	}

	files, err := e.store.ListArchives(ctx, folderID, archiveSuffix)
	if err != nil {
		return "", nil, fmt.Errorf("sync: listing archives for %s: %w", game, err)
	}

	return folderID, files, nil
}

// fetchArchive downloads f into memory and opens it.
func (e *Engine) fetchArchive(ctx context.Context, f gdrive.File) (*archive.Archive, error) {
	var buf bytes.Buffer
	if f.Size > 0 {
		buf.Grow(int(f.Size))
	}

	if _, err := e.store.Download(ctx, f.ID, &buf); err != nil {
		return nil, err
	}

	return archive.Open(buf.Bytes())
}

// findSlot walks files newest-first and returns the first archive holding
// slot, or nil when none does. Unreadable archives are skipped.
func (e *Engine) findSlot(ctx context.Context, files []gdrive.File, slot int) (*CloudMatch, error) {
	want := archive.SlotEntryName(slot)

	for _, f := range files {
		a, err := e.fetchArchive(ctx, f)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			e.skipArchive(f, err)

			continue
		}

		for _, s := range a.Slots() {
			if s.Slot == slot {
				return &CloudMatch{
					ArchiveID:   f.ID,
					ArchiveName: f.Name,
					EntryName:   s.Name,
					ModifiedAt:  f.ModifiedAt,
				}, nil
			}
		}

		e.logger.Debug("archive has no entry for slot",
			slog.String("archive", f.Name),
			slog.String("entry", want),
		)
	}

	return nil, nil
}

func (e *Engine) skipArchive(f gdrive.File, err error) {
	e.logger.Warn("skipping unreadable archive",
		slog.String("archive", f.Name),
		slog.String("id", f.ID),
		slog.String("error", err.Error()),
	)
}

// ListSaves lists the game's cloud archives with the slots each contains,
// newest first. Archives are inspected concurrently; ones that fail to
// download or parse are skipped, and ones without slot entries are dropped.
func (e *Engine) ListSaves(ctx context.Context, game string) ([]CloudSave, error) {
	_, files, err := e.archives(ctx, game)
	if err != nil {
		return nil, err
	}

	results := make([]*CloudSave, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(inspectConcurrency)

	for i, f := range files {
		g.Go(func() error {
			a, err := e.fetchArchive(gctx, f)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}

				e.skipArchive(f, err)

				return nil
			}

			results[i] = toCloudSave(f, a)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("sync: inspecting archives for %s: %w", game, err)
	}

	out := make([]CloudSave, 0, len(results))

	for _, r := range results {
		if r != nil && len(r.Slots) > 0 {
			out = append(out, *r)
		}
	}

	e.logger.Debug("listed cloud saves",
		slog.String("game", game),
		slog.Int("archives", len(files)),
		slog.Int("saves", len(out)),
	)

	return out, nil
}

func toCloudSave(f gdrive.File, a *archive.Archive) *CloudSave {
	entries := a.Slots()

	slots := make([]CloudSlot, 0, len(entries))
	for _, s := range entries {
		slots = append(slots, CloudSlot{EntryName: s.Name, Slot: s.Slot})
	}

	return &CloudSave{
		ArchiveID:   f.ID,
		ArchiveName: f.Name,
		DisplayName: strings.TrimSuffix(f.Name, archiveSuffix),
		ModifiedAt:  f.ModifiedAt,
		Size:        f.Size,
		Slots:       slots,
		HasMeta:     a.HasMeta(),
	}
}
