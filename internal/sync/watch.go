package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"

	"github.com/stagstation/stagsync/internal/archive"
)

// Watch tuning.
const (
	watchDebounce       = 2 * time.Second
	watchErrInitBackoff = time.Second
	watchErrMaxBackoff  = 30 * time.Second
	watchErrBackoffMult = 2
)

// FsWatcher is the subset of *fsnotify.Watcher used by Watch.
type FsWatcher interface {
	Add(name string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

// fsnotifyWatcher exposes fsnotify's channel fields as methods.
type fsnotifyWatcher struct {
	w *fsnotify.Watcher
}

func newFsnotifyWatcher() (FsWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &fsnotifyWatcher{w: w}, nil
}

func (f *fsnotifyWatcher) Add(name string) error         { return f.w.Add(name) }
func (f *fsnotifyWatcher) Close() error                  { return f.w.Close() }
func (f *fsnotifyWatcher) Events() <-chan fsnotify.Event { return f.w.Events }
func (f *fsnotifyWatcher) Errors() <-chan error          { return f.w.Errors }

// Watch observes saveDir and, once changes to slot files settle, reports a
// fresh comparison for every changed slot to fn. It never transfers. Returns
// nil when ctx is canceled.
func (e *Engine) Watch(ctx context.Context, game, saveDir string, fn func(Comparison)) error {
	if _, err := e.folderName(game); err != nil {
		return err
	}

	watcher, err := e.newWatcher()
	if err != nil {
		return fmt.Errorf("sync: creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(saveDir); err != nil {
		return fmt.Errorf("sync: watching %s: %w", saveDir, err)
	}

	e.logger.Info("watching save directory",
		slog.String("game", game),
		slog.String("dir", saveDir),
	)

	return e.watchLoop(ctx, watcher, game, fn)
}

// watchLoop collects changed slots and flushes them after watchDebounce of
// quiet. Watcher errors back off exponentially.
func (e *Engine) watchLoop(ctx context.Context, watcher FsWatcher, game string, fn func(Comparison)) error {
	dirty := make(map[int]string)

	var (
		debounce clockwork.Timer
		fire     <-chan time.Time
	)

	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	errBackoff := watchErrInitBackoff

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events():
			if !ok {
				return nil
			}

			slot, ok := slotFromEvent(ev)
			if !ok {
				continue
			}

			dirty[slot] = ev.Name
			errBackoff = watchErrInitBackoff

			if debounce == nil {
				debounce = e.clock.NewTimer(watchDebounce)
				fire = debounce.Chan()
			} else {
				debounce.Reset(watchDebounce)
			}

		case watchErr, ok := <-watcher.Errors():
			if !ok {
				return nil
			}

			e.logger.Warn("filesystem watcher error",
				slog.String("error", watchErr.Error()),
				slog.Duration("backoff", errBackoff),
			)

			select {
			case <-ctx.Done():
				return nil
			case <-e.clock.After(errBackoff):
			}

			errBackoff = min(errBackoff*watchErrBackoffMult, watchErrMaxBackoff)

		case <-fire:
			debounce, fire = nil, nil
			e.flush(ctx, game, dirty, fn)
			clear(dirty)
		}
	}
}

// flush compares each dirty slot in slot order.
func (e *Engine) flush(ctx context.Context, game string, dirty map[int]string, fn func(Comparison)) {
	slots := make([]int, 0, len(dirty))
	for slot := range dirty {
		slots = append(slots, slot)
	}

	slices.Sort(slots)

	for _, slot := range slots {
		c, err := e.CompareSlot(ctx, game, slot, dirty[slot])
		if err != nil {
			if !errors.Is(err, ErrNoSave) && ctx.Err() == nil {
				e.logger.Warn("comparison after change failed",
					slog.String("game", game),
					slog.Int("slot", slot),
					slog.String("error", err.Error()),
				)
			}

			continue
		}

		fn(c)
	}
}

// slotFromEvent maps an event to a slot number. Chmod-only events and files
// that are not slot files (including .partial siblings) are ignored.
func slotFromEvent(ev fsnotify.Event) (int, bool) {
	if ev.Op == fsnotify.Chmod {
		return 0, false
	}

	return archive.ParseSlotEntry(filepath.Base(ev.Name))
}
