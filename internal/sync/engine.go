package sync

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"

	"github.com/stagstation/stagsync/internal/history"
	"github.com/stagstation/stagsync/internal/savecodec"
)

// ArchiveFormat is the encoding slot entries are stored in inside cloud
// archives. Local files are kept in the other encoding.
type ArchiveFormat string

// Archive formats.
const (
	// FormatHost stores framed, encrypted entries; local files are portable.
	FormatHost ArchiveFormat = "host"
	// FormatPortable stores decrypted entries; local files are host-framed.
	FormatPortable ArchiveFormat = "portable"
)

// uploadDirection converts a local file into archive form.
func (f ArchiveFormat) uploadDirection() savecodec.Direction {
	if f == FormatPortable {
		return savecodec.ToPortable
	}

	return savecodec.ToHost
}

// downloadDirection converts an archive entry into local form.
func (f ArchiveFormat) downloadDirection() savecodec.Direction {
	return f.uploadDirection().Inverse()
}

// MetaMode selects where the metadata side-car comes from on upload.
type MetaMode string

// Metadata side-car modes.
const (
	MetaAuto   MetaMode = "auto"
	MetaCustom MetaMode = "custom"
)

// MetaSettings controls the metadata side-car packed with uploads.
type MetaSettings struct {
	Enabled    bool
	Mode       MetaMode
	CustomPath string
}

// Settings are the fully resolved engine options.
type Settings struct {
	// Games maps a game id to its folder name under the Drive root.
	Games         map[string]string
	CreateBackups bool
	// BackupDir receives timestamped copies before overwrites. Empty means a
	// "backups" directory next to the file being backed up.
	BackupDir string
	// ScratchDir holds transient archives. Empty means os.TempDir().
	ScratchDir    string
	ArchiveFormat ArchiveFormat
	Meta          MetaSettings
}

// Journal records completed transfers. Satisfied by *history.Store.
type Journal interface {
	Record(ctx context.Context, e history.Entry) error
}

// inspectConcurrency bounds parallel archive downloads during ListSaves.
const inspectConcurrency = 4

// Engine runs comparisons and transfers for all configured games.
type Engine struct {
	store      RemoteStore
	settings   Settings
	fs         afero.Fs
	clock      clockwork.Clock
	journal    Journal
	logger     *slog.Logger
	newWatcher func() (FsWatcher, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithFs replaces the local filesystem (tests use afero.NewMemMapFs).
func WithFs(fs afero.Fs) Option {
	return func(e *Engine) { e.fs = fs }
}

// WithClock replaces the clock used for backup names and default save names.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithJournal enables transfer recording.
func WithJournal(j Journal) Option {
	return func(e *Engine) { e.journal = j }
}

// NewEngine creates an Engine over store.
func NewEngine(store RemoteStore, settings Settings, logger *slog.Logger, opts ...Option) *Engine {
	if settings.ArchiveFormat == "" {
		settings.ArchiveFormat = FormatHost
	}

	if settings.Meta.Mode == "" {
		settings.Meta.Mode = MetaAuto
	}

	e := &Engine{
		store:      store,
		settings:   settings,
		fs:         afero.NewOsFs(),
		clock:      clockwork.NewRealClock(),
		logger:     logger,
		newWatcher: newFsnotifyWatcher,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Settings returns the engine's resolved settings.
func (e *Engine) Settings() Settings {
	return e.settings
}

// folderName maps a game id to its Drive folder name.
func (e *Engine) folderName(game string) (string, error) {
	name, ok := e.settings.Games[game]
	if !ok || name == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownGame, game)
	}

	return name, nil
}

func (e *Engine) scratchDir() string {
	if e.settings.ScratchDir != "" {
		return e.settings.ScratchDir
	}

	return os.TempDir()
}

// record journals a transfer. Failures are logged only.
func (e *Engine) record(ctx context.Context, entry history.Entry) {
	if e.journal == nil {
		return
	}

	if err := e.journal.Record(ctx, entry); err != nil {
		e.logger.Warn("failed to record transfer in history",
			slog.String("op", string(entry.Op)),
			slog.String("game", entry.Game),
			slog.Int("slot", entry.Slot),
			slog.String("error", err.Error()),
		)
	}
}
