// Package service is the collaborator-facing API over the codec, the auth
// session and the sync engine. Every call returns a Result envelope and
// never panics past its boundary.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/stagstation/stagsync/internal/auth"
	"github.com/stagstation/stagsync/internal/config"
	"github.com/stagstation/stagsync/internal/gdrive"
	"github.com/stagstation/stagsync/internal/history"
	savesync "github.com/stagstation/stagsync/internal/sync"
)

// Service owns the per-process auth session, Drive store, engine and
// history journal. The zero value is not usable; call New.
type Service struct {
	cfg        *config.Resolved
	logger     *slog.Logger
	httpClient *http.Client
	driveURL   string
	uploadURL  string
	endpoint   oauth2.Endpoint
	fs         afero.Fs
	clock      clockwork.Clock
	remote     savesync.RemoteStore

	mu           sync.Mutex
	session      *auth.Session
	sessionCreds string
	engine       *savesync.Engine
	journal      *history.Store
	journalErr   error
}

// Option configures a Service.
type Option func(*Service)

// WithHTTPClient sets the client used for OAuth and Drive requests.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.httpClient = c }
}

// WithDriveURLs points the Drive client at different API roots.
func WithDriveURLs(base, upload string) Option {
	return func(s *Service) {
		s.driveURL = base
		s.uploadURL = upload
	}
}

// WithAuthEndpoint overrides the OAuth endpoints.
func WithAuthEndpoint(e oauth2.Endpoint) Option {
	return func(s *Service) { s.endpoint = e }
}

// WithFs replaces the local filesystem.
func WithFs(fs afero.Fs) Option {
	return func(s *Service) { s.fs = fs }
}

// WithClock replaces the clock used by the auth poll loop, the engine and
// the journal.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithRemoteStore bypasses authentication and uses store for every Drive
// operation.
func WithRemoteStore(store savesync.RemoteStore) Option {
	return func(s *Service) { s.remote = store }
}

// New creates a Service for the resolved configuration.
func New(cfg *config.Resolved, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		cfg:        cfg,
		logger:     logger,
		httpClient: &http.Client{Timeout: cfg.Network.Timeout},
		driveURL:   gdrive.DefaultBaseURL,
		uploadURL:  gdrive.DefaultUploadURL,
		endpoint:   auth.GoogleEndpoint,
		fs:         afero.NewOsFs(),
		clock:      clockwork.NewRealClock(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Close releases the history database.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.journal == nil {
		return nil
	}

	err := s.journal.Close()
	s.journal = nil

	return err
}

// run executes fn, converting its outcome and any panic into a Result.
func (s *Service) run(op string, fn func() (any, error)) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("recovered panic",
				slog.String("op", op),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)

			res = Result{
				Error: fmt.Sprintf("internal error in %s: %v", op, r),
				Kind:  KindInternal,
				err:   fmt.Errorf("service: panic in %s: %v", op, r),
			}
		}
	}()

	data, err := fn()
	if err != nil {
		s.logger.Debug("operation failed",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)

		return failure(err)
	}

	return success(data)
}

// sessionLocked returns the session for credsPath, creating it when the path
// changes. An empty path means the configured credentials file. A session with
// a live device code is never replaced.
func (s *Service) sessionLocked(credsPath string) (*auth.Session, error) {
	if credsPath == "" {
		credsPath = s.cfg.CredentialsPath
	}

	if s.session != nil && s.sessionCreds == credsPath {
		return s.session, nil
	}

	if s.session != nil && s.session.Pending() {
		return nil, auth.ErrAuthInProgress
	}

	creds, err := auth.LoadCredentials(credsPath)
	if err != nil {
		return nil, err
	}

	s.session = auth.NewSession(creds, s.cfg.TokenPath, s.logger,
		auth.WithClock(s.clock),
		auth.WithHTTPClient(s.httpClient),
		auth.WithEndpoint(s.endpoint),
	)
	s.sessionCreds = credsPath

	return s.session, nil
}

// journalLocked opens the history database once. Open failures are
// remembered so transfers keep working without a journal.
func (s *Service) journalLocked(ctx context.Context) (*history.Store, error) {
	if s.journal != nil || s.journalErr != nil {
		return s.journal, s.journalErr
	}

	j, err := history.Open(ctx, s.cfg.HistoryPath, s.logger, history.WithClock(s.clock))
	if err != nil {
		s.journalErr = err

		s.logger.Warn("transfer history unavailable",
			slog.String("path", s.cfg.HistoryPath),
			slog.String("error", err.Error()),
		)

		return nil, err
	}

	s.journal = j

	return j, nil
}

// remoteLocked returns the injected store or builds one from the session's
// token source.
func (s *Service) remoteLocked(ctx context.Context) (savesync.RemoteStore, error) {
	if s.remote != nil {
		return s.remote, nil
	}

	session, err := s.sessionLocked("")
	if err != nil {
		return nil, err
	}

	// The token source refreshes in the background of later calls, so it
	// must not inherit this call's cancellation.
	ts, err := session.TokenSource(context.WithoutCancel(ctx))
	if err != nil {
		return nil, err
	}

	client := gdrive.NewClient(s.driveURL, s.httpClient, ts, s.logger,
		gdrive.WithUploadURL(s.uploadURL),
		gdrive.WithRateLimit(rate.Limit(s.cfg.Network.RequestsPerSecond), s.cfg.Network.Burst),
	)

	return gdrive.NewStore(client), nil
}

// engineFor builds the engine on first use.
func (s *Service) engineFor(ctx context.Context) (*savesync.Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine != nil {
		return s.engine, nil
	}

	store, err := s.remoteLocked(ctx)
	if err != nil {
		return nil, err
	}

	opts := []savesync.Option{savesync.WithFs(s.fs), savesync.WithClock(s.clock)}

	if j, err := s.journalLocked(ctx); err == nil {
		opts = append(opts, savesync.WithJournal(j))
	}

	s.engine = savesync.NewEngine(store, engineSettings(s.cfg), s.logger, opts...)

	return s.engine, nil
}

// resetEngineLocked drops the engine so the next call picks up a new token.
func (s *Service) resetEngineLocked() {
	s.engine = nil
}

func engineSettings(cfg *config.Resolved) savesync.Settings {
	games := make(map[string]string, len(cfg.Games))
	for id, g := range cfg.Games {
		games[id] = g.Folder
	}

	return savesync.Settings{
		Games:         games,
		CreateBackups: cfg.CreateBackups,
		BackupDir:     cfg.BackupDir,
		ScratchDir:    cfg.ScratchDir,
		ArchiveFormat: savesync.ArchiveFormat(cfg.ArchiveFormat),
		Meta: savesync.MetaSettings{
			Enabled:    cfg.Meta.Enabled,
			Mode:       savesync.MetaMode(cfg.Meta.Mode),
			CustomPath: cfg.Meta.CustomPath,
		},
	}
}

// saveDir resolves the directory for game: the explicit value, else the
// configured save_dir.
func (s *Service) saveDir(game, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	g, ok := s.cfg.Games[game]
	if !ok {
		return "", fmt.Errorf("%w: %q", savesync.ErrUnknownGame, game)
	}

	if g.SaveDir == "" {
		return "", fmt.Errorf("%w: no save directory given and games.%s.save_dir is not set",
			ErrInvalidArgument, game)
	}

	return g.SaveDir, nil
}

// localPath resolves the local file for slot.
func (s *Service) localPath(e *savesync.Engine, game string, slot int, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	dir, err := s.saveDir(game, "")
	if err != nil {
		return "", err
	}

	return e.SlotPath(dir, slot)
}

func requireGame(game string) error {
	if game == "" {
		return fmt.Errorf("%w: game is required", ErrInvalidArgument)
	}

	return nil
}
