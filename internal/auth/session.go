// Package auth implements the OAuth2 device authorization grant against
// Google and keeps the resulting token on disk. A Session is an explicit value
// owned by the caller; nothing here is package-global.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/oauth2"

	"github.com/stagstation/stagsync/internal/tokenfile"
)

// Sentinel errors.
var (
	ErrNoCredentials  = errors.New("auth: credentials file not found")
	ErrNotLoggedIn    = errors.New("auth: not logged in")
	ErrAuthInProgress = errors.New("auth: device authorization already in progress")
	ErrNoPendingAuth  = errors.New("auth: no pending device authorization (call Begin first)")
	ErrAuthExpired    = errors.New("auth: device code expired")
	ErrAuthFailed     = errors.New("auth: device authorization failed")
)

// Provider defaults applied when the device-code response omits them.
const (
	defaultInterval  = 5 * time.Second
	defaultExpiresIn = 1800 * time.Second
	slowDownStep     = 5 * time.Second
)

// State is a step of the device authorization state machine.
type State int

// Session states.
const (
	StateUnauthenticated State = iota
	StateDeviceCodeRequested
	StatePending
	StateSlowDown
	StateAuthenticated
	StateExpired
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateDeviceCodeRequested:
		return "device-code-requested"
	case StatePending:
		return "pending"
	case StateSlowDown:
		return "slow-down"
	case StateAuthenticated:
		return "authenticated"
	case StateExpired:
		return "expired"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// polling reports whether s is one of the in-flight states.
func (s State) polling() bool {
	return s == StateDeviceCodeRequested || s == StatePending || s == StateSlowDown
}

// DeviceCode is what the user needs to authorize this client.
type DeviceCode struct {
	UserCode        string        `json:"user_code"`
	VerificationURL string        `json:"verification_url"`
	Interval        time.Duration `json:"interval"`
	ExpiresIn       time.Duration `json:"expires_in"`
}

// pendingAuth is the device code being polled for.
type pendingAuth struct {
	deviceCode  string
	interval    time.Duration
	window      time.Duration
	requestedAt time.Time
}

// Session drives the device flow and owns the token file.
type Session struct {
	cfg        *oauth2.Config
	tokenPath  string
	clock      clockwork.Clock
	httpClient *http.Client
	logger     *slog.Logger

	mu       sync.Mutex
	state    State
	pending  *pendingAuth
	inFlight bool // Complete is running
	token    *oauth2.Token
}

// Option configures a Session.
type Option func(*Session)

// WithClock replaces the wall clock used by the poll loop.
func WithClock(c clockwork.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithHTTPClient sets the client used for every OAuth request.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) { s.httpClient = c }
}

// WithEndpoint overrides the Google endpoints (tests point this at httptest).
func WithEndpoint(e oauth2.Endpoint) Option {
	return func(s *Session) { s.cfg.Endpoint = e }
}

// NewSession creates a Session for the given client credentials and token path.
func NewSession(creds Credentials, tokenPath string, logger *slog.Logger, opts ...Option) *Session {
	s := &Session{
		cfg:        oauthConfig(creds, GoogleEndpoint),
		tokenPath:  tokenPath,
		clock:      clockwork.NewRealClock(),
		httpClient: http.DefaultClient,
		logger:     logger,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Pending reports whether a device code is live and waiting for approval.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.polling() && !s.pendingExpiredLocked()
}

// Begin starts the device flow. When a usable token is already on disk the
// session moves straight to Authenticated and Begin returns (nil, nil).
// Begin while a device code is still live returns ErrAuthInProgress.
func (s *Session) Begin(ctx context.Context) (*DeviceCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.polling() && !s.pendingExpiredLocked() {
		return nil, ErrAuthInProgress
	}

	tok, err := tokenfile.Load(s.tokenPath)
	if err != nil {
		s.logger.Warn("ignoring unreadable token file",
			slog.String("path", s.tokenPath),
			slog.String("error", err.Error()),
		)
	}

	if tok != nil {
		s.logger.Info("using saved token", slog.String("path", s.tokenPath))
		s.token = tok
		s.state = StateAuthenticated
		s.pending = nil

		return nil, nil //nolint:nilnil // nil code means already authenticated
	}

	s.logger.Info("requesting device code")

	requestedAt := s.clock.Now()

	da, err := s.cfg.DeviceAuth(s.oauthContext(ctx))
	if err != nil {
		s.state = StateFailed
		return nil, fmt.Errorf("%w: requesting device code: %w", ErrAuthFailed, err)
	}

	interval := time.Duration(da.Interval) * time.Second
	if interval <= 0 {
		interval = defaultInterval
	}

	window := defaultExpiresIn
	if !da.Expiry.IsZero() {
		// The library stamps Expiry with the wall clock; only the window matters.
		if w := time.Until(da.Expiry).Round(time.Second); w > 0 {
			window = w
		}
	}

	s.pending = &pendingAuth{
		deviceCode:  da.DeviceCode,
		interval:    interval,
		window:      window,
		requestedAt: requestedAt,
	}
	s.state = StateDeviceCodeRequested

	s.logger.Info("device code received",
		slog.Duration("interval", interval),
		slog.Duration("expires_in", window),
	)

	verification := da.VerificationURI
	if verification == "" {
		verification = "https://www.google.com/device"
	}

	return &DeviceCode{
		UserCode:        da.UserCode,
		VerificationURL: verification,
		Interval:        interval,
		ExpiresIn:       window,
	}, nil
}

func (s *Session) pendingExpiredLocked() bool {
	return s.pending != nil && s.clock.Since(s.pending.requestedAt) > s.pending.window
}

// Complete polls the token endpoint until the user authorizes, the device
// code expires, the provider rejects the request, or ctx is canceled. On
// success the token is persisted and returned.
func (s *Session) Complete(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	if s.state == StateAuthenticated && s.token != nil {
		tok := s.token
		s.mu.Unlock()

		return tok, nil
	}

	if s.pending == nil || !s.state.polling() {
		s.mu.Unlock()
		return nil, ErrNoPendingAuth
	}

	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrAuthInProgress
	}

	s.inFlight = true
	p := *s.pending
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	tok, err := s.pollLoop(ctx, p)
	if err != nil {
		return nil, err
	}

	if err := tokenfile.Save(s.tokenPath, tok); err != nil {
		s.setState(StateFailed)
		return nil, fmt.Errorf("auth: saving token: %w", err)
	}

	s.mu.Lock()
	s.token = tok
	s.state = StateAuthenticated
	s.pending = nil
	s.mu.Unlock()

	s.logger.Info("login successful",
		slog.String("path", s.tokenPath),
		slog.Time("expiry", tok.Expiry),
	)

	return tok, nil
}

// pollLoop runs the poll/wait cycle. The expiry check is against the time the
// device code was requested, so it fires even while the provider keeps
// answering authorization_pending.
func (s *Session) pollLoop(ctx context.Context, p pendingAuth) (*oauth2.Token, error) {
	interval := p.interval
	state := StatePending

	for {
		if s.clock.Since(p.requestedAt) > p.window {
			s.finishPending(StateExpired)
			return nil, ErrAuthExpired
		}

		tok, code, err := s.pollToken(ctx, p.deviceCode)
		if err != nil {
			if ctx.Err() != nil {
				// Cancellation leaves the device code usable for a later Complete.
				return nil, fmt.Errorf("auth: polling canceled: %w", ctx.Err())
			}

			s.finishPending(StateFailed)

			return nil, err
		}

		if tok != nil {
			return tok, nil
		}

		state, interval = step(interval, code)
		s.setState(state)

		s.logger.Debug("authorization not complete",
			slog.String("code", code),
			slog.String("state", state.String()),
			slog.Duration("next_poll", interval),
		)

		if err := s.wait(ctx, interval); err != nil {
			return nil, fmt.Errorf("auth: polling canceled: %w", err)
		}
	}
}

// step applies a non-terminal token-endpoint error code to the poll state.
func step(interval time.Duration, code string) (State, time.Duration) {
	if code == codeSlowDown {
		return StateSlowDown, interval + slowDownStep
	}

	return StatePending, interval
}

func (s *Session) wait(ctx context.Context, d time.Duration) error {
	timer := s.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.Chan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// finishPending ends the flow in a terminal state and drops the device code.
func (s *Session) finishPending(st State) {
	s.mu.Lock()
	s.state = st
	s.pending = nil
	s.mu.Unlock()
}

// Logout removes the saved token and resets the session.
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := tokenfile.Remove(s.tokenPath); err != nil {
		return err
	}

	s.token = nil
	s.pending = nil
	s.state = StateUnauthenticated

	s.logger.Info("logout: removed token file", slog.String("path", s.tokenPath))

	return nil
}

func (s *Session) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}
