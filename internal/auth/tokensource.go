package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"

	"github.com/stagstation/stagsync/internal/tokenfile"
)

// TokenSource hands out access tokens for API calls, refreshing through
// x/oauth2 and writing every refreshed token back to the token file.
type TokenSource struct {
	src       oauth2.TokenSource
	tokenPath string
	logger    *slog.Logger

	mu   sync.Mutex
	last string // access token last seen, to detect refreshes
}

// TokenSource returns a refreshing source for the session's token. The
// session must be authenticated, or a token must exist on disk.
//
// ctx is bound to refresh requests and must outlive the returned source.
func (s *Session) TokenSource(ctx context.Context) (*TokenSource, error) {
	s.mu.Lock()
	tok := s.token
	s.mu.Unlock()

	if tok == nil {
		loaded, err := tokenfile.Load(s.tokenPath)
		if err != nil {
			return nil, err
		}

		if loaded == nil {
			return nil, ErrNotLoggedIn
		}

		tok = loaded

		s.mu.Lock()
		s.token = tok
		s.state = StateAuthenticated
		s.mu.Unlock()
	}

	s.logger.Debug("loaded token",
		slog.String("path", s.tokenPath),
		slog.Time("expiry", tok.Expiry),
		slog.Bool("valid", tok.Valid()),
	)

	return &TokenSource{
		src:       s.cfg.TokenSource(s.oauthContext(ctx), tok),
		tokenPath: s.tokenPath,
		logger:    s.logger,
		last:      tok.AccessToken,
	}, nil
}

// Token returns a valid access token.
func (t *TokenSource) Token() (string, error) {
	tok, err := t.src.Token()
	if err != nil {
		t.logger.Warn("token acquisition failed", slog.String("error", err.Error()))
		return "", fmt.Errorf("auth: obtaining token: %w", err)
	}

	t.mu.Lock()
	changed := tok.AccessToken != t.last
	t.last = tok.AccessToken
	t.mu.Unlock()

	if changed {
		t.persist(tok)
	}

	return tok.AccessToken, nil
}

// persist saves a refreshed token. Failure is logged only: the in-memory
// token is still good for this process.
func (t *TokenSource) persist(tok *oauth2.Token) {
	t.logger.Info("token refreshed", slog.Time("new_expiry", tok.Expiry))

	if err := tokenfile.Save(t.tokenPath, tok); err != nil {
		t.logger.Warn("failed to persist refreshed token",
			slog.String("path", t.tokenPath),
			slog.String("error", err.Error()),
		)
	}
}
