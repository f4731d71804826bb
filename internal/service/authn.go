package service

import (
	"context"

	"github.com/stagstation/stagsync/internal/auth"
	"github.com/stagstation/stagsync/internal/tokenfile"
)

// AuthStatus reports where the device flow stands. DeviceCode is set while
// the user still has to approve the request.
type AuthStatus struct {
	State         string           `json:"state"`
	Authenticated bool             `json:"authenticated"`
	DeviceCode    *auth.DeviceCode `json:"device_code,omitempty"`
}

func statusOf(session *auth.Session, code *auth.DeviceCode) *AuthStatus {
	st := session.State()

	return &AuthStatus{
		State:         st.String(),
		Authenticated: st == auth.StateAuthenticated,
		DeviceCode:    code,
	}
}

// Authenticate starts the device flow with the client secret at
// credentialsPath (empty means the configured file). A saved token makes it
// succeed immediately without a device code.
func (s *Service) Authenticate(ctx context.Context, credentialsPath string) Result {
	return s.run("authenticate", func() (any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		session, err := s.sessionLocked(credentialsPath)
		if err != nil {
			return nil, err
		}

		code, err := session.Begin(ctx)
		if err != nil {
			return nil, err
		}

		return statusOf(session, code), nil
	})
}

// CompleteAuth polls until the user approves the pending device code, the
// code expires, or ctx is canceled. The token is saved on success.
func (s *Service) CompleteAuth(ctx context.Context, credentialsPath string) Result {
	return s.run("complete-auth", func() (any, error) {
		// The poll can take minutes; hold the lock only to find the session.
		s.mu.Lock()
		session, err := s.sessionLocked(credentialsPath)
		s.mu.Unlock()

		if err != nil {
			return nil, err
		}

		if _, err := session.Complete(ctx); err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.resetEngineLocked()
		s.mu.Unlock()

		return statusOf(session, nil), nil
	})
}

// Logout deletes the saved token. Logging out without a token succeeds.
func (s *Service) Logout(_ context.Context) Result {
	return s.run("logout", func() (any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.resetEngineLocked()

		if s.session != nil {
			return nil, s.session.Logout()
		}

		return nil, tokenfile.Remove(s.cfg.TokenPath)
	})
}
