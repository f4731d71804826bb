package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const deviceGrantType = "urn:ietf:params:oauth:grant-type:device_code"

// Token endpoint error codes that keep the loop alive.
const (
	codeAuthorizationPending = "authorization_pending"
	codeSlowDown             = "slow_down"
)

// maxTokenResponse bounds the token endpoint body we are willing to read.
const maxTokenResponse = 1 << 20

// ProviderError is a terminal error returned by the token endpoint, such as
// access_denied or expired_token. It matches ErrAuthFailed.
type ProviderError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("auth: device authorization failed: %s: %s", e.Code, e.Description)
	}

	return fmt.Sprintf("auth: device authorization failed: %s (HTTP %d)", e.Code, e.StatusCode)
}

func (e *ProviderError) Unwrap() error {
	return ErrAuthFailed
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int64  `json:"expires_in"`
	Scope            string `json:"scope"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// pollToken makes one token request. It returns a token on success, a
// non-terminal code (authorization_pending, slow_down) to keep polling, or an
// error for everything else.
func (s *Session) pollToken(ctx context.Context, deviceCode string) (*oauth2.Token, string, error) {
	form := url.Values{
		"client_id":     {s.cfg.ClientID},
		"client_secret": {s.cfg.ClientSecret},
		"device_code":   {deviceCode},
		"grant_type":    {deviceGrantType},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, "", fmt.Errorf("auth: building token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: token request: %w", ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponse))
	if err != nil {
		return nil, "", fmt.Errorf("%w: reading token response: %w", ErrAuthFailed, err)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, "", &ProviderError{
			StatusCode:  resp.StatusCode,
			Code:        "invalid_response",
			Description: fmt.Sprintf("unparseable token response: %v", err),
		}
	}

	switch {
	case tr.Error == codeAuthorizationPending, tr.Error == codeSlowDown:
		return nil, tr.Error, nil
	case tr.Error != "":
		return nil, "", &ProviderError{StatusCode: resp.StatusCode, Code: tr.Error, Description: tr.ErrorDescription}
	case tr.AccessToken == "":
		return nil, "", &ProviderError{StatusCode: resp.StatusCode, Code: "invalid_response", Description: "no access_token in response"}
	}

	tok := &oauth2.Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
	}

	if tr.ExpiresIn > 0 {
		tok.Expiry = s.clock.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	if tr.Scope != "" {
		tok = tok.WithExtra(map[string]any{"scope": tr.Scope})
	}

	return tok, "", nil
}
