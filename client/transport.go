package client

import (
	"log/slog"
	"net/http"

	"github.com/Anish-ai/vaultx"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// RequestIDHeader carries a per-request id for correlating server logs
const RequestIDHeader = "X-Request-ID"

// SessionTokenSource returns an oauth2.TokenSource that reads the bearer token
// from sessions on every call. It fails with vaultx.ErrNoSession when no token
// is stored.
func SessionTokenSource(sessions vaultx.SessionStore) oauth2.TokenSource {
	return &sessionTokenSource{sessions: sessions}
}

type sessionTokenSource struct {
	sessions vaultx.SessionStore
}

func (s *sessionTokenSource) Token() (*oauth2.Token, error) {
	session, err := s.sessions.Load()
	if err != nil {
		return nil, err
	}
	if session == nil || session.Token == "" {
		return nil, vaultx.ErrNoSession
	}
	return &oauth2.Token{
		AccessToken: session.Token,
		TokenType:   "Bearer",
		Expiry:      session.ExpiresAt,
	}, nil
}

// SessionTransport is an http.RoundTripper that adds the stored bearer token
// and removes the session when the server answers 401
type SessionTransport struct {
	Sessions vaultx.SessionStore
	Base     http.RoundTripper
	Logger   *slog.Logger
}

// NewSessionTransport creates a SessionTransport with a custom base transport
func NewSessionTransport(sessions vaultx.SessionStore, base http.RoundTripper) *SessionTransport {
	return &SessionTransport{
		Sessions: sessions,
		Base:     base,
	}
}

// RoundTrip implements http.RoundTripper
func (t *SessionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	inner := &oauth2.Transport{
		Source: SessionTokenSource(t.Sessions),
		Base:   base,
	}
	resp, err := inner.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if err := t.Sessions.Clear(); err != nil {
			t.logger().Warn("failed to clear rejected session", "error", err)
		} else {
			t.logger().Info("session rejected by server, cleared")
		}
	}
	return resp, nil
}

func (t *SessionTransport) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}

// requestIDTransport stamps each outgoing request with a fresh id
type requestIDTransport struct {
	base http.RoundTripper
}

func (t *requestIDTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	if req.Header.Get(RequestIDHeader) == "" {
		req = req.Clone(req.Context())
		req.Header.Set(RequestIDHeader, uuid.NewString())
	}
	return base.RoundTrip(req)
}
