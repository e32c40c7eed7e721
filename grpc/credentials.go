package grpc

import (
	"context"

	"github.com/Anish-ai/vaultx"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/status"
)

// SessionCredentials implements credentials.PerRPCCredentials with the token
// held in a vaultx.SessionStore. Use it with grpc.WithPerRPCCredentials.
type SessionCredentials struct {
	sessions vaultx.SessionStore
	config   *Config
}

var _ credentials.PerRPCCredentials = (*SessionCredentials)(nil)

// NewSessionCredentials creates per-RPC credentials backed by sessions.
// A nil config uses DefaultConfig.
func NewSessionCredentials(sessions vaultx.SessionStore, config *Config) *SessionCredentials {
	if config == nil {
		config = DefaultConfig()
	}
	config.EnsureDefaults()
	return &SessionCredentials{sessions: sessions, config: config}
}

// GetRequestMetadata returns the authorization metadata for one call.
// It fails with codes.Unauthenticated when no session is stored.
func (c *SessionCredentials) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	session, err := c.sessions.Load()
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to load session: %v", err)
	}
	if session == nil || session.Token == "" {
		return nil, status.Error(codes.Unauthenticated, vaultx.ErrNoSession.Error())
	}
	return map[string]string{
		c.config.MetadataKeyAuthorization: bearerPrefix + session.Token,
	}, nil
}

// RequireTransportSecurity implements credentials.PerRPCCredentials
func (c *SessionCredentials) RequireTransportSecurity() bool {
	return c.config.RequireTransportSecurity
}
