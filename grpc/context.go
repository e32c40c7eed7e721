// Package grpc carries the vaultx session token to gRPC collaborators.
// The token travels as "authorization: Bearer <token>" metadata, the same
// header the REST client sends.
package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc/metadata"
)

// Default metadata keys.
// These can be customized via Config if needed.
const (
	// DefaultMetadataKeyAuthorization is the default gRPC metadata key for the bearer token
	DefaultMetadataKeyAuthorization = "authorization"

	// DefaultMetadataKeyRequestID is the default gRPC metadata key for the request id
	DefaultMetadataKeyRequestID = "x-request-id"

	bearerPrefix = "Bearer "
)

// Config holds the metadata key configuration.
type Config struct {
	// MetadataKeyAuthorization is the gRPC metadata key for the bearer token.
	// Defaults to "authorization".
	MetadataKeyAuthorization string

	// MetadataKeyRequestID is the gRPC metadata key for the per-call request id.
	// Defaults to "x-request-id".
	MetadataKeyRequestID string

	// RequireTransportSecurity when true refuses to send the token over an
	// insecure connection. Should only be disabled in development.
	RequireTransportSecurity bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MetadataKeyAuthorization: DefaultMetadataKeyAuthorization,
		MetadataKeyRequestID:     DefaultMetadataKeyRequestID,
		RequireTransportSecurity: true,
	}
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MetadataKeyAuthorization == "" {
		c.MetadataKeyAuthorization = DefaultMetadataKeyAuthorization
	}
	if c.MetadataKeyRequestID == "" {
		c.MetadataKeyRequestID = DefaultMetadataKeyRequestID
	}
}

// TokenToOutgoingContext adds the bearer token to outgoing gRPC context metadata.
func TokenToOutgoingContext(ctx context.Context, token string) context.Context {
	return TokenToOutgoingContextWithKey(ctx, token, DefaultMetadataKeyAuthorization)
}

// TokenToOutgoingContextWithKey adds the bearer token with a custom key.
func TokenToOutgoingContextWithKey(ctx context.Context, token string, key string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, key, bearerPrefix+token)
}

// TokenFromIncomingContext extracts the bearer token from incoming metadata.
// Returns empty string if none was sent.
func TokenFromIncomingContext(ctx context.Context) string {
	return TokenFromIncomingContextWithConfig(ctx, nil)
}

// TokenFromIncomingContextWithConfig extracts the bearer token using the specified config.
func TokenFromIncomingContextWithConfig(ctx context.Context, config *Config) string {
	if config == nil {
		config = DefaultConfig()
	}
	config.EnsureDefaults()

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(config.MetadataKeyAuthorization)
	if len(values) == 0 {
		return ""
	}
	return parseBearer(values[0])
}

func parseBearer(value string) string {
	if len(value) < len(bearerPrefix) || !strings.EqualFold(value[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(value[len(bearerPrefix):])
}

// hasOutgoingKey reports whether key is already set on the outgoing context
func hasOutgoingKey(ctx context.Context, key string) bool {
	md, ok := metadata.FromOutgoingContext(ctx)
	return ok && len(md.Get(key)) > 0
}
