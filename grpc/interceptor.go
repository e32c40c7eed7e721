package grpc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Anish-ai/vaultx"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// InterceptorConfig configures the client interceptors.
type InterceptorConfig struct {
	// Config holds the metadata key configuration.
	*Config

	// AttachToken when true adds the stored token to calls that don't already
	// carry one. Leave false when SessionCredentials is installed.
	AttachToken bool

	Logger *slog.Logger
}

// DefaultInterceptorConfig returns a config that attaches the stored token.
func DefaultInterceptorConfig() *InterceptorConfig {
	return &InterceptorConfig{
		Config:      DefaultConfig(),
		AttachToken: true,
	}
}

func (c *InterceptorConfig) ensureDefaults() *InterceptorConfig {
	if c == nil {
		c = DefaultInterceptorConfig()
	}
	if c.Config == nil {
		c.Config = DefaultConfig()
	}
	c.Config.EnsureDefaults()
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// UnaryClientInterceptor returns a gRPC unary client interceptor that tags each
// call with a request id, optionally attaches the stored token, and clears the
// session when the server answers codes.Unauthenticated. The returned error
// then also matches vaultx.ErrSessionExpired.
func UnaryClientInterceptor(sessions vaultx.SessionStore, config *InterceptorConfig) grpc.UnaryClientInterceptor {
	config = config.ensureDefaults()

	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx, err := prepareOutgoing(ctx, sessions, config)
		if err != nil {
			return err
		}
		err = invoker(ctx, method, req, reply, cc, opts...)
		return handleCallError(err, method, sessions, config)
	}
}

// StreamClientInterceptor is the streaming counterpart of UnaryClientInterceptor.
// Only errors returned when opening the stream invalidate the session.
func StreamClientInterceptor(sessions vaultx.SessionStore, config *InterceptorConfig) grpc.StreamClientInterceptor {
	config = config.ensureDefaults()

	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		ctx, err := prepareOutgoing(ctx, sessions, config)
		if err != nil {
			return nil, err
		}
		stream, err := streamer(ctx, desc, cc, method, opts...)
		if err != nil {
			return nil, handleCallError(err, method, sessions, config)
		}
		return stream, nil
	}
}

func prepareOutgoing(ctx context.Context, sessions vaultx.SessionStore, config *InterceptorConfig) (context.Context, error) {
	if !hasOutgoingKey(ctx, config.MetadataKeyRequestID) {
		ctx = metadata.AppendToOutgoingContext(ctx, config.MetadataKeyRequestID, uuid.NewString())
	}
	if !config.AttachToken || hasOutgoingKey(ctx, config.MetadataKeyAuthorization) {
		return ctx, nil
	}

	session, err := sessions.Load()
	if err != nil {
		return ctx, status.Errorf(codes.Internal, "failed to load session: %v", err)
	}
	if session == nil || session.Token == "" {
		return ctx, status.Error(codes.Unauthenticated, vaultx.ErrNoSession.Error())
	}
	return TokenToOutgoingContextWithKey(ctx, session.Token, config.MetadataKeyAuthorization), nil
}

func handleCallError(err error, method string, sessions vaultx.SessionStore, config *InterceptorConfig) error {
	if err == nil {
		return nil
	}
	if status.Code(err) != codes.Unauthenticated {
		return err
	}
	if clearErr := sessions.Clear(); clearErr != nil {
		config.Logger.Warn("failed to clear rejected session", "method", method, "error", clearErr)
	} else {
		config.Logger.Info("session rejected by server, cleared", "method", method)
	}
	return fmt.Errorf("%w: %w", vaultx.ErrSessionExpired, err)
}
