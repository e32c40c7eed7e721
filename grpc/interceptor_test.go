package grpc

import (
	"context"
	"errors"
	"testing"

	"github.com/Anish-ai/vaultx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// recordingInvoker captures the outgoing metadata of a call and returns err
func recordingInvoker(got *metadata.MD, err error) grpc.UnaryInvoker {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		*got, _ = metadata.FromOutgoingContext(ctx)
		return err
	}
}

func TestDefaultInterceptorConfig(t *testing.T) {
	config := DefaultInterceptorConfig()
	if !config.AttachToken {
		t.Error("expected AttachToken to be true by default")
	}
	if config.Config == nil {
		t.Error("expected Config to be initialized")
	}
}

func TestUnaryClientInterceptor_AttachesToken(t *testing.T) {
	interceptor := UnaryClientInterceptor(newSessions("tok123"), nil)

	var md metadata.MD
	err := interceptor(context.Background(), "/vaultx.Accounts/List", nil, nil, nil, recordingInvoker(&md, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v := md.Get("authorization"); len(v) != 1 || v[0] != "Bearer tok123" {
		t.Errorf("expected bearer token, got %v", v)
	}
	if v := md.Get("x-request-id"); len(v) != 1 || v[0] == "" {
		t.Errorf("expected request id, got %v", v)
	}
}

func TestUnaryClientInterceptor_KeepsCallerMetadata(t *testing.T) {
	interceptor := UnaryClientInterceptor(newSessions("stored"), nil)

	ctx := metadata.AppendToOutgoingContext(context.Background(),
		"authorization", "Bearer explicit",
		"x-request-id", "req-1")

	var md metadata.MD
	if err := interceptor(ctx, "/m", nil, nil, nil, recordingInvoker(&md, nil)); err != nil {
		t.Fatal(err)
	}
	if v := md.Get("authorization"); len(v) != 1 || v[0] != "Bearer explicit" {
		t.Errorf("expected caller token to be kept, got %v", v)
	}
	if v := md.Get("x-request-id"); len(v) != 1 || v[0] != "req-1" {
		t.Errorf("expected caller request id to be kept, got %v", v)
	}
}

func TestUnaryClientInterceptor_NoSession(t *testing.T) {
	interceptor := UnaryClientInterceptor(newSessions(""), nil)

	called := false
	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		called = true
		return nil
	}
	err := interceptor(context.Background(), "/m", nil, nil, nil, invoker)
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("expected Unauthenticated, got %v", err)
	}
	if called {
		t.Error("call made without a session")
	}
}

func TestUnaryClientInterceptor_WithoutAttachToken(t *testing.T) {
	config := &InterceptorConfig{}
	interceptor := UnaryClientInterceptor(newSessions(""), config)

	var md metadata.MD
	if err := interceptor(context.Background(), "/m", nil, nil, nil, recordingInvoker(&md, nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v := md.Get("authorization"); len(v) != 0 {
		t.Errorf("expected no token, got %v", v)
	}
	if v := md.Get("x-request-id"); len(v) != 1 {
		t.Errorf("expected request id, got %v", v)
	}
}

func TestUnaryClientInterceptor_UnauthenticatedClearsSession(t *testing.T) {
	sessions := newSessions("tok123")
	interceptor := UnaryClientInterceptor(sessions, nil)

	var md metadata.MD
	rejected := status.Error(codes.Unauthenticated, "token expired")
	err := interceptor(context.Background(), "/m", nil, nil, nil, recordingInvoker(&md, rejected))

	if !errors.Is(err, vaultx.ErrSessionExpired) {
		t.Errorf("expected ErrSessionExpired, got %v", err)
	}
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("expected status to survive wrapping, got %v", status.Code(err))
	}
	if session, _ := sessions.Load(); session != nil {
		t.Error("expected session to be cleared")
	}
}

func TestUnaryClientInterceptor_OtherErrorsKeepSession(t *testing.T) {
	sessions := newSessions("tok123")
	interceptor := UnaryClientInterceptor(sessions, nil)

	var md metadata.MD
	unavailable := status.Error(codes.Unavailable, "down")
	err := interceptor(context.Background(), "/m", nil, nil, nil, recordingInvoker(&md, unavailable))

	if status.Code(err) != codes.Unavailable || errors.Is(err, vaultx.ErrSessionExpired) {
		t.Errorf("expected Unavailable passthrough, got %v", err)
	}
	if session, _ := sessions.Load(); session == nil {
		t.Error("session cleared on a non-auth error")
	}
}

func TestStreamClientInterceptor(t *testing.T) {
	sessions := newSessions("tok123")
	interceptor := StreamClientInterceptor(sessions, nil)

	var md metadata.MD
	streamer := func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		md, _ = metadata.FromOutgoingContext(ctx)
		return nil, status.Error(codes.Unauthenticated, "no")
	}

	_, err := interceptor(context.Background(), &grpc.StreamDesc{}, nil, "/m", streamer)
	if v := md.Get("authorization"); len(v) != 1 || v[0] != "Bearer tok123" {
		t.Errorf("expected bearer token on stream, got %v", v)
	}
	if !errors.Is(err, vaultx.ErrSessionExpired) {
		t.Errorf("expected ErrSessionExpired, got %v", err)
	}
	if session, _ := sessions.Load(); session != nil {
		t.Error("expected session to be cleared")
	}
}
