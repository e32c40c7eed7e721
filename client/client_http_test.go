package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/Anish-ai/vaultx"
	"github.com/Anish-ai/vaultx/stores"
)

func newSessions(token string) vaultx.SessionStore {
	sessions := vaultx.NewSessionStore(stores.NewMemoryStore())
	if token != "" {
		sessions.Save(&vaultx.Session{Token: token})
	}
	return sessions
}

func TestClient_PublicEndpoints(t *testing.T) {
	tests := []struct {
		name     string
		call     func(c *Client) error
		wantPath string
		wantBody map[string]any
	}{
		{
			name: "begin signup",
			call: func(c *Client) error {
				_, err := c.BeginSignup(context.Background(), "a@b.com", "Secret1")
				return err
			},
			wantPath: "/api/auth/signup",
			wantBody: map[string]any{"email": "a@b.com", "password": "Secret1"},
		},
		{
			name: "begin login",
			call: func(c *Client) error {
				_, err := c.BeginLogin(context.Background(), "a@b.com", "Secret1")
				return err
			},
			wantPath: "/api/auth/login",
			wantBody: map[string]any{"email": "a@b.com", "password": "Secret1"},
		},
		{
			name: "verify signup",
			call: func(c *Client) error {
				_, err := c.VerifySignup(context.Background(), "a@b.com", "123456")
				return err
			},
			wantPath: "/api/auth/verify-signup",
			wantBody: map[string]any{"email": "a@b.com", "otp": "123456"},
		},
		{
			name: "verify login",
			call: func(c *Client) error {
				_, err := c.VerifyLogin(context.Background(), 42, "123456")
				return err
			},
			wantPath: "/api/auth/verify-login",
			wantBody: map[string]any{"userId": float64(42), "otp": "123456"},
		},
		{
			name:     "resend signup otp",
			call:     func(c *Client) error { return c.ResendSignupOTP(context.Background(), "a@b.com") },
			wantPath: "/api/auth/resend-signup-otp",
			wantBody: map[string]any{"email": "a@b.com"},
		},
		{
			name:     "resend login otp",
			call:     func(c *Client) error { return c.ResendLoginOTP(context.Background(), "a@b.com") },
			wantPath: "/api/auth/resend-login-otp",
			wantBody: map[string]any{"email": "a@b.com"},
		},
		{
			name:     "forgot password",
			call:     func(c *Client) error { return c.BeginPasswordReset(context.Background(), "a@b.com") },
			wantPath: "/api/auth/forgot-password",
			wantBody: map[string]any{"email": "a@b.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("method = %s, want POST", r.Method)
				}
				if r.URL.Path != tt.wantPath {
					t.Errorf("path = %s, want %s", r.URL.Path, tt.wantPath)
				}
				if auth := r.Header.Get("Authorization"); auth != "" {
					t.Errorf("public call sent Authorization %q", auth)
				}
				if r.Header.Get(RequestIDHeader) == "" {
					t.Error("missing request id")
				}
				if ct := r.Header.Get("Content-Type"); ct != "application/json" {
					t.Errorf("Content-Type = %q", ct)
				}

				var body map[string]any
				json.NewDecoder(r.Body).Decode(&body)
				for k, v := range tt.wantBody {
					if body[k] != v {
						t.Errorf("body[%s] = %v, want %v", k, body[k], v)
					}
				}
				if len(body) != len(tt.wantBody) {
					t.Errorf("body = %v, want %v", body, tt.wantBody)
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"message":"ok"}`))
			}))
			defer server.Close()

			// the session must not leak into handshake calls
			c := NewClient(server.URL+"/api", newSessions("stale-token"))
			if err := tt.call(c); err != nil {
				t.Fatalf("call error = %v", err)
			}
		})
	}
}

func TestClient_BeginLogin_UserIDForms(t *testing.T) {
	tests := []struct {
		name string
		body string
		want *int64
	}{
		{"number", `{"userId": 42}`, int64Ptr(42)},
		{"string", `{"userId": "42"}`, int64Ptr(42)},
		{"null", `{"userId": null}`, nil},
		{"absent", `{"message": "code sent"}`, nil},
		{"empty body", ``, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			res, err := NewClient(server.URL, newSessions("")).BeginLogin(context.Background(), "a@b.com", "x")
			if err != nil {
				t.Fatalf("BeginLogin() error = %v", err)
			}
			switch {
			case tt.want == nil && res.UserID != nil:
				t.Errorf("UserID = %d, want nil", *res.UserID)
			case tt.want != nil && (res.UserID == nil || *res.UserID != *tt.want):
				t.Errorf("UserID = %v, want %d", res.UserID, *tt.want)
			}
		})
	}
}

func TestClient_BeginLogin_BadUserID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"userId": "abc"}`)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, newSessions("")).BeginLogin(context.Background(), "a@b.com", "x")
	if err == nil {
		t.Fatal("expected decode error")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Error("decode failure reported as an API rejection")
	}
}

func TestClient_VerifyLogin_DecodesSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"token":"jwt-123","user":{"id":42,"email":"a@b.com","name":"Ada"}}`)
	}))
	defer server.Close()

	res, err := NewClient(server.URL, newSessions("")).VerifyLogin(context.Background(), 42, "123456")
	if err != nil {
		t.Fatal(err)
	}
	if res.Token != "jwt-123" {
		t.Errorf("Token = %q", res.Token)
	}
	if res.User == nil || res.User.ID != 42 || res.User.Name != "Ada" {
		t.Errorf("User = %+v", res.User)
	}
}

func TestClient_ErrorResponses(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{"message field", http.StatusUnauthorized, `{"message":"code expired"}`, "code expired"},
		{"error field", http.StatusBadRequest, `{"error":"invalid otp"}`, "invalid otp"},
		{"message wins", http.StatusBadRequest, `{"message":"a","error":"b"}`, "a"},
		{"html body", http.StatusBadGateway, `<html>bad gateway</html>`, ""},
		{"empty body", http.StatusInternalServerError, ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			_, err := NewClient(server.URL, newSessions("")).VerifySignup(context.Background(), "a@b.com", "123456")
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %v", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.ServerMessage() != tt.wantMessage {
				t.Errorf("ServerMessage() = %q, want %q", apiErr.ServerMessage(), tt.wantMessage)
			}
			var rej vaultx.Rejection
			if !errors.As(err, &rej) {
				t.Error("APIError does not satisfy vaultx.Rejection")
			}
			// public calls never report an expired session
			if errors.Is(err, vaultx.ErrSessionExpired) {
				t.Error("public 401 reported as session expiry")
			}
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	err := NewClient(url, newSessions("")).ResendSignupOTP(context.Background(), "a@b.com")
	if err == nil {
		t.Fatal("expected error")
	}
	var rej vaultx.Rejection
	if errors.As(err, &rej) {
		t.Error("connection failure reported as a rejection")
	}
}

func TestClient_AuthenticatedCalls(t *testing.T) {
	var gotAuth []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/auth/profile":
			var req vaultx.ProfileUpdate
			json.NewDecoder(r.Body).Decode(&req)
			json.NewEncoder(w).Encode(vaultx.UserProfile{ID: 1, Name: req.Name, Phone: req.Phone, Address: req.Address})
		case "/accounts":
			var req vaultx.AccountRequest
			json.NewDecoder(r.Body).Decode(&req)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(vaultx.Account{ID: 9, AccountNumber: "VX1", Type: req.Type, Balance: req.Balance, Currency: req.Currency})
		case "/auth/verify-token":
			io.WriteString(w, `{"userId": 1}`)
		case "/users/me":
			io.WriteString(w, `{"id":1,"email":"a@b.com","name":"Ada"}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, newSessions("tok-1"))
	ctx := context.Background()

	user, err := c.UpdateProfile(ctx, vaultx.ProfileUpdate{Name: "Ada", Phone: "1", Address: "x"})
	if err != nil || user.Name != "Ada" {
		t.Fatalf("UpdateProfile() = %+v, %v", user, err)
	}
	account, err := c.CreateAccount(ctx, vaultx.AccountRequest{Type: "SAVINGS", Balance: 10.5, Currency: "USD"})
	if err != nil || account.AccountNumber != "VX1" || account.Balance != 10.5 {
		t.Fatalf("CreateAccount() = %+v, %v", account, err)
	}
	id, err := c.VerifyToken(ctx)
	if err != nil || id != 1 {
		t.Fatalf("VerifyToken() = %d, %v", id, err)
	}

	for i, auth := range gotAuth {
		if auth != "Bearer tok-1" {
			t.Errorf("request %d Authorization = %q", i, auth)
		}
	}
}

func TestClient_CheckSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/verify-token":
			io.WriteString(w, `{"userId": 1}`)
		case "/users/me":
			io.WriteString(w, `{"id":1,"email":"a@b.com","name":"Ada"}`)
		}
	}))
	defer server.Close()

	sessions := newSessions("tok-1")
	session, err := NewClient(server.URL, sessions).CheckSession(context.Background())
	if err != nil {
		t.Fatalf("CheckSession() error = %v", err)
	}
	if session.User == nil || session.User.Name != "Ada" {
		t.Errorf("User = %+v", session.User)
	}

	stored, _ := sessions.Load()
	if stored.User == nil || stored.User.Email != "a@b.com" {
		t.Errorf("stored user = %+v", stored.User)
	}
}

func TestClient_CheckSession_NoSession(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, newSessions("")).CheckSession(context.Background())
	if !errors.Is(err, vaultx.ErrNoSession) {
		t.Errorf("CheckSession() = %v, want ErrNoSession", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Error("request sent without a session")
	}
}

func TestClient_UnauthorizedClearsSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"message":"invalid or expired token"}`)
	}))
	defer server.Close()

	sessions := newSessions("tok-1")
	c := NewClient(server.URL, sessions)

	_, err := c.CheckSession(context.Background())
	if !errors.Is(err, vaultx.ErrSessionExpired) {
		t.Fatalf("CheckSession() = %v, want ErrSessionExpired", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "invalid or expired token" {
		t.Errorf("APIError = %+v", apiErr)
	}

	session, _ := sessions.Load()
	if session != nil {
		t.Errorf("session not cleared: %+v", session)
	}
}

func TestClient_AuthenticatedCallWithoutSession(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, newSessions("")).UpdateProfile(context.Background(), vaultx.ProfileUpdate{})
	if !errors.Is(err, vaultx.ErrNoSession) {
		t.Errorf("UpdateProfile() = %v, want ErrNoSession", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Error("request sent without a token")
	}
}

func TestClient_WithEndpoints(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v2/") {
			t.Errorf("path = %s", r.URL.Path)
		}
	}))
	defer server.Close()

	endpoints := DefaultEndpoints()
	endpoints.ForgotPassword = "/v2/password/forgot"
	c := NewClient(server.URL+"/", newSessions(""), WithEndpoints(endpoints))
	if err := c.BeginPasswordReset(context.Background(), "a@b.com"); err != nil {
		t.Fatal(err)
	}
	if c.BaseURL() != server.URL {
		t.Errorf("BaseURL() = %q, want trailing slash trimmed", c.BaseURL())
	}
}
