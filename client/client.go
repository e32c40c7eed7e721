package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Anish-ai/vaultx"
)

// DefaultBaseURL is the hosted VaultX API
const DefaultBaseURL = "https://vaultx-backend-763387089865.us-central1.run.app/api"

// Endpoints are the API paths relative to the base URL
type Endpoints struct {
	Signup          string
	Login           string
	VerifySignup    string
	VerifyLogin     string
	ResendSignupOTP string
	ResendLoginOTP  string
	ForgotPassword  string
	VerifyToken     string
	CurrentUser     string
	Profile         string
	Accounts        string
}

// DefaultEndpoints returns the paths served by the VaultX backend
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Signup:          "/auth/signup",
		Login:           "/auth/login",
		VerifySignup:    "/auth/verify-signup",
		VerifyLogin:     "/auth/verify-login",
		ResendSignupOTP: "/auth/resend-signup-otp",
		ResendLoginOTP:  "/auth/resend-login-otp",
		ForgotPassword:  "/auth/forgot-password",
		VerifyToken:     "/auth/verify-token",
		CurrentUser:     "/users/me",
		Profile:         "/auth/profile",
		Accounts:        "/accounts",
	}
}

// Client talks to the VaultX API. Unauthenticated calls (the handshake itself)
// go out without an Authorization header; calls made after verification carry
// the token held in the session store.
type Client struct {
	baseURL       string
	endpoints     Endpoints
	sessions      vaultx.SessionStore
	logger        *slog.Logger
	baseTransport http.RoundTripper

	httpClient *http.Client
	authClient *http.Client
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom base HTTP client (for timeouts, TLS config, etc.)
// The transport from this client will be wrapped with session handling.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client == nil {
			return
		}
		if client.Transport != nil {
			c.baseTransport = client.Transport
		}
		c.httpClient.Timeout = client.Timeout
		c.httpClient.CheckRedirect = client.CheckRedirect
		c.httpClient.Jar = client.Jar
	}
}

// WithTransport sets a custom base transport (for connection pooling, proxies, etc.)
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.baseTransport = transport
	}
}

// WithEndpoints overrides the API paths
func WithEndpoints(endpoints Endpoints) ClientOption {
	return func(c *Client) {
		c.endpoints = endpoints
	}
}

// WithLogger sets the logger for request failures
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for the API at baseURL. sessions supplies the
// bearer token for authenticated calls and is cleared when the server rejects it.
func NewClient(baseURL string, sessions vaultx.SessionStore, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		endpoints:     DefaultEndpoints(),
		sessions:      sessions,
		logger:        slog.Default(),
		baseTransport: http.DefaultTransport,
		httpClient:    &http.Client{},
	}

	for _, opt := range opts {
		opt(c)
	}

	base := &requestIDTransport{base: c.baseTransport}
	c.httpClient.Transport = base

	st := NewSessionTransport(sessions, base)
	st.Logger = c.logger
	c.authClient = &http.Client{
		Transport:     st,
		Timeout:       c.httpClient.Timeout,
		CheckRedirect: c.httpClient.CheckRedirect,
		Jar:           c.httpClient.Jar,
	}
	return c
}

// BaseURL returns the API base URL this client is configured for
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HTTPClient returns an HTTP client that authenticates with the stored session
func (c *Client) HTTPClient() *http.Client {
	return c.authClient
}

// BeginSignup implements vaultx.AuthAPI
func (c *Client) BeginSignup(ctx context.Context, email, password string) (*vaultx.BeginResult, error) {
	var resp BeginResponse
	err := c.do(ctx, c.httpClient, http.MethodPost, c.endpoints.Signup,
		CredentialsRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	return &vaultx.BeginResult{UserID: resp.UserID.Int64()}, nil
}

// BeginLogin implements vaultx.AuthAPI
func (c *Client) BeginLogin(ctx context.Context, email, password string) (*vaultx.BeginResult, error) {
	var resp BeginResponse
	err := c.do(ctx, c.httpClient, http.MethodPost, c.endpoints.Login,
		CredentialsRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	return &vaultx.BeginResult{UserID: resp.UserID.Int64()}, nil
}

// VerifySignup implements vaultx.AuthAPI
func (c *Client) VerifySignup(ctx context.Context, email, otp string) (*vaultx.VerifyResult, error) {
	var resp VerifyResponse
	err := c.do(ctx, c.httpClient, http.MethodPost, c.endpoints.VerifySignup,
		VerifySignupRequest{Email: email, OTP: otp}, &resp)
	if err != nil {
		return nil, err
	}
	return &vaultx.VerifyResult{Token: resp.Token, User: resp.User}, nil
}

// VerifyLogin implements vaultx.AuthAPI
func (c *Client) VerifyLogin(ctx context.Context, userID int64, otp string) (*vaultx.VerifyResult, error) {
	var resp VerifyResponse
	err := c.do(ctx, c.httpClient, http.MethodPost, c.endpoints.VerifyLogin,
		VerifyLoginRequest{UserID: userID, OTP: otp}, &resp)
	if err != nil {
		return nil, err
	}
	return &vaultx.VerifyResult{Token: resp.Token, User: resp.User}, nil
}

// ResendSignupOTP implements vaultx.AuthAPI
func (c *Client) ResendSignupOTP(ctx context.Context, email string) error {
	return c.do(ctx, c.httpClient, http.MethodPost, c.endpoints.ResendSignupOTP, EmailRequest{Email: email}, nil)
}

// ResendLoginOTP implements vaultx.AuthAPI
func (c *Client) ResendLoginOTP(ctx context.Context, email string) error {
	return c.do(ctx, c.httpClient, http.MethodPost, c.endpoints.ResendLoginOTP, EmailRequest{Email: email}, nil)
}

// BeginPasswordReset implements vaultx.AuthAPI
func (c *Client) BeginPasswordReset(ctx context.Context, email string) error {
	return c.do(ctx, c.httpClient, http.MethodPost, c.endpoints.ForgotPassword, EmailRequest{Email: email}, nil)
}

// UpdateProfile implements vaultx.ProfileAPI
func (c *Client) UpdateProfile(ctx context.Context, update vaultx.ProfileUpdate) (*vaultx.UserProfile, error) {
	var user vaultx.UserProfile
	if err := c.do(ctx, c.authClient, http.MethodPost, c.endpoints.Profile, update, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateAccount implements vaultx.ProfileAPI
func (c *Client) CreateAccount(ctx context.Context, req vaultx.AccountRequest) (*vaultx.Account, error) {
	var account vaultx.Account
	if err := c.do(ctx, c.authClient, http.MethodPost, c.endpoints.Accounts, req, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// VerifyToken asks the server whether the stored token is still valid and
// returns the user id it belongs to
func (c *Client) VerifyToken(ctx context.Context) (int64, error) {
	var resp VerifyTokenResponse
	if err := c.do(ctx, c.authClient, http.MethodGet, c.endpoints.VerifyToken, nil, &resp); err != nil {
		return 0, err
	}
	id := resp.UserID.Int64()
	if id == nil {
		return 0, fmt.Errorf("invalid token or user id not found")
	}
	return *id, nil
}

// CurrentUser fetches the profile of the logged-in user
func (c *Client) CurrentUser(ctx context.Context) (*vaultx.UserProfile, error) {
	var user vaultx.UserProfile
	if err := c.do(ctx, c.authClient, http.MethodGet, c.endpoints.CurrentUser, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CheckSession validates the stored session with the server and refreshes the
// cached user profile. A rejected token removes the session and the returned
// error matches vaultx.ErrSessionExpired.
func (c *Client) CheckSession(ctx context.Context) (*vaultx.Session, error) {
	session, err := c.sessions.Load()
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, vaultx.ErrNoSession
	}

	if _, err := c.VerifyToken(ctx); err != nil {
		return nil, err
	}
	user, err := c.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	session.User = user
	if err := c.sessions.Save(session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}

// do sends a JSON request and decodes a JSON response into out.
// Non-2xx responses become *APIError.
func (c *Client) do(ctx context.Context, httpClient *http.Client, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newAPIError(resp.StatusCode, respBody)
		if httpClient == c.authClient && apiErr.IsUnauthorized() {
			apiErr.Err = vaultx.ErrSessionExpired
		}
		c.logger.Debug("request rejected", "method", method, "path", path, "status", resp.StatusCode)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("invalid response from server: %w", err)
	}
	return nil
}
