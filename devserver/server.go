// Package devserver is an in-memory implementation of the VaultX auth API.
// It backs the client integration tests and lets the CLI run without the
// hosted backend. Nothing is persisted.
package devserver

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Anish-ai/vaultx"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
)

// Defaults
const (
	DefaultOTPTTL            = 10 * time.Minute
	DefaultMaxOTPAttempts    = 5
	DefaultTokenTTL          = 24 * time.Hour
	DefaultResendWindow      = 10 * time.Minute
	DefaultMaxSendsPerWindow = 3
	DefaultIssuer            = "vaultx-devserver"
	MinPasswordLength        = 8
)

// Config configures a Server
type Config struct {
	// PathPrefix is prepended to every route, e.g. "/api"
	PathPrefix string

	JWTSecretKey string
	JWTIssuer    string
	TokenTTL     time.Duration

	OTPTTL         time.Duration
	MaxOTPAttempts int

	// At most MaxSendsPerWindow codes are sent per email and action within ResendWindow
	ResendWindow      time.Duration
	MaxSendsPerWindow int

	BcryptCost int

	Sender OTPSender
	Logger *slog.Logger

	// Now returns the current time; overridable for tests
	Now func() time.Time
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.JWTIssuer == "" {
		c.JWTIssuer = DefaultIssuer
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = DefaultTokenTTL
	}
	if c.OTPTTL <= 0 {
		c.OTPTTL = DefaultOTPTTL
	}
	if c.MaxOTPAttempts <= 0 {
		c.MaxOTPAttempts = DefaultMaxOTPAttempts
	}
	if c.ResendWindow <= 0 {
		c.ResendWindow = DefaultResendWindow
	}
	if c.MaxSendsPerWindow <= 0 {
		c.MaxSendsPerWindow = DefaultMaxSendsPerWindow
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = bcrypt.DefaultCost
	}
	if c.Sender == nil {
		c.Sender = &ConsoleOTPSender{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

type user struct {
	profile      vaultx.UserProfile
	passwordHash []byte
	verified     bool
	createdAt    time.Time
}

type account struct {
	vaultx.Account
	userID int64
}

// Server implements the VaultX auth routes in memory
type Server struct {
	config Config
	router *mux.Router

	mu          sync.Mutex
	nextUserID  int64
	users       map[int64]*user
	usersByMail map[string]int64
	challenges  map[challengeKey]*challenge
	resets      map[string]resetToken
	accounts    []*account
}

// New creates a Server. JWTSecretKey must be set.
func New(config Config) *Server {
	config.EnsureDefaults()
	s := &Server{
		config:      config,
		nextUserID:  1,
		users:       make(map[int64]*user),
		usersByMail: make(map[string]int64),
		challenges:  make(map[challengeKey]*challenge),
		resets:      make(map[string]resetToken),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	root := mux.NewRouter()
	r := root
	if s.config.PathPrefix != "" {
		r = root.PathPrefix(s.config.PathPrefix).Subrouter()
	}

	r.HandleFunc("/auth/signup", s.handleSignup).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/verify-signup", s.handleVerifySignup).Methods(http.MethodPost)
	r.HandleFunc("/auth/verify-login", s.handleVerifyLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/resend-signup-otp", s.handleResend(vaultx.ActionSignup)).Methods(http.MethodPost)
	r.HandleFunc("/auth/resend-login-otp", s.handleResend(vaultx.ActionLogin)).Methods(http.MethodPost)
	r.HandleFunc("/auth/forgot-password", s.handleForgotPassword).Methods(http.MethodPost)
	r.HandleFunc("/auth/reset-password", s.handleResetPassword).Methods(http.MethodPost)

	r.Handle("/auth/verify-token", s.requireToken(http.HandlerFunc(s.handleVerifyToken))).Methods(http.MethodGet)
	r.Handle("/users/me", s.requireToken(http.HandlerFunc(s.handleCurrentUser))).Methods(http.MethodGet)
	r.Handle("/auth/profile", s.requireToken(http.HandlerFunc(s.handleProfile))).Methods(http.MethodPost)
	r.Handle("/accounts", s.requireToken(http.HandlerFunc(s.handleCreateAccount))).Methods(http.MethodPost)
	r.Handle("/accounts", s.requireToken(http.HandlerFunc(s.handleListAccounts))).Methods(http.MethodGet)

	root.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	root.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return root
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router returns the underlying router so callers can mount extra routes
func (s *Server) Router() *mux.Router {
	return s.router
}
