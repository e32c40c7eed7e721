package vaultx

import (
	"context"
	"log/slog"
	"sync"
)

// Notice titles and fallback reasons shown when an operation fails
const (
	titleSignup  = "signup failed"
	titleLogin   = "login failed"
	titleVerify  = "verification failed"
	titleResend  = "failed to resend code"
	titleReset   = "password reset failed"
	titleOnboard = "profile or account creation failed"

	fallbackSignup  = "please check your information and try again"
	fallbackLogin   = "invalid email or password"
	fallbackVerify  = "check your code and try again"
	fallbackResend  = "please try again later"
	fallbackReset   = "please check your email and try again"
	fallbackOnboard = "please check your information and try again"
)

// BeginResult is the server's answer to begin-signup and begin-login
type BeginResult struct {
	UserID *int64
}

// VerifyResult is the server's answer to a successful OTP verification
type VerifyResult struct {
	Token string
	User  *UserProfile
}

// AuthAPI is the remote authentication API. Implementations return an error
// satisfying Rejection for non-2xx responses; any other error is treated as a
// transport failure.
type AuthAPI interface {
	BeginSignup(ctx context.Context, email, password string) (*BeginResult, error)
	BeginLogin(ctx context.Context, email, password string) (*BeginResult, error)
	VerifySignup(ctx context.Context, email, otp string) (*VerifyResult, error)
	VerifyLogin(ctx context.Context, userID int64, otp string) (*VerifyResult, error)
	ResendSignupOTP(ctx context.Context, email string) error
	ResendLoginOTP(ctx context.Context, email string) error
	BeginPasswordReset(ctx context.Context, email string) error
}

// State of the handshake
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateAwaitingOTP
	StateVerifying
	StateSucceeded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateAwaitingOTP:
		return "awaiting_otp"
	case StateVerifying:
		return "verifying"
	case StateSucceeded:
		return "succeeded"
	}
	return "unknown"
}

// Next is where the caller should route the user after a successful verification
type Next int

const (
	NextNone Next = iota

	// NextCompleteProfile follows signup verification; the account has a token
	// but no profile yet.
	NextCompleteProfile

	// NextDashboard follows login verification and profile completion.
	NextDashboard
)

func (n Next) String() string {
	switch n {
	case NextCompleteProfile:
		return "complete_profile"
	case NextDashboard:
		return "dashboard"
	}
	return "none"
}

// Controller drives signup/login → OTP verification → session.
// It is safe for concurrent use; at most one submit or verify request and one
// resend request are in flight at a time.
type Controller struct {
	api      AuthAPI
	sessions SessionStore
	logger   *slog.Logger

	mu        sync.Mutex
	state     State
	busy      bool
	resending bool
	pending   *PendingVerification
	entry     OTPEntry
	session   *Session
	next      Next
	failure   *HandshakeError

	// gen is bumped by Reset; results of requests started under an older
	// generation are dropped
	gen uint64
}

// ControllerOption configures a Controller
type ControllerOption func(*Controller)

// WithLogger sets the logger used for state transitions and failures
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewController creates a controller in the Idle state
func NewController(api AuthAPI, sessions SessionStore, opts ...ControllerOption) *Controller {
	c := &Controller{
		api:      api,
		sessions: sessions,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current handshake state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy returns true while a submit or verify request is in flight
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Resending returns true while a resend request is in flight
func (c *Controller) Resending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resending
}

// Pending returns a copy of the pending verification, or nil
func (c *Controller) Pending() *PendingVerification {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return nil
	}
	p := *c.pending
	if p.UserID != nil {
		id := *p.UserID
		p.UserID = &id
	}
	return &p
}

// Entry returns the current OTP entry state
func (c *Controller) Entry() OTPEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entry
}

// Session returns the session established by the last successful verification
func (c *Controller) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Next returns where to route after success
func (c *Controller) Next() Next {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}

// Failure returns the last reported failure, or nil
func (c *Controller) Failure() *HandshakeError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failure
}

// BeginSignup submits new credentials. On success the controller awaits the
// OTP mailed to email.
func (c *Controller) BeginSignup(ctx context.Context, email, password, confirmPassword string) error {
	gen, err := c.acquire(StateSubmitting)
	if err != nil {
		return err
	}
	defer c.release()

	email = normalizeEmail(email)
	if herr := validateSignup(email, password, confirmPassword); herr != nil {
		return c.fail(gen, StateIdle, herr)
	}

	res, err := c.api.BeginSignup(ctx, email, password)
	if err != nil {
		return c.fail(gen, StateIdle, classify(err, titleSignup, fallbackSignup))
	}

	pending := &PendingVerification{Email: email, Action: ActionSignup}
	if res != nil {
		pending.UserID = res.UserID
	}
	return c.await(gen, pending)
}

// BeginLogin submits credentials for an existing account. The server answers
// with the user id the OTP must be verified against.
func (c *Controller) BeginLogin(ctx context.Context, email, password string) error {
	gen, err := c.acquire(StateSubmitting)
	if err != nil {
		return err
	}
	defer c.release()

	email = normalizeEmail(email)
	if herr := validateLogin(email, password); herr != nil {
		return c.fail(gen, StateIdle, herr)
	}

	res, err := c.api.BeginLogin(ctx, email, password)
	if err != nil {
		return c.fail(gen, StateIdle, classify(err, titleLogin, fallbackLogin))
	}

	pending := &PendingVerification{Email: email, Action: ActionLogin}
	if res != nil {
		pending.UserID = res.UserID
	}
	return c.await(gen, pending)
}

// Resume enters AwaitingOTP for a verification started elsewhere, such as a
// previous process that persisted the PendingVerification it was handed.
func (c *Controller) Resume(pending PendingVerification) error {
	pending.Email = normalizeEmail(pending.Email)
	if pending.Email == "" {
		return NewValidationError(titleVerify, "email required", "email")
	}
	if !pending.Action.Valid() {
		return NewValidationError(titleVerify, "unknown verification action", "action")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrInFlight
	}
	c.awaitLocked(&pending)
	return nil
}

// EnterDigit edits one OTP position; non-digit input is ignored
func (c *Controller) EnterDigit(index int, value string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entry.EnterDigit(index, value)
}

// Backspace handles a backspace key at position index
func (c *Controller) Backspace(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry.Backspace(index)
}

// Paste fills all six positions from text if it is exactly six digits
func (c *Controller) Paste(text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entry.Paste(text)
}

// SubmitOTP verifies the entered code against the pending verification.
// On failure the entered digits are kept so the user can correct them.
func (c *Controller) SubmitOTP(ctx context.Context) error {
	c.mu.Lock()
	if c.pending == nil {
		c.mu.Unlock()
		return NewValidationError(titleVerify, "no verification in progress", "email")
	}
	gen, err := c.acquireLocked(StateVerifying)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	pending := *c.pending
	code := c.entry.Code
	c.mu.Unlock()
	defer c.release()

	if !code.Complete() {
		return c.fail(gen, StateAwaitingOTP, NewValidationError(titleVerify, "enter a valid 6-digit code", "otp"))
	}

	var (
		res  *VerifyResult
		next Next
	)
	switch pending.Action {
	case ActionSignup:
		res, err = c.api.VerifySignup(ctx, pending.Email, code.String())
		next = NextCompleteProfile
	case ActionLogin:
		if pending.UserID == nil {
			return c.fail(gen, StateAwaitingOTP, NewValidationError(titleVerify, "user id not found", "userId"))
		}
		res, err = c.api.VerifyLogin(ctx, *pending.UserID, code.String())
		next = NextDashboard
	default:
		return c.fail(gen, StateAwaitingOTP, NewValidationError(titleVerify, "unknown verification action", "action"))
	}
	if err != nil {
		return c.fail(gen, StateAwaitingOTP, classify(err, titleVerify, fallbackVerify))
	}
	if res == nil || res.Token == "" {
		return c.fail(gen, StateAwaitingOTP, &HandshakeError{
			Kind:    KindServerRejection,
			Title:   titleVerify,
			Message: fallbackVerify,
			Err:     errMissingToken,
		})
	}

	session := &Session{Token: res.Token, ExpiresAt: TokenExpiry(res.Token)}
	if pending.Action == ActionLogin {
		session.User = res.User
	}
	// the store is written under c.mu so a concurrent Reset either runs first
	// and drops this result, or runs after and sees the session
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		c.logger.Debug("verification result dropped after reset", "action", pending.Action)
		return ErrAbandoned
	}
	if err := c.sessions.Save(session); err != nil {
		c.mu.Unlock()
		return c.fail(gen, StateAwaitingOTP, storageError(err, titleVerify))
	}
	c.state = StateSucceeded
	c.session = session
	c.next = next
	c.pending = nil
	c.failure = nil
	c.entry.Reset()
	c.mu.Unlock()

	c.logger.Debug("verification succeeded", "action", pending.Action, "next", next)
	return nil
}

// ResendOTP asks the server to send a new code for the pending verification.
// It is a no-op when nothing is pending. A failed resend is reported but does
// not leave AwaitingOTP.
func (c *Controller) ResendOTP(ctx context.Context) error {
	c.mu.Lock()
	if c.pending == nil || c.pending.Email == "" {
		c.mu.Unlock()
		return nil
	}
	if c.resending {
		c.mu.Unlock()
		return ErrInFlight
	}
	c.resending = true
	pending := *c.pending
	gen := c.gen
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.resending = false
		c.mu.Unlock()
	}()

	var err error
	switch pending.Action {
	case ActionSignup:
		err = c.api.ResendSignupOTP(ctx, pending.Email)
	case ActionLogin:
		err = c.api.ResendLoginOTP(ctx, pending.Email)
	default:
		return NewValidationError(titleResend, "unknown verification action", "action")
	}
	if err != nil {
		herr := classify(err, titleResend, fallbackResend)
		c.mu.Lock()
		if c.gen == gen {
			c.failure = herr
		}
		c.mu.Unlock()
		c.logger.Warn("resend failed", "action", pending.Action, "kind", herr.Kind, "error", err)
		return herr
	}

	c.logger.Debug("code resent", "action", pending.Action)
	return nil
}

// ForgotPassword starts a password reset for email. It does not touch the
// handshake state; the outcome is only returned.
func (c *Controller) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return NewValidationError(titleReset, "email required", "email")
	}
	if err := c.api.BeginPasswordReset(ctx, email); err != nil {
		herr := classify(err, titleReset, fallbackReset)
		c.logger.Warn("password reset failed", "kind", herr.Kind, "error", err)
		return herr
	}
	return nil
}

// Reset abandons any in-progress handshake and returns to Idle.
// The stored session is not touched. A request still in flight finishes, but
// its result is dropped and the operation returns ErrAbandoned.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.state = StateIdle
	c.pending = nil
	c.session = nil
	c.next = NextNone
	c.failure = nil
	c.entry.Reset()
}

// Logout removes the stored session and resets the controller
func (c *Controller) Logout() error {
	// reset first so a verification in flight cannot store a token afterwards
	c.Reset()
	return c.sessions.Clear()
}

// acquire marks the controller busy and moves it to the in-flight state.
// It returns the generation the request belongs to.
func (c *Controller) acquire(inflight State) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acquireLocked(inflight)
}

// acquireLocked is acquire for callers holding c.mu
func (c *Controller) acquireLocked(inflight State) (uint64, error) {
	if c.busy {
		return 0, ErrInFlight
	}
	c.busy = true
	c.state = inflight
	return c.gen, nil
}

func (c *Controller) release() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

// await enters AwaitingOTP for pending unless the controller was reset
// while the request was in flight
func (c *Controller) await(gen uint64, pending *PendingVerification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return ErrAbandoned
	}
	c.awaitLocked(pending)
	return nil
}

// awaitLocked enters AwaitingOTP; callers hold c.mu
func (c *Controller) awaitLocked(pending *PendingVerification) {
	c.state = StateAwaitingOTP
	c.pending = pending
	c.session = nil
	c.next = NextNone
	c.failure = nil
	c.entry.Reset()
	c.logger.Debug("awaiting otp", "action", pending.Action)
}

// fail records herr and returns to the given interactive state. Failures of
// requests from an older generation are returned but not recorded.
func (c *Controller) fail(gen uint64, to State, herr *HandshakeError) error {
	c.mu.Lock()
	if c.gen == gen {
		c.state = to
		c.failure = herr
		if to == StateIdle {
			c.pending = nil
		}
	}
	c.mu.Unlock()

	if herr.Kind == KindValidation {
		c.logger.Debug("rejected locally", "title", herr.Title, "field", herr.Field)
	} else {
		c.logger.Warn(herr.Title, "kind", herr.Kind, "status", herr.StatusCode, "error", herr.Err)
	}
	return herr
}
