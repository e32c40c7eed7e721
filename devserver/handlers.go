package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Anish-ai/vaultx"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const resetTokenTTL = time.Hour

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifySignupRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type verifyLoginRequest struct {
	UserID int64  `json:"userId"`
	OTP    string `json:"otp"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type messageResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"userId,omitempty"`
}

type verifyResponse struct {
	Token string              `json:"token"`
	User  *vaultx.UserProfile `json:"user"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("email required")
	}
	if !vaultx.ValidEmail(email) {
		return errors.New("invalid email format")
	}
	return nil
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email := normalizeEmail(req.Email)
	if err := validateEmail(email); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Password) < MinPasswordLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BcryptCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to process password")
		return
	}

	now := s.config.Now()
	s.mu.Lock()
	id, exists := s.usersByMail[email]
	if exists && s.users[id].verified {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "email already registered")
		return
	}
	if exists {
		// unverified signups may be restarted with a new password
		s.users[id].passwordHash = hash
	} else {
		id = s.nextUserID
		s.nextUserID++
		s.users[id] = &user{
			profile:      vaultx.UserProfile{ID: id, Email: email, Role: "USER"},
			passwordHash: hash,
			createdAt:    now,
		}
		s.usersByMail[email] = id
	}
	code, err := s.issueOTP(challengeKey{email, vaultx.ActionSignup}, now)
	s.mu.Unlock()

	if !s.sendOTP(w, email, vaultx.ActionSignup, code, err) {
		return
	}
	s.config.Logger.Info("signup started", "userId", id)
	writeJSON(w, http.StatusCreated, messageResponse{Message: "verification code sent", UserID: id})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}

	s.mu.Lock()
	id, exists := s.usersByMail[email]
	var hash []byte
	if exists {
		hash = s.users[id].passwordHash
	}
	s.mu.Unlock()

	if !exists || bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	now := s.config.Now()
	s.mu.Lock()
	if !s.users[id].verified {
		s.mu.Unlock()
		writeError(w, http.StatusForbidden, "email not verified")
		return
	}
	code, err := s.issueOTP(challengeKey{email, vaultx.ActionLogin}, now)
	s.mu.Unlock()

	if !s.sendOTP(w, email, vaultx.ActionLogin, code, err) {
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "verification code sent", UserID: id})
}

func (s *Server) handleVerifySignup(w http.ResponseWriter, r *http.Request) {
	var req verifySignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email := normalizeEmail(req.Email)

	now := s.config.Now()
	s.mu.Lock()
	id, exists := s.usersByMail[email]
	if !exists {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err := s.checkOTP(challengeKey{email, vaultx.ActionSignup}, req.OTP, now); err != nil {
		s.mu.Unlock()
		writeOTPError(w, err)
		return
	}
	u := s.users[id]
	u.verified = true
	profile := u.profile
	s.mu.Unlock()

	s.issueSession(w, &profile)
}

func (s *Server) handleVerifyLogin(w http.ResponseWriter, r *http.Request) {
	var req verifyLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	now := s.config.Now()
	s.mu.Lock()
	u, exists := s.users[req.UserID]
	if !exists {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err := s.checkOTP(challengeKey{u.profile.Email, vaultx.ActionLogin}, req.OTP, now); err != nil {
		s.mu.Unlock()
		writeOTPError(w, err)
		return
	}
	profile := u.profile
	s.mu.Unlock()

	s.issueSession(w, &profile)
}

func (s *Server) handleResend(action vaultx.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req emailRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		email := normalizeEmail(req.Email)
		if email == "" {
			writeError(w, http.StatusBadRequest, "email required")
			return
		}

		now := s.config.Now()
		s.mu.Lock()
		id, exists := s.usersByMail[email]
		if !exists {
			s.mu.Unlock()
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		verified := s.users[id].verified
		switch {
		case action == vaultx.ActionSignup && verified:
			s.mu.Unlock()
			writeError(w, http.StatusBadRequest, "email already verified")
			return
		case action == vaultx.ActionLogin && !verified:
			s.mu.Unlock()
			writeError(w, http.StatusForbidden, "email not verified")
			return
		}
		code, err := s.issueOTP(challengeKey{email, action}, now)
		s.mu.Unlock()

		if !s.sendOTP(w, email, action, code, err) {
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "verification code sent"})
	}
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email := normalizeEmail(req.Email)
	if email == "" {
		writeError(w, http.StatusBadRequest, "email required")
		return
	}

	s.mu.Lock()
	_, exists := s.usersByMail[email]
	var token string
	if exists {
		token = uuid.NewString()
		s.resets[token] = resetToken{email: email, expiresAt: s.config.Now().Add(resetTokenTTL)}
	}
	s.mu.Unlock()

	// the response does not reveal whether the account exists
	if exists {
		if err := s.config.Sender.SendPasswordReset(email, token); err != nil {
			s.config.Logger.Warn("failed to send password reset", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "if the email is registered, a reset link has been sent"})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Password) < MinPasswordLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BcryptCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to process password")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	reset, ok := s.resets[req.Token]
	if !ok || s.config.Now().After(reset.expiresAt) {
		delete(s.resets, req.Token)
		writeError(w, http.StatusBadRequest, "invalid or expired reset token")
		return
	}
	delete(s.resets, req.Token)
	s.users[s.usersByMail[reset.email]].passwordHash = hash
	writeJSON(w, http.StatusOK, messageResponse{Message: "password updated"})
}

func (s *Server) handleVerifyToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "token valid", UserID: userIDFromContext(r.Context())})
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	profile := s.users[userIDFromContext(r.Context())].profile
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	var req vaultx.ProfileUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Address = strings.TrimSpace(req.Address)
	if req.Name == "" || req.Phone == "" || req.Address == "" {
		writeError(w, http.StatusBadRequest, "name, phone and address are required")
		return
	}

	s.mu.Lock()
	u := s.users[userIDFromContext(r.Context())]
	u.profile.Name = req.Name
	u.profile.Phone = req.Phone
	u.profile.Address = req.Address
	profile := u.profile
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, profile)
}

var accountTypes = map[string]bool{"SAVINGS": true, "CHECKING": true, "CURRENT": true}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req vaultx.AccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Type = strings.ToUpper(strings.TrimSpace(req.Type))
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if !accountTypes[req.Type] {
		writeError(w, http.StatusBadRequest, "invalid account type")
		return
	}
	if req.Balance < 0 {
		writeError(w, http.StatusBadRequest, "balance cannot be negative")
		return
	}
	if len(req.Currency) != 3 {
		writeError(w, http.StatusBadRequest, "invalid currency")
		return
	}

	userID := userIDFromContext(r.Context())
	s.mu.Lock()
	id := int64(len(s.accounts) + 1)
	acct := &account{
		Account: vaultx.Account{
			ID:            id,
			AccountNumber: fmt.Sprintf("VX%010d", id),
			Type:          req.Type,
			Balance:       req.Balance,
			Currency:      req.Currency,
		},
		userID: userID,
	}
	s.accounts = append(s.accounts, acct)
	s.mu.Unlock()

	s.config.Logger.Info("account opened", "userId", userID, "accountId", id)
	writeJSON(w, http.StatusCreated, acct.Account)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	s.mu.Lock()
	accounts := []vaultx.Account{}
	for _, a := range s.accounts {
		if a.userID == userID {
			accounts = append(accounts, a.Account)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, accounts)
}

// issueSession writes a verify response with a new session token
func (s *Server) issueSession(w http.ResponseWriter, profile *vaultx.UserProfile) {
	token, err := s.createSessionToken(profile.ID, profile.Email)
	if err != nil {
		s.config.Logger.Error("failed to create session token", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{Token: token, User: profile})
}

// sendOTP delivers a code from issueOTP, writing an error response if issuing
// or delivery failed
func (s *Server) sendOTP(w http.ResponseWriter, email string, action vaultx.Action, code string, issueErr error) bool {
	if errors.Is(issueErr, ErrResendThrottled) {
		writeError(w, http.StatusTooManyRequests, issueErr.Error())
		return false
	}
	if issueErr != nil {
		s.config.Logger.Error("failed to issue otp", "error", issueErr)
		writeError(w, http.StatusInternalServerError, "failed to generate code")
		return false
	}
	if err := s.config.Sender.SendOTP(email, action, code); err != nil {
		s.config.Logger.Error("failed to send otp", "action", action, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to send code")
		return false
	}
	return true
}

func writeOTPError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, ErrTooManyOTPAttempts) {
		status = http.StatusTooManyRequests
	}
	writeError(w, status, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
