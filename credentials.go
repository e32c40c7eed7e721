package vaultx

import (
	"net/mail"
	"strings"
)

// Action is the flow an OTP challenge belongs to
type Action string

const (
	ActionSignup Action = "signup"
	ActionLogin  Action = "login"
)

// Valid returns true for the known actions
func (a Action) Valid() bool {
	return a == ActionSignup || a == ActionLogin
}

// PendingVerification identifies the account and action an in-progress OTP
// challenge belongs to. UserID is set for logins.
type PendingVerification struct {
	Email  string `json:"email"`
	Action Action `json:"action"`
	UserID *int64 `json:"userId,omitempty"`
}

// ValidEmail reports whether email is a bare address (no display name or
// angle brackets) with a dotted domain. The dev server applies the same rule.
func ValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}

// validateEmail checks the email field of a form
func validateEmail(title, email string) *HandshakeError {
	if email == "" {
		return NewValidationError(title, "email required", "email")
	}
	if !ValidEmail(email) {
		return NewValidationError(title, "invalid email format", "email")
	}
	return nil
}

func validateSignup(email, password, confirm string) *HandshakeError {
	if err := validateEmail(titleSignup, email); err != nil {
		return err
	}
	if password == "" {
		return NewValidationError(titleSignup, "password required", "password")
	}
	if password != confirm {
		return NewValidationError(titleSignup, "passwords do not match", "confirmPassword")
	}
	return nil
}

func validateLogin(email, password string) *HandshakeError {
	if err := validateEmail(titleLogin, email); err != nil {
		return err
	}
	if password == "" {
		return NewValidationError(titleLogin, "password required", "password")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
