// Package client implements the VaultX REST API for the handshake controller.
// It includes the wire types, bearer-token transport backed by a
// vaultx.SessionStore, and the authenticated calls used after login.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Anish-ai/vaultx"
)

// CredentialsRequest is the body of begin-signup and begin-login
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// BeginResponse is returned by begin-signup and begin-login
type BeginResponse struct {
	UserID  *UserID `json:"userId,omitempty"`
	Message string  `json:"message,omitempty"`
}

// VerifySignupRequest is the body of verify-signup
type VerifySignupRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// VerifyLoginRequest is the body of verify-login
type VerifyLoginRequest struct {
	UserID int64  `json:"userId"`
	OTP    string `json:"otp"`
}

// VerifyResponse is returned by both verify calls
type VerifyResponse struct {
	Token   string              `json:"token"`
	User    *vaultx.UserProfile `json:"user,omitempty"`
	Message string              `json:"message,omitempty"`
}

// EmailRequest is the body of the resend and forgot-password calls
type EmailRequest struct {
	Email string `json:"email"`
}

// VerifyTokenResponse is returned by verify-token
type VerifyTokenResponse struct {
	UserID *UserID `json:"userId,omitempty"`
}

// ErrorResponse is the body of a non-2xx response
type ErrorResponse struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// UserID accepts the user id as a JSON number or a numeric string
type UserID int64

func (id *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", data, err)
	}
	*id = UserID(n)
	return nil
}

// Int64 returns a pointer to the id value, or nil for a nil id
func (id *UserID) Int64() *int64 {
	if id == nil {
		return nil
	}
	v := int64(*id)
	return &v
}
