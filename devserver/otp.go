package devserver

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/Anish-ai/vaultx"
)

var (
	ErrInvalidOTPFormat   = errors.New("otp code must be 6 digits")
	ErrInvalidOTP         = errors.New("invalid code")
	ErrOTPExpired         = errors.New("code expired")
	ErrNoChallenge        = errors.New("no code was requested, please request a new one")
	ErrTooManyOTPAttempts = errors.New("too many invalid attempts, please request a new code")
	ErrResendThrottled    = errors.New("too many codes requested, please wait before trying again")
)

// challenge is an outstanding OTP for one email and action
type challenge struct {
	CodeHash  string
	ExpiresAt time.Time
	Attempts  int
	Sends     []time.Time
}

type challengeKey struct {
	email  string
	action vaultx.Action
}

func validateCode(code string) error {
	if len(code) != vaultx.OTPLength {
		return ErrInvalidOTPFormat
	}
	for _, ch := range code {
		if ch < '0' || ch > '9' {
			return ErrInvalidOTPFormat
		}
	}
	return nil
}

func hashOTP(email string, action vaultx.Action, code string) string {
	sum := sha256.Sum256([]byte(email + ":" + string(action) + ":" + code))
	return hex.EncodeToString(sum[:])
}

func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// issueOTP creates or replaces the challenge for key and returns the new code.
// Caller must hold s.mu.
func (s *Server) issueOTP(key challengeKey, now time.Time) (string, error) {
	prev := s.challenges[key]

	var sends []time.Time
	if prev != nil {
		cutoff := now.Add(-s.config.ResendWindow)
		for _, t := range prev.Sends {
			if t.After(cutoff) {
				sends = append(sends, t)
			}
		}
		if len(sends) >= s.config.MaxSendsPerWindow {
			return "", ErrResendThrottled
		}
	}

	code, err := generateOTPCode()
	if err != nil {
		return "", err
	}
	s.challenges[key] = &challenge{
		CodeHash:  hashOTP(key.email, key.action, code),
		ExpiresAt: now.Add(s.config.OTPTTL),
		Sends:     append(sends, now),
	}
	return code, nil
}

// checkOTP consumes the challenge for key if code matches. Caller must hold s.mu.
func (s *Server) checkOTP(key challengeKey, code string, now time.Time) error {
	if err := validateCode(code); err != nil {
		return err
	}

	ch, ok := s.challenges[key]
	if !ok || ch.CodeHash == "" {
		return ErrNoChallenge
	}

	if now.After(ch.ExpiresAt) {
		ch.CodeHash = ""
		return ErrOTPExpired
	}

	if hashOTP(key.email, key.action, code) != ch.CodeHash {
		ch.Attempts++
		if ch.Attempts >= s.config.MaxOTPAttempts {
			ch.CodeHash = ""
			return ErrTooManyOTPAttempts
		}
		return ErrInvalidOTP
	}

	delete(s.challenges, key)
	return nil
}
