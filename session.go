package vaultx

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Keys written to the KeyValueStore. Nothing else is persisted.
const (
	TokenKey = "token"
	UserKey  = "user"
)

// UserProfile is the cached snapshot of the logged-in user
type UserProfile struct {
	ID      int64  `json:"id,omitempty"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	Role    string `json:"role,omitempty"`
}

// Session is the credential established by a successful handshake
type Session struct {
	Token string
	User  *UserProfile

	// ExpiresAt is read from the token's exp claim when the token is a JWT.
	// Zero for opaque tokens; the server's 401 is the authoritative signal.
	ExpiresAt time.Time
}

// IsExpired returns true if the token carries an expiry that has passed
func (s *Session) IsExpired() bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(s.ExpiresAt)
}

// SessionStore is the capability the controller uses to persist the session
type SessionStore interface {
	// Load returns the stored session, or nil, nil if there is none
	Load() (*Session, error)

	// Save writes the token, and the user profile if present. A nil User
	// removes any previously cached profile.
	Save(session *Session) error

	// Clear removes the token and the user profile
	Clear() error
}

// KeyValueStore is the ambient string store a session lives in
// (the equivalent of a browser's local storage).
type KeyValueStore interface {
	// Get returns the value for key and whether it was present
	Get(key string) (value string, ok bool, err error)

	Set(key, value string) error

	// Delete removes key; deleting a missing key is not an error
	Delete(key string) error
}

// KVSessionStore implements SessionStore on top of a KeyValueStore
type KVSessionStore struct {
	kv KeyValueStore
}

// NewSessionStore creates a SessionStore backed by kv
func NewSessionStore(kv KeyValueStore) *KVSessionStore {
	return &KVSessionStore{kv: kv}
}

func (s *KVSessionStore) Load() (*Session, error) {
	token, ok, err := s.kv.Get(TokenKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}
	if !ok || token == "" {
		return nil, nil
	}

	session := &Session{Token: token, ExpiresAt: TokenExpiry(token)}

	raw, ok, err := s.kv.Get(UserKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read user: %w", err)
	}
	if ok && raw != "" {
		var user UserProfile
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			return nil, fmt.Errorf("failed to parse stored user: %w", err)
		}
		session.User = &user
	}
	return session, nil
}

func (s *KVSessionStore) Save(session *Session) error {
	if session == nil || session.Token == "" {
		return errMissingToken
	}
	if err := s.kv.Set(TokenKey, session.Token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	if session.User == nil {
		if err := s.kv.Delete(UserKey); err != nil {
			return fmt.Errorf("failed to remove user: %w", err)
		}
		return nil
	}
	data, err := json.Marshal(session.User)
	if err != nil {
		return fmt.Errorf("failed to serialize user: %w", err)
	}
	if err := s.kv.Set(UserKey, string(data)); err != nil {
		return fmt.Errorf("failed to store user: %w", err)
	}
	return nil
}

func (s *KVSessionStore) Clear() error {
	if err := s.kv.Delete(TokenKey); err != nil {
		return err
	}
	return s.kv.Delete(UserKey)
}

// TokenExpiry returns the exp claim of a JWT without verifying its signature.
// The zero time is returned for opaque tokens or tokens without exp.
func TokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
