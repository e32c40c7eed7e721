package vaultx

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a HandshakeError
type ErrorKind int

const (
	// KindValidation is a local precondition failure; no request was sent.
	KindValidation ErrorKind = iota + 1

	// KindServerRejection is a non-2xx response from the API.
	KindServerRejection

	// KindTransport is a failure with no structured response (network, decoding).
	KindTransport

	// KindStorage means the server accepted the request but the session could not be persisted.
	KindStorage
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindServerRejection:
		return "server_rejection"
	case KindTransport:
		return "transport"
	case KindStorage:
		return "storage"
	}
	return "unknown"
}

var (
	// ErrInFlight is returned when an operation is attempted while the same kind
	// of request is still outstanding. No request is sent.
	ErrInFlight = errors.New("vaultx: request already in flight")

	// ErrAbandoned is returned by an operation whose result arrived after Reset
	// or Logout. The result is discarded and nothing is stored.
	ErrAbandoned = errors.New("vaultx: handshake was reset")

	// ErrNoSession is returned by authenticated calls when no token is stored.
	ErrNoSession = errors.New("vaultx: no session")

	// ErrSessionExpired signals that the server rejected the stored token (HTTP 401).
	ErrSessionExpired = errors.New("vaultx: session expired")

	errMissingToken = errors.New("response did not include a token")
)

// Rejection is implemented by errors that carry a non-2xx API response.
// The client package's APIError satisfies it.
type Rejection interface {
	error
	HTTPStatus() int
	ServerMessage() string
}

// HandshakeError is the reported failure of a handshake operation.
// Title names what failed ("login failed"); Message is the reason shown to the user.
type HandshakeError struct {
	Kind       ErrorKind
	Title      string
	Message    string
	Field      string // offending input field for validation errors
	StatusCode int    // HTTP status for server rejections
	Err        error
}

func (e *HandshakeError) Error() string {
	if e.Message == "" {
		return e.Title
	}
	return fmt.Sprintf("%s: %s", e.Title, e.Message)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a local validation failure
func IsValidation(err error) bool {
	var herr *HandshakeError
	return errors.As(err, &herr) && herr.Kind == KindValidation
}

// NewValidationError creates a KindValidation error for the given field
func NewValidationError(title, message, field string) *HandshakeError {
	return &HandshakeError{
		Kind:    KindValidation,
		Title:   title,
		Message: message,
		Field:   field,
	}
}

// classify turns an API error into a HandshakeError. The server message is kept
// verbatim when present, otherwise fallback is used.
func classify(err error, title, fallback string) *HandshakeError {
	var rej Rejection
	if errors.As(err, &rej) {
		msg := rej.ServerMessage()
		if msg == "" {
			msg = fallback
		}
		return &HandshakeError{
			Kind:       KindServerRejection,
			Title:      title,
			Message:    msg,
			StatusCode: rej.HTTPStatus(),
			Err:        err,
		}
	}
	return &HandshakeError{
		Kind:    KindTransport,
		Title:   title,
		Message: fallback,
		Err:     err,
	}
}

func storageError(err error, title string) *HandshakeError {
	return &HandshakeError{
		Kind:    KindStorage,
		Title:   title,
		Message: "failed to save session",
		Err:     err,
	}
}
