package client

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the API
type APIError struct {
	StatusCode int
	Message    string // server-supplied message, empty if none

	// Err is vaultx.ErrSessionExpired for a 401 on an authenticated call
	Err error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server returned HTTP %d", e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// HTTPStatus implements vaultx.Rejection
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// ServerMessage implements vaultx.Rejection
func (e *APIError) ServerMessage() string {
	return e.Message
}

// IsUnauthorized returns true for HTTP 401
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// newAPIError builds an APIError from a response body. Bodies that are not
// JSON, or carry no message, produce an error without a message.
func newAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		if errResp.Message != "" {
			apiErr.Message = errResp.Message
		} else {
			apiErr.Message = errResp.Error
		}
	}
	return apiErr
}
