package domain

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// GenericFailureMessage is shown for failures that are not the user's fault.
const GenericFailureMessage = "Something went wrong. Please try again."

// ErrNoSession is returned by operations that need the session identity
// while logged out.
var ErrNoSession = errors.New("no session established")

// ErrNotSessionUser is returned when an operation that writes to the session
// is asked to act for a different user.
var ErrNotSessionUser = errors.New("actor is not the session user")

// NetworkError is a transport or connectivity failure. No HTTP status was
// received.
type NetworkError struct {
	Method   string
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error on %s %s: %v", e.Method, e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx response from the remote API.
type APIError struct {
	Status int

	// Message is the body's "message" field, or a generic fallback when the
	// field was absent.
	Message string

	// HasMessage reports whether Message came from the server.
	HasMessage bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.Status, e.Message)
}

// Unauthorized reports an authorization failure: the credential is absent,
// expired, or rejected and the session must be re-established.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// MalformedResponseError is a 2xx response whose body violates the API
// contract.
type MalformedResponseError struct {
	Endpoint string
	Err      error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response from %s: %v", e.Endpoint, e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// SelfRelationshipError is returned when a user tries to friend or unfriend
// themself. It never reaches the network.
type SelfRelationshipError struct {
	UserID string
}

func (e *SelfRelationshipError) Error() string {
	return fmt.Sprintf("user %s cannot add or remove themself as a friend", e.UserID)
}

// ValidationError carries client-side validation failures keyed by field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsUnauthorized reports whether err is an APIError signalling that the
// session is no longer valid.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Unauthorized()
}

// UserMessage turns err into text suitable for a transient notice. Server
// messages are surfaced verbatim; everything else gets fallback or the
// generic retry message.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var (
		apiErr  *APIError
		netErr  *NetworkError
		badErr  *MalformedResponseError
		selfErr *SelfRelationshipError
		valErr  *ValidationError
	)
	switch {
	case errors.As(err, &apiErr):
		if apiErr.HasMessage && apiErr.Message != "" {
			return apiErr.Message
		}
		return fallback
	case errors.As(err, &netErr), errors.As(err, &badErr):
		return GenericFailureMessage
	case errors.As(err, &selfErr):
		return "You cannot add or remove yourself as a friend."
	case errors.As(err, &valErr):
		return valErr.Error()
	case errors.Is(err, ErrNoSession):
		return "Please log in first."
	default:
		return fallback
	}
}
