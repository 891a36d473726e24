package domain

import (
	"context"
)

// Requester sends a single request to the remote API and decodes the JSON
// response into out. Implementations classify failures as *NetworkError,
// *APIError or *MalformedResponseError and never retry.
type Requester interface {
	// Do issues method on endpoint (a path such as "/posts"). The bearer
	// header is attached only when credential is non-empty. A body carrying an
	// attachment is sent as multipart, anything else as JSON. A nil out
	// discards the response after it has been validated as JSON.
	Do(ctx context.Context, method, endpoint, credential string, body, out any) error
}

// SessionStore is the single owner of the current identity, credential and
// friend set. Every mutation goes through these actions.
type SessionStore interface {
	// Identity returns a copy of the current identity and whether a session
	// is established.
	Identity() (Identity, bool)

	// Credential returns the current bearer credential, empty when logged out.
	Credential() string

	// SetSession replaces identity and credential together.
	SetSession(identity Identity, credential string)

	// SetFriends replaces userID's friend set wholesale. It reports false and
	// changes nothing unless userID is the current session user.
	SetFriends(userID string, friends []FriendRef) bool

	// Clear resets to the unauthenticated state. It is idempotent.
	Clear()
}

// SessionRepository persists a session beyond process memory. It is optional;
// the core works without one.
type SessionRepository interface {
	// SaveSession stores identity and credential, replacing any previous
	// session.
	SaveSession(ctx context.Context, identity Identity, credential string) error

	// LoadSession returns the stored session. ok is false when none exists.
	LoadSession(ctx context.Context) (identity Identity, credential string, ok bool, err error)

	// DeleteSession removes the stored session. Deleting nothing is not an
	// error.
	DeleteSession(ctx context.Context) error
}

// Attachment is binary data uploaded alongside a request, such as a profile
// picture.
type Attachment struct {
	Filename string
	Data     []byte
}

// AttachmentCarrier is implemented by request bodies that may carry binary
// data. A non-nil Attachment switches the request to multipart encoding.
type AttachmentCarrier interface {
	Attachment() *Attachment
}
