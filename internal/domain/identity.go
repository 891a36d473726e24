package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Identity is the authenticated user's own profile as held by the session
// store. It is also the shape returned for other users by GET /users/{id}.
type Identity struct {
	ID          string      `json:"_id"`
	FirstName   string      `json:"firstName"`
	LastName    string      `json:"lastName"`
	Email       string      `json:"email,omitempty"`
	Location    string      `json:"location"`
	Occupation  string      `json:"occupation"`
	PicturePath string      `json:"picturePath"`
	Friends     []FriendRef `json:"friends"`

	ViewedProfile int `json:"viewedProfile,omitempty"`
	Impressions   int `json:"impressions,omitempty"`
}

// FullName returns "First Last".
func (i Identity) FullName() string {
	return strings.TrimSpace(i.FirstName + " " + i.LastName)
}

// Clone returns a deep copy so callers can't alias the friend slice.
func (i Identity) Clone() Identity {
	out := i
	if i.Friends != nil {
		out.Friends = make([]FriendRef, len(i.Friends))
		copy(out.Friends, i.Friends)
	}
	return out
}

// FriendRef is a denormalized snapshot of another user, sufficient for list
// rendering. It may go stale until the next refresh.
type FriendRef struct {
	ID          string `json:"_id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Occupation  string `json:"occupation"`
	Location    string `json:"location,omitempty"`
	PicturePath string `json:"picturePath,omitempty"`
}

// FullName returns "First Last".
func (f FriendRef) FullName() string {
	return strings.TrimSpace(f.FirstName + " " + f.LastName)
}

// UnmarshalJSON accepts either a friend object or a bare id string. The login
// response carries friend ids only, the friend endpoints carry objects.
func (f *FriendRef) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*f = FriendRef{ID: id}
		return nil
	}

	type plain FriendRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode friend: %w", err)
	}
	*f = FriendRef(p)
	return nil
}

// IsFriend reports whether id belongs to some element of friends.
func IsFriend(friends []FriendRef, id string) bool {
	for _, f := range friends {
		if f.ID == id {
			return true
		}
	}
	return false
}

// WithoutSelf returns friends minus any entry whose id is ownerID. The input
// slice is not modified.
func WithoutSelf(friends []FriendRef, ownerID string) []FriendRef {
	out := make([]FriendRef, 0, len(friends))
	for _, f := range friends {
		if ownerID != "" && f.ID == ownerID {
			continue
		}
		out = append(out, f)
	}
	return out
}
