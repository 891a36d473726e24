package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Post is a single feed entry as returned by the posts endpoints.
type Post struct {
	// ID is the server-assigned post id.
	ID string `json:"_id"`

	// AuthorID is the id of the posting user.
	AuthorID string `json:"userId"`

	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`

	// Description is the post body text.
	Description string `json:"description"`

	Location        string `json:"location"`
	PicturePath     string `json:"picturePath,omitempty"`
	UserPicturePath string `json:"userPicturePath,omitempty"`

	// Likes is the set of user ids that liked the post.
	Likes UserSet `json:"likes"`

	// Comments are kept in server order.
	Comments []string `json:"comments"`

	// CreatedAt is set server-side and drives feed ordering.
	CreatedAt time.Time `json:"createdAt"`
}

// AuthorName returns the author's display name.
func (p Post) AuthorName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// LikedBy reports whether userID liked the post.
func (p Post) LikedBy(userID string) bool {
	_, ok := p.Likes[userID]
	return ok
}

// LikeCount returns the number of likes.
func (p Post) LikeCount() int {
	return len(p.Likes)
}

// UserSet is a set of user ids.
type UserSet map[string]struct{}

// UnmarshalJSON accepts the server's {"userId": true} map form as well as a
// plain array of ids. Map entries set to false are not members.
func (s *UserSet) UnmarshalJSON(data []byte) error {
	set := UserSet{}
	trimmed := bytes.TrimSpace(data)

	switch {
	case bytes.Equal(trimmed, []byte("null")):
	case len(trimmed) > 0 && trimmed[0] == '[':
		var ids []string
		if err := json.Unmarshal(trimmed, &ids); err != nil {
			return fmt.Errorf("decode user set: %w", err)
		}
		for _, id := range ids {
			set[id] = struct{}{}
		}
	default:
		var m map[string]bool
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return fmt.Errorf("decode user set: %w", err)
		}
		for id, liked := range m {
			if liked {
				set[id] = struct{}{}
			}
		}
	}

	*s = set
	return nil
}

// MarshalJSON writes the set in the server's map form.
func (s UserSet) MarshalJSON() ([]byte, error) {
	m := make(map[string]bool, len(s))
	for id := range s {
		m[id] = true
	}
	return json.Marshal(m)
}
