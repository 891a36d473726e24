package domain

import (
	"slices"
)

// Feed is an ordered sequence of posts, most recent first.
type Feed []Post

// Clone returns a copy of the feed's backing slice.
func (f Feed) Clone() Feed {
	if f == nil {
		return nil
	}
	out := make(Feed, len(f))
	copy(out, f)
	return out
}

// SortFeed returns a copy of posts ordered by CreatedAt descending. Posts with
// equal timestamps keep their input order.
func SortFeed(posts []Post) Feed {
	out := make(Feed, len(posts))
	copy(out, posts)
	slices.SortStableFunc(out, func(a, b Post) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

// ScopeKind selects between the global feed and a single author's feed.
type ScopeKind int

const (
	ScopeGlobal ScopeKind = iota
	ScopeUser
)

// Scope identifies which feed a load targets.
type Scope struct {
	Kind   ScopeKind
	UserID string
}

// GlobalScope is the feed of every visible post.
func GlobalScope() Scope {
	return Scope{Kind: ScopeGlobal}
}

// UserScope is the feed of posts authored by userID.
func UserScope(userID string) Scope {
	return Scope{Kind: ScopeUser, UserID: userID}
}

// Key identifies the held feed slot for this scope.
func (s Scope) Key() string {
	if s.Kind == ScopeUser {
		return "user:" + s.UserID
	}
	return "global"
}

func (s Scope) String() string {
	return s.Key()
}
