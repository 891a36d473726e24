// Package session holds the current user's identity, credential and friend
// set. The Store is the only writable shared state in the client.
package session

import (
	"sync"

	"github.com/blackmichael/connectify/internal/domain"
)

// Snapshot is a point-in-time copy of the store's state.
type Snapshot struct {
	Identity      domain.Identity
	Credential    string
	Authenticated bool
}

// Store implements domain.SessionStore. Identity and credential always change
// together; readers never observe one without the other.
type Store struct {
	mu            sync.RWMutex
	identity      domain.Identity
	credential    string
	authenticated bool

	subMu       sync.Mutex
	nextSubID   int
	subscribers map[int]func(Snapshot)
}

var _ domain.SessionStore = (*Store)(nil)

// NewStore returns an empty, unauthenticated store.
func NewStore() *Store {
	return &Store{
		subscribers: make(map[int]func(Snapshot)),
	}
}

// Identity returns a copy of the current identity and whether a session is
// established.
func (s *Store) Identity() (domain.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity.Clone(), s.authenticated
}

// Credential returns the bearer credential, empty when logged out.
func (s *Store) Credential() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential
}

// Authenticated reports whether a session is established.
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// Friends returns a copy of the current friend set.
func (s *Store) Friends() []domain.FriendRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity.Clone().Friends
}

// Snapshot returns a copy of the whole state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// SetSession replaces identity and credential in one step.
func (s *Store) SetSession(identity domain.Identity, credential string) {
	identity = identity.Clone()
	identity.Friends = domain.WithoutSelf(identity.Friends, identity.ID)

	s.mu.Lock()
	s.identity = identity
	s.credential = credential
	s.authenticated = true
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// SetFriends replaces userID's friend set wholesale with friends. Entries
// equal to the session user are dropped. It reports false and changes nothing
// while logged out or when the session belongs to someone else.
func (s *Store) SetFriends(userID string, friends []domain.FriendRef) bool {
	s.mu.Lock()
	if !s.authenticated || s.identity.ID != userID {
		s.mu.Unlock()
		return false
	}
	s.identity.Friends = domain.WithoutSelf(friends, s.identity.ID)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return true
}

// Clear resets the store to the unauthenticated state. Clearing an empty
// store changes nothing and notifies nobody.
func (s *Store) Clear() {
	s.mu.Lock()
	if !s.authenticated && s.credential == "" && s.identity.ID == "" {
		s.mu.Unlock()
		return
	}
	s.identity = domain.Identity{}
	s.credential = ""
	s.authenticated = false
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// Subscribe registers fn to receive a snapshot after every change. fn runs on
// the mutating goroutine after the store lock is released. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(snap Snapshot) {
	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Identity:      s.identity.Clone(),
		Credential:    s.credential,
		Authenticated: s.authenticated,
	}
}
