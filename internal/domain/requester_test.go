package domain_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/blackmichael/connectify/internal/domain"
	"github.com/blackmichael/connectify/internal/session"
)

// stubRequester answers every request with the next queued reply and records
// what was asked.
type stubRequester struct {
	mu      sync.Mutex
	replies []stubReply
	calls   []stubCall
}

type stubReply struct {
	body string
	err  error
}

type stubCall struct {
	Method     string
	Endpoint   string
	Credential string
	Body       any
}

func (s *stubRequester) reply(body string) *stubRequester {
	s.replies = append(s.replies, stubReply{body: body})
	return s
}

func (s *stubRequester) fail(err error) *stubRequester {
	s.replies = append(s.replies, stubReply{err: err})
	return s
}

func (s *stubRequester) Do(_ context.Context, method, endpoint, credential string, body, out any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, stubCall{Method: method, Endpoint: endpoint, Credential: credential, Body: body})
	if len(s.replies) == 0 {
		return &domain.NetworkError{Method: method, Endpoint: endpoint}
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	if r.err != nil {
		return r.err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(r.body), out); err != nil {
		return &domain.MalformedResponseError{Endpoint: endpoint, Err: err}
	}
	return nil
}

func (s *stubRequester) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func loggedInStore(t *testing.T, id string, friends ...domain.FriendRef) *session.Store {
	t.Helper()
	store := session.NewStore()
	store.SetSession(domain.Identity{ID: id, FirstName: "Test", Friends: friends}, "t1")
	return store
}

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// post builds a post created the given number of minutes after epoch.
func post(id string, minutes int) domain.Post {
	return domain.Post{
		ID:        id,
		AuthorID:  "u1",
		CreatedAt: epoch.Add(time.Duration(minutes) * time.Minute),
	}
}
