package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// FeedService is the feed aggregator. It loads the global feed or a single
// author's feed, keeps the latest successful result per scope, and always
// hands out feeds ordered most recent first.
type FeedService struct {
	requester Requester
	session   SessionStore
	logger    *slog.Logger

	mu    sync.RWMutex
	feeds map[string]Feed // keyed by Scope.Key
}

// NewFeedService creates a FeedService that authenticates with the
// credential currently held by session.
func NewFeedService(requester Requester, session SessionStore, logger *slog.Logger) *FeedService {
	return &FeedService{
		requester: requester,
		session:   session,
		logger:    logger,
		feeds:     make(map[string]Feed),
	}
}

// LoadFeed fetches the feed for scope, sorts it, and replaces the held feed
// for that scope. On failure the held feed is left as it was.
func (s *FeedService) LoadFeed(ctx context.Context, scope Scope) (Feed, error) {
	endpoint, err := feedEndpoint(scope)
	if err != nil {
		return nil, err
	}

	var posts []Post
	if err := s.requester.Do(ctx, http.MethodGet, endpoint, s.session.Credential(), nil, &posts); err != nil {
		logFailure(s.logger, "load feed", err, "scope", scope.Key())
		return nil, fmt.Errorf("load feed %s: %w", scope.Key(), err)
	}

	feed := SortFeed(posts)
	s.replace(scope, feed)

	s.logger.Debug("feed loaded", "scope", scope.Key(), "posts", len(feed))
	return feed.Clone(), nil
}

// Feed returns a copy of the held feed for scope. ok is false when no load
// for that scope has succeeded yet.
func (s *FeedService) Feed(scope Scope) (Feed, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	feed, ok := s.feeds[scope.Key()]
	return feed.Clone(), ok
}

// NewPost is the body of a post submission. A non-nil Picture sends the
// request as multipart.
type NewPost struct {
	UserID      string      `json:"userId"`
	Description string      `json:"description"`
	Picture     *Attachment `json:"-"`
}

// Attachment implements AttachmentCarrier.
func (p NewPost) Attachment() *Attachment {
	return p.Picture
}

// CreatePost submits a post. The server answers with the full updated feed,
// which replaces the held global feed.
func (s *FeedService) CreatePost(ctx context.Context, authorID, description string, picture *Attachment) (Feed, error) {
	fields := map[string]string{}
	if authorID == "" {
		fields["userId"] = "User is required"
	}
	if strings.TrimSpace(description) == "" {
		fields["description"] = "Description is required"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	body := NewPost{
		UserID:      authorID,
		Description: description,
		Picture:     picture,
	}

	var posts []Post
	if err := s.requester.Do(ctx, http.MethodPost, "/posts", s.session.Credential(), body, &posts); err != nil {
		logFailure(s.logger, "create post", err, "author", authorID)
		return nil, fmt.Errorf("create post: %w", err)
	}

	feed := SortFeed(posts)
	s.replace(GlobalScope(), feed)

	s.logger.Info("post created", "author", authorID, "feed_size", len(feed))
	return feed.Clone(), nil
}

func (s *FeedService) replace(scope Scope, feed Feed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeds[scope.Key()] = feed
}

func feedEndpoint(scope Scope) (string, error) {
	switch scope.Kind {
	case ScopeGlobal:
		return "/posts", nil
	case ScopeUser:
		if scope.UserID == "" {
			return "", &ValidationError{Fields: map[string]string{"userId": "User is required"}}
		}
		return "/posts/" + url.PathEscape(scope.UserID) + "/posts", nil
	default:
		return "", fmt.Errorf("unknown feed scope %d", scope.Kind)
	}
}

// logFailure logs request failures at a level matching their cause. Contract
// violations by the server are errors; everything else is expected traffic.
func logFailure(logger *slog.Logger, op string, err error, args ...any) {
	args = append(args, "error", err)

	var badErr *MalformedResponseError
	if errors.As(err, &badErr) {
		logger.Error(op+" failed: malformed response", args...)
		return
	}
	logger.Warn(op+" failed", args...)
}
