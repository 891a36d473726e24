package domain

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// FriendService is the relationship toggle engine. The server arbitrates
// every edge flip; the store only ever reflects server-confirmed state.
type FriendService struct {
	requester Requester
	session   SessionStore
	logger    *slog.Logger
}

// NewFriendService creates a FriendService bound to session.
func NewFriendService(requester Requester, session SessionStore, logger *slog.Logger) *FriendService {
	return &FriendService{
		requester: requester,
		session:   session,
		logger:    logger,
	}
}

// ToggleFriend flips the friendship edge between actorID and targetID and
// replaces the store's friend set with the actor's updated set returned by
// the server. actorID must be the session user. Nothing in the store changes
// on failure, or when the session changed hands while the request was in
// flight.
func (s *FriendService) ToggleFriend(ctx context.Context, actorID, targetID string) ([]FriendRef, error) {
	if actorID == targetID {
		s.logger.Debug("ignoring friend toggle on self", "user", actorID)
		return nil, &SelfRelationshipError{UserID: actorID}
	}

	me, ok := s.session.Identity()
	if !ok {
		return nil, ErrNoSession
	}
	if me.ID != actorID {
		s.logger.Warn("refusing friend toggle for another user", "actor", actorID, "session_user", me.ID)
		return nil, fmt.Errorf("toggle friend %s as %s: %w", targetID, actorID, ErrNotSessionUser)
	}

	endpoint := "/users/" + url.PathEscape(actorID) + "/" + url.PathEscape(targetID)

	var friends []FriendRef
	if err := s.requester.Do(ctx, http.MethodPatch, endpoint, s.session.Credential(), nil, &friends); err != nil {
		logFailure(s.logger, "toggle friend", err, "actor", actorID, "target", targetID)
		return nil, fmt.Errorf("toggle friend %s: %w", targetID, err)
	}

	friends = WithoutSelf(friends, actorID)
	if !s.session.SetFriends(actorID, friends) {
		s.logger.Info("session changed during friend toggle, discarding result", "actor", actorID)
		return friends, nil
	}

	s.logger.Info("friend toggled",
		"actor", actorID,
		"target", targetID,
		"now_friends", IsFriend(friends, targetID),
		"friend_count", len(friends),
	)
	return friends, nil
}

// RefreshFriends reloads the session user's friend list and replaces the
// store's friend set with it.
func (s *FriendService) RefreshFriends(ctx context.Context) ([]FriendRef, error) {
	me, ok := s.session.Identity()
	if !ok {
		return nil, ErrNoSession
	}

	friends, err := s.ListFriends(ctx, me.ID)
	if err != nil {
		return nil, err
	}

	friends = WithoutSelf(friends, me.ID)
	if !s.session.SetFriends(me.ID, friends) {
		s.logger.Info("session changed during friend refresh, discarding result", "user", me.ID)
	}
	return friends, nil
}

// ListFriends returns userID's friend list without touching the store. Use
// it for other users' profiles.
func (s *FriendService) ListFriends(ctx context.Context, userID string) ([]FriendRef, error) {
	endpoint := "/users/" + url.PathEscape(userID) + "/friends"

	var friends []FriendRef
	if err := s.requester.Do(ctx, http.MethodGet, endpoint, s.session.Credential(), nil, &friends); err != nil {
		logFailure(s.logger, "list friends", err, "user", userID)
		return nil, fmt.Errorf("list friends of %s: %w", userID, err)
	}

	// entries without an id can't be rendered or toggled
	out := make([]FriendRef, 0, len(friends))
	for _, f := range friends {
		if f.ID != "" {
			out = append(out, f)
		}
	}
	return out, nil
}
