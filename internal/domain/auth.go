package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// Credentials are the login form's fields.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the body returned by POST /auth/login.
type LoginResult struct {
	Token string    `json:"token"`
	User  *Identity `json:"user"`
}

// RegisterRequest is the registration body. A non-nil Picture sends the
// request as multipart.
type RegisterRequest struct {
	FirstName  string      `json:"firstName"`
	LastName   string      `json:"lastName"`
	Email      string      `json:"email"`
	Password   string      `json:"password"`
	Location   string      `json:"location"`
	Occupation string      `json:"occupation"`
	Picture    *Attachment `json:"-"`
}

// Attachment implements AttachmentCarrier.
func (r RegisterRequest) Attachment() *Attachment {
	return r.Picture
}

// AuthService establishes and tears down sessions.
type AuthService struct {
	requester Requester
	session   SessionStore
	repo      SessionRepository // may be nil
	logger    *slog.Logger
}

// NewAuthService creates an AuthService. repo is optional; when set, a
// successful login is persisted and logout removes it.
func NewAuthService(requester Requester, session SessionStore, repo SessionRepository, logger *slog.Logger) *AuthService {
	return &AuthService{
		requester: requester,
		session:   session,
		repo:      repo,
		logger:    logger,
	}
}

// Login authenticates and establishes the session. The request is sent
// without a credential.
func (s *AuthService) Login(ctx context.Context, creds Credentials) (Identity, error) {
	var result LoginResult
	if err := s.requester.Do(ctx, http.MethodPost, "/auth/login", "", creds, &result); err != nil {
		logFailure(s.logger, "login", err, "email", creds.Email)
		return Identity{}, fmt.Errorf("login: %w", err)
	}

	if result.Token == "" || result.User == nil || result.User.ID == "" {
		err := &MalformedResponseError{
			Endpoint: "/auth/login",
			Err:      errors.New("response is missing token or user"),
		}
		logFailure(s.logger, "login", err, "email", creds.Email)
		return Identity{}, fmt.Errorf("login: %w", err)
	}

	identity := *result.User
	identity.Friends = WithoutSelf(identity.Friends, identity.ID)
	s.session.SetSession(identity, result.Token)

	if s.repo != nil {
		if err := s.repo.SaveSession(ctx, identity, result.Token); err != nil {
			// the in-memory session is already usable
			s.logger.Warn("failed to persist session", "user", identity.ID, "error", err)
		}
	}

	s.logger.Info("logged in", "user", identity.ID)
	return identity.Clone(), nil
}

// Register creates an account. It never establishes a session; the new user
// logs in explicitly afterwards.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (Identity, error) {
	var created Identity
	if err := s.requester.Do(ctx, http.MethodPost, "/auth/register", "", req, &created); err != nil {
		logFailure(s.logger, "register", err, "email", req.Email)
		return Identity{}, fmt.Errorf("register: %w", err)
	}

	s.logger.Info("registered", "user", created.ID, "with_picture", req.Picture != nil)
	return created, nil
}

// Logout clears the session and any persisted copy of it. It is safe to call
// when already logged out.
func (s *AuthService) Logout(ctx context.Context) error {
	s.session.Clear()

	if s.repo != nil {
		if err := s.repo.DeleteSession(ctx); err != nil {
			return fmt.Errorf("delete persisted session: %w", err)
		}
	}
	return nil
}

// Restore loads a persisted session into the store. It reports whether a
// session was found.
func (s *AuthService) Restore(ctx context.Context) (bool, error) {
	if s.repo == nil {
		return false, nil
	}

	identity, credential, ok, err := s.repo.LoadSession(ctx)
	if err != nil {
		return false, fmt.Errorf("load persisted session: %w", err)
	}
	if !ok {
		return false, nil
	}

	s.session.SetSession(identity, credential)
	s.logger.Debug("session restored", "user", identity.ID)
	return true, nil
}

// ProfileService reads user profiles.
type ProfileService struct {
	requester Requester
	session   SessionStore
	logger    *slog.Logger
}

// NewProfileService creates a ProfileService.
func NewProfileService(requester Requester, session SessionStore, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		requester: requester,
		session:   session,
		logger:    logger,
	}
}

// GetUser fetches the profile of userID.
func (s *ProfileService) GetUser(ctx context.Context, userID string) (Identity, error) {
	var user Identity
	endpoint := "/users/" + url.PathEscape(userID)
	if err := s.requester.Do(ctx, http.MethodGet, endpoint, s.session.Credential(), nil, &user); err != nil {
		logFailure(s.logger, "get user", err, "user", userID)
		return Identity{}, fmt.Errorf("get user %s: %w", userID, err)
	}
	return user, nil
}
