// Package app wires configuration, the request layer, the session store and
// the domain services into a single client.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/blackmichael/connectify/internal/api"
	"github.com/blackmichael/connectify/internal/authform"
	"github.com/blackmichael/connectify/internal/config"
	"github.com/blackmichael/connectify/internal/domain"
	"github.com/blackmichael/connectify/internal/session"
	"github.com/blackmichael/connectify/internal/sqlite"
	"github.com/blackmichael/connectify/internal/telemetry"
)

// App is a fully wired client.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Client   *api.Client
	Session  *session.Store
	Metrics  *telemetry.Metrics
	Auth     *domain.AuthService
	Friends  *domain.FriendService
	Feeds    *domain.FeedService
	Profiles *domain.ProfileService

	repo        *sqlite.Repository
	unsubscribe func()
	now         func() time.Time
}

// New builds an App from cfg. When cfg.SessionDB is set the session is
// persisted there and kept in sync with every store change.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{
		Config:  cfg,
		Logger:  logger,
		Session: session.NewStore(),
		Metrics: telemetry.NewMetrics("connectify"),
		now:     time.Now,
	}

	a.Client = api.NewClient(cfg.APIURL,
		api.WithTimeout(cfg.Timeout),
		api.WithLogger(logger.With("component", "api")),
		api.WithMetrics(a.Metrics),
	)

	var repo domain.SessionRepository
	if cfg.SessionDB != "" {
		r, err := sqlite.NewRepository(cfg.SessionDB)
		if err != nil {
			return nil, fmt.Errorf("open session store: %w", err)
		}
		a.repo = r
		repo = r
		a.unsubscribe = a.Session.Subscribe(a.persist)
	}

	logger.Debug("client configured", "api_url", a.Client.BaseURL(), "session_db", cfg.SessionDB)

	a.Auth = domain.NewAuthService(a.Client, a.Session, repo, logger.With("component", "auth"))
	a.Friends = domain.NewFriendService(a.Client, a.Session, logger.With("component", "friends"))
	a.Feeds = domain.NewFeedService(a.Client, a.Session, logger.With("component", "feed"))
	a.Profiles = domain.NewProfileService(a.Client, a.Session, logger.With("component", "profile"))
	return a, nil
}

// Close releases the session database.
func (a *App) Close() error {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	if a.repo != nil {
		return a.repo.Close()
	}
	return nil
}

// NewForm returns a login/register form bound to the App's auth service.
func (a *App) NewForm() *authform.Form {
	return authform.New(a.Auth,
		authform.WithRequirePicture(a.Config.RequirePicture),
		authform.WithLogger(a.Logger.With("component", "authform")),
	)
}

// Restore loads the persisted session. A session whose credential has
// expired is discarded.
func (a *App) Restore(ctx context.Context) (bool, error) {
	ok, err := a.Auth.Restore(ctx)
	if err != nil || !ok {
		return ok, err
	}

	if a.Session.Expired(a.now()) {
		a.Logger.Info("persisted session expired, logging out")
		if err := a.Auth.Logout(ctx); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// Me returns the session identity or domain.ErrNoSession.
func (a *App) Me() (domain.Identity, error) {
	me, ok := a.Session.Identity()
	if !ok {
		return domain.Identity{}, domain.ErrNoSession
	}
	return me, nil
}

// SessionSavedAt reports when the persisted session was last written. ok is
// false when persistence is disabled or nothing is stored.
func (a *App) SessionSavedAt(ctx context.Context) (time.Time, bool, error) {
	if a.repo == nil {
		return time.Time{}, false, nil
	}
	return a.repo.SavedAt(ctx)
}

// Home is everything the home view shows.
type Home struct {
	Me      domain.Identity
	Friends []domain.FriendRef
	Feed    domain.Feed
}

// LoadHome refreshes the session user's profile, friend list and the global
// feed concurrently. Each part applies its own replacement rules, so a
// failure in one leaves the others' results in place; the first error is
// returned.
func (a *App) LoadHome(ctx context.Context) (Home, error) {
	me, err := a.Me()
	if err != nil {
		return Home{}, err
	}

	var home Home
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		user, err := a.Profiles.GetUser(gctx, me.ID)
		if err != nil {
			return err
		}
		home.Me = user
		return nil
	})
	g.Go(func() error {
		friends, err := a.Friends.RefreshFriends(gctx)
		if err != nil {
			return err
		}
		home.Friends = friends
		return nil
	})
	g.Go(func() error {
		feed, err := a.Feeds.LoadFeed(gctx, domain.GlobalScope())
		if err != nil {
			return err
		}
		home.Feed = feed
		return nil
	})

	if err := g.Wait(); err != nil {
		a.handleUnauthorized(err)
		return Home{}, err
	}
	return home, nil
}

// Profile is everything a user's profile view shows.
type Profile struct {
	User     domain.Identity
	Friends  []domain.FriendRef
	Feed     domain.Feed
	IsFriend bool
	IsSelf   bool
}

// LoadProfile loads userID's profile, friend list and posts concurrently.
func (a *App) LoadProfile(ctx context.Context, userID string) (Profile, error) {
	me, err := a.Me()
	if err != nil {
		return Profile{}, err
	}

	profile := Profile{
		IsSelf:   userID == me.ID,
		IsFriend: domain.IsFriend(a.Session.Friends(), userID),
	}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		user, err := a.Profiles.GetUser(gctx, userID)
		if err != nil {
			return err
		}
		profile.User = user
		return nil
	})
	g.Go(func() error {
		friends, err := a.Friends.ListFriends(gctx, userID)
		if err != nil {
			return err
		}
		profile.Friends = friends
		return nil
	})
	g.Go(func() error {
		feed, err := a.Feeds.LoadFeed(gctx, domain.UserScope(userID))
		if err != nil {
			return err
		}
		profile.Feed = feed
		return nil
	})

	if err := g.Wait(); err != nil {
		a.handleUnauthorized(err)
		return Profile{}, err
	}
	return profile, nil
}

// LoadFeed loads the feed for scope.
func (a *App) LoadFeed(ctx context.Context, scope domain.Scope) (domain.Feed, error) {
	feed, err := a.Feeds.LoadFeed(ctx, scope)
	if err != nil {
		a.handleUnauthorized(err)
		return nil, err
	}
	return feed, nil
}

// RefreshFriends reloads the session user's friend list into the session.
func (a *App) RefreshFriends(ctx context.Context) ([]domain.FriendRef, error) {
	friends, err := a.Friends.RefreshFriends(ctx)
	if err != nil {
		a.handleUnauthorized(err)
		return nil, err
	}
	return friends, nil
}

// ListFriends returns userID's friend list.
func (a *App) ListFriends(ctx context.Context, userID string) ([]domain.FriendRef, error) {
	friends, err := a.Friends.ListFriends(ctx, userID)
	if err != nil {
		a.handleUnauthorized(err)
		return nil, err
	}
	return friends, nil
}

// ToggleFriend flips the friendship between the session user and targetID
// and reports whether they are friends afterwards.
func (a *App) ToggleFriend(ctx context.Context, targetID string) (bool, error) {
	me, err := a.Me()
	if err != nil {
		return false, err
	}

	friends, err := a.Friends.ToggleFriend(ctx, me.ID, targetID)
	if err != nil {
		a.handleUnauthorized(err)
		return false, err
	}
	return domain.IsFriend(friends, targetID), nil
}

// CreatePost publishes a post as the session user.
func (a *App) CreatePost(ctx context.Context, description string, picture *domain.Attachment) (domain.Feed, error) {
	me, err := a.Me()
	if err != nil {
		return nil, err
	}

	feed, err := a.Feeds.CreatePost(ctx, me.ID, description, picture)
	if err != nil {
		a.handleUnauthorized(err)
		return nil, err
	}
	return feed, nil
}

// handleUnauthorized drops a session the server no longer accepts.
func (a *App) handleUnauthorized(err error) {
	if !domain.IsUnauthorized(err) {
		return
	}
	a.Logger.Warn("session rejected by server, logging out", "error", err)
	if lerr := a.Auth.Logout(context.Background()); lerr != nil {
		a.Logger.Error("failed to clear rejected session", "error", lerr)
	}
}

// persist mirrors store changes into the session database. Logout removes
// the row itself, so unauthenticated snapshots are ignored.
func (a *App) persist(snap session.Snapshot) {
	if !snap.Authenticated {
		return
	}
	if err := a.repo.SaveSession(context.Background(), snap.Identity, snap.Credential); err != nil {
		a.Logger.Warn("failed to persist session change", "user", snap.Identity.ID, "error", err)
	}
}

// IsNoSession reports whether err means the user must log in first.
func IsNoSession(err error) bool {
	return errors.Is(err, domain.ErrNoSession)
}
