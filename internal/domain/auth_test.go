package domain_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackmichael/connectify/internal/domain"
	"github.com/blackmichael/connectify/internal/session"
)

type memoryRepo struct {
	identity   domain.Identity
	credential string
	saved      bool
	saveErr    error
	deletes    int
}

func (m *memoryRepo) SaveSession(_ context.Context, identity domain.Identity, credential string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.identity, m.credential, m.saved = identity, credential, true
	return nil
}

func (m *memoryRepo) LoadSession(context.Context) (domain.Identity, string, bool, error) {
	return m.identity, m.credential, m.saved, nil
}

func (m *memoryRepo) DeleteSession(context.Context) error {
	m.deletes++
	m.identity, m.credential, m.saved = domain.Identity{}, "", false
	return nil
}

func TestLogin(t *testing.T) {
	req := (&stubRequester{}).reply(`{"token":"t1","user":{"_id":"u1","firstName":"Ada","friends":["u2","u1"]}}`)
	store := session.NewStore()
	repo := &memoryRepo{}
	svc := domain.NewAuthService(req, store, repo, discardLogger())

	me, err := svc.Login(context.Background(), domain.Credentials{Email: "ada@example.com", Password: "pw"})
	require.NoError(t, err)

	assert.Equal(t, "u1", me.ID)
	assert.Equal(t, []domain.FriendRef{{ID: "u2"}}, me.Friends)

	id, ok := store.Identity()
	require.True(t, ok)
	assert.Equal(t, "u1", id.ID)
	assert.Equal(t, "t1", store.Credential())

	assert.True(t, repo.saved)
	assert.Equal(t, "t1", repo.credential)

	require.Len(t, req.calls, 1)
	assert.Equal(t, "/auth/login", req.calls[0].Endpoint)
	assert.Empty(t, req.calls[0].Credential, "login is sent without a bearer")
}

func TestLogin_MissingFields(t *testing.T) {
	bodies := []string{
		`{"user":{"_id":"u1"}}`,
		`{"token":"t1"}`,
		`{"token":"t1","user":{"firstName":"no id"}}`,
	}

	for _, body := range bodies {
		req := (&stubRequester{}).reply(body)
		store := session.NewStore()
		svc := domain.NewAuthService(req, store, nil, discardLogger())

		_, err := svc.Login(context.Background(), domain.Credentials{Email: "a@b.c", Password: "x"})

		var badErr *domain.MalformedResponseError
		require.ErrorAs(t, err, &badErr, body)
		assert.False(t, store.Authenticated(), body)
	}
}

func TestLogin_FailureLeavesStoreEmpty(t *testing.T) {
	req := (&stubRequester{}).fail(&domain.APIError{Status: http.StatusBadRequest, Message: "Invalid credentials", HasMessage: true})
	store := session.NewStore()
	svc := domain.NewAuthService(req, store, nil, discardLogger())

	_, err := svc.Login(context.Background(), domain.Credentials{Email: "a@b.c", Password: "x"})
	require.Error(t, err)

	assert.False(t, store.Authenticated())
	assert.Equal(t, "Invalid credentials", domain.UserMessage(err, "Invalid email or password"))
}

func TestLogin_PersistFailureIsNotFatal(t *testing.T) {
	req := (&stubRequester{}).reply(`{"token":"t1","user":{"_id":"u1"}}`)
	store := session.NewStore()
	svc := domain.NewAuthService(req, store, &memoryRepo{saveErr: errors.New("disk full")}, discardLogger())

	_, err := svc.Login(context.Background(), domain.Credentials{Email: "a@b.c", Password: "x"})
	require.NoError(t, err)
	assert.True(t, store.Authenticated())
}

func TestRegister_DoesNotLogIn(t *testing.T) {
	req := (&stubRequester{}).reply(`{"_id":"u9","firstName":"New"}`)
	store := session.NewStore()
	svc := domain.NewAuthService(req, store, nil, discardLogger())

	created, err := svc.Register(context.Background(), domain.RegisterRequest{
		FirstName: "New", LastName: "User", Email: "n@u.io", Password: "pw",
		Location: "Paris", Occupation: "Chef",
	})
	require.NoError(t, err)

	assert.Equal(t, "u9", created.ID)
	assert.False(t, store.Authenticated())
	assert.Empty(t, req.calls[0].Credential)
}

func TestLogoutAndRestore(t *testing.T) {
	repo := &memoryRepo{}
	req := (&stubRequester{}).reply(`{"token":"t1","user":{"_id":"u1"}}`)
	store := session.NewStore()
	svc := domain.NewAuthService(req, store, repo, discardLogger())

	_, err := svc.Login(context.Background(), domain.Credentials{Email: "a@b.c", Password: "x"})
	require.NoError(t, err)

	fresh := session.NewStore()
	restored, err := domain.NewAuthService(req, fresh, repo, discardLogger()).Restore(context.Background())
	require.NoError(t, err)
	assert.True(t, restored)
	assert.Equal(t, "t1", fresh.Credential())

	require.NoError(t, svc.Logout(context.Background()))
	require.NoError(t, svc.Logout(context.Background()))
	assert.False(t, store.Authenticated())
	assert.Equal(t, 2, repo.deletes)

	restored, err = domain.NewAuthService(req, session.NewStore(), repo, discardLogger()).Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, restored)
}

func TestRestore_WithoutRepository(t *testing.T) {
	svc := domain.NewAuthService(&stubRequester{}, session.NewStore(), nil, discardLogger())

	restored, err := svc.Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, restored)
}

func TestGetUser(t *testing.T) {
	req := (&stubRequester{}).reply(`{"_id":"u2","firstName":"Bob","lastName":"Babbage","friends":[{"_id":"u1"}]}`)
	svc := domain.NewProfileService(req, loggedInStore(t, "u1"), discardLogger())

	user, err := svc.GetUser(context.Background(), "u2")
	require.NoError(t, err)

	assert.Equal(t, "Bob Babbage", user.FullName())
	assert.True(t, domain.IsFriend(user.Friends, "u1"))
	assert.Equal(t, "/users/u2", req.calls[0].Endpoint)
}
