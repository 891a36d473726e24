package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackmichael/connectify/internal/domain"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "nested", "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestLoadSession_Empty(t *testing.T) {
	repo := newTestRepository(t)

	_, _, ok, err := repo.LoadSession(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveAndLoadSession(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	identity := domain.Identity{
		ID:        "u1",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Friends:   []domain.FriendRef{{ID: "u2", FirstName: "Bob"}},
	}
	require.NoError(t, repo.SaveSession(ctx, identity, "t1"))

	got, credential, ok, err := repo.LoadSession(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, identity, got)
	assert.Equal(t, "t1", credential)
}

func TestSaveSession_Replaces(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveSession(ctx, domain.Identity{ID: "u1"}, "t1"))
	require.NoError(t, repo.SaveSession(ctx, domain.Identity{ID: "u2"}, "t2"))

	got, credential, ok, err := repo.LoadSession(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "u2", got.ID)
	assert.Equal(t, "t2", credential)

	var rows int
	require.NoError(t, repo.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestDeleteSession(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.DeleteSession(ctx), "deleting nothing is fine")
	require.NoError(t, repo.SaveSession(ctx, domain.Identity{ID: "u1"}, "t1"))
	require.NoError(t, repo.DeleteSession(ctx))

	_, _, ok, err := repo.LoadSession(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSavedAt(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	_, ok, err := repo.SavedAt(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.SaveSession(ctx, domain.Identity{ID: "u1"}, "t1"))

	got, ok, err := repo.SavedAt(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, fixed.Equal(got))
}

func TestSessionSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	ctx := context.Background()

	repo, err := NewRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.SaveSession(ctx, domain.Identity{ID: "u1"}, "t1"))
	require.NoError(t, repo.Close())

	repo, err = NewRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	got, credential, ok, err := repo.LoadSession(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, "t1", credential)
}
