package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackmichael/connectify/internal/domain"
	"github.com/blackmichael/connectify/internal/fakeapi"
)

type harness struct {
	fake      *fakeapi.Server
	srv       *httptest.Server
	sessionDB string
}

// newHarness starts a fake API and isolates HOME so no real config or session
// is touched.
func newHarness(t *testing.T) *harness {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{"CONNECTIFY_PROFILE", "CONNECTIFY_API_URL", "CONNECTIFY_LOG_LEVEL", "CONNECTIFY_TIMEOUT", "CONNECTIFY_REQUIRE_PICTURE", "CONNECTIFY_SESSION_DB"} {
		t.Setenv(k, "")
	}

	fake := fakeapi.NewServer(fakeapi.Config{Secret: "test"}, slog.New(slog.DiscardHandler))
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)

	return &harness{
		fake:      fake,
		srv:       srv,
		sessionDB: filepath.Join(home, "session.db"),
	}
}

// run executes one CLI invocation and returns stdout, stderr and the exit code.
func (h *harness) run(t *testing.T, stdin string, args ...string) (string, string, int) {
	t.Helper()
	var out, errOut bytes.Buffer
	s := streams{in: strings.NewReader(stdin), out: &out, errOut: &errOut}

	root, closeApp := newRootCmd(s)
	root.SetArgs(append([]string{"--api-url", h.srv.URL, "--session-db", h.sessionDB, "--log-level", "error"}, args...))

	code := 0
	if err := root.Execute(); err != nil {
		errOut.WriteString("Error: " + describe(err) + "\n")
		code = 1
	}
	closeApp()
	return out.String(), errOut.String(), code
}

func TestLoginWhoamiLogout(t *testing.T) {
	h := newHarness(t)
	id := h.fake.SeedUser("Ada", "Lovelace", "ada@example.com", "pw")

	out, _, code := h.run(t, "pw\n", "login", "--email", "ada@example.com")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Logged in as Ada Lovelace")

	out, _, code = h.run(t, "", "whoami")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Ada Lovelace ("+id+")")
	assert.Contains(t, out, "Session expires")
	assert.Contains(t, out, "Session saved")

	out, _, code = h.run(t, "", "logout")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Logged out")

	_, errOut, code := h.run(t, "", "whoami")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Please log in first.")
}

func TestLogin_BadPassword(t *testing.T) {
	h := newHarness(t)
	h.fake.SeedUser("Ada", "Lovelace", "ada@example.com", "pw")

	_, errOut, code := h.run(t, "", "login", "--email", "ada@example.com", "--password", "wrong")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Invalid credentials")
}

func TestLogin_Validation(t *testing.T) {
	h := newHarness(t)

	_, errOut, code := h.run(t, "", "login", "--email", "nope")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "email: Invalid email format")
	assert.Contains(t, errOut, "password: Password is required")
	assert.Equal(t, int64(0), h.fake.Requests())
}

func TestRegister_RequiresPicture(t *testing.T) {
	h := newHarness(t)

	_, errOut, code := h.run(t, "", "register",
		"--first-name", "Ada", "--last-name", "Lovelace", "--email", "ada@example.com",
		"--password", "pw", "--location", "London", "--occupation", "Mathematician")

	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "picture: Picture is required")
	assert.Equal(t, int64(0), h.fake.Requests())
}

func TestRegister_WithPictureThenLogin(t *testing.T) {
	h := newHarness(t)
	pic := filepath.Join(t.TempDir(), "ada.png")
	require.NoError(t, os.WriteFile(pic, []byte("\x89PNG\r\n\x1a\n"), 0o600))

	out, _, code := h.run(t, "", "register",
		"--first-name", "Ada", "--last-name", "Lovelace", "--email", "ada@example.com",
		"--password", "pw", "--location", "London", "--occupation", "Mathematician",
		"--picture", pic)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Registered Ada Lovelace")

	_, _, code = h.run(t, "", "login", "--email", "ada@example.com", "--password", "pw")
	assert.Equal(t, 0, code)
}

func TestToggleFriendAndHome(t *testing.T) {
	h := newHarness(t)
	h.fake.SeedUser("Ada", "Lovelace", "ada@example.com", "pw")
	bob := h.fake.SeedUser("Bob", "Babbage", "bob@example.com", "pw")
	h.fake.SeedPost(bob, "older", time.Now().Add(-time.Hour))
	h.fake.SeedPost(bob, "newer", time.Now())

	_, _, code := h.run(t, "", "login", "--email", "ada@example.com", "--password", "pw")
	require.Equal(t, 0, code)

	out, _, code := h.run(t, "", "toggle-friend", bob)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Added "+bob)

	out, _, code = h.run(t, "", "-o", "json", "home")
	require.Equal(t, 0, code)

	var home struct {
		Me      domain.Identity
		Friends []domain.FriendRef
		Feed    domain.Feed
	}
	require.NoError(t, json.Unmarshal([]byte(out), &home))
	assert.True(t, domain.IsFriend(home.Friends, bob))
	require.Len(t, home.Feed, 2)
	assert.Equal(t, "newer", home.Feed[0].Description)

	out, _, code = h.run(t, "", "toggle-friend", bob)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Removed "+bob)
}

func TestToggleFriend_Self(t *testing.T) {
	h := newHarness(t)
	ada := h.fake.SeedUser("Ada", "Lovelace", "ada@example.com", "pw")

	_, _, code := h.run(t, "", "login", "--email", "ada@example.com", "--password", "pw")
	require.Equal(t, 0, code)
	before := h.fake.Requests()

	_, errOut, code := h.run(t, "", "toggle-friend", ada)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "You cannot add or remove yourself as a friend.")
	assert.Equal(t, before, h.fake.Requests())
}

func TestPostAndFeed(t *testing.T) {
	h := newHarness(t)
	ada := h.fake.SeedUser("Ada", "Lovelace", "ada@example.com", "pw")

	_, _, code := h.run(t, "", "login", "--email", "ada@example.com", "--password", "pw")
	require.Equal(t, 0, code)

	out, _, code := h.run(t, "", "post", "-d", "hello from the terminal")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Posted")

	out, _, code = h.run(t, "", "feed", "--user", ada)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "hello from the terminal")
	assert.Contains(t, out, "Ada Lovelace ("+ada+")")

	_, errOut, code := h.run(t, "", "post")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Description is required")
}

func TestUnsupportedOutput(t *testing.T) {
	h := newHarness(t)

	_, errOut, code := h.run(t, "", "-o", "yaml", "whoami")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unsupported output format")
}

func TestRejectedSessionLogsOut(t *testing.T) {
	for _, args := range [][]string{{"feed"}, {"feed", "--user", "u1"}, {"friends"}, {"friends", "u1"}} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			h := newHarness(t)
			h.fake.SeedUser("Ada", "Lovelace", "ada@example.com", "pw")

			_, _, code := h.run(t, "", "login", "--email", "ada@example.com", "--password", "pw")
			require.Equal(t, 0, code)

			h.fake.FailNext(http.StatusUnauthorized, "Invalid or expired token")
			_, errOut, code := h.run(t, "", args...)
			assert.Equal(t, 1, code)
			assert.Contains(t, errOut, "Invalid or expired token")

			_, errOut, code = h.run(t, "", "whoami")
			assert.Equal(t, 1, code)
			assert.Contains(t, errOut, "Please log in first.")
		})
	}
}

func TestMetricsFlag(t *testing.T) {
	h := newHarness(t)
	h.fake.SeedUser("Ada", "Lovelace", "ada@example.com", "pw")

	_, _, code := h.run(t, "", "login", "--email", "ada@example.com", "--password", "pw")
	require.Equal(t, 0, code)

	_, errOut, code := h.run(t, "", "--metrics", "feed")
	require.Equal(t, 0, code)
	assert.Contains(t, errOut, `connectify_api_requests_total{method="GET",outcome="ok"} 1`)
	assert.Contains(t, errOut, "connectify_api_request_duration_seconds_bucket")

	_, errOut, code = h.run(t, "", "feed")
	require.Equal(t, 0, code)
	assert.NotContains(t, errOut, "connectify_api_requests_total")
}
