package domain_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackmichael/connectify/internal/domain"
)

func TestUserSet_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want domain.UserSet
	}{
		{name: "map form", in: `{"u1":true,"u2":false}`, want: domain.UserSet{"u1": {}}},
		{name: "array form", in: `["u1","u3"]`, want: domain.UserSet{"u1": {}, "u3": {}}},
		{name: "null", in: `null`, want: domain.UserSet{}},
		{name: "empty map", in: `{}`, want: domain.UserSet{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got domain.UserSet
			require.NoError(t, json.Unmarshal([]byte(tt.in), &got))
			assert.Equal(t, tt.want, got)
		})
	}

	var bad domain.UserSet
	assert.Error(t, json.Unmarshal([]byte(`42`), &bad))
}

func TestPost_Likes(t *testing.T) {
	var p domain.Post
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"p1","firstName":"Ada","lastName":"Lovelace","likes":{"u1":true,"u2":true,"u3":false}}`), &p))

	assert.Equal(t, "Ada Lovelace", p.AuthorName())
	assert.Equal(t, 2, p.LikeCount())
	assert.True(t, p.LikedBy("u1"))
	assert.False(t, p.LikedBy("u3"))
}

func TestFriendRef_UnmarshalJSON(t *testing.T) {
	var friends []domain.FriendRef
	require.NoError(t, json.Unmarshal([]byte(`["u2",{"_id":"u3","firstName":"Cy","occupation":"Poet"}]`), &friends))

	assert.Equal(t, []domain.FriendRef{
		{ID: "u2"},
		{ID: "u3", FirstName: "Cy", Occupation: "Poet"},
	}, friends)

	var bad domain.FriendRef
	assert.Error(t, json.Unmarshal([]byte(`42`), &bad))
}

func TestWithoutSelf(t *testing.T) {
	in := []domain.FriendRef{{ID: "u1"}, {ID: "u2"}}

	assert.Equal(t, []domain.FriendRef{{ID: "u2"}}, domain.WithoutSelf(in, "u1"))
	assert.Equal(t, in, domain.WithoutSelf(in, ""))
	assert.Len(t, in, 2)
}

func TestIdentity_Clone(t *testing.T) {
	orig := domain.Identity{ID: "u1", Friends: []domain.FriendRef{{ID: "u2"}}}
	clone := orig.Clone()
	clone.Friends[0].ID = "changed"

	assert.Equal(t, "u2", orig.Friends[0].ID)
}

func TestScopeKey(t *testing.T) {
	assert.Equal(t, "global", domain.GlobalScope().Key())
	assert.Equal(t, "user:u1", domain.UserScope("u1").Key())
	assert.Equal(t, "user:u1", domain.UserScope("u1").String())
}

func TestUserMessage(t *testing.T) {
	const fallback = "Invalid email or password"

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{
			name: "server message",
			err:  &domain.APIError{Status: http.StatusBadRequest, Message: "User does not exist", HasMessage: true},
			want: "User does not exist",
		},
		{
			name: "no server message",
			err:  &domain.APIError{Status: http.StatusInternalServerError, Message: "request failed with status 500"},
			want: fallback,
		},
		{
			name: "wrapped api error",
			err:  fmt.Errorf("login: %w", &domain.APIError{Status: http.StatusBadRequest, Message: "Nope", HasMessage: true}),
			want: "Nope",
		},
		{name: "network", err: &domain.NetworkError{Err: errors.New("refused")}, want: domain.GenericFailureMessage},
		{name: "malformed", err: &domain.MalformedResponseError{Err: errors.New("eof")}, want: domain.GenericFailureMessage},
		{name: "self", err: &domain.SelfRelationshipError{UserID: "u1"}, want: "You cannot add or remove yourself as a friend."},
		{name: "no session", err: domain.ErrNoSession, want: "Please log in first."},
		{name: "other", err: errors.New("whatever"), want: fallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.UserMessage(tt.err, fallback))
		})
	}
}

func TestValidationError(t *testing.T) {
	err := &domain.ValidationError{Fields: map[string]string{
		"password": "Password is required",
		"email":    "Email is required",
	}}
	assert.Equal(t, "validation failed: Email is required; Password is required", err.Error())
	assert.Equal(t, err.Error(), domain.UserMessage(err, "x"))
}

func TestIsUnauthorized(t *testing.T) {
	assert.True(t, domain.IsUnauthorized(&domain.APIError{Status: http.StatusUnauthorized}))
	assert.True(t, domain.IsUnauthorized(fmt.Errorf("wrap: %w", &domain.APIError{Status: http.StatusForbidden})))
	assert.False(t, domain.IsUnauthorized(&domain.APIError{Status: http.StatusNotFound}))
	assert.False(t, domain.IsUnauthorized(&domain.NetworkError{}))
}
