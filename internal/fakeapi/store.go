package fakeapi

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type user struct {
	ID            string   `json:"_id"`
	FirstName     string   `json:"firstName"`
	LastName      string   `json:"lastName"`
	Email         string   `json:"email"`
	Location      string   `json:"location"`
	Occupation    string   `json:"occupation"`
	PicturePath   string   `json:"picturePath"`
	Friends       []string `json:"friends"`
	ViewedProfile int      `json:"viewedProfile"`
	Impressions   int      `json:"impressions"`

	password string
}

type friend struct {
	ID          string `json:"_id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Occupation  string `json:"occupation"`
	Location    string `json:"location"`
	PicturePath string `json:"picturePath"`
}

type post struct {
	ID              string          `json:"_id"`
	UserID          string          `json:"userId"`
	FirstName       string          `json:"firstName"`
	LastName        string          `json:"lastName"`
	Location        string          `json:"location"`
	Description     string          `json:"description"`
	PicturePath     string          `json:"picturePath"`
	UserPicturePath string          `json:"userPicturePath"`
	Likes           map[string]bool `json:"likes"`
	Comments        []string        `json:"comments"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// memory is the fake's state. Posts are kept in insertion order, which is
// what the real server returns.
type memory struct {
	mu     sync.Mutex
	users  map[string]*user
	posts  []post
	assets map[string][]byte
}

func newMemory() *memory {
	return &memory{
		users:  make(map[string]*user),
		assets: make(map[string][]byte),
	}
}

func (m *memory) userByEmail(email string) *user {
	for _, u := range m.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (m *memory) addUser(u user) *user {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Friends == nil {
		u.Friends = []string{}
	}
	stored := u
	m.users[u.ID] = &stored
	return &stored
}

func (m *memory) friendsOf(u *user) []friend {
	out := make([]friend, 0, len(u.Friends))
	for _, id := range u.Friends {
		f, ok := m.users[id]
		if !ok {
			continue
		}
		out = append(out, friend{
			ID:          f.ID,
			FirstName:   f.FirstName,
			LastName:    f.LastName,
			Occupation:  f.Occupation,
			Location:    f.Location,
			PicturePath: f.PicturePath,
		})
	}
	return out
}

// toggle flips the symmetric edge between a and b.
func (m *memory) toggle(a, b *user) {
	if contains(a.Friends, b.ID) {
		a.Friends = remove(a.Friends, b.ID)
		b.Friends = remove(b.Friends, a.ID)
		return
	}
	a.Friends = append(a.Friends, b.ID)
	b.Friends = append(b.Friends, a.ID)
}

func (m *memory) postsBy(userID string) []post {
	out := []post{}
	for _, p := range m.posts {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out
}

func (m *memory) allPosts() []post {
	out := make([]post, len(m.posts))
	copy(out, m.posts)
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
