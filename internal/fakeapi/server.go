// Package fakeapi is an in-memory implementation of the Connectify HTTP API.
// It backs the client's tests and can be run locally with cmd/fakeapi.
package fakeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const maxUploadBytes = 10 << 20

// Config configures a Server.
type Config struct {
	// Port is the listen port used by Start.
	Port int

	// Secret signs issued tokens.
	Secret string

	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Server serves the fake API.
type Server struct {
	cfg        Config
	logger     *slog.Logger
	mem        *memory
	router     chi.Router
	httpServer *http.Server

	requests atomic.Int64
	failNext atomic.Pointer[failure]
}

type failure struct {
	status  int
	message string
}

// NewServer creates a fake API server with empty state.
func NewServer(cfg Config, logger *slog.Logger) *Server {
	if cfg.Secret == "" {
		cfg.Secret = "fakeapi-secret"
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Server{
		cfg:    cfg,
		logger: logger,
		mem:    newMemory(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.countRequests)
	r.Use(withLogging(logger))

	r.Get("/health", s.handleHealth)
	r.Get("/assets/{file}", s.handleAsset)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/register", s.handleRegister)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/users/{id}", s.handleGetUser)
		r.Get("/users/{id}/friends", s.handleGetFriends)
		r.Patch("/users/{id}/{friendId}", s.handleToggleFriend)
		r.Get("/posts", s.handleGetPosts)
		r.Get("/posts/{userId}/posts", s.handleGetUserPosts)
		r.Post("/posts", s.handleCreatePost)
	})

	s.router = r
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the root handler, for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.Info("starting fake API", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Requests returns how many requests the server has received.
func (s *Server) Requests() int64 {
	return s.requests.Load()
}

// FailNext makes the next request fail with status. An empty message sends
// a body without a message field.
func (s *Server) FailNext(status int, message string) {
	s.failNext.Store(&failure{status: status, message: message})
}

// SeedUser adds a user that can log in with password and returns its id.
func (s *Server) SeedUser(firstName, lastName, email, password string) string {
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()

	u := s.mem.addUser(user{
		FirstName:  firstName,
		LastName:   lastName,
		Email:      email,
		Location:   "Somewhere",
		Occupation: "Someone",
		password:   password,
	})
	return u.ID
}

// SeedPost adds a post by userID created at createdAt and returns its id.
func (s *Server) SeedPost(userID, description string, createdAt time.Time) string {
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()

	p := s.newPostLocked(s.mem.users[userID], description, "")
	p.CreatedAt = createdAt
	s.mem.posts = append(s.mem.posts, p)
	return p.ID
}

// IssueToken returns a valid token for userID.
func (s *Server) IssueToken(userID string) (string, error) {
	now := s.cfg.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		ID:        uuid.NewString(),
	})
	return token.SignedString([]byte(s.cfg.Secret))
}

// --- middleware ---

type subjectKey struct{}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		if f := s.failNext.Swap(nil); f != nil {
			if f.message == "" {
				writeJSON(w, f.status, map[string]string{})
				return
			}
			writeError(w, f.status, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusForbidden, "Access Denied")
			return
		}

		var claims jwt.RegisteredClaims
		_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
			return []byte(s.cfg.Secret), nil
		},
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithTimeFunc(s.cfg.Now),
		)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), subjectKey{}, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func withLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", r.Header.Get("X-Request-ID"),
			)
		})
	}
}

// --- handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	s.mem.mu.Lock()
	data, ok := s.mem.assets[chi.URLParam(r, "file")]
	s.mem.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "Asset not found")
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	_, _ = w.Write(data)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mem.mu.Lock()
	u := s.mem.userByEmail(body.Email)
	if u == nil || u.password != body.Password {
		s.mem.mu.Unlock()
		writeError(w, http.StatusBadRequest, "Invalid credentials")
		return
	}
	resp := userView(u)
	s.mem.mu.Unlock()

	token, err := s.IssueToken(resp.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": resp})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	form, err := readForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	for _, field := range []string{"firstName", "lastName", "email", "password"} {
		if form.values[field] == "" {
			writeError(w, http.StatusBadRequest, field+" is required")
			return
		}
	}

	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()

	if s.mem.userByEmail(form.values["email"]) != nil {
		writeError(w, http.StatusConflict, "Email already in use")
		return
	}

	picturePath := s.storeAssetLocked(form)
	u := s.mem.addUser(user{
		FirstName:     form.values["firstName"],
		LastName:      form.values["lastName"],
		Email:         form.values["email"],
		Location:      form.values["location"],
		Occupation:    form.values["occupation"],
		PicturePath:   picturePath,
		ViewedProfile: 0,
		Impressions:   0,
		password:      form.values["password"],
	})
	writeJSON(w, http.StatusCreated, userView(u))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()

	u, ok := s.mem.users[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, userView(u))
}

func (s *Server) handleGetFriends(w http.ResponseWriter, r *http.Request) {
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()

	u, ok := s.mem.users[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, s.mem.friendsOf(u))
}

func (s *Server) handleToggleFriend(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	friendID := chi.URLParam(r, "friendId")

	if subject, _ := r.Context().Value(subjectKey{}).(string); subject != id {
		writeError(w, http.StatusForbidden, "You can only change your own friends")
		return
	}
	if id == friendID {
		writeError(w, http.StatusBadRequest, "Cannot add yourself as a friend")
		return
	}

	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()

	u, ok := s.mem.users[id]
	f, fok := s.mem.users[friendID]
	if !ok || !fok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	s.mem.toggle(u, f)
	writeJSON(w, http.StatusOK, s.mem.friendsOf(u))
}

func (s *Server) handleGetPosts(w http.ResponseWriter, _ *http.Request) {
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()
	writeJSON(w, http.StatusOK, s.mem.allPosts())
}

func (s *Server) handleGetUserPosts(w http.ResponseWriter, r *http.Request) {
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()
	writeJSON(w, http.StatusOK, s.mem.postsBy(chi.URLParam(r, "userId")))
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	form, err := readForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()

	u, ok := s.mem.users[form.values["userId"]]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	p := s.newPostLocked(u, form.values["description"], s.storeAssetLocked(form))
	s.mem.posts = append(s.mem.posts, p)
	writeJSON(w, http.StatusCreated, s.mem.allPosts())
}

func (s *Server) newPostLocked(u *user, description, picturePath string) post {
	p := post{
		ID:          uuid.NewString(),
		Description: description,
		PicturePath: picturePath,
		Likes:       map[string]bool{},
		Comments:    []string{},
		CreatedAt:   s.cfg.Now().UTC(),
	}
	if u != nil {
		p.UserID = u.ID
		p.FirstName = u.FirstName
		p.LastName = u.LastName
		p.Location = u.Location
		p.UserPicturePath = u.PicturePath
	}
	return p
}

func (s *Server) storeAssetLocked(form *formData) string {
	if form.file == nil {
		return ""
	}
	name := form.filename
	if name == "" {
		name = uuid.NewString()
	}
	s.mem.assets[name] = form.file
	return name
}

// --- request/response helpers ---

type formData struct {
	values   map[string]string
	file     []byte
	filename string
}

// readForm accepts JSON or multipart bodies, as the real API does.
func readForm(r *http.Request) (*formData, error) {
	form := &formData{values: map[string]string{}}

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, errors.New("Invalid request body")
		}
		for k, v := range body {
			if str, ok := v.(string); ok {
				form.values[k] = str
			}
		}
		return form, nil
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, errors.New("Invalid multipart body")
	}
	for k, v := range r.MultipartForm.Value {
		if len(v) > 0 {
			form.values[k] = v[0]
		}
	}

	file, hdr, err := r.FormFile("picture")
	if errors.Is(err, http.ErrMissingFile) {
		return form, nil
	}
	if err != nil {
		return nil, errors.New("Invalid picture upload")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.New("Invalid picture upload")
	}
	form.file = data
	form.filename = hdr.Filename
	return form, nil
}

func userView(u *user) user {
	out := *u
	out.Friends = make([]string, len(u.Friends))
	copy(out.Friends, u.Friends)
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
