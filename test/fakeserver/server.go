/*
Copyright 2026 Nscale.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package fakeserver is an in memory implementation of the task management API
// that behaves like the deployed service, including its known defects, so the
// harness can be tested without one.
package fakeserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// RecordedRequest is what the server saw of a request.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	ContentType   string
}

type fault struct {
	status int
	body   string
}

type user struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`

	hash []byte
}

type task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	AssignedTo  string `json:"assigned_to,omitempty"`
	Status      string `json:"status"`
}

type billing struct {
	ID     string  `json:"id"`
	TaskID string  `json:"task_id"`
	UserID string  `json:"user_id"`
	Amount float64 `json:"amount"`
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type claimsKey struct{}

// Server holds all state in memory and is safe for concurrent use.
type Server struct {
	lock sync.Mutex

	secret   []byte
	validate *validator.Validate

	// duplicateLogin makes login write the user document after the token
	// document, as the deployed service does.
	duplicateLogin bool

	users    map[string]*user
	tasks    map[string]*task
	billings map[string]*billing

	faults   map[string]fault
	requests []RecordedRequest
}

// Option configures a Server.
type Option func(*Server)

// WithDuplicateLogin controls whether login responses carry a second JSON
// document. It defaults to on.
func WithDuplicateLogin(enabled bool) Option {
	return func(s *Server) {
		s.duplicateLogin = enabled
	}
}

func New(options ...Option) *Server {
	s := &Server{
		secret:         []byte(uuid.NewString()),
		validate:       validator.New(),
		duplicateLogin: true,
		users:          map[string]*user{},
		tasks:          map[string]*task{},
		billings:       map[string]*billing{},
		faults:         map[string]fault{},
	}

	for _, o := range options {
		o(s)
	}

	return s
}

func faultKey(method, path string) string {
	return method + " " + path
}

// InjectFault makes method+path answer with a fixed status and raw body. A
// path ending in "*" matches any path with that prefix.
func (s *Server) InjectFault(method, path string, status int, body string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.faults[faultKey(method, path)] = fault{status: status, body: body}
}

// Requests returns every request received so far.
func (s *Server) Requests() []RecordedRequest {
	s.lock.Lock()
	defer s.lock.Unlock()

	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)

	return out
}

// BillingCount is the number of billing records.
func (s *Server) BillingCount() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return len(s.billings)
}

// Handler returns the HTTP handler for all endpoints.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(s.recordRequests, s.injectFaults)

	r.Post("/auth/register", s.register)
	r.Post("/auth/login", s.login)
	r.Get("/tasks/get/{id}", s.getTask)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate, s.requireAdmin)

		r.Post("/users/create", s.createUser)
		r.Get("/users/list", s.listUsers)
		r.Delete("/users/remove/{id}", s.removeUser)

		r.Post("/tasks/create", s.createTask)
		r.Put("/tasks/assign/{id}", s.assignTask)
		r.Put("/tasks/update/{id}", s.updateTask)
		r.Delete("/tasks/remove/{id}", s.removeTask)

		r.Post("/billings/create", s.createBilling)
	})

	return r
}

func (s *Server) recordRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.lock.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			ContentType:   r.Header.Get("Content-Type"),
		})
		s.lock.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := s.fault(r.Method, r.URL.Path)

		if ok {
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(f.body))

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) fault(method, path string) (fault, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if f, ok := s.faults[faultKey(method, path)]; ok {
		return f, true
	}

	for key, f := range s.faults {
		prefix, ok := strings.CutSuffix(key, "*")
		if ok && strings.HasPrefix(faultKey(method, path), prefix) {
			return f, true
		}
	}

	return fault{}, false
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			http.Error(w, "Missing authorization token", http.StatusUnauthorized)
			return
		}

		c := &claims{}

		token, err := jwt.ParseWithClaims(parts[1], c, func(_ *jwt.Token) (any, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, c)))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := r.Context().Value(claimsKey{}).(*claims)
		if !ok || c.Role != "admin" {
			http.Error(w, "Admin access required", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads and validates a request body.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}

	if err := s.validate.Struct(v); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			http.Error(w, fmt.Sprintf("%s failed validation (%s)", strings.ToLower(ve[0].Field()), ve[0].Tag()), http.StatusBadRequest)
			return false
		}

		http.Error(w, err.Error(), http.StatusBadRequest)

		return false
	}

	return true
}

type userRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"`
}

// addUser must be called with the lock held.
func (s *Server) addUser(w http.ResponseWriter, req *userRequest) {
	for _, u := range s.users {
		if u.Username == req.Username {
			http.Error(w, "User with the same username already exists", http.StatusConflict)
			return
		}

		if u.Email == req.Email {
			http.Error(w, "User with the same email already exists", http.StatusConflict)
			return
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	role := req.Role
	if role == "" {
		role = "regular"
	}

	u := &user{
		ID:       uuid.NewString(),
		Username: req.Username,
		Email:    req.Email,
		Role:     role,
		hash:     hash,
	}

	s.users[u.ID] = u

	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	req := &userRequest{}
	if !s.decode(w, r, req) {
		return
	}

	if req.Role != "admin" && req.Role != "regular" {
		http.Error(w, "Invalid user role", http.StatusBadRequest)
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	s.addUser(w, req)
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	req := &loginRequest{}
	if !s.decode(w, r, req) {
		return
	}

	s.lock.Lock()

	var found *user

	for _, u := range s.users {
		if u.Username == req.Username {
			found = u
			break
		}
	}

	s.lock.Unlock()

	if found == nil || bcrypt.CompareHashAndPassword(found.hash, []byte(req.Password)) != nil {
		http.Error(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
		Role: found.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   found.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}).SignedString(s.secret)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	encoder := json.NewEncoder(w)
	_ = encoder.Encode(map[string]string{"token": token})

	if s.duplicateLogin {
		_ = encoder.Encode(found)
	}
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	req := &userRequest{}
	if !s.decode(w, r, req) {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	s.addUser(w, req)
}

func (s *Server) listUsers(w http.ResponseWriter, _ *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()

	out := make([]*user, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) removeUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.users[id]; !ok {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	delete(s.users, id)

	writeJSON(w, http.StatusOK, map[string]string{"message": "User removed successfully"})
}

type taskRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	req := &taskRequest{}
	if !s.decode(w, r, req) {
		return
	}

	t := &task{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Status:      "open",
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	s.tasks[t.ID] = t

	writeJSON(w, http.StatusCreated, t)
}

type assignRequest struct {
	AssignedTo string `json:"assigned_to" validate:"required"`
}

func (s *Server) assignTask(w http.ResponseWriter, r *http.Request) {
	req := &assignRequest{}
	if !s.decode(w, r, req) {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	t, ok := s.tasks[chi.URLParam(r, "id")]
	if !ok {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}

	if _, ok := s.users[req.AssignedTo]; !ok {
		http.Error(w, "Assigned user does not exist", http.StatusBadRequest)
		return
	}

	t.AssignedTo = req.AssignedTo
	t.Status = "assigned"

	writeJSON(w, http.StatusOK, t)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	req := &taskRequest{}
	if !s.decode(w, r, req) {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	t, ok := s.tasks[chi.URLParam(r, "id")]
	if !ok {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}

	t.Title = req.Title
	t.Description = req.Description

	writeJSON(w, http.StatusOK, t)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()

	t, ok := s.tasks[chi.URLParam(r, "id")]
	if !ok {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, t)
}

func (s *Server) removeTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.tasks[id]; !ok {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}

	delete(s.tasks, id)

	writeJSON(w, http.StatusOK, map[string]string{"message": "Task removed successfully"})
}

type billingRequest struct {
	TaskID string  `json:"task_id" validate:"required"`
	UserID string  `json:"user_id" validate:"required"`
	Amount float64 `json:"amount" validate:"gt=0"`
}

func (s *Server) createBilling(w http.ResponseWriter, r *http.Request) {
	req := &billingRequest{}
	if !s.decode(w, r, req) {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.tasks[req.TaskID]; !ok {
		http.Error(w, "Task does not exist", http.StatusBadRequest)
		return
	}

	if _, ok := s.users[req.UserID]; !ok {
		http.Error(w, "User does not exist", http.StatusBadRequest)
		return
	}

	b := &billing{
		ID:     uuid.NewString(),
		TaskID: req.TaskID,
		UserID: req.UserID,
		Amount: req.Amount,
	}

	s.billings[b.ID] = b

	writeJSON(w, http.StatusCreated, b)
}
