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

package apitest

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"k8s.io/utils/ptr"
)

func generateRandomName(prefix string) string {
	bytes := make([]byte, 4) // 8 hex characters
	_, _ = rand.Read(bytes)

	return fmt.Sprintf("%s-%s", prefix, hex.EncodeToString(bytes))
}

// GenerateTestID returns a short random identifier, e.g. "test-1a2b3c4d".
func GenerateTestID() string {
	return generateRandomName("test")
}

// WithSuffix returns a copy of the fixtures whose usernames and email
// addresses carry the given suffix, so repeated runs against a persistent
// server do not collide.
func (f Fixtures) WithSuffix(suffix string) Fixtures {
	for _, c := range []*Credential{&f.Regular, &f.Admin} {
		c.Username = c.Username + "_" + suffix

		if local, domain, ok := strings.Cut(c.Email, "@"); ok {
			c.Email = local + "+" + suffix + "@" + domain
		}
	}

	return f
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

// NewRegisterRequest builds a registration for a credential.
func NewRegisterRequest(c Credential) RegisterRequest {
	return RegisterRequest{
		Username: c.Username,
		Email:    c.Email,
		Password: c.Password,
		Role:     c.Role,
	}
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// NewLoginRequest builds a login for a credential.
func NewLoginRequest(c Credential) LoginRequest {
	return LoginRequest{
		Username: c.Username,
		Password: c.Password,
	}
}

// LoginResponse is the part of the login reply the harness reads.
type LoginResponse struct {
	Token string `json:"token"`
}

// CreateUserRequest is the body of POST /users/create.
type CreateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// DefaultManagedUser is the user an admin creates during the scenario.
func DefaultManagedUser() CreateUserRequest {
	return CreateUserRequest{
		Username: "newuser",
		Email:    "newuser@example.com",
		Password: "newuserpass",
	}
}

// WithSuffix returns a copy of the user whose username and email address
// carry the given suffix.
func (u CreateUserRequest) WithSuffix(suffix string) CreateUserRequest {
	u.Username = u.Username + "_" + suffix

	if local, domain, ok := strings.Cut(u.Email, "@"); ok {
		u.Email = local + "+" + suffix + "@" + domain
	}

	return u
}

// TaskRequest is the body of POST /tasks/create and PUT /tasks/update/{id}.
type TaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

// TaskResponse is the part of a task document the harness checks.
type TaskResponse struct {
	ID          ResourceID `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	AssignedTo  ResourceID `json:"assigned_to"`
}

// TaskPayloadBuilder builds task payloads for testing.
type TaskPayloadBuilder struct {
	payload TaskRequest
}

// NewTaskPayload creates a task payload builder with the scenario defaults.
func NewTaskPayload() *TaskPayloadBuilder {
	return &TaskPayloadBuilder{
		payload: TaskRequest{
			Title:       "New Task",
			Description: ptr.To("Do something"),
		},
	}
}

// NewTaskUpdatePayload creates a task payload builder with the values the
// scenario updates a task to.
func NewTaskUpdatePayload() *TaskPayloadBuilder {
	return NewTaskPayload().
		WithTitle("Updated Task").
		WithDescription("Do something else")
}

// WithTitle sets the task title.
func (b *TaskPayloadBuilder) WithTitle(title string) *TaskPayloadBuilder {
	b.payload.Title = title
	return b
}

// WithDescription sets the task description.
func (b *TaskPayloadBuilder) WithDescription(desc string) *TaskPayloadBuilder {
	b.payload.Description = ptr.To(desc)
	return b
}

// WithoutDescription omits the description from the payload.
func (b *TaskPayloadBuilder) WithoutDescription() *TaskPayloadBuilder {
	b.payload.Description = nil
	return b
}

// Build returns the completed task payload.
func (b *TaskPayloadBuilder) Build() TaskRequest {
	return b.payload
}

// AssignTaskRequest is the body of PUT /tasks/assign/{id}.
type AssignTaskRequest struct {
	AssignedTo ResourceID `json:"assigned_to"`
}

// BillingRequest is the body of POST /billings/create.
type BillingRequest struct {
	TaskID ResourceID `json:"task_id"`
	UserID ResourceID `json:"user_id"`
	Amount float64    `json:"amount"`
}

// DefaultBillingAmount is what the scenario bills for a task.
const DefaultBillingAmount = 100
