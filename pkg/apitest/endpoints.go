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
	"fmt"
	"net/url"
)

// Endpoints contains all API endpoint patterns.
type Endpoints struct{}

// NewEndpoints creates a new Endpoints instance.
func NewEndpoints() *Endpoints {
	return &Endpoints{}
}

// Authentication endpoints.
func (e *Endpoints) Register() string {
	return "/auth/register"
}

func (e *Endpoints) Login() string {
	return "/auth/login"
}

// User management endpoints.
func (e *Endpoints) CreateUser() string {
	return "/users/create"
}

func (e *Endpoints) ListUsers() string {
	return "/users/list"
}

func (e *Endpoints) RemoveUser(userID string) string {
	return fmt.Sprintf("/users/remove/%s", url.PathEscape(userID))
}

// Task management endpoints.
func (e *Endpoints) CreateTask() string {
	return "/tasks/create"
}

func (e *Endpoints) AssignTask(taskID string) string {
	return fmt.Sprintf("/tasks/assign/%s", url.PathEscape(taskID))
}

func (e *Endpoints) UpdateTask(taskID string) string {
	return fmt.Sprintf("/tasks/update/%s", url.PathEscape(taskID))
}

func (e *Endpoints) GetTask(taskID string) string {
	return fmt.Sprintf("/tasks/get/%s", url.PathEscape(taskID))
}

func (e *Endpoints) RemoveTask(taskID string) string {
	return fmt.Sprintf("/tasks/remove/%s", url.PathEscape(taskID))
}

// Billing endpoints.
func (e *Endpoints) CreateBilling() string {
	return "/billings/create"
}
