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

package scenario

import (
	"fmt"

	"github.com/nscaledev/taskflow-apitest/pkg/apitest"
)

// State is where a role is in its lifecycle. States are ordered, LoggedIn
// implies Registered. There is no way back, there is no logout.
type State int

const (
	Unregistered State = iota
	Registered
	LoggedIn
)

func (s State) String() string {
	switch s {
	case Unregistered:
		return "Unregistered"
	case Registered:
		return "Registered"
	case LoggedIn:
		return "LoggedIn"
	}

	return fmt.Sprintf("State(%d)", int(s))
}

// Dependency names a value one step produces and a later step consumes.
type Dependency string

const (
	DependencyTask        Dependency = "task"
	DependencyBilling     Dependency = "billing"
	DependencyManagedUser Dependency = "user:managed"
)

// UserDependency is the ID of the user registered for a role.
func UserDependency(role apitest.Role) Dependency {
	return Dependency("user:" + string(role))
}

// Session is the state a single run accumulates: role states, tokens and
// resource IDs. Runs are sequential so it needs no locking.
type Session struct {
	states map[apitest.Role]State
	tokens map[apitest.Role]string
	ids    map[Dependency]apitest.ResourceID
}

func NewSession() *Session {
	return &Session{
		states: map[apitest.Role]State{},
		tokens: map[apitest.Role]string{},
		ids:    map[Dependency]apitest.ResourceID{},
	}
}

// State returns the lifecycle state of a role.
func (s *Session) State(role apitest.Role) State {
	return s.states[role]
}

func (s *Session) markRegistered(role apitest.Role) {
	if s.states[role] < Registered {
		s.states[role] = Registered
	}
}

// setToken records a token. A successful login proves the user exists, so a
// role whose registration failed (e.g. it already existed) passes through
// Registered straight to LoggedIn.
func (s *Session) setToken(role apitest.Role, token string) {
	s.markRegistered(role)

	s.tokens[role] = token
	s.states[role] = LoggedIn
}

// Token returns the bearer token for a role, or an error naming the role if
// it never logged in.
func (s *Session) Token(role apitest.Role) (string, error) {
	token, ok := s.tokens[role]
	if !ok || token == "" {
		return "", fmt.Errorf("%w for role %s: a successful login is required first", apitest.ErrMissingToken, role)
	}

	return token, nil
}

// SetID records a resource ID.
func (s *Session) SetID(dependency Dependency, id apitest.ResourceID) {
	s.ids[dependency] = id
}

// ID returns a recorded resource ID, or a *apitest.MissingDependencyError.
func (s *Session) ID(dependency Dependency) (apitest.ResourceID, error) {
	id, ok := s.ids[dependency]
	if !ok || id.IsZero() {
		return apitest.ResourceID{}, &apitest.MissingDependencyError{Dependency: string(dependency) + " id"}
	}

	return id, nil
}

// forget drops a resource ID once the resource is removed.
func (s *Session) forget(dependency Dependency) {
	delete(s.ids, dependency)
}
