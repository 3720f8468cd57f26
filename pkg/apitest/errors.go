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
	"errors"
	"fmt"
)

var (
	// ErrTransport is raised when a request never produced a response,
	// e.g. connection refused or a timeout.
	ErrTransport = errors.New("transport failure")

	// ErrUnexpectedStatus is raised when a response status is not one
	// the caller accepts.
	ErrUnexpectedStatus = errors.New("unexpected status code")

	// ErrMalformedResponse is raised when a response body cannot be decoded
	// or lacks a field the caller relies on.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrMissingToken is raised when an authorized call is attempted for
	// a role that has not logged in.
	ErrMissingToken = errors.New("no session token")

	// ErrMissingDependency is raised when a call needs a value an earlier
	// call failed to produce.
	ErrMissingDependency = errors.New("missing dependency")
)

// StatusError records everything needed to diagnose an unexpected status
// without re-running the request.
type StatusError struct {
	Method   string
	Path     string
	Expected StatusSet
	Status   int
	Body     string
	TraceID  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status code: expected %s, got %d, body: %s (trace ID: %s)", e.Method, e.Path, e.Expected, e.Status, e.Body, e.TraceID)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// MalformedResponseError is returned when a body cannot yield the value the
// caller asked for.
type MalformedResponseError struct {
	// What names the value, e.g. "token for role admin".
	What string
	// Body is the raw response text.
	Body string
	// Err is the underlying decode error, if any.
	Err error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v, response text: %s", ErrMalformedResponse, e.What, e.Err, e.Body)
	}

	return fmt.Sprintf("%v: %s not found, response text: %s", ErrMalformedResponse, e.What, e.Body)
}

func (e *MalformedResponseError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedResponse, e.Err}
	}

	return []error{ErrMalformedResponse}
}

// MissingDependencyError names the value a step needed but did not have.
type MissingDependencyError struct {
	Dependency string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("%v: %s was not produced by an earlier step", ErrMissingDependency, e.Dependency)
}

func (e *MissingDependencyError) Unwrap() error {
	return ErrMissingDependency
}
