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
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeFirst decodes the first JSON value in body into v and ignores whatever
// follows it. The returned flag is true when non-whitespace data followed the
// first value, which for this API means the server emitted more than one
// document into a single response.
func DecodeFirst(body []byte, v any) (bool, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))

	if err := decoder.Decode(v); err != nil {
		return false, fmt.Errorf("decoding first json value: %w", err)
	}

	rest := bytes.TrimSpace(body[decoder.InputOffset():])

	return len(rest) > 0, nil
}

// ResourceID is an opaque identifier returned by a create call. It keeps the
// JSON form the server used, so a numeric ID is sent back as a number and a
// string ID as a string.
type ResourceID struct {
	raw json.RawMessage
}

// NewResourceID wraps a string identifier.
func NewResourceID(id string) ResourceID {
	raw, _ := json.Marshal(id)

	return ResourceID{raw: raw}
}

// IsZero is true when no identifier was returned.
func (id ResourceID) IsZero() bool {
	return len(id.raw) == 0
}

// String returns the identifier as it should appear in a URL path.
func (id ResourceID) String() string {
	var s string
	if err := json.Unmarshal(id.raw, &s); err == nil {
		return s
	}

	return string(id.raw)
}

func (id ResourceID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}

	return id.raw, nil
}

func (id *ResourceID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)

	switch {
	case bytes.Equal(trimmed, []byte("null")), bytes.Equal(trimmed, []byte(`""`)):
		id.raw = nil
		return nil
	case trimmed[0] == '"', trimmed[0] == '-', trimmed[0] >= '0' && trimmed[0] <= '9':
		id.raw = append(json.RawMessage(nil), trimmed...)
		return nil
	}

	return fmt.Errorf("%w: identifier must be a string or number, got %s", ErrMalformedResponse, trimmed)
}

// ExtractID reads the "id" field of the first JSON value in body.
func ExtractID(body []byte, what string) (ResourceID, error) {
	var result struct {
		ID ResourceID `json:"id"`
	}

	if _, err := DecodeFirst(body, &result); err != nil {
		return ResourceID{}, &MalformedResponseError{What: what, Body: string(body), Err: err}
	}

	if result.ID.IsZero() {
		return ResourceID{}, &MalformedResponseError{What: what, Body: string(body)}
	}

	return result.ID, nil
}

// ParseLoginToken extracts the bearer token from a login response. Only the
// first JSON value is read; trailing reports whether more data followed it.
func ParseLoginToken(role Role, body []byte) (token string, trailing bool, err error) {
	what := fmt.Sprintf("token for role %s", role)

	var result LoginResponse

	trailing, err = DecodeFirst(body, &result)
	if err != nil {
		return "", false, &MalformedResponseError{What: what, Body: string(body), Err: err}
	}

	if result.Token == "" {
		return "", trailing, &MalformedResponseError{What: what, Body: string(body)}
	}

	return result.Token, trailing, nil
}
