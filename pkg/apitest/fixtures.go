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
	"os"

	"github.com/go-playground/validator/v10"

	"sigs.k8s.io/yaml"
)

// Role selects a set of credentials and the authorization level they carry.
type Role string

const (
	RoleRegular Role = "regular"
	RoleAdmin   Role = "admin"
)

// Roles lists every role in the order the scenario registers them.
func Roles() []Role {
	return []Role{RoleRegular, RoleAdmin}
}

// Credential is a static identity used for a whole run.
type Credential struct {
	Role     Role   `json:"role" validate:"required,oneof=regular admin"`
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Fixtures holds one credential per role.
type Fixtures struct {
	Regular Credential `json:"regular"`
	Admin   Credential `json:"admin"`
}

// DefaultFixtures returns the credentials the harness uses when nothing
// overrides them.
func DefaultFixtures() Fixtures {
	return Fixtures{
		Regular: Credential{
			Role:     RoleRegular,
			Username: "regular_user",
			Email:    "regular_user@example.com",
			Password: "regular_pass",
		},
		Admin: Credential{
			Role:     RoleAdmin,
			Username: "admin_user",
			Email:    "admin_user@example.com",
			Password: "admin_pass",
		},
	}
}

// For returns the credential for a role.
func (f *Fixtures) For(role Role) (Credential, error) {
	switch role {
	case RoleRegular:
		return f.Regular, nil
	case RoleAdmin:
		return f.Admin, nil
	}

	return Credential{}, fmt.Errorf("no credential fixture for role %q", role)
}

// Validate checks every credential is complete.
func (f *Fixtures) Validate() error {
	if err := validator.New().Struct(f); err != nil {
		return fmt.Errorf("invalid credential fixtures: %w", err)
	}

	return nil
}

// derivedEmail is the address a username gets when none is given.
func derivedEmail(username string) string {
	return username + "@example.com"
}

// merge overlays any non-empty fields of o onto c.
func (c *Credential) merge(o CredentialOverride) {
	if o.Username != "" {
		// Only an address derived from the old name follows the new one, an
		// address set explicitly by a lower layer is kept.
		if o.Email == "" && c.Email == derivedEmail(c.Username) {
			c.Email = derivedEmail(o.Username)
		}

		c.Username = o.Username
	}

	if o.Email != "" {
		c.Email = o.Email
	}

	if o.Password != "" {
		c.Password = o.Password
	}
}

// fixturesFile is the on disk form, where any field may be omitted.
type fixturesFile struct {
	Regular CredentialOverride `json:"regular"`
	Admin   CredentialOverride `json:"admin"`
}

// LoadFixtures overlays the YAML (or JSON) file at path onto base.
func LoadFixtures(path string, base Fixtures) (Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixtures{}, fmt.Errorf("reading fixtures file: %w", err)
	}

	var file fixturesFile
	if err := yaml.UnmarshalStrict(data, &file); err != nil {
		return Fixtures{}, fmt.Errorf("parsing fixtures file %s: %w", path, err)
	}

	base.Regular.merge(file.Regular)
	base.Admin.merge(file.Admin)

	return base, nil
}
