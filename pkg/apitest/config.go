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
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// CredentialOverride replaces parts of a default credential.
type CredentialOverride struct {
	Username string `env:"USERNAME" json:"username,omitempty"`
	Email    string `env:"EMAIL" json:"email,omitempty"`
	Password string `env:"PASSWORD" json:"password,omitempty"`
}

type TestConfig struct {
	BaseURL        string             `env:"API_BASE_URL, default=http://localhost:8000" validate:"required,url"`
	RequestTimeout time.Duration      `env:"REQUEST_TIMEOUT, default=30s" validate:"gt=0s"`
	FixturesFile   string             `env:"FIXTURES_FILE"`
	Strict         bool               `env:"STRICT, default=false"`
	LogRequests    bool               `env:"LOG_REQUESTS, default=false"`
	LogResponses   bool               `env:"LOG_RESPONSES, default=false"`
	Regular        CredentialOverride `env:", prefix=REGULAR_"`
	Admin          CredentialOverride `env:", prefix=ADMIN_"`
}

// LoadTestConfig loads configuration from environment variables and .env files.
// Returns an error if the resulting configuration is unusable.
func LoadTestConfig(ctx context.Context) (*TestConfig, error) {
	loadEnvFile()

	return LoadTestConfigWith(ctx, envconfig.OsLookuper())
}

// LoadTestConfigWith loads configuration from an arbitrary source, allowing
// tests to avoid the process environment.
func LoadTestConfigWith(ctx context.Context, lookuper envconfig.Lookuper) (*TestConfig, error) {
	config := &TestConfig{}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   config,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration is usable, it must be called again after
// any programmatic changes e.g. from command line flags.
func (c *TestConfig) Validate() error {
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")

	if err := validator.New().Struct(c); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			fields := make([]string, 0, len(ve))

			for _, fe := range ve {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}

			return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
		}

		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}

// Fixtures resolves the credentials for the run: the defaults, then the
// fixtures file if one is configured, then any per role overrides.
func (c *TestConfig) Fixtures() (Fixtures, error) {
	fixtures := DefaultFixtures()

	if c.FixturesFile != "" {
		loaded, err := LoadFixtures(c.FixturesFile, fixtures)
		if err != nil {
			return Fixtures{}, err
		}

		fixtures = loaded
	}

	fixtures.Regular.merge(c.Regular)
	fixtures.Admin.merge(c.Admin)

	if err := fixtures.Validate(); err != nil {
		return Fixtures{}, err
	}

	return fixtures, nil
}

func loadEnvFile() {
	envPaths := []string{
		".env",
		"test/.env",
	}

	var envPath string

	for _, path := range envPaths {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				envPath = absPath
				break
			}
		}
	}

	if envPath == "" {
		// .env file not found - this is OK in CI/CD where env vars are set directly
		return
	}

	// Existing environment variables take precedence over the file.
	if err := godotenv.Load(envPath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env file from %s: %v\n", envPath, err)
	}
}
