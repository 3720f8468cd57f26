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
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/nscaledev/taskflow-apitest/pkg/apitest"

	"sigs.k8s.io/controller-runtime/pkg/log"
)

// Runner executes the scenario against one server. A Runner owns all state
// for a single run and must not be reused for another.
type Runner struct {
	// client issues the requests.
	client *apitest.APIClient

	// fixtures are the credentials for each role.
	fixtures apitest.Fixtures

	// managedUser is the user the admin creates and removes.
	managedUser apitest.CreateUserRequest

	// session holds tokens and IDs produced along the way.
	session *Session

	// metrics is optional.
	metrics *Metrics

	// strict stops the run at the first failure.
	strict bool
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithStrict stops the run at the first failed step.
func WithStrict(strict bool) RunnerOption {
	return func(r *Runner) {
		r.strict = strict
	}
}

// WithMetrics records step outcomes and durations.
func WithMetrics(metrics *Metrics) RunnerOption {
	return func(r *Runner) {
		r.metrics = metrics
	}
}

// WithManagedUser replaces the user created by the admin.
func WithManagedUser(user apitest.CreateUserRequest) RunnerOption {
	return func(r *Runner) {
		r.managedUser = user
	}
}

func NewRunner(client *apitest.APIClient, fixtures apitest.Fixtures, options ...RunnerOption) *Runner {
	r := &Runner{
		client:      client,
		fixtures:    fixtures,
		managedUser: apitest.DefaultManagedUser(),
		session:     NewSession(),
	}

	for _, o := range options {
		o(r)
	}

	return r
}

// Session exposes the run state.
func (r *Runner) Session() *Session {
	return r.session
}

// Register creates the user for a role. Both 200 and 201 are success, anything
// else is returned as a *apitest.StatusError carrying the status and raw body.
func (r *Runner) Register(ctx context.Context, role apitest.Role) (*apitest.Response, error) {
	credential, err := r.fixtures.For(role)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(ctx, http.MethodPost, r.client.Endpoints().Register(), "", apitest.NewRegisterRequest(credential))
	if err != nil {
		return nil, fmt.Errorf("registering %s: %w", role, err)
	}

	if err := resp.Expect(apitest.StatusOKOrCreated); err != nil {
		return resp, fmt.Errorf("registering %s: %w", role, err)
	}

	r.session.markRegistered(role)

	// Later steps that need this ID fail on their own if it is absent.
	id, err := apitest.ExtractID(resp.Body, fmt.Sprintf("id of registered %s user", role))
	if err != nil {
		log.FromContext(ctx).Info("registration response carried no user id", "role", role, "body", resp.Text())
		return resp, nil
	}

	r.session.SetID(UserDependency(role), id)

	return resp, nil
}

// Login authenticates a role and records its token.
func (r *Runner) Login(ctx context.Context, role apitest.Role) (string, error) {
	_, token, _, err := r.login(ctx, role)

	return token, err
}

// login returns the response and whether the body carried data after the
// first JSON value.
func (r *Runner) login(ctx context.Context, role apitest.Role) (*apitest.Response, string, bool, error) {
	credential, err := r.fixtures.For(role)
	if err != nil {
		return nil, "", false, err
	}

	resp, err := r.client.Do(ctx, http.MethodPost, r.client.Endpoints().Login(), "", apitest.NewLoginRequest(credential))
	if err != nil {
		return nil, "", false, fmt.Errorf("logging in %s: %w", role, err)
	}

	if err := resp.Expect(apitest.StatusOK); err != nil {
		return resp, "", false, fmt.Errorf("logging in %s: %w", role, err)
	}

	token, trailing, err := apitest.ParseLoginToken(role, resp.Body)
	if err != nil {
		return resp, "", trailing, fmt.Errorf("logging in %s: %w", role, err)
	}

	if trailing {
		// The server writes the token document and then the user document.
		log.FromContext(ctx).Info("login response has data after the first JSON value, the server is emitting duplicate documents", "role", role, "traceID", resp.TraceID)
	}

	r.session.setToken(role, token)

	return resp, token, trailing, nil
}

// AuthorizedCall sends a request as role. It fails without sending anything
// if the role has no token.
func (r *Runner) AuthorizedCall(ctx context.Context, method, path string, role apitest.Role, body any) (*apitest.Response, error) {
	token, err := r.session.Token(role)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	return r.client.Do(ctx, method, path, token, body)
}

// AnonymousCall sends a request with no credentials.
func (r *Runner) AnonymousCall(ctx context.Context, method, path string, body any) (*apitest.Response, error) {
	return r.client.Do(ctx, method, path, "", body)
}

// ExpectStatus fails unless the response status is one of expected.
func ExpectStatus(resp *apitest.Response, expected apitest.StatusSet) error {
	if resp == nil {
		return fmt.Errorf("%w: no response, expected %s", apitest.ErrUnexpectedStatus, expected)
	}

	return resp.Expect(expected)
}

// Run executes every step in order and returns the report. The error is the
// aggregate of all step failures plus, if the run stopped early, its cause. It
// is nil only when every step passed.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	logger := log.FromContext(ctx)

	report := NewReport(r.client.BaseURL())

	var halted string

	for _, s := range r.steps() {
		result := StepResult{
			Name: s.name,
		}

		if halted == "" && ctx.Err() != nil {
			halted = fmt.Sprintf("run cancelled: %v", context.Cause(ctx))
			report.Halt(fmt.Errorf("%w: run cancelled: %w", ErrHalted, context.Cause(ctx)))
		}

		if halted != "" {
			result.Outcome = OutcomeSkipped
			result.Detail = halted

			report.Add(result)
			r.metrics.observe(result)

			continue
		}

		start := time.Now()
		err := s.run(ctx, &result)
		result.Duration = Duration(time.Since(start))

		if err != nil {
			result.Outcome = OutcomeFailed
			result.Detail = err.Error()
			result.err = err

			logger.Info("step failed", "step", s.name, "method", result.Method, "path", result.Path, "role", result.Role, "status", result.StatusCode, "traceID", result.TraceID, "error", err.Error())

			if r.strict {
				halted = fmt.Sprintf("strict mode: run stopped after %q failed", s.name)
				report.Halt(fmt.Errorf("%w: strict mode stopped after %q failed", ErrHalted, s.name))
			}

			if ctx.Err() != nil {
				halted = fmt.Sprintf("run cancelled: %v", context.Cause(ctx))
				report.Halt(fmt.Errorf("%w: run cancelled: %w", ErrHalted, context.Cause(ctx)))
			}
		} else {
			result.Outcome = OutcomePassed

			logger.Info("step passed", "step", s.name, "status", result.StatusCode, "duration", time.Duration(result.Duration))
		}

		report.Add(result)
		r.metrics.observe(result)
	}

	return report, report.Err()
}
