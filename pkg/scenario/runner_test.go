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

package scenario_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/nscaledev/taskflow-apitest/pkg/apitest"
	"github.com/nscaledev/taskflow-apitest/pkg/apitest/mock"
	"github.com/nscaledev/taskflow-apitest/pkg/scenario"
	"github.com/nscaledev/taskflow-apitest/test/fakeserver"
)

func newClient(baseURL string, options ...apitest.Option) *apitest.APIClient {
	return apitest.NewAPIClient(&apitest.TestConfig{
		BaseURL:        baseURL,
		RequestTimeout: 5 * time.Second,
	}, options...)
}

// newStaticServer answers every request with the same status and body.
func newStaticServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))

	t.Cleanup(server.Close)

	return server
}

// newFakeServer starts an in memory API.
func newFakeServer(t *testing.T, options ...fakeserver.Option) (*fakeserver.Server, *httptest.Server) {
	t.Helper()

	fake := fakeserver.New(options...)

	server := httptest.NewServer(fake.Handler())

	t.Cleanup(server.Close)

	return fake, server
}

// TestRegisterCreated checks a 201 with an ID is success and the ID is kept.
func TestRegisterCreated(t *testing.T) {
	t.Parallel()

	server := newStaticServer(t, http.StatusCreated, `{"id": 42}`)

	runner := scenario.NewRunner(newClient(server.URL), apitest.DefaultFixtures())

	resp, err := runner.Register(t.Context(), apitest.RoleRegular)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.Equal(t, scenario.Registered, runner.Session().State(apitest.RoleRegular))

	id, err := runner.Session().ID(scenario.UserDependency(apitest.RoleRegular))
	require.NoError(t, err)
	require.Equal(t, "42", id.String())
}

// TestRegisterServerError checks the status and raw body are surfaced.
func TestRegisterServerError(t *testing.T) {
	t.Parallel()

	server := newStaticServer(t, http.StatusInternalServerError, "internal error")

	runner := scenario.NewRunner(newClient(server.URL), apitest.DefaultFixtures())

	_, err := runner.Register(t.Context(), apitest.RoleAdmin)
	require.ErrorIs(t, err, apitest.ErrUnexpectedStatus)
	require.Contains(t, err.Error(), "500")
	require.Contains(t, err.Error(), "internal error")
	require.Equal(t, scenario.Unregistered, runner.Session().State(apitest.RoleAdmin))

	report, err := runner.Run(t.Context())
	require.Error(t, err)
	require.False(t, report.Passed())

	result, ok := report.Step(scenario.StepRegisterRegular)
	require.True(t, ok)
	require.Equal(t, scenario.OutcomeFailed, result.Outcome)
	require.Equal(t, http.StatusInternalServerError, result.StatusCode)
	require.Contains(t, result.Detail, "500")
	require.Contains(t, result.Detail, "internal error")
}

// TestAuthorizedCallWithoutToken checks nothing is sent without a token, the
// mock has no expectations so any request fails the test.
func TestAuthorizedCallWithoutToken(t *testing.T) {
	t.Parallel()

	c := gomock.NewController(t)
	defer c.Finish()

	doer := mock.NewMockDoer(c)

	client := newClient("http://localhost:8000", apitest.WithDoer(doer))

	runner := scenario.NewRunner(client, apitest.DefaultFixtures())

	_, err := runner.AuthorizedCall(t.Context(), http.MethodGet, client.Endpoints().ListUsers(), apitest.RoleAdmin, nil)
	require.ErrorIs(t, err, apitest.ErrMissingToken)
	require.Contains(t, err.Error(), "role admin")
}

// TestLoginDuplicateDocuments checks the token is taken from the first
// document of a login response.
func TestLoginDuplicateDocuments(t *testing.T) {
	t.Parallel()

	_, server := newFakeServer(t, fakeserver.WithDuplicateLogin(true))

	runner := scenario.NewRunner(newClient(server.URL), apitest.DefaultFixtures())

	_, err := runner.Register(t.Context(), apitest.RoleAdmin)
	require.NoError(t, err)

	token, err := runner.Login(t.Context(), apitest.RoleAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, scenario.LoggedIn, runner.Session().State(apitest.RoleAdmin))

	stored, err := runner.Session().Token(apitest.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, token, stored)

	resp, err := runner.AuthorizedCall(t.Context(), http.MethodGet, "/users/list", apitest.RoleAdmin, nil)
	require.NoError(t, err)
	require.NoError(t, scenario.ExpectStatus(resp, apitest.StatusOK))
}

// TestLoginBadCredentials checks the failure names the role and body.
func TestLoginBadCredentials(t *testing.T) {
	t.Parallel()

	_, server := newFakeServer(t)

	runner := scenario.NewRunner(newClient(server.URL), apitest.DefaultFixtures())

	_, err := runner.Login(t.Context(), apitest.RoleRegular)
	require.ErrorIs(t, err, apitest.ErrUnexpectedStatus)
	require.Contains(t, err.Error(), "regular")
	require.Contains(t, err.Error(), "Invalid username or password")

	_, err = runner.Session().Token(apitest.RoleRegular)
	require.ErrorIs(t, err, apitest.ErrMissingToken)
}

// TestLoginMissingToken checks a 200 without a token is malformed.
func TestLoginMissingToken(t *testing.T) {
	t.Parallel()

	server := newStaticServer(t, http.StatusOK, `{"message":"ok"}`)

	runner := scenario.NewRunner(newClient(server.URL), apitest.DefaultFixtures())

	_, err := runner.Login(t.Context(), apitest.RoleAdmin)
	require.ErrorIs(t, err, apitest.ErrMalformedResponse)
	require.Contains(t, err.Error(), "token for role admin")
	require.Contains(t, err.Error(), `{"message":"ok"}`)
}

// TestDuplicateRegistration checks a second registration is not a success.
func TestDuplicateRegistration(t *testing.T) {
	t.Parallel()

	_, server := newFakeServer(t)

	runner := scenario.NewRunner(newClient(server.URL), apitest.DefaultFixtures())

	_, err := runner.Register(t.Context(), apitest.RoleRegular)
	require.NoError(t, err)

	resp, err := runner.Register(t.Context(), apitest.RoleRegular)
	require.ErrorIs(t, err, apitest.ErrUnexpectedStatus)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestExpectStatusNilResponse(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, scenario.ExpectStatus(nil, apitest.StatusOK), apitest.ErrUnexpectedStatus)
}

// TestRunPasses runs the whole scenario against the in memory API.
func TestRunPasses(t *testing.T) {
	t.Parallel()

	fake, server := newFakeServer(t)

	metrics := scenario.NewMetrics()

	runner := scenario.NewRunner(newClient(server.URL), apitest.DefaultFixtures(), scenario.WithMetrics(metrics))

	report, err := runner.Run(t.Context())
	require.NoError(t, err)
	require.True(t, report.Passed())
	require.Equal(t, len(scenario.StepNames()), report.Summary.Total)
	require.Equal(t, report.Summary.Total, report.Summary.Passed)

	for i, name := range scenario.StepNames() {
		require.Equal(t, name, report.Steps[i].Name)
	}

	login, ok := report.Step(scenario.StepLoginAdmin)
	require.True(t, ok)
	require.NotEmpty(t, login.Detail)

	view, ok := report.Step(scenario.StepViewTask)
	require.True(t, ok)
	require.Empty(t, view.Role)
	require.Contains(t, view.Detail, "Updated Task")

	require.Equal(t, 1, fake.BillingCount())

	// Only the admin remains.
	_, err = runner.Session().ID(scenario.DependencyTask)
	require.ErrorIs(t, err, apitest.ErrMissingDependency)

	userID, err := runner.Session().ID(scenario.UserDependency(apitest.RoleRegular))
	require.ErrorIs(t, err, apitest.ErrMissingDependency)
	require.True(t, userID.IsZero())
}

// TestRunMissingDependency checks a failed create fails its dependants without
// sending anything for them.
func TestRunMissingDependency(t *testing.T) {
	t.Parallel()

	fake, server := newFakeServer(t)
	fake.InjectFault(http.MethodPost, "/tasks/create", http.StatusInternalServerError, "internal error")

	runner := scenario.NewRunner(newClient(server.URL), apitest.DefaultFixtures())

	report, err := runner.Run(t.Context())
	require.Error(t, err)

	create, ok := report.Step(scenario.StepCreateTask)
	require.True(t, ok)
	require.Equal(t, scenario.OutcomeFailed, create.Outcome)
	require.Contains(t, create.Detail, "500")
	require.Contains(t, create.Detail, "internal error")

	for _, name := range []string{scenario.StepAssignTask, scenario.StepUpdateTask, scenario.StepViewTask, scenario.StepCreateBilling, scenario.StepRemoveTask} {
		result, ok := report.Step(name)
		require.True(t, ok)
		require.Equal(t, scenario.OutcomeFailed, result.Outcome, name)
		require.ErrorIs(t, result.Err(), apitest.ErrMissingDependency, name)
		require.Contains(t, result.Detail, "task id", name)
		require.Zero(t, result.StatusCode, name)
	}

	for _, r := range fake.Requests() {
		require.NotContains(t, r.Path, "/tasks/assign/", "no request may be sent without a task id")
	}

	// Independent steps still ran.
	remove, ok := report.Step(scenario.StepRemoveRegularUser)
	require.True(t, ok)
	require.Equal(t, scenario.OutcomePassed, remove.Outcome)
}

// TestRunStrict checks the first failure skips everything after it.
func TestRunStrict(t *testing.T) {
	t.Parallel()

	fake, server := newFakeServer(t)
	fake.InjectFault(http.MethodPost, "/users/create", http.StatusInternalServerError, "internal error")

	runner := scenario.NewRunner(newClient(server.URL), apitest.DefaultFixtures(), scenario.WithStrict(true))

	report, err := runner.Run(t.Context())
	require.ErrorIs(t, err, apitest.ErrUnexpectedStatus)
	require.ErrorIs(t, err, scenario.ErrHalted)

	require.Equal(t, 4, report.Summary.Passed)
	require.Equal(t, 1, report.Summary.Failed)
	require.Equal(t, len(scenario.StepNames())-5, report.Summary.Skipped)

	list, ok := report.Step(scenario.StepListUsers)
	require.True(t, ok)
	require.Equal(t, scenario.OutcomeSkipped, list.Outcome)
	require.Contains(t, list.Detail, scenario.StepCreateUser)
}

// TestRunCancelled checks a cancelled run sends nothing and skips every step.
func TestRunCancelled(t *testing.T) {
	t.Parallel()

	c := gomock.NewController(t)
	defer c.Finish()

	doer := mock.NewMockDoer(c)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	runner := scenario.NewRunner(newClient("http://localhost:8000", apitest.WithDoer(doer)), apitest.DefaultFixtures())

	report, err := runner.Run(ctx)
	require.ErrorIs(t, err, scenario.ErrHalted)
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, report.Passed())
	require.Equal(t, report.Summary.Total, report.Summary.Skipped)
	require.Zero(t, report.Summary.Passed)
}

// TestRunCancelledAgainstServer checks a run that did nothing is never
// reported as a success, and that the server saw no requests.
func TestRunCancelledAgainstServer(t *testing.T) {
	t.Parallel()

	fake, server := newFakeServer(t)

	ctx, cancel := context.WithCancelCause(t.Context())
	cancel(errors.New("interrupted"))

	runner := scenario.NewRunner(newClient(server.URL), apitest.DefaultFixtures())

	report, err := runner.Run(ctx)
	require.Error(t, err)
	require.ErrorIs(t, err, scenario.ErrHalted)
	require.Contains(t, err.Error(), "interrupted")
	require.Equal(t, len(scenario.StepNames()), report.Summary.Skipped)
	require.Empty(t, fake.Requests())
}

// TestRunSingleDocumentLogin checks the duplicate document note only appears
// when the server sends one.
func TestRunSingleDocumentLogin(t *testing.T) {
	t.Parallel()

	_, server := newFakeServer(t, fakeserver.WithDuplicateLogin(false))

	runner := scenario.NewRunner(newClient(server.URL), apitest.DefaultFixtures())

	report, err := runner.Run(t.Context())
	require.NoError(t, err)

	login, ok := report.Step(scenario.StepLoginRegular)
	require.True(t, ok)
	require.Equal(t, scenario.OutcomePassed, login.Outcome)
	require.Empty(t, login.Detail)
}

// TestStepOrder checks every role registers before any role logs in.
func TestStepOrder(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{
		scenario.StepRegisterRegular,
		scenario.StepRegisterAdmin,
		scenario.StepLoginRegular,
		scenario.StepLoginAdmin,
	}, scenario.StepNames()[:2*len(apitest.Roles())])
}

// TestLoginExistingUser checks a user registered by an earlier run can log in
// and is then both registered and logged in.
func TestLoginExistingUser(t *testing.T) {
	t.Parallel()

	_, server := newFakeServer(t)

	first := scenario.NewRunner(newClient(server.URL), apitest.DefaultFixtures())

	_, err := first.Register(t.Context(), apitest.RoleAdmin)
	require.NoError(t, err)

	runner := scenario.NewRunner(newClient(server.URL), apitest.DefaultFixtures())

	_, err = runner.Register(t.Context(), apitest.RoleAdmin)
	require.ErrorIs(t, err, apitest.ErrUnexpectedStatus)
	require.Equal(t, scenario.Unregistered, runner.Session().State(apitest.RoleAdmin))

	_, err = runner.Login(t.Context(), apitest.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, scenario.LoggedIn, runner.Session().State(apitest.RoleAdmin))
	require.GreaterOrEqual(t, runner.Session().State(apitest.RoleAdmin), scenario.Registered)
}
