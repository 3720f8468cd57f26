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

	"github.com/nscaledev/taskflow-apitest/pkg/apitest"
)

// Step names, in execution order.
const (
	StepRegisterRegular   = "register regular"
	StepRegisterAdmin     = "register admin"
	StepLoginRegular      = "login regular"
	StepLoginAdmin        = "login admin"
	StepCreateUser        = "create user"
	StepListUsers         = "list users"
	StepCreateTask        = "create task"
	StepAssignTask        = "assign task"
	StepUpdateTask        = "update task"
	StepViewTask          = "view task"
	StepCreateBilling     = "create billing"
	StepRemoveTask        = "remove task"
	StepRemoveRegularUser = "remove regular user"
	StepRemoveCreatedUser = "remove created user"
)

// trailingDataDetail is noted on a passing login whose body held more than
// one JSON document.
const trailingDataDetail = "response carried data after the first JSON value (server emits duplicate documents)"

type step struct {
	name string
	run  func(ctx context.Context, result *StepResult) error
}

// StepNames lists the scenario in execution order.
func StepNames() []string {
	r := &Runner{}

	steps := r.steps()

	names := make([]string, len(steps))

	for i := range steps {
		names[i] = steps[i].name
	}

	return names
}

// registerStepName and loginStepName give e.g. StepRegisterRegular.
func registerStepName(role apitest.Role) string {
	return "register " + string(role)
}

func loginStepName(role apitest.Role) string {
	return "login " + string(role)
}

func (r *Runner) steps() []step {
	var steps []step

	// Every role registers before any role logs in.
	for _, role := range apitest.Roles() {
		steps = append(steps, step{name: registerStepName(role), run: r.registerStep(role)})
	}

	for _, role := range apitest.Roles() {
		steps = append(steps, step{name: loginStepName(role), run: r.loginStep(role)})
	}

	return append(steps, []step{
		{name: StepCreateUser, run: r.createUser},
		{name: StepListUsers, run: r.listUsers},
		{name: StepCreateTask, run: r.createTask},
		{name: StepAssignTask, run: r.assignTask},
		{name: StepUpdateTask, run: r.updateTask},
		{name: StepViewTask, run: r.viewTask},
		{name: StepCreateBilling, run: r.createBilling},
		{name: StepRemoveTask, run: r.removeTask},
		{name: StepRemoveRegularUser, run: r.removeUserStep(UserDependency(apitest.RoleRegular))},
		{name: StepRemoveCreatedUser, run: r.removeUserStep(DependencyManagedUser)},
	}...)
}

// record copies what is known about a response into the step result.
func record(result *StepResult, resp *apitest.Response) {
	if resp == nil {
		return
	}

	result.StatusCode = resp.StatusCode
	result.TraceID = resp.TraceID
}

// call sends a request as role, or anonymously when role is empty, and checks
// the status.
func (r *Runner) call(ctx context.Context, result *StepResult, method, path string, role apitest.Role, body any, expected apitest.StatusSet) (*apitest.Response, error) {
	result.Method = method
	result.Path = path
	result.Role = role

	var (
		resp *apitest.Response
		err  error
	)

	if role == "" {
		resp, err = r.AnonymousCall(ctx, method, path, body)
	} else {
		resp, err = r.AuthorizedCall(ctx, method, path, role, body)
	}

	if err != nil {
		return nil, err
	}

	record(result, resp)

	if err := ExpectStatus(resp, expected); err != nil {
		return resp, err
	}

	return resp, nil
}

func (r *Runner) registerStep(role apitest.Role) func(context.Context, *StepResult) error {
	return func(ctx context.Context, result *StepResult) error {
		result.Method = http.MethodPost
		result.Path = r.client.Endpoints().Register()

		resp, err := r.Register(ctx, role)
		record(result, resp)

		return err
	}
}

func (r *Runner) loginStep(role apitest.Role) func(context.Context, *StepResult) error {
	return func(ctx context.Context, result *StepResult) error {
		result.Method = http.MethodPost
		result.Path = r.client.Endpoints().Login()

		resp, _, trailing, err := r.login(ctx, role)
		record(result, resp)

		if trailing {
			result.Detail = trailingDataDetail
		}

		return err
	}
}

func (r *Runner) createUser(ctx context.Context, result *StepResult) error {
	resp, err := r.call(ctx, result, http.MethodPost, r.client.Endpoints().CreateUser(), apitest.RoleAdmin, r.managedUser, apitest.StatusOKOrCreated)
	if err != nil {
		return err
	}

	id, err := apitest.ExtractID(resp.Body, "id of created user")
	if err != nil {
		return err
	}

	r.session.SetID(DependencyManagedUser, id)

	return nil
}

func (r *Runner) listUsers(ctx context.Context, result *StepResult) error {
	resp, err := r.call(ctx, result, http.MethodGet, r.client.Endpoints().ListUsers(), apitest.RoleAdmin, nil, apitest.StatusOK)
	if err != nil {
		return err
	}

	var users []map[string]any
	if _, err := apitest.DecodeFirst(resp.Body, &users); err != nil {
		return &apitest.MalformedResponseError{What: "user list", Body: resp.Text(), Err: err}
	}

	result.Detail = fmt.Sprintf("%d users", len(users))

	return nil
}

func (r *Runner) createTask(ctx context.Context, result *StepResult) error {
	resp, err := r.call(ctx, result, http.MethodPost, r.client.Endpoints().CreateTask(), apitest.RoleAdmin, apitest.NewTaskPayload().Build(), apitest.StatusCreated)
	if err != nil {
		return err
	}

	id, err := apitest.ExtractID(resp.Body, "id of created task")
	if err != nil {
		return err
	}

	r.session.SetID(DependencyTask, id)

	return nil
}

func (r *Runner) assignTask(ctx context.Context, result *StepResult) error {
	taskID, err := r.session.ID(DependencyTask)
	if err != nil {
		return err
	}

	userID, err := r.session.ID(UserDependency(apitest.RoleRegular))
	if err != nil {
		return err
	}

	body := apitest.AssignTaskRequest{
		AssignedTo: userID,
	}

	_, err = r.call(ctx, result, http.MethodPut, r.client.Endpoints().AssignTask(taskID.String()), apitest.RoleAdmin, body, apitest.StatusOK)

	return err
}

func (r *Runner) updateTask(ctx context.Context, result *StepResult) error {
	taskID, err := r.session.ID(DependencyTask)
	if err != nil {
		return err
	}

	_, err = r.call(ctx, result, http.MethodPut, r.client.Endpoints().UpdateTask(taskID.String()), apitest.RoleAdmin, apitest.NewTaskUpdatePayload().Build(), apitest.StatusOK)

	return err
}

func (r *Runner) viewTask(ctx context.Context, result *StepResult) error {
	taskID, err := r.session.ID(DependencyTask)
	if err != nil {
		return err
	}

	resp, err := r.call(ctx, result, http.MethodGet, r.client.Endpoints().GetTask(taskID.String()), "", nil, apitest.StatusOK)
	if err != nil {
		return err
	}

	var task apitest.TaskResponse
	if _, err := apitest.DecodeFirst(resp.Body, &task); err != nil {
		return &apitest.MalformedResponseError{What: "task document", Body: resp.Text(), Err: err}
	}

	expected := apitest.NewTaskUpdatePayload().Build()

	if task.Title != expected.Title {
		return fmt.Errorf("%w: task title is %q, expected %q, response text: %s", apitest.ErrMalformedResponse, task.Title, expected.Title, resp.Text())
	}

	result.Detail = fmt.Sprintf("title %q", task.Title)

	return nil
}

func (r *Runner) createBilling(ctx context.Context, result *StepResult) error {
	taskID, err := r.session.ID(DependencyTask)
	if err != nil {
		return err
	}

	userID, err := r.session.ID(UserDependency(apitest.RoleRegular))
	if err != nil {
		return err
	}

	body := apitest.BillingRequest{
		TaskID: taskID,
		UserID: userID,
		Amount: apitest.DefaultBillingAmount,
	}

	resp, err := r.call(ctx, result, http.MethodPost, r.client.Endpoints().CreateBilling(), apitest.RoleAdmin, body, apitest.StatusCreated)
	if err != nil {
		return err
	}

	id, err := apitest.ExtractID(resp.Body, "id of created billing")
	if err != nil {
		return err
	}

	r.session.SetID(DependencyBilling, id)

	return nil
}

func (r *Runner) removeTask(ctx context.Context, result *StepResult) error {
	taskID, err := r.session.ID(DependencyTask)
	if err != nil {
		return err
	}

	if _, err := r.call(ctx, result, http.MethodDelete, r.client.Endpoints().RemoveTask(taskID.String()), apitest.RoleAdmin, nil, apitest.StatusOK); err != nil {
		return err
	}

	r.session.forget(DependencyTask)

	return nil
}

func (r *Runner) removeUserStep(dependency Dependency) func(context.Context, *StepResult) error {
	return func(ctx context.Context, result *StepResult) error {
		userID, err := r.session.ID(dependency)
		if err != nil {
			return err
		}

		if _, err := r.call(ctx, result, http.MethodDelete, r.client.Endpoints().RemoveUser(userID.String()), apitest.RoleAdmin, nil, apitest.StatusOK); err != nil {
			return err
		}

		r.session.forget(dependency)

		return nil
	}
}
