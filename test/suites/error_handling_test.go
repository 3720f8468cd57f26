package suites

import (
	"context"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nscaledev/taskflow-apitest/pkg/apitest"
	"github.com/nscaledev/taskflow-apitest/pkg/scenario"
)

var _ = Describe("Error Handling", func() {
	Context("When the server fails a request", func() {
		Describe("Given a 500 on task creation", func() {
			It("should report the status and body and carry on", func() {
				fake.InjectFault(http.MethodPost, "/tasks/create", http.StatusInternalServerError, "internal error")

				report, err := newRunner().Run(ctx)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("internal error"))

				create := stepResult(report, scenario.StepCreateTask)
				Expect(create.Outcome).To(Equal(scenario.OutcomeFailed))
				Expect(create.StatusCode).To(Equal(http.StatusInternalServerError))
				Expect(create.Detail).To(ContainSubstring("500"))
				Expect(create.Detail).To(ContainSubstring("internal error"))
				Expect(create.TraceID).NotTo(BeEmpty())

				Expect(stepResult(report, scenario.StepListUsers).Outcome).To(Equal(scenario.OutcomePassed))
				Expect(stepResult(report, scenario.StepRemoveRegularUser).Outcome).To(Equal(scenario.OutcomePassed))
			})

			It("should fail dependent steps naming the missing task id", func() {
				fake.InjectFault(http.MethodPost, "/tasks/create", http.StatusInternalServerError, "internal error")

				report, _ := newRunner().Run(ctx)

				for _, name := range []string{scenario.StepAssignTask, scenario.StepUpdateTask, scenario.StepViewTask, scenario.StepCreateBilling, scenario.StepRemoveTask} {
					result := stepResult(report, name)
					Expect(result.Outcome).To(Equal(scenario.OutcomeFailed), name)
					Expect(result.Err()).To(MatchError(apitest.ErrMissingDependency), name)
					Expect(result.Detail).To(ContainSubstring("task id"), name)
				}
			})
		})

		Describe("Given a task update that does not stick", func() {
			It("should fail the view step on the title", func() {
				fake.InjectFault(http.MethodPut, "/tasks/update/*", http.StatusOK, `{"title":"Updated Task"}`)

				report, err := newRunner().Run(ctx)
				Expect(err).To(HaveOccurred())

				Expect(stepResult(report, scenario.StepUpdateTask).Outcome).To(Equal(scenario.OutcomePassed))

				view := stepResult(report, scenario.StepViewTask)
				Expect(view.Outcome).To(Equal(scenario.OutcomeFailed))
				Expect(view.Err()).To(MatchError(apitest.ErrMalformedResponse))
				Expect(view.Detail).To(ContainSubstring(`"New Task"`))
			})
		})

		Describe("Given a malformed create response", func() {
			It("should fail naming the missing id", func() {
				fake.InjectFault(http.MethodPost, "/tasks/create", http.StatusCreated, `{"title":"New Task"}`)

				report, err := newRunner().Run(ctx)
				Expect(err).To(HaveOccurred())

				create := stepResult(report, scenario.StepCreateTask)
				Expect(create.Err()).To(MatchError(apitest.ErrMalformedResponse))
				Expect(create.Detail).To(ContainSubstring("id of created task"))
			})
		})
	})

	Context("When strict mode is enabled", func() {
		It("should skip every step after the first failure", func() {
			fake.InjectFault(http.MethodGet, "/users/list", http.StatusInternalServerError, "internal error")

			report, err := newRunner(scenario.WithStrict(true)).Run(ctx)
			Expect(err).To(MatchError(scenario.ErrHalted))

			Expect(stepResult(report, scenario.StepListUsers).Outcome).To(Equal(scenario.OutcomeFailed))

			for _, name := range scenario.StepNames()[6:] {
				Expect(stepResult(report, name).Outcome).To(Equal(scenario.OutcomeSkipped), name)
			}

			for _, r := range fake.Requests() {
				Expect(r.Path).NotTo(Equal("/tasks/create"))
			}
		})
	})

	Context("When the server cannot be reached", func() {
		It("should report a transport failure for every step that sends", func() {
			unreachable := httptest.NewServer(http.NotFoundHandler())
			unreachable.Close()

			runner := scenario.NewRunner(apitest.NewAPIClient(&apitest.TestConfig{
				BaseURL:        unreachable.URL,
				RequestTimeout: config.RequestTimeout,
			}), apitest.DefaultFixtures())

			report, err := runner.Run(ctx)
			Expect(err).To(HaveOccurred())

			register := stepResult(report, scenario.StepRegisterRegular)
			Expect(register.Err()).To(MatchError(apitest.ErrTransport))
			Expect(register.StatusCode).To(BeZero())

			Expect(stepResult(report, scenario.StepListUsers).Err()).To(MatchError(apitest.ErrMissingToken))
		})
	})

	Context("When the run is cancelled", func() {
		It("should skip every remaining step", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			report, err := newRunner().Run(cancelled)
			Expect(err).To(MatchError(scenario.ErrHalted))
			Expect(err).To(MatchError(context.Canceled))
			Expect(report.Passed()).To(BeFalse())
			Expect(report.Summary.Skipped).To(Equal(report.Summary.Total))
			Expect(fake.Requests()).To(BeEmpty())
		})
	})
})
