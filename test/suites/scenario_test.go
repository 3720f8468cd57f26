package suites

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nscaledev/taskflow-apitest/pkg/apitest"
	"github.com/nscaledev/taskflow-apitest/pkg/scenario"
)

var _ = Describe("Task Management Scenario", func() {
	Context("When the API behaves correctly", func() {
		Describe("Given fresh credentials", func() {
			It("should pass every step in order", func() {
				report, err := newRunner().Run(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(report.Passed()).To(BeTrue())

				names := make([]string, len(report.Steps))
				for i := range report.Steps {
					names[i] = report.Steps[i].Name
				}

				Expect(names).To(Equal(scenario.StepNames()))
				Expect(report.Summary.Passed).To(Equal(len(scenario.StepNames())))

				GinkgoWriter.Printf("Scenario passed %d steps against %s\n", report.Summary.Passed, report.BaseURL)
			})

			It("should see the expected status for each step", func() {
				report, err := newRunner().Run(ctx)
				Expect(err).NotTo(HaveOccurred())

				expected := map[string]int{
					scenario.StepRegisterRegular:   http.StatusCreated,
					scenario.StepRegisterAdmin:     http.StatusCreated,
					scenario.StepLoginRegular:      http.StatusOK,
					scenario.StepLoginAdmin:        http.StatusOK,
					scenario.StepCreateUser:        http.StatusCreated,
					scenario.StepListUsers:         http.StatusOK,
					scenario.StepCreateTask:        http.StatusCreated,
					scenario.StepAssignTask:        http.StatusOK,
					scenario.StepUpdateTask:        http.StatusOK,
					scenario.StepViewTask:          http.StatusOK,
					scenario.StepCreateBilling:     http.StatusCreated,
					scenario.StepRemoveTask:        http.StatusOK,
					scenario.StepRemoveRegularUser: http.StatusOK,
					scenario.StepRemoveCreatedUser: http.StatusOK,
				}

				for name, status := range expected {
					Expect(stepResult(report, name).StatusCode).To(Equal(status), name)
				}
			})

			It("should view the updated task without credentials", func() {
				report, err := newRunner().Run(ctx)
				Expect(err).NotTo(HaveOccurred())

				view := stepResult(report, scenario.StepViewTask)
				Expect(view.Role).To(BeEmpty())
				Expect(view.Detail).To(ContainSubstring("Updated Task"))

				var viewed bool

				for _, r := range fake.Requests() {
					if r.Method == http.MethodGet && r.Path == view.Path {
						Expect(r.Authorization).To(BeEmpty())

						viewed = true
					}
				}

				Expect(viewed).To(BeTrue())
			})

			It("should send JSON with a bearer token on every authorized call", func() {
				_, err := newRunner().Run(ctx)
				Expect(err).NotTo(HaveOccurred())

				for _, r := range fake.Requests() {
					Expect(r.ContentType).To(Equal("application/json"))

					if r.Path == "/auth/register" || r.Path == "/auth/login" || r.Method == http.MethodGet && r.Path != "/users/list" {
						continue
					}

					Expect(r.Authorization).To(HavePrefix("Bearer "), "%s %s", r.Method, r.Path)
				}
			})

			It("should leave nothing it created behind", func() {
				runner := newRunner()

				_, err := runner.Run(ctx)
				Expect(err).NotTo(HaveOccurred())

				Expect(fake.BillingCount()).To(Equal(1))

				for _, dependency := range []scenario.Dependency{
					scenario.DependencyTask,
					scenario.DependencyManagedUser,
					scenario.UserDependency(apitest.RoleRegular),
				} {
					_, err := runner.Session().ID(dependency)
					Expect(err).To(MatchError(apitest.ErrMissingDependency))
				}
			})
		})

		Describe("Given a repeated run", func() {
			It("should report conflicts rather than treat them as success", func() {
				_, err := newRunner().Run(ctx)
				Expect(err).NotTo(HaveOccurred())

				report, err := newRunner().Run(ctx)
				Expect(err).To(HaveOccurred())

				register := stepResult(report, scenario.StepRegisterAdmin)
				Expect(register.Outcome).To(Equal(scenario.OutcomeFailed))
				Expect(register.StatusCode).To(Equal(http.StatusConflict))
			})

			It("should pass again with unique credentials", func() {
				_, err := newRunner().Run(ctx)
				Expect(err).NotTo(HaveOccurred())

				suffix := apitest.GenerateTestID()

				runner := scenario.NewRunner(client, apitest.DefaultFixtures().WithSuffix(suffix),
					scenario.WithManagedUser(apitest.DefaultManagedUser().WithSuffix(suffix)),
				)

				report, err := runner.Run(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(report.Passed()).To(BeTrue())
			})
		})
	})
})
