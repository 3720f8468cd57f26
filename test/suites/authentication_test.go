package suites

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nscaledev/taskflow-apitest/pkg/apitest"
	"github.com/nscaledev/taskflow-apitest/pkg/scenario"
)

var _ = Describe("Authentication", func() {
	Context("When a role has not logged in", func() {
		Describe("Given an authorized call", func() {
			It("should fail without sending a request", func() {
				runner := newRunner()

				_, err := runner.AuthorizedCall(ctx, http.MethodGet, client.Endpoints().ListUsers(), apitest.RoleAdmin, nil)
				Expect(err).To(MatchError(apitest.ErrMissingToken))
				Expect(err.Error()).To(ContainSubstring("role admin"))

				Expect(fake.Requests()).To(BeEmpty())
			})

			It("should fail the admin steps when admin login fails", func() {
				fake.InjectFault(http.MethodPost, "/auth/login", http.StatusUnauthorized, "Invalid username or password")

				report, err := newRunner().Run(ctx)
				Expect(err).To(HaveOccurred())

				login := stepResult(report, scenario.StepLoginAdmin)
				Expect(login.Outcome).To(Equal(scenario.OutcomeFailed))
				Expect(login.Detail).To(ContainSubstring("401"))
				Expect(login.Detail).To(ContainSubstring("Invalid username or password"))

				create := stepResult(report, scenario.StepCreateUser)
				Expect(create.Outcome).To(Equal(scenario.OutcomeFailed))
				Expect(create.Err()).To(MatchError(apitest.ErrMissingToken))

				for _, r := range fake.Requests() {
					Expect(r.Path).NotTo(Equal("/users/create"))
				}
			})
		})
	})

	Context("When login responses carry more than one document", func() {
		Describe("Given the token comes first", func() {
			It("should use the token and note the extra data", func() {
				runner := newRunner()

				_, err := runner.Register(ctx, apitest.RoleRegular)
				Expect(err).NotTo(HaveOccurred())

				token, err := runner.Login(ctx, apitest.RoleRegular)
				Expect(err).NotTo(HaveOccurred())
				Expect(token).NotTo(BeEmpty())
				Expect(runner.Session().State(apitest.RoleRegular)).To(Equal(scenario.LoggedIn))
			})

			It("should tolerate arbitrary trailing bytes", func() {
				fake.InjectFault(http.MethodPost, "/auth/login", http.StatusOK, "{\"token\":\"abc123\"}\n<noise>")

				runner := newRunner()

				token, err := runner.Login(ctx, apitest.RoleAdmin)
				Expect(err).NotTo(HaveOccurred())
				Expect(token).To(Equal("abc123"))
			})
		})

		Describe("Given no token at all", func() {
			It("should fail naming the role and the raw body", func() {
				fake.InjectFault(http.MethodPost, "/auth/login", http.StatusOK, `{"message":"welcome"}`)

				_, err := newRunner().Login(ctx, apitest.RoleAdmin)
				Expect(err).To(MatchError(apitest.ErrMalformedResponse))
				Expect(err.Error()).To(ContainSubstring("token for role admin"))
				Expect(err.Error()).To(ContainSubstring(`{"message":"welcome"}`))
			})
		})
	})

	Context("When a regular user calls an admin endpoint", func() {
		It("should be forbidden", func() {
			runner := newRunner()

			_, err := runner.Register(ctx, apitest.RoleRegular)
			Expect(err).NotTo(HaveOccurred())

			_, err = runner.Login(ctx, apitest.RoleRegular)
			Expect(err).NotTo(HaveOccurred())

			resp, err := runner.AuthorizedCall(ctx, http.MethodPost, client.Endpoints().CreateTask(), apitest.RoleRegular, apitest.NewTaskPayload().Build())
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
			Expect(scenario.ExpectStatus(resp, apitest.StatusCreated)).To(MatchError(apitest.ErrUnexpectedStatus))
		})
	})
})
