package authz_test

import (
	"github.com/danendra/school-authz/internal/authz"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Role Gate", func() {
	Describe("RoleGate", func() {
		Context("when no principal is present", func() {
			It("should deny as unauthenticated, not forbidden", func() {
				decision := authz.RoleGate(nil, []authz.Role{authz.RoleAdmin})
				Expect(decision.Allowed).To(BeFalse())
				Expect(decision.Reason).To(Equal(authz.DenyUnauthenticated))
			})
		})

		Context("when the principal's role is in the allowed list", func() {
			It("should allow an admin for an admin-only action", func() {
				principal := &authz.Principal{UserID: 1, Role: authz.RoleAdmin}
				decision := authz.RoleGate(principal, []authz.Role{authz.RoleAdmin})
				Expect(decision.Allowed).To(BeTrue())
			})

			It("should allow a teacher when teachers are permitted", func() {
				principal := &authz.Principal{UserID: 2, Role: authz.RoleTeacher}
				decision := authz.RoleGate(principal, []authz.Role{authz.RoleAdmin, authz.RoleTeacher})
				Expect(decision.Allowed).To(BeTrue())
			})
		})

		Context("when the principal's role is not in the allowed list", func() {
			It("should deny a teacher for an admin-only action", func() {
				principal := &authz.Principal{UserID: 2, Role: authz.RoleTeacher}
				decision := authz.RoleGate(principal, []authz.Role{authz.RoleAdmin})
				Expect(decision.Allowed).To(BeFalse())
				Expect(decision.Reason).To(Equal(authz.DenyForbidden))
			})

			It("should deny when the allowed list is empty", func() {
				principal := &authz.Principal{UserID: 3, Role: authz.RoleUser}
				decision := authz.RoleGate(principal, nil)
				Expect(decision.Allowed).To(BeFalse())
				Expect(decision.Reason).To(Equal(authz.DenyForbidden))
			})
		})
	})
})
