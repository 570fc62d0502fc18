package authz_test

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/danendra/school-authz/internal/authz"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// mockGateRepo implements authz.GateRepository for testing
type mockGateRepo struct {
	effective map[int64][]string
	failError error
}

func (m *mockGateRepo) EffectivePermissionNames(ctx context.Context, userID int64) ([]string, error) {
	if m.failError != nil {
		return nil, m.failError
	}
	return m.effective[userID], nil
}

var _ = Describe("Permission Gate", func() {
	var (
		repo *mockGateRepo
		gate *authz.Gate
	)

	principal := &authz.Principal{UserID: 42, Role: authz.RoleTeacher}

	BeforeEach(func() {
		repo = &mockGateRepo{effective: map[int64][]string{}}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		gate = authz.NewGate(repo, logger)
	})

	Context("when no principal is present", func() {
		It("should deny as unauthenticated without touching the store", func() {
			repo.failError = errors.New("store must not be called")
			decision, err := gate.Check(context.Background(), authz.CheckInput{
				Principal: nil,
				Names:     []string{"students.create"},
				Mode:      authz.CheckOne,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(decision.Allowed).To(BeFalse())
			Expect(decision.Reason).To(Equal(authz.DenyUnauthenticated))
		})
	})

	Describe("CheckOne", func() {
		It("should allow when the permission is effectively granted", func() {
			repo.effective[42] = []string{"students.create"}
			decision, err := gate.Check(context.Background(), authz.CheckInput{
				Principal: principal,
				Names:     []string{"students.create"},
				Mode:      authz.CheckOne,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(decision.Allowed).To(BeTrue())
		})

		It("should deny when the permission is not granted", func() {
			decision, err := gate.Check(context.Background(), authz.CheckInput{
				Principal: principal,
				Names:     []string{"students.create"},
				Mode:      authz.CheckOne,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(decision.Allowed).To(BeFalse())
			Expect(decision.Reason).To(Equal(authz.DenyForbidden))
		})
	})

	Describe("CheckAny vs CheckAll", func() {
		BeforeEach(func() {
			repo.effective[42] = []string{"a"}
		})

		It("should allow any-of when only one of two names is granted", func() {
			decision, err := gate.Check(context.Background(), authz.CheckInput{
				Principal: principal,
				Names:     []string{"a", "b"},
				Mode:      authz.CheckAny,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(decision.Allowed).To(BeTrue())
		})

		It("should deny all-of when only one of two names is granted", func() {
			decision, err := gate.Check(context.Background(), authz.CheckInput{
				Principal: principal,
				Names:     []string{"a", "b"},
				Mode:      authz.CheckAll,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(decision.Allowed).To(BeFalse())
			Expect(decision.Reason).To(Equal(authz.DenyForbidden))
		})

		It("should allow all-of when both names are granted", func() {
			repo.effective[42] = []string{"a", "b"}
			decision, err := gate.Check(context.Background(), authz.CheckInput{
				Principal: principal,
				Names:     []string{"a", "b"},
				Mode:      authz.CheckAll,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(decision.Allowed).To(BeTrue())
		})

		It("should not under-count duplicated names in an all-of check", func() {
			repo.effective[42] = []string{"a"}
			decision, err := gate.Check(context.Background(), authz.CheckInput{
				Principal: principal,
				Names:     []string{"a", "a"},
				Mode:      authz.CheckAll,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(decision.Allowed).To(BeTrue())
		})
	})

	Context("when the store is unreachable", func() {
		It("should return an error rather than a decision", func() {
			repo.failError = errors.New("connection refused")
			_, err := gate.Check(context.Background(), authz.CheckInput{
				Principal: principal,
				Names:     []string{"students.create"},
				Mode:      authz.CheckOne,
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("connection refused"))
		})
	})

	Context("when the required name list is empty", func() {
		It("should deny", func() {
			decision, err := gate.Check(context.Background(), authz.CheckInput{
				Principal: principal,
				Names:     nil,
				Mode:      authz.CheckAll,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(decision.Allowed).To(BeFalse())
		})
	})
})
