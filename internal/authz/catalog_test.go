package authz_test

import (
	"context"
	"errors"

	"github.com/danendra/school-authz/internal/authz"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Catalog Bootstrap", func() {
	var (
		repo *mockRepository
		ctx  context.Context
	)

	BeforeEach(func() {
		repo = newMockRepository()
		ctx = context.Background()
	})

	It("should seed every role and every catalog entry", func() {
		catalog, err := authz.Bootstrap(ctx, repo, authz.DefaultCatalog)
		Expect(err).NotTo(HaveOccurred())
		Expect(catalog.Len()).To(Equal(len(authz.DefaultCatalog)))
		Expect(repo.roles).To(HaveLen(len(authz.AllRoles)))
		Expect(catalog.Has("students.create")).To(BeTrue())
		Expect(catalog.Has("permissions.manage")).To(BeTrue())
	})

	It("should be idempotent and never overwrite existing entries", func() {
		_, err := authz.Bootstrap(ctx, repo, authz.DefaultCatalog)
		Expect(err).NotTo(HaveOccurred())

		// operator renamed a permission between restarts
		repo.permissions["students.create"].DisplayName = "Enroll Students"

		catalog, err := authz.Bootstrap(ctx, repo, authz.DefaultCatalog)
		Expect(err).NotTo(HaveOccurred())
		Expect(catalog.Len()).To(Equal(len(authz.DefaultCatalog)))
		Expect(repo.permissions["students.create"].DisplayName).To(Equal("Enroll Students"))
	})

	It("should include permissions created outside the default catalog", func() {
		repo.AddPermission("library.manage", "library", true)

		catalog, err := authz.Bootstrap(ctx, repo, authz.DefaultCatalog)
		Expect(err).NotTo(HaveOccurred())
		Expect(catalog.Has("library.manage")).To(BeTrue())
	})

	It("should fail when seeding fails", func() {
		repo.SetShouldFail(errors.New("connection refused"))
		_, err := authz.Bootstrap(ctx, repo, authz.DefaultCatalog)
		Expect(err).To(HaveOccurred())
	})

	Describe("MustHave", func() {
		It("should panic on a name missing from the snapshot", func() {
			catalog, err := authz.Bootstrap(ctx, repo, authz.DefaultCatalog)
			Expect(err).NotTo(HaveOccurred())

			Expect(func() { catalog.MustHave("permissions.manage") }).NotTo(Panic())
			Expect(func() { catalog.MustHave("no.such.permission") }).To(Panic())
		})
	})
})
