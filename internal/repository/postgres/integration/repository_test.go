//go:build integration

package integration_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/msomdec/contacts-api/internal/domain"
)

var _ = Describe("Postgres repositories", func() {
	var owner *domain.Account

	BeforeEach(func() {
		resetTables()
		owner = &domain.Account{Username: "owner", Email: "owner@example.com", PasswordHash: "hash"}
		Expect(env.db.Accounts().Create(env.ctx, owner)).To(Succeed())
	})

	Describe("accounts", func() {
		It("rejects duplicate usernames and emails with typed conflicts", func() {
			err := env.db.Accounts().Create(env.ctx, &domain.Account{Username: "owner", Email: "x@example.com", PasswordHash: "h"})
			Expect(err).To(MatchError(domain.ErrDuplicateUsername))

			err = env.db.Accounts().Create(env.ctx, &domain.Account{Username: "x", Email: "owner@example.com", PasswordHash: "h"})
			Expect(err).To(MatchError(domain.ErrDuplicateEmail))
		})

		It("confirms an account by email", func() {
			Expect(env.db.Accounts().MarkConfirmed(env.ctx, "owner@example.com")).To(Succeed())
			got, err := env.db.Accounts().GetByUsername(env.ctx, "owner")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Confirmed).To(BeTrue())
		})
	})

	Describe("contacts", func() {
		add := func(first, email string, month time.Month, day int) *domain.Contact {
			b := time.Date(1990, month, day, 0, 0, 0, 0, time.UTC)
			c := &domain.Contact{OwnerID: owner.ID, FirstName: first, LastName: "Smith",
				Email: email, PhoneNumber: "555", Birthday: &b}
			Expect(env.db.Contacts().Create(env.ctx, c)).To(Succeed())
			return c
		}

		It("filters case-insensitively and counts independently of the window", func() {
			add("Ann", "ann@example.com", time.March, 1)
			add("Anna", "anna@example.com", time.March, 2)
			add("Bob", "bob@example.com", time.March, 3)

			got, total, err := env.db.Contacts().List(env.ctx, owner.ID, domain.ContactFilter{FirstName: "ANN"}, 0, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(2))
			Expect(got).To(HaveLen(1))
		})

		It("finds birthdays across the year end", func() {
			add("Dec", "dec@example.com", time.December, 30)
			add("Jan", "jan@example.com", time.January, 2)
			add("Jun", "jun@example.com", time.June, 1)

			w := domain.NewBirthdayWindow(time.Date(2024, time.December, 28, 0, 0, 0, 0, time.UTC), 7)
			got, total, err := env.db.Contacts().UpcomingBirthdays(env.ctx, owner.ID, w, 0, 100)
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(2))
			Expect(got[0].FirstName).To(Equal("Dec"))
			Expect(got[1].FirstName).To(Equal("Jan"))
		})

		It("rolls back an update that collides on email", func() {
			a := add("Ann", "ann@example.com", time.March, 1)
			add("Bob", "bob@example.com", time.March, 3)

			_, err := env.db.Contacts().Update(env.ctx, owner.ID, a.ID, func(c *domain.Contact) error {
				c.FirstName = "Changed"
				c.Email = "bob@example.com"
				return nil
			})
			Expect(err).To(MatchError(domain.ErrDuplicateContactEmail))

			got, err := env.db.Contacts().GetByID(env.ctx, owner.ID, a.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.FirstName).To(Equal("Ann"))
		})

		It("hides contacts of other owners", func() {
			a := add("Ann", "ann@example.com", time.March, 1)
			_, err := env.db.Contacts().Delete(env.ctx, owner.ID+1, a.ID)
			Expect(err).To(MatchError(domain.ErrNotFound))
		})
	})

	It("stores and replaces files", func() {
		files := env.db.FileStore()
		Expect(files.Save(env.ctx, "k", []byte("one"))).To(Succeed())
		Expect(files.Save(env.ctx, "k", []byte("two"))).To(Succeed())
		Expect(files.Get(env.ctx, "k")).To(Equal([]byte("two")))
	})
})
