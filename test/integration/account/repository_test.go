// AngelaMos | 2026
// repository_test.go

//go:build integration

package account_test

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/carterperez-dev/templates/iam-service/internal/account"
	"github.com/carterperez-dev/templates/iam-service/internal/core"
)

type contractStore interface {
	account.Repository
	account.CredentialReader
}

type storeFactory struct {
	name string
	open func() contractStore
}

var stores = []storeFactory{
	{
		name: "postgres",
		open: func() contractStore {
			return account.NewPostgresRepository(env.db.DB).(contractStore)
		},
	},
	{
		name: "mongo",
		open: func() contractStore {
			Expect(account.EnsureMongoIndexes(env.ctx, env.mongo.DB)).To(Succeed())
			return account.NewMongoRepository(env.mongo.DB).(contractStore)
		},
	},
	{
		name: "memory",
		open: func() contractStore {
			return account.NewMemoryRepository()
		},
	},
}

func newAccount(email string, roles ...string) *account.Account {
	return &account.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: "hash-" + email,
		IsActive:     true,
		Roles:        account.NormalizeRoles(roles),
	}
}

func ids(accounts []account.Account) []string {
	out := make([]string, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.ID)
	}
	return out
}

var _ = Describe("Account repository", func() {
	for _, store := range stores {
		Context(store.name, func() {
			var repo contractStore

			BeforeEach(func() {
				repo = store.open()
				_, err := repo.DeleteAll(env.ctx)
				Expect(err).NotTo(HaveOccurred())
			})

			It("creates and reads an account", func() {
				a := newAccount("alice@example.com", "admin")
				Expect(repo.Create(env.ctx, a)).To(Succeed())
				Expect(a.CreatedAt).NotTo(BeZero())

				got, err := repo.GetByID(env.ctx, a.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Email).To(Equal("alice@example.com"))
				Expect(got.Roles).To(Equal(account.Roles{"admin"}))
				Expect(got.PasswordHash).To(BeEmpty())

				withHash, err := repo.GetByEmail(env.ctx, "ALICE@example.com")
				Expect(err).NotTo(HaveOccurred())
				Expect(withHash.PasswordHash).To(Equal("hash-alice@example.com"))

				hash, err := repo.GetCredentials(env.ctx, a.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(hash).To(Equal("hash-alice@example.com"))
			})

			It("rejects a duplicate email", func() {
				Expect(repo.Create(env.ctx, newAccount("dup@example.com"))).To(Succeed())

				err := repo.Create(env.ctx, newAccount("dup@example.com"))
				Expect(err).To(MatchError(core.ErrDuplicateKey))
			})

			It("reports missing accounts as not found", func() {
				id := uuid.NewString()

				_, err := repo.GetByID(env.ctx, id)
				Expect(err).To(MatchError(core.ErrNotFound))

				_, err = repo.GetCredentials(env.ctx, id)
				Expect(err).To(MatchError(core.ErrNotFound))

				Expect(repo.Delete(env.ctx, id)).To(MatchError(core.ErrNotFound))
			})

			It("keeps the stored hash when saving without one", func() {
				a := newAccount("keep@example.com")
				Expect(repo.Create(env.ctx, a)).To(Succeed())

				Expect(repo.Save(env.ctx, &account.Account{
					ID:    a.ID,
					Email: "kept@example.com",
					Roles: account.Roles{"user", "admin"},
				})).To(Succeed())

				hash, err := repo.GetCredentials(env.ctx, a.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(hash).To(Equal("hash-keep@example.com"))

				got, err := repo.GetByID(env.ctx, a.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Email).To(Equal("kept@example.com"))
				Expect(got.IsActive).To(BeFalse())
				Expect(got.Roles).To(Equal(account.Roles{"user", "admin"}))
			})

			It("rejects saving onto another account's email", func() {
				a := newAccount("first@example.com")
				b := newAccount("second@example.com")
				Expect(repo.Create(env.ctx, a)).To(Succeed())
				Expect(repo.Create(env.ctx, b)).To(Succeed())

				b.PasswordHash = ""
				b.Email = a.Email
				Expect(repo.Save(env.ctx, b)).To(MatchError(core.ErrDuplicateKey))
			})

			It("finds accounts by email, role and search in creation order", func() {
				alice := newAccount("alice@example.com", "admin")
				bob := newAccount("bob@example.com")
				carol := newAccount("carol@other.org", "user", "admin")
				for _, a := range []*account.Account{alice, bob, carol} {
					Expect(repo.Create(env.ctx, a)).To(Succeed())
					// mongo stores created_at with millisecond precision
					time.Sleep(2 * time.Millisecond)
				}

				var r account.Resolver

				found, err := repo.FindMany(env.ctx, r.Resolve("admin"), 10, 0)
				Expect(err).NotTo(HaveOccurred())
				Expect(ids(found)).To(Equal([]string{alice.ID, carol.ID}))

				found, err = repo.FindMany(env.ctx, r.Resolve("Bob@Example.com"), 10, 0)
				Expect(err).NotTo(HaveOccurred())
				Expect(ids(found)).To(Equal([]string{bob.ID}))

				found, err = repo.FindMany(env.ctx, r.ResolveSearch("EXAMPLE"), 10, 0)
				Expect(err).NotTo(HaveOccurred())
				Expect(ids(found)).To(Equal([]string{alice.ID, bob.ID}))

				found, err = repo.FindMany(env.ctx, r.ResolveSearch("%"), 10, 0)
				Expect(err).NotTo(HaveOccurred())
				Expect(found).To(BeEmpty())

				found, err = repo.FindMany(env.ctx, r.ResolveSearch(""), 2, 1)
				Expect(err).NotTo(HaveOccurred())
				Expect(ids(found)).To(Equal([]string{bob.ID, carol.ID}))
				for _, a := range found {
					Expect(a.PasswordHash).To(BeEmpty())
				}
			})

			It("deletes one and then every account", func() {
				a := newAccount("gone@example.com")
				Expect(repo.Create(env.ctx, a)).To(Succeed())
				Expect(repo.Create(env.ctx, newAccount("left@example.com"))).To(Succeed())

				Expect(repo.Delete(env.ctx, a.ID)).To(Succeed())
				_, err := repo.GetByID(env.ctx, a.ID)
				Expect(err).To(MatchError(core.ErrNotFound))

				n, err := repo.DeleteAll(env.ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(n).To(Equal(int64(1)))
			})

			It("admits one of many concurrent registrations for an email", func() {
				const workers = 8

				var (
					wg      sync.WaitGroup
					mu      sync.Mutex
					created int
				)
				for i := range workers {
					wg.Add(1)
					go func() {
						defer GinkgoRecover()
						defer wg.Done()
						a := newAccount("race@example.com")
						a.PasswordHash = fmt.Sprintf("hash-%d", i)
						if repo.Create(env.ctx, a) == nil {
							mu.Lock()
							created++
							mu.Unlock()
						}
					}()
				}
				wg.Wait()

				Expect(created).To(Equal(1))
			})
		})
	}
})
