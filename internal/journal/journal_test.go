package journal_test

import (
	"context"
	"encoding/json"
	"math/big"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/p2eengineering/chim-vesting-contract/internal/journal"
	"github.com/p2eengineering/chim-vesting-contract/internal/storage/badgerstore"
	"github.com/p2eengineering/chim-vesting-contract/internal/token"
	"github.com/p2eengineering/chim-vesting-contract/vesting"
)

const (
	owner   = "2da4c4908a393a387b728206b18388bc529fa8d7"
	custody = "custody"
	alice   = "0b87970433b22494faff1cc7a819e71bddc7880c"
)

var _ = Describe("Journal", func() {
	var (
		j *journal.Journal
	)

	BeforeEach(func() {
		var err error
		j, err = journal.Open(":memory:")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(j.Close()).To(Succeed())
	})

	It("should reject an empty path", func() {
		_, err := journal.Open("")
		Expect(err).To(HaveOccurred())
	})

	It("should keep events in append order", func() {
		Expect(j.SetEvent("A", []byte(`{"n":1}`))).To(Succeed())
		Expect(j.SetEvent("B", []byte(`{"n":2}`))).To(Succeed())
		Expect(j.SetEvent("A", []byte(`{"n":3}`))).To(Succeed())

		entries, err := j.Entries("")
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(3))
		Expect(entries[0].Name).To(Equal("A"))
		Expect(entries[1].Name).To(Equal("B"))
		Expect(string(entries[2].Payload)).To(Equal(`{"n":3}`))
		Expect(entries[0].ID).NotTo(Equal(entries[1].ID))
	})

	It("should filter by name", func() {
		Expect(j.SetEvent("A", []byte(`{}`))).To(Succeed())
		Expect(j.SetEvent("B", []byte(`{}`))).To(Succeed())

		entries, err := j.Entries("B")
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Name).To(Equal("B"))
	})

	It("should persist to a file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "events.sqlite3")

		fileJournal, err := journal.Open(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(fileJournal.SetEvent("A", []byte(`{}`))).To(Succeed())
		Expect(fileJournal.Close()).To(Succeed())

		reopened, err := journal.Open(path)
		Expect(err).NotTo(HaveOccurred())
		defer reopened.Close()

		entries, err := reopened.Entries("")
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
	})

	Context("as a ledger event sink", func() {
		var (
			ledger *vesting.Ledger
			store  *badgerstore.Store
		)

		BeforeEach(func() {
			var err error
			store, err = badgerstore.OpenInMemory()
			Expect(err).NotTo(HaveOccurred())

			tok := token.New("CHIM")
			Expect(tok.Mint(custody, big.NewInt(1_000_000))).To(Succeed())

			ledger, err = vesting.New(store, token.NewCustody(tok, custody), vesting.SystemClock(), vesting.Config{
				Owner:   owner,
				Custody: custody,
			}, vesting.WithEventSink(j))
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			Expect(store.Close()).To(Succeed())
		})

		It("should record committed mutations only", func() {
			ctx := context.Background()

			planID, err := ledger.AddLockPlan(ctx, owner, "Seed", big.NewInt(1_000), 10000, 0, 0, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(ledger.LockTokens(ctx, owner, alice, big.NewInt(500), planID)).To(Succeed())
			Expect(ledger.LockTokens(ctx, owner, alice, big.NewInt(501), planID)).NotTo(Succeed())

			entries, err := j.Entries("")
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))
			Expect(entries[0].Name).To(Equal(vesting.LockPlanAddedKey))
			Expect(entries[1].Name).To(Equal(vesting.TokensLockedKey))

			var event vesting.TokensLockedEvent
			Expect(json.Unmarshal(entries[1].Payload, &event)).To(Succeed())
			Expect(event.Address).To(Equal(alice))
			Expect(event.Amount).To(Equal("500"))
		})
	})
})
