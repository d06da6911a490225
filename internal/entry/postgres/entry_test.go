package postgres_test

import (
	"errors"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	apperrors "github.com/reimagine-business/donna/internal"
	"github.com/reimagine-business/donna/internal/entry"
	entryPostgres "github.com/reimagine-business/donna/internal/entry/postgres"
)

func TestEntryRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Entry Repository Suite")
}

// SQLiteEntry is a SQLite-compatible model for testing; decimals are
// stored as their text representation.
type SQLiteEntry struct {
	ID              string     `gorm:"primaryKey"`
	UserID          string     `gorm:"column:user_id;not null;index"`
	EntryType       string     `gorm:"column:entry_type;not null"`
	Category        string     `gorm:"column:category;not null"`
	PaymentMethod   string     `gorm:"column:payment_method;not null"`
	Amount          string     `gorm:"column:amount;not null"`
	RemainingAmount *string    `gorm:"column:remaining_amount"`
	Settled         bool       `gorm:"column:settled;not null;default:false"`
	SettledAt       *time.Time `gorm:"column:settled_at"`
	EntryDate       time.Time  `gorm:"column:entry_date;not null"`
	Counterparty    string     `gorm:"column:counterparty"`
	Notes           string     `gorm:"column:notes"`
	SourceEntryID   *string    `gorm:"column:source_entry_id;index"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

func (SQLiteEntry) TableName() string {
	return "entries"
}

var _ = Describe("Entry Repository", func() {
	var (
		db     *gorm.DB
		repo   entry.Repository
		userID string
	)

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&SQLiteEntry{})
		Expect(err).NotTo(HaveOccurred())

		repo = entryPostgres.NewEntryRepository(db)
		userID = "11111111-1111-1111-1111-111111111111"
	})

	newCredit := func(id string, amount int64) *entry.Entry {
		remaining := decimal.NewFromInt(amount)
		return &entry.Entry{
			ID:              id,
			UserID:          userID,
			EntryType:       entry.TypeCredit,
			Category:        entry.CategorySales,
			PaymentMethod:   entry.MethodNone,
			Amount:          decimal.NewFromInt(amount),
			RemainingAmount: &remaining,
			EntryDate:       time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
			Counterparty:    "Warung Bu Sri",
			CreatedAt:       time.Now(),
			UpdatedAt:       time.Now(),
		}
	}

	Describe("Create and GetByID", func() {
		It("should round-trip an entry", func() {
			e := newCredit("e-1", 1000)
			Expect(repo.Create(e)).To(Succeed())

			loaded, err := repo.GetByID("e-1", userID)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.EntryType).To(Equal(entry.TypeCredit))
			Expect(loaded.Amount.String()).To(Equal("1000"))
			Expect(loaded.RemainingAmount).NotTo(BeNil())
			Expect(loaded.RemainingAmount.String()).To(Equal("1000"))
			Expect(loaded.Settled).To(BeFalse())
			Expect(loaded.Counterparty).To(Equal("Warung Bu Sri"))
		})

		It("should return not found for an unknown id", func() {
			_, err := repo.GetByID("missing", userID)
			Expect(err).To(Equal(apperrors.ErrEntryNotFound))
		})

		It("should not expose another user's entry", func() {
			Expect(repo.Create(newCredit("e-1", 1000))).To(Succeed())

			_, err := repo.GetByID("e-1", "22222222-2222-2222-2222-222222222222")
			Expect(err).To(Equal(apperrors.ErrEntryNotFound))
		})
	})

	Describe("Update", func() {
		It("should persist a settled balance", func() {
			e := newCredit("e-1", 1000)
			Expect(repo.Create(e)).To(Succeed())

			now := time.Now()
			zero := decimal.Zero
			e.RemainingAmount = &zero
			e.Settled = true
			e.SettledAt = &now
			Expect(repo.Update(e)).To(Succeed())

			loaded, err := repo.GetByID("e-1", userID)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Settled).To(BeTrue())
			Expect(loaded.SettledAt).NotTo(BeNil())
			Expect(loaded.RemainingAmount.String()).To(Equal("0"))
		})

		It("should clear nil-able columns on reversal", func() {
			e := newCredit("e-1", 1000)
			now := time.Now()
			zero := decimal.Zero
			e.RemainingAmount = &zero
			e.Settled = true
			e.SettledAt = &now
			Expect(repo.Create(e)).To(Succeed())

			restored := decimal.NewFromInt(1000)
			e.RemainingAmount = &restored
			e.Settled = false
			e.SettledAt = nil
			Expect(repo.Update(e)).To(Succeed())

			loaded, err := repo.GetByID("e-1", userID)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Settled).To(BeFalse())
			Expect(loaded.SettledAt).To(BeNil())
			Expect(loaded.RemainingAmount.String()).To(Equal("1000"))
		})
	})

	Describe("Delete", func() {
		It("should delete an entry", func() {
			Expect(repo.Create(newCredit("e-1", 1000))).To(Succeed())

			Expect(repo.Delete("e-1", userID)).To(Succeed())

			_, err := repo.GetByID("e-1", userID)
			Expect(err).To(Equal(apperrors.ErrEntryNotFound))
		})

		It("should return not found when nothing was deleted", func() {
			err := repo.Delete("missing", userID)
			Expect(err).To(Equal(apperrors.ErrEntryNotFound))
		})
	})

	Describe("CountRealizations", func() {
		It("should count entries linked to a source", func() {
			source := newCredit("credit-1", 1000)
			Expect(repo.Create(source)).To(Succeed())

			sourceID := "credit-1"
			realization := &entry.Entry{
				ID:            "real-1",
				UserID:        userID,
				EntryType:     entry.TypeCashIn,
				Category:      entry.CategorySales,
				PaymentMethod: entry.MethodBank,
				Amount:        decimal.NewFromInt(400),
				Settled:       true,
				EntryDate:     time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
				Notes:         entry.BuildSettlementMarker(entry.TypeCredit, entry.CategorySales, sourceID),
				SourceEntryID: &sourceID,
			}
			Expect(repo.Create(realization)).To(Succeed())

			count, err := repo.CountRealizations("credit-1", userID)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(1)))

			count, err = repo.CountRealizations("other", userID)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(0)))
		})
	})

	Describe("ListByUser", func() {
		It("should return entries newest first", func() {
			older := newCredit("e-1", 100)
			older.EntryDate = time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
			newer := newCredit("e-2", 200)
			newer.EntryDate = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

			Expect(repo.Create(older)).To(Succeed())
			Expect(repo.Create(newer)).To(Succeed())

			entries, err := repo.ListByUser(userID)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))
			Expect(entries[0].ID).To(Equal("e-2"))
			Expect(entries[1].ID).To(Equal("e-1"))
		})
	})

	Describe("Transact", func() {
		It("should commit all writes when fn succeeds", func() {
			err := repo.Transact(func(tx entry.Repository) error {
				if err := tx.Create(newCredit("e-1", 100)); err != nil {
					return err
				}
				return tx.Create(newCredit("e-2", 200))
			})
			Expect(err).NotTo(HaveOccurred())

			entries, err := repo.ListByUser(userID)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))
		})

		It("should roll back all writes when fn fails", func() {
			boom := errors.New("boom")
			err := repo.Transact(func(tx entry.Repository) error {
				if err := tx.Create(newCredit("e-1", 100)); err != nil {
					return err
				}
				return boom
			})
			Expect(err).To(Equal(boom))

			entries, err := repo.ListByUser(userID)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(BeEmpty())
		})

		It("should lock and load the row inside a transaction", func() {
			Expect(repo.Create(newCredit("e-1", 1000))).To(Succeed())

			err := repo.Transact(func(tx entry.Repository) error {
				locked, err := tx.GetByIDForUpdate("e-1", userID)
				if err != nil {
					return err
				}
				remaining := decimal.NewFromInt(600)
				locked.RemainingAmount = &remaining
				return tx.Update(locked)
			})
			Expect(err).NotTo(HaveOccurred())

			loaded, err := repo.GetByID("e-1", userID)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.RemainingAmount.String()).To(Equal("600"))
		})
	})
})
