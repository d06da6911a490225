package entry_test

import (
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	apperrors "github.com/reimagine-business/donna/internal"
	"github.com/reimagine-business/donna/internal/core/events"
	"github.com/reimagine-business/donna/internal/entry"
)

func TestEntry(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Entry Suite")
}

// Mock repository for testing
type mockEntryRepository struct {
	entries     map[string]*entry.Entry
	order       []string
	createError error
	getError    error
	updateError error
	deleteError error
	countError  error
}

func newMockEntryRepository() *mockEntryRepository {
	return &mockEntryRepository{
		entries: make(map[string]*entry.Entry),
	}
}

func copyEntry(e *entry.Entry) *entry.Entry {
	c := *e
	if e.RemainingAmount != nil {
		r := *e.RemainingAmount
		c.RemainingAmount = &r
	}
	if e.SettledAt != nil {
		t := *e.SettledAt
		c.SettledAt = &t
	}
	if e.SourceEntryID != nil {
		s := *e.SourceEntryID
		c.SourceEntryID = &s
	}
	return &c
}

func (m *mockEntryRepository) Create(e *entry.Entry) error {
	if m.createError != nil {
		return m.createError
	}
	m.entries[e.ID] = copyEntry(e)
	m.order = append(m.order, e.ID)
	return nil
}

func (m *mockEntryRepository) GetByID(id, userID string) (*entry.Entry, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	e, ok := m.entries[id]
	if !ok || e.UserID != userID {
		return nil, apperrors.ErrEntryNotFound
	}
	return copyEntry(e), nil
}

func (m *mockEntryRepository) GetByIDForUpdate(id, userID string) (*entry.Entry, error) {
	return m.GetByID(id, userID)
}

func (m *mockEntryRepository) ListByUser(userID string) ([]*entry.Entry, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	result := make([]*entry.Entry, 0)
	for _, id := range m.order {
		if e, ok := m.entries[id]; ok && e.UserID == userID {
			result = append(result, copyEntry(e))
		}
	}
	return result, nil
}

func (m *mockEntryRepository) Update(e *entry.Entry) error {
	if m.updateError != nil {
		return m.updateError
	}
	if _, ok := m.entries[e.ID]; !ok {
		return apperrors.ErrEntryNotFound
	}
	m.entries[e.ID] = copyEntry(e)
	return nil
}

func (m *mockEntryRepository) Delete(id, userID string) error {
	if m.deleteError != nil {
		return m.deleteError
	}
	e, ok := m.entries[id]
	if !ok || e.UserID != userID {
		return apperrors.ErrEntryNotFound
	}
	delete(m.entries, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockEntryRepository) CountRealizations(sourceID, userID string) (int64, error) {
	if m.countError != nil {
		return 0, m.countError
	}
	var count int64
	for _, e := range m.entries {
		if e.UserID == userID && e.SourceID() == sourceID {
			count++
		}
	}
	return count, nil
}

// Transact snapshots the store and restores it when fn fails, mirroring
// transaction rollback.
func (m *mockEntryRepository) Transact(fn func(entry.Repository) error) error {
	snapshot := make(map[string]*entry.Entry, len(m.entries))
	for id, e := range m.entries {
		snapshot[id] = copyEntry(e)
	}
	orderSnapshot := append([]string(nil), m.order...)

	if err := fn(m); err != nil {
		m.entries = snapshot
		m.order = orderSnapshot
		return err
	}
	return nil
}

var _ = Describe("EntryService", func() {
	var (
		service  *entry.Service
		mockRepo *mockEntryRepository
		logger   *slog.Logger
		userID   string
	)

	BeforeEach(func() {
		mockRepo = newMockEntryRepository()
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = entry.NewService(mockRepo, events.NewEventBus(logger), logger)
		userID = "user-1"
	})

	validCreate := func() entry.CreateEntryDTO {
		return entry.CreateEntryDTO{
			EntryType:     string(entry.TypeCashIn),
			Category:      string(entry.CategorySales),
			PaymentMethod: string(entry.MethodCash),
			Amount:        decimal.NewFromInt(50000),
			EntryDate:     time.Now().Add(-time.Hour),
		}
	}

	Describe("CreateEntry", func() {
		Context("with a direct cash entry", func() {
			It("should record the entry as settled with no outstanding balance", func() {
				result, err := service.CreateEntry(userID, validCreate())

				Expect(err).ToNot(HaveOccurred())
				Expect(result.ID).ToNot(BeEmpty())
				Expect(result.UserID).To(Equal(userID))
				Expect(result.Settled).To(BeTrue())
				Expect(result.RemainingAmount).To(BeNil())
				Expect(result.Outstanding()).To(Equal(decimal.Zero))
			})
		})

		Context("with a Credit entry", func() {
			It("should start fully outstanding and unsettled", func() {
				dto := validCreate()
				dto.EntryType = string(entry.TypeCredit)
				dto.PaymentMethod = string(entry.MethodNone)
				dto.Amount = decimal.NewFromInt(1000000)

				result, err := service.CreateEntry(userID, dto)

				Expect(err).ToNot(HaveOccurred())
				Expect(result.Settled).To(BeFalse())
				Expect(result.RemainingAmount).ToNot(BeNil())
				Expect(result.Outstanding()).To(Equal(decimal.NewFromInt(1000000)))
			})
		})

		Context("when the payment method pairing is wrong", func() {
			It("should reject a Credit entry carrying Cash", func() {
				dto := validCreate()
				dto.EntryType = string(entry.TypeCredit)
				dto.PaymentMethod = string(entry.MethodCash)

				_, err := service.CreateEntry(userID, dto)

				Expect(err).To(HaveOccurred())
				appErr, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Type).To(Equal(apperrors.ErrorTypeValidation))
			})

			It("should reject a CashIn entry carrying None", func() {
				dto := validCreate()
				dto.PaymentMethod = string(entry.MethodNone)

				_, err := service.CreateEntry(userID, dto)
				Expect(err).To(HaveOccurred())
			})

			It("should reject an Advance entry carrying None", func() {
				dto := validCreate()
				dto.EntryType = string(entry.TypeAdvance)
				dto.PaymentMethod = string(entry.MethodNone)

				_, err := service.CreateEntry(userID, dto)
				Expect(err).To(HaveOccurred())
			})
		})

		Context("when validation fails", func() {
			It("should reject a zero amount", func() {
				dto := validCreate()
				dto.Amount = decimal.Zero

				_, err := service.CreateEntry(userID, dto)
				Expect(err).To(HaveOccurred())
			})

			It("should reject a negative amount", func() {
				dto := validCreate()
				dto.Amount = decimal.NewFromInt(-500)

				_, err := service.CreateEntry(userID, dto)
				Expect(err).To(HaveOccurred())
			})

			It("should reject a future entry date", func() {
				dto := validCreate()
				dto.EntryDate = time.Now().Add(48 * time.Hour)

				_, err := service.CreateEntry(userID, dto)
				Expect(err).To(HaveOccurred())
			})

			It("should reject an unknown entry type", func() {
				dto := validCreate()
				dto.EntryType = "Loan"

				_, err := service.CreateEntry(userID, dto)
				Expect(err).To(HaveOccurred())
			})

			It("should reject notes that use the reserved settlement marker format", func() {
				dto := validCreate()
				dto.Notes = "Settlement of Credit Sales (ID: abc-123)"

				_, err := service.CreateEntry(userID, dto)
				Expect(err).To(HaveOccurred())
			})
		})

		Context("when the store fails", func() {
			It("should wrap the failure", func() {
				mockRepo.createError = errors.New("connection lost")

				_, err := service.CreateEntry(userID, validCreate())

				Expect(err).To(HaveOccurred())
				appErr, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(apperrors.ErrCodeStoreFailure))
			})
		})
	})

	Describe("GetEntry", func() {
		It("should return not found for an unknown id", func() {
			_, err := service.GetEntry("missing", userID)
			Expect(err).To(Equal(apperrors.ErrEntryNotFound))
		})

		It("should not return another user's entry", func() {
			created, err := service.CreateEntry(userID, validCreate())
			Expect(err).ToNot(HaveOccurred())

			_, err = service.GetEntry(created.ID, "someone-else")
			Expect(err).To(Equal(apperrors.ErrEntryNotFound))
		})
	})

	Describe("UpdateEntry", func() {
		It("should update editable fields", func() {
			created, err := service.CreateEntry(userID, validCreate())
			Expect(err).ToNot(HaveOccurred())

			newCat := string(entry.CategoryOpex)
			newNotes := "reclassified"
			updated, err := service.UpdateEntry(created.ID, userID, entry.UpdateEntryDTO{
				Category: &newCat,
				Notes:    &newNotes,
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(updated.Category).To(Equal(entry.CategoryOpex))
			Expect(updated.Notes).To(Equal("reclassified"))
		})

		It("should rebase the outstanding balance when a fully outstanding amount is edited", func() {
			dto := validCreate()
			dto.EntryType = string(entry.TypeCredit)
			dto.PaymentMethod = string(entry.MethodNone)
			dto.Amount = decimal.NewFromInt(1000)
			created, err := service.CreateEntry(userID, dto)
			Expect(err).ToNot(HaveOccurred())

			newAmount := decimal.NewFromInt(1500)
			updated, err := service.UpdateEntry(created.ID, userID, entry.UpdateEntryDTO{Amount: &newAmount})

			Expect(err).ToNot(HaveOccurred())
			Expect(updated.Amount).To(Equal(newAmount))
			Expect(updated.Outstanding()).To(Equal(newAmount))
		})

		It("should refuse amount edits once part of the balance is settled", func() {
			dto := validCreate()
			dto.EntryType = string(entry.TypeCredit)
			dto.PaymentMethod = string(entry.MethodNone)
			dto.Amount = decimal.NewFromInt(1000)
			created, err := service.CreateEntry(userID, dto)
			Expect(err).ToNot(HaveOccurred())

			stored := mockRepo.entries[created.ID]
			partial := decimal.NewFromInt(600)
			stored.RemainingAmount = &partial

			newAmount := decimal.NewFromInt(1500)
			_, err = service.UpdateEntry(created.ID, userID, entry.UpdateEntryDTO{Amount: &newAmount})

			Expect(err).To(Equal(apperrors.ErrHasSettlements))
		})

		It("should refuse edits to a realization entry", func() {
			sourceID := "src-1"
			realization := &entry.Entry{
				ID:            "real-1",
				UserID:        userID,
				EntryType:     entry.TypeCashIn,
				Category:      entry.CategorySales,
				PaymentMethod: entry.MethodBank,
				Amount:        decimal.NewFromInt(400),
				Settled:       true,
				EntryDate:     time.Now().Add(-time.Hour),
				Notes:         entry.BuildSettlementMarker(entry.TypeCredit, entry.CategorySales, sourceID),
				SourceEntryID: &sourceID,
			}
			Expect(mockRepo.Create(realization)).To(Succeed())

			newNotes := "tampered"
			_, err := service.UpdateEntry("real-1", userID, entry.UpdateEntryDTO{Notes: &newNotes})

			Expect(err).To(Equal(apperrors.ErrEntryImmutable))
		})

		It("should refuse edits to a fully settled deferred entry", func() {
			dto := validCreate()
			dto.EntryType = string(entry.TypeAdvance)
			dto.PaymentMethod = string(entry.MethodBank)
			created, err := service.CreateEntry(userID, dto)
			Expect(err).ToNot(HaveOccurred())

			stored := mockRepo.entries[created.ID]
			stored.Settled = true
			zero := decimal.Zero
			stored.RemainingAmount = &zero

			newNotes := "late edit"
			_, err = service.UpdateEntry(created.ID, userID, entry.UpdateEntryDTO{Notes: &newNotes})

			Expect(err).To(Equal(apperrors.ErrEntryImmutable))
		})
	})

	Describe("DeleteEntry", func() {
		It("should delete an ordinary entry", func() {
			created, err := service.CreateEntry(userID, validCreate())
			Expect(err).ToNot(HaveOccurred())

			Expect(service.DeleteEntry(created.ID, userID)).To(Succeed())

			_, err = service.GetEntry(created.ID, userID)
			Expect(err).To(Equal(apperrors.ErrEntryNotFound))
		})

		It("should refuse to delete a realization entry directly", func() {
			sourceID := "src-1"
			realization := &entry.Entry{
				ID:            "real-1",
				UserID:        userID,
				EntryType:     entry.TypeCashIn,
				Category:      entry.CategorySales,
				PaymentMethod: entry.MethodBank,
				Amount:        decimal.NewFromInt(400),
				Settled:       true,
				EntryDate:     time.Now().Add(-time.Hour),
				SourceEntryID: &sourceID,
			}
			Expect(mockRepo.Create(realization)).To(Succeed())

			err := service.DeleteEntry("real-1", userID)
			Expect(err).To(Equal(apperrors.ErrIsRealization))
		})

		It("should refuse to delete a deferred entry with live realizations", func() {
			dto := validCreate()
			dto.EntryType = string(entry.TypeCredit)
			dto.PaymentMethod = string(entry.MethodNone)
			created, err := service.CreateEntry(userID, dto)
			Expect(err).ToNot(HaveOccurred())

			realization := &entry.Entry{
				ID:            "real-1",
				UserID:        userID,
				EntryType:     entry.TypeCashIn,
				Category:      entry.CategorySales,
				PaymentMethod: entry.MethodBank,
				Amount:        decimal.NewFromInt(400),
				Settled:       true,
				EntryDate:     time.Now().Add(-time.Hour),
				SourceEntryID: &created.ID,
			}
			Expect(mockRepo.Create(realization)).To(Succeed())

			err = service.DeleteEntry(created.ID, userID)
			Expect(err).To(Equal(apperrors.ErrHasSettlements))
		})
	})
})
