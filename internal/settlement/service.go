package settlement

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "github.com/reimagine-business/donna/internal"
	"github.com/reimagine-business/donna/internal/core/events"
	"github.com/reimagine-business/donna/internal/entry"
)

// Service is the settlement engine: it realizes outstanding Credit/Advance
// balances as cash entries and can reverse a settlement cleanly. Both
// operations run as one store transaction; there is no partial-success
// outcome.
type Service struct {
	repo   entry.Repository
	bus    *events.EventBus
	logger *slog.Logger
}

func NewService(repo entry.Repository, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		bus:    bus,
		logger: logger,
	}
}

// Settle realizes settlementAmount of the entry's outstanding balance.
// Preconditions run in a fixed order, first failure wins: entry exists and
// belongs to the user; entry is Credit/Advance; not already settled;
// amount positive; amount within the outstanding balance. The balance
// update and the realization insert commit atomically, and the
// preconditions are re-checked against a locked row inside the
// transaction so a concurrent settlement cannot overdraw the balance.
func (s *Service) Settle(entryID, userID string, dto SettleDTO) (*Record, error) {
	if err := dto.ValidateShape(); err != nil {
		return nil, err
	}

	e, err := s.repo.GetByID(entryID, userID)
	if err != nil {
		return nil, err
	}
	if err := checkSettleable(e, dto.Amount); err != nil {
		return nil, err
	}

	method, methodErr := realizationMethod(e, dto)
	if methodErr != nil {
		return nil, methodErr
	}

	var record *Record
	txErr := s.repo.Transact(func(tx entry.Repository) error {
		locked, err := tx.GetByIDForUpdate(entryID, userID)
		if err != nil {
			return err
		}
		// Re-validate: another settlement may have consumed the balance
		// between the optimistic check and taking the lock.
		if err := checkSettleable(locked, dto.Amount); err != nil {
			return err
		}

		now := time.Now()
		newRemaining := locked.Outstanding().Sub(dto.Amount)
		locked.RemainingAmount = &newRemaining
		if newRemaining.IsZero() {
			locked.Settled = true
			locked.SettledAt = &now
		}
		locked.UpdatedAt = now
		if err := tx.Update(locked); err != nil {
			return apperrors.NewStoreError("failed to update settled entry", err)
		}

		realization := buildRealization(locked, dto.Amount, dto.SettlementDate, method, now)
		if err := tx.Create(realization); err != nil {
			return apperrors.NewStoreError("failed to create realization entry", err)
		}

		record = &Record{
			SourceEntryID:      locked.ID,
			RealizationEntryID: realization.ID,
			AmountSettled:      dto.Amount,
			RemainingAfter:     newRemaining,
			SettledInFull:      newRemaining.IsZero(),
		}
		return nil
	})
	if txErr != nil {
		s.logger.Error("settlement failed", "error", txErr, "entry_id", entryID, "user_id", userID)
		return nil, txErr
	}

	s.bus.Publish(context.Background(), events.NewEntrySettledEvent(
		record.SourceEntryID, record.RealizationEntryID, userID,
		record.AmountSettled, record.RemainingAfter))

	s.logger.Info("entry settled",
		"entry_id", record.SourceEntryID,
		"realization_id", record.RealizationEntryID,
		"amount", record.AmountSettled.String(),
		"remaining", record.RemainingAfter.String(),
		"user_id", userID)

	return record, nil
}

// DeleteSettlement reverses a settlement: it deletes the realization entry
// and restores the source entry's outstanding balance in one transaction.
// A realization whose source cannot be resolved is an integrity anomaly
// (OrphanedSettlement), not a normal user error: deleting the row alone
// would destroy cash-movement history without restoring the balance.
func (s *Service) DeleteSettlement(realizationID, userID string) error {
	realization, err := s.repo.GetByID(realizationID, userID)
	if err != nil {
		return err
	}
	if !realization.IsRealization() {
		return apperrors.ErrNotARealization
	}

	sourceID := realization.SourceID()
	if sourceID == "" {
		return apperrors.ErrOrphanedSettlement
	}

	txErr := s.repo.Transact(func(tx entry.Repository) error {
		source, err := tx.GetByIDForUpdate(sourceID, userID)
		if err != nil {
			if appErr, ok := apperrors.IsAppError(err); ok && appErr.Code == apperrors.ErrCodeEntryNotFound {
				return apperrors.ErrOrphanedSettlement
			}
			return err
		}

		if err := tx.Delete(realizationID, userID); err != nil {
			return apperrors.NewStoreError("failed to delete realization entry", err)
		}

		restored := source.Outstanding().Add(realization.Amount)
		source.RemainingAmount = &restored
		source.Settled = false
		source.SettledAt = nil
		source.UpdatedAt = time.Now()
		if err := tx.Update(source); err != nil {
			return apperrors.NewStoreError("failed to restore source entry", err)
		}
		return nil
	})
	if txErr != nil {
		s.logger.Error("settlement reversal failed", "error", txErr, "realization_id", realizationID, "user_id", userID)
		return txErr
	}

	s.bus.Publish(context.Background(), events.NewSettlementReversedEvent(
		sourceID, realizationID, userID, realization.Amount))

	s.logger.Info("settlement reversed",
		"realization_id", realizationID,
		"source_id", sourceID,
		"amount_restored", realization.Amount.String(),
		"user_id", userID)

	return nil
}

// QuickAmounts returns the half/full settlement shortcuts for an entry's
// outstanding balance.
func (s *Service) QuickAmounts(entryID, userID string) (*QuickAmounts, error) {
	e, err := s.repo.GetByID(entryID, userID)
	if err != nil {
		return nil, err
	}
	if !e.IsDeferred() || e.IsRealization() {
		return nil, apperrors.ErrInvalidEntryType
	}
	qa := QuickAmountsFor(e.Outstanding())
	return &qa, nil
}

// checkSettleable runs settlement preconditions 2-5 in order.
func checkSettleable(e *entry.Entry, amount decimal.Decimal) *apperrors.AppError {
	if !e.IsDeferred() || e.IsRealization() {
		return apperrors.ErrInvalidEntryType
	}
	if e.Settled {
		return apperrors.ErrAlreadySettled
	}
	if amount.Sign() <= 0 {
		return apperrors.ErrInvalidAmount
	}
	if amount.GreaterThan(e.Outstanding()) {
		return apperrors.ErrExceedsOutstanding
	}
	return nil
}

// realizationMethod resolves the payment method of the realization entry.
// Settling a Credit moves cash now, so the caller must say how. Settling
// an Advance moves no new cash: it reclassifies money that already moved
// when the advance was recorded, so the realization inherits the
// advance's original method.
func realizationMethod(e *entry.Entry, dto SettleDTO) (entry.PaymentMethod, *apperrors.AppError) {
	if e.EntryType == entry.TypeAdvance {
		return e.PaymentMethod, nil
	}
	switch entry.PaymentMethod(dto.PaymentMethod) {
	case entry.MethodCash, entry.MethodBank:
		return entry.PaymentMethod(dto.PaymentMethod), nil
	default:
		return "", apperrors.NewValidationFieldError("payment_method",
			"Credit settlements must state how cash moved (Cash or Bank)",
			apperrors.ErrCodePaymentPairing)
	}
}

// buildRealization constructs the cash entry a settlement spawns. Sales
// obligations realize as cash in; everything else realizes as cash out.
func buildRealization(source *entry.Entry, amount decimal.Decimal, date time.Time, method entry.PaymentMethod, now time.Time) *entry.Entry {
	entryType := entry.TypeCashOut
	if source.Category == entry.CategorySales {
		entryType = entry.TypeCashIn
	}

	sourceID := source.ID
	return &entry.Entry{
		ID:            uuid.NewString(),
		UserID:        source.UserID,
		EntryType:     entryType,
		Category:      source.Category,
		PaymentMethod: method,
		Amount:        amount,
		Settled:       true,
		EntryDate:     date,
		Counterparty:  source.Counterparty,
		Notes:         entry.BuildSettlementMarker(source.EntryType, source.Category, source.ID),
		SourceEntryID: &sourceID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
