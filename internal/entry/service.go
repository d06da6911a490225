package entry

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/reimagine-business/donna/internal"
	"github.com/reimagine-business/donna/internal/core/events"
)

// Repository is the durable store of Entry records, always scoped by user.
// Transact runs fn against a transactional view of the store: every write
// inside fn commits atomically or not at all.
type Repository interface {
	Create(e *Entry) error
	GetByID(id, userID string) (*Entry, error)
	// GetByIDForUpdate locks the row for the duration of the surrounding
	// transaction. Only meaningful inside Transact.
	GetByIDForUpdate(id, userID string) (*Entry, error)
	ListByUser(userID string) ([]*Entry, error)
	Update(e *Entry) error
	Delete(id, userID string) error
	CountRealizations(sourceID, userID string) (int64, error)
	Transact(fn func(Repository) error) error
}

// Service handles direct entry bookkeeping: recording, editing and
// deleting ordinary entries. Settlement and reversal live in the
// settlement package.
type Service struct {
	repo   Repository
	bus    *events.EventBus
	logger *slog.Logger
}

func NewService(repo Repository, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		bus:    bus,
		logger: logger,
	}
}

// CreateEntry validates and records a new ledger entry. Credit and Advance
// entries start fully outstanding; cash entries have no outstanding
// semantics and are recorded settled.
func (s *Service) CreateEntry(userID string, dto CreateEntryDTO) (*Entry, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("entry validation failed", "error", err, "user_id", userID)
		return nil, err
	}

	// The settlement marker convention is reserved for engine-generated
	// rows; a user-supplied note matching it would masquerade as one.
	if _, ok := ParseSettlementMarker(dto.Notes); ok {
		return nil, apperrors.NewValidationFieldError("notes",
			"notes must not use the reserved settlement marker format",
			apperrors.ErrCodeValidationFailed)
	}

	now := time.Now()
	e := &Entry{
		ID:            uuid.NewString(),
		UserID:        userID,
		EntryType:     EntryType(dto.EntryType),
		Category:      Category(dto.Category),
		PaymentMethod: PaymentMethod(dto.PaymentMethod),
		Amount:        dto.Amount,
		EntryDate:     dto.EntryDate,
		Counterparty:  dto.Counterparty,
		Notes:         dto.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if e.IsDeferred() {
		remaining := dto.Amount
		e.RemainingAmount = &remaining
		e.Settled = false
	} else {
		e.Settled = true
	}

	if err := s.repo.Create(e); err != nil {
		s.logger.Error("failed to create entry", "error", err, "user_id", userID)
		return nil, apperrors.NewStoreError("failed to persist entry", err)
	}

	s.bus.Publish(context.Background(), events.NewEntryCreatedEvent(e.ID, e.UserID, string(e.EntryType), string(e.Category), e.Amount))

	s.logger.Info("entry created",
		"entry_id", e.ID,
		"user_id", userID,
		"entry_type", e.EntryType,
		"amount", e.Amount.String())

	return e, nil
}

func (s *Service) GetEntry(id, userID string) (*Entry, error) {
	e, err := s.repo.GetByID(id, userID)
	if err != nil {
		s.logger.Error("failed to get entry", "error", err, "entry_id", id)
		return nil, err
	}
	return e, nil
}

func (s *Service) ListEntries(userID string) ([]*Entry, error) {
	entries, err := s.repo.ListByUser(userID)
	if err != nil {
		s.logger.Error("failed to list entries", "error", err, "user_id", userID)
		return nil, apperrors.NewStoreError("failed to list entries", err)
	}
	return entries, nil
}

// UpdateEntry edits an unsettled entry. Realization entries are immutable
// (their marker and source link must not drift); amount edits are only
// accepted while the entry is still fully outstanding, and re-base the
// remaining balance.
func (s *Service) UpdateEntry(id, userID string, dto UpdateEntryDTO) (*Entry, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	e, err := s.repo.GetByID(id, userID)
	if err != nil {
		return nil, err
	}

	if e.IsRealization() {
		return nil, apperrors.ErrEntryImmutable
	}
	if e.IsDeferred() && e.Settled {
		return nil, apperrors.ErrEntryImmutable
	}

	if dto.Amount != nil && !dto.Amount.Equal(e.Amount) {
		if e.IsDeferred() {
			if !e.Outstanding().Equal(e.Amount) {
				return nil, apperrors.ErrHasSettlements
			}
			count, err := s.repo.CountRealizations(e.ID, userID)
			if err != nil {
				return nil, apperrors.NewStoreError("failed to check settlements", err)
			}
			if count > 0 {
				return nil, apperrors.ErrHasSettlements
			}
			remaining := *dto.Amount
			e.RemainingAmount = &remaining
		}
		e.Amount = *dto.Amount
	}
	if dto.Category != nil {
		e.Category = Category(*dto.Category)
	}
	if dto.EntryDate != nil {
		e.EntryDate = *dto.EntryDate
	}
	if dto.Counterparty != nil {
		e.Counterparty = *dto.Counterparty
	}
	if dto.Notes != nil {
		if _, ok := ParseSettlementMarker(*dto.Notes); ok {
			return nil, apperrors.NewValidationFieldError("notes",
				"notes must not use the reserved settlement marker format",
				apperrors.ErrCodeValidationFailed)
		}
		e.Notes = *dto.Notes
	}
	e.UpdatedAt = time.Now()

	if err := s.repo.Update(e); err != nil {
		s.logger.Error("failed to update entry", "error", err, "entry_id", id)
		return nil, apperrors.NewStoreError("failed to update entry", err)
	}

	return e, nil
}

// DeleteEntry removes an ordinary entry. Realization entries must go
// through settlement reversal so the source balance is restored, and a
// deferred entry with live realizations cannot be deleted out from under
// them.
func (s *Service) DeleteEntry(id, userID string) error {
	e, err := s.repo.GetByID(id, userID)
	if err != nil {
		return err
	}

	if e.IsRealization() {
		return apperrors.ErrIsRealization
	}

	if e.IsDeferred() {
		count, err := s.repo.CountRealizations(e.ID, userID)
		if err != nil {
			return apperrors.NewStoreError("failed to check settlements", err)
		}
		if count > 0 {
			return apperrors.ErrHasSettlements
		}
	}

	if err := s.repo.Delete(id, userID); err != nil {
		s.logger.Error("failed to delete entry", "error", err, "entry_id", id)
		return apperrors.NewStoreError("failed to delete entry", err)
	}

	s.logger.Info("entry deleted", "entry_id", id, "user_id", userID)
	return nil
}
