package entry

import (
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/reimagine-business/donna/internal"
	"github.com/reimagine-business/donna/internal/core/common/validation"
)

// CreateEntryDTO is the request payload for recording a ledger entry.
type CreateEntryDTO struct {
	EntryType     string          `json:"entry_type"`
	Category      string          `json:"category"`
	PaymentMethod string          `json:"payment_method"`
	Amount        decimal.Decimal `json:"amount"`
	EntryDate     time.Time       `json:"entry_date"`
	Counterparty  string          `json:"counterparty,omitempty"`
	Notes         string          `json:"notes,omitempty"`
}

// Validate enforces the entry validity rules: positive amount, no future
// dates, known enum values, and the payment-method pairing rule (Credit
// moves no cash so must carry None; every other type must carry Cash or
// Bank).
func (dto CreateEntryDTO) Validate() *apperrors.AppError {
	v := validation.NewValidator()
	v.Field("entry_type", dto.EntryType).
		Required().
		OneOf(EntryTypes()...)
	v.Field("category", dto.Category).
		Required().
		OneOf(Categories()...)
	v.Field("payment_method", dto.PaymentMethod).
		Required().
		OneOf(PaymentMethods()...)
	v.Field("amount", dto.Amount).
		Required().
		Positive()
	v.Field("entry_date", dto.EntryDate).
		Required().
		NotFuture()
	v.Field("counterparty", dto.Counterparty).
		MaxLength(200)
	v.Field("notes", dto.Notes).
		MaxLength(500)
	if err := v.Validate(); err != nil {
		return err
	}

	return validatePaymentPairing(EntryType(dto.EntryType), PaymentMethod(dto.PaymentMethod))
}

func validatePaymentPairing(entryType EntryType, method PaymentMethod) *apperrors.AppError {
	switch entryType {
	case TypeCredit:
		if method != MethodNone {
			return apperrors.NewValidationFieldError("payment_method",
				"Credit entries move no cash and must use payment method None",
				apperrors.ErrCodePaymentPairing)
		}
	case TypeCashIn, TypeCashOut, TypeAdvance:
		if method == MethodNone {
			return apperrors.NewValidationFieldError("payment_method",
				"cash movement is mandatory: payment method must be Cash or Bank",
				apperrors.ErrCodePaymentPairing)
		}
	}
	return nil
}

// ValidateEntry checks a fully-built Entry against the same rules the
// create path applies. The settlement engine's realization entries must
// pass this unchanged.
func ValidateEntry(e *Entry) *apperrors.AppError {
	return CreateEntryDTO{
		EntryType:     string(e.EntryType),
		Category:      string(e.Category),
		PaymentMethod: string(e.PaymentMethod),
		Amount:        e.Amount,
		EntryDate:     e.EntryDate,
		Counterparty:  e.Counterparty,
	}.Validate()
}

// UpdateEntryDTO carries the editable fields of an unsettled entry. Nil
// pointers leave the field untouched. Amount edits are only accepted while
// the entry is still fully outstanding.
type UpdateEntryDTO struct {
	Category     *string          `json:"category,omitempty"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	EntryDate    *time.Time       `json:"entry_date,omitempty"`
	Counterparty *string          `json:"counterparty,omitempty"`
	Notes        *string          `json:"notes,omitempty"`
}

func (dto UpdateEntryDTO) Validate() *apperrors.AppError {
	v := validation.NewValidator()
	if dto.Category != nil {
		v.Field("category", *dto.Category).
			Required().
			OneOf(Categories()...)
	}
	if dto.Amount != nil {
		v.Field("amount", *dto.Amount).
			Required().
			Positive()
	}
	if dto.EntryDate != nil {
		v.Field("entry_date", *dto.EntryDate).
			Required().
			NotFuture()
	}
	if dto.Counterparty != nil {
		v.Field("counterparty", *dto.Counterparty).
			MaxLength(200)
	}
	if dto.Notes != nil {
		v.Field("notes", *dto.Notes).
			MaxLength(500)
	}
	return v.Validate()
}
