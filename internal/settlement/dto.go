package settlement

import (
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/reimagine-business/donna/internal"
	"github.com/reimagine-business/donna/internal/core/common/validation"
	"github.com/reimagine-business/donna/internal/entry"
)

// SettleDTO is the request payload for settling part or all of an
// outstanding Credit/Advance entry. PaymentMethod says how the cash moved
// and is required for Credit settlements; Advance settlements move no new
// cash, so the field is ignored for them.
type SettleDTO struct {
	Amount         decimal.Decimal `json:"amount"`
	SettlementDate time.Time       `json:"settlement_date"`
	PaymentMethod  string          `json:"payment_method,omitempty"`
}

// ValidateShape checks the fields that do not depend on the target entry.
// Amount range checks run against the loaded entry in the engine, in the
// precondition order the engine guarantees.
func (dto SettleDTO) ValidateShape() *apperrors.AppError {
	v := validation.NewValidator()
	v.Field("settlement_date", dto.SettlementDate).
		Required().
		NotFuture()
	if dto.PaymentMethod != "" {
		v.Field("payment_method", dto.PaymentMethod).
			OneOf(string(entry.MethodCash), string(entry.MethodBank))
	}
	return v.Validate()
}
