package entry

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	entryDatamodel "github.com/reimagine-business/donna/internal/core/datamodel/entry"
)

type EntryType string

const (
	TypeCashIn  EntryType = "CashIn"
	TypeCashOut EntryType = "CashOut"
	TypeCredit  EntryType = "Credit"
	TypeAdvance EntryType = "Advance"
)

type Category string

const (
	CategorySales  Category = "Sales"
	CategoryCOGS   Category = "COGS"
	CategoryOpex   Category = "Opex"
	CategoryAssets Category = "Assets"
)

type PaymentMethod string

const (
	MethodCash PaymentMethod = "Cash"
	MethodBank PaymentMethod = "Bank"
	MethodNone PaymentMethod = "None"
)

func EntryTypes() []string {
	return []string{string(TypeCashIn), string(TypeCashOut), string(TypeCredit), string(TypeAdvance)}
}

func Categories() []string {
	return []string{string(CategorySales), string(CategoryCOGS), string(CategoryOpex), string(CategoryAssets)}
}

func PaymentMethods() []string {
	return []string{string(MethodCash), string(MethodBank), string(MethodNone)}
}

// Entry is one ledger row: a direct cash movement, a deferred obligation
// (Credit/Advance) carrying an outstanding balance, or a realization row
// produced by settling a deferred obligation.
type Entry struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	EntryType       EntryType        `json:"entry_type"`
	Category        Category         `json:"category"`
	PaymentMethod   PaymentMethod    `json:"payment_method"`
	Amount          decimal.Decimal  `json:"amount"`
	RemainingAmount *decimal.Decimal `json:"remaining_amount,omitempty"`
	Settled         bool             `json:"settled"`
	SettledAt       *time.Time       `json:"settled_at,omitempty"`
	EntryDate       time.Time        `json:"entry_date"`
	Counterparty    string           `json:"counterparty,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	SourceEntryID   *string          `json:"source_entry_id,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// IsDeferred reports whether the entry carries an outstanding balance that
// can be settled later. Only Credit and Advance entries defer.
func (e *Entry) IsDeferred() bool {
	return e.EntryType == TypeCredit || e.EntryType == TypeAdvance
}

// Outstanding returns the unsettled balance. A nil RemainingAmount means
// nothing has been settled yet, so the full face value is outstanding.
// Cash entries have no outstanding semantics and always return zero.
func (e *Entry) Outstanding() decimal.Decimal {
	if !e.IsDeferred() {
		return decimal.Zero
	}
	if e.RemainingAmount == nil {
		return e.Amount
	}
	return *e.RemainingAmount
}

// IsRealization reports whether this entry was generated by a settlement.
// The source link column is authoritative; the notes marker is kept as a
// fallback for rows imported from the legacy system, which only carried
// the text convention.
func (e *Entry) IsRealization() bool {
	if e.SourceEntryID != nil && *e.SourceEntryID != "" {
		return true
	}
	_, ok := ParseSettlementMarker(e.Notes)
	return ok
}

// SourceID resolves the id of the entry this realization settled, from the
// link column first and the notes marker second. Returns "" when neither
// resolves.
func (e *Entry) SourceID() string {
	if e.SourceEntryID != nil && *e.SourceEntryID != "" {
		return *e.SourceEntryID
	}
	if m, ok := ParseSettlementMarker(e.Notes); ok {
		return m.SourceEntryID
	}
	return ""
}

type RecognitionBasis string

const (
	// RecognitionAccrual: counted in revenue/expense at obligation creation.
	RecognitionAccrual RecognitionBasis = "Accrual"
	// RecognitionCash: counted when cash actually moves.
	RecognitionCash RecognitionBasis = "Cash"
	// RecognitionOnSettlement: counted only once the entry is settled.
	RecognitionOnSettlement RecognitionBasis = "OnSettlement"
	// RecognitionNever: realization legs, already counted via their source.
	RecognitionNever RecognitionBasis = "Never"
)

// RecognitionBasis classifies how the entry participates in the profit
// view. Realization rows are never recognized again: their source entry
// already carries the revenue/expense event.
func (e *Entry) RecognitionBasis() RecognitionBasis {
	switch e.EntryType {
	case TypeCredit:
		return RecognitionAccrual
	case TypeAdvance:
		return RecognitionOnSettlement
	default:
		if e.IsRealization() {
			return RecognitionNever
		}
		return RecognitionCash
	}
}

// SettlementMarker is the structured notes convention carried by
// realization entries: "Settlement of <EntryType> <Category> (ID: <id>)".
type SettlementMarker struct {
	SourceType    EntryType
	SourceCat     Category
	SourceEntryID string
}

var settlementMarkerRe = regexp.MustCompile(`^Settlement of (CashIn|CashOut|Credit|Advance) (Sales|COGS|Opex|Assets) \(ID: ([^)]+)\)$`)

func BuildSettlementMarker(srcType EntryType, srcCat Category, srcID string) string {
	return fmt.Sprintf("Settlement of %s %s (ID: %s)", srcType, srcCat, srcID)
}

func ParseSettlementMarker(notes string) (SettlementMarker, bool) {
	m := settlementMarkerRe.FindStringSubmatch(notes)
	if m == nil {
		return SettlementMarker{}, false
	}
	return SettlementMarker{
		SourceType:    EntryType(m[1]),
		SourceCat:     Category(m[2]),
		SourceEntryID: m[3],
	}, true
}

func ToDataModel(e *Entry) *entryDatamodel.Entry {
	return &entryDatamodel.Entry{
		ID:              e.ID,
		UserID:          e.UserID,
		EntryType:       string(e.EntryType),
		Category:        string(e.Category),
		PaymentMethod:   string(e.PaymentMethod),
		Amount:          e.Amount,
		RemainingAmount: e.RemainingAmount,
		Settled:         e.Settled,
		SettledAt:       e.SettledAt,
		EntryDate:       e.EntryDate,
		Counterparty:    e.Counterparty,
		Notes:           e.Notes,
		SourceEntryID:   e.SourceEntryID,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func FromDataModel(e *entryDatamodel.Entry) *Entry {
	return &Entry{
		ID:              e.ID,
		UserID:          e.UserID,
		EntryType:       EntryType(e.EntryType),
		Category:        Category(e.Category),
		PaymentMethod:   PaymentMethod(e.PaymentMethod),
		Amount:          e.Amount,
		RemainingAmount: e.RemainingAmount,
		Settled:         e.Settled,
		SettledAt:       e.SettledAt,
		EntryDate:       e.EntryDate,
		Counterparty:    e.Counterparty,
		Notes:           e.Notes,
		SourceEntryID:   e.SourceEntryID,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func FromDataModelSlice(entries []*entryDatamodel.Entry) []*Entry {
	result := make([]*Entry, len(entries))
	for i, e := range entries {
		result[i] = FromDataModel(e)
	}
	return result
}
