package entry

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry is the persistence shape of one ledger row. A single flat table
// holds direct cash movements, deferred obligations and the realization
// rows settlements produce; SourceEntryID links a realization row back to
// the entry it settled.
type Entry struct {
	ID              string           `gorm:"primaryKey;type:uuid"`
	UserID          string           `gorm:"column:user_id;type:uuid;not null;index"`
	EntryType       string           `gorm:"column:entry_type;not null"`
	Category        string           `gorm:"column:category;not null"`
	PaymentMethod   string           `gorm:"column:payment_method;not null"`
	Amount          decimal.Decimal  `gorm:"column:amount;type:numeric(14,2);not null"`
	RemainingAmount *decimal.Decimal `gorm:"column:remaining_amount;type:numeric(14,2)"`
	Settled         bool             `gorm:"column:settled;not null;default:false"`
	SettledAt       *time.Time       `gorm:"column:settled_at"`
	EntryDate       time.Time        `gorm:"column:entry_date;type:date;not null"`
	Counterparty    string           `gorm:"column:counterparty"`
	Notes           string           `gorm:"column:notes"`
	SourceEntryID   *string          `gorm:"column:source_entry_id;type:uuid;index"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (Entry) TableName() string {
	return "entries"
}
