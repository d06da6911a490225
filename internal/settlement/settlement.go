package settlement

import (
	"github.com/shopspring/decimal"
)

// Record describes one executed settlement: which entry was settled, the
// realization row it produced, and the balance left behind.
type Record struct {
	SourceEntryID      string          `json:"source_entry_id"`
	RealizationEntryID string          `json:"realization_entry_id"`
	AmountSettled      decimal.Decimal `json:"amount_settled"`
	RemainingAfter     decimal.Decimal `json:"remaining_after"`
	SettledInFull      bool            `json:"settled_in_full"`
}

// QuickAmounts are the half/full shortcuts the entry form offers. Half is
// floored to whole units so two taps of "half" never overshoot the
// outstanding balance.
type QuickAmounts struct {
	Half decimal.Decimal `json:"half"`
	Full decimal.Decimal `json:"full"`
}

func QuickAmountsFor(outstanding decimal.Decimal) QuickAmounts {
	return QuickAmounts{
		Half: outstanding.Div(decimal.NewFromInt(2)).Floor(),
		Full: outstanding,
	}
}
