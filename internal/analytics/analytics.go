// Package analytics holds the pure read-models derived from the entry
// set: cash balance, the profit view and the pending aggregations. All
// functions are total and stateless, safe to recompute on every request;
// they trust the store to only contain validated entries.
package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/reimagine-business/donna/internal/entry"
)

// Window is an optional inclusive [From, To] bound applied against
// entry_date. Nil ends are open.
type Window struct {
	From *time.Time
	To   *time.Time
}

func (w Window) contains(date time.Time) bool {
	if w.From != nil && date.Before(*w.From) {
		return false
	}
	if w.To != nil && date.After(*w.To) {
		return false
	}
	return true
}

// CashBalance is the signed sum of actual cash movement over all entries,
// never date-filtered. Unrealized Credit contributes nothing (no cash has
// moved); an Advance's cash moved when it was recorded, so the Advance
// itself contributes and its realization legs contribute nothing — they
// only reclassify money already counted.
func CashBalance(entries []*entry.Entry) decimal.Decimal {
	bySourceType := sourceTypeIndex(entries)

	total := decimal.Zero
	for _, e := range entries {
		switch e.EntryType {
		case entry.TypeCashIn:
			if !realizesAdvance(e, bySourceType) {
				total = total.Add(e.Amount)
			}
		case entry.TypeCashOut:
			if !realizesAdvance(e, bySourceType) {
				total = total.Sub(e.Amount)
			}
		case entry.TypeAdvance:
			if e.Category == entry.CategorySales {
				total = total.Add(e.Amount)
			} else {
				total = total.Sub(e.Amount)
			}
		}
	}
	return total
}

// ProfitSummary is the accrual-aware profit view for a period.
type ProfitSummary struct {
	Revenue   decimal.Decimal `json:"revenue"`
	COGS      decimal.Decimal `json:"cogs"`
	Opex      decimal.Decimal `json:"opex"`
	NetProfit decimal.Decimal `json:"net_profit"`
}

// Profit recognizes each entry exactly once: direct cash entries when they
// happen, Credit at creation (accrual), Advance only once settled.
// Realization legs are never counted — their source entry already carried
// the revenue or expense event.
func Profit(entries []*entry.Entry, w Window) ProfitSummary {
	sum := ProfitSummary{
		Revenue: decimal.Zero,
		COGS:    decimal.Zero,
		Opex:    decimal.Zero,
	}

	for _, e := range entries {
		if !w.contains(e.EntryDate) {
			continue
		}
		if !recognized(e) {
			continue
		}
		switch e.Category {
		case entry.CategorySales:
			sum.Revenue = sum.Revenue.Add(e.Amount)
		case entry.CategoryCOGS:
			sum.COGS = sum.COGS.Add(e.Amount)
		case entry.CategoryOpex:
			sum.Opex = sum.Opex.Add(e.Amount)
		}
	}

	sum.NetProfit = sum.Revenue.Sub(sum.COGS).Sub(sum.Opex)
	return sum
}

func recognized(e *entry.Entry) bool {
	switch e.RecognitionBasis() {
	case entry.RecognitionCash, entry.RecognitionAccrual:
		return true
	case entry.RecognitionOnSettlement:
		return e.Settled
	default:
		return false
	}
}

// PendingItem is one counterparty's outstanding total.
type PendingItem struct {
	Counterparty string          `json:"counterparty"`
	Outstanding  decimal.Decimal `json:"outstanding"`
	Entries      int             `json:"entries"`
}

// PendingCollections aggregates unsettled Credit sales by counterparty:
// money owed to the business.
func PendingCollections(entries []*entry.Entry, w Window) []PendingItem {
	return pending(entries, w, func(e *entry.Entry) bool {
		return e.EntryType == entry.TypeCredit && e.Category == entry.CategorySales
	})
}

// PendingBills aggregates unsettled Credit purchases (COGS, Opex, Assets)
// by counterparty: money the business owes.
func PendingBills(entries []*entry.Entry, w Window) []PendingItem {
	return pending(entries, w, func(e *entry.Entry) bool {
		return e.EntryType == entry.TypeCredit && e.Category != entry.CategorySales
	})
}

// PendingAdvances aggregates unsettled advances by counterparty:
// obligations still to be delivered against cash that already moved.
func PendingAdvances(entries []*entry.Entry, w Window) []PendingItem {
	return pending(entries, w, func(e *entry.Entry) bool {
		return e.EntryType == entry.TypeAdvance
	})
}

func pending(entries []*entry.Entry, w Window, match func(*entry.Entry) bool) []PendingItem {
	totals := make(map[string]*PendingItem)
	order := make([]string, 0)

	for _, e := range entries {
		if e.Settled || !match(e) || !w.contains(e.EntryDate) {
			continue
		}
		// Realization entries are cash entries, but guard anyway: they
		// must never show up as pending.
		if e.IsRealization() {
			continue
		}
		key := e.Counterparty
		item, ok := totals[key]
		if !ok {
			item = &PendingItem{Counterparty: key, Outstanding: decimal.Zero}
			totals[key] = item
			order = append(order, key)
		}
		item.Outstanding = item.Outstanding.Add(e.Outstanding())
		item.Entries++
	}

	result := make([]PendingItem, 0, len(order))
	for _, key := range order {
		result = append(result, *totals[key])
	}
	return result
}

// PendingTotal sums the outstanding amounts of a pending aggregation.
func PendingTotal(items []PendingItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Outstanding)
	}
	return total
}

// sourceTypeIndex maps entry id to entry type so realization legs can be
// attributed to the kind of obligation they settled.
func sourceTypeIndex(entries []*entry.Entry) map[string]entry.EntryType {
	index := make(map[string]entry.EntryType, len(entries))
	for _, e := range entries {
		index[e.ID] = e.EntryType
	}
	return index
}

// realizesAdvance reports whether e is a realization leg of an Advance.
// The notes marker names the source type directly; when only a source id
// link is present the source entry is resolved from the set.
func realizesAdvance(e *entry.Entry, bySourceType map[string]entry.EntryType) bool {
	if !e.IsRealization() {
		return false
	}
	if m, ok := entry.ParseSettlementMarker(e.Notes); ok {
		return m.SourceType == entry.TypeAdvance
	}
	if t, ok := bySourceType[e.SourceID()]; ok {
		return t == entry.TypeAdvance
	}
	return false
}
