package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypeEntryCreated       = "entry.created"
	EventTypeEntrySettled       = "entry.settled"
	EventTypeSettlementReversed = "settlement.reversed"
)

type EntryCreatedEvent struct {
	BaseEvent
	EntryID   string          `json:"entry_id"`
	UserID    string          `json:"user_id"`
	EntryType string          `json:"entry_type"`
	Category  string          `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
}

func NewEntryCreatedEvent(entryID, userID, entryType, category string, amount decimal.Decimal) *EntryCreatedEvent {
	return &EntryCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeEntryCreated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"entry_id":   entryID,
				"user_id":    userID,
				"entry_type": entryType,
				"category":   category,
				"amount":     amount.String(),
			},
		},
		EntryID:   entryID,
		UserID:    userID,
		EntryType: entryType,
		Category:  category,
		Amount:    amount,
	}
}

type EntrySettledEvent struct {
	BaseEvent
	SourceEntryID      string          `json:"source_entry_id"`
	RealizationEntryID string          `json:"realization_entry_id"`
	UserID             string          `json:"user_id"`
	AmountSettled      decimal.Decimal `json:"amount_settled"`
	RemainingAfter     decimal.Decimal `json:"remaining_after"`
	SettledInFull      bool            `json:"settled_in_full"`
}

func NewEntrySettledEvent(sourceID, realizationID, userID string, amountSettled, remainingAfter decimal.Decimal) *EntrySettledEvent {
	return &EntrySettledEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeEntrySettled,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"source_entry_id":      sourceID,
				"realization_entry_id": realizationID,
				"user_id":              userID,
				"amount_settled":       amountSettled.String(),
				"remaining_after":      remainingAfter.String(),
			},
		},
		SourceEntryID:      sourceID,
		RealizationEntryID: realizationID,
		UserID:             userID,
		AmountSettled:      amountSettled,
		RemainingAfter:     remainingAfter,
		SettledInFull:      remainingAfter.IsZero(),
	}
}

type SettlementReversedEvent struct {
	BaseEvent
	SourceEntryID      string          `json:"source_entry_id"`
	RealizationEntryID string          `json:"realization_entry_id"`
	UserID             string          `json:"user_id"`
	AmountRestored     decimal.Decimal `json:"amount_restored"`
}

func NewSettlementReversedEvent(sourceID, realizationID, userID string, amountRestored decimal.Decimal) *SettlementReversedEvent {
	return &SettlementReversedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeSettlementReversed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"source_entry_id":      sourceID,
				"realization_entry_id": realizationID,
				"user_id":              userID,
				"amount_restored":      amountRestored.String(),
			},
		},
		SourceEntryID:      sourceID,
		RealizationEntryID: realizationID,
		UserID:             userID,
		AmountRestored:     amountRestored,
	}
}
