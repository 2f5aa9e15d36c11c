package amqp

import (
	"encoding/json"
	"time"

	"fintrack/internal/core"
)

const EventTransactionCreated = "transaction.created"

// TransactionEvent announces a ledger change. The worker reloads the
// transaction by id, the remaining fields are informational.
type TransactionEvent struct {
	Type            string    `json:"type"`
	TransactionID   string    `json:"transactionId"`
	OwnerID         string    `json:"userId"`
	Kind            core.Kind `json:"kind"`
	Amount          string    `json:"amount"`
	Category        string    `json:"category"`
	Date            time.Time `json:"date"`
	RecurringRuleID string    `json:"recurringId,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// NewTransactionCreatedEvent builds the event for a freshly stored transaction.
func NewTransactionCreatedEvent(t core.Transaction) *TransactionEvent {
	ev := &TransactionEvent{
		Type:          EventTransactionCreated,
		TransactionID: t.ID,
		OwnerID:       t.OwnerID,
		Kind:          t.Kind,
		Amount:        t.Amount.StringFixed(core.AmountScale),
		Category:      t.Category,
		Date:          t.Date,
		Timestamp:     time.Now(),
	}
	if t.RecurringRuleID != nil {
		ev.RecurringRuleID = *t.RecurringRuleID
	}
	return ev
}

func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
