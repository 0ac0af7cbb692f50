package amqp

import (
	"encoding/json"
	"time"
)

// ExpenseChangedMessage announces one committed expense create or update.
// It carries only what the alert engine needs: the family and the expense
// date that selects the month to re-evaluate. The worker re-reads spend
// from the database, so a stale or duplicated message is harmless.
type ExpenseChangedMessage struct {
	FamilyID    string    `json:"family_id"`
	ExpenseDate time.Time `json:"expense_date"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewExpenseChangedMessage(familyID string, expenseDate time.Time) *ExpenseChangedMessage {
	return &ExpenseChangedMessage{
		FamilyID:    familyID,
		ExpenseDate: expenseDate,
		Timestamp:   time.Now(),
	}
}

func (m *ExpenseChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseChangedMessageFromJSON(data []byte) (*ExpenseChangedMessage, error) {
	var msg ExpenseChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
