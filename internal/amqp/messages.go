package amqp

import (
	"encoding/json"
	"time"
)

// Event actions carried on the ledger queue.
const (
	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionCompleted = "completed"
	ActionReverted  = "reverted"
	ActionDeleted   = "deleted"
)

// TransactionEventMessage is a lightweight message describing one ledger
// mutation. It carries only identifiers and the affected month; the worker
// fetches whatever rows it needs from the database.
type TransactionEventMessage struct {
	UserID        string    `json:"user_id"`
	TransactionID string    `json:"transaction_id"`
	Action        string    `json:"action"`
	Year          int       `json:"year"`
	Month         int       `json:"month"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionEventMessage creates an event for one mutated transaction.
func NewTransactionEventMessage(userID, transactionID, action string, year, month int) *TransactionEventMessage {
	return &TransactionEventMessage{
		UserID:        userID,
		TransactionID: transactionID,
		Action:        action,
		Year:          year,
		Month:         month,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *TransactionEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventMessageFromJSON creates a message from JSON bytes.
func TransactionEventMessageFromJSON(data []byte) (*TransactionEventMessage, error) {
	var msg TransactionEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
