package amqp

import (
	"strings"
	"testing"
)

func TestTransactionEventMessage(t *testing.T) {
	msg := NewTransactionEventMessage("u1", "tx-1", ActionCompleted, 2025, 6)
	if msg.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be set")
	}

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("to json: %v", err)
	}
	for _, field := range []string{`"user_id":"u1"`, `"transaction_id":"tx-1"`, `"action":"completed"`, `"year":2025`, `"month":6`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("expected %s in %s", field, data)
		}
	}

	decoded, err := TransactionEventMessageFromJSON(data)
	if err != nil {
		t.Fatalf("from json: %v", err)
	}
	if decoded.UserID != "u1" || decoded.TransactionID != "tx-1" || decoded.Action != ActionCompleted {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
	if decoded.Year != 2025 || decoded.Month != 6 {
		t.Fatalf("month mismatch: %+v", decoded)
	}
}

func TestTransactionEventMessageFromJSONRejectsGarbage(t *testing.T) {
	if _, err := TransactionEventMessageFromJSON([]byte("not json")); err == nil {
		t.Fatal("expected error")
	}
}

// Messages from newer producers may carry extra fields; consumers must not
// choke on them.
func TestTransactionEventMessageIgnoresUnknownFields(t *testing.T) {
	data := []byte(`{"user_id":"u1","action":"deleted","year":2025,"month":6,"schema_version":2}`)
	msg, err := TransactionEventMessageFromJSON(data)
	if err != nil {
		t.Fatalf("from json: %v", err)
	}
	if msg.Action != ActionDeleted {
		t.Fatalf("expected deleted, got %s", msg.Action)
	}
}
