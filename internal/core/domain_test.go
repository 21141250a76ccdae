package core

import (
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestParseKind(t *testing.T) {
	cases := []struct {
		in   string
		want Kind
		ok   bool
	}{
		{"income", Income, true},
		{"EXPENSE", Expense, true},
		{" expense ", Expense, true},
		{"transfer", "", false},
		{"", "", false},
	}
	for i, tc := range cases {
		got, err := ParseKind(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("case %d: expected %s, got %s (err=%v)", i, tc.want, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestParseStatusFoldsLegacySpellings(t *testing.T) {
	cases := []struct {
		in   string
		want Status
	}{
		{"completed", StatusCompleted},
		{"reserved", StatusReserved},
		{"blocked", StatusReserved},
		{"pending", StatusReserved},
		{"BLOCKED", StatusReserved},
		{"released", StatusReleased},
		{"reverted", StatusReleased},
	}
	for _, tc := range cases {
		got, err := ParseStatus(tc.in)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%q: expected %s, got %s", tc.in, tc.want, got)
		}
	}

	if _, err := ParseStatus("frozen"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Kind:     Expense,
		Amount:   Money{Cents: 1500},
		Category: "Food",
		Date:     NewDate(2025, 6, 10),
		Status:   StatusReserved,
	}
	if err := good.Validate(testNow); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		mut  func(*Transaction)
		want error
	}{
		{"zero amount", func(x *Transaction) { x.Amount.Cents = 0 }, ErrInvalidAmount},
		{"negative amount", func(x *Transaction) { x.Amount.Cents = -100 }, ErrInvalidAmount},
		{"bad kind", func(x *Transaction) { x.Kind = "transfer" }, ErrInvalidKind},
		{"zero date", func(x *Transaction) { x.Date = Date{} }, ErrMissingDate},
		{"future date", func(x *Transaction) { x.Date = NewDate(2025, 6, 16) }, ErrFutureDate},
		{"reserved income", func(x *Transaction) { x.Kind = Income }, ErrInvalidStatus},
		{"unknown status", func(x *Transaction) { x.Status = "frozen" }, ErrInvalidStatus},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bad := good
			tc.mut(&bad)
			if err := bad.Validate(testNow); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	// Creation on the current day is allowed; only strictly future dates fail.
	today := good
	today.Date = NewDate(2025, 6, 15)
	if err := today.Validate(testNow); err != nil {
		t.Fatalf("same-day date should validate, got %v", err)
	}
}

func TestNormalizeDefaultsCategory(t *testing.T) {
	tx := Transaction{Category: "  ", Description: " coffee "}
	tx.Normalize()
	if tx.Category != DefaultCategory {
		t.Fatalf("expected %q, got %q", DefaultCategory, tx.Category)
	}
	if tx.Description != "coffee" {
		t.Fatalf("expected trimmed description, got %q", tx.Description)
	}
}

func TestEditable(t *testing.T) {
	cases := []struct {
		kind   Kind
		status Status
		want   bool
	}{
		{Income, StatusCompleted, true},
		{Expense, StatusReserved, true},
		{Expense, StatusCompleted, false},
		{Expense, StatusReleased, false},
	}
	for i, tc := range cases {
		tx := Transaction{Kind: tc.kind, Status: tc.status}
		if got := tx.Editable(); got != tc.want {
			t.Fatalf("case %d: expected %v, got %v", i, tc.want, got)
		}
	}
}

func TestCanTransition(t *testing.T) {
	reserved := Transaction{Kind: Expense, Status: StatusReserved}
	if !reserved.CanTransition() {
		t.Fatal("reserved expense must allow transition")
	}

	for _, tx := range []Transaction{
		{Kind: Expense, Status: StatusCompleted},
		{Kind: Expense, Status: StatusReleased},
		{Kind: Income, Status: StatusCompleted},
	} {
		if tx.CanTransition() {
			t.Fatalf("%s/%s must not allow transition", tx.Kind, tx.Status)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	if !StatusCompleted.Terminal() || !StatusReleased.Terminal() {
		t.Fatal("completed and released are absorbing")
	}
	if StatusReserved.Terminal() {
		t.Fatal("reserved is not absorbing")
	}
}
