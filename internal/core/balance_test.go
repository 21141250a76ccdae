package core

import (
	"errors"
	"testing"
)

func tx(kind Kind, cents int64, status Status, category string, date Date) Transaction {
	return Transaction{
		ID:       category + date.Format("2006-01-02"),
		Kind:     kind,
		Amount:   Money{Cents: cents},
		Category: category,
		Date:     date,
		Status:   status,
	}
}

func TestComputeBalanceMixedSet(t *testing.T) {
	june := func(day int) Date { return NewDate(2025, 6, day) }
	txs := []Transaction{
		tx(Income, 200_000, StatusCompleted, "Salary", june(1)),
		tx(Expense, 30_000, StatusCompleted, "Rent", june(2)),
		tx(Expense, 5_000, StatusReserved, "Food", june(3)),
		tx(Expense, 8_000, StatusReleased, "Travel", june(4)),
	}

	b, err := ComputeBalance(txs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.TotalIncome.Cents != 200_000 {
		t.Errorf("totalIncome: expected 200000, got %d", b.TotalIncome.Cents)
	}
	// The reserved expense counts; the released one does not.
	if b.TotalExpense.Cents != 35_000 {
		t.Errorf("totalExpense: expected 35000, got %d", b.TotalExpense.Cents)
	}
	if b.ReservedBalance.Cents != 5_000 {
		t.Errorf("reservedBalance: expected 5000, got %d", b.ReservedBalance.Cents)
	}
	if b.Balance.Cents != 165_000 {
		t.Errorf("balance: expected 165000, got %d", b.Balance.Cents)
	}
	if b.ReservedBalance.Cents > b.TotalExpense.Cents {
		t.Error("reservedBalance must not exceed totalExpense")
	}
}

func TestComputeBalanceStableUnderReorder(t *testing.T) {
	june := func(day int) Date { return NewDate(2025, 6, day) }
	txs := []Transaction{
		tx(Income, 100_000, StatusCompleted, "Salary", june(1)),
		tx(Expense, 12_500, StatusCompleted, "Food", june(5)),
		tx(Expense, 7_500, StatusReserved, "Travel", june(9)),
	}
	reversed := []Transaction{txs[2], txs[1], txs[0]}

	a, err := ComputeBalance(txs)
	if err != nil {
		t.Fatal(err)
	}
	b, err := ComputeBalance(reversed)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("balance differs under reordering: %+v vs %+v", a, b)
	}
}

func TestComputeBalanceEmpty(t *testing.T) {
	b, err := ComputeBalance(nil)
	if err != nil {
		t.Fatal(err)
	}
	if b != (Balance{}) {
		t.Fatalf("expected zero balance, got %+v", b)
	}
}

func TestComputeBalanceRejectsMalformed(t *testing.T) {
	bad := []Transaction{tx(Expense, 0, StatusCompleted, "Food", NewDate(2025, 6, 1))}
	if _, err := ComputeBalance(bad); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	badKind := []Transaction{tx("transfer", 100, StatusCompleted, "Food", NewDate(2025, 6, 1))}
	if _, err := ComputeBalance(badKind); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestAvailableAddsBackPriorExpense(t *testing.T) {
	b := Balance{Balance: Money{Cents: 10_000}}

	prior := tx(Expense, 4_000, StatusReserved, "Food", NewDate(2025, 6, 3))
	if got := b.Available(&prior); got.Cents != 14_000 {
		t.Fatalf("expected prior amount added back, got %d", got.Cents)
	}
	// New transaction: nothing to add back.
	if got := b.Available(nil); got.Cents != 10_000 {
		t.Fatalf("expected 10000, got %d", got.Cents)
	}
	// Released priors already count nowhere.
	released := tx(Expense, 4_000, StatusReleased, "Food", NewDate(2025, 6, 3))
	if got := b.Available(&released); got.Cents != 10_000 {
		t.Fatalf("released prior must not be added back, got %d", got.Cents)
	}
	income := tx(Income, 4_000, StatusCompleted, "Salary", NewDate(2025, 6, 3))
	if got := b.Available(&income); got.Cents != 10_000 {
		t.Fatalf("income prior must not be added back, got %d", got.Cents)
	}
}

func TestCoversAmount(t *testing.T) {
	b := Balance{Balance: Money{Cents: 5_000}}
	if !b.CoversAmount(Money{Cents: 5_000}, nil) {
		t.Error("exact fit must be covered")
	}
	if b.CoversAmount(Money{Cents: 5_001}, nil) {
		t.Error("amount over balance must not be covered")
	}
	prior := tx(Expense, 2_000, StatusCompleted, "Food", NewDate(2025, 6, 2))
	if !b.CoversAmount(Money{Cents: 7_000}, &prior) {
		t.Error("edit headroom must include the prior amount")
	}
}
