package core

import "fmt"

// Balance is the result of running the balance calculation over a set of
// transactions. Reserved expenses count against TotalExpense: a reservation
// already removes funds from the spendable balance. Released expenses count
// nowhere.
type Balance struct {
	TotalIncome     Money
	TotalExpense    Money
	ReservedBalance Money
	Balance         Money
}

// ComputeBalance derives the balance figures from a transaction set. It is a
// pure function, stable under re-ordering of the input. Upstream data may be
// malformed, so a non-positive amount is rejected with an error rather than
// silently skewing the totals.
func ComputeBalance(txs []Transaction) (Balance, error) {
	var b Balance
	for _, t := range txs {
		if t.Amount.Cents <= 0 {
			return Balance{}, fmt.Errorf("transaction %s: %w", t.ID, ErrInvalidAmount)
		}
		switch t.Kind {
		case Income:
			b.TotalIncome = b.TotalIncome.Add(t.Amount)
		case Expense:
			if t.Status == StatusReleased {
				continue
			}
			b.TotalExpense = b.TotalExpense.Add(t.Amount)
			if t.Status == StatusReserved {
				b.ReservedBalance = b.ReservedBalance.Add(t.Amount)
			}
		default:
			return Balance{}, fmt.Errorf("transaction %s: %w", t.ID, ErrInvalidKind)
		}
	}
	b.Balance = b.TotalIncome.Sub(b.TotalExpense)
	return b, nil
}

// Available returns the balance usable for a new or edited expense. When an
// existing expense is being edited, its prior amount is added back so the old
// amount does not double-count against the new one. prior is nil for a new
// transaction.
func (b Balance) Available(prior *Transaction) Money {
	avail := b.Balance
	if prior != nil && prior.Kind == Expense && prior.Status != StatusReleased {
		avail = avail.Add(prior.Amount)
	}
	return avail
}

// CoversAmount reports whether an expense of the given amount fits within the
// available balance. prior follows the Available semantics.
func (b Balance) CoversAmount(amount Money, prior *Transaction) bool {
	return amount.Cents <= b.Available(prior).Cents
}
