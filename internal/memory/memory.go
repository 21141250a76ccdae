// Package memory provides an in-process transaction gateway used by tests
// and the memory data backend. It enforces the same contract as the SQLite
// gateway: ownership scoping, the reserved-state precondition on transitions
// and the available-balance guard on expense writes.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tally/internal/core"
	"tally/internal/gateway"
)

type account struct {
	txs      []core.Transaction
	settings gateway.Settings
	hasPrefs bool
}

type Store struct {
	mu    sync.Mutex
	users map[string]*account
}

func New() *Store {
	return &Store{users: make(map[string]*account)}
}

func (s *Store) user(userID string) *account {
	a, ok := s.users[userID]
	if !ok {
		a = &account{}
		s.users[userID] = a
	}
	return a
}

// ListMonth returns the user's transactions for one month, oldest date first.
func (s *Store) ListMonth(_ context.Context, userID string, month core.Month) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Transaction
	for _, t := range s.user(userID).txs {
		if month.Contains(t.Date) {
			out = append(out, t)
		}
	}
	sortByDate(out)
	return out, nil
}

// ListReserved returns reserved transactions, optionally month-restricted.
func (s *Store) ListReserved(_ context.Context, userID string, month *core.Month) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Transaction
	for _, t := range s.user(userID).txs {
		if t.Status != core.StatusReserved {
			continue
		}
		if month != nil && !month.Contains(t.Date) {
			continue
		}
		out = append(out, t)
	}
	sortByDate(out)
	return out, nil
}

// Get returns a single transaction owned by the user.
func (s *Store) Get(_ context.Context, userID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.user(userID).txs {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, gateway.ErrNotFound
}

// Create stores a new transaction, assigning its id. Expenses are checked
// against the available balance of their month before being accepted.
func (s *Store) Create(_ context.Context, userID string, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.user(userID)
	if t.Kind == core.Expense {
		if err := checkFunds(a.txs, t.Amount, core.MonthOf(t.Date), nil); err != nil {
			return core.Transaction{}, err
		}
	}

	t.ID = uuid.NewString()
	t.CreatedAt = time.Now()
	a.txs = append(a.txs, t)
	return t, nil
}

// Update rewrites the editable fields of an editable transaction.
func (s *Store) Update(_ context.Context, userID string, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.user(userID)
	for i, prior := range a.txs {
		if prior.ID != t.ID {
			continue
		}
		if !prior.Editable() {
			return core.Transaction{}, core.ErrImmutable
		}
		if prior.Kind == core.Expense {
			if err := checkFunds(a.txs, t.Amount, core.MonthOf(t.Date), &prior); err != nil {
				return core.Transaction{}, err
			}
		}
		updated := prior
		updated.Amount = t.Amount
		updated.Category = t.Category
		updated.Description = t.Description
		updated.Date = t.Date
		a.txs[i] = updated
		return updated, nil
	}
	return core.Transaction{}, gateway.ErrNotFound
}

// Delete removes a transaction outright.
func (s *Store) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.user(userID)
	for i, t := range a.txs {
		if t.ID == id {
			a.txs = append(a.txs[:i], a.txs[i+1:]...)
			return nil
		}
	}
	return gateway.ErrNotFound
}

// Complete resolves a reserved expense as spent.
func (s *Store) Complete(ctx context.Context, userID, id string) (core.Transaction, error) {
	return s.transition(userID, id, core.StatusCompleted)
}

// Revert cancels a reserved expense.
func (s *Store) Revert(ctx context.Context, userID, id string) (core.Transaction, error) {
	return s.transition(userID, id, core.StatusReleased)
}

func (s *Store) transition(userID, id string, to core.Status) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.user(userID)
	for i, t := range a.txs {
		if t.ID != id {
			continue
		}
		if !t.CanTransition() {
			return core.Transaction{}, core.ErrInvalidTransition
		}
		t.Status = to
		a.txs[i] = t
		return t, nil
	}
	return core.Transaction{}, gateway.ErrNotFound
}

// MonthSummary computes the summary over the stored rows with the shared
// aggregation, so it agrees with client-side recomputation by construction.
func (s *Store) MonthSummary(_ context.Context, userID string, month core.Month) (core.MonthSummary, error) {
	s.mu.Lock()
	txs := append([]core.Transaction(nil), s.user(userID).txs...)
	s.mu.Unlock()

	return core.SummarizeMonth(month, txs)
}

// GetSettings returns the stored preferences or defaults.
func (s *Store) GetSettings(_ context.Context, userID string) (gateway.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.user(userID)
	if !a.hasPrefs {
		return gateway.Settings{DateFormat: "2006-01-02", Locale: "en", Theme: "light"}, nil
	}
	return a.settings, nil
}

// PutSettings stores the preferences.
func (s *Store) PutSettings(_ context.Context, userID string, prefs gateway.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.user(userID)
	a.settings = prefs
	a.hasPrefs = true
	return nil
}

func checkFunds(txs []core.Transaction, amount core.Money, month core.Month, prior *core.Transaction) error {
	// The prior amount is only added back when it counted against this
	// month's balance in the first place.
	if prior != nil && !month.Contains(prior.Date) {
		prior = nil
	}
	var monthly []core.Transaction
	for _, t := range txs {
		if month.Contains(t.Date) {
			monthly = append(monthly, t)
		}
	}
	bal, err := core.ComputeBalance(monthly)
	if err != nil {
		return err
	}
	if !bal.CoversAmount(amount, prior) {
		return &gateway.InsufficientFundsError{Available: bal.Available(prior)}
	}
	return nil
}

func sortByDate(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date.Time) {
			return txs[i].Date.Before(txs[j].Date.Time)
		}
		return txs[i].CreatedAt.Before(txs[j].CreatedAt)
	})
}
