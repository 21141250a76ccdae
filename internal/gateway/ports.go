// Package gateway defines the ports the ledger talks to: the persisted
// transaction store and the user settings store. The authoritative data
// lives behind these interfaces; the ledger itself holds no mutable state.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"tally/internal/core"
)

var ErrNotFound = errors.New("transaction not found")

// InsufficientFundsError is returned when an expense would exceed the
// available balance. It carries the computed available amount so callers can
// surface it inline.
type InsufficientFundsError struct {
	Available core.Money
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: %.2f available", e.Available.Units())
}

// Settings are the per-user display preferences mirrored in the session
// cache.
type Settings struct {
	DateFormat string
	Locale     string
	Theme      string
}

// Ports for the transaction gateway. Every operation is scoped to one owning
// user; implementations must never leak rows across users.
type (
	TransactionLister interface {
		// ListMonth returns all transactions whose date falls in the month.
		ListMonth(ctx context.Context, userID string, month core.Month) ([]core.Transaction, error)
		// ListReserved returns reserved transactions, optionally restricted
		// to a month (nil means all).
		ListReserved(ctx context.Context, userID string, month *core.Month) ([]core.Transaction, error)
		// Get returns a single transaction owned by the user.
		Get(ctx context.Context, userID, id string) (core.Transaction, error)
	}

	TransactionWriter interface {
		// Create persists a new transaction, enforcing the available-balance
		// guard for expenses. Returns the stored transaction with its id.
		Create(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error)
		// Update rewrites amount/category/date/description of an editable
		// transaction. Status and kind never change through Update.
		Update(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error)
		// Delete removes a transaction. This is the destructive UI-layer
		// operation, not a ledger state transition.
		Delete(ctx context.Context, userID, id string) error
	}

	// TransactionTransitioner applies the two reservation transitions. Both
	// carry the precondition "current status is reserved"; implementations
	// must reject the call with core.ErrInvalidTransition when a concurrent
	// actor already resolved the transaction.
	TransactionTransitioner interface {
		Complete(ctx context.Context, userID, id string) (core.Transaction, error)
		Revert(ctx context.Context, userID, id string) (core.Transaction, error)
	}

	// SummaryReader serves the server-computed month summary. It must agree
	// exactly with core.SummarizeMonth over the same rows.
	SummaryReader interface {
		MonthSummary(ctx context.Context, userID string, month core.Month) (core.MonthSummary, error)
	}

	SettingsStore interface {
		GetSettings(ctx context.Context, userID string) (Settings, error)
		PutSettings(ctx context.Context, userID string, s Settings) error
	}
)

// Gateway is the full contract the ledger service consumes.
type Gateway interface {
	TransactionLister
	TransactionWriter
	TransactionTransitioner
	SummaryReader
	SettingsStore
}
