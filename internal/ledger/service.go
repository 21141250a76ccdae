// Package ledger implements the transaction ledger operations: creating
// entries, moving reservations through their lifecycle, and serving month
// views. All state lives behind the gateway; the service only validates,
// orchestrates and mirrors reads into the session cache.
package ledger

import (
	"context"
	"log/slog"
	"time"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/gateway"
	"tally/internal/session"
)

// EventPublisher publishes ledger mutation events for downstream consumers.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, msg *amqp.TransactionEventMessage) error
}

// Service orchestrates ledger operations across the gateway, the session
// mirror and the event queue.
type Service struct {
	gw     gateway.Gateway
	events EventPublisher
	mirror *session.Store

	now func() time.Time
}

func NewService(gw gateway.Gateway, events EventPublisher, mirror *session.Store) *Service {
	return &Service{
		gw:     gw,
		events: events,
		mirror: mirror,
		now:    time.Now,
	}
}

// CreateInput carries the caller's fields for a new transaction. Reserve is
// only meaningful for expenses: it creates the entry in the reserved state
// instead of completed.
type CreateInput struct {
	Kind        core.Kind
	Amount      core.Money
	Category    string
	Description string
	Date        core.Date
	Reserve     bool
}

// UpdateInput carries the editable fields. Kind and status never change
// through an edit.
type UpdateInput struct {
	Amount      core.Money
	Category    string
	Description string
	Date        core.Date
}

// Create validates and persists a new transaction. Income is always created
// completed; an expense is created completed or reserved per in.Reserve.
// Expenses are checked against the available balance of their month, first
// as a fast-fail here, then authoritatively inside the gateway.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (core.Transaction, error) {
	status := core.StatusCompleted
	if in.Reserve {
		if in.Kind != core.Expense {
			return core.Transaction{}, core.ErrInvalidStatus
		}
		status = core.StatusReserved
	}

	t := core.Transaction{
		Kind:        in.Kind,
		Amount:      in.Amount,
		Category:    in.Category,
		Description: in.Description,
		Date:        in.Date,
		Status:      status,
	}
	t.Normalize()
	if err := t.Validate(s.now()); err != nil {
		return core.Transaction{}, err
	}

	if t.Kind == core.Expense {
		if err := s.checkFunds(ctx, userID, t.Amount, core.MonthOf(t.Date), nil); err != nil {
			return core.Transaction{}, err
		}
	}

	created, err := s.gw.Create(ctx, userID, t)
	if err != nil {
		return core.Transaction{}, wrapGateway("create", err)
	}

	s.afterMutation(ctx, userID, created, amqp.ActionCreated)
	return created, nil
}

// Edit rewrites the editable fields of a transaction. Completed expenses and
// released entries are frozen and rejected with core.ErrImmutable.
func (s *Service) Edit(ctx context.Context, userID, id string, in UpdateInput) (core.Transaction, error) {
	prior, err := s.gw.Get(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, wrapGateway("get", err)
	}
	if !prior.Editable() {
		return core.Transaction{}, core.ErrImmutable
	}

	updated := prior
	updated.Amount = in.Amount
	updated.Category = in.Category
	updated.Description = in.Description
	updated.Date = in.Date
	updated.Normalize()
	if err := updated.Validate(s.now()); err != nil {
		return core.Transaction{}, err
	}

	if updated.Kind == core.Expense {
		// Add the prior amount back so the edit is not double-counted.
		if err := s.checkFunds(ctx, userID, updated.Amount, core.MonthOf(updated.Date), &prior); err != nil {
			return core.Transaction{}, err
		}
	}

	stored, err := s.gw.Update(ctx, userID, updated)
	if err != nil {
		return core.Transaction{}, wrapGateway("update", err)
	}

	if m := core.MonthOf(prior.Date); !m.Contains(stored.Date) {
		s.mirror.DropMonth(userID, m)
	}
	s.afterMutation(ctx, userID, stored, amqp.ActionUpdated)
	return stored, nil
}

// Complete resolves a reserved expense as spent. The amount stays counted as
// expense and leaves the reserved balance.
func (s *Service) Complete(ctx context.Context, userID, id string) (core.Transaction, error) {
	t, err := s.gw.Complete(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, wrapGateway("complete", err)
	}
	s.afterMutation(ctx, userID, t, amqp.ActionCompleted)
	return t, nil
}

// Revert cancels a reserved expense. The amount is excluded from expense
// totals going forward; the balance is effectively restored.
func (s *Service) Revert(ctx context.Context, userID, id string) (core.Transaction, error) {
	t, err := s.gw.Revert(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, wrapGateway("revert", err)
	}
	s.afterMutation(ctx, userID, t, amqp.ActionReverted)
	return t, nil
}

// Delete removes a transaction outright. This is the destructive UI-layer
// operation; it is not part of the reservation lifecycle.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	t, err := s.gw.Get(ctx, userID, id)
	if err != nil {
		return wrapGateway("get", err)
	}
	if err := s.gw.Delete(ctx, userID, id); err != nil {
		return wrapGateway("delete", err)
	}
	s.afterMutation(ctx, userID, t, amqp.ActionDeleted)
	return nil
}

// Transactions lists a month, mirroring the result into the session cache.
// When the gateway fails and a mirror exists, the stale list is served as a
// best-effort fallback.
func (s *Service) Transactions(ctx context.Context, userID string, month core.Month) ([]core.Transaction, error) {
	txs, err := s.gw.ListMonth(ctx, userID, month)
	if err != nil {
		if cached, ok := s.mirror.Month(userID, month); ok {
			slog.WarnContext(ctx, "Serving month list from session mirror",
				"user_id", userID, "month", month.String(), "error", err)
			return cached, nil
		}
		return nil, wrapGateway("list", err)
	}
	s.mirror.PutMonth(userID, month, txs)
	return txs, nil
}

// Reserved lists reserved transactions, optionally restricted to a month.
func (s *Service) Reserved(ctx context.Context, userID string, month *core.Month) ([]core.Transaction, error) {
	txs, err := s.gw.ListReserved(ctx, userID, month)
	if err != nil {
		return nil, wrapGateway("list reserved", err)
	}
	return txs, nil
}

// Summary returns the month view. The gateway's server-computed summary is
// preferred; when it fails the summary is recomputed from the mirrored list,
// which agrees with the server because both run the same aggregation.
func (s *Service) Summary(ctx context.Context, userID string, month core.Month) (core.MonthSummary, error) {
	sum, err := s.gw.MonthSummary(ctx, userID, month)
	if err == nil {
		return sum, nil
	}
	if cached, ok := s.mirror.Month(userID, month); ok {
		slog.WarnContext(ctx, "Recomputing summary from session mirror",
			"user_id", userID, "month", month.String(), "error", err)
		return core.SummarizeMonth(month, cached)
	}
	return core.MonthSummary{}, wrapGateway("summary", err)
}

// Settings returns the user's display preferences, mirroring them for
// fallback reads.
func (s *Service) Settings(ctx context.Context, userID string) (gateway.Settings, error) {
	prefs, err := s.gw.GetSettings(ctx, userID)
	if err != nil {
		if cached, ok := s.mirror.Settings(userID); ok {
			return cached, nil
		}
		return gateway.Settings{}, wrapGateway("get settings", err)
	}
	s.mirror.PutSettings(userID, prefs)
	return prefs, nil
}

// SaveSettings persists and re-mirrors the preferences.
func (s *Service) SaveSettings(ctx context.Context, userID string, prefs gateway.Settings) error {
	if err := s.gw.PutSettings(ctx, userID, prefs); err != nil {
		return wrapGateway("put settings", err)
	}
	s.mirror.PutSettings(userID, prefs)
	return nil
}

// Logout drops the user's session mirror.
func (s *Service) Logout(userID string) {
	s.mirror.Invalidate(userID)
}

// checkFunds is the client-side fast-fail of the insufficient-funds rule.
// The gateway re-checks authoritatively inside its own transaction, so a
// failed list here only skips the fast path.
func (s *Service) checkFunds(ctx context.Context, userID string, amount core.Money, month core.Month, prior *core.Transaction) error {
	if prior != nil && !month.Contains(prior.Date) {
		prior = nil
	}
	txs, err := s.gw.ListMonth(ctx, userID, month)
	if err != nil {
		slog.WarnContext(ctx, "Skipping fast-fail funds check",
			"user_id", userID, "month", month.String(), "error", err)
		return nil
	}
	bal, err := core.ComputeBalance(txs)
	if err != nil {
		return err
	}
	if !bal.CoversAmount(amount, prior) {
		return &gateway.InsufficientFundsError{Available: bal.Available(prior)}
	}
	return nil
}

// afterMutation evicts the affected month mirror and publishes the ledger
// event. Event publishing is best-effort: the mutation is already durable.
func (s *Service) afterMutation(ctx context.Context, userID string, t core.Transaction, action string) {
	s.mirror.DropMonth(userID, core.MonthOf(t.Date))

	if s.events == nil {
		return
	}
	msg := amqp.NewTransactionEventMessage(userID, t.ID, action, t.Date.Year(), t.Date.Month())
	if err := s.events.PublishTransactionEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"user_id", userID, "transaction_id", t.ID, "action", action, "error", err)
	}
}
