// Package worker keeps the month_summaries snapshot table in step with the
// ledger. It consumes transaction events from the queue and recomputes the
// affected month; a periodic sweep refreshes every known snapshot to heal
// missed events.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/storage"
)

type SummaryWorker struct {
	storage *storage.SQLiteRepository
}

func NewSummaryWorker(storage *storage.SQLiteRepository) *SummaryWorker {
	return &SummaryWorker{storage: storage}
}

// HandleEvent processes one transaction event from the queue by recomputing
// the snapshot of the affected month.
func (w *SummaryWorker) HandleEvent(ctx context.Context, msg *amqp.TransactionEventMessage) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"user_id", msg.UserID,
		"transaction_id", msg.TransactionID,
		"action", msg.Action)

	month := core.Month{Year: msg.Year, Month: msg.Month}
	if err := w.refresh(ctx, msg.UserID, month); err != nil {
		return fmt.Errorf("refresh snapshot: %w", err)
	}
	return nil
}

// RefreshAll recomputes every stored snapshot. Run periodically so snapshots
// converge even when events were lost.
func (w *SummaryWorker) RefreshAll(ctx context.Context) error {
	keys, err := w.storage.ListSnapshotKeys(ctx)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}

	for _, k := range keys {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.refresh(ctx, k.UserID, k.Month); err != nil {
			slog.ErrorContext(ctx, "Snapshot refresh failed",
				"user_id", k.UserID, "month", k.Month.String(), "error", err)
		}
	}

	slog.InfoContext(ctx, "Snapshot sweep completed", "count", len(keys))
	return nil
}

// RunPeriodic sweeps all snapshots on the given interval until the context
// is canceled.
func (w *SummaryWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.RefreshAll(ctx); err != nil && ctx.Err() == nil {
				slog.ErrorContext(ctx, "Periodic snapshot sweep failed", "error", err)
			}
		}
	}
}

func (w *SummaryWorker) refresh(ctx context.Context, userID string, month core.Month) error {
	sum, err := w.storage.MonthSummary(ctx, userID, month)
	if err != nil {
		return err
	}
	return w.storage.SaveMonthSnapshot(ctx, userID, sum)
}
