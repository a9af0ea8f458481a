package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"projex/internal/amqp"
	applog "projex/internal/log"
	"projex/internal/sheets"
)

// Consumer delivers events until ctx is done. amqp.Client satisfies it.
type Consumer interface {
	ConsumeWithReconnect(ctx context.Context, handler func(context.Context, *amqp.Event) error) error
}

// LedgerWorker mirrors domain events into a ledger, one row per event.
type LedgerWorker struct {
	ledger sheets.LedgerWriter
	logger *applog.Logger

	exported atomic.Int64
	failed   atomic.Int64
}

func NewLedgerWorker(ledger sheets.LedgerWriter, logger *applog.Logger) *LedgerWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &LedgerWorker{ledger: ledger, logger: logger.WithComponent(applog.ComponentWorker)}
}

// HandleEvent appends ev to the ledger. A returned error makes the consumer
// requeue the message.
func (w *LedgerWorker) HandleEvent(ctx context.Context, ev *amqp.Event) error {
	row, err := sheets.RowFromEvent(ev)
	if err != nil {
		// Not retryable; dropping beats redelivering forever.
		w.logger.WarnContext(ctx, "Skipping event without payload", applog.FieldError, err)
		return nil
	}

	ref, err := w.ledger.Append(ctx, row)
	if err != nil {
		w.failed.Add(1)
		return fmt.Errorf("append event %s: %w", ev.ID, err)
	}
	w.exported.Add(1)

	w.logger.InfoContext(ctx, "Exported event",
		applog.FieldEventID, ev.ID,
		applog.FieldEventType, ev.Type,
		applog.FieldProjectID, ev.ProjectID,
		"row_ref", ref)
	return nil
}

// Run prepares the ledger and consumes events until ctx is cancelled.
// Cancellation is a clean stop.
func (w *LedgerWorker) Run(ctx context.Context, consumer Consumer) error {
	if hw, ok := w.ledger.(sheets.HeaderWriter); ok {
		if err := hw.EnsureHeader(ctx); err != nil {
			return fmt.Errorf("prepare ledger: %w", err)
		}
	}

	w.logger.InfoContext(ctx, "Ledger worker started")
	err := consumer.ConsumeWithReconnect(ctx, w.HandleEvent)
	w.logger.InfoContext(ctx, "Ledger worker stopped",
		"exported", w.exported.Load(), "failed", w.failed.Load())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stats returns the number of exported and failed appends.
func (w *LedgerWorker) Stats() (exported, failed int64) {
	return w.exported.Load(), w.failed.Load()
}
