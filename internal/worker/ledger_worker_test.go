package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projex/internal/amqp"
	"projex/internal/core"
	applog "projex/internal/log"
	"projex/internal/sheets"
	"projex/internal/sheets/memory"
)

type failingLedger struct{ err error }

func (f failingLedger) Append(context.Context, sheets.LedgerRow) (string, error) {
	return "", f.err
}

type headerLedger struct {
	*memory.Ledger
	headerCalls int
	headerErr   error
}

func (h *headerLedger) EnsureHeader(context.Context) error {
	h.headerCalls++
	return h.headerErr
}

// sliceConsumer hands each event to the handler, then blocks until ctx ends.
type sliceConsumer struct {
	events  []*amqp.Event
	results []error
}

func (c *sliceConsumer) ConsumeWithReconnect(ctx context.Context, handler func(context.Context, *amqp.Event) error) error {
	for _, ev := range c.events {
		c.results = append(c.results, handler(ctx, ev))
	}
	<-ctx.Done()
	return ctx.Err()
}

func quietLogger() *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Output = &bytes.Buffer{}
	return applog.New(cfg)
}

func expenseEvent() *amqp.Event {
	return amqp.NewExpenseEvent(amqp.ExpenseCreated, 1, core.Expense{
		ID: 5, ProjectID: 2, Date: core.NewDate(2024, 3, 15), Amount: core.Cents(10000),
		Category: "travel", Status: core.ExpensePending,
	})
}

func TestHandleEvent_AppendsRow(t *testing.T) {
	ledger := memory.New()
	w := NewLedgerWorker(ledger, quietLogger())

	ev := expenseEvent()
	require.NoError(t, w.HandleEvent(context.Background(), ev))

	rows := ledger.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, ev.ID, rows[0].EventID)
	assert.Equal(t, "100.00", rows[0].Amount)

	exported, failed := w.Stats()
	assert.Equal(t, int64(1), exported)
	assert.Zero(t, failed)
}

func TestHandleEvent_LedgerFailureIsRetryable(t *testing.T) {
	w := NewLedgerWorker(failingLedger{err: errors.New("quota exceeded")}, quietLogger())

	err := w.HandleEvent(context.Background(), expenseEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")

	_, failed := w.Stats()
	assert.Equal(t, int64(1), failed)
}

func TestHandleEvent_DropsEmptyPayload(t *testing.T) {
	ledger := memory.New()
	w := NewLedgerWorker(ledger, quietLogger())

	err := w.HandleEvent(context.Background(), &amqp.Event{ID: "x", Type: amqp.ProjectDeleted})
	assert.NoError(t, err)
	assert.Empty(t, ledger.Rows())
}

func TestRun_ConsumesUntilCancelled(t *testing.T) {
	ledger := &headerLedger{Ledger: memory.New()}
	w := NewLedgerWorker(ledger, quietLogger())
	consumer := &sliceConsumer{events: []*amqp.Event{
		expenseEvent(),
		amqp.NewProjectEvent(amqp.ProjectCreated, 1, core.Project{ID: 2, Name: "Bridge", Status: core.ProjectActive}),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, consumer) }()

	require.Eventually(t, func() bool { return len(ledger.Rows()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()

	assert.NoError(t, <-done)
	assert.Equal(t, 1, ledger.headerCalls)
	assert.Equal(t, []error{nil, nil}, consumer.results)
}

func TestRun_HeaderFailureStops(t *testing.T) {
	ledger := &headerLedger{Ledger: memory.New(), headerErr: errors.New("forbidden")}
	w := NewLedgerWorker(ledger, quietLogger())

	err := w.Run(context.Background(), &sliceConsumer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prepare ledger")
}

type brokenConsumer struct{ err error }

func (c brokenConsumer) ConsumeWithReconnect(context.Context, func(context.Context, *amqp.Event) error) error {
	return c.err
}

func TestRun_ConsumerExitError(t *testing.T) {
	broker := errors.New("connection refused")
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"broker failure is returned", broker, broker},
		{"cancellation is a clean stop", context.Canceled, nil},
		{"wrapped cancellation is a clean stop", fmt.Errorf("consume: %w", context.Canceled), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewLedgerWorker(memory.New(), quietLogger())
			err := w.Run(context.Background(), brokenConsumer{err: tt.err})
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
