package memory

import (
	"context"
	"testing"

	"projex/internal/amqp"
	"projex/internal/sheets"
)

func TestLedgerAppendAndRows(t *testing.T) {
	l := New()

	ref, err := l.Append(context.Background(), sheets.LedgerRow{EventID: "a", Type: amqp.ExpenseCreated})
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	ref, err = l.Append(context.Background(), sheets.LedgerRow{EventID: "b", Type: amqp.ExpenseUpdated})
	if err != nil || ref != "mem:2" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	rows := l.Rows()
	if len(rows) != 2 || rows[0].EventID != "a" || rows[1].EventID != "b" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestLedgerRedeliveryIsIdempotent(t *testing.T) {
	l := New()
	row := sheets.LedgerRow{EventID: "dup"}

	first, _ := l.Append(context.Background(), row)
	second, err := l.Append(context.Background(), row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatalf("expected same ref, got %q and %q", first, second)
	}
	if len(l.Rows()) != 1 {
		t.Fatalf("expected one row, got %d", len(l.Rows()))
	}
}

func TestLedgerRejectsRowWithoutEventID(t *testing.T) {
	if _, err := New().Append(context.Background(), sheets.LedgerRow{}); err == nil {
		t.Fatal("expected error")
	}
}
