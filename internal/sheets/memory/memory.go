package memory

import (
	"context"
	"fmt"
	"sync"

	"projex/internal/sheets"
)

var _ sheets.LedgerWriter = (*Ledger)(nil)

// Ledger keeps exported rows in memory. It backs the worker when no sheet
// is configured and serves as the ledger in tests.
type Ledger struct {
	mu   sync.Mutex
	rows []sheets.LedgerRow
	seen map[string]int
}

func New() *Ledger {
	return &Ledger{seen: make(map[string]int)}
}

// Append stores the row and returns a synthetic row reference. A redelivered
// event returns the reference of its first append.
func (l *Ledger) Append(_ context.Context, row sheets.LedgerRow) (string, error) {
	if row.EventID == "" {
		return "", fmt.Errorf("ledger row without event id")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if n, ok := l.seen[row.EventID]; ok {
		return fmt.Sprintf("mem:%d", n), nil
	}
	l.rows = append(l.rows, row)
	l.seen[row.EventID] = len(l.rows)
	return fmt.Sprintf("mem:%d", len(l.rows)), nil
}

// Rows returns a copy of the stored rows in append order.
func (l *Ledger) Rows() []sheets.LedgerRow {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]sheets.LedgerRow(nil), l.rows...)
}
