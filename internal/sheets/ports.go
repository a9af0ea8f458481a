package sheets

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"projex/internal/amqp"
)

// Ports for outbound adapters.
type (
	// LedgerWriter appends one row per domain event to an external ledger.
	LedgerWriter interface {
		Append(ctx context.Context, row LedgerRow) (rowRef string, err error)
	}

	// HeaderWriter is implemented by ledgers that keep a header row.
	HeaderWriter interface {
		EnsureHeader(ctx context.Context) error
	}
)

// LedgerHeader names the columns of a ledger row, in order.
var LedgerHeader = []string{
	"Event ID", "Occurred At", "Event", "Actor",
	"Project ID", "Project", "Expense ID", "Date",
	"Category", "Description", "Amount", "Status",
}

// LedgerRow is the flattened form of an event. Project events leave the
// expense columns empty.
type LedgerRow struct {
	EventID     string
	OccurredAt  time.Time
	Type        amqp.EventType
	ActorID     int64
	ProjectID   int64
	ProjectName string
	ExpenseID   int64
	Date        string
	Category    string
	Description string
	Amount      string
	Status      string
}

// RowFromEvent flattens ev. It fails for events carrying neither a project
// nor an expense.
func RowFromEvent(ev *amqp.Event) (LedgerRow, error) {
	if ev == nil {
		return LedgerRow{}, fmt.Errorf("nil event")
	}
	row := LedgerRow{
		EventID:    ev.ID,
		OccurredAt: ev.OccurredAt.UTC(),
		Type:       ev.Type,
		ActorID:    ev.ActorID,
		ProjectID:  ev.ProjectID,
	}

	switch {
	case ev.Expense != nil:
		e := ev.Expense
		row.ExpenseID = e.ID
		row.Date = e.Date.String()
		row.Category = e.Category
		row.Description = e.Description
		row.Amount = e.Amount.String()
		row.Status = string(e.Status)
		if e.Project != nil {
			row.ProjectName = e.Project.Name
		}
	case ev.Project != nil:
		p := ev.Project
		row.ProjectName = p.Name
		row.Date = p.StartDate.String()
		row.Description = p.Description
		if p.TotalBudget != nil {
			row.Amount = p.TotalBudget.String()
		}
		row.Status = string(p.Status)
	default:
		return LedgerRow{}, fmt.Errorf("event %s %s has no payload", ev.ID, ev.Type)
	}
	return row, nil
}

// Values renders the row in LedgerHeader order.
func (r LedgerRow) Values() []any {
	expenseID := ""
	if r.ExpenseID != 0 {
		expenseID = strconv.FormatInt(r.ExpenseID, 10)
	}
	return []any{
		r.EventID,
		r.OccurredAt.Format(time.RFC3339),
		string(r.Type),
		r.ActorID,
		r.ProjectID,
		r.ProjectName,
		expenseID,
		r.Date,
		r.Category,
		r.Description,
		r.Amount,
		r.Status,
	}
}
