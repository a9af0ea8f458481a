package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"projex/internal/core"
)

const expenseSelect = `SELECT e.id, e.date, e.amount_cents, e.category, e.description, e.receipt_url,
	e.status, e.project_id, e.added_by, e.created_at, e.updated_at,
	p.id, p.name, p.status,
	u.id, u.name, u.email
FROM expenses e
JOIN projects p ON p.id = e.project_id
LEFT JOIN users u ON u.id = e.added_by`

func scanExpense(row interface{ Scan(...any) error }) (core.Expense, error) {
	var (
		e           core.Expense
		amount      int64
		description sql.NullString
		receipt     sql.NullString
		status      string
		project     core.ProjectRef
		projStatus  string
		userID      sql.NullInt64
		userName    sql.NullString
		userMail    sql.NullString
	)
	err := row.Scan(
		&e.ID, &e.Date, &amount, &e.Category, &description, &receipt,
		&status, &e.ProjectID, &e.AddedBy, timestamp{&e.CreatedAt}, timestamp{&e.UpdatedAt},
		&project.ID, &project.Name, &projStatus,
		&userID, &userName, &userMail,
	)
	if err != nil {
		return core.Expense{}, err
	}
	e.Amount = core.Cents(amount)
	e.Description = description.String
	e.ReceiptURL = receipt.String
	e.Status = core.ExpenseStatus(status)
	project.Status = core.ProjectStatus(projStatus)
	e.Project = &project
	if userID.Valid {
		e.AddedByUser = &core.UserRef{ID: userID.Int64, Name: userName.String, Email: userMail.String}
	}
	return e, nil
}

// ExpenseQuery selects expenses. Zero fields do not filter.
type ExpenseQuery struct {
	ProjectID int64
	From      core.Date
	To        core.Date
	// Before is an exclusive upper bound, used for calendar buckets.
	Before   core.Date
	Category string
	Statuses []core.ExpenseStatus
	// ProjectStatuses restricts to expenses whose project is in one of these.
	ProjectStatuses []core.ProjectStatus
	// OwnerID restricts to projects created by this user.
	OwnerID int64
}

// where renders the filter against the expenses alias e and projects
// alias p.
func (q ExpenseQuery) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if q.ProjectID != 0 {
		conds = append(conds, "e.project_id = ?")
		args = append(args, q.ProjectID)
	}
	if !q.From.IsZero() {
		conds = append(conds, "e.date >= ?")
		args = append(args, q.From)
	}
	if !q.To.IsZero() {
		conds = append(conds, "e.date <= ?")
		args = append(args, q.To)
	}
	if !q.Before.IsZero() {
		conds = append(conds, "e.date < ?")
		args = append(args, q.Before)
	}
	if q.Category != "" {
		conds = append(conds, "e.category = ?")
		args = append(args, q.Category)
	}
	if len(q.Statuses) > 0 {
		conds = append(conds, "e.status IN ("+placeholders(len(q.Statuses))+")")
		for _, s := range q.Statuses {
			args = append(args, string(s))
		}
	}
	if len(q.ProjectStatuses) > 0 {
		conds = append(conds, "p.status IN ("+placeholders(len(q.ProjectStatuses))+")")
		for _, s := range q.ProjectStatuses {
			args = append(args, string(s))
		}
	}
	if q.OwnerID != 0 {
		conds = append(conds, "p.created_by = ?")
		args = append(args, q.OwnerID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *Repository) CreateExpense(ctx context.Context, in core.ExpenseInput, addedBy int64) (core.Expense, error) {
	ts := now()
	var id int64
	err := r.queryRow(ctx, r.db,
		`INSERT INTO expenses (date, amount_cents, category, description, receipt_url,
			status, project_id, added_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		in.Date, in.Amount.Cents, in.Category, nullString(in.Description), nullString(in.ReceiptURL),
		string(in.Status), in.ProjectID, addedBy, ts, ts,
	).Scan(&id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"expense_id", id,
		"project_id", in.ProjectID,
		"amount_cents", in.Amount.Cents,
		"category", in.Category)
	return r.GetExpense(ctx, id)
}

func (r *Repository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	e, err := scanExpense(r.queryRow(ctx, r.db, expenseSelect+` WHERE e.id = ?`, id))
	if err != nil {
		return core.Expense{}, r.translate(err, "get expense", core.NotFoundf("Expense not found"))
	}
	return e, nil
}

// ListExpenses returns matching expenses, most recent date first.
func (r *Repository) ListExpenses(ctx context.Context, q ExpenseQuery) ([]core.Expense, error) {
	where, args := q.where()
	rows, err := r.query(ctx, r.db, expenseSelect+where+` ORDER BY e.date DESC, e.id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (r *Repository) UpdateExpense(ctx context.Context, id int64, in core.ExpenseInput) (core.Expense, error) {
	res, err := r.exec(ctx, r.db,
		`UPDATE expenses SET date = ?, amount_cents = ?, category = ?, description = ?,
			receipt_url = ?, status = ?, project_id = ?, updated_at = ?
		 WHERE id = ?`,
		in.Date, in.Amount.Cents, in.Category, nullString(in.Description),
		nullString(in.ReceiptURL), string(in.Status), in.ProjectID, now(), id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	if err := requireAffected(res, core.NotFoundf("Expense not found")); err != nil {
		return core.Expense{}, err
	}
	return r.GetExpense(ctx, id)
}

func (r *Repository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := r.exec(ctx, r.db, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if err := requireAffected(res, core.NotFoundf("Expense not found")); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Expense deleted", "expense_id", id)
	return nil
}
