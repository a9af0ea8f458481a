package storage

import (
	"context"
	"fmt"

	"projex/internal/core"
)

// Each aggregate below has a fixed result shape. Sums are computed over
// integer cents so the database never rounds.

const sumCents = `CAST(COALESCE(SUM(e.amount_cents), 0) AS BIGINT)`

const expenseFrom = `
FROM expenses e
JOIN projects p ON p.id = e.project_id`

// OwnerTotals counts the projects created by one user.
type OwnerTotals struct {
	TotalProjects  int
	ActiveProjects int
	TotalBudget    core.Money
}

func (r *Repository) OwnerProjectTotals(ctx context.Context, ownerID int64) (OwnerTotals, error) {
	var (
		t      OwnerTotals
		budget int64
	)
	err := r.queryRow(ctx, r.db,
		`SELECT COUNT(*),
			CAST(COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0) AS BIGINT),
			CAST(COALESCE(SUM(total_budget_cents), 0) AS BIGINT)
		 FROM projects WHERE created_by = ?`, ownerID,
	).Scan(&t.TotalProjects, &t.ActiveProjects, &budget)
	if err != nil {
		return OwnerTotals{}, fmt.Errorf("owner project totals: %w", err)
	}
	t.TotalBudget = core.Cents(budget)
	return t, nil
}

// StatusTally is the number of projects in one stored status.
type StatusTally struct {
	Status string
	Count  int
}

// OwnerStatusCounts groups the projects created by ownerID by status.
func (r *Repository) OwnerStatusCounts(ctx context.Context, ownerID int64) ([]StatusTally, error) {
	rows, err := r.query(ctx, r.db,
		`SELECT status, COUNT(*) FROM projects WHERE created_by = ?
		 GROUP BY status ORDER BY status`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("owner status counts: %w", err)
	}
	defer rows.Close()

	tallies := []StatusTally{}
	for rows.Next() {
		var t StatusTally
		if err := rows.Scan(&t.Status, &t.Count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		tallies = append(tallies, t)
	}
	return tallies, rows.Err()
}

// SumExpenses totals the matching expenses.
func (r *Repository) SumExpenses(ctx context.Context, q ExpenseQuery) (core.Money, error) {
	where, args := q.where()
	var cents int64
	if err := r.queryRow(ctx, r.db, `SELECT `+sumCents+expenseFrom+where, args...).Scan(&cents); err != nil {
		return core.Money{}, fmt.Errorf("sum expenses: %w", err)
	}
	return core.Cents(cents), nil
}

// CategoryTotals groups matching expenses by category. Order is unspecified.
func (r *Repository) CategoryTotals(ctx context.Context, q ExpenseQuery) ([]core.CategoryTotal, error) {
	where, args := q.where()
	rows, err := r.query(ctx, r.db,
		`SELECT e.category, `+sumCents+`, COUNT(e.id)`+expenseFrom+where+` GROUP BY e.category`, args...)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	totals := []core.CategoryTotal{}
	for rows.Next() {
		var (
			t     core.CategoryTotal
			cents int64
		)
		if err := rows.Scan(&t.Category, &cents, &t.Count); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		t.TotalAmount = core.Cents(cents)
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// MonthlyTotals sums matching expenses per calendar month (1..12). Months
// without expenses are absent.
func (r *Repository) MonthlyTotals(ctx context.Context, q ExpenseQuery) (map[int]core.Money, error) {
	return r.bucketTotals(ctx, "monthly totals", r.dialect.monthOf("e.date"), q)
}

// YearlyTotals sums matching expenses per calendar year.
func (r *Repository) YearlyTotals(ctx context.Context, q ExpenseQuery) (map[int]core.Money, error) {
	return r.bucketTotals(ctx, "yearly totals", r.dialect.yearOf("e.date"), q)
}

func (r *Repository) bucketTotals(ctx context.Context, op, bucket string, q ExpenseQuery) (map[int]core.Money, error) {
	where, args := q.where()
	rows, err := r.query(ctx, r.db,
		`SELECT `+bucket+`, `+sumCents+expenseFrom+where+` GROUP BY `+bucket, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	sums := make(map[int]core.Money)
	for rows.Next() {
		var key int
		var cents int64
		if err := rows.Scan(&key, &cents); err != nil {
			return nil, fmt.Errorf("scan %s: %w", op, err)
		}
		sums[key] = core.Cents(cents)
	}
	return sums, rows.Err()
}

// spendSubquery sums a project's expenses, restricted to statuses when
// any are given. Its arguments must precede any outer WHERE arguments.
func spendSubquery(statuses []core.ExpenseStatus) (string, []any) {
	sub := `(SELECT ` + sumCents + ` FROM expenses e WHERE e.project_id = p.id`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		sub += ` AND e.status IN (` + placeholders(len(statuses)) + `)`
		for _, s := range statuses {
			args = append(args, string(s))
		}
	}
	return sub + `)`, args
}

func projectStatusWhere(statuses []core.ProjectStatus) (string, []any) {
	if len(statuses) == 0 {
		return "", nil
	}
	args := make([]any, 0, len(statuses))
	for _, s := range statuses {
		args = append(args, string(s))
	}
	return ` WHERE p.status IN (` + placeholders(len(statuses)) + `)`, args
}

// ProjectTotals returns projects with their total spend. Empty status
// lists do not filter. Order is unspecified.
func (r *Repository) ProjectTotals(ctx context.Context, projectStatuses []core.ProjectStatus, expenseStatuses []core.ExpenseStatus) ([]core.ProjectTotal, error) {
	spend, args := spendSubquery(expenseStatuses)
	where, whereArgs := projectStatusWhere(projectStatuses)
	rows, err := r.query(ctx, r.db,
		`SELECT p.id, p.name, `+spend+` FROM projects p`+where, append(args, whereArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("project totals: %w", err)
	}
	defer rows.Close()

	totals := []core.ProjectTotal{}
	for rows.Next() {
		var (
			t     core.ProjectTotal
			cents int64
		)
		if err := rows.Scan(&t.ID, &t.Name, &cents); err != nil {
			return nil, fmt.Errorf("scan project total: %w", err)
		}
		t.TotalExpenses = core.Cents(cents)
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// ProjectSpend is a project with the sum of its expenses.
type ProjectSpend struct {
	Project core.Project
	Spent   core.Money
}

// ProjectsWithSpend lists projects newest first with their total spend.
// Empty status lists do not filter.
func (r *Repository) ProjectsWithSpend(ctx context.Context, projectStatuses []core.ProjectStatus, expenseStatuses []core.ExpenseStatus) ([]ProjectSpend, error) {
	spend, args := spendSubquery(expenseStatuses)
	where, whereArgs := projectStatusWhere(projectStatuses)
	query := `SELECT ` + projectColumns + `, ` + spend + projectFrom + where +
		` ORDER BY p.created_at DESC, p.id DESC`

	rows, err := r.query(ctx, r.db, query, append(args, whereArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("projects with spend: %w", err)
	}
	defer rows.Close()

	out := []ProjectSpend{}
	for rows.Next() {
		var cents int64
		p, err := scanProject(rows, &cents)
		if err != nil {
			return nil, fmt.Errorf("scan project spend: %w", err)
		}
		out = append(out, ProjectSpend{Project: p, Spent: core.Cents(cents)})
	}
	return out, rows.Err()
}
