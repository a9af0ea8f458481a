package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"projex/internal/core"
)

const (
	projectColumns = `p.id, p.name, p.description, p.start_date, p.end_date,
	p.total_budget_cents, p.status, p.created_by, p.created_at, p.updated_at,
	u.id, u.name, u.email`
	projectFrom = `
FROM projects p
LEFT JOIN users u ON u.id = p.created_by`
	projectSelect = `SELECT ` + projectColumns + projectFrom
)

func scanProject(row interface{ Scan(...any) error }, extra ...any) (core.Project, error) {
	var (
		p           core.Project
		description sql.NullString
		budget      sql.NullInt64
		status      string
		creatorID   sql.NullInt64
		creatorName sql.NullString
		creatorMail sql.NullString
	)
	dest := []any{
		&p.ID, &p.Name, &description, &p.StartDate, &p.EndDate,
		&budget, &status, &p.CreatedBy, timestamp{&p.CreatedAt}, timestamp{&p.UpdatedAt},
		&creatorID, &creatorName, &creatorMail,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return core.Project{}, err
	}
	p.Description = description.String
	p.TotalBudget = moneyPtr(budget)
	p.Status = core.ProjectStatus(status)
	if creatorID.Valid {
		p.Creator = &core.UserRef{ID: creatorID.Int64, Name: creatorName.String, Email: creatorMail.String}
	}
	return p, nil
}

func (r *Repository) CreateProject(ctx context.Context, in core.ProjectInput, createdBy int64) (core.Project, error) {
	ts := now()
	var id int64
	err := r.queryRow(ctx, r.db,
		`INSERT INTO projects (name, description, start_date, end_date, total_budget_cents,
			status, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		in.Name, nullString(in.Description), in.StartDate, in.EndDate, nullCents(in.TotalBudget),
		string(in.Status), createdBy, ts, ts,
	).Scan(&id)
	if err != nil {
		return core.Project{}, fmt.Errorf("create project: %w", err)
	}

	slog.InfoContext(ctx, "Project saved", "project_id", id, "name", in.Name, "created_by", createdBy)
	return r.GetProject(ctx, id)
}

func (r *Repository) GetProject(ctx context.Context, id int64) (core.Project, error) {
	p, err := scanProject(r.queryRow(ctx, r.db, projectSelect+` WHERE p.id = ?`, id))
	if err != nil {
		return core.Project{}, r.translate(err, "get project", core.NotFoundf("Project not found"))
	}
	return p, nil
}

// ListProjects returns projects newest first, restricted to statuses when
// any are given.
func (r *Repository) ListProjects(ctx context.Context, statuses []core.ProjectStatus) ([]core.Project, error) {
	where, args := projectStatusWhere(statuses)
	query := projectSelect + where + ` ORDER BY p.created_at DESC, p.id DESC`

	rows, err := r.query(ctx, r.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []core.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *Repository) UpdateProject(ctx context.Context, id int64, in core.ProjectInput) (core.Project, error) {
	res, err := r.exec(ctx, r.db,
		`UPDATE projects SET name = ?, description = ?, start_date = ?, end_date = ?,
			total_budget_cents = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		in.Name, nullString(in.Description), in.StartDate, in.EndDate,
		nullCents(in.TotalBudget), string(in.Status), now(), id)
	if err != nil {
		return core.Project{}, fmt.Errorf("update project: %w", err)
	}
	if err := requireAffected(res, core.NotFoundf("Project not found")); err != nil {
		return core.Project{}, err
	}
	return r.GetProject(ctx, id)
}

// DeleteProject removes a project and all of its expenses atomically and
// returns how many expenses went with it.
func (r *Repository) DeleteProject(ctx context.Context, id int64) (int64, error) {
	var removed int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := r.exec(ctx, tx, `DELETE FROM expenses WHERE project_id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete project expenses: %w", err)
		}
		if removed, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		res, err = r.exec(ctx, tx, `DELETE FROM projects WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		return requireAffected(res, core.NotFoundf("Project not found"))
	})
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Project deleted", "project_id", id, "expenses_removed", removed)
	return removed, nil
}

// ProjectStatusOf returns only the status of a project, for access checks.
func (r *Repository) ProjectStatusOf(ctx context.Context, id int64) (core.ProjectStatus, error) {
	var status string
	err := r.queryRow(ctx, r.db, `SELECT status FROM projects WHERE id = ?`, id).Scan(&status)
	if err != nil {
		return "", r.translate(err, "get project status", core.NotFoundf("Project not found"))
	}
	return core.ProjectStatus(strings.TrimSpace(status)), nil
}
