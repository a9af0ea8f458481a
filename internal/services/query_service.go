package services

import (
	"context"
	"strings"

	"projex/internal/core"
	applog "projex/internal/log"
	"projex/internal/policy"
	"projex/internal/storage"
)

// QueryService runs reads with the caller's role applied before any row
// leaves the store.
type QueryService struct {
	store Store
}

func NewQueryService(store Store) *QueryService {
	return &QueryService{store: store}
}

// Landing lists every project, whatever its status, with its total spend.
// It needs no caller.
func (s *QueryService) Landing(ctx context.Context) ([]core.LandingProject, error) {
	if err := policy.Authorize(nil, policy.Read, policy.Landing()); err != nil {
		return nil, err
	}
	rows, err := s.store.ProjectsWithSpend(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	out := make([]core.LandingProject, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.LandingProject{Project: r.Project, TotalExpenses: r.Spent.String()})
	}
	return out, nil
}

// ListProjects returns the projects the caller may see, newest first.
func (s *QueryService) ListProjects(ctx context.Context, id *core.Identity) ([]core.Project, error) {
	if err := policy.Authorize(id, policy.Read, policy.Project("")); err != nil {
		return nil, err
	}
	return s.store.ListProjects(ctx, policy.ProjectFilter(id.Role))
}

// GetProject fails with NotFound when the project is absent and with
// NotAuthorized when it exists but is hidden from the caller.
func (s *QueryService) GetProject(ctx context.Context, id *core.Identity, projectID int64) (core.Project, error) {
	if err := policy.Authorize(id, policy.Read, policy.Project("")); err != nil {
		return core.Project{}, err
	}
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return core.Project{}, err
	}
	if err := policy.Authorize(id, policy.Read, policy.Project(p.Status)); err != nil {
		applog.FromContext(ctx).DebugContext(ctx, "Project hidden from caller",
			applog.FieldProjectID, projectID, applog.FieldRole, id.Role)
		return core.Project{}, err
	}
	return p, nil
}

// ListExpenses returns the expenses the caller may see, most recent first.
// Viewers only see approved expenses of active projects.
func (s *QueryService) ListExpenses(ctx context.Context, id *core.Identity) ([]core.Expense, error) {
	if err := policy.Authorize(id, policy.Read, policy.Expense("", "")); err != nil {
		return nil, err
	}
	return s.store.ListExpenses(ctx, storage.ExpenseQuery{
		Statuses:        policy.ExpenseFilter(id.Role),
		ProjectStatuses: policy.ProjectFilter(id.Role),
	})
}

func (s *QueryService) GetExpense(ctx context.Context, id *core.Identity, expenseID int64) (core.Expense, error) {
	if err := policy.Authorize(id, policy.Read, policy.Expense("", "")); err != nil {
		return core.Expense{}, err
	}
	e, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return core.Expense{}, err
	}
	var projectStatus core.ProjectStatus
	if e.Project != nil {
		projectStatus = e.Project.Status
	}
	if err := policy.Authorize(id, policy.Read, policy.Expense(e.Status, projectStatus)); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

// GetProjectExpenses lists one project's expenses filtered by an optional
// inclusive date range and exact category, most recent first.
func (s *QueryService) GetProjectExpenses(ctx context.Context, id *core.Identity, projectID int64, f core.ExpenseFilter) ([]core.Expense, error) {
	if _, err := s.GetProject(ctx, id, projectID); err != nil {
		return nil, err
	}
	if err := f.Range.Validate(); err != nil {
		return nil, err
	}
	return s.store.ListExpenses(ctx, storage.ExpenseQuery{
		ProjectID: projectID,
		From:      f.Range.From,
		To:        f.Range.To,
		Category:  strings.TrimSpace(f.Category),
		Statuses:  policy.ExpenseFilter(id.Role),
	})
}

// ProjectsSummary reports the budget position of every visible project.
func (s *QueryService) ProjectsSummary(ctx context.Context, id *core.Identity) ([]core.ProjectSummary, error) {
	if err := policy.Authorize(id, policy.Read, policy.Project("")); err != nil {
		return nil, err
	}
	rows, err := s.store.ProjectsWithSpend(ctx, policy.ProjectFilter(id.Role), policy.ExpenseFilter(id.Role))
	if err != nil {
		return nil, err
	}
	out := make([]core.ProjectSummary, 0, len(rows))
	for _, r := range rows {
		p := r.Project
		out = append(out, core.ProjectSummary{
			ID:              p.ID,
			Name:            p.Name,
			Status:          p.Status,
			TotalBudget:     p.TotalBudget,
			TotalExpenses:   r.Spent,
			RemainingBudget: core.RemainingBudget(p.TotalBudget, r.Spent),
			StartDate:       p.StartDate,
			EndDate:         p.EndDate,
		})
	}
	return out, nil
}
