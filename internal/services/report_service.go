package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"projex/internal/core"
	"projex/internal/policy"
	"projex/internal/storage"
)

const (
	DefaultAnnualYears = 5
	MaxAnnualYears     = 50
	minReportYear      = 1900
	maxReportYear      = 9999
)

// ReportService computes dashboard statistics and time-bucketed summaries.
// Every aggregate is computed on read; nothing is maintained incrementally.
type ReportService struct {
	store   ReportStore
	queries *QueryService
	now     func() time.Time
}

func NewReportService(store Store, queries *QueryService) *ReportService {
	return &ReportService{store: store, queries: queries, now: time.Now}
}

// DashboardStats summarises the projects created by the caller.
func (s *ReportService) DashboardStats(ctx context.Context, id *core.Identity) (core.DashboardStats, error) {
	if err := policy.Authorize(id, policy.Read, policy.Dashboard()); err != nil {
		return core.DashboardStats{}, err
	}

	totals, err := s.store.OwnerProjectTotals(ctx, id.ID)
	if err != nil {
		return core.DashboardStats{}, err
	}
	spent, err := s.store.SumExpenses(ctx, storage.ExpenseQuery{OwnerID: id.ID})
	if err != nil {
		return core.DashboardStats{}, err
	}

	return core.DashboardStats{
		TotalProjects:     totals.TotalProjects,
		ActiveProjects:    totals.ActiveProjects,
		TotalExpenses:     spent,
		BudgetUtilization: core.BudgetUtilization(spent, totals.TotalBudget),
		TotalBudget:       totals.TotalBudget,
	}, nil
}

// ProjectStatusDistribution counts the caller's projects per status.
func (s *ReportService) ProjectStatusDistribution(ctx context.Context, id *core.Identity) ([]core.StatusCount, error) {
	if err := policy.Authorize(id, policy.Read, policy.Dashboard()); err != nil {
		return nil, err
	}
	tallies, err := s.store.OwnerStatusCounts(ctx, id.ID)
	if err != nil {
		return nil, err
	}
	out := make([]core.StatusCount, 0, len(tallies))
	for _, t := range tallies {
		out = append(out, core.StatusCount{Name: core.StatusLabel(t.Status), Count: t.Count})
	}
	return out, nil
}

// ExpenseSummaryByCategory groups a project's expenses by category, largest
// total first.
func (s *ReportService) ExpenseSummaryByCategory(ctx context.Context, id *core.Identity, projectID int64, r core.DateRange) (core.CategorySummary, error) {
	p, err := s.queries.GetProject(ctx, id, projectID)
	if err != nil {
		return core.CategorySummary{}, err
	}
	if err := r.Validate(); err != nil {
		return core.CategorySummary{}, err
	}

	totals, err := s.store.CategoryTotals(ctx, storage.ExpenseQuery{
		ProjectID: projectID,
		From:      r.From,
		To:        r.To,
		Statuses:  policy.ExpenseFilter(id.Role),
	})
	if err != nil {
		return core.CategorySummary{}, err
	}
	core.SortCategoryTotals(totals)

	return core.CategorySummary{
		ByCategory:    totals,
		TotalExpenses: core.SumCategories(totals),
		Project:       &core.ProjectBudget{ID: p.ID, Name: p.Name, TotalBudget: p.TotalBudget},
	}, nil
}

// MonthlyExpenses returns twelve entries for year, zero-filled.
func (s *ReportService) MonthlyExpenses(ctx context.Context, id *core.Identity, projectID int64, year int) ([]core.MonthTotal, error) {
	if year < minReportYear || year > maxReportYear {
		return nil, core.Validationf("Invalid year %d", year)
	}
	if _, err := s.queries.GetProject(ctx, id, projectID); err != nil {
		return nil, err
	}

	sums, err := s.store.MonthlyTotals(ctx, storage.ExpenseQuery{
		ProjectID: projectID,
		From:      core.NewDate(year, 1, 1),
		Before:    core.NewDate(year+1, 1, 1),
		Statuses:  policy.ExpenseFilter(id.Role),
	})
	if err != nil {
		return nil, err
	}
	return core.FillMonths(year, sums, true), nil
}

// AnnualExpenses returns one entry per year for the last years years,
// ending with the current one.
func (s *ReportService) AnnualExpenses(ctx context.Context, id *core.Identity, projectID int64, years int) ([]core.YearTotal, error) {
	if years < 1 || years > MaxAnnualYears {
		return nil, core.Validationf("years must be between 1 and %d", MaxAnnualYears)
	}
	if _, err := s.queries.GetProject(ctx, id, projectID); err != nil {
		return nil, err
	}

	current := s.now().UTC().Year()
	from := core.YearSpan(current, years)
	sums, err := s.store.YearlyTotals(ctx, storage.ExpenseQuery{
		ProjectID: projectID,
		From:      core.NewDate(from, 1, 1),
		Before:    core.NewDate(current+1, 1, 1),
		Statuses:  policy.ExpenseFilter(id.Role),
	})
	if err != nil {
		return nil, err
	}
	return core.FillYears(from, current, sums), nil
}

// GlobalExpenseSummary covers every visible project: the current year by
// month, the last five years, and spend per project largest first.
func (s *ReportService) GlobalExpenseSummary(ctx context.Context, id *core.Identity) (core.GlobalSummary, error) {
	if err := policy.Authorize(id, policy.Read, policy.Expense("", "")); err != nil {
		return core.GlobalSummary{}, err
	}

	current := s.now().UTC().Year()
	from := core.YearSpan(current, core.GlobalSummaryYears)
	scope := storage.ExpenseQuery{
		Statuses:        policy.ExpenseFilter(id.Role),
		ProjectStatuses: policy.ProjectFilter(id.Role),
	}

	var (
		summary core.GlobalSummary
		g, gctx = errgroup.WithContext(ctx)
	)

	g.Go(func() error {
		q := scope
		q.From, q.Before = core.NewDate(current, 1, 1), core.NewDate(current+1, 1, 1)
		sums, err := s.store.MonthlyTotals(gctx, q)
		if err != nil {
			return fmt.Errorf("monthly: %w", err)
		}
		summary.Monthly = core.FillMonths(current, sums, false)
		return nil
	})

	g.Go(func() error {
		q := scope
		q.From, q.Before = core.NewDate(from, 1, 1), core.NewDate(current+1, 1, 1)
		sums, err := s.store.YearlyTotals(gctx, q)
		if err != nil {
			return fmt.Errorf("annual: %w", err)
		}
		summary.Annual = core.FillYears(from, current, sums)
		return nil
	})

	g.Go(func() error {
		totals, err := s.store.ProjectTotals(gctx, scope.ProjectStatuses, scope.Statuses)
		if err != nil {
			return fmt.Errorf("projects: %w", err)
		}
		core.SortProjectTotals(totals)
		summary.Projects = totals
		return nil
	})

	if err := g.Wait(); err != nil {
		return core.GlobalSummary{}, fmt.Errorf("global expense summary: %w", err)
	}
	return summary, nil
}
