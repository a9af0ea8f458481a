package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Number of years covered by the annual part of the global summary.
const GlobalSummaryYears = 5

// DashboardStats summarises the projects owned by one user.
type DashboardStats struct {
	TotalProjects     int     `json:"totalProjects"`
	ActiveProjects    int     `json:"activeProjects"`
	TotalExpenses     Money   `json:"totalExpenses"`
	BudgetUtilization float64 `json:"budgetUtilization"`
	TotalBudget       Money   `json:"totalBudget"`
}

type StatusCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type CategoryTotal struct {
	Category    string `json:"category"`
	TotalAmount Money  `json:"totalAmount"`
	Count       int    `json:"count"`
}

type ProjectBudget struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	TotalBudget *Money `json:"totalBudget"`
}

type CategorySummary struct {
	ByCategory    []CategoryTotal `json:"byCategory"`
	TotalExpenses Money           `json:"totalExpenses"`
	Project       *ProjectBudget  `json:"project,omitempty"`
}

type MonthTotal struct {
	Month int   `json:"month"`
	Year  int   `json:"year,omitempty"`
	Total Money `json:"total"`
}

type YearTotal struct {
	Year  int   `json:"year"`
	Total Money `json:"total"`
}

type ProjectTotal struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	TotalExpenses Money  `json:"totalExpenses"`
}

type GlobalSummary struct {
	Monthly  []MonthTotal   `json:"monthly"`
	Annual   []YearTotal    `json:"annual"`
	Projects []ProjectTotal `json:"projects"`
}

// ProjectSummary is the budget position of one project.
type ProjectSummary struct {
	ID              int64         `json:"id"`
	Name            string        `json:"name"`
	Status          ProjectStatus `json:"status"`
	TotalBudget     *Money        `json:"totalBudget"`
	TotalExpenses   Money         `json:"totalExpenses"`
	RemainingBudget *Money        `json:"remainingBudget"`
	StartDate       Date          `json:"startDate"`
	EndDate         Date          `json:"endDate"`
}

// LandingProject is a project on the public listing with its spend
// rendered as a fixed two-decimal string.
type LandingProject struct {
	Project
	TotalExpenses string `json:"totalExpenses"`
}

// BudgetUtilization returns spent/budget*100 rounded to two decimals,
// or 0 when there is no budget.
func BudgetUtilization(spent, budget Money) float64 {
	if budget.Cents <= 0 {
		return 0
	}
	pct := spent.Decimal().
		Div(budget.Decimal()).
		Mul(decimal.NewFromInt(100)).
		Round(2)
	return pct.InexactFloat64()
}

// RemainingBudget is nil when the project has no budget.
func RemainingBudget(budget *Money, spent Money) *Money {
	if budget == nil {
		return nil
	}
	left := budget.Sub(spent)
	return &left
}

var statusLabels = map[string]string{
	"active":    "Active",
	"inactive":  "Inactive",
	"completed": "Completed",
	"on_hold":   "On Hold",
}

// StatusLabel maps a stored status to its display name. Unknown statuses
// are returned unchanged.
func StatusLabel(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return status
}

// SortCategoryTotals orders by total descending, then category ascending.
func SortCategoryTotals(totals []CategoryTotal) {
	sort.SliceStable(totals, func(i, j int) bool {
		if totals[i].TotalAmount.Cents != totals[j].TotalAmount.Cents {
			return totals[i].TotalAmount.Cents > totals[j].TotalAmount.Cents
		}
		return totals[i].Category < totals[j].Category
	})
}

// SortProjectTotals orders by spend descending, then id ascending.
func SortProjectTotals(totals []ProjectTotal) {
	sort.SliceStable(totals, func(i, j int) bool {
		if totals[i].TotalExpenses.Cents != totals[j].TotalExpenses.Cents {
			return totals[i].TotalExpenses.Cents > totals[j].TotalExpenses.Cents
		}
		return totals[i].ID < totals[j].ID
	})
}

// FillMonths expands sparse per-month sums into twelve entries. When
// withYear is set every entry carries year.
func FillMonths(year int, sums map[int]Money, withYear bool) []MonthTotal {
	months := make([]MonthTotal, 12)
	for i := range months {
		months[i] = MonthTotal{Month: i + 1, Total: sums[i+1]}
		if withYear {
			months[i].Year = year
		}
	}
	return months
}

// YearSpan returns the first year of n years ending at current.
func YearSpan(current, n int) int {
	return current - n + 1
}

// FillYears expands sparse per-year sums into one entry per year in
// [from, to], in order.
func FillYears(from, to int, sums map[int]Money) []YearTotal {
	if to < from {
		return []YearTotal{}
	}
	years := make([]YearTotal, 0, to-from+1)
	for y := from; y <= to; y++ {
		years = append(years, YearTotal{Year: y, Total: sums[y]})
	}
	return years
}

// SumCategories returns the grand total of a category breakdown.
func SumCategories(totals []CategoryTotal) Money {
	var sum Money
	for _, t := range totals {
		sum = sum.Add(t.TotalAmount)
	}
	return sum
}
