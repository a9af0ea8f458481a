package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBudgetUtilization(t *testing.T) {
	cases := []struct {
		name   string
		spent  Money
		budget Money
		want   float64
	}{
		{"scenario", Cents(55000), Cents(100000), 55.00},
		{"zero budget", Cents(55000), Cents(0), 0},
		{"rounds to two places", Cents(100), Cents(300), 33.33},
		{"over budget", Cents(150), Cents(100), 150},
		{"nothing spent", Cents(0), Cents(100), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, BudgetUtilization(tc.spent, tc.budget))
		})
	}
}

func TestRemainingBudget(t *testing.T) {
	assert.Nil(t, RemainingBudget(nil, Cents(10)))
	budget := Cents(1000)
	left := RemainingBudget(&budget, Cents(250))
	if assert.NotNil(t, left) {
		assert.Equal(t, int64(750), left.Cents)
	}
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Active", StatusLabel("active"))
	assert.Equal(t, "Inactive", StatusLabel("inactive"))
	assert.Equal(t, "Completed", StatusLabel("completed"))
	assert.Equal(t, "On Hold", StatusLabel("on_hold"))
	assert.Equal(t, "cancelled", StatusLabel("cancelled"))
}

func TestSortCategoryTotals(t *testing.T) {
	totals := []CategoryTotal{
		{Category: "meals", TotalAmount: Cents(100), Count: 1},
		{Category: "travel", TotalAmount: Cents(500), Count: 2},
		{Category: "fuel", TotalAmount: Cents(100), Count: 3},
	}
	SortCategoryTotals(totals)
	assert.Equal(t, []string{"travel", "fuel", "meals"},
		[]string{totals[0].Category, totals[1].Category, totals[2].Category})
	assert.Equal(t, Cents(700), SumCategories(totals))
}

func TestSortProjectTotals(t *testing.T) {
	totals := []ProjectTotal{
		{ID: 3, TotalExpenses: Cents(10)},
		{ID: 1, TotalExpenses: Cents(0)},
		{ID: 2, TotalExpenses: Cents(10)},
	}
	SortProjectTotals(totals)
	assert.Equal(t, []int64{2, 3, 1}, []int64{totals[0].ID, totals[1].ID, totals[2].ID})
}

func TestFillMonths(t *testing.T) {
	months := FillMonths(2024, map[int]Money{3: Cents(10000)}, true)
	assert.Len(t, months, 12)
	for i, m := range months {
		assert.Equal(t, i+1, m.Month)
		assert.Equal(t, 2024, m.Year)
		if m.Month == 3 {
			assert.Equal(t, int64(10000), m.Total.Cents)
		} else {
			assert.Zero(t, m.Total.Cents)
		}
	}
	assert.Zero(t, FillMonths(2024, nil, false)[0].Year)
}

func TestFillYears(t *testing.T) {
	from := YearSpan(2026, 5)
	years := FillYears(from, 2026, map[int]Money{2024: Cents(5)})
	assert.Len(t, years, 5)
	assert.Equal(t, 2022, years[0].Year)
	assert.Equal(t, 2026, years[4].Year)
	assert.Equal(t, int64(5), years[2].Total.Cents)
	assert.Empty(t, FillYears(2026, 2025, nil))
}
