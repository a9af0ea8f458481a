package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want Date
		ok   bool
	}{
		{"2024-03-15", NewDate(2024, 3, 15), true},
		{"2024-03-15T10:00:00Z", NewDate(2024, 3, 15), true},
		{"", Date{}, true},
		{"15/03/2024", Date{}, false},
		{"2024-13-01", Date{}, false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if !tc.ok {
			assert.ErrorIs(t, err, ErrValidation, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.True(t, tc.want.Equal(got.Time), tc.in)
	}
}

func TestDateJSONAndScan(t *testing.T) {
	var p struct {
		Start Date `json:"start"`
		End   Date `json:"end"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"start":"2024-01-02","end":null}`), &p))
	assert.Equal(t, "2024-01-02", p.Start.String())
	assert.True(t, p.End.IsZero())

	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"2024-01-02","end":null}`, string(b))

	var d Date
	require.NoError(t, d.Scan("2024-05-06"))
	assert.Equal(t, "2024-05-06", d.String())
	require.NoError(t, d.Scan(time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2023-02-01", d.String())
	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	v, err := Date{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole("admin"))
	assert.Equal(t, RoleViewer, ParseRole("viewer"))
	assert.Equal(t, RoleViewer, ParseRole(""))
	assert.Equal(t, RoleViewer, ParseRole("superuser"))
}

func TestProjectInputValidate(t *testing.T) {
	budget := Cents(100000)
	negative := Cents(-1)
	good := ProjectInput{Name: "Bridge", StartDate: NewDate(2024, 1, 1), TotalBudget: &budget}
	require.NoError(t, good.Validate())

	bads := map[string]ProjectInput{
		"missing name":     {StartDate: NewDate(2024, 1, 1)},
		"missing start":    {Name: "x"},
		"end before start": {Name: "x", StartDate: NewDate(2024, 2, 1), EndDate: NewDate(2024, 1, 1)},
		"negative budget":  {Name: "x", StartDate: NewDate(2024, 1, 1), TotalBudget: &negative},
		"bad status":       {Name: "x", StartDate: NewDate(2024, 1, 1), Status: "archived"},
	}
	for name, in := range bads {
		err := in.Validate()
		assert.True(t, errors.Is(err, ErrValidation), name)
	}

	assert.Equal(t, ProjectActive, ProjectInput{Name: " x "}.Normalize().Status)
	assert.Equal(t, "x", ProjectInput{Name: " x "}.Normalize().Name)
}

func TestExpenseInputValidate(t *testing.T) {
	good := ExpenseInput{ProjectID: 1, Date: NewDate(2024, 3, 15), Amount: Cents(1), Category: "travel"}
	require.NoError(t, good.Validate())
	assert.Equal(t, ExpensePending, good.Normalize().Status)

	bads := []ExpenseInput{
		{Date: NewDate(2024, 3, 15), Amount: Cents(1), Category: "travel"},
		{ProjectID: 1, Date: NewDate(2024, 3, 15), Amount: Cents(0), Category: "travel"},
		{ProjectID: 1, Date: NewDate(2024, 3, 15), Amount: Cents(1), Category: "  "},
		{ProjectID: 1, Amount: Cents(1), Category: "travel"},
		{ProjectID: 1, Date: NewDate(2024, 3, 15), Amount: Cents(1), Category: "travel", Status: "paid"},
	}
	for i, in := range bads {
		assert.Error(t, in.Validate(), "case %d", i)
	}
}

func TestValidationAccumulates(t *testing.T) {
	err := RegisterInput{Email: "nope", Password: "123"}.Validate()
	require.Error(t, err)
	msg, details := Message(err)
	assert.Equal(t, "Validation Error", msg)
	assert.Len(t, details, 3)
}

func TestPatchApply(t *testing.T) {
	p := Project{Name: "Old", StartDate: NewDate(2024, 1, 1), Status: ProjectActive}
	status := ProjectOnHold
	name := "New"
	in := ProjectPatch{Name: &name, Status: &status}.Apply(p)
	assert.Equal(t, "New", in.Name)
	assert.Equal(t, ProjectOnHold, in.Status)
	assert.Equal(t, p.StartDate, in.StartDate)

	e := Expense{ProjectID: 1, Amount: Cents(100), Category: "travel", Status: ExpensePending}
	approved := ExpenseApproved
	ein := ExpensePatch{Status: &approved}.Apply(e)
	assert.Equal(t, ExpenseApproved, ein.Status)
	assert.Equal(t, Cents(100), ein.Amount)
}

func TestProjectPatchNullableFields(t *testing.T) {
	budget := Cents(50000)
	p := Project{
		Name:        "Bridge",
		StartDate:   NewDate(2024, 1, 1),
		EndDate:     NewDate(2024, 12, 31),
		TotalBudget: &budget,
		Status:      ProjectActive,
	}

	tests := []struct {
		name       string
		body       string
		wantBudget *Money
		wantEnd    string
	}{
		{"absent keys keep values", `{"name":"Bridge 2"}`, &budget, "2024-12-31"},
		{"explicit null clears", `{"totalBudget":null,"endDate":null}`, nil, ""},
		{"values replace", `{"totalBudget":"12.50","endDate":"2025-03-01"}`, ptr(Cents(1250)), "2025-03-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var patch ProjectPatch
			require.NoError(t, json.Unmarshal([]byte(tt.body), &patch))
			in := patch.Apply(p)
			assert.Equal(t, tt.wantBudget, in.TotalBudget)
			assert.Equal(t, tt.wantEnd, in.EndDate.String())
			assert.Equal(t, p.StartDate, in.StartDate)
		})
	}
}

func TestOptionalTracksPresence(t *testing.T) {
	var v struct {
		A Optional[int] `json:"a"`
		B Optional[int] `json:"b"`
		C Optional[int] `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":3,"b":null}`), &v))
	assert.Equal(t, Optional[int]{Set: true, Value: 3}, v.A)
	assert.Equal(t, Optional[int]{Set: true, Null: true}, v.B)
	assert.Equal(t, Optional[int]{}, v.C)

	assert.Error(t, json.Unmarshal([]byte(`{"a":"x"}`), &v))
}

func ptr[T any](v T) *T { return &v }
