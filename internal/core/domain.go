package core

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

const (
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectOnHold    ProjectStatus = "on_hold"
	ProjectCancelled ProjectStatus = "cancelled"
)

const (
	ExpensePending  ExpenseStatus = "pending"
	ExpenseApproved ExpenseStatus = "approved"
	ExpenseRejected ExpenseStatus = "rejected"
)

// DateLayout is the wire and storage format of a calendar date.
const DateLayout = "2006-01-02"

const (
	maxNameLength     = 255
	maxCategoryLength = 100
	minPasswordLength = 6
)

type (
	Role          string
	ProjectStatus string
	ExpenseStatus string

	// Date is a calendar day in UTC. The zero value means "no date" and
	// is stored as NULL and rendered as JSON null.
	Date struct {
		time.Time
	}

	// Identity is the caller resolved from a bearer credential.
	Identity struct {
		ID    int64  `json:"id"`
		Role  Role   `json:"role"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	User struct {
		ID           int64     `json:"id"`
		Name         string    `json:"name"`
		Email        string    `json:"email"`
		PasswordHash string    `json:"-"`
		Role         Role      `json:"role"`
		CreatedAt    time.Time `json:"createdAt"`
		UpdatedAt    time.Time `json:"updatedAt"`
	}

	UserRef struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	ProjectRef struct {
		ID     int64         `json:"id"`
		Name   string        `json:"name"`
		Status ProjectStatus `json:"status,omitempty"`
	}

	Project struct {
		ID          int64         `json:"id"`
		Name        string        `json:"name"`
		Description string        `json:"description"`
		StartDate   Date          `json:"startDate"`
		EndDate     Date          `json:"endDate"`
		TotalBudget *Money        `json:"totalBudget"`
		Status      ProjectStatus `json:"status"`
		CreatedBy   int64         `json:"createdBy"`
		Creator     *UserRef      `json:"creator,omitempty"`
		CreatedAt   time.Time     `json:"createdAt"`
		UpdatedAt   time.Time     `json:"updatedAt"`
	}

	Expense struct {
		ID          int64         `json:"id"`
		Date        Date          `json:"date"`
		Amount      Money         `json:"amount"`
		Category    string        `json:"category"`
		Description string        `json:"description"`
		ReceiptURL  string        `json:"receiptUrl"`
		Status      ExpenseStatus `json:"status"`
		ProjectID   int64         `json:"projectId"`
		AddedBy     int64         `json:"addedBy"`
		Project     *ProjectRef   `json:"project,omitempty"`
		AddedByUser *UserRef      `json:"addedByUser,omitempty"`
		CreatedAt   time.Time     `json:"createdAt"`
		UpdatedAt   time.Time     `json:"updatedAt"`
	}
)

// ParseRole maps an arbitrary string to a role; anything unknown is a viewer.
func ParseRole(s string) Role {
	if Role(s) == RoleAdmin {
		return RoleAdmin
	}
	return RoleViewer
}

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleViewer
}

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectCompleted, ProjectOnHold, ProjectCancelled:
		return true
	}
	return false
}

func (s ExpenseStatus) Valid() bool {
	switch s {
	case ExpensePending, ExpenseApproved, ExpenseRejected:
		return true
	}
	return false
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string. Full RFC 3339 timestamps are
// accepted and truncated to their calendar day.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, Validationf("Invalid date %q: use YYYY-MM-DD", s)
	}
	return NewDate(t.Year(), int(t.Month()), t.Day()), nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*d = Date{}
		return nil
	}
	s = strings.Trim(s, `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan implements sql.Scanner for TEXT (sqlite) and DATE (postgres) columns.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = NewDate(v.Year(), int(v.Month()), v.Day())
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	}
	return fmt.Errorf("cannot scan %T into Date", src)
}

func (d *Date) scanString(s string) error {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// RegisterInput carries a new account.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (in RegisterInput) Validate() error {
	v := &Validation{}
	v.Check(strings.TrimSpace(in.Name) != "", "Please add name")
	v.Check(validEmail(strings.TrimSpace(in.Email)), "Please include a valid email")
	v.Check(len(in.Password) >= minPasswordLength, "Please enter a password with 6 or more characters")
	return v.Err()
}

// ProfileUpdate changes the caller's own profile. Empty fields are kept.
type ProfileUpdate struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (in ProfileUpdate) Validate() error {
	v := &Validation{}
	v.Check(len(in.Name) <= maxNameLength, "Name is too long")
	v.Check(in.Email == "" || validEmail(in.Email), "Please include a valid email")
	return v.Err()
}

// ValidatePassword checks a new password against the minimum length.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return Validationf("Please enter a password with 6 or more characters")
	}
	return nil
}

// ProjectInput is a complete project as submitted by an admin.
type ProjectInput struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	StartDate   Date          `json:"startDate"`
	EndDate     Date          `json:"endDate"`
	TotalBudget *Money        `json:"totalBudget"`
	Status      ProjectStatus `json:"status"`
}

func (in ProjectInput) Validate() error {
	v := &Validation{}
	name := strings.TrimSpace(in.Name)
	v.Check(name != "", "Name is required")
	v.Check(len(name) <= maxNameLength, "Name is too long")
	v.Check(!in.StartDate.IsZero(), "Start date is required")
	if !in.StartDate.IsZero() && !in.EndDate.IsZero() {
		v.Check(!in.EndDate.Before(in.StartDate.Time), "End date must not be before start date")
	}
	if in.TotalBudget != nil {
		v.Check(in.TotalBudget.Cents >= 0, "Total budget must be zero or more")
		v.Check(in.TotalBudget.Cents <= MaxCents, "Total budget is too large")
	}
	v.Check(in.Status == "" || in.Status.Valid(), fmt.Sprintf("Invalid project status %q", in.Status))
	return v.Err()
}

// Normalize trims text fields and applies defaults.
func (in ProjectInput) Normalize() ProjectInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Status == "" {
		in.Status = ProjectActive
	}
	return in
}

// Optional is a JSON field that distinguishes an absent key from an
// explicit null. Set is true whenever the key was present.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		var zero T
		o.Null, o.Value = true, zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(b, &o.Value)
}

// ProjectPatch is a partial update; nil or unset fields are left untouched.
// EndDate and TotalBudget may be cleared with an explicit null.
type ProjectPatch struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	StartDate   *Date           `json:"startDate"`
	EndDate     Optional[Date]  `json:"endDate"`
	TotalBudget Optional[Money] `json:"totalBudget"`
	Status      *ProjectStatus  `json:"status"`
}

// Apply returns the project input resulting from applying the patch to p.
func (pp ProjectPatch) Apply(p Project) ProjectInput {
	in := ProjectInput{
		Name:        p.Name,
		Description: p.Description,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		TotalBudget: p.TotalBudget,
		Status:      p.Status,
	}
	if pp.Name != nil {
		in.Name = *pp.Name
	}
	if pp.Description != nil {
		in.Description = *pp.Description
	}
	if pp.StartDate != nil {
		in.StartDate = *pp.StartDate
	}
	if pp.EndDate.Set {
		in.EndDate = pp.EndDate.Value
	}
	if pp.TotalBudget.Set {
		if pp.TotalBudget.Null {
			in.TotalBudget = nil
		} else {
			budget := pp.TotalBudget.Value
			in.TotalBudget = &budget
		}
	}
	if pp.Status != nil {
		in.Status = *pp.Status
	}
	return in
}

// ExpenseInput is a complete expense as submitted by an admin.
type ExpenseInput struct {
	ProjectID   int64         `json:"projectId"`
	Date        Date          `json:"date"`
	Amount      Money         `json:"amount"`
	Category    string        `json:"category"`
	Description string        `json:"description"`
	ReceiptURL  string        `json:"receiptUrl"`
	Status      ExpenseStatus `json:"status"`
}

func (in ExpenseInput) Validate() error {
	v := &Validation{}
	v.Check(in.ProjectID > 0, "Project ID is required")
	v.Check(in.Amount.Cents > 0, "Amount is required and must be greater than 0")
	v.Check(in.Amount.Cents <= MaxCents, "Amount is too large")
	category := strings.TrimSpace(in.Category)
	v.Check(category != "", "Category is required")
	v.Check(len(category) <= maxCategoryLength, "Category is too long")
	v.Check(!in.Date.IsZero(), "Date is required")
	v.Check(in.Status == "" || in.Status.Valid(), fmt.Sprintf("Invalid expense status %q", in.Status))
	return v.Err()
}

func (in ExpenseInput) Normalize() ExpenseInput {
	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)
	in.ReceiptURL = strings.TrimSpace(in.ReceiptURL)
	if in.Status == "" {
		in.Status = ExpensePending
	}
	return in
}

type ExpensePatch struct {
	ProjectID   *int64         `json:"projectId"`
	Date        *Date          `json:"date"`
	Amount      *Money         `json:"amount"`
	Category    *string        `json:"category"`
	Description *string        `json:"description"`
	ReceiptURL  *string        `json:"receiptUrl"`
	Status      *ExpenseStatus `json:"status"`
}

func (ep ExpensePatch) Apply(e Expense) ExpenseInput {
	in := ExpenseInput{
		ProjectID:   e.ProjectID,
		Date:        e.Date,
		Amount:      e.Amount,
		Category:    e.Category,
		Description: e.Description,
		ReceiptURL:  e.ReceiptURL,
		Status:      e.Status,
	}
	if ep.ProjectID != nil {
		in.ProjectID = *ep.ProjectID
	}
	if ep.Date != nil {
		in.Date = *ep.Date
	}
	if ep.Amount != nil {
		in.Amount = *ep.Amount
	}
	if ep.Category != nil {
		in.Category = *ep.Category
	}
	if ep.Description != nil {
		in.Description = *ep.Description
	}
	if ep.ReceiptURL != nil {
		in.ReceiptURL = *ep.ReceiptURL
	}
	if ep.Status != nil {
		in.Status = *ep.Status
	}
	return in
}

// DateRange is an inclusive [From, To] filter. A zero bound is open.
type DateRange struct {
	From Date
	To   Date
}

func (r DateRange) Validate() error {
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From.Time) {
		return Validationf("endDate must not be before startDate")
	}
	return nil
}

// ExpenseFilter narrows a project's expense listing.
type ExpenseFilter struct {
	Range    DateRange
	Category string
}
