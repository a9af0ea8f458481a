package services

import (
	"context"

	"projex/internal/amqp"
	"projex/internal/core"
	applog "projex/internal/log"
	"projex/internal/storage"
)

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u core.User) (core.User, error)
	GetUser(ctx context.Context, id int64) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
	UpdateUserProfile(ctx context.Context, id int64, name, email string) (core.User, error)
	UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error
}

// ProjectStore persists projects.
type ProjectStore interface {
	CreateProject(ctx context.Context, in core.ProjectInput, createdBy int64) (core.Project, error)
	GetProject(ctx context.Context, id int64) (core.Project, error)
	ListProjects(ctx context.Context, statuses []core.ProjectStatus) ([]core.Project, error)
	UpdateProject(ctx context.Context, id int64, in core.ProjectInput) (core.Project, error)
	DeleteProject(ctx context.Context, id int64) (int64, error)
	ProjectStatusOf(ctx context.Context, id int64) (core.ProjectStatus, error)
}

// ExpenseStore persists expenses.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, in core.ExpenseInput, addedBy int64) (core.Expense, error)
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
	ListExpenses(ctx context.Context, q storage.ExpenseQuery) ([]core.Expense, error)
	UpdateExpense(ctx context.Context, id int64, in core.ExpenseInput) (core.Expense, error)
	DeleteExpense(ctx context.Context, id int64) error
}

// ReportStore runs the fixed-shape aggregate queries.
type ReportStore interface {
	OwnerProjectTotals(ctx context.Context, ownerID int64) (storage.OwnerTotals, error)
	OwnerStatusCounts(ctx context.Context, ownerID int64) ([]storage.StatusTally, error)
	SumExpenses(ctx context.Context, q storage.ExpenseQuery) (core.Money, error)
	CategoryTotals(ctx context.Context, q storage.ExpenseQuery) ([]core.CategoryTotal, error)
	MonthlyTotals(ctx context.Context, q storage.ExpenseQuery) (map[int]core.Money, error)
	YearlyTotals(ctx context.Context, q storage.ExpenseQuery) (map[int]core.Money, error)
	ProjectTotals(ctx context.Context, projectStatuses []core.ProjectStatus, expenseStatuses []core.ExpenseStatus) ([]core.ProjectTotal, error)
	ProjectsWithSpend(ctx context.Context, projectStatuses []core.ProjectStatus, expenseStatuses []core.ExpenseStatus) ([]storage.ProjectSpend, error)
}

// Store is everything the services need from persistence.
type Store interface {
	UserStore
	ProjectStore
	ExpenseStore
	ReportStore
}

// EventPublisher delivers committed domain changes.
type EventPublisher interface {
	Publish(ctx context.Context, ev *amqp.Event) error
}

// TokenIssuer signs a bearer credential for an identity.
type TokenIssuer interface {
	Issue(id core.Identity) (string, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// publish sends ev when a publisher is configured. Failures are logged and
// never returned: the change is already committed.
func publish(ctx context.Context, p EventPublisher, ev *amqp.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Failed to publish event",
			applog.FieldEventID, ev.ID, applog.FieldEventType, ev.Type, applog.FieldError, err)
	}
}
