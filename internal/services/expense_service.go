package services

import (
	"context"

	"projex/internal/amqp"
	"projex/internal/core"
	applog "projex/internal/log"
	"projex/internal/policy"
)

// ExpenseService applies admin mutations to expenses and announces them.
type ExpenseService struct {
	projects  ProjectStore
	expenses  ExpenseStore
	publisher EventPublisher
}

// NewExpenseService wires the store; publisher may be nil.
func NewExpenseService(store Store, publisher EventPublisher) *ExpenseService {
	return &ExpenseService{projects: store, expenses: store, publisher: publisher}
}

// CreateExpense records an expense against an existing project.
func (s *ExpenseService) CreateExpense(ctx context.Context, id *core.Identity, in core.ExpenseInput) (core.Expense, error) {
	if err := policy.Authorize(id, policy.Create, policy.Expense("", "")); err != nil {
		return core.Expense{}, err
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	if _, err := s.projects.ProjectStatusOf(ctx, in.ProjectID); err != nil {
		return core.Expense{}, err
	}

	e, err := s.expenses.CreateExpense(ctx, in, id.ID)
	if err != nil {
		return core.Expense{}, err
	}

	applog.FromContext(ctx).WithUser(id.ID, string(id.Role)).InfoContext(ctx, "Expense created",
		applog.FieldExpenseID, e.ID,
		applog.FieldProjectID, e.ProjectID,
		applog.FieldAmountCents, e.Amount.Cents,
		applog.FieldCategory, e.Category)
	publish(ctx, s.publisher, amqp.NewExpenseEvent(amqp.ExpenseCreated, id.ID, e))
	return e, nil
}

// UpdateExpense applies a partial update. Any valid status may be set
// directly; moving to another project requires that project to exist.
func (s *ExpenseService) UpdateExpense(ctx context.Context, id *core.Identity, expenseID int64, patch core.ExpensePatch) (core.Expense, error) {
	if err := policy.Authorize(id, policy.Update, policy.Expense("", "")); err != nil {
		return core.Expense{}, err
	}
	current, err := s.expenses.GetExpense(ctx, expenseID)
	if err != nil {
		return core.Expense{}, err
	}
	in := patch.Apply(current).Normalize()
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	if in.ProjectID != current.ProjectID {
		if _, err := s.projects.ProjectStatusOf(ctx, in.ProjectID); err != nil {
			return core.Expense{}, err
		}
	}

	e, err := s.expenses.UpdateExpense(ctx, expenseID, in)
	if err != nil {
		return core.Expense{}, err
	}

	applog.FromContext(ctx).WithUser(id.ID, string(id.Role)).InfoContext(ctx, "Expense updated",
		applog.FieldExpenseID, e.ID, "from_status", current.Status, "to_status", e.Status)
	publish(ctx, s.publisher, amqp.NewExpenseEvent(amqp.ExpenseUpdated, id.ID, e))
	return e, nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, id *core.Identity, expenseID int64) error {
	if err := policy.Authorize(id, policy.Delete, policy.Expense("", "")); err != nil {
		return err
	}
	e, err := s.expenses.GetExpense(ctx, expenseID)
	if err != nil {
		return err
	}
	if err := s.expenses.DeleteExpense(ctx, expenseID); err != nil {
		return err
	}

	applog.FromContext(ctx).WithUser(id.ID, string(id.Role)).InfoContext(ctx, "Expense deleted",
		applog.FieldExpenseID, expenseID, applog.FieldProjectID, e.ProjectID)
	publish(ctx, s.publisher, amqp.NewExpenseEvent(amqp.ExpenseDeleted, id.ID, e))
	return nil
}
