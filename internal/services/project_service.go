package services

import (
	"context"

	"projex/internal/amqp"
	"projex/internal/core"
	applog "projex/internal/log"
	"projex/internal/policy"
)

// ProjectService applies admin mutations to projects and announces them.
type ProjectService struct {
	store     ProjectStore
	publisher EventPublisher
}

// NewProjectService wires the store; publisher may be nil.
func NewProjectService(store ProjectStore, publisher EventPublisher) *ProjectService {
	return &ProjectService{store: store, publisher: publisher}
}

func (s *ProjectService) CreateProject(ctx context.Context, id *core.Identity, in core.ProjectInput) (core.Project, error) {
	if err := policy.Authorize(id, policy.Create, policy.Project("")); err != nil {
		return core.Project{}, err
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return core.Project{}, err
	}

	p, err := s.store.CreateProject(ctx, in, id.ID)
	if err != nil {
		return core.Project{}, err
	}

	applog.FromContext(ctx).WithUser(id.ID, string(id.Role)).WithProject(p.ID).InfoContext(ctx, "Project created",
		applog.FieldOperation, applog.OpCreate)
	publish(ctx, s.publisher, amqp.NewProjectEvent(amqp.ProjectCreated, id.ID, p))
	return p, nil
}

// UpdateProject applies a partial update. Any valid status may be set
// directly.
func (s *ProjectService) UpdateProject(ctx context.Context, id *core.Identity, projectID int64, patch core.ProjectPatch) (core.Project, error) {
	if err := policy.Authorize(id, policy.Update, policy.Project("")); err != nil {
		return core.Project{}, err
	}
	current, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return core.Project{}, err
	}
	in := patch.Apply(current).Normalize()
	if err := in.Validate(); err != nil {
		return core.Project{}, err
	}

	p, err := s.store.UpdateProject(ctx, projectID, in)
	if err != nil {
		return core.Project{}, err
	}

	applog.FromContext(ctx).WithUser(id.ID, string(id.Role)).WithProject(p.ID).InfoContext(ctx, "Project updated",
		"from_status", current.Status, "to_status", p.Status)
	publish(ctx, s.publisher, amqp.NewProjectEvent(amqp.ProjectUpdated, id.ID, p))
	return p, nil
}

// DeleteProject removes the project together with its expenses.
func (s *ProjectService) DeleteProject(ctx context.Context, id *core.Identity, projectID int64) error {
	if err := policy.Authorize(id, policy.Delete, policy.Project("")); err != nil {
		return err
	}
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	removed, err := s.store.DeleteProject(ctx, projectID)
	if err != nil {
		return err
	}

	applog.FromContext(ctx).WithUser(id.ID, string(id.Role)).WithProject(projectID).InfoContext(ctx, "Project deleted",
		"expenses_removed", removed)
	publish(ctx, s.publisher, amqp.NewProjectEvent(amqp.ProjectDeleted, id.ID, p))
	return nil
}
