package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"projex/internal/core"
)

type EventType string

const (
	ExpenseCreated EventType = "expense.created"
	ExpenseUpdated EventType = "expense.updated"
	ExpenseDeleted EventType = "expense.deleted"
	ProjectCreated EventType = "project.created"
	ProjectUpdated EventType = "project.updated"
	ProjectDeleted EventType = "project.deleted"
)

// Event is a domain change published after it has been committed. Deleted
// events carry the last known state of the record.
type Event struct {
	ID         string        `json:"id"`
	Type       EventType     `json:"type"`
	ActorID    int64         `json:"actorId"`
	ProjectID  int64         `json:"projectId"`
	Expense    *core.Expense `json:"expense,omitempty"`
	Project    *core.Project `json:"project,omitempty"`
	OccurredAt time.Time     `json:"occurredAt"`
}

func newEvent(t EventType, actorID, projectID int64) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Type:       t,
		ActorID:    actorID,
		ProjectID:  projectID,
		OccurredAt: time.Now().UTC(),
	}
}

// NewExpenseEvent wraps an expense change.
func NewExpenseEvent(t EventType, actorID int64, e core.Expense) *Event {
	ev := newEvent(t, actorID, e.ProjectID)
	ev.Expense = &e
	return ev
}

// NewProjectEvent wraps a project change.
func NewProjectEvent(t EventType, actorID int64, p core.Project) *Event {
	ev := newEvent(t, actorID, p.ID)
	ev.Project = &p
	return ev
}

// ToJSON converts the event to JSON bytes
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes and checks an event body.
func EventFromJSON(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	switch ev.Type {
	case ExpenseCreated, ExpenseUpdated, ExpenseDeleted:
		if ev.Expense == nil {
			return nil, fmt.Errorf("event %s %s has no expense", ev.ID, ev.Type)
		}
	case ProjectCreated, ProjectUpdated, ProjectDeleted:
		if ev.Project == nil {
			return nil, fmt.Errorf("event %s %s has no project", ev.ID, ev.Type)
		}
	default:
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}
	return &ev, nil
}
