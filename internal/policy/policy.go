// Package policy decides which role may perform which action on which
// resource. It is pure: callers pass everything it needs to know.
package policy

import (
	"projex/internal/core"
)

type Action string

const (
	Read   Action = "read"
	Create Action = "create"
	Update Action = "update"
	Delete Action = "delete"
)

type Kind string

const (
	KindLanding   Kind = "landing"
	KindProject   Kind = "project"
	KindExpense   Kind = "expense"
	KindProfile   Kind = "profile"
	KindDashboard Kind = "dashboard"
)

// Resource describes the target of an action. Statuses are only
// consulted for reads of concrete records; leave them empty for
// collection-level checks.
type Resource struct {
	Kind          Kind
	ProjectStatus core.ProjectStatus
	ExpenseStatus core.ExpenseStatus
	// OwnerID is the user owning a profile resource.
	OwnerID int64
}

func Landing() Resource { return Resource{Kind: KindLanding} }

func Project(status core.ProjectStatus) Resource {
	return Resource{Kind: KindProject, ProjectStatus: status}
}

// Expense describes an expense together with the status of its project.
func Expense(status core.ExpenseStatus, projectStatus core.ProjectStatus) Resource {
	return Resource{Kind: KindExpense, ExpenseStatus: status, ProjectStatus: projectStatus}
}

func Profile(ownerID int64) Resource {
	return Resource{Kind: KindProfile, OwnerID: ownerID}
}

func Dashboard() Resource { return Resource{Kind: KindDashboard} }

// CanAccess reports whether role may perform action on res. An empty role
// is an unauthenticated caller.
func CanAccess(role core.Role, action Action, res Resource) bool {
	if res.Kind == KindLanding {
		return action == Read
	}
	switch role {
	case core.RoleAdmin:
		return true
	case core.RoleViewer:
		return viewerCan(action, res)
	}
	return false
}

func viewerCan(action Action, res Resource) bool {
	switch res.Kind {
	case KindProfile:
		return action == Read || action == Update
	case KindDashboard:
		return action == Read
	case KindProject:
		return action == Read && visibleProject(res.ProjectStatus)
	case KindExpense:
		return action == Read &&
			visibleProject(res.ProjectStatus) &&
			(res.ExpenseStatus == "" || res.ExpenseStatus == core.ExpenseApproved)
	}
	return false
}

// An empty status means a collection read; the caller filters the rows.
func visibleProject(status core.ProjectStatus) bool {
	return status == "" || status == core.ProjectActive
}

// Authorize turns a denied decision into the matching domain error:
// NotAuthorized when no caller is known or a read is filtered, Forbidden
// for any write by a non-admin.
func Authorize(id *core.Identity, action Action, res Resource) error {
	var role core.Role
	if id != nil {
		role = id.Role
	}
	if CanAccess(role, action, res) {
		if res.Kind == KindProfile && action != Read && id != nil && id.ID != res.OwnerID && !id.IsAdmin() {
			return core.Forbiddenf("Not allowed to modify another user's profile")
		}
		return nil
	}
	if id == nil {
		return core.NotAuthorizedf("Not authorized, no token")
	}
	if action == Read {
		return core.NotAuthorizedf("Not authorized to access this %s", res.Kind)
	}
	return core.Forbiddenf("User role %s is not authorized to access this route", role)
}

// ProjectFilter returns the statuses a role may list; nil means all.
func ProjectFilter(role core.Role) []core.ProjectStatus {
	if role == core.RoleAdmin {
		return nil
	}
	return []core.ProjectStatus{core.ProjectActive}
}

// ExpenseFilter returns the statuses a role may list; nil means all.
func ExpenseFilter(role core.Role) []core.ExpenseStatus {
	if role == core.RoleAdmin {
		return nil
	}
	return []core.ExpenseStatus{core.ExpenseApproved}
}
