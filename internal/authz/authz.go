// Package authz implements the table-driven authorization decision
// procedure. The policy is built once at startup and never mutated, so
// concurrent reads need no synchronization.
package authz

import (
	"fmt"

	"school-service/internal/apperr"
	"school-service/internal/model"
)

type Resource string

const (
	ResourceSchools    Resource = "schools"
	ResourceClassrooms Resource = "classrooms"
	ResourceStudents   Resource = "students"
)

type Action string

const (
	ActionCreate Action = "C"
	ActionRead   Action = "R"
	ActionUpdate Action = "U"
	ActionDelete Action = "D"
)

// Policy maps role → resource → granted actions.
type Policy struct {
	permissions map[string]map[Resource][]Action
}

// NewPolicy returns the static role table: SuperAdmin has full CRUD on
// everything; SchoolAdmin can read/update schools and fully manage
// classrooms and students within their own school.
func NewPolicy() *Policy {
	return &Policy{
		permissions: map[string]map[Resource][]Action{
			model.RoleSuperAdmin: {
				ResourceSchools:    {ActionCreate, ActionRead, ActionUpdate, ActionDelete},
				ResourceClassrooms: {ActionCreate, ActionRead, ActionUpdate, ActionDelete},
				ResourceStudents:   {ActionCreate, ActionRead, ActionUpdate, ActionDelete},
			},
			model.RoleSchoolAdmin: {
				ResourceSchools:    {ActionRead, ActionUpdate},
				ResourceClassrooms: {ActionCreate, ActionRead, ActionUpdate, ActionDelete},
				ResourceStudents:   {ActionCreate, ActionRead, ActionUpdate, ActionDelete},
			},
		},
	}
}

// Decide gates a single request. subjectSchoolID is the tenant claim from
// the caller's credential (nil for SuperAdmin); requestedSchoolID is the
// tenant the request targets, empty when the route carries none.
//
// SchoolAdmin calls must name a tenant and it must match their own;
// SuperAdmin is never tenant-checked. Pure: no lookups, no side effects,
// re-evaluated on every request.
func (p *Policy) Decide(role string, subjectSchoolID *string, resource Resource, action Action, requestedSchoolID string) error {
	perms, ok := p.permissions[role]
	if !ok {
		return apperr.Forbidden("Role not found. Access Forbidden.")
	}

	granted := false
	for _, a := range perms[resource] {
		if a == action {
			granted = true
			break
		}
	}
	if !granted {
		return apperr.Forbidden(fmt.Sprintf("Access Forbidden. Permission '%s' not granted for %s.", action, resource))
	}

	if role == model.RoleSchoolAdmin {
		if requestedSchoolID == "" {
			return apperr.BadRequest("Bad Request: schoolId is required.")
		}
		if subjectSchoolID == nil || requestedSchoolID != *subjectSchoolID {
			return apperr.Forbidden("Access Forbidden. You are not authorized to manage this school.")
		}
	}

	return nil
}
