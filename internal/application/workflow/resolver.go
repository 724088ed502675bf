package workflow

import (
	"context"
	"fmt"
	"sort"

	"github.com/svcflow/servicedesk/internal/application/port"
	"github.com/svcflow/servicedesk/internal/domain/entity"
	domainwf "github.com/svcflow/servicedesk/internal/domain/workflow"
)

// Resolver computes, for a request's kind and status, the set of user ids
// entitled to act next. It is the single capability-resolution point:
// every transition consults it instead of duplicating role checks.
type Resolver struct {
	users       port.UserRepository
	departments port.DepartmentRepository
}

// NewResolver creates a pending-approvers resolver
func NewResolver(users port.UserRepository, departments port.DepartmentRepository) *Resolver {
	return &Resolver{users: users, departments: departments}
}

// PendingApprovers returns the deduplicated, sorted set of user ids that
// may act on the request in its current status. Draft, returned and
// terminal states yield an empty set; awaiting-action states never do,
// since a department with no approvers escalates to super administrators.
func (r *Resolver) PendingApprovers(ctx context.Context, req *entity.Request) ([]string, error) {
	switch domainwf.State(req.Status) {
	case domainwf.StateSubmitted:
		ids, err := r.departmentApprovers(ctx, req.DepartmentID)
		if err != nil {
			return nil, err
		}
		if req.Kind == entity.KindVehicle {
			stewardIDs, err := r.stewardApprovers(ctx)
			if err != nil {
				return nil, err
			}
			ids = append(ids, stewardIDs...)
		}
		return normalize(ids), nil

	case domainwf.StateDepartmentApproved:
		if req.Kind == entity.KindVehicle {
			ids, err := r.stewardApprovers(ctx)
			if err != nil {
				return nil, err
			}
			if len(ids) == 0 {
				if ids, err = r.activeByRole(ctx, entity.RoleSuperAdministrator); err != nil {
					return nil, err
				}
			}
			return normalize(ids), nil
		}
		ids, err := r.activeByRole(ctx, entity.RoleITManager)
		if err != nil {
			return nil, err
		}
		return normalize(ids), nil

	case domainwf.StateITManagerApproved, domainwf.StateServiceDeskProcessing:
		ids, err := r.activeByRole(ctx, entity.RoleServiceDesk)
		if err != nil {
			return nil, err
		}
		return normalize(ids), nil

	default:
		// Draft, returned and terminal states carry no resolver-computed
		// set; RETURNED targets are chosen by the engine at return time.
		return []string{}, nil
	}
}

// IsStewardApprover reports whether the actor holds steward authority over
// vehicle requests: a super administrator, or a department approver whose
// department carries the vehicle-steward flag.
func (r *Resolver) IsStewardApprover(ctx context.Context, actor Actor) (bool, error) {
	if actor.Role == entity.RoleSuperAdministrator {
		return true, nil
	}
	if actor.Role != entity.RoleDepartmentApprover {
		return false, nil
	}
	steward, err := r.departments.IsVehicleSteward(ctx, actor.DepartmentID)
	if err != nil {
		return false, fmt.Errorf("check vehicle steward flag: %w", err)
	}
	return steward, nil
}

// DepartmentApprovers exposes the department approver set (with the
// super-administrator fallback) for return-to-department routing.
func (r *Resolver) DepartmentApprovers(ctx context.Context, departmentID int64) ([]string, error) {
	ids, err := r.departmentApprovers(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	return normalize(ids), nil
}

func (r *Resolver) departmentApprovers(ctx context.Context, departmentID int64) ([]string, error) {
	users, err := r.users.ListActiveByRoleAndDepartment(ctx, entity.RoleDepartmentApprover, departmentID)
	if err != nil {
		return nil, fmt.Errorf("list department approvers: %w", err)
	}
	if len(users) == 0 {
		// No request may await action with an empty pending set
		return r.activeByRole(ctx, entity.RoleSuperAdministrator)
	}
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

func (r *Resolver) stewardApprovers(ctx context.Context) ([]string, error) {
	steward, err := r.departments.GetVehicleSteward(ctx)
	if err != nil {
		return nil, fmt.Errorf("get vehicle steward department: %w", err)
	}
	if steward == nil {
		return nil, nil
	}
	users, err := r.users.ListActiveByRoleAndDepartment(ctx, entity.RoleDepartmentApprover, steward.ID)
	if err != nil {
		return nil, fmt.Errorf("list steward approvers: %w", err)
	}
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

func (r *Resolver) activeByRole(ctx context.Context, role string) ([]string, error) {
	users, err := r.users.ListActiveByRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("list active %s users: %w", role, err)
	}
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

// normalize deduplicates and sorts so the resolver is deterministic for a
// given input.
func normalize(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
