package workflow

import (
	"context"
	"sort"
	"sync"

	"github.com/svcflow/servicedesk/internal/application/port"
	"github.com/svcflow/servicedesk/internal/domain/entity"
)

// In-memory fakes for the entity store ports. GetByID hands out copies the
// way a real store would, so two loads never share a pointer.

type mockRequestRepo struct {
	mu       sync.Mutex
	nextID   int64
	requests map[int64]*entity.Request

	// afterGet, when set, runs once after a successful GetByID. Used to
	// interleave a competing transition between read and write.
	afterGet func()
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{nextID: 1, requests: make(map[int64]*entity.Request)}
}

func cloneRequest(r *entity.Request) *entity.Request {
	clone := *r
	clone.PendingApproverIDs = append([]string(nil), r.PendingApproverIDs...)
	if r.Item != nil {
		item := *r.Item
		item.Lines = append([]entity.ItemLine(nil), r.Item.Lines...)
		clone.Item = &item
	}
	if r.Vehicle != nil {
		vehicle := *r.Vehicle
		vehicle.Passengers = append([]string(nil), r.Vehicle.Passengers...)
		clone.Vehicle = &vehicle
	}
	return &clone
}

func (m *mockRequestRepo) Create(ctx context.Context, req *entity.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req.ID = m.nextID
	m.nextID++
	m.requests[req.ID] = cloneRequest(req)
	return nil
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id int64) (*entity.Request, error) {
	m.mu.Lock()
	stored, ok := m.requests[id]
	var copy *entity.Request
	if ok {
		copy = cloneRequest(stored)
	}
	hook := m.afterGet
	m.afterGet = nil
	m.mu.Unlock()

	if copy != nil && hook != nil {
		hook()
	}
	if copy == nil {
		return nil, nil
	}
	return copy, nil
}

func (m *mockRequestRepo) GetByReferenceCode(ctx context.Context, code string) (*entity.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		if r.ReferenceCode == code {
			return cloneRequest(r), nil
		}
	}
	return nil, nil
}

func (m *mockRequestRepo) SaveStatus(ctx context.Context, req *entity.Request, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.requests[req.ID]
	if !ok || stored.Version != expectedVersion {
		return port.ErrVersionConflict
	}
	req.Version = expectedVersion + 1
	m.requests[req.ID] = cloneRequest(req)
	return nil
}

func (m *mockRequestRepo) UpdateDraft(ctx context.Context, req *entity.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[req.ID] = cloneRequest(req)
	return nil
}

func (m *mockRequestRepo) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.requests, id)
	return nil
}

func (m *mockRequestRepo) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*entity.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Request
	for _, r := range m.requests {
		if r.Status == status {
			out = append(out, cloneRequest(r))
		}
	}
	return out, nil
}

func (m *mockRequestRepo) ListByRequestor(ctx context.Context, requestorID string, limit, offset int) ([]*entity.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Request
	for _, r := range m.requests {
		if r.RequestorID == requestorID {
			out = append(out, cloneRequest(r))
		}
	}
	return out, nil
}

func (m *mockRequestRepo) ListPendingFor(ctx context.Context, userID string, limit, offset int) ([]*entity.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Request
	for _, r := range m.requests {
		for _, id := range r.PendingApproverIDs {
			if id == userID {
				out = append(out, cloneRequest(r))
				break
			}
		}
	}
	return out, nil
}

type mockApprovalRepo struct {
	mu        sync.Mutex
	nextID    int64
	approvals []*entity.Approval
}

func newMockApprovalRepo() *mockApprovalRepo {
	return &mockApprovalRepo{nextID: 1}
}

func (m *mockApprovalRepo) Create(ctx context.Context, approval *entity.Approval) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	approval.ID = m.nextID
	m.nextID++
	clone := *approval
	m.approvals = append(m.approvals, &clone)
	return nil
}

func (m *mockApprovalRepo) GetByID(ctx context.Context, id int64) (*entity.Approval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.approvals {
		if a.ID == id {
			clone := *a
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *mockApprovalRepo) GetByRequestID(ctx context.Context, requestID int64) ([]*entity.Approval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Approval
	for _, a := range m.approvals {
		if a.RequestID == requestID {
			clone := *a
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *mockApprovalRepo) GetPendingByStage(ctx context.Context, requestID int64, stage string) (*entity.Approval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.approvals {
		if a.RequestID == requestID && a.Stage == stage && a.Decision == entity.DecisionPending {
			clone := *a
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *mockApprovalRepo) Decide(ctx context.Context, id int64, approverID, decision, comments string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.approvals {
		if a.ID == id {
			a.ApproverID = approverID
			a.Decision = decision
			a.Comments = comments
			return nil
		}
	}
	return nil
}

func (m *mockApprovalRepo) DeleteByRequestID(ctx context.Context, requestID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.approvals[:0]
	for _, a := range m.approvals {
		if a.RequestID != requestID {
			kept = append(kept, a)
		}
	}
	m.approvals = kept
	return nil
}

// decided returns the non-pending approvals for a request, by stage order
func (m *mockApprovalRepo) decided(requestID int64) []*entity.Approval {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Approval
	for _, a := range m.approvals {
		if a.RequestID == requestID && a.Decision != entity.DecisionPending {
			clone := *a
			out = append(out, &clone)
		}
	}
	return out
}

type mockUserRepo struct {
	users map[string]*entity.User
}

func newMockUserRepo(users ...*entity.User) *mockUserRepo {
	m := &mockUserRepo{users: make(map[string]*entity.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	clone := *u
	return &clone, nil
}

func (m *mockUserRepo) ListActiveByRoleAndDepartment(ctx context.Context, role string, departmentID int64) ([]*entity.User, error) {
	var out []*entity.User
	for _, u := range m.users {
		if u.Active && u.Role == role && u.DepartmentID == departmentID {
			clone := *u
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockUserRepo) ListActiveByRole(ctx context.Context, role string) ([]*entity.User, error) {
	var out []*entity.User
	for _, u := range m.users {
		if u.Active && u.Role == role {
			clone := *u
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type mockDepartmentRepo struct {
	departments map[int64]*entity.Department
}

func newMockDepartmentRepo(departments ...*entity.Department) *mockDepartmentRepo {
	m := &mockDepartmentRepo{departments: make(map[int64]*entity.Department)}
	for _, d := range departments {
		m.departments[d.ID] = d
	}
	return m
}

func (m *mockDepartmentRepo) GetByID(ctx context.Context, id int64) (*entity.Department, error) {
	d, ok := m.departments[id]
	if !ok {
		return nil, nil
	}
	clone := *d
	return &clone, nil
}

func (m *mockDepartmentRepo) IsVehicleSteward(ctx context.Context, id int64) (bool, error) {
	d, ok := m.departments[id]
	return ok && d.IsVehicleSteward, nil
}

func (m *mockDepartmentRepo) GetVehicleSteward(ctx context.Context) (*entity.Department, error) {
	for _, d := range m.departments {
		if d.IsVehicleSteward && d.Active {
			clone := *d
			return &clone, nil
		}
	}
	return nil, nil
}

type mockVehicleRepo struct {
	vehicles map[int64]*entity.Vehicle
}

func (m *mockVehicleRepo) GetByID(ctx context.Context, id int64) (*entity.Vehicle, error) {
	if m.vehicles == nil {
		return nil, nil
	}
	v, ok := m.vehicles[id]
	if !ok {
		return nil, nil
	}
	clone := *v
	return &clone, nil
}

func (m *mockVehicleRepo) ListActive(ctx context.Context) ([]*entity.Vehicle, error) {
	var out []*entity.Vehicle
	for _, v := range m.vehicles {
		if v.Active {
			clone := *v
			out = append(out, &clone)
		}
	}
	return out, nil
}

type mockDriverRepo struct {
	drivers map[int64]*entity.Driver
}

func (m *mockDriverRepo) GetByID(ctx context.Context, id int64) (*entity.Driver, error) {
	if m.drivers == nil {
		return nil, nil
	}
	d, ok := m.drivers[id]
	if !ok {
		return nil, nil
	}
	clone := *d
	return &clone, nil
}

func (m *mockDriverRepo) ListActive(ctx context.Context) ([]*entity.Driver, error) {
	var out []*entity.Driver
	for _, d := range m.drivers {
		if d.Active {
			clone := *d
			out = append(out, &clone)
		}
	}
	return out, nil
}

// mockTxManager runs the function directly; the fakes are already atomic
type mockTxManager struct{}

func (mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
