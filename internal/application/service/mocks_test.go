package service

import (
	"context"
	"sort"
	"sync"

	"github.com/svcflow/servicedesk/internal/domain/entity"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

type mockRequestRepo struct {
	mu       sync.Mutex
	nextID   int64
	requests map[int64]*entity.Request

	createFunc func(ctx context.Context, req *entity.Request) error
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{nextID: 1, requests: make(map[int64]*entity.Request)}
}

func (m *mockRequestRepo) Create(ctx context.Context, req *entity.Request) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, req)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	req.ID = m.nextID
	m.nextID++
	clone := *req
	m.requests[req.ID] = &clone
	return nil
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id int64) (*entity.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, nil
	}
	clone := *r
	return &clone, nil
}

func (m *mockRequestRepo) GetByReferenceCode(ctx context.Context, code string) (*entity.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		if r.ReferenceCode == code {
			clone := *r
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *mockRequestRepo) SaveStatus(ctx context.Context, req *entity.Request, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *req
	m.requests[req.ID] = &clone
	return nil
}

func (m *mockRequestRepo) UpdateDraft(ctx context.Context, req *entity.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *req
	m.requests[req.ID] = &clone
	return nil
}

func (m *mockRequestRepo) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.requests, id)
	return nil
}

func (m *mockRequestRepo) list(filter func(*entity.Request) bool, limit, offset int) []*entity.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Request
	for _, r := range m.requests {
		if filter(r) {
			clone := *r
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *mockRequestRepo) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*entity.Request, error) {
	return m.list(func(r *entity.Request) bool { return status == "" || r.Status == status }, limit, offset), nil
}

func (m *mockRequestRepo) ListByRequestor(ctx context.Context, requestorID string, limit, offset int) ([]*entity.Request, error) {
	return m.list(func(r *entity.Request) bool { return r.RequestorID == requestorID }, limit, offset), nil
}

func (m *mockRequestRepo) ListPendingFor(ctx context.Context, userID string, limit, offset int) ([]*entity.Request, error) {
	return m.list(func(r *entity.Request) bool { return r.IsPendingFor(userID) }, limit, offset), nil
}

type mockApprovalRepo struct {
	approvals []*entity.Approval
}

func (m *mockApprovalRepo) Create(ctx context.Context, approval *entity.Approval) error {
	approval.ID = int64(len(m.approvals) + 1)
	m.approvals = append(m.approvals, approval)
	return nil
}

func (m *mockApprovalRepo) GetByID(ctx context.Context, id int64) (*entity.Approval, error) {
	for _, a := range m.approvals {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (m *mockApprovalRepo) GetByRequestID(ctx context.Context, requestID int64) ([]*entity.Approval, error) {
	var out []*entity.Approval
	for _, a := range m.approvals {
		if a.RequestID == requestID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockApprovalRepo) GetPendingByStage(ctx context.Context, requestID int64, stage string) (*entity.Approval, error) {
	for _, a := range m.approvals {
		if a.RequestID == requestID && a.Stage == stage && a.Decision == entity.DecisionPending {
			return a, nil
		}
	}
	return nil, nil
}

func (m *mockApprovalRepo) Decide(ctx context.Context, id int64, approverID, decision, comments string) error {
	for _, a := range m.approvals {
		if a.ID == id {
			a.ApproverID = approverID
			a.Decision = decision
			a.Comments = comments
		}
	}
	return nil
}

func (m *mockApprovalRepo) DeleteByRequestID(ctx context.Context, requestID int64) error {
	var kept []*entity.Approval
	for _, a := range m.approvals {
		if a.RequestID != requestID {
			kept = append(kept, a)
		}
	}
	m.approvals = kept
	return nil
}

type mockUserRepo struct {
	users map[string]*entity.User
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (m *mockUserRepo) ListActiveByRoleAndDepartment(ctx context.Context, role string, departmentID int64) ([]*entity.User, error) {
	return nil, nil
}

func (m *mockUserRepo) ListActiveByRole(ctx context.Context, role string) ([]*entity.User, error) {
	return nil, nil
}

type mockAuditLogRepo struct {
	mu      sync.Mutex
	entries []*entity.AuditLogEntry

	createFunc func(ctx context.Context, entry *entity.AuditLogEntry) error
}

func (m *mockAuditLogRepo) Create(ctx context.Context, entry *entity.AuditLogEntry) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditLogRepo) GetByEntity(ctx context.Context, entityType string, entityID int64) ([]*entity.AuditLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.AuditLogEntry
	for _, e := range m.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

type mockNotificationRepo struct {
	mu            sync.Mutex
	notifications []*entity.Notification

	createFunc func(ctx context.Context, n *entity.Notification) error
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, n)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = int64(len(m.notifications) + 1)
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *mockNotificationRepo) GetPending(ctx context.Context, limit int) ([]*entity.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Notification
	for _, n := range m.notifications {
		if n.Status == entity.NotificationStatusPending {
			out = append(out, n)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockNotificationRepo) MarkSent(ctx context.Context, id int64) error {
	return m.setStatus(id, entity.NotificationStatusSent, "")
}

func (m *mockNotificationRepo) MarkFailed(ctx context.Context, id int64, errorMsg string) error {
	return m.setStatus(id, entity.NotificationStatusFailed, errorMsg)
}

func (m *mockNotificationRepo) setStatus(id int64, status, errorMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.ID == id {
			n.Status = status
			n.ErrorMsg = errorMsg
		}
	}
	return nil
}
