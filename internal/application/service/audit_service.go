package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/svcflow/servicedesk/internal/application/dispatcher"
	"github.com/svcflow/servicedesk/internal/application/port"
	"github.com/svcflow/servicedesk/internal/domain/entity"
	"github.com/svcflow/servicedesk/internal/domain/event"
)

const auditEntityRequest = "request"

// AuditService records every workflow event as an immutable audit row and
// serves the trail back per request.
type AuditService interface {
	// Register subscribes the audit sink to all workflow event types
	Register(d dispatcher.Dispatcher)

	// Trail returns the audit entries of a request, oldest first
	Trail(ctx context.Context, requestID int64) ([]*entity.AuditLogEntry, error)
}

type auditServiceImpl struct {
	auditLogs port.AuditLogRepository
	logger    Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(auditLogs port.AuditLogRepository, logger Logger) AuditService {
	return &auditServiceImpl{auditLogs: auditLogs, logger: logger}
}

// Register subscribes the audit sink to all workflow event types
func (s *auditServiceImpl) Register(d dispatcher.Dispatcher) {
	for _, t := range []event.Type{
		event.TypeRequestSubmitted,
		event.TypeRequestApproved,
		event.TypeRequestDeclined,
		event.TypeRequestReturned,
		event.TypeRequestCompleted,
		event.TypeRequestDeleted,
		event.TypeVerifierAssigned,
		event.TypeRequestVerified,
		event.TypeRequestStatusChanged,
	} {
		d.SubscribeNamed(t, "audit", s.record)
	}
}

// record persists one event as an audit row. Payload marshalling failures
// degrade to an empty details column rather than losing the row.
func (s *auditServiceImpl) record(ctx context.Context, evt *event.Event) error {
	var details string
	if len(evt.Payload) > 0 {
		raw, err := json.Marshal(evt.Payload)
		if err != nil {
			s.logger.Error("Failed to marshal audit payload", "error", err, "event_id", evt.ID)
		} else {
			details = string(raw)
		}
	}

	entry := &entity.AuditLogEntry{
		ActorID:    evt.ActorID,
		Action:     evt.Type.String(),
		EntityType: auditEntityRequest,
		EntityID:   evt.RequestID,
		Details:    details,
		Timestamp:  evt.Timestamp,
	}
	if err := s.auditLogs.Create(ctx, entry); err != nil {
		s.logger.Error("Failed to write audit entry", "error", err, "event_id", evt.ID, "request_id", evt.RequestID)
		return fmt.Errorf("write audit entry: %w", err)
	}
	return nil
}

// Trail returns the audit entries of a request, oldest first
func (s *auditServiceImpl) Trail(ctx context.Context, requestID int64) ([]*entity.AuditLogEntry, error) {
	entries, err := s.auditLogs.GetByEntity(ctx, auditEntityRequest, requestID)
	if err != nil {
		return nil, fmt.Errorf("get audit trail: %w", err)
	}
	return entries, nil
}
