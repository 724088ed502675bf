package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svcflow/servicedesk/internal/application/dispatcher"
	"github.com/svcflow/servicedesk/internal/domain/entity"
	"github.com/svcflow/servicedesk/internal/domain/event"
)

func TestAuditService_RecordsEvents(t *testing.T) {
	repo := &mockAuditLogRepo{}
	svc := NewAuditService(repo, nopLogger{})

	d := dispatcher.NewDispatcher()
	svc.Register(d)

	evt := event.NewEvent(event.TypeRequestApproved, 7, "appr-1", map[string]interface{}{
		"status":   "DEPARTMENT_APPROVED",
		"comments": "ok",
	})
	require.NoError(t, d.Dispatch(context.Background(), evt))

	trail, err := svc.Trail(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, trail, 1)

	entry := trail[0]
	assert.Equal(t, "appr-1", entry.ActorID)
	assert.Equal(t, event.TypeRequestApproved.String(), entry.Action)
	assert.Equal(t, "request", entry.EntityType)
	assert.Equal(t, int64(7), entry.EntityID)
	assert.Contains(t, entry.Details, "DEPARTMENT_APPROVED")
	assert.Equal(t, evt.Timestamp, entry.Timestamp)
}

func TestAuditService_OneRowPerEvent(t *testing.T) {
	repo := &mockAuditLogRepo{}
	svc := NewAuditService(repo, nopLogger{})

	d := dispatcher.NewDispatcher()
	svc.Register(d)
	ctx := context.Background()

	require.NoError(t, d.Dispatch(ctx, event.NewEvent(event.TypeRequestSubmitted, 1, "req-1", nil)))
	require.NoError(t, d.Dispatch(ctx, event.NewEvent(event.TypeRequestDeclined, 1, "appr-1", nil)))
	require.NoError(t, d.Dispatch(ctx, event.NewEvent(event.TypeRequestSubmitted, 2, "req-2", nil)))

	trail, err := svc.Trail(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, trail, 2)

	other, err := svc.Trail(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestAuditService_SubscribesEveryEventType(t *testing.T) {
	repo := &mockAuditLogRepo{}
	svc := NewAuditService(repo, nopLogger{})

	d := dispatcher.NewDispatcher()
	svc.Register(d)
	ctx := context.Background()

	types := []event.Type{
		event.TypeRequestSubmitted,
		event.TypeRequestApproved,
		event.TypeRequestDeclined,
		event.TypeRequestReturned,
		event.TypeRequestCompleted,
		event.TypeRequestDeleted,
		event.TypeVerifierAssigned,
		event.TypeRequestVerified,
		event.TypeRequestStatusChanged,
	}
	for _, typ := range types {
		require.NoError(t, d.Dispatch(ctx, event.NewEvent(typ, 3, "req-1", nil)))
	}

	trail, err := svc.Trail(ctx, 3)
	require.NoError(t, err)
	require.Len(t, trail, len(types))
	for i, typ := range types {
		assert.Equal(t, typ.String(), trail[i].Action)
	}
}

func TestAuditService_PropagatesWriteFailure(t *testing.T) {
	repo := &mockAuditLogRepo{
		createFunc: func(ctx context.Context, entry *entity.AuditLogEntry) error {
			return errors.New("disk full")
		},
	}
	svc := NewAuditService(repo, nopLogger{})

	d := dispatcher.NewDispatcher()
	svc.Register(d)

	err := d.Dispatch(context.Background(), event.NewEvent(event.TypeRequestSubmitted, 1, "req-1", nil))
	assert.Error(t, err, "a failed audit write must surface through synchronous dispatch")
}
