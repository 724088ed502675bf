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

type recordingSender struct {
	sent     []*entity.Notification
	sendFunc func(ctx context.Context, n *entity.Notification) error
}

func (r *recordingSender) Send(ctx context.Context, n *entity.Notification) error {
	if r.sendFunc != nil {
		return r.sendFunc(ctx, n)
	}
	r.sent = append(r.sent, n)
	return nil
}

func TestNotificationService_QueuesForNewPendingSet(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := NewNotificationService(repo, &recordingSender{}, nopLogger{})

	d := dispatcher.NewDispatcher()
	svc.Register(d)

	evt := event.NewEvent(event.TypeRequestSubmitted, 5, "req-1", map[string]interface{}{
		"pending_approver_ids": []string{"appr-1", "appr-2"},
	})
	require.NoError(t, d.Dispatch(context.Background(), evt))

	pending, err := repo.GetPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	for _, n := range pending {
		assert.Equal(t, entity.NotificationKindApprovalNeeded, n.Kind)
		assert.Equal(t, int64(5), n.RequestID)
	}
}

func TestNotificationService_ReturnedAndVerifierKinds(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := NewNotificationService(repo, &recordingSender{}, nopLogger{})

	d := dispatcher.NewDispatcher()
	svc.Register(d)
	ctx := context.Background()

	require.NoError(t, d.Dispatch(ctx, event.NewEvent(event.TypeRequestReturned, 5, "appr-1", map[string]interface{}{
		"pending_approver_ids": []string{"req-1"},
	})))
	require.NoError(t, d.Dispatch(ctx, event.NewEvent(event.TypeVerifierAssigned, 5, "steward-1", map[string]interface{}{
		"verifier_id": "ver-1",
	})))

	pending, err := repo.GetPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, entity.NotificationKindRequestReturned, pending[0].Kind)
	assert.Equal(t, "req-1", pending[0].RecipientID)
	assert.Equal(t, entity.NotificationKindVerificationNeeded, pending[1].Kind)
	assert.Equal(t, "ver-1", pending[1].RecipientID)
}

func TestNotificationService_EmptyPendingSetQueuesNothing(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := NewNotificationService(repo, &recordingSender{}, nopLogger{})

	d := dispatcher.NewDispatcher()
	svc.Register(d)

	evt := event.NewEvent(event.TypeRequestApproved, 5, "desk-1", map[string]interface{}{
		"status":               "COMPLETED",
		"pending_approver_ids": []string{},
	})
	require.NoError(t, d.Dispatch(context.Background(), evt))

	pending, err := repo.GetPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestProcessQueue(t *testing.T) {
	repo := &mockNotificationRepo{}
	sender := &recordingSender{}
	svc := NewNotificationService(repo, sender, nopLogger{})
	ctx := context.Background()

	for _, recipient := range []string{"appr-1", "appr-2", "appr-3"} {
		require.NoError(t, repo.Create(ctx, &entity.Notification{
			RecipientID: recipient,
			RequestID:   5,
			Kind:        entity.NotificationKindApprovalNeeded,
			Status:      entity.NotificationStatusPending,
		}))
	}

	sent, err := svc.ProcessQueue(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, sent)
	assert.Len(t, sender.sent, 3)

	pending, err := repo.GetPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "delivered rows leave the pending queue")
}

func TestProcessQueue_FailedDeliveryMarksRow(t *testing.T) {
	repo := &mockNotificationRepo{}
	sender := &recordingSender{
		sendFunc: func(ctx context.Context, n *entity.Notification) error {
			if n.RecipientID == "appr-2" {
				return errors.New("mailbox unavailable")
			}
			return nil
		},
	}
	svc := NewNotificationService(repo, sender, nopLogger{})
	ctx := context.Background()

	for _, recipient := range []string{"appr-1", "appr-2"} {
		require.NoError(t, repo.Create(ctx, &entity.Notification{
			RecipientID: recipient,
			RequestID:   5,
			Kind:        entity.NotificationKindApprovalNeeded,
			Status:      entity.NotificationStatusPending,
		}))
	}

	sent, err := svc.ProcessQueue(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	assert.Equal(t, entity.NotificationStatusSent, repo.notifications[0].Status)
	assert.Equal(t, entity.NotificationStatusFailed, repo.notifications[1].Status)
	assert.Equal(t, "mailbox unavailable", repo.notifications[1].ErrorMsg)
}
