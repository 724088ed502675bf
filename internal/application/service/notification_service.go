package service

import (
	"context"
	"fmt"
	"time"

	"github.com/svcflow/servicedesk/internal/application/dispatcher"
	"github.com/svcflow/servicedesk/internal/application/port"
	"github.com/svcflow/servicedesk/internal/domain/entity"
	"github.com/svcflow/servicedesk/internal/domain/event"
)

// Sender delivers one queued notification. The queue is the source of
// truth; a sender failure leaves the row pending-or-failed for retry.
type Sender interface {
	Send(ctx context.Context, notification *entity.Notification) error
}

// SenderFunc adapts a function to the Sender interface
type SenderFunc func(ctx context.Context, notification *entity.Notification) error

func (f SenderFunc) Send(ctx context.Context, notification *entity.Notification) error {
	return f(ctx, notification)
}

// NotificationService turns workflow events into queued notifications for
// the users whose attention they require, and drains the queue through a
// pluggable sender.
type NotificationService interface {
	// Register subscribes the notification sink to the event types that
	// change whose attention a request needs
	Register(d dispatcher.Dispatcher)

	// ProcessQueue delivers up to limit pending notifications, marking
	// each sent or failed. Returns the number delivered.
	ProcessQueue(ctx context.Context, limit int) (int, error)
}

type notificationServiceImpl struct {
	notifications port.NotificationRepository
	sender        Sender
	logger        Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	notifications port.NotificationRepository,
	sender Sender,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		notifications: notifications,
		sender:        sender,
		logger:        logger,
	}
}

// Register subscribes the notification sink to the relevant event types
func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeRequestSubmitted, "notify", s.onPendingChanged)
	d.SubscribeNamed(event.TypeRequestApproved, "notify", s.onPendingChanged)
	d.SubscribeNamed(event.TypeRequestReturned, "notify", s.onReturned)
	d.SubscribeNamed(event.TypeVerifierAssigned, "notify", s.onVerifierAssigned)
}

// onPendingChanged queues an approval-needed notification for every user
// in the new pending set
func (s *notificationServiceImpl) onPendingChanged(ctx context.Context, evt *event.Event) error {
	return s.enqueueAll(ctx, evt, evt.GetPayloadStrings("pending_approver_ids"), entity.NotificationKindApprovalNeeded)
}

// onReturned tells whoever the request bounced back to
func (s *notificationServiceImpl) onReturned(ctx context.Context, evt *event.Event) error {
	return s.enqueueAll(ctx, evt, evt.GetPayloadStrings("pending_approver_ids"), entity.NotificationKindRequestReturned)
}

// onVerifierAssigned tells the assigned verifier
func (s *notificationServiceImpl) onVerifierAssigned(ctx context.Context, evt *event.Event) error {
	verifierID := evt.GetPayloadString("verifier_id")
	if verifierID == "" {
		return nil
	}
	return s.enqueueAll(ctx, evt, []string{verifierID}, entity.NotificationKindVerificationNeeded)
}

func (s *notificationServiceImpl) enqueueAll(ctx context.Context, evt *event.Event, recipients []string, kind string) error {
	for _, recipientID := range recipients {
		n := &entity.Notification{
			RecipientID: recipientID,
			RequestID:   evt.RequestID,
			Kind:        kind,
			Status:      entity.NotificationStatusPending,
			CreatedAt:   time.Now(),
		}
		if err := s.notifications.Create(ctx, n); err != nil {
			s.logger.Error("Failed to queue notification",
				"error", err, "recipient_id", recipientID, "request_id", evt.RequestID, "kind", kind)
			return fmt.Errorf("queue notification: %w", err)
		}
	}
	if len(recipients) > 0 {
		s.logger.Info("Notifications queued",
			"request_id", evt.RequestID, "kind", kind, "recipients", len(recipients))
	}
	return nil
}

// ProcessQueue delivers up to limit pending notifications
func (s *notificationServiceImpl) ProcessQueue(ctx context.Context, limit int) (int, error) {
	pending, err := s.notifications.GetPending(ctx, normalizeLimit(limit))
	if err != nil {
		return 0, fmt.Errorf("get pending notifications: %w", err)
	}

	sent := 0
	for _, n := range pending {
		if err := s.sender.Send(ctx, n); err != nil {
			s.logger.Error("Failed to send notification", "error", err, "id", n.ID, "recipient_id", n.RecipientID)
			if markErr := s.notifications.MarkFailed(ctx, n.ID, err.Error()); markErr != nil {
				return sent, fmt.Errorf("mark notification failed: %w", markErr)
			}
			continue
		}
		if err := s.notifications.MarkSent(ctx, n.ID); err != nil {
			return sent, fmt.Errorf("mark notification sent: %w", err)
		}
		sent++
	}

	if len(pending) > 0 {
		s.logger.Info("Notification queue drained", "processed", len(pending), "sent", sent)
	}
	return sent, nil
}

// LogSender is the default sender: it records the delivery in the log and
// succeeds. Real channels (mail, chat) plug in behind the Sender interface.
type LogSender struct {
	Logger Logger
}

func (l *LogSender) Send(ctx context.Context, n *entity.Notification) error {
	l.Logger.Info("Notification delivered",
		"recipient_id", n.RecipientID, "request_id", n.RequestID, "kind", n.Kind)
	return nil
}
