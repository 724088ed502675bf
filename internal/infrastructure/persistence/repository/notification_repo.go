package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/svcflow/servicedesk/internal/application/port"
	"github.com/svcflow/servicedesk/internal/domain/entity"
	"github.com/svcflow/servicedesk/internal/infrastructure/persistence/sqlite"
)

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create queues a notification
func (r *NotificationRepository) Create(ctx context.Context, notification *entity.Notification) error {
	query := `
		INSERT INTO notifications (recipient_id, request_id, kind, status, error_msg, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}
	if notification.Status == "" {
		notification.Status = entity.NotificationStatusPending
	}
	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		notification.RecipientID,
		notification.RequestID,
		notification.Kind,
		notification.Status,
		notification.ErrorMsg,
		notification.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create notification", zap.Error(err))
		return fmt.Errorf("failed to create notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	notification.ID = id
	return nil
}

// GetPending retrieves queued notifications, oldest first
func (r *NotificationRepository) GetPending(ctx context.Context, limit int) ([]*entity.Notification, error) {
	query := `
		SELECT id, recipient_id, request_id, kind, status, error_msg, created_at
		FROM notifications
		WHERE status = ?
		ORDER BY id ASC
		LIMIT ?
	`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, entity.NotificationStatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to list pending notifications", zap.Error(err))
		return nil, fmt.Errorf("failed to list pending notifications: %w", err)
	}
	defer rows.Close()

	var out []*entity.Notification
	for rows.Next() {
		var n entity.Notification
		var errorMsg sql.NullString
		if err := rows.Scan(
			&n.ID,
			&n.RecipientID,
			&n.RequestID,
			&n.Kind,
			&n.Status,
			&errorMsg,
			&n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.ErrorMsg = errorMsg.String
		out = append(out, &n)
	}
	return out, rows.Err()
}

// MarkSent marks a notification delivered
func (r *NotificationRepository) MarkSent(ctx context.Context, id int64) error {
	return r.setStatus(ctx, id, entity.NotificationStatusSent, "")
}

// MarkFailed marks a notification undeliverable with the failure reason
func (r *NotificationRepository) MarkFailed(ctx context.Context, id int64, errorMsg string) error {
	return r.setStatus(ctx, id, entity.NotificationStatusFailed, errorMsg)
}

func (r *NotificationRepository) setStatus(ctx context.Context, id int64, status, errorMsg string) error {
	query := `UPDATE notifications SET status = ?, error_msg = ? WHERE id = ?`
	if _, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query, status, errorMsg, id); err != nil {
		r.logger.Error("Failed to update notification status", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update notification status: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.NotificationRepository = (*NotificationRepository)(nil)
