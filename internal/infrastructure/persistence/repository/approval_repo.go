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

// ApprovalRepository implements port.ApprovalRepository
type ApprovalRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewApprovalRepository creates a new approval repository
func NewApprovalRepository(db *sql.DB, logger *zap.Logger) port.ApprovalRepository {
	return &ApprovalRepository{
		db:     db,
		logger: logger,
	}
}

const approvalColumns = `
	id, request_id, stage, approver_id, decision, comments, signature,
	decided_at, created_at
`

// Create inserts a new approval row
func (r *ApprovalRepository) Create(ctx context.Context, approval *entity.Approval) error {
	query := `
		INSERT INTO approvals (
			request_id, stage, approver_id, decision, comments, signature,
			decided_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	if approval.CreatedAt.IsZero() {
		approval.CreatedAt = time.Now()
	}
	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		approval.RequestID,
		approval.Stage,
		approval.ApproverID,
		approval.Decision,
		approval.Comments,
		approval.Signature,
		approval.DecidedAt,
		approval.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create approval", zap.Error(err))
		return fmt.Errorf("failed to create approval: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	approval.ID = id
	return nil
}

// GetByID retrieves an approval by ID
func (r *ApprovalRepository) GetByID(ctx context.Context, id int64) (*entity.Approval, error) {
	query := `SELECT` + approvalColumns + `FROM approvals WHERE id = ?`
	return scanApproval(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
}

// GetByRequestID retrieves a request's approvals, oldest first
func (r *ApprovalRepository) GetByRequestID(ctx context.Context, requestID int64) ([]*entity.Approval, error) {
	query := `SELECT` + approvalColumns + `FROM approvals WHERE request_id = ? ORDER BY id ASC`
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to list approvals", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to list approvals: %w", err)
	}
	defer rows.Close()

	var out []*entity.Approval
	for rows.Next() {
		approval, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, approval)
	}
	return out, rows.Err()
}

// GetPendingByStage returns the pending approval for a request stage, if any
func (r *ApprovalRepository) GetPendingByStage(ctx context.Context, requestID int64, stage string) (*entity.Approval, error) {
	query := `SELECT` + approvalColumns + `FROM approvals WHERE request_id = ? AND stage = ? AND decision = ? LIMIT 1`
	return scanApproval(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, requestID, stage, entity.DecisionPending))
}

// Decide moves a pending approval to its final decision
func (r *ApprovalRepository) Decide(ctx context.Context, id int64, approverID, decision, comments string) error {
	query := `
		UPDATE approvals
		SET approver_id = ?, decision = ?, comments = ?, decided_at = ?
		WHERE id = ? AND decision = ?
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		approverID, decision, comments, time.Now(), id, entity.DecisionPending)
	if err != nil {
		r.logger.Error("Failed to decide approval", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to decide approval: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("approval %d is not pending", id)
	}
	return nil
}

// DeleteByRequestID removes all approvals of a request
func (r *ApprovalRepository) DeleteByRequestID(ctx context.Context, requestID int64) error {
	if _, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, `DELETE FROM approvals WHERE request_id = ?`, requestID); err != nil {
		r.logger.Error("Failed to delete approvals", zap.Int64("request_id", requestID), zap.Error(err))
		return fmt.Errorf("failed to delete approvals: %w", err)
	}
	return nil
}

func scanApproval(row rowScanner) (*entity.Approval, error) {
	var approval entity.Approval
	var comments, signature sql.NullString
	var decidedAt sql.NullTime

	err := row.Scan(
		&approval.ID,
		&approval.RequestID,
		&approval.Stage,
		&approval.ApproverID,
		&approval.Decision,
		&comments,
		&signature,
		&decidedAt,
		&approval.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan approval: %w", err)
	}

	approval.Comments = comments.String
	approval.Signature = signature.String
	if decidedAt.Valid {
		approval.DecidedAt = &decidedAt.Time
	}
	return &approval, nil
}

// Verify interface compliance
var _ port.ApprovalRepository = (*ApprovalRepository)(nil)
