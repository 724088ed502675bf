package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/svcflow/servicedesk/internal/application/port"
	"github.com/svcflow/servicedesk/internal/domain/entity"
	"github.com/svcflow/servicedesk/internal/infrastructure/persistence/sqlite"
)

// RequestRepository implements port.RequestRepository
type RequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *sql.DB, logger *zap.Logger) port.RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

const requestColumns = `
	id, reference_code, kind, status, requestor_id, department_id,
	pending_approvers, item_details, vehicle_details, version,
	created_at, submitted_at, updated_at
`

// Create inserts a new request
func (r *RequestRepository) Create(ctx context.Context, req *entity.Request) error {
	pending, item, vehicle, err := marshalPayload(req)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO requests (
			reference_code, kind, status, requestor_id, department_id,
			pending_approvers, item_details, vehicle_details, version,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
	`

	now := time.Now()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		req.ReferenceCode,
		req.Kind.String(),
		req.Status,
		req.RequestorID,
		req.DepartmentID,
		pending,
		item,
		vehicle,
		req.CreatedAt,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to create request", zap.Error(err))
		return fmt.Errorf("failed to create request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	req.ID = id
	req.Version = 0
	req.UpdatedAt = now
	return nil
}

// GetByID retrieves a request by ID
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*entity.Request, error) {
	query := `SELECT` + requestColumns + `FROM requests WHERE id = ?`
	row := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id)
	req, err := scanRequest(row)
	if err != nil {
		r.logger.Error("Failed to get request by ID", zap.Int64("id", id), zap.Error(err))
	}
	return req, err
}

// GetByReferenceCode retrieves a request by its human-facing code
func (r *RequestRepository) GetByReferenceCode(ctx context.Context, code string) (*entity.Request, error) {
	query := `SELECT` + requestColumns + `FROM requests WHERE reference_code = ?`
	row := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, code)
	req, err := scanRequest(row)
	if err != nil {
		r.logger.Error("Failed to get request by code", zap.String("code", code), zap.Error(err))
	}
	return req, err
}

// SaveStatus atomically writes the transition outcome, guarded by the
// expected version. A non-matching version means another transition
// committed in between; the caller gets port.ErrVersionConflict.
func (r *RequestRepository) SaveStatus(ctx context.Context, req *entity.Request, expectedVersion int64) error {
	pending, item, vehicle, err := marshalPayload(req)
	if err != nil {
		return err
	}

	query := `
		UPDATE requests
		SET status = ?, pending_approvers = ?, item_details = ?,
			vehicle_details = ?, submitted_at = ?, version = version + 1,
			updated_at = ?
		WHERE id = ? AND version = ?
	`

	now := time.Now()
	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		req.Status,
		pending,
		item,
		vehicle,
		req.SubmittedAt,
		now,
		req.ID,
		expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to save request status", zap.Int64("id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to save request status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: request %d expected version %d", port.ErrVersionConflict, req.ID, expectedVersion)
	}

	req.Version = expectedVersion + 1
	req.UpdatedAt = now
	return nil
}

// UpdateDraft rewrites the editable payload without touching status or version
func (r *RequestRepository) UpdateDraft(ctx context.Context, req *entity.Request) error {
	_, item, vehicle, err := marshalPayload(req)
	if err != nil {
		return err
	}

	query := `
		UPDATE requests
		SET item_details = ?, vehicle_details = ?, updated_at = ?
		WHERE id = ?
	`

	now := time.Now()
	if _, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query, item, vehicle, now, req.ID); err != nil {
		r.logger.Error("Failed to update draft", zap.Int64("id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to update draft: %w", err)
	}

	req.UpdatedAt = now
	return nil
}

// Delete removes a request row
func (r *RequestRepository) Delete(ctx context.Context, id int64) error {
	if _, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, `DELETE FROM requests WHERE id = ?`, id); err != nil {
		r.logger.Error("Failed to delete request", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete request: %w", err)
	}
	return nil
}

// ListByStatus lists requests in a status, newest first. An empty status
// lists everything.
func (r *RequestRepository) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*entity.Request, error) {
	query := `SELECT` + requestColumns + `FROM requests WHERE (? = '' OR status = ?) ORDER BY id DESC LIMIT ? OFFSET ?`
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, status, status, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list requests by status", zap.String("status", status), zap.Error(err))
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()
	return scanRequests(rows)
}

// ListByRequestor lists a user's own requests, newest first
func (r *RequestRepository) ListByRequestor(ctx context.Context, requestorID string, limit, offset int) ([]*entity.Request, error) {
	query := `SELECT` + requestColumns + `FROM requests WHERE requestor_id = ? ORDER BY id DESC LIMIT ? OFFSET ?`
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, requestorID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list requests by requestor", zap.String("requestor_id", requestorID), zap.Error(err))
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()
	return scanRequests(rows)
}

// ListPendingFor lists requests whose pending set contains the user. The
// pending set is a JSON array column, so the membership test uses the
// json_each table function.
func (r *RequestRepository) ListPendingFor(ctx context.Context, userID string, limit, offset int) ([]*entity.Request, error) {
	query := `
		SELECT` + requestColumns + `FROM requests
		WHERE EXISTS (
			SELECT 1 FROM json_each(requests.pending_approvers) WHERE json_each.value = ?
		)
		ORDER BY id DESC LIMIT ? OFFSET ?
	`
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list pending requests", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}
	defer rows.Close()
	return scanRequests(rows)
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*entity.Request, error) {
	var req entity.Request
	var kind string
	var pending string
	var item, vehicle sql.NullString
	var submittedAt sql.NullTime

	err := row.Scan(
		&req.ID,
		&req.ReferenceCode,
		&kind,
		&req.Status,
		&req.RequestorID,
		&req.DepartmentID,
		&pending,
		&item,
		&vehicle,
		&req.Version,
		&req.CreatedAt,
		&submittedAt,
		&req.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan request: %w", err)
	}

	req.Kind = entity.RequestKind(kind)
	if submittedAt.Valid {
		req.SubmittedAt = &submittedAt.Time
	}

	req.PendingApproverIDs = []string{}
	if pending != "" {
		if err := json.Unmarshal([]byte(pending), &req.PendingApproverIDs); err != nil {
			return nil, fmt.Errorf("failed to decode pending approvers: %w", err)
		}
	}
	if item.Valid && item.String != "" {
		req.Item = &entity.ItemDetails{}
		if err := json.Unmarshal([]byte(item.String), req.Item); err != nil {
			return nil, fmt.Errorf("failed to decode item details: %w", err)
		}
	}
	if vehicle.Valid && vehicle.String != "" {
		req.Vehicle = &entity.VehicleDetails{}
		if err := json.Unmarshal([]byte(vehicle.String), req.Vehicle); err != nil {
			return nil, fmt.Errorf("failed to decode vehicle details: %w", err)
		}
	}

	return &req, nil
}

func scanRequests(rows *sql.Rows) ([]*entity.Request, error) {
	var out []*entity.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func marshalPayload(req *entity.Request) (pending string, item, vehicle sql.NullString, err error) {
	pendingBytes, err := json.Marshal(req.PendingApproverIDs)
	if err != nil {
		return "", item, vehicle, fmt.Errorf("failed to encode pending approvers: %w", err)
	}
	if req.PendingApproverIDs == nil {
		pendingBytes = []byte("[]")
	}
	pending = string(pendingBytes)

	if req.Item != nil {
		raw, err := json.Marshal(req.Item)
		if err != nil {
			return "", item, vehicle, fmt.Errorf("failed to encode item details: %w", err)
		}
		item = sql.NullString{String: string(raw), Valid: true}
	}
	if req.Vehicle != nil {
		raw, err := json.Marshal(req.Vehicle)
		if err != nil {
			return "", item, vehicle, fmt.Errorf("failed to encode vehicle details: %w", err)
		}
		vehicle = sql.NullString{String: string(raw), Valid: true}
	}
	return pending, item, vehicle, nil
}

// Verify interface compliance
var _ port.RequestRepository = (*RequestRepository)(nil)
