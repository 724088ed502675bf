package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/svcflow/servicedesk/internal/application/port"
	"github.com/svcflow/servicedesk/internal/domain/entity"
	"github.com/svcflow/servicedesk/internal/infrastructure/persistence/sqlite"
)

// DepartmentRepository implements port.DepartmentRepository
type DepartmentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDepartmentRepository creates a new department repository
func NewDepartmentRepository(db *sql.DB, logger *zap.Logger) port.DepartmentRepository {
	return &DepartmentRepository{
		db:     db,
		logger: logger,
	}
}

const departmentColumns = `id, name, parent_id, is_vehicle_steward, active, created_at`

// GetByID retrieves a department by ID
func (r *DepartmentRepository) GetByID(ctx context.Context, id int64) (*entity.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE id = ?`
	return scanDepartment(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
}

// IsVehicleSteward reports whether the department carries the steward flag
func (r *DepartmentRepository) IsVehicleSteward(ctx context.Context, id int64) (bool, error) {
	var steward bool
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx,
		`SELECT is_vehicle_steward FROM departments WHERE id = ? AND active = 1`, id).Scan(&steward)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		r.logger.Error("Failed to check steward flag", zap.Int64("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to check steward flag: %w", err)
	}
	return steward, nil
}

// GetVehicleSteward returns the active department flagged as vehicle steward, if any
func (r *DepartmentRepository) GetVehicleSteward(ctx context.Context) (*entity.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE is_vehicle_steward = 1 AND active = 1 LIMIT 1`
	return scanDepartment(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query))
}

func scanDepartment(row rowScanner) (*entity.Department, error) {
	var dept entity.Department
	var parentID sql.NullInt64
	err := row.Scan(
		&dept.ID,
		&dept.Name,
		&parentID,
		&dept.IsVehicleSteward,
		&dept.Active,
		&dept.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan department: %w", err)
	}
	if parentID.Valid {
		dept.ParentID = &parentID.Int64
	}
	return &dept, nil
}

// Verify interface compliance
var _ port.DepartmentRepository = (*DepartmentRepository)(nil)
