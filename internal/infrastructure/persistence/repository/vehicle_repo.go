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

// VehicleRepository implements port.VehicleRepository
type VehicleRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewVehicleRepository creates a new vehicle repository
func NewVehicleRepository(db *sql.DB, logger *zap.Logger) port.VehicleRepository {
	return &VehicleRepository{
		db:     db,
		logger: logger,
	}
}

const vehicleColumns = `id, plate_number, model, capacity, active, created_at`

// GetByID retrieves a vehicle by ID
func (r *VehicleRepository) GetByID(ctx context.Context, id int64) (*entity.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = ?`
	return scanVehicle(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
}

// ListActive lists vehicles available for assignment
func (r *VehicleRepository) ListActive(ctx context.Context) ([]*entity.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE active = 1 ORDER BY plate_number ASC`
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list vehicles", zap.Error(err))
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	defer rows.Close()

	var out []*entity.Vehicle
	for rows.Next() {
		vehicle, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, vehicle)
	}
	return out, rows.Err()
}

func scanVehicle(row rowScanner) (*entity.Vehicle, error) {
	var vehicle entity.Vehicle
	var model sql.NullString
	var capacity sql.NullInt64
	err := row.Scan(
		&vehicle.ID,
		&vehicle.PlateNumber,
		&model,
		&capacity,
		&vehicle.Active,
		&vehicle.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan vehicle: %w", err)
	}
	vehicle.Model = model.String
	vehicle.Capacity = int(capacity.Int64)
	return &vehicle, nil
}

// Verify interface compliance
var _ port.VehicleRepository = (*VehicleRepository)(nil)
