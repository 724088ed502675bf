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

// DriverRepository implements port.DriverRepository
type DriverRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDriverRepository creates a new driver repository
func NewDriverRepository(db *sql.DB, logger *zap.Logger) port.DriverRepository {
	return &DriverRepository{
		db:     db,
		logger: logger,
	}
}

const driverColumns = `id, name, license_number, active, created_at`

// GetByID retrieves a driver by ID
func (r *DriverRepository) GetByID(ctx context.Context, id int64) (*entity.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = ?`
	return scanDriver(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
}

// ListActive lists drivers available for assignment
func (r *DriverRepository) ListActive(ctx context.Context) ([]*entity.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE active = 1 ORDER BY name ASC`
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list drivers", zap.Error(err))
		return nil, fmt.Errorf("failed to list drivers: %w", err)
	}
	defer rows.Close()

	var out []*entity.Driver
	for rows.Next() {
		driver, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, driver)
	}
	return out, rows.Err()
}

func scanDriver(row rowScanner) (*entity.Driver, error) {
	var driver entity.Driver
	var license sql.NullString
	err := row.Scan(
		&driver.ID,
		&driver.Name,
		&license,
		&driver.Active,
		&driver.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan driver: %w", err)
	}
	driver.LicenseNumber = license.String
	return &driver, nil
}

// Verify interface compliance
var _ port.DriverRepository = (*DriverRepository)(nil)
