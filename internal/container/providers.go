// Package container provides dependency injection and lifecycle management
// for the service desk following Clean Architecture principles.
package container

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/svcflow/servicedesk/internal/application/dispatcher"
	"github.com/svcflow/servicedesk/internal/application/port"
	"github.com/svcflow/servicedesk/internal/application/service"
	"github.com/svcflow/servicedesk/internal/application/workflow"
	"github.com/svcflow/servicedesk/internal/config"
	"github.com/svcflow/servicedesk/internal/infrastructure/persistence/repository"
	"github.com/svcflow/servicedesk/internal/infrastructure/persistence/sqlite"
	"github.com/svcflow/servicedesk/internal/infrastructure/worker"
	"github.com/svcflow/servicedesk/pkg/database"

	_ "github.com/mattn/go-sqlite3"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase opens the SQLite database, runs pending migrations and
// wraps the connection in a transaction manager.
func ProvideDatabase(cfg *config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MigrationsDir != "" {
		migrator := database.NewMigrator(db, logger)
		if err := migrator.RunMigrations(cfg.MigrationsDir); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Request:      repository.NewRequestRepository(sqlDB, logger),
		Approval:     repository.NewApprovalRepository(sqlDB, logger),
		User:         repository.NewUserRepository(sqlDB, logger),
		Department:   repository.NewDepartmentRepository(sqlDB, logger),
		Vehicle:      repository.NewVehicleRepository(sqlDB, logger),
		Driver:       repository.NewDriverRepository(sqlDB, logger),
		AuditLog:     repository.NewAuditLogRepository(sqlDB, logger),
		Notification: repository.NewNotificationRepository(sqlDB, logger),
	}, nil
}

// ServiceDeps holds the dependencies of the application services.
type ServiceDeps struct {
	Repos  *RepositoryBundle
	Sender service.Sender
	Logger *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	serviceLogger := &zapLoggerAdapter{logger: deps.Logger}

	sender := deps.Sender
	if sender == nil {
		sender = &service.LogSender{Logger: serviceLogger}
	}

	return &ServiceBundle{
		Request:      service.NewRequestService(deps.Repos.Request, deps.Repos.Approval, deps.Repos.User, serviceLogger),
		Audit:        service.NewAuditService(deps.Repos.AuditLog, serviceLogger),
		Notification: service.NewNotificationService(deps.Repos.Notification, sender, serviceLogger),
	}, nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(&zapLoggerAdapter{logger: logger}),
	), nil
}

// WorkflowDeps holds the dependencies of the workflow engine.
type WorkflowDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	Workflow   *config.WorkflowConfig
	Logger     *zap.Logger
}

// ProvideWorkflowEngine creates the approval workflow engine.
func ProvideWorkflowEngine(deps *WorkflowDeps) (workflow.Engine, error) {
	if deps == nil || deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}

	resolver := workflow.NewResolver(deps.Repos.User, deps.Repos.Department)

	opts := []workflow.EngineOption{}
	if deps.Dispatcher != nil {
		opts = append(opts, workflow.WithDispatcher(deps.Dispatcher))
	}
	if deps.Workflow != nil && !deps.Workflow.SundayVerification {
		opts = append(opts, workflow.WithVerificationPolicy(workflow.NoVerificationPolicy))
	}

	return workflow.NewEngine(
		deps.Repos.Request,
		deps.Repos.Approval,
		deps.Repos.User,
		deps.Repos.Vehicle,
		deps.Repos.Driver,
		deps.TxManager,
		resolver,
		opts...,
	), nil
}

// ProvideNotificationWorker creates the queue-draining background worker.
func ProvideNotificationWorker(
	cfg *config.NotificationConfig,
	notifications service.NotificationService,
	logger *zap.Logger,
) (*worker.NotificationWorker, error) {
	if notifications == nil {
		return nil, fmt.Errorf("notification service is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	workerCfg := worker.DefaultNotificationWorkerConfig()
	if cfg != nil {
		if cfg.PollInterval > 0 {
			workerCfg.PollInterval = cfg.PollInterval
		}
		if cfg.BatchSize > 0 {
			workerCfg.BatchSize = cfg.BatchSize
		}
	}

	return worker.NewNotificationWorker(workerCfg, notifications, logger), nil
}
