package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/svcflow/servicedesk/internal/application/service"
)

// NotificationWorkerConfig holds configuration for the notification worker
type NotificationWorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// DefaultNotificationWorkerConfig returns default configuration
func DefaultNotificationWorkerConfig() NotificationWorkerConfig {
	return NotificationWorkerConfig{
		PollInterval: 30 * time.Second,
		BatchSize:    50,
	}
}

// NotificationWorker drains the pending notification queue on an interval
type NotificationWorker struct {
	config        NotificationWorkerConfig
	notifications service.NotificationService
	logger        *zap.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	isRunning bool
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(
	config NotificationWorkerConfig,
	notifications service.NotificationService,
	logger *zap.Logger,
) *NotificationWorker {
	return &NotificationWorker{
		config:        config,
		notifications: notifications,
		logger:        logger,
	}
}

// Start begins the polling loop
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("notification worker already running")
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.isRunning = true
	w.mu.Unlock()

	w.logger.Info("Notification worker started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("batch_size", w.config.BatchSize))

	go w.run(workerCtx)
	return nil
}

func (w *NotificationWorker) run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sent, err := w.notifications.ProcessQueue(ctx, w.config.BatchSize)
			if err != nil {
				w.logger.Error("Notification queue drain failed", zap.Error(err))
				continue
			}
			if sent > 0 {
				w.logger.Debug("Notification queue drained", zap.Int("sent", sent))
			}
		}
	}
}

// Stop halts the polling loop and waits for the in-flight drain
func (w *NotificationWorker) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.isRunning {
		return nil
	}
	w.cancel()
	<-w.done
	w.isRunning = false

	w.logger.Info("Notification worker stopped")
	return nil
}

// IsRunning reports whether the polling loop is active
func (w *NotificationWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isRunning
}
