package jobs

import (
	"fmt"
	"log/slog"

	"fulfillment/internal/core/application/usecases/commands"
	"fulfillment/internal/core/ports"
)

// JobManager coordinates all scheduled jobs in the application.
// Provides a unified interface to start and stop all background jobs.
type JobManager struct {
	escalationJob *EscalationJob
}

// NewJobManager creates a new job manager with all required jobs.
func NewJobManager(
	uowFactory commands.UoWFactory,
	dispatcher ports.NotificationDispatcher,
	logger *slog.Logger,
) *JobManager {
	return &JobManager{
		escalationJob: NewEscalationJob(uowFactory, dispatcher, logger),
	}
}

// StartAll starts all scheduled jobs.
// Returns an error if any job fails to start.
func (jm *JobManager) StartAll() error {
	if err := jm.escalationJob.Start(); err != nil {
		return fmt.Errorf("failed to start escalation sweep: %w", err)
	}
	return nil
}

// StopAll stops all scheduled jobs gracefully.
func (jm *JobManager) StopAll() {
	jm.escalationJob.Stop()
}
