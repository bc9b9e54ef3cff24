package jobs

import (
	"context"
	"log/slog"
	"time"

	"fulfillment/internal/core/application/usecases/commands"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/core/domain/model/workflowlog"
	"fulfillment/internal/core/ports"

	"github.com/robfig/cron/v3"
)

// stalledThreshold is how long an order may sit in the shopping phase before
// the sweep escalates it. Matches the delayed escalation rule, so the sweep
// catches exactly the orders whose in-memory timer was lost to a restart or
// a missed change event.
const stalledThreshold = 45 * time.Minute

// EscalationJob periodically sweeps for orders stuck in the shopping phase
// and escalates them to the concierge desk.
//
// The automation engine already escalates stalled orders through its delayed
// rule, but the rule's timer lives in process memory and the triggering event
// can be missed entirely while the change stream is down. The sweep reads
// the store directly, so it needs neither. Escalations are deduplicated
// through the workflow log: an order escalated within the threshold window is
// left alone no matter which path escalated it.
type EscalationJob struct {
	uowFactory commands.UoWFactory
	dispatcher ports.NotificationDispatcher
	cron       *cron.Cron
	logger     *slog.Logger
	now        func() time.Time

	// actorID identifies the sweep in workflow log entries.
	actorID kernel.UUID
}

// NewEscalationJob creates the stalled-order sweep.
func NewEscalationJob(
	uowFactory commands.UoWFactory,
	dispatcher ports.NotificationDispatcher,
	logger *slog.Logger,
) *EscalationJob {
	return &EscalationJob{
		uowFactory: uowFactory,
		dispatcher: dispatcher,
		cron:       cron.New(cron.WithSeconds()),
		logger:     logger.With("component", "escalation_job"),
		now:        time.Now,
		actorID:    kernel.NewUUID(),
	}
}

// Start schedules the sweep to run every minute.
func (j *EscalationJob) Start() error {
	_, err := j.cron.AddFunc("0 * * * * *", func() {
		ctx := context.Background()
		if sweepErr := j.Sweep(ctx); sweepErr != nil {
			j.logger.ErrorContext(ctx, "escalation sweep failed", "error", sweepErr)
		}
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "escalation sweep started (running every minute)")
	return nil
}

// Stop stops the sweep.
func (j *EscalationJob) Stop() {
	j.cron.Stop()
	j.logger.InfoContext(context.Background(), "escalation sweep stopped")
}

// Sweep escalates every order that has been shopping longer than the
// threshold and has no escalation entry within the window. A failure on one
// order does not stop the rest of the batch.
func (j *EscalationJob) Sweep(ctx context.Context) error {
	uow := j.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	cutoff := j.now().Add(-stalledThreshold)
	stalled, err := uow.OrderRepository().GetStalledInStatus(ctx, order.Shopping, cutoff)
	if err != nil {
		return err
	}

	escalated := 0
	for _, stuck := range stalled {
		done, escErr := j.escalate(ctx, uow, stuck)
		if escErr != nil {
			j.logger.WarnContext(ctx, "failed to escalate stalled order",
				"order_id", stuck.ID().String(), "error", escErr)
			continue
		}
		if done {
			escalated++
		}
	}

	if err = uow.Commit(ctx); err != nil {
		return err
	}

	if escalated > 0 {
		j.logger.InfoContext(ctx, "escalated stalled orders",
			"stalled", len(stalled), "escalated", escalated)
	}
	return nil
}

func (j *EscalationJob) escalate(
	ctx context.Context, uow commands.UoW, stuck *order.Order,
) (bool, error) {
	cutoff := j.now().Add(-stalledThreshold)
	seen, err := uow.WorkflowLogRepository().HasRecentEntry(
		ctx, stuck.ID(), workflowlog.ActionEscalated, cutoff)
	if err != nil {
		return false, err
	}
	if seen {
		return false, nil
	}

	if err = j.dispatcher.Send(ctx, ports.Notification{
		OrderID:      stuck.ID(),
		Type:         "shopping_stalled",
		RecipientRef: "concierge",
		Channel:      "push",
		Message:      "shopping_stalled",
		Metadata:     map[string]string{"source": "escalation_sweep"},
	}); err != nil {
		return false, err
	}

	entry, err := workflowlog.NewEntry(
		kernel.NewUUID(), stuck.ID(), j.actorID, workflowlog.ActionEscalated,
		stuck.Status(), stuck.Status(), j.now(),
		map[string]string{"source": "escalation_sweep"})
	if err != nil {
		return false, err
	}
	if err = uow.WorkflowLogRepository().Append(ctx, entry); err != nil {
		return false, err
	}

	return true, nil
}
