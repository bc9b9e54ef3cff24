package commands

import (
	"context"
	"log/slog"
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/core/domain/model/workflowlog"
	"fulfillment/internal/core/ports"
)

// RollbackOrderCommandHandler reverses a transition along one of the
// whitelisted reverse edges. Rollbacks use the same conditional update as
// forward transitions, so they lose cleanly against a concurrent forward move.
// Phase timestamps stamped by the original transition are left untouched.
type RollbackOrderCommandHandler struct {
	uowFactory OrderUoWFactory
	publisher  ports.ChangePublisher
	logger     *slog.Logger
	now        func() time.Time
}

// NewRollbackOrderCommandHandler creates a handler for status rollbacks.
func NewRollbackOrderCommandHandler(
	uowFactory OrderUoWFactory,
	publisher ports.ChangePublisher,
	logger *slog.Logger,
) RollbackOrderCommandHandler {
	return RollbackOrderCommandHandler{
		uowFactory: uowFactory,
		publisher:  publisher,
		logger:     logger.With("component", "rollback_order_handler"),
		now:        time.Now,
	}
}

// Handle processes the rollback command.
func (h RollbackOrderCommandHandler) Handle(ctx context.Context, command RollbackOrderCommand) error {
	if err := command.Validate(); err != nil {
		return err
	}

	occurredAt := h.now()
	patch, err := order.PrepareRollback(command.ExpectedStatus())
	if err != nil {
		return err
	}

	uow := h.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err = uow.OrderRepository().UpdateStatus(ctx, command.OrderID(), command.ExpectedStatus(), patch); err != nil {
		return err
	}

	var metadata map[string]string
	if command.Reason() != "" {
		metadata = map[string]string{"reason": command.Reason()}
	}

	entry, err := workflowlog.NewEntry(
		kernel.NewUUID(), command.OrderID(), command.ActorID(),
		order.ActionRollbackStatus, command.ExpectedStatus(), patch.Target, occurredAt, metadata)
	if err != nil {
		return err
	}
	if err = uow.WorkflowLogRepository().Append(ctx, entry); err != nil {
		return err
	}

	if err = uow.Commit(ctx); err != nil {
		return err
	}

	event := ports.ChangeEvent{
		Entity:         "orders",
		Kind:           "UPDATE",
		EntityID:       command.OrderID(),
		PreviousStatus: command.ExpectedStatus(),
		CurrentStatus:  patch.Target,
		OccurredAt:     occurredAt,
	}
	if err = h.publisher.Publish(ctx, event); err != nil {
		h.logger.WarnContext(ctx, "failed to publish change event",
			"order_id", command.OrderID().String(),
			"error", err)
	}

	return nil
}
