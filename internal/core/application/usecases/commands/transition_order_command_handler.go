package commands

import (
	"context"
	"log/slog"
	"time"

	"fulfillment/internal/core/domain/model/assignment"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/core/domain/model/workflowlog"
	"fulfillment/internal/core/ports"
)

// TransitionOrderCommandHandler executes status transitions with optimistic
// concurrency control.
//
// The edge is validated against the caller's expected status before any store
// round-trip; an invalid edge never reaches the database. The store update is
// conditional on the expected status, so two actors racing on the same order
// serialize cleanly: the first one wins, the second observes a ConflictError
// and must refetch.
//
// accept_order additionally records the accepting shopper: an accepted
// assignment is created and the order's assigned shopper is set, all in the
// same transaction as the status update.
//
// The change event is published after commit. Publishing is best-effort: a
// failure is logged but does not fail the already-committed transition, the
// escalation sweep covers for missed automation triggers.
type TransitionOrderCommandHandler struct {
	uowFactory UoWFactory
	publisher  ports.ChangePublisher
	logger     *slog.Logger
	now        func() time.Time
}

// NewTransitionOrderCommandHandler creates a handler for status transitions.
func NewTransitionOrderCommandHandler(
	uowFactory UoWFactory,
	publisher ports.ChangePublisher,
	logger *slog.Logger,
) TransitionOrderCommandHandler {
	return TransitionOrderCommandHandler{
		uowFactory: uowFactory,
		publisher:  publisher,
		logger:     logger.With("component", "transition_order_handler"),
		now:        time.Now,
	}
}

// Handle processes the transition command.
func (h TransitionOrderCommandHandler) Handle(ctx context.Context, command TransitionOrderCommand) error {
	if err := command.Validate(); err != nil {
		return err
	}

	occurredAt := h.now()
	patch, err := order.PrepareTransition(command.ExpectedStatus(), command.Action(), occurredAt)
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

	if command.Action() == order.ActionAcceptOrder {
		if err = h.recordAcceptingShopper(ctx, uow, command); err != nil {
			return err
		}
	}

	entry, err := workflowlog.NewEntry(
		kernel.NewUUID(), command.OrderID(), command.ActorID(),
		command.Action(), command.ExpectedStatus(), patch.Target, occurredAt, command.Metadata())
	if err != nil {
		return err
	}
	if err = uow.WorkflowLogRepository().Append(ctx, entry); err != nil {
		return err
	}

	if err = uow.Commit(ctx); err != nil {
		return err
	}

	h.publish(ctx, command, patch.Target, occurredAt)
	return nil
}

// recordAcceptingShopper creates the accepted assignment for the actor and
// pins the shopper on the order. The actor initiated the acceptance, so the
// assignment is created directly in the accepted state.
func (h TransitionOrderCommandHandler) recordAcceptingShopper(
	ctx context.Context, uow UoW, command TransitionOrderCommand,
) error {
	accepted, err := assignment.NewAssignment(
		kernel.NewUUID(), command.OrderID(), command.ActorID(),
		assignment.RoleShopper, assignment.StatusAccepted)
	if err != nil {
		return err
	}

	if err = uow.AssignmentRepository().Add(ctx, accepted); err != nil {
		return err
	}

	return uow.OrderRepository().SetAssignedShopper(ctx, command.OrderID(), command.ActorID())
}

func (h TransitionOrderCommandHandler) publish(
	ctx context.Context, command TransitionOrderCommand, target order.Status, occurredAt time.Time,
) {
	event := ports.ChangeEvent{
		Entity:         "orders",
		Kind:           "UPDATE",
		EntityID:       command.OrderID(),
		PreviousStatus: command.ExpectedStatus(),
		CurrentStatus:  target,
		OccurredAt:     occurredAt,
	}
	if err := h.publisher.Publish(ctx, event); err != nil {
		h.logger.WarnContext(ctx, "failed to publish change event",
			"order_id", command.OrderID().String(),
			"action", string(command.Action()),
			"error", err)
	}
}
