package commands

import (
	"context"
	"strconv"
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/core/domain/model/workflowlog"
)

// UpdateItemStatusCommandHandler records a shopper's per-item picking
// outcome. The item mutation and its audit entry commit in one transaction.
type UpdateItemStatusCommandHandler struct {
	uowFactory OrderUoWFactory
	now        func() time.Time
}

// NewUpdateItemStatusCommandHandler creates a handler for item updates.
func NewUpdateItemStatusCommandHandler(uowFactory OrderUoWFactory) UpdateItemStatusCommandHandler {
	return UpdateItemStatusCommandHandler{
		uowFactory: uowFactory,
		now:        time.Now,
	}
}

// Handle processes the item update command.
func (h UpdateItemStatusCommandHandler) Handle(ctx context.Context, command UpdateItemStatusCommand) error {
	if err := command.Validate(); err != nil {
		return err
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	aggregate, err := uow.OrderRepository().Get(ctx, command.OrderID())
	if err != nil {
		return err
	}

	item, err := uow.OrderRepository().GetItem(ctx, command.OrderID(), command.ItemID())
	if err != nil {
		return err
	}

	previousStatus := item.ShoppingStatus()
	if err = applyOutcome(item, command); err != nil {
		return err
	}

	if err = uow.OrderRepository().UpdateItem(ctx, item); err != nil {
		return err
	}

	metadata := map[string]string{
		"item_id":         command.ItemID().String(),
		"item_status":     item.ShoppingStatus().String(),
		"previous_status": previousStatus.String(),
	}
	if command.ShoppingStatus() == order.ItemFound {
		metadata["found_quantity"] = strconv.Itoa(command.FoundQuantity())
	}

	// An item update never moves the order itself, so the entry records the
	// order's current status on both sides.
	entry, err := workflowlog.NewEntry(
		kernel.NewUUID(), command.OrderID(), command.ActorID(),
		workflowlog.ActionItemUpdated, aggregate.Status(), aggregate.Status(), h.now(), metadata)
	if err != nil {
		return err
	}
	if err = uow.WorkflowLogRepository().Append(ctx, entry); err != nil {
		return err
	}

	return uow.Commit(ctx)
}

func applyOutcome(item *order.Item, command UpdateItemStatusCommand) error {
	switch command.ShoppingStatus() {
	case order.ItemFound:
		return item.MarkFound(command.FoundQuantity())
	case order.ItemSubstitutionNeeded:
		return item.MarkSubstitutionNeeded(command.SubstitutionData())
	default:
		item.MarkNotAvailable()
		return nil
	}
}
