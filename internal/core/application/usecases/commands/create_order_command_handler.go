package commands

import (
	"context"
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/core/domain/model/workflowlog"
)

// CreateOrderCommandHandler registers new orders. The order and its items
// are persisted in one transaction together with the initial audit entry.
type CreateOrderCommandHandler struct {
	uowFactory OrderUoWFactory
	now        func() time.Time
}

// NewCreateOrderCommandHandler creates a handler for order registration.
func NewCreateOrderCommandHandler(uowFactory OrderUoWFactory) CreateOrderCommandHandler {
	return CreateOrderCommandHandler{
		uowFactory: uowFactory,
		now:        time.Now,
	}
}

// Handle processes the order creation command: builds the aggregate and its
// items, persists them and appends the creation audit entry.
func (h CreateOrderCommandHandler) Handle(ctx context.Context, command CreateOrderCommand) error {
	if err := command.Validate(); err != nil {
		return err
	}

	newOrder, err := order.NewOrder(command.OrderID(), command.CustomerID())
	if err != nil {
		return err
	}

	items := make([]*order.Item, 0, len(command.Items()))
	for _, input := range command.Items() {
		item, itemErr := order.NewItem(kernel.NewUUID(), newOrder.ID(), input.Name, input.Quantity)
		if itemErr != nil {
			return itemErr
		}
		items = append(items, item)
	}

	uow := h.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err = uow.OrderRepository().Add(ctx, newOrder, items); err != nil {
		return err
	}

	entry, err := workflowlog.NewEntry(
		kernel.NewUUID(), newOrder.ID(), command.CustomerID(),
		workflowlog.ActionOrderCreated, order.Pending, order.Pending, h.now(), nil)
	if err != nil {
		return err
	}
	if err = uow.WorkflowLogRepository().Append(ctx, entry); err != nil {
		return err
	}

	return uow.Commit(ctx)
}
