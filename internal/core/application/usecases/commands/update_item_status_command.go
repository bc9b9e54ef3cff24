package commands

import (
	"errors"
	"fmt"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/pkg/errs"
)

var ErrUpdateItemStatusCommandIsNotConstructed = errors.New(
	"UpdateItemStatusCommand must be created via NewUpdateItemStatusCommand constructor",
)

// UpdateItemStatusCommand represents a shopper's picking outcome for one item:
// found (with a quantity), substitution needed (with a proposal) or not
// available. Item updates never touch the order status; the automation engine
// reacts once all items are resolved.
type UpdateItemStatusCommand struct { //nolint:recvcheck //using for validation
	orderID          kernel.UUID
	itemID           kernel.UUID
	actorID          kernel.UUID
	shoppingStatus   order.ShoppingStatus
	foundQuantity    int
	substitutionData string

	guard kernel.ConstructorGuard
}

// NewUpdateItemStatusCommand creates an item update request.
// foundQuantity only applies to found; substitutionData only to
// substitution_needed. Full range checks against the requested quantity
// happen on the aggregate.
func NewUpdateItemStatusCommand(
	orderID, itemID, actorID kernel.UUID,
	shoppingStatus order.ShoppingStatus,
	foundQuantity int,
	substitutionData string,
) (UpdateItemStatusCommand, error) {
	cmd := UpdateItemStatusCommand{
		guard: kernel.NewConstructorGuard(),
	}

	if err := errors.Join(
		orderID.Validate(),
		itemID.Validate(),
		actorID.Validate(),
		shoppingStatus.Validate(),
	); err != nil {
		return UpdateItemStatusCommand{}, err
	}
	if shoppingStatus == order.ItemPending {
		return UpdateItemStatusCommand{}, errs.NewValueIsInvalidErrorWithCause("shopping status is invalid",
			fmt.Errorf("%q is not a picking outcome", shoppingStatus.String()))
	}

	cmd.orderID = orderID
	cmd.itemID = itemID
	cmd.actorID = actorID
	cmd.shoppingStatus = shoppingStatus
	cmd.foundQuantity = foundQuantity
	cmd.substitutionData = substitutionData
	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c UpdateItemStatusCommand) Validate() error {
	return c.guard.Validate(ErrUpdateItemStatusCommandIsNotConstructed)
}

// OrderID returns the order that owns the item.
func (c UpdateItemStatusCommand) OrderID() kernel.UUID {
	return c.orderID
}

// ItemID returns the item being updated.
func (c UpdateItemStatusCommand) ItemID() kernel.UUID {
	return c.itemID
}

// ActorID returns the shopper recording the outcome.
func (c UpdateItemStatusCommand) ActorID() kernel.UUID {
	return c.actorID
}

// ShoppingStatus returns the requested picking outcome.
func (c UpdateItemStatusCommand) ShoppingStatus() order.ShoppingStatus {
	return c.shoppingStatus
}

// FoundQuantity returns the picked quantity for found outcomes.
func (c UpdateItemStatusCommand) FoundQuantity() int {
	return c.foundQuantity
}

// SubstitutionData returns the substitute proposal for substitution outcomes.
func (c UpdateItemStatusCommand) SubstitutionData() string {
	return c.substitutionData
}
