package commands

import (
	"errors"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/pkg/errs"
)

var ErrTransitionOrderCommandIsNotConstructed = errors.New(
	"TransitionOrderCommand must be created via NewTransitionOrderCommand constructor",
)

// TransitionOrderCommand represents a request to move an order along the
// status state machine. expectedStatus is the optimistic-concurrency token:
// the status the caller saw on its last read. If the stored status moved in
// the meantime, the handler fails with a ConflictError and the caller must
// refetch before deciding whether to retry.
//
// Example:
//
//	cmd, err := NewTransitionOrderCommand(orderID, shopperID, order.Confirmed, order.ActionAcceptOrder)
//	if err != nil {
//	    return err
//	}
//	err = handler.Handle(ctx, cmd)
//	switch {
//	case errors.Is(err, errs.ErrConflict):
//	    // someone else already handled this order; refetch and re-render
//	case errors.Is(err, errs.ErrInvalidTransition):
//	    // caller bug: the action has no edge from the expected status
//	}
type TransitionOrderCommand struct { //nolint:recvcheck //using for validation
	orderID        kernel.UUID
	actorID        kernel.UUID
	expectedStatus order.Status
	action         order.Action
	metadata       map[string]string

	guard kernel.ConstructorGuard
}

// NewTransitionOrderCommand creates a transition request.
// The action's validity for expectedStatus is checked by the handler, not
// here: constructing a command for an illegal edge is allowed, executing it
// is not.
func NewTransitionOrderCommand(
	orderID, actorID kernel.UUID,
	expectedStatus order.Status,
	action order.Action,
) (TransitionOrderCommand, error) {
	cmd := TransitionOrderCommand{
		guard: kernel.NewConstructorGuard(),
	}

	if err := errors.Join(
		orderID.Validate(),
		actorID.Validate(),
		expectedStatus.Validate(),
	); err != nil {
		return TransitionOrderCommand{}, err
	}
	if action == "" {
		return TransitionOrderCommand{}, errs.NewValueIsRequiredError("action")
	}

	cmd.orderID = orderID
	cmd.actorID = actorID
	cmd.expectedStatus = expectedStatus
	cmd.action = action
	return cmd, nil
}

// WithMetadata attaches audit metadata recorded on the workflow log entry.
func (c TransitionOrderCommand) WithMetadata(metadata map[string]string) TransitionOrderCommand {
	c.metadata = metadata
	return c
}

// Validate ensures the command was created through the constructor.
func (c TransitionOrderCommand) Validate() error {
	return c.guard.Validate(ErrTransitionOrderCommandIsNotConstructed)
}

// OrderID returns the order to transition.
func (c TransitionOrderCommand) OrderID() kernel.UUID {
	return c.orderID
}

// ActorID returns the stakeholder performing the action.
func (c TransitionOrderCommand) ActorID() kernel.UUID {
	return c.actorID
}

// ExpectedStatus returns the status the caller last observed.
func (c TransitionOrderCommand) ExpectedStatus() order.Status {
	return c.expectedStatus
}

// Action returns the requested workflow action.
func (c TransitionOrderCommand) Action() order.Action {
	return c.action
}

// Metadata returns the audit metadata, possibly nil.
func (c TransitionOrderCommand) Metadata() map[string]string {
	return c.metadata
}
