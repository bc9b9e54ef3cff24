package commands

import (
	"errors"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
)

var ErrRollbackOrderCommandIsNotConstructed = errors.New(
	"RollbackOrderCommand must be created via NewRollbackOrderCommand constructor",
)

// RollbackOrderCommand represents a request to reverse a status transition
// made in error. Only the whitelisted reverse edges are allowed; the handler
// rejects everything else before touching the store.
type RollbackOrderCommand struct { //nolint:recvcheck //using for validation
	orderID        kernel.UUID
	actorID        kernel.UUID
	expectedStatus order.Status
	reason         string

	guard kernel.ConstructorGuard
}

// NewRollbackOrderCommand creates a rollback request. The reason is recorded
// in the audit trail and may be empty.
func NewRollbackOrderCommand(
	orderID, actorID kernel.UUID,
	expectedStatus order.Status,
	reason string,
) (RollbackOrderCommand, error) {
	cmd := RollbackOrderCommand{
		guard: kernel.NewConstructorGuard(),
	}

	if err := errors.Join(
		orderID.Validate(),
		actorID.Validate(),
		expectedStatus.Validate(),
	); err != nil {
		return RollbackOrderCommand{}, err
	}

	cmd.orderID = orderID
	cmd.actorID = actorID
	cmd.expectedStatus = expectedStatus
	cmd.reason = reason
	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c RollbackOrderCommand) Validate() error {
	return c.guard.Validate(ErrRollbackOrderCommandIsNotConstructed)
}

// OrderID returns the order to roll back.
func (c RollbackOrderCommand) OrderID() kernel.UUID {
	return c.orderID
}

// ActorID returns the stakeholder requesting the rollback.
func (c RollbackOrderCommand) ActorID() kernel.UUID {
	return c.actorID
}

// ExpectedStatus returns the status the caller last observed.
func (c RollbackOrderCommand) ExpectedStatus() order.Status {
	return c.expectedStatus
}

// Reason returns the free-form rollback reason, possibly empty.
func (c RollbackOrderCommand) Reason() string {
	return c.reason
}
