// Package assignment provides the StakeholderAssignment aggregate: the link
// between an order and a human actor (shopper, driver, concierge) with an
// acceptance state. The system keeps at most one accepted assignment per
// (order, role) pair; that uniqueness is enforced by the repository, and
// automation actions that create assignments are written to tolerate
// duplicate execution by checking for an existing accepted assignment first.
package assignment

import (
	"errors"
	"fmt"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/errs"
)

// ErrAssignmentIsNotConstructed is returned when an Assignment was not created
// through NewAssignment or RestoreAssignment.
var ErrAssignmentIsNotConstructed = errors.New("Assignment must be created via NewAssignment or RestoreAssignment")

// Role names the function a stakeholder performs on an order.
type Role string

const (
	RoleShopper   Role = "shopper"
	RoleDriver    Role = "driver"
	RoleConcierge Role = "concierge"
)

// Validate checks that the role is one of the known values.
func (r Role) Validate() error {
	switch r {
	case RoleShopper, RoleDriver, RoleConcierge:
		return nil
	default:
		return errs.NewValueIsInvalidErrorWithCause("role is invalid",
			fmt.Errorf("%q is not a valid stakeholder role", string(r)))
	}
}

// Status tracks whether the stakeholder has responded to the assignment.
type Status string

const (
	StatusAssigned Status = "assigned"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
)

// Validate checks that the assignment status is one of the known values.
func (s Status) Validate() error {
	switch s {
	case StatusAssigned, StatusAccepted, StatusDeclined:
		return nil
	default:
		return errs.NewValueIsInvalidErrorWithCause("assignment status is invalid",
			fmt.Errorf("%q is not a valid assignment status", string(s)))
	}
}

// Assignment links a stakeholder to an order in a given role.
// Created by the state machine when a stakeholder accepts an order, or by the
// automation engine when it auto-assigns.
type Assignment struct {
	id            kernel.UUID
	orderID       kernel.UUID
	userID        kernel.UUID
	role          Role
	status        Status
	isConstructed bool
}

// NewAssignment creates an assignment in the given initial status.
// The state machine creates accepted assignments directly (the stakeholder
// initiated the action); the automation engine creates assigned ones that
// await a response.
func NewAssignment(id, orderID, userID kernel.UUID, role Role, status Status) (*Assignment, error) {
	a := &Assignment{isConstructed: true}

	if err := errors.Join(
		a.setID(id),
		a.setOrderID(orderID),
		a.setUserID(userID),
		role.Validate(),
		status.Validate(),
	); err != nil {
		return nil, err
	}

	a.role = role
	a.status = status
	return a, nil
}

// RestoreAssignment reconstructs an Assignment from persistence.
func RestoreAssignment(id, orderID, userID kernel.UUID, role Role, status Status) (*Assignment, error) {
	return NewAssignment(id, orderID, userID, role, status)
}

// Validate ensures the Assignment was created through a factory method.
func (a *Assignment) Validate() error {
	if a == nil || !a.isConstructed {
		return ErrAssignmentIsNotConstructed
	}
	return nil
}

// ID returns the assignment's unique identifier.
func (a *Assignment) ID() kernel.UUID { return a.id }

// OrderID returns the order this assignment belongs to.
func (a *Assignment) OrderID() kernel.UUID { return a.orderID }

// UserID returns the assigned stakeholder.
func (a *Assignment) UserID() kernel.UUID { return a.userID }

// Role returns the stakeholder's role on the order.
func (a *Assignment) Role() Role { return a.role }

// Status returns the current acceptance state.
func (a *Assignment) Status() Status { return a.status }

// Accept marks the assignment accepted. Declined assignments stay declined;
// the stakeholder must be re-assigned instead.
func (a *Assignment) Accept() error {
	if a.status == StatusDeclined {
		return errs.NewValueIsInvalidErrorWithCause("assignment status is invalid",
			fmt.Errorf("declined assignment for order %s cannot be accepted", a.orderID))
	}
	a.status = StatusAccepted
	return nil
}

// Decline marks the assignment declined.
func (a *Assignment) Decline() error {
	if a.status == StatusAccepted {
		return errs.NewValueIsInvalidErrorWithCause("assignment status is invalid",
			fmt.Errorf("accepted assignment for order %s cannot be declined", a.orderID))
	}
	a.status = StatusDeclined
	return nil
}

func (a *Assignment) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	a.id = id
	return nil
}

func (a *Assignment) setOrderID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	a.orderID = id
	return nil
}

func (a *Assignment) setUserID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	a.userID = id
	return nil
}
