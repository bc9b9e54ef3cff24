// Package workflowlog provides the append-only audit trail of the order
// workflow. Entries are created, never updated or deleted; they are the
// canonical record of every status transition and the substrate for the
// automation engine's deduplication marker.
package workflowlog

import (
	"errors"
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/pkg/errs"
)

// ErrEntryIsNotConstructed is returned when an Entry was not created through
// NewEntry or RestoreEntry.
var ErrEntryIsNotConstructed = errors.New("Entry must be created via NewEntry or RestoreEntry")

// ActionAutomationProcessed marks that the automation engine began processing
// a status-change event for an order. The engine writes this marker before
// executing rules and skips events that find a fresh marker, which makes
// deduplication a best-effort, time-windowed lock rather than a strict mutex.
const ActionAutomationProcessed order.Action = "automation_processed"

// ActionOrderCreated records the registration of a new order. Not a status
// transition; previous and new status are both pending.
const ActionOrderCreated order.Action = "order_created"

// ActionEscalated records that the automation engine or the escalation sweep
// raised the order to the concierge desk.
const ActionEscalated order.Action = "escalated"

// ActionItemUpdated records a shopper's per-item picking outcome.
const ActionItemUpdated order.Action = "item_updated"

// ActionRuleCompleted records a rule's log_completion effect.
const ActionRuleCompleted order.Action = "rule_completed"

// Entry is one immutable row of the workflow audit trail.
type Entry struct {
	id             kernel.UUID
	orderID        kernel.UUID
	actorID        kernel.UUID
	action         order.Action
	phase          string
	previousStatus order.Status
	newStatus      order.Status
	occurredAt     time.Time
	metadata       map[string]string
	isConstructed  bool
}

// NewEntry creates an audit entry for an order action. previousStatus and
// newStatus may be equal for non-transition actions (markers, notifications).
// Metadata is copied; the entry never aliases the caller's map.
func NewEntry(
	id kernel.UUID,
	orderID kernel.UUID,
	actorID kernel.UUID,
	action order.Action,
	previousStatus order.Status,
	newStatus order.Status,
	occurredAt time.Time,
	metadata map[string]string,
) (*Entry, error) {
	e := &Entry{isConstructed: true}

	if err := errors.Join(
		e.setID(id),
		e.setOrderID(orderID),
		e.setActorID(actorID),
	); err != nil {
		return nil, err
	}
	if action == "" {
		return nil, errs.NewValueIsRequiredError("action")
	}
	if occurredAt.IsZero() {
		return nil, errs.NewValueIsRequiredError("occurredAt")
	}

	e.action = action
	e.phase = newStatus.String()
	e.previousStatus = previousStatus
	e.newStatus = newStatus
	e.occurredAt = occurredAt
	e.metadata = cloneMetadata(metadata)
	return e, nil
}

// RestoreEntry reconstructs an Entry from persistence.
func RestoreEntry(
	id kernel.UUID,
	orderID kernel.UUID,
	actorID kernel.UUID,
	action order.Action,
	phase string,
	previousStatus order.Status,
	newStatus order.Status,
	occurredAt time.Time,
	metadata map[string]string,
) (*Entry, error) {
	e, err := NewEntry(id, orderID, actorID, action, previousStatus, newStatus, occurredAt, metadata)
	if err != nil {
		return nil, err
	}
	e.phase = phase
	return e, nil
}

// Validate ensures the Entry was created through a factory method.
func (e *Entry) Validate() error {
	if e == nil || !e.isConstructed {
		return ErrEntryIsNotConstructed
	}
	return nil
}

// ID returns the entry's unique identifier.
func (e *Entry) ID() kernel.UUID { return e.id }

// OrderID returns the order the entry belongs to.
func (e *Entry) OrderID() kernel.UUID { return e.orderID }

// ActorID returns the stakeholder (or system actor) that caused the entry.
func (e *Entry) ActorID() kernel.UUID { return e.actorID }

// Action returns the recorded action name.
func (e *Entry) Action() order.Action { return e.action }

// Phase returns the workflow phase the order was in after the action.
func (e *Entry) Phase() string { return e.phase }

// PreviousStatus returns the order status before the action.
func (e *Entry) PreviousStatus() order.Status { return e.previousStatus }

// NewStatus returns the order status after the action.
func (e *Entry) NewStatus() order.Status { return e.newStatus }

// OccurredAt returns when the action happened.
func (e *Entry) OccurredAt() time.Time { return e.occurredAt }

// Metadata returns a copy of the entry's metadata.
func (e *Entry) Metadata() map[string]string {
	return cloneMetadata(e.metadata)
}

func cloneMetadata(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (e *Entry) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	e.id = id
	return nil
}

func (e *Entry) setOrderID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	e.orderID = id
	return nil
}

func (e *Entry) setActorID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	e.actorID = id
	return nil
}
