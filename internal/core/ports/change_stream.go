package ports

import (
	"context"
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
)

// ChangeEvent is one notification from the entity change stream. The
// realtime manager delivers these to subscribers; the automation engine
// reacts to the ones where the status actually moved.
type ChangeEvent struct {
	// Entity names the changed table, e.g. "orders".
	Entity string

	// Kind is the store operation: "INSERT", "UPDATE" or "DELETE".
	Kind string

	// EntityID identifies the changed row.
	EntityID kernel.UUID

	// PreviousStatus and CurrentStatus carry the order status before and
	// after the change. Equal for non-status updates.
	PreviousStatus order.Status
	CurrentStatus  order.Status

	// OccurredAt is the store-assigned change time.
	OccurredAt time.Time
}

// IsStatusChange reports whether the event represents an actual status move.
func (e ChangeEvent) IsStatusChange() bool {
	return e.PreviousStatus != e.CurrentStatus
}

// ChannelStatus is a lifecycle signal reported by a transport channel.
type ChannelStatus int

const (
	// ChannelSubscribed means the channel handshake completed and messages flow.
	ChannelSubscribed ChannelStatus = iota + 1

	// ChannelError means the channel failed; the reconnection manager decides
	// whether to retry.
	ChannelError

	// ChannelTimedOut means the channel's liveness window elapsed without
	// traffic; handled like an error.
	ChannelTimedOut

	// ChannelClosed means the channel was torn down, locally or remotely.
	ChannelClosed
)

// String returns the lowercase name of the channel status.
func (s ChannelStatus) String() string {
	switch s {
	case ChannelSubscribed:
		return "subscribed"
	case ChannelError:
		return "error"
	case ChannelTimedOut:
		return "timed_out"
	case ChannelClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ChannelConfig describes what a transport channel should deliver.
type ChannelConfig struct {
	// Entity names the table to watch, e.g. "orders".
	Entity string

	// Filter optionally narrows the stream, e.g. to one order ID.
	// Empty means all rows of the entity.
	Filter string
}

// ChannelHandle is an open transport channel. Messages and status signals
// arrive on its streams until Close is called or the transport drops it.
type ChannelHandle interface {
	// Messages returns the stream of change events. The transport closes it
	// when the channel dies.
	Messages() <-chan ChangeEvent

	// Status returns the stream of lifecycle signals for the channel.
	Status() <-chan ChannelStatus

	// Close tears down the channel. Idempotent: closing an already-closed
	// channel is not an error.
	Close() error
}

// ChangeTransport abstracts the bidirectional realtime connection that
// delivers change events for a registered entity/filter pair.
type ChangeTransport interface {
	// OpenChannel opens a named channel for the given config. The returned
	// handle is live once it reports ChannelSubscribed.
	OpenChannel(ctx context.Context, name string, cfg ChannelConfig) (ChannelHandle, error)

	// Ping performs a lightweight liveness probe (a presence write). Used
	// after long background periods to decide whether channels survived.
	Ping(ctx context.Context) error
}

// ChangePublisher emits change events into the stream after a transaction
// commits. The postgres adapter implements it with pg_notify, so every other
// process's listener (and our own) observes committed changes.
type ChangePublisher interface {
	Publish(ctx context.Context, event ChangeEvent) error
}
