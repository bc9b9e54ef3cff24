// Package pglistener implements the realtime change transport on postgres
// LISTEN/NOTIFY using lib/pq. Each opened channel holds its own dedicated
// listener connection; the reconnection policy lives in the realtime
// manager, not here.
package pglistener

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/core/ports"
	"fulfillment/internal/pkg/errs"

	"github.com/lib/pq"
)

const (
	// changeChannel is the postgres notification channel the publisher writes
	// to. Must match postgres.ChangeChannel.
	changeChannel = "entity_changes"

	minReconnectInterval = 10 * time.Second
	maxReconnectInterval = time.Minute

	// livenessInterval bounds how long a channel may stay silent before the
	// connection is probed. A failed probe surfaces as ChannelTimedOut.
	livenessInterval = 90 * time.Second
)

// Transport opens LISTEN/NOTIFY channels against one postgres database.
type Transport struct {
	dsn    string
	db     *sql.DB
	logger *slog.Logger
}

// NewTransport creates a transport for the given postgres DSN. The held
// *sql.DB serves only liveness probes; notification traffic runs on
// per-channel listener connections.
func NewTransport(dsn string, logger *slog.Logger) (*Transport, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	return &Transport{
		dsn:    dsn,
		db:     db,
		logger: logger.With("component", "pglistener"),
	}, nil
}

// OpenChannel starts listening for change events matching the config.
func (t *Transport) OpenChannel(
	ctx context.Context, name string, cfg ports.ChannelConfig,
) (ports.ChannelHandle, error) {
	handle := &channelHandle{
		name:     name,
		cfg:      cfg,
		logger:   t.logger,
		messages: make(chan ports.ChangeEvent, 16),
		status:   make(chan ports.ChannelStatus, 4),
		done:     make(chan struct{}),
	}

	listener := pq.NewListener(t.dsn, minReconnectInterval, maxReconnectInterval, handle.onListenerEvent)
	handle.listener = listener

	if err := listener.Listen(changeChannel); err != nil {
		_ = listener.Close()
		return nil, errs.NewTransportError(name, err)
	}

	go handle.run(ctx)
	return handle, nil
}

// Ping performs a lightweight liveness probe against the database.
func (t *Transport) Ping(ctx context.Context) error {
	if err := t.db.PingContext(ctx); err != nil {
		return errs.NewTransportError("ping", err)
	}
	return nil
}

// Close releases the probe connection pool. Open channels are unaffected;
// close them through their handles.
func (t *Transport) Close() error {
	return t.db.Close()
}

type channelHandle struct {
	name     string
	cfg      ports.ChannelConfig
	logger   *slog.Logger
	listener *pq.Listener
	messages chan ports.ChangeEvent
	status   chan ports.ChannelStatus

	done      chan struct{}
	closeOnce sync.Once
}

// Messages returns the stream of change events for the channel.
func (h *channelHandle) Messages() <-chan ports.ChangeEvent {
	return h.messages
}

// Status returns the stream of lifecycle signals for the channel.
func (h *channelHandle) Status() <-chan ports.ChannelStatus {
	return h.status
}

// Close tears down the channel. Idempotent.
func (h *channelHandle) Close() error {
	var err error
	h.closeOnce.Do(func() {
		close(h.done)
		err = h.listener.Close()
	})
	return err
}

// onListenerEvent maps lib/pq connection events onto channel status signals.
// Runs on the listener's internal goroutine; the status channel is buffered
// and drops are acceptable because the reconnection manager treats any error
// signal the same way.
func (h *channelHandle) onListenerEvent(event pq.ListenerEventType, err error) {
	switch event {
	case pq.ListenerEventConnected, pq.ListenerEventReconnected:
		h.trySignal(ports.ChannelSubscribed)
	case pq.ListenerEventDisconnected, pq.ListenerEventConnectionAttemptFailed:
		if err != nil {
			h.logger.Warn("listener connection lost", "channel", h.name, "error", err)
		}
		h.trySignal(ports.ChannelError)
	}
}

func (h *channelHandle) trySignal(s ports.ChannelStatus) {
	select {
	case h.status <- s:
	case <-h.done:
	default:
	}
}

func (h *channelHandle) run(ctx context.Context) {
	defer close(h.messages)

	liveness := time.NewTimer(livenessInterval)
	defer liveness.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = h.Close()
			h.trySignal(ports.ChannelClosed)
			return

		case <-h.done:
			h.trySignal(ports.ChannelClosed)
			return

		case notification := <-h.listener.Notify:
			// A nil notification means the underlying connection was
			// re-established; events may have been missed in between.
			if notification == nil {
				continue
			}

			event, ok := h.decode(notification.Extra)
			if ok && h.matches(event) {
				select {
				case h.messages <- event:
				case <-h.done:
					return
				}
			}

			if !liveness.Stop() {
				<-liveness.C
			}
			liveness.Reset(livenessInterval)

		case <-liveness.C:
			if err := h.listener.Ping(); err != nil {
				h.logger.Warn("listener liveness probe failed", "channel", h.name, "error", err)
				h.trySignal(ports.ChannelTimedOut)
			}
			liveness.Reset(livenessInterval)
		}
	}
}

type notifyPayload struct {
	Entity         string    `json:"entity"`
	Kind           string    `json:"kind"`
	EntityID       string    `json:"entity_id"`
	PreviousStatus string    `json:"previous_status"`
	CurrentStatus  string    `json:"current_status"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func (h *channelHandle) decode(raw string) (ports.ChangeEvent, bool) {
	var payload notifyPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		h.logger.Warn("dropping malformed notification", "channel", h.name, "error", err)
		return ports.ChangeEvent{}, false
	}

	entityID, err := kernel.UUIDFromString(payload.EntityID)
	if err != nil {
		h.logger.Warn("dropping notification with bad entity id", "channel", h.name, "error", err)
		return ports.ChangeEvent{}, false
	}

	previous, err := order.StatusFromString(payload.PreviousStatus)
	if err != nil {
		return ports.ChangeEvent{}, false
	}
	current, err := order.StatusFromString(payload.CurrentStatus)
	if err != nil {
		return ports.ChangeEvent{}, false
	}

	return ports.ChangeEvent{
		Entity:         payload.Entity,
		Kind:           payload.Kind,
		EntityID:       entityID,
		PreviousStatus: previous,
		CurrentStatus:  current,
		OccurredAt:     payload.OccurredAt,
	}, true
}

func (h *channelHandle) matches(event ports.ChangeEvent) bool {
	if h.cfg.Entity != "" && event.Entity != h.cfg.Entity {
		return false
	}
	if h.cfg.Filter != "" && event.EntityID.String() != h.cfg.Filter {
		return false
	}
	return true
}
