package automation

import (
	"context"
	"log/slog"

	"fulfillment/internal/core/ports"
	"fulfillment/internal/realtime"
)

// Consumer pumps order change events from a realtime subscription into the
// engine. It owns the subscription lifecycle: Start opens it, Stop closes it.
type Consumer struct {
	engine  *Engine
	manager *realtime.Manager
	logger  *slog.Logger

	sub    *realtime.Subscription
	cancel context.CancelFunc
	done   chan struct{}
}

// NewConsumer creates a consumer that feeds the engine from the manager.
func NewConsumer(engine *Engine, manager *realtime.Manager, logger *slog.Logger) *Consumer {
	return &Consumer{
		engine:  engine,
		manager: manager,
		logger:  logger.With("component", "automation_consumer"),
	}
}

// Start subscribes to order changes and processes events until Stop is
// called or the manager closes the stream. Reconnection is the manager's
// problem; the consumer only sees delivered events and terminal errors.
func (c *Consumer) Start(ctx context.Context) error {
	sub, err := c.manager.Subscribe(ctx, "orders", ports.ChannelConfig{Entity: "orders"})
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.sub = sub
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.run(runCtx)
	return nil
}

// Stop closes the subscription and waits for the pump to drain.
func (c *Consumer) Stop() {
	if c.sub == nil {
		return
	}
	c.cancel()
	c.sub.Close()
	<-c.done
}

func (c *Consumer) run(ctx context.Context) {
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-c.sub.Events():
			if !ok {
				return
			}
			if err := c.engine.HandleEvent(ctx, event); err != nil {
				c.logger.ErrorContext(ctx, "failed to process change event",
					"order_id", event.EntityID.String(), "error", err)
			}

		case err, ok := <-c.sub.Errors():
			if !ok {
				return
			}
			// Retry budget exhausted. The channel stays parked until a
			// network-online signal revives it; the escalation sweep covers
			// automation triggers missed in the meantime.
			c.logger.WarnContext(ctx, "change stream degraded", "error", err)
		}
	}
}
