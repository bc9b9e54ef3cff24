package postgres

import (
	"context"
	"encoding/json"
	"time"

	"fulfillment/internal/core/ports"

	"gorm.io/gorm"
)

// ChangeChannel is the postgres notification channel carrying entity change
// events. The pglistener adapter LISTENs on the same name.
const ChangeChannel = "entity_changes"

// changePayload is the wire form of a ChangeEvent on the notification
// channel.
type changePayload struct {
	Entity         string    `json:"entity"`
	Kind           string    `json:"kind"`
	EntityID       string    `json:"entity_id"`
	PreviousStatus string    `json:"previous_status"`
	CurrentStatus  string    `json:"current_status"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// NotifyPublisher implements ChangePublisher with pg_notify, so every
// process listening on the change channel observes committed changes,
// including the one that wrote them.
type NotifyPublisher struct {
	db *gorm.DB
}

// NewNotifyPublisher creates a pg_notify-backed change publisher.
func NewNotifyPublisher(db *gorm.DB) *NotifyPublisher {
	return &NotifyPublisher{db: db}
}

// Publish emits the event on the change channel. Callers invoke this after
// their transaction commits; pg_notify inside an uncommitted transaction
// would hold the notification back.
func (p *NotifyPublisher) Publish(ctx context.Context, event ports.ChangeEvent) error {
	payload, err := json.Marshal(changePayload{
		Entity:         event.Entity,
		Kind:           event.Kind,
		EntityID:       event.EntityID.String(),
		PreviousStatus: event.PreviousStatus.String(),
		CurrentStatus:  event.CurrentStatus.String(),
		OccurredAt:     event.OccurredAt,
	})
	if err != nil {
		return err
	}

	return p.db.WithContext(ctx).
		Exec("SELECT pg_notify(?, ?)", ChangeChannel, string(payload)).Error
}
