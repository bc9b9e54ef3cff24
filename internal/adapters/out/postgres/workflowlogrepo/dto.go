// Package workflowlogrepo provides GORM persistence for the append-only
// workflow audit trail. Entries are inserted, never updated.
package workflowlogrepo

import (
	"encoding/json"
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/core/domain/model/workflowlog"

	"github.com/google/uuid"
)

// EntryDTO represents the database structure for persisting audit entries.
// The (order_id, action, occurred_at) index serves the automation engine's
// deduplication lookup.
type EntryDTO struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID        uuid.UUID `gorm:"type:uuid;index:idx_workflow_log_dedup"`
	ActorID        uuid.UUID `gorm:"type:uuid"`
	Action         string    `gorm:"type:varchar(32);index:idx_workflow_log_dedup"`
	Phase          string    `gorm:"type:varchar(16)"`
	PreviousStatus string    `gorm:"type:varchar(16)"`
	NewStatus      string    `gorm:"type:varchar(16)"`
	OccurredAt     time.Time `gorm:"index:idx_workflow_log_dedup"`
	Metadata       []byte    `gorm:"type:jsonb"`
}

// TableName specifies the database table name for audit entries.
func (EntryDTO) TableName() string {
	return "workflow_log"
}

func fromDomain(entry *workflowlog.Entry) (EntryDTO, error) {
	var metadata []byte
	if m := entry.Metadata(); len(m) > 0 {
		raw, err := json.Marshal(m)
		if err != nil {
			return EntryDTO{}, err
		}
		metadata = raw
	}

	return EntryDTO{
		ID:             entry.ID().Bytes(),
		OrderID:        entry.OrderID().Bytes(),
		ActorID:        entry.ActorID().Bytes(),
		Action:         string(entry.Action()),
		Phase:          entry.Phase(),
		PreviousStatus: entry.PreviousStatus().String(),
		NewStatus:      entry.NewStatus().String(),
		OccurredAt:     entry.OccurredAt(),
		Metadata:       metadata,
	}, nil
}

func toDomain(dto EntryDTO) (*workflowlog.Entry, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}

	orderID, err := kernel.UUIDFromBytes(dto.OrderID[:])
	if err != nil {
		return nil, err
	}

	actorID, err := kernel.UUIDFromBytes(dto.ActorID[:])
	if err != nil {
		return nil, err
	}

	previousStatus, err := order.StatusFromString(dto.PreviousStatus)
	if err != nil {
		return nil, err
	}

	newStatus, err := order.StatusFromString(dto.NewStatus)
	if err != nil {
		return nil, err
	}

	var metadata map[string]string
	if len(dto.Metadata) > 0 {
		if err = json.Unmarshal(dto.Metadata, &metadata); err != nil {
			return nil, err
		}
	}

	return workflowlog.RestoreEntry(
		id, orderID, actorID, order.Action(dto.Action), dto.Phase,
		previousStatus, newStatus, dto.OccurredAt, metadata)
}
