package queries

import (
	"context"
	"encoding/json"

	"fulfillment/internal/core/domain/model/kernel"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetWorkflowLogQueryHandler reads an order's audit trail from the database.
type GetWorkflowLogQueryHandler struct {
	db *gorm.DB
}

// NewGetWorkflowLogQueryHandler creates a handler for workflow log queries.
func NewGetWorkflowLogQueryHandler(db *gorm.DB) GetWorkflowLogQueryHandler {
	return GetWorkflowLogQueryHandler{db: db}
}

// Handle executes the query. An unknown order yields an empty trail, not an
// error: the log endpoint is used by dashboards that poll before creation
// completes.
func (h GetWorkflowLogQueryHandler) Handle(
	ctx context.Context,
	query GetWorkflowLogQuery,
) ([]GetWorkflowLogQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	entries := make([]GetWorkflowLogQueryResponse, 0)

	rows, err := h.db.WithContext(ctx).Raw(`
		SELECT
			id,
			actor_id,
			action,
			phase,
			previous_status,
			new_status,
			occurred_at,
			metadata
		FROM workflow_log
		WHERE order_id = ?
		ORDER BY occurred_at, id
	`, query.OrderID().String()).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var entry GetWorkflowLogQueryResponse
		var id, actorID uuid.UUID
		var rawMetadata []byte

		err = rows.Scan(
			&id,
			&actorID,
			&entry.Action,
			&entry.Phase,
			&entry.PreviousStatus,
			&entry.NewStatus,
			&entry.OccurredAt,
			&rawMetadata,
		)
		if err != nil {
			return nil, err
		}

		if entry.ID, err = kernel.UUIDFromBytes(id[:]); err != nil {
			return nil, err
		}
		if entry.ActorID, err = kernel.UUIDFromBytes(actorID[:]); err != nil {
			return nil, err
		}
		if len(rawMetadata) > 0 {
			if err = json.Unmarshal(rawMetadata, &entry.Metadata); err != nil {
				return nil, err
			}
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
