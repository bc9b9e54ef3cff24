package workflowlog_test

import (
	"testing"
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/core/domain/model/workflowlog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntry(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("should record a status transition", func(t *testing.T) {
		e, err := workflowlog.NewEntry(
			kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID(),
			order.ActionAcceptOrder, order.Confirmed, order.Assigned, now,
			map[string]string{"source": "manual"})

		require.NoError(t, err)
		assert.Equal(t, order.ActionAcceptOrder, e.Action())
		assert.Equal(t, order.Confirmed, e.PreviousStatus())
		assert.Equal(t, order.Assigned, e.NewStatus())
		assert.Equal(t, "assigned", e.Phase())
		assert.Equal(t, now, e.OccurredAt())
		assert.Equal(t, map[string]string{"source": "manual"}, e.Metadata())
		require.NoError(t, e.Validate())
	})

	t.Run("should allow marker entries without a status change", func(t *testing.T) {
		e, err := workflowlog.NewEntry(
			kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID(),
			workflowlog.ActionAutomationProcessed, order.Confirmed, order.Confirmed, now, nil)

		require.NoError(t, err)
		assert.Equal(t, e.PreviousStatus(), e.NewStatus())
		assert.Nil(t, e.Metadata())
	})

	t.Run("should require action and timestamp", func(t *testing.T) {
		_, err := workflowlog.NewEntry(kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID(),
			"", order.Pending, order.Confirmed, now, nil)
		require.Error(t, err)

		_, err = workflowlog.NewEntry(kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID(),
			order.ActionConfirmOrder, order.Pending, order.Confirmed, time.Time{}, nil)
		require.Error(t, err)
	})

	t.Run("should not alias the caller's metadata map", func(t *testing.T) {
		meta := map[string]string{"k": "v"}
		e, err := workflowlog.NewEntry(kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID(),
			order.ActionConfirmOrder, order.Pending, order.Confirmed, now, meta)
		require.NoError(t, err)

		meta["k"] = "changed"
		assert.Equal(t, "v", e.Metadata()["k"])
	})
}

func TestEntry_Validate(t *testing.T) {
	t.Run("should reject zero-value entries", func(t *testing.T) {
		var e workflowlog.Entry
		require.ErrorIs(t, e.Validate(), workflowlog.ErrEntryIsNotConstructed)
	})
}
