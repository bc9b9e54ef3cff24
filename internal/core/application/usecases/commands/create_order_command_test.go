package commands_test

import (
	"testing"

	"fulfillment/internal/core/application/usecases/commands"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCreateOrderCommand_Success(t *testing.T) {
	orderID := kernel.NewUUID()
	customerID := kernel.NewUUID()
	items := []commands.ItemInput{{Name: "milk", Quantity: 2}, {Name: "bread", Quantity: 1}}

	cmd, err := commands.NewCreateOrderCommand(orderID, customerID, items)

	require.NoError(t, err)
	require.NoError(t, cmd.Validate())
	assert.Equal(t, orderID, cmd.OrderID())
	assert.Equal(t, customerID, cmd.CustomerID())
	assert.Len(t, cmd.Items(), 2)
}

func TestNewCreateOrderCommand_EmptyOrderID(t *testing.T) {
	_, err := commands.NewCreateOrderCommand(kernel.UUID{}, kernel.NewUUID(),
		[]commands.ItemInput{{Name: "milk", Quantity: 1}})
	require.Error(t, err)
}

func TestNewCreateOrderCommand_NoItems(t *testing.T) {
	_, err := commands.NewCreateOrderCommand(kernel.NewUUID(), kernel.NewUUID(), nil)
	require.ErrorIs(t, err, commands.ErrOrderNeedsItems)
}

func TestNewCreateOrderCommand_InvalidItems(t *testing.T) {
	_, err := commands.NewCreateOrderCommand(kernel.NewUUID(), kernel.NewUUID(),
		[]commands.ItemInput{{Name: "", Quantity: 1}})
	require.ErrorIs(t, err, errs.ErrValueIsRequired)

	_, err = commands.NewCreateOrderCommand(kernel.NewUUID(), kernel.NewUUID(),
		[]commands.ItemInput{{Name: "milk", Quantity: 0}})
	require.ErrorIs(t, err, errs.ErrValueIsInvalid)
}

func TestCreateOrderCommand_Validate_NotConstructed(t *testing.T) {
	cmd := commands.CreateOrderCommand{}
	require.ErrorIs(t, cmd.Validate(), commands.ErrCreateOrderCommandIsNotConstructed)
}
