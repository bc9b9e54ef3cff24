package orderrepo_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fulfillment/internal/adapters/out/postgres/orderrepo"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/pkg/errs"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	postgresdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// OrderRepositoryIntegrationTestSuite provides integration tests for
// GormOrderRepository using PostgreSQL containers, with particular focus on
// the conditional status update that carries the optimistic concurrency
// guarantee.
type OrderRepositoryIntegrationTestSuite struct {
	suite.Suite
	container  *postgres.PostgresContainer
	db         *gorm.DB
	repository *orderrepo.GormOrderRepository
}

func (suite *OrderRepositoryIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	suite.Require().NoError(err)
	suite.container = container

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	suite.Require().NoError(err)

	db, err := gorm.Open(postgresdriver.Open(connStr), &gorm.Config{})
	suite.Require().NoError(err)
	suite.db = db

	suite.Require().NoError(db.AutoMigrate(&orderrepo.OrderDTO{}, &orderrepo.ItemDTO{}))
}

func (suite *OrderRepositoryIntegrationTestSuite) SetupTest() {
	suite.Require().NoError(suite.db.Exec("TRUNCATE TABLE orders, order_items").Error)
	suite.repository = orderrepo.NewGormOrderRepository(suite.db)
}

func (suite *OrderRepositoryIntegrationTestSuite) TearDownSuite() {
	if suite.container != nil {
		suite.Require().NoError(suite.container.Terminate(context.Background()))
	}
}

func (suite *OrderRepositoryIntegrationTestSuite) TestAdd_ValidOrder_Success() {
	ctx := context.Background()

	testOrder, items := suite.createTestOrder(2)

	err := suite.repository.Add(ctx, testOrder, items)
	suite.Require().NoError(err)

	suite.assertOrderCount(1)

	persisted, err := suite.repository.GetItems(ctx, testOrder.ID())
	suite.Require().NoError(err)
	suite.Len(persisted, 2)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestGet_ExistingOrder_ReturnsOrder() {
	ctx := context.Background()

	testOrder, items := suite.createTestOrder(1)
	suite.Require().NoError(suite.repository.Add(ctx, testOrder, items))

	retrieved, err := suite.repository.Get(ctx, testOrder.ID())
	suite.Require().NoError(err)

	suite.Equal(testOrder.ID(), retrieved.ID())
	suite.Equal(testOrder.CustomerID(), retrieved.CustomerID())
	suite.Equal(order.Pending, retrieved.Status())
	suite.Equal(order.PaymentPending, retrieved.PaymentStatus())
	suite.Nil(retrieved.AssignedShopper())
}

func (suite *OrderRepositoryIntegrationTestSuite) TestGet_NonExistentOrder_ReturnsNotFoundError() {
	ctx := context.Background()

	retrieved, err := suite.repository.Get(ctx, kernel.NewUUID())

	suite.Nil(retrieved)
	suite.Require().Error(err)

	var notFoundErr *errs.ObjectNotFoundError
	suite.Require().ErrorAs(err, &notFoundErr)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestUpdateStatus_ExpectedMatches_AppliesPatch() {
	ctx := context.Background()

	testOrder, items := suite.createTestOrder(1)
	suite.Require().NoError(suite.repository.Add(ctx, testOrder, items))

	patch, err := order.PrepareTransition(order.Pending, order.ActionConfirmOrder, time.Now())
	suite.Require().NoError(err)

	err = suite.repository.UpdateStatus(ctx, testOrder.ID(), order.Pending, patch)
	suite.Require().NoError(err)

	retrieved, err := suite.repository.Get(ctx, testOrder.ID())
	suite.Require().NoError(err)
	suite.Equal(order.Confirmed, retrieved.Status())
}

func (suite *OrderRepositoryIntegrationTestSuite) TestUpdateStatus_ExpectedStale_ReturnsConflict() {
	ctx := context.Background()

	testOrder, items := suite.createTestOrder(1)
	suite.Require().NoError(suite.repository.Add(ctx, testOrder, items))

	// First actor confirms the order.
	patch, err := order.PrepareTransition(order.Pending, order.ActionConfirmOrder, time.Now())
	suite.Require().NoError(err)
	suite.Require().NoError(suite.repository.UpdateStatus(ctx, testOrder.ID(), order.Pending, patch))

	// Second actor still believes the order is pending.
	err = suite.repository.UpdateStatus(ctx, testOrder.ID(), order.Pending, patch)
	suite.Require().Error(err)
	suite.Require().ErrorIs(err, errs.ErrConflict)

	// The stored status is untouched by the losing update.
	retrieved, err := suite.repository.Get(ctx, testOrder.ID())
	suite.Require().NoError(err)
	suite.Equal(order.Confirmed, retrieved.Status())
}

func (suite *OrderRepositoryIntegrationTestSuite) TestUpdateStatus_ConcurrentUpdates_ExactlyOneWins() {
	ctx := context.Background()

	testOrder, items := suite.createTestOrder(1)
	suite.Require().NoError(suite.repository.Add(ctx, testOrder, items))

	patch, err := order.PrepareTransition(order.Pending, order.ActionConfirmOrder, time.Now())
	suite.Require().NoError(err)

	// All writers race the same conditional update with the same expected
	// status. The row lock serializes them; only the first still matches.
	const writers = 8
	results := make([]error, writers)
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := range writers {
		go func() {
			defer wg.Done()
			results[i] = suite.repository.UpdateStatus(ctx, testOrder.ID(), order.Pending, patch)
		}()
	}
	wg.Wait()

	succeeded, conflicted := 0, 0
	for _, updateErr := range results {
		switch {
		case updateErr == nil:
			succeeded++
		case errors.Is(updateErr, errs.ErrConflict):
			conflicted++
		default:
			suite.Require().NoError(updateErr)
		}
	}
	suite.Equal(1, succeeded)
	suite.Equal(writers-1, conflicted)

	retrieved, err := suite.repository.Get(ctx, testOrder.ID())
	suite.Require().NoError(err)
	suite.Equal(order.Confirmed, retrieved.Status())
}

func (suite *OrderRepositoryIntegrationTestSuite) TestUpdateStatus_NonExistentOrder_ReturnsNotFound() {
	ctx := context.Background()

	patch, err := order.PrepareTransition(order.Pending, order.ActionConfirmOrder, time.Now())
	suite.Require().NoError(err)

	err = suite.repository.UpdateStatus(ctx, kernel.NewUUID(), order.Pending, patch)
	suite.Require().Error(err)

	var notFoundErr *errs.ObjectNotFoundError
	suite.Require().ErrorAs(err, &notFoundErr)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestUpdateStatus_StampsPhaseTimestamp() {
	ctx := context.Background()

	testOrder, items := suite.createTestOrderWithStatus(order.Assigned, 1)
	suite.Require().NoError(suite.repository.Add(ctx, testOrder, items))

	startedAt := time.Now().UTC().Truncate(time.Millisecond)
	patch, err := order.PrepareTransition(order.Assigned, order.ActionStartShopping, startedAt)
	suite.Require().NoError(err)

	err = suite.repository.UpdateStatus(ctx, testOrder.ID(), order.Assigned, patch)
	suite.Require().NoError(err)

	retrieved, err := suite.repository.Get(ctx, testOrder.ID())
	suite.Require().NoError(err)
	suite.Equal(order.Shopping, retrieved.Status())
	suite.Require().NotNil(retrieved.ShoppingStartedAt())
	suite.WithinDuration(startedAt, *retrieved.ShoppingStartedAt(), time.Second)
	suite.Nil(retrieved.ShoppingCompletedAt())
}

func (suite *OrderRepositoryIntegrationTestSuite) TestSetAssignedShopper_PinsShopper() {
	ctx := context.Background()

	testOrder, items := suite.createTestOrder(1)
	suite.Require().NoError(suite.repository.Add(ctx, testOrder, items))

	shopperID := kernel.NewUUID()
	suite.Require().NoError(suite.repository.SetAssignedShopper(ctx, testOrder.ID(), shopperID))

	retrieved, err := suite.repository.Get(ctx, testOrder.ID())
	suite.Require().NoError(err)
	suite.Require().NotNil(retrieved.AssignedShopper())
	suite.Equal(shopperID, *retrieved.AssignedShopper())
}

func (suite *OrderRepositoryIntegrationTestSuite) TestUpdateItem_PersistsPickingOutcome() {
	ctx := context.Background()

	testOrder, items := suite.createTestOrder(1)
	suite.Require().NoError(suite.repository.Add(ctx, testOrder, items))

	item := items[0]
	suite.Require().NoError(item.MarkFound(item.Quantity()))
	suite.Require().NoError(suite.repository.UpdateItem(ctx, item))

	retrieved, err := suite.repository.GetItem(ctx, testOrder.ID(), item.ID())
	suite.Require().NoError(err)
	suite.Equal(order.ItemFound, retrieved.ShoppingStatus())
	suite.Equal(item.Quantity(), retrieved.FoundQuantity())
}

func (suite *OrderRepositoryIntegrationTestSuite) TestAllItemsResolved_TracksPendingItems() {
	ctx := context.Background()

	testOrder, items := suite.createTestOrder(2)
	suite.Require().NoError(suite.repository.Add(ctx, testOrder, items))

	resolved, err := suite.repository.AllItemsResolved(ctx, testOrder.ID())
	suite.Require().NoError(err)
	suite.False(resolved)

	// Resolve both items, one found and one not available.
	suite.Require().NoError(items[0].MarkFound(1))
	suite.Require().NoError(suite.repository.UpdateItem(ctx, items[0]))
	items[1].MarkNotAvailable()
	suite.Require().NoError(suite.repository.UpdateItem(ctx, items[1]))

	resolved, err = suite.repository.AllItemsResolved(ctx, testOrder.ID())
	suite.Require().NoError(err)
	suite.True(resolved)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestGetStalledInStatus_FindsOldOrders() {
	ctx := context.Background()

	stalled, items := suite.createTestOrderWithStatus(order.Shopping, 1)
	suite.Require().NoError(suite.repository.Add(ctx, stalled, items))

	fresh, freshItems := suite.createTestOrderWithStatus(order.Shopping, 1)
	suite.Require().NoError(suite.repository.Add(ctx, fresh, freshItems))

	// Age the first order's status change past the cutoff.
	suite.Require().NoError(suite.db.Exec(
		"UPDATE orders SET status_changed_at = ? WHERE id = ?",
		time.Now().Add(-time.Hour), stalled.ID().Bytes()).Error)

	found, err := suite.repository.GetStalledInStatus(ctx, order.Shopping, time.Now().Add(-45*time.Minute))
	suite.Require().NoError(err)
	suite.Require().Len(found, 1)
	suite.Equal(stalled.ID(), found[0].ID())
}

func (suite *OrderRepositoryIntegrationTestSuite) TestGetStalledInStatus_IgnoresOtherStatuses() {
	ctx := context.Background()

	packed, items := suite.createTestOrderWithStatus(order.Packed, 1)
	suite.Require().NoError(suite.repository.Add(ctx, packed, items))

	suite.Require().NoError(suite.db.Exec(
		"UPDATE orders SET status_changed_at = ? WHERE id = ?",
		time.Now().Add(-time.Hour), packed.ID().Bytes()).Error)

	found, err := suite.repository.GetStalledInStatus(ctx, order.Shopping, time.Now().Add(-45*time.Minute))
	suite.Require().NoError(err)
	suite.Empty(found)
}

// createTestOrder creates a pending order with the given number of items.
func (suite *OrderRepositoryIntegrationTestSuite) createTestOrder(itemCount int) (*order.Order, []*order.Item) {
	return suite.createTestOrderWithStatus(order.Pending, itemCount)
}

// createTestOrderWithStatus creates an order in the given status with items.
func (suite *OrderRepositoryIntegrationTestSuite) createTestOrderWithStatus(
	status order.Status, itemCount int,
) (*order.Order, []*order.Item) {
	id := kernel.NewUUID()

	testOrder, err := order.RestoreOrder(
		id, kernel.NewUUID(), status, order.PaymentPending,
		nil, nil, nil, nil, nil)
	suite.Require().NoError(err)

	items := make([]*order.Item, 0, itemCount)
	for i := range itemCount {
		item, itemErr := order.NewItem(kernel.NewUUID(), id, "item", 1+i)
		suite.Require().NoError(itemErr)
		items = append(items, item)
	}

	return testOrder, items
}

// assertOrderCount verifies the number of orders in the database.
func (suite *OrderRepositoryIntegrationTestSuite) assertOrderCount(expected int) {
	var count int64
	err := suite.db.Model(&orderrepo.OrderDTO{}).Count(&count).Error
	suite.Require().NoError(err)
	suite.Equal(int64(expected), count)
}

func TestOrderRepositoryIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(OrderRepositoryIntegrationTestSuite))
}
