package queries_test

import (
	"context"
	"testing"
	"time"

	"fulfillment/internal/adapters/out/postgres/orderrepo"
	"fulfillment/internal/adapters/out/postgres/workflowlogrepo"
	"fulfillment/internal/core/application/usecases/queries"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/core/domain/model/workflowlog"
	"fulfillment/internal/pkg/errs"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	postgresdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// QueriesIntegrationTestSuite verifies the raw-SQL read side against a real
// PostgreSQL schema created by the write-side DTOs.
type QueriesIntegrationTestSuite struct {
	suite.Suite
	container *postgres.PostgresContainer
	db        *gorm.DB
}

func (suite *QueriesIntegrationTestSuite) SetupSuite() {
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

	suite.Require().NoError(db.AutoMigrate(
		&orderrepo.OrderDTO{},
		&orderrepo.ItemDTO{},
		&workflowlogrepo.EntryDTO{},
	))
}

func (suite *QueriesIntegrationTestSuite) SetupTest() {
	suite.Require().NoError(suite.db.Exec("TRUNCATE TABLE orders, order_items, workflow_log").Error)
}

func (suite *QueriesIntegrationTestSuite) TearDownSuite() {
	if suite.container != nil {
		suite.Require().NoError(suite.container.Terminate(context.Background()))
	}
}

func (suite *QueriesIntegrationTestSuite) TestGetOrder_ReturnsOrderWithItems() {
	ctx := context.Background()

	orderID := suite.seedOrder(order.Shopping)
	suite.seedItem(orderID, "milk", 2, order.ItemFound, 2, "")
	suite.seedItem(orderID, "bread", 1, order.ItemPending, 0, "")

	handler := queries.NewGetOrderQueryHandler(suite.db)
	query, err := queries.NewGetOrderQuery(orderID)
	suite.Require().NoError(err)

	resp, err := handler.Handle(ctx, query)
	suite.Require().NoError(err)

	suite.Equal(orderID, resp.ID)
	suite.Equal("shopping", resp.Status)
	suite.Equal("succeeded", resp.PaymentStatus)
	suite.Require().Len(resp.Items, 2)

	byName := map[string]queries.GetOrderItemResponse{}
	for _, item := range resp.Items {
		byName[item.Name] = item
	}
	suite.Equal("found", byName["milk"].ShoppingStatus)
	suite.Equal(2, byName["milk"].FoundQuantity)
	suite.Equal("pending", byName["bread"].ShoppingStatus)
}

func (suite *QueriesIntegrationTestSuite) TestGetOrder_NonExistent_ReturnsNotFound() {
	handler := queries.NewGetOrderQueryHandler(suite.db)
	query, err := queries.NewGetOrderQuery(kernel.NewUUID())
	suite.Require().NoError(err)

	_, err = handler.Handle(context.Background(), query)
	suite.Require().Error(err)

	var notFoundErr *errs.ObjectNotFoundError
	suite.Require().ErrorAs(err, &notFoundErr)
}

func (suite *QueriesIntegrationTestSuite) TestGetWorkflowLog_ReturnsEntriesInOrder() {
	ctx := context.Background()

	orderID := suite.seedOrder(order.Assigned)
	actorID := kernel.NewUUID()
	base := time.Now().UTC().Truncate(time.Millisecond)

	suite.seedEntry(orderID, actorID, order.ActionConfirmOrder,
		order.Pending, order.Confirmed, base, nil)
	suite.seedEntry(orderID, actorID, order.ActionAcceptOrder,
		order.Confirmed, order.Assigned, base.Add(time.Minute),
		map[string]string{"device": "mobile"})

	handler := queries.NewGetWorkflowLogQueryHandler(suite.db)
	query, err := queries.NewGetWorkflowLogQuery(orderID)
	suite.Require().NoError(err)

	trail, err := handler.Handle(ctx, query)
	suite.Require().NoError(err)
	suite.Require().Len(trail, 2)

	suite.Equal("confirm_order", trail[0].Action)
	suite.Equal("pending", trail[0].PreviousStatus)
	suite.Equal("confirmed", trail[0].NewStatus)

	suite.Equal("accept_order", trail[1].Action)
	suite.Equal("mobile", trail[1].Metadata["device"])
}

func (suite *QueriesIntegrationTestSuite) TestGetWorkflowLog_UnknownOrder_ReturnsEmptyTrail() {
	handler := queries.NewGetWorkflowLogQueryHandler(suite.db)
	query, err := queries.NewGetWorkflowLogQuery(kernel.NewUUID())
	suite.Require().NoError(err)

	trail, err := handler.Handle(context.Background(), query)
	suite.Require().NoError(err)
	suite.Empty(trail)
}

// seedOrder persists an order through the write-side repository.
func (suite *QueriesIntegrationTestSuite) seedOrder(status order.Status) kernel.UUID {
	id := kernel.NewUUID()
	testOrder, err := order.RestoreOrder(
		id, kernel.NewUUID(), status, order.PaymentSucceeded,
		nil, nil, nil, nil, nil)
	suite.Require().NoError(err)

	repo := orderrepo.NewGormOrderRepository(suite.db)
	suite.Require().NoError(repo.Add(context.Background(), testOrder, nil))
	return id
}

func (suite *QueriesIntegrationTestSuite) seedItem(
	orderID kernel.UUID, name string, quantity int,
	status order.ShoppingStatus, foundQuantity int, substitutionData string,
) {
	item, err := order.RestoreItem(
		kernel.NewUUID(), orderID, name, quantity, status, foundQuantity, substitutionData)
	suite.Require().NoError(err)

	suite.Require().NoError(suite.db.Exec(
		"INSERT INTO order_items (id, order_id, name, quantity, shopping_status, found_quantity, substitution_data) VALUES (?, ?, ?, ?, ?, ?, ?)",
		item.ID().Bytes(), orderID.Bytes(), item.Name(), item.Quantity(),
		item.ShoppingStatus().String(), item.FoundQuantity(), item.SubstitutionData()).Error)
}

func (suite *QueriesIntegrationTestSuite) seedEntry(
	orderID, actorID kernel.UUID, action order.Action,
	prev, next order.Status, occurredAt time.Time, metadata map[string]string,
) {
	entry, err := workflowlog.NewEntry(
		kernel.NewUUID(), orderID, actorID, action, prev, next, occurredAt, metadata)
	suite.Require().NoError(err)

	repo := workflowlogrepo.NewGormWorkflowLogRepository(suite.db)
	suite.Require().NoError(repo.Append(context.Background(), entry))
}

func TestQueriesIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(QueriesIntegrationTestSuite))
}
