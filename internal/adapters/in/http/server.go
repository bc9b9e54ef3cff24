package http

import (
	"errors"
	"net/http"
	"time"

	"fulfillment/internal/core/application/automation"
	"fulfillment/internal/core/application/usecases/commands"
	"fulfillment/internal/core/application/usecases/queries"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/pkg/errs"

	"github.com/labstack/echo/v4"
)

// Server coordinates between HTTP handlers and application use cases.
type Server struct {
	// Command handlers
	createOrderHandler      commands.CreateOrderCommandHandler
	transitionOrderHandler  commands.TransitionOrderCommandHandler
	rollbackOrderHandler    commands.RollbackOrderCommandHandler
	updateItemStatusHandler commands.UpdateItemStatusCommandHandler

	// Query handlers
	getOrderHandler       queries.GetOrderQueryHandler
	getWorkflowLogHandler queries.GetWorkflowLogQueryHandler

	// Manual rule execution
	engine *automation.Engine
}

// NewServer creates a new HTTP server with the required command and query handlers.
func NewServer(
	createOrderHandler commands.CreateOrderCommandHandler,
	transitionOrderHandler commands.TransitionOrderCommandHandler,
	rollbackOrderHandler commands.RollbackOrderCommandHandler,
	updateItemStatusHandler commands.UpdateItemStatusCommandHandler,
	getOrderHandler queries.GetOrderQueryHandler,
	getWorkflowLogHandler queries.GetWorkflowLogQueryHandler,
	engine *automation.Engine,
) *Server {
	return &Server{
		createOrderHandler:      createOrderHandler,
		transitionOrderHandler:  transitionOrderHandler,
		rollbackOrderHandler:    rollbackOrderHandler,
		updateItemStatusHandler: updateItemStatusHandler,
		getOrderHandler:         getOrderHandler,
		getWorkflowLogHandler:   getWorkflowLogHandler,
		engine:                  engine,
	}
}

// RegisterRoutes attaches all API routes to the echo instance.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api/v1")
	api.POST("/orders", s.CreateOrder)
	api.GET("/orders/:orderId", s.GetOrder)
	api.GET("/orders/:orderId/log", s.GetWorkflowLog)
	api.POST("/orders/:orderId/transition", s.TransitionOrder)
	api.POST("/orders/:orderId/rollback", s.RollbackOrder)
	api.POST("/orders/:orderId/items/:itemId", s.UpdateItemStatus)
	api.POST("/rules/:ruleName/trigger", s.TriggerRule)
	e.GET("/health", s.Health)
}

// Error is the uniform error body of the API.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewOrderRequest is the body of POST /api/v1/orders.
type NewOrderRequest struct {
	CustomerID string         `json:"customerId"`
	Items      []NewOrderItem `json:"items"`
}

// NewOrderItem is one requested product line.
type NewOrderItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// NewOrderResponse is the body returned after a successful order creation.
type NewOrderResponse struct {
	ID string `json:"id"`
}

// TransitionRequest is the body of POST /api/v1/orders/{orderId}/transition.
// ExpectedStatus is the caller's last observed status: the transition only
// applies if the stored status still matches.
type TransitionRequest struct {
	ActorID        string            `json:"actorId"`
	ExpectedStatus string            `json:"expectedStatus"`
	Action         string            `json:"action"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// RollbackRequest is the body of POST /api/v1/orders/{orderId}/rollback.
type RollbackRequest struct {
	ActorID        string `json:"actorId"`
	ExpectedStatus string `json:"expectedStatus"`
	Reason         string `json:"reason,omitempty"`
}

// ItemStatusRequest is the body of POST /api/v1/orders/{orderId}/items/{itemId}.
type ItemStatusRequest struct {
	ActorID          string `json:"actorId"`
	Status           string `json:"status"`
	FoundQuantity    int    `json:"foundQuantity,omitempty"`
	SubstitutionData string `json:"substitutionData,omitempty"`
}

// TriggerRuleRequest is the body of POST /api/v1/rules/{ruleName}/trigger.
type TriggerRuleRequest struct {
	OrderID string `json:"orderId"`
}

// OrderResponse is the read model of an order as served by the API.
type OrderResponse struct {
	ID                  string              `json:"id"`
	CustomerID          string              `json:"customerId"`
	Status              string              `json:"status"`
	PaymentStatus       string              `json:"paymentStatus"`
	AssignedShopperID   *string             `json:"assignedShopperId,omitempty"`
	ShoppingStartedAt   *time.Time          `json:"shoppingStartedAt,omitempty"`
	ShoppingCompletedAt *time.Time          `json:"shoppingCompletedAt,omitempty"`
	DeliveryStartedAt   *time.Time          `json:"deliveryStartedAt,omitempty"`
	DeliveryCompletedAt *time.Time          `json:"deliveryCompletedAt,omitempty"`
	Items               []OrderItemResponse `json:"items"`
}

// OrderItemResponse is the read model of one order item.
type OrderItemResponse struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Quantity         int    `json:"quantity"`
	ShoppingStatus   string `json:"shoppingStatus"`
	FoundQuantity    int    `json:"foundQuantity,omitempty"`
	SubstitutionData string `json:"substitutionData,omitempty"`
}

// WorkflowLogEntryResponse is one entry of the order's audit trail.
type WorkflowLogEntryResponse struct {
	ID             string            `json:"id"`
	ActorID        string            `json:"actorId"`
	Action         string            `json:"action"`
	Phase          string            `json:"phase"`
	PreviousStatus string            `json:"previousStatus"`
	NewStatus      string            `json:"newStatus"`
	OccurredAt     time.Time         `json:"occurredAt"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// CreateOrder handles POST /api/v1/orders - registers a new order.
func (s *Server) CreateOrder(ctx echo.Context) error {
	var req NewOrderRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	customerID, err := kernel.UUIDFromString(req.CustomerID)
	if err != nil {
		return badRequest(ctx, "Invalid customer id: "+err.Error())
	}

	items := make([]commands.ItemInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = commands.ItemInput{Name: item.Name, Quantity: item.Quantity}
	}

	orderID := kernel.NewUUID()
	cmd, err := commands.NewCreateOrderCommand(orderID, customerID, items)
	if err != nil {
		return badRequest(ctx, "Invalid order data: "+err.Error())
	}

	if handleErr := s.createOrderHandler.Handle(ctx.Request().Context(), cmd); handleErr != nil {
		return writeError(ctx, handleErr)
	}

	return ctx.JSON(http.StatusCreated, NewOrderResponse{ID: orderID.String()})
}

// GetOrder handles GET /api/v1/orders/{orderId}.
func (s *Server) GetOrder(ctx echo.Context) error {
	orderID, err := kernel.UUIDFromString(ctx.Param("orderId"))
	if err != nil {
		return badRequest(ctx, "Invalid order id: "+err.Error())
	}

	query, err := queries.NewGetOrderQuery(orderID)
	if err != nil {
		return badRequest(ctx, "Invalid order id: "+err.Error())
	}

	result, err := s.getOrderHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		return writeError(ctx, err)
	}

	response := OrderResponse{
		ID:                  result.ID.String(),
		CustomerID:          result.CustomerID.String(),
		Status:              result.Status,
		PaymentStatus:       result.PaymentStatus,
		ShoppingStartedAt:   result.ShoppingStartedAt,
		ShoppingCompletedAt: result.ShoppingCompletedAt,
		DeliveryStartedAt:   result.DeliveryStartedAt,
		DeliveryCompletedAt: result.DeliveryCompletedAt,
		Items:               make([]OrderItemResponse, len(result.Items)),
	}
	if result.AssignedShopperID != nil {
		shopperID := result.AssignedShopperID.String()
		response.AssignedShopperID = &shopperID
	}
	for i, item := range result.Items {
		response.Items[i] = OrderItemResponse{
			ID:               item.ID.String(),
			Name:             item.Name,
			Quantity:         item.Quantity,
			ShoppingStatus:   item.ShoppingStatus,
			FoundQuantity:    item.FoundQuantity,
			SubstitutionData: item.SubstitutionData,
		}
	}

	return ctx.JSON(http.StatusOK, response)
}

// GetWorkflowLog handles GET /api/v1/orders/{orderId}/log - the order's audit trail.
func (s *Server) GetWorkflowLog(ctx echo.Context) error {
	orderID, err := kernel.UUIDFromString(ctx.Param("orderId"))
	if err != nil {
		return badRequest(ctx, "Invalid order id: "+err.Error())
	}

	query, err := queries.NewGetWorkflowLogQuery(orderID)
	if err != nil {
		return badRequest(ctx, "Invalid order id: "+err.Error())
	}

	entries, err := s.getWorkflowLogHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		return writeError(ctx, err)
	}

	response := make([]WorkflowLogEntryResponse, len(entries))
	for i, entry := range entries {
		response[i] = WorkflowLogEntryResponse{
			ID:             entry.ID.String(),
			ActorID:        entry.ActorID.String(),
			Action:         entry.Action,
			Phase:          entry.Phase,
			PreviousStatus: entry.PreviousStatus,
			NewStatus:      entry.NewStatus,
			OccurredAt:     entry.OccurredAt,
			Metadata:       entry.Metadata,
		}
	}

	return ctx.JSON(http.StatusOK, response)
}

// TransitionOrder handles POST /api/v1/orders/{orderId}/transition - advances
// the order through the workflow with optimistic concurrency control.
func (s *Server) TransitionOrder(ctx echo.Context) error {
	orderID, err := kernel.UUIDFromString(ctx.Param("orderId"))
	if err != nil {
		return badRequest(ctx, "Invalid order id: "+err.Error())
	}

	var req TransitionRequest
	if err = ctx.Bind(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	actorID, err := kernel.UUIDFromString(req.ActorID)
	if err != nil {
		return badRequest(ctx, "Invalid actor id: "+err.Error())
	}
	expected, err := order.StatusFromString(req.ExpectedStatus)
	if err != nil {
		return badRequest(ctx, "Invalid expected status: "+err.Error())
	}

	cmd, err := commands.NewTransitionOrderCommand(orderID, actorID, expected, order.Action(req.Action))
	if err != nil {
		return badRequest(ctx, "Invalid transition data: "+err.Error())
	}
	if len(req.Metadata) > 0 {
		cmd = cmd.WithMetadata(req.Metadata)
	}

	if handleErr := s.transitionOrderHandler.Handle(ctx.Request().Context(), cmd); handleErr != nil {
		return writeError(ctx, handleErr)
	}

	return ctx.NoContent(http.StatusNoContent)
}

// RollbackOrder handles POST /api/v1/orders/{orderId}/rollback - reverses the
// last transition along a whitelisted edge.
func (s *Server) RollbackOrder(ctx echo.Context) error {
	orderID, err := kernel.UUIDFromString(ctx.Param("orderId"))
	if err != nil {
		return badRequest(ctx, "Invalid order id: "+err.Error())
	}

	var req RollbackRequest
	if err = ctx.Bind(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	actorID, err := kernel.UUIDFromString(req.ActorID)
	if err != nil {
		return badRequest(ctx, "Invalid actor id: "+err.Error())
	}
	expected, err := order.StatusFromString(req.ExpectedStatus)
	if err != nil {
		return badRequest(ctx, "Invalid expected status: "+err.Error())
	}

	cmd, err := commands.NewRollbackOrderCommand(orderID, actorID, expected, req.Reason)
	if err != nil {
		return badRequest(ctx, "Invalid rollback data: "+err.Error())
	}

	if handleErr := s.rollbackOrderHandler.Handle(ctx.Request().Context(), cmd); handleErr != nil {
		return writeError(ctx, handleErr)
	}

	return ctx.NoContent(http.StatusNoContent)
}

// UpdateItemStatus handles POST /api/v1/orders/{orderId}/items/{itemId} -
// records a shopper's picking outcome for one item.
func (s *Server) UpdateItemStatus(ctx echo.Context) error {
	orderID, err := kernel.UUIDFromString(ctx.Param("orderId"))
	if err != nil {
		return badRequest(ctx, "Invalid order id: "+err.Error())
	}
	itemID, err := kernel.UUIDFromString(ctx.Param("itemId"))
	if err != nil {
		return badRequest(ctx, "Invalid item id: "+err.Error())
	}

	var req ItemStatusRequest
	if err = ctx.Bind(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	actorID, err := kernel.UUIDFromString(req.ActorID)
	if err != nil {
		return badRequest(ctx, "Invalid actor id: "+err.Error())
	}
	status, err := order.ShoppingStatusFromString(req.Status)
	if err != nil {
		return badRequest(ctx, "Invalid item status: "+err.Error())
	}

	cmd, err := commands.NewUpdateItemStatusCommand(
		orderID, itemID, actorID, status, req.FoundQuantity, req.SubstitutionData)
	if err != nil {
		return badRequest(ctx, "Invalid item data: "+err.Error())
	}

	if handleErr := s.updateItemStatusHandler.Handle(ctx.Request().Context(), cmd); handleErr != nil {
		return writeError(ctx, handleErr)
	}

	return ctx.NoContent(http.StatusNoContent)
}

// TriggerRule handles POST /api/v1/rules/{ruleName}/trigger - runs one
// automation rule against an order on demand. The rule's conditions still
// apply; only the trigger-status filter and the delay are bypassed.
func (s *Server) TriggerRule(ctx echo.Context) error {
	var req TriggerRuleRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	orderID, err := kernel.UUIDFromString(req.OrderID)
	if err != nil {
		return badRequest(ctx, "Invalid order id: "+err.Error())
	}

	if err = s.engine.TriggerRule(ctx.Request().Context(), ctx.Param("ruleName"), orderID); err != nil {
		return writeError(ctx, err)
	}

	return ctx.NoContent(http.StatusAccepted)
}

// Health handles GET /health.
func (s *Server) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// writeError maps application errors to API status codes. A conflict tells
// the caller their view of the order is stale; refetching and retrying is
// the designed recovery.
func writeError(ctx echo.Context, err error) error {
	switch {
	case errors.Is(err, errs.ErrConflict):
		return ctx.JSON(http.StatusConflict, Error{
			Code:    http.StatusConflict,
			Message: "Order state changed, please refresh",
		})
	case errors.Is(err, errs.ErrInvalidTransition):
		return ctx.JSON(http.StatusUnprocessableEntity, Error{
			Code:    http.StatusUnprocessableEntity,
			Message: err.Error(),
		})
	case errors.Is(err, errs.ErrObjectNotFound):
		return ctx.JSON(http.StatusNotFound, Error{
			Code:    http.StatusNotFound,
			Message: err.Error(),
		})
	case errors.Is(err, errs.ErrValueIsInvalid),
		errors.Is(err, errs.ErrValueIsRequired),
		errors.Is(err, errs.ErrValueIsOutOfRange),
		errors.Is(err, errs.ErrRuleConfiguration):
		return ctx.JSON(http.StatusBadRequest, Error{
			Code:    http.StatusBadRequest,
			Message: err.Error(),
		})
	default:
		return ctx.JSON(http.StatusInternalServerError, Error{
			Code:    http.StatusInternalServerError,
			Message: "Internal server error",
		})
	}
}

func badRequest(ctx echo.Context, message string) error {
	return ctx.JSON(http.StatusBadRequest, Error{
		Code:    http.StatusBadRequest,
		Message: message,
	})
}
