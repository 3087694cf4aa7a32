package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vyvozim/hauling-backend/internal/http/handlers/common"
	"github.com/vyvozim/hauling-backend/internal/models"
	"github.com/vyvozim/hauling-backend/internal/pkg/apperror"
	"github.com/vyvozim/hauling-backend/internal/service"
)

// OrderHandler обслуживает жизненный цикл заказов.
type OrderHandler struct {
	orders *service.OrderService
}

// NewOrderHandler создаёт новый хэндлер.
func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type createOrderRequest struct {
	VehicleCapacity int     `json:"vehicle_capacity" binding:"required"`
	City            string  `json:"city" binding:"required"`
	Street          string  `json:"street" binding:"required"`
	HouseNumber     string  `json:"house_number" binding:"required"`
	ScheduledDate   string  `json:"scheduled_date"`
	ScheduledTime   string  `json:"scheduled_time"`
	Comment         *string `json:"comment"`
	IsUrgent        bool    `json:"is_urgent"`
}

// CreateOrder обрабатывает POST /orders.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}

	var req createOrderRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	var scheduledDate time.Time
	if !req.IsUrgent {
		scheduledDate, err = time.Parse("2006-01-02", req.ScheduledDate)
		if err != nil {
			common.Fail(c, apperror.Validation("некорректная дата", map[string]string{
				"scheduled_date": "дата должна быть в формате ГГГГ-ММ-ДД",
			}))
			return
		}
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), service.CreateOrderInput{
		ClientID:        userID,
		VehicleCapacity: req.VehicleCapacity,
		City:            req.City,
		Street:          req.Street,
		HouseNumber:     req.HouseNumber,
		ScheduledDate:   scheduledDate,
		ScheduledTime:   req.ScheduledTime,
		Comment:         req.Comment,
		IsUrgent:        req.IsUrgent,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Respond(c, http.StatusCreated, gin.H{"order": order})
}

// ListMyOrders обрабатывает GET /orders/my для клиента.
func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}

	limit, offset := common.ParsePagination(c)
	orders, err := h.orders.ListClientOrders(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Respond(c, http.StatusOK, gin.H{"orders": orders})
}

// ListAvailable обрабатывает GET /orders/available для исполнителя на смене.
func (h *OrderHandler) ListAvailable(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}

	limit, offset := common.ParsePagination(c)
	orders, err := h.orders.ListAvailableOrders(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Respond(c, http.StatusOK, gin.H{"orders": orders})
}

// ListActive обрабатывает GET /orders/active для исполнителя.
func (h *OrderHandler) ListActive(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}

	orders, err := h.orders.ListExecutorActiveOrders(c.Request.Context(), userID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Respond(c, http.StatusOK, gin.H{"orders": orders})
}

// ListHistory обрабатывает GET /orders/history для исполнителя.
func (h *OrderHandler) ListHistory(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}

	limit, offset := common.ParsePagination(c)
	orders, err := h.orders.ListExecutorHistory(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Respond(c, http.StatusOK, gin.H{"orders": orders})
}

// GetOrder обрабатывает GET /orders/:id.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}
	role, err := common.CurrentUserRole(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}

	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, apperror.Validation(err.Error(), nil))
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), userID, role, orderID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Respond(c, http.StatusOK, gin.H{"order": order})
}

// Accept обрабатывает POST /orders/:id/accept.
func (h *OrderHandler) Accept(c *gin.Context) {
	h.executorAction(c, h.orders.AcceptOrder)
}

// Start обрабатывает POST /orders/:id/start.
func (h *OrderHandler) Start(c *gin.Context) {
	h.executorAction(c, h.orders.StartOrder)
}

// Complete обрабатывает POST /orders/:id/complete.
func (h *OrderHandler) Complete(c *gin.Context) {
	h.executorAction(c, h.orders.CompleteOrder)
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

// Cancel обрабатывает POST /orders/:id/cancel.
func (h *OrderHandler) Cancel(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}
	role, err := common.CurrentUserRole(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}

	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, apperror.Validation(err.Error(), nil))
		return
	}

	var req cancelOrderRequest
	if c.Request.ContentLength > 0 {
		if err := common.BindJSON(c, &req); err != nil {
			common.Fail(c, err)
			return
		}
	}

	order, err := h.orders.CancelOrder(c.Request.Context(), userID, role, orderID, req.Reason)
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Respond(c, http.StatusOK, gin.H{"order": order})
}

// executorAction общая обвязка для accept/start/complete.
func (h *OrderHandler) executorAction(c *gin.Context, fn func(ctx context.Context, executorID, orderID uuid.UUID) (*models.Order, error)) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}

	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, apperror.Validation(err.Error(), nil))
		return
	}

	order, err := fn(c.Request.Context(), userID, orderID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Respond(c, http.StatusOK, gin.H{"order": order})
}
