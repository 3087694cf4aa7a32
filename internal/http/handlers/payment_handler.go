package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/vyvozim/hauling-backend/internal/http/handlers/common"
	"github.com/vyvozim/hauling-backend/internal/pkg/apperror"
	"github.com/vyvozim/hauling-backend/internal/repository"
	"github.com/vyvozim/hauling-backend/internal/service"
)

// PaymentHandler обслуживает оплату заказов и баланс исполнителя.
type PaymentHandler struct {
	payments *service.PaymentService
	users    *repository.UserRepository
}

// NewPaymentHandler создаёт новый хэндлер.
func NewPaymentHandler(payments *service.PaymentService, users *repository.UserRepository) *PaymentHandler {
	return &PaymentHandler{payments: payments, users: users}
}

type payOrderRequest struct {
	Method string `json:"method" binding:"required"`
}

// PayOrder обрабатывает POST /orders/:id/pay.
func (h *PaymentHandler) PayOrder(c *gin.Context) {
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

	var req payOrderRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	payment, err := h.payments.PayOrder(c.Request.Context(), userID, orderID, req.Method)
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Respond(c, http.StatusOK, gin.H{"payment": payment})
}

// GetOrderPayment обрабатывает GET /orders/:id/payment.
func (h *PaymentHandler) GetOrderPayment(c *gin.Context) {
	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, apperror.Validation(err.Error(), nil))
		return
	}

	payment, err := h.payments.GetOrderPayment(c.Request.Context(), orderID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Respond(c, http.StatusOK, gin.H{"payment": payment})
}

// GetBalance обрабатывает GET /balance.
func (h *PaymentHandler) GetBalance(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}

	profile, err := h.users.GetExecutorProfile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrExecutorNotFound) {
			common.Fail(c, apperror.ErrExecutorNotFound)
			return
		}
		common.Fail(c, err)
		return
	}

	common.Respond(c, http.StatusOK, gin.H{"balance": profile.Balance})
}

type depositRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// CreateDeposit обрабатывает POST /balance/deposit.
func (h *PaymentHandler) CreateDeposit(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}

	var req depositRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	checkout, err := h.payments.CreateDeposit(c.Request.Context(), userID, req.Amount)
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Respond(c, http.StatusCreated, checkout)
}

type confirmDepositRequest struct {
	GatewayRef string `json:"gateway_ref" binding:"required"`
}

// ConfirmDeposit обрабатывает POST /api/payments/deposits/confirm.
// Вызывается платёжным шлюзом, повторные вебхуки безопасны.
func (h *PaymentHandler) ConfirmDeposit(c *gin.Context) {
	var req confirmDepositRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	deposit, err := h.payments.ConfirmDeposit(c.Request.Context(), req.GatewayRef)
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Respond(c, http.StatusOK, gin.H{"deposit": deposit})
}

type withdrawRequest struct {
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	CardLast4 *string         `json:"card_last4"`
}

// CreateWithdrawal обрабатывает POST /balance/withdraw.
func (h *PaymentHandler) CreateWithdrawal(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}

	var req withdrawRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	withdrawal, err := h.payments.CreateWithdrawal(c.Request.Context(), userID, req.Amount, req.CardLast4)
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Respond(c, http.StatusCreated, gin.H{"withdrawal": withdrawal})
}

// ListTransactions обрабатывает GET /balance/transactions.
func (h *PaymentHandler) ListTransactions(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}

	limit, offset := common.ParsePagination(c)
	txns, err := h.payments.ListTransactions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Respond(c, http.StatusOK, gin.H{"transactions": txns})
}

// ListWithdrawals обрабатывает GET /balance/withdrawals.
func (h *PaymentHandler) ListWithdrawals(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}

	limit, offset := common.ParsePagination(c)
	ws, err := h.payments.ListWithdrawals(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Respond(c, http.StatusOK, gin.H{"withdrawals": ws})
}
