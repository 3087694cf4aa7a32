package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vyvozim/hauling-backend/internal/http/handlers/common"
	"github.com/vyvozim/hauling-backend/internal/pkg/apperror"
	"github.com/vyvozim/hauling-backend/internal/service"
)

// TicketHandler обслуживает тикеты поддержки.
type TicketHandler struct {
	tickets *service.TicketService
}

// NewTicketHandler создаёт новый хэндлер.
func NewTicketHandler(tickets *service.TicketService) *TicketHandler {
	return &TicketHandler{tickets: tickets}
}

type createTicketRequest struct {
	Subject     string `json:"subject" binding:"required"`
	Description string `json:"description" binding:"required"`
}

// CreateTicket обрабатывает POST /tickets.
func (h *TicketHandler) CreateTicket(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}

	var req createTicketRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	ticket, err := h.tickets.CreateTicket(c.Request.Context(), userID, req.Subject, req.Description)
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Respond(c, http.StatusCreated, gin.H{"ticket": ticket})
}

// ListTickets обрабатывает GET /tickets.
func (h *TicketHandler) ListTickets(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}

	limit, offset := common.ParsePagination(c)
	tickets, err := h.tickets.ListTickets(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Respond(c, http.StatusOK, gin.H{"tickets": tickets})
}

// GetTicket обрабатывает GET /tickets/:id.
func (h *TicketHandler) GetTicket(c *gin.Context) {
	userID, role, ticketID, ok := h.ticketContext(c)
	if !ok {
		return
	}

	ticket, messages, err := h.tickets.GetTicket(c.Request.Context(), userID, role, ticketID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Respond(c, http.StatusOK, gin.H{"ticket": ticket, "messages": messages})
}

type addMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// AddMessage обрабатывает POST /tickets/:id/messages.
func (h *TicketHandler) AddMessage(c *gin.Context) {
	userID, role, ticketID, ok := h.ticketContext(c)
	if !ok {
		return
	}

	var req addMessageRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	message, err := h.tickets.AddMessage(c.Request.Context(), userID, role, ticketID, req.Content)
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Respond(c, http.StatusCreated, gin.H{"message": message})
}

// CloseTicket обрабатывает POST /tickets/:id/close.
func (h *TicketHandler) CloseTicket(c *gin.Context) {
	userID, role, ticketID, ok := h.ticketContext(c)
	if !ok {
		return
	}

	if err := h.tickets.CloseTicket(c.Request.Context(), userID, role, ticketID); err != nil {
		common.Fail(c, err)
		return
	}

	common.RespondNoContent(c)
}

func (h *TicketHandler) ticketContext(c *gin.Context) (userID uuid.UUID, role string, ticketID uuid.UUID, ok bool) {
	uid, err := common.CurrentUserID(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}
	r, err := common.CurrentUserRole(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}
	tid, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, apperror.Validation(err.Error(), nil))
		return
	}
	return uid, r, tid, true
}
