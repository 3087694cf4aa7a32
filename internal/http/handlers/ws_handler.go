package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vyvozim/hauling-backend/internal/models"
	"github.com/vyvozim/hauling-backend/internal/service"
	"github.com/vyvozim/hauling-backend/internal/ws"
)

// WSHandler отвечает за установку WebSocket соединений.
type WSHandler struct {
	hub          *ws.Hub
	tokenManager *service.TokenManager
	availability *service.AvailabilityService
	upgrader     websocket.Upgrader
}

// NewWSHandler создаёт новый хэндлер.
func NewWSHandler(hub *ws.Hub, tokens *service.TokenManager, availability *service.AvailabilityService) *WSHandler {
	return &WSHandler{
		hub:          hub,
		tokenManager: tokens,
		availability: availability,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handle обслуживает GET /ws?token=...
// Мобильный клиент не может выставить Authorization на WebSocket,
// поэтому токен передаётся query параметром.
func (h *WSHandler) Handle(c *gin.Context) {
	rawToken := c.Query("token")
	if rawToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access токен обязателен"})
		return
	}

	userID, role, err := h.tokenManager.ParseAccess(rawToken)
	if err != nil || userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "невалидный access токен"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Для исполнителя живое соединение продлевает аренду активности.
	var onActivity func()
	if role == models.RoleExecutor {
		onActivity = func() {
			h.availability.TouchActivity(context.Background(), userID)
		}
	}

	client := ws.NewClient(conn, h.hub, userID, onActivity)
	h.hub.Register(client)

	client.Run(c.Request.Context())
}
