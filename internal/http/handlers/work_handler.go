package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vyvozim/hauling-backend/internal/http/handlers/common"
	"github.com/vyvozim/hauling-backend/internal/service"
)

// WorkHandler управляет сменой исполнителя.
type WorkHandler struct {
	availability *service.AvailabilityService
}

// NewWorkHandler создаёт новый хэндлер.
func NewWorkHandler(availability *service.AvailabilityService) *WorkHandler {
	return &WorkHandler{availability: availability}
}

// StartWork обрабатывает POST /work/start.
// Требует верифицированный аккаунт и минимальный баланс.
func (h *WorkHandler) StartWork(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}

	profile, err := h.availability.StartWork(c.Request.Context(), userID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Respond(c, http.StatusOK, gin.H{"executor_profile": profile})
}

// StopWork обрабатывает POST /work/stop.
func (h *WorkHandler) StopWork(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}

	profile, err := h.availability.StopWork(c.Request.Context(), userID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Respond(c, http.StatusOK, gin.H{"executor_profile": profile})
}

// Heartbeat обрабатывает POST /work/heartbeat.
// Продлевает аренду активности, пока приложение исполнителя живо.
func (h *WorkHandler) Heartbeat(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}

	if err := h.availability.Heartbeat(c.Request.Context(), userID); err != nil {
		common.Fail(c, err)
		return
	}

	common.RespondNoContent(c)
}
