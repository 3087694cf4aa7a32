package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vyvozim/hauling-backend/internal/http/handlers/common"
	"github.com/vyvozim/hauling-backend/internal/pkg/apperror"
	"github.com/vyvozim/hauling-backend/internal/service"
)

// NotificationHandler отдаёт ленту уведомлений.
type NotificationHandler struct {
	notifications *service.NotificationService
}

// NewNotificationHandler создаёт новый хэндлер.
func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List обрабатывает GET /notifications.
func (h *NotificationHandler) List(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}

	limit, offset := common.ParsePagination(c)
	unreadOnly := c.Query("unread") == "true"

	notifications, err := h.notifications.List(c.Request.Context(), userID, limit, offset, unreadOnly)
	if err != nil {
		common.Fail(c, err)
		return
	}

	unread, err := h.notifications.CountUnread(c.Request.Context(), userID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Respond(c, http.StatusOK, gin.H{
		"notifications": notifications,
		"unread_count":  unread,
	})
}

// MarkAsRead обрабатывает POST /notifications/:id/read.
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}

	notificationID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, apperror.Validation(err.Error(), nil))
		return
	}

	if err := h.notifications.MarkAsRead(c.Request.Context(), userID, notificationID); err != nil {
		common.Fail(c, err)
		return
	}

	common.RespondNoContent(c)
}

// MarkAllAsRead обрабатывает POST /notifications/read-all.
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}

	if err := h.notifications.MarkAllAsRead(c.Request.Context(), userID); err != nil {
		common.Fail(c, err)
		return
	}

	common.RespondNoContent(c)
}
