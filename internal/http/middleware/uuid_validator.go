package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vyvozim/hauling-backend/internal/pkg/apperror"
)

// UUIDValidator проверяет, что параметр пути является валидным UUID.
// Использование: router.GET("/orders/:id", UUIDValidator("id"), handler.GetOrder)
func UUIDValidator(paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		idStr := c.Param(paramName)
		if idStr == "" {
			abortWithError(c, http.StatusBadRequest, apperror.ErrCodeValidation,
				"параметр "+paramName+" обязателен")
			return
		}

		if _, err := uuid.Parse(idStr); err != nil {
			abortWithError(c, http.StatusBadRequest, apperror.ErrCodeValidation,
				"параметр "+paramName+" должен быть валидным UUID")
			return
		}

		c.Next()
	}
}
