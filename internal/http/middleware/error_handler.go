package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vyvozim/hauling-backend/internal/logger"
	"github.com/vyvozim/hauling-backend/internal/pkg/apperror"
)

// ErrorHandler централизованно превращает ошибки хэндлеров в JSON ответ.
// Доменные ошибки apperror уходят клиенту с кодом и статусом, всё
// остальное маскируется под внутреннюю ошибку.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		if appErr, ok := apperror.AsAppError(err); ok {
			body := gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			}
			if len(appErr.Details) > 0 {
				body["details"] = appErr.Details
			}
			c.JSON(appErr.HTTPStatus, gin.H{"success": false, "error": body})
			return
		}

		if logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"error":  err.Error(),
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).Error("необработанная ошибка запроса")
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    apperror.ErrCodeInternal,
				"message": "внутренняя ошибка сервера",
			},
		})
	}
}
