package common

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vyvozim/hauling-backend/internal/http/middleware"
	"github.com/vyvozim/hauling-backend/internal/pkg/apperror"
)

// ErrUserNotFound возвращается, когда авторизованный пользователь
// отсутствует в контексте запроса.
var ErrUserNotFound = errors.New("пользователь не найден в контексте")

const (
	defaultLimit = 20
	maxLimit     = 100
)

// CurrentUserID извлекает userID из контекста.
func CurrentUserID(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return uuid.Nil, ErrUserNotFound
	}

	userID, ok := raw.(uuid.UUID)
	if !ok {
		return uuid.Nil, ErrUserNotFound
	}

	return userID, nil
}

// CurrentUserRole извлекает активную роль из контекста.
func CurrentUserRole(c *gin.Context) (string, error) {
	raw, exists := c.Get(middleware.ContextRoleKey)
	if !exists {
		return "", ErrUserNotFound
	}

	role, ok := raw.(string)
	if !ok {
		return "", ErrUserNotFound
	}

	return role, nil
}

// ParseUUIDParam читает UUID из параметра пути.
func ParseUUIDParam(c *gin.Context, paramName string) (uuid.UUID, error) {
	param := c.Param(paramName)
	if param == "" {
		return uuid.Nil, fmt.Errorf("параметр %s отсутствует", paramName)
	}

	parsed, err := uuid.Parse(param)
	if err != nil {
		return uuid.Nil, fmt.Errorf("параметр %s должен быть валидным UUID", paramName)
	}

	return parsed, nil
}

// ParsePagination читает limit и offset из query параметров.
func ParsePagination(c *gin.Context) (limit, offset int) {
	limit = defaultLimit
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	if raw := c.Query("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}

// BindJSON разбирает тело запроса и оборачивает ошибку в apperror.
func BindJSON(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return apperror.Validation("некорректное тело запроса", map[string]string{
			"body": err.Error(),
		})
	}
	return nil
}

// Respond отправляет успешный ответ в стандартном конверте.
func Respond(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, gin.H{"success": true, "data": data})
}

// RespondNoContent отправляет успешный ответ без данных.
func RespondNoContent(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Fail передаёт ошибку в централизованный обработчик.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
}

// FailUnauthorized отвечает 401 за пределами auth middleware.
func FailUnauthorized(c *gin.Context) {
	Fail(c, apperror.ErrUnauthorized)
}
