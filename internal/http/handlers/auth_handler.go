package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vyvozim/hauling-backend/internal/http/handlers/common"
	"github.com/vyvozim/hauling-backend/internal/service"
)

// AuthHandler обслуживает вход по SMS коду, регистрацию и управление ролями.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler создаёт новый хэндлер.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type sendCodeRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
}

// SendCode обрабатывает POST /auth/send-code.
func (h *AuthHandler) SendCode(c *gin.Context) {
	var req sendCodeRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	if err := h.auth.SendCode(c.Request.Context(), req.PhoneNumber); err != nil {
		common.Fail(c, err)
		return
	}

	common.RespondNoContent(c)
}

type verifyCodeRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	Code        string `json:"code" binding:"required"`
}

// VerifyCode обрабатывает POST /auth/verify-code.
// Для нового номера возвращает is_new_user = true, регистрация идёт отдельным
// запросом. Для существующего пользователя сразу выпускает токены.
func (h *AuthHandler) VerifyCode(c *gin.Context) {
	var req verifyCodeRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	result, err := h.auth.VerifyCode(c.Request.Context(), req.PhoneNumber, req.Code, h.sessionMeta(c))
	if err != nil {
		common.Fail(c, err)
		return
	}

	if result.IsNewUser {
		common.Respond(c, http.StatusOK, gin.H{"is_new_user": true})
		return
	}

	common.Respond(c, http.StatusOK, gin.H{
		"is_new_user": false,
		"user":        result.Auth.User,
		"tokens":      result.Auth.TokenPair,
	})
}

type registerClientRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	Name        string `json:"name" binding:"required"`
	City        string `json:"city" binding:"required"`
	Street      string `json:"street" binding:"required"`
	HouseNumber string `json:"house_number" binding:"required"`
}

// RegisterClient обрабатывает POST /auth/register/client.
func (h *AuthHandler) RegisterClient(c *gin.Context) {
	var req registerClientRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	result, err := h.auth.RegisterClient(c.Request.Context(), service.RegisterClientInput{
		Phone:       req.PhoneNumber,
		Name:        req.Name,
		City:        req.City,
		Street:      req.Street,
		HouseNumber: req.HouseNumber,
	}, h.sessionMeta(c))
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Respond(c, http.StatusCreated, gin.H{"user": result.User, "tokens": result.TokenPair})
}

type registerExecutorRequest struct {
	PhoneNumber     string            `json:"phone_number" binding:"required"`
	Name            string            `json:"name" binding:"required"`
	VehicleNumber   string            `json:"vehicle_number" binding:"required"`
	VehicleCapacity int               `json:"vehicle_capacity" binding:"required"`
	DocumentPaths   map[string]string `json:"document_paths" binding:"required"`
}

// RegisterExecutor обрабатывает POST /auth/register/executor.
// Документы загружаются заранее через /media/documents, сюда передаются пути.
func (h *AuthHandler) RegisterExecutor(c *gin.Context) {
	var req registerExecutorRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	result, err := h.auth.RegisterExecutor(c.Request.Context(), service.RegisterExecutorInput{
		Phone:           req.PhoneNumber,
		Name:            req.Name,
		VehicleNumber:   req.VehicleNumber,
		VehicleCapacity: req.VehicleCapacity,
		DocumentPaths:   req.DocumentPaths,
	}, h.sessionMeta(c))
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Respond(c, http.StatusCreated, gin.H{"user": result.User, "tokens": result.TokenPair})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh обрабатывает POST /auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	result, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken, h.sessionMeta(c))
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Respond(c, http.StatusOK, gin.H{"user": result.User, "tokens": result.TokenPair})
}

// Logout обрабатывает POST /auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	if err := h.auth.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		common.Fail(c, err)
		return
	}

	common.RespondNoContent(c)
}

type switchRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// SwitchRole обрабатывает POST /auth/switch-role.
// Токены перевыпускаются с новой активной ролью.
func (h *AuthHandler) SwitchRole(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}

	var req switchRoleRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	result, err := h.auth.SwitchActiveRole(c.Request.Context(), userID, req.Role, h.sessionMeta(c))
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Respond(c, http.StatusOK, gin.H{"user": result.User, "tokens": result.TokenPair})
}

type addClientRoleRequest struct {
	City        string `json:"city" binding:"required"`
	Street      string `json:"street" binding:"required"`
	HouseNumber string `json:"house_number" binding:"required"`
}

// AddClientRole обрабатывает POST /auth/roles/client.
func (h *AuthHandler) AddClientRole(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}

	var req addClientRoleRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	user, err := h.auth.AddClientRole(c.Request.Context(), userID, req.City, req.Street, req.HouseNumber)
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Respond(c, http.StatusOK, gin.H{"user": user})
}

type addExecutorRoleRequest struct {
	VehicleNumber   string            `json:"vehicle_number" binding:"required"`
	VehicleCapacity int               `json:"vehicle_capacity" binding:"required"`
	DocumentPaths   map[string]string `json:"document_paths"`
}

// AddExecutorRole обрабатывает POST /auth/roles/executor.
func (h *AuthHandler) AddExecutorRole(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}

	var req addExecutorRoleRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	user, err := h.auth.AddExecutorRole(c.Request.Context(), userID, req.VehicleNumber, req.VehicleCapacity, req.DocumentPaths)
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Respond(c, http.StatusOK, gin.H{"user": user})
}

// DeleteAccount обрабатывает DELETE /auth/account.
func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}

	if err := h.auth.DeleteAccount(c.Request.Context(), userID); err != nil {
		common.Fail(c, err)
		return
	}

	common.RespondNoContent(c)
}

func (h *AuthHandler) sessionMeta(c *gin.Context) service.SessionMeta {
	return service.SessionMeta{
		UserAgent: c.GetHeader("User-Agent"),
		IP:        c.ClientIP(),
	}
}
