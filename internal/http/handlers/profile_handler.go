package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vyvozim/hauling-backend/internal/http/handlers/common"
	"github.com/vyvozim/hauling-backend/internal/models"
	"github.com/vyvozim/hauling-backend/internal/pkg/apperror"
	"github.com/vyvozim/hauling-backend/internal/repository"
	"github.com/vyvozim/hauling-backend/internal/service"
)

// ProfileHandler отдаёт и обновляет профиль пользователя.
type ProfileHandler struct {
	auth  *service.AuthService
	users *repository.UserRepository
}

// NewProfileHandler создаёт новый хэндлер.
func NewProfileHandler(auth *service.AuthService, users *repository.UserRepository) *ProfileHandler {
	return &ProfileHandler{auth: auth, users: users}
}

// GetProfile обрабатывает GET /profile.
// Возвращает пользователя и профили всех его ролей.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}

	user, err := h.auth.GetUser(c.Request.Context(), userID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	resp := gin.H{"user": user}

	if user.HasRole(models.RoleClient) {
		profile, err := h.users.GetClientProfile(c.Request.Context(), userID)
		if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
			common.Fail(c, err)
			return
		}
		if profile != nil {
			resp["client_profile"] = profile
		}
	}

	if user.HasRole(models.RoleExecutor) {
		profile, err := h.users.GetExecutorProfile(c.Request.Context(), userID)
		if err != nil && !errors.Is(err, repository.ErrExecutorNotFound) {
			common.Fail(c, err)
			return
		}
		if profile != nil {
			resp["executor_profile"] = profile
		}

		docs, err := h.users.ListExecutorDocuments(c.Request.Context(), userID)
		if err != nil {
			common.Fail(c, err)
			return
		}
		resp["documents"] = docs
	}

	common.Respond(c, http.StatusOK, resp)
}

type updateProfileRequest struct {
	Name        *string `json:"name"`
	City        *string `json:"city"`
	Street      *string `json:"street"`
	HouseNumber *string `json:"house_number"`
}

// UpdateProfile обрабатывает PATCH /profile.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}

	var req updateProfileRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	user, err := h.auth.UpdateProfile(c.Request.Context(), userID, req.Name, req.City, req.Street, req.HouseNumber)
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Respond(c, http.StatusOK, gin.H{"user": user})
}

type updateVehicleRequest struct {
	VehicleNumber   string `json:"vehicle_number" binding:"required"`
	VehicleCapacity int    `json:"vehicle_capacity" binding:"required"`
}

// UpdateVehicle обрабатывает PATCH /profile/vehicle.
func (h *ProfileHandler) UpdateVehicle(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}

	var req updateVehicleRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	if _, ok := models.ValidVehicleCapacities[req.VehicleCapacity]; !ok {
		common.Fail(c, apperror.Validation("некорректная вместимость", map[string]string{
			"vehicle_capacity": "допустимы значения 3, 5 и 10",
		}))
		return
	}

	if err := h.users.UpdateExecutorVehicle(c.Request.Context(), userID, req.VehicleNumber, req.VehicleCapacity); err != nil {
		if errors.Is(err, repository.ErrExecutorNotFound) {
			common.Fail(c, apperror.ErrExecutorNotFound)
			return
		}
		common.Fail(c, err)
		return
	}

	profile, err := h.users.GetExecutorProfile(c.Request.Context(), userID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Respond(c, http.StatusOK, gin.H{"executor_profile": profile})
}
