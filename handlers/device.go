package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	userRepo "garagehub/database/repository/user"
	"garagehub/middleware"
	"garagehub/utils"
)

// DeviceHandler manages the user's push delivery address.
type DeviceHandler struct {
	Users userRepo.UserRepository
}

func NewDeviceHandler(users userRepo.UserRepository) *DeviceHandler {
	return &DeviceHandler{Users: users}
}

type fcmTokenInput struct {
	Token string `json:"token" binding:"required"`
}

// UpdateFCMToken handles PUT /api/devices/fcm-token.
func (h *DeviceHandler) UpdateFCMToken(c *gin.Context) {
	var input fcmTokenInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	if err := h.Users.UpdateFCMToken(c.Request.Context(), middleware.ActingUserID(c), input.Token); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "token update failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}
