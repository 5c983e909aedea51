package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	userRepo "garagehub/database/repository/user"
	"garagehub/middleware"
	"garagehub/services/notification"
	"garagehub/utils"
)

// NotificationHandler exposes the staff broadcast endpoint.
type NotificationHandler struct {
	Svc    *notification.Service
	Users  userRepo.UserRepository
	Logger *zap.Logger
}

func NewNotificationHandler(svc *notification.Service, users userRepo.UserRepository, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{Svc: svc, Users: users, Logger: logger}
}

type broadcastInput struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body" binding:"required"`
}

// Broadcast handles POST /api/notifications/broadcast. Staff only; sends
// to every user opted in to promotions and prunes stale tokens reported by
// the gateway.
func (h *NotificationHandler) Broadcast(c *gin.Context) {
	actor, err := h.Users.GetByID(c.Request.Context(), middleware.ActingUserID(c))
	if err != nil || !actor.Privileged() {
		utils.JSONError(c, http.StatusForbidden, "forbidden", "staff role required")
		return
	}

	var input broadcastInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	recipients, err := h.Users.ListPromotable(c.Request.Context())
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "recipient lookup failed", err.Error())
		return
	}

	result, err := h.Svc.Broadcast(c.Request.Context(), recipients, input.Title, input.Body, map[string]string{
		"type": "promotion",
	})
	if err != nil {
		h.Logger.Error("broadcast failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "broadcast failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sent":   result.SuccessCount,
		"failed": len(result.Failures),
	})
}
