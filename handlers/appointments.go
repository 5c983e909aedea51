package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"garagehub/database/repository"
	userRepo "garagehub/database/repository/user"
	"garagehub/middleware"
	"garagehub/models"
	"garagehub/services/scheduling"
	"garagehub/utils"
)

// AppointmentHandler exposes the scheduling engine over HTTP.
type AppointmentHandler struct {
	Svc    scheduling.SchedulingService
	Users  userRepo.UserRepository
	Logger *zap.Logger
}

func NewAppointmentHandler(svc scheduling.SchedulingService, users userRepo.UserRepository, logger *zap.Logger) *AppointmentHandler {
	return &AppointmentHandler{Svc: svc, Users: users, Logger: logger}
}

type bookInput struct {
	CustomerName string         `json:"customerName" binding:"required"`
	ServiceType  string         `json:"serviceType" binding:"required"`
	ScheduledAt  time.Time      `json:"scheduledAt" binding:"required"`
	Vehicle      models.Vehicle `json:"vehicle"`
	Notes        string         `json:"notes"`
}

// Book handles POST /api/appointments.
func (h *AppointmentHandler) Book(c *gin.Context) {
	var input bookInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	appt, err := h.Svc.Book(c.Request.Context(), models.BookingRequest{
		UserID:       middleware.ActingUserID(c),
		CustomerName: input.CustomerName,
		ServiceType:  input.ServiceType,
		ScheduledAt:  input.ScheduledAt,
		Vehicle:      input.Vehicle,
		Notes:        input.Notes,
	})
	if err != nil {
		h.respondSchedulingError(c, err)
		return
	}
	c.JSON(http.StatusCreated, appt)
}

// Modify handles PATCH /api/appointments/:id.
func (h *AppointmentHandler) Modify(c *gin.Context) {
	var change models.AppointmentChange
	if err := c.ShouldBindJSON(&change); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	appt, err := h.Svc.RequestModification(c.Request.Context(), c.Param("id"), change, middleware.ActingUserID(c))
	if err != nil {
		h.respondSchedulingError(c, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

// Cancel handles POST /api/appointments/:id/cancel.
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	if err := h.Svc.RequestCancellation(c.Request.Context(), c.Param("id"), middleware.ActingUserID(c)); err != nil {
		h.respondSchedulingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.StatusCancelled})
}

// Delete handles DELETE /api/appointments/:id.
func (h *AppointmentHandler) Delete(c *gin.Context) {
	if err := h.Svc.RequestDeletion(c.Request.Context(), c.Param("id"), middleware.ActingUserID(c)); err != nil {
		h.respondSchedulingError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Complete handles POST /api/appointments/:id/complete. Staff only.
func (h *AppointmentHandler) Complete(c *gin.Context) {
	if !h.requirePrivileged(c) {
		return
	}

	appt, err := h.Svc.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		var creditErr *scheduling.LoyaltyCreditError
		if errors.As(err, &creditErr) {
			// The appointment is completed; only the credit is pending.
			c.JSON(http.StatusOK, gin.H{
				"appointment": appt,
				"warning":     "loyalty credit pending: " + creditErr.Error(),
			})
			return
		}
		h.respondSchedulingError(c, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

// Get handles GET /api/appointments/:id.
func (h *AppointmentHandler) Get(c *gin.Context) {
	appt, err := h.Svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondSchedulingError(c, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

// ListMine handles GET /api/appointments.
func (h *AppointmentHandler) ListMine(c *gin.Context) {
	appts, err := h.Svc.ListForUser(c.Request.Context(), middleware.ActingUserID(c))
	if err != nil {
		h.respondSchedulingError(c, err)
		return
	}
	c.JSON(http.StatusOK, appts)
}

// Agenda handles GET /api/agenda?date=2006-01-02. Staff only.
func (h *AppointmentHandler) Agenda(c *gin.Context) {
	if !h.requirePrivileged(c) {
		return
	}

	day, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid date", "expected format 2006-01-02")
		return
	}

	appts, err := h.Svc.Agenda(c.Request.Context(), day)
	if err != nil {
		h.respondSchedulingError(c, err)
		return
	}
	c.JSON(http.StatusOK, appts)
}

func (h *AppointmentHandler) requirePrivileged(c *gin.Context) bool {
	user, err := h.Users.GetByID(c.Request.Context(), middleware.ActingUserID(c))
	if err != nil {
		utils.JSONError(c, http.StatusForbidden, "forbidden", "could not resolve acting user")
		return false
	}
	if !user.Privileged() {
		utils.JSONError(c, http.StatusForbidden, "forbidden", "staff role required")
		return false
	}
	return true
}

// respondSchedulingError maps the scheduling error taxonomy onto HTTP
// statuses. Slot conflicts and window violations carry different
// remediations, so their messages stay distinct.
func (h *AppointmentHandler) respondSchedulingError(c *gin.Context, err error) {
	var (
		slotErr  *scheduling.SlotTakenError
		ruleErr  *scheduling.RuleViolationError
		userErr  *scheduling.UserNotFoundError
		ownerErr *scheduling.NotOwnerError
	)
	switch {
	case errors.As(err, &slotErr):
		utils.JSONError(c, http.StatusConflict, "slot taken", slotErr.Error())
	case errors.As(err, &ruleErr):
		utils.JSONError(c, http.StatusForbidden, "within protected window", ruleErr.Error())
	case errors.As(err, &ownerErr):
		utils.JSONError(c, http.StatusForbidden, "forbidden", ownerErr.Error())
	case errors.As(err, &userErr):
		utils.JSONError(c, http.StatusPreconditionFailed, "unknown acting user", userErr.Error())
	case errors.Is(err, repository.ErrNotFound):
		utils.JSONError(c, http.StatusNotFound, "appointment not found", "")
	case errors.Is(err, repository.ErrNotActive):
		utils.JSONError(c, http.StatusConflict, "appointment is not active", "it was already completed or cancelled")
	case errors.Is(err, repository.ErrStoreContention):
		utils.JSONError(c, http.StatusServiceUnavailable, "store contention", "please retry")
	default:
		h.Logger.Error("scheduling request failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "internal error", err.Error())
	}
}
