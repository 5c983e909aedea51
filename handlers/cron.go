package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"garagehub/services/reminder"
	"garagehub/utils"
)

// CronHandler is the externally fired hourly trigger. The sweep's hour lock
// makes a duplicate invocation within the same hour a no-op, so the
// external scheduler and the internal asynq schedule can coexist.
type CronHandler struct {
	Sweeper *reminder.Sweeper
	Logger  *zap.Logger
}

func NewCronHandler(sweeper *reminder.Sweeper, logger *zap.Logger) *CronHandler {
	return &CronHandler{Sweeper: sweeper, Logger: logger}
}

// RunReminderSweep handles POST /internal/cron/reminders.
func (h *CronHandler) RunReminderSweep(c *gin.Context) {
	report, err := h.Sweeper.RunSweep(c.Request.Context(), time.Now().UTC())
	if err != nil {
		h.Logger.Error("reminder sweep failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "sweep failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, report)
}
