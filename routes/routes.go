package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"garagehub/handlers"
	"garagehub/middleware"
	"garagehub/utils"
)

// HandlerBundle groups the handlers the router needs.
type HandlerBundle struct {
	Appointments  *handlers.AppointmentHandler
	Loyalty       *handlers.LoyaltyHandler
	Devices       *handlers.DeviceHandler
	Notifications *handlers.NotificationHandler
	Cron          *handlers.CronHandler
}

// RegisterRoutes wires up all endpoints.
func RegisterRoutes(r *gin.Engine, hb *HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, utils.GetHealthStatus())
	})

	api := r.Group("/api")
	api.Use(middleware.JWTAuthMiddleware())
	{
		appointments := api.Group("/appointments")
		{
			appointments.POST("", hb.Appointments.Book)
			appointments.GET("", hb.Appointments.ListMine)
			appointments.GET("/:id", hb.Appointments.Get)
			appointments.PATCH("/:id", hb.Appointments.Modify)
			appointments.DELETE("/:id", hb.Appointments.Delete)
			appointments.POST("/:id/cancel", hb.Appointments.Cancel)
			appointments.POST("/:id/complete", hb.Appointments.Complete)
		}

		api.GET("/agenda", hb.Appointments.Agenda)

		loyalty := api.Group("/loyalty")
		{
			loyalty.GET("/balance", hb.Loyalty.Balance)
			loyalty.GET("/history", hb.Loyalty.History)
			loyalty.POST("/adjust", hb.Loyalty.Adjust)
			loyalty.POST("/redeem", hb.Loyalty.Redeem)
		}

		api.PUT("/devices/fcm-token", hb.Devices.UpdateFCMToken)
		api.POST("/notifications/broadcast", hb.Notifications.Broadcast)
	}

	// The hourly trigger is fired by the platform scheduler, not end
	// users; it stays off the authenticated API surface.
	r.POST("/internal/cron/reminders", hb.Cron.RunReminderSweep)
}
