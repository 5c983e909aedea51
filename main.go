package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"garagehub/config"
	"garagehub/cron"
	"garagehub/database"
	appointmentRepo "garagehub/database/repository/appointment"
	loyaltyRepo "garagehub/database/repository/loyalty"
	userRepoPkg "garagehub/database/repository/user"
	"garagehub/handlers"
	"garagehub/middleware"
	"garagehub/routes"
	"garagehub/services/loyalty"
	"garagehub/services/notification"
	"garagehub/services/reminder"
	"garagehub/services/scheduling"
	"garagehub/utils"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	ctx := context.Background()

	mongoClient, err := database.Connect(ctx, config.AppConfig.DatabaseURL)
	if err != nil {
		logger.Sugar().Fatalf("main: %v", err)
	}
	db := mongoClient.Database(config.AppConfig.DatabaseName)

	cacheClient, err := utils.NewCacheClient(config.AppConfig)
	if err != nil {
		logger.Sugar().Fatalf("main: %v", err)
	}

	fcmClient, err := utils.NewFCMClient(ctx, config.AppConfig)
	if err != nil {
		logger.Sugar().Fatalf("main: %v", err)
	}

	utils.StartHealthMonitor(cacheClient, mongoClient)

	// Repositories.
	apptRepo, err := appointmentRepo.NewMongoAppointmentRepo(db)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize appointment repository: %v", err)
	}
	userRepo, err := userRepoPkg.NewMongoUserRepo(db)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize user repository: %v", err)
	}
	ledgerRepo, err := loyaltyRepo.NewMongoLoyaltyRepo(db)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize loyalty repository: %v", err)
	}

	// Services.
	gateway, err := notification.NewFCMGateway(fcmClient)
	if err != nil {
		logger.Sugar().Fatalf("main: %v", err)
	}
	notificationService, err := notification.NewService(gateway, userRepo, logger)
	if err != nil {
		logger.Sugar().Fatalf("main: %v", err)
	}

	loyaltyService := &loyalty.DefaultLoyaltyService{
		Ledger:               ledgerRepo,
		Logger:               logger,
		PointsPerAppointment: config.AppConfig.LoyaltyPointsPerAppointment,
	}

	schedulingService := &scheduling.DefaultSchedulingService{
		Appointments: apptRepo,
		Users:        userRepo,
		Loyalty:      loyaltyService,
		Logger:       logger,
	}

	sweeper := &reminder.Sweeper{
		Appointments: apptRepo,
		Users:        userRepo,
		Notifier:     notificationService,
		Lock:         cacheClient,
		Logger:       logger,
	}

	// Background reminder pipeline.
	cron.InitReminderWorker(sweeper, logger)
	cron.InitReminderScheduler(logger)

	// Router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	handlerBundle := &routes.HandlerBundle{
		Appointments:  handlers.NewAppointmentHandler(schedulingService, userRepo, logger),
		Loyalty:       handlers.NewLoyaltyHandler(loyaltyService, userRepo, logger),
		Devices:       handlers.NewDeviceHandler(userRepo),
		Notifications: handlers.NewNotificationHandler(notificationService, userRepo, logger),
		Cron:          handlers.NewCronHandler(sweeper, logger),
	}
	routes.RegisterRoutes(router, handlerBundle)

	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		logger.Sugar().Warnf("main: mongo disconnect: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
