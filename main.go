// File: parishly/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parishly/config"
	"parishly/cron"
	"parishly/database"
	appointmentRepo "parishly/database/repository/appointment"
	holdRepo "parishly/database/repository/hold"
	ledgerRepo "parishly/database/repository/ledger"
	scheduleRepo "parishly/database/repository/schedule"
	"parishly/handlers"
	"parishly/middleware"
	"parishly/routes"
	"parishly/services/appointment"
	"parishly/services/availability"
	"parishly/services/notification"
	"parishly/services/payment"
	"parishly/services/reschedule"
	scheduleSvc "parishly/services/schedule"
	"parishly/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	stripe.Key = config.AppConfig.StripeKey

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.RateLimitMiddleware())

	db := database.DB()

	// Repositories.
	schedules := scheduleRepo.NewMongoScheduleRepo(db)
	appointments := appointmentRepo.NewMongoAppointmentRepo(db)
	holds := holdRepo.NewMongoHoldRepo(db)
	ledger := ledgerRepo.NewMongoLedger(db, logger)

	// Outbound boundaries.
	queueClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	defer queueClient.Close()
	notifier := notification.NewQueueEmitter(queueClient, logger)
	paymentGateway := payment.StripeGateway{}

	// Services.
	appointmentSvc := &appointment.Service{
		Appointments: appointments,
		Schedules:    schedules,
		Ledger:       ledger,
		Notifier:     notifier,
		Logger:       logger,
		PendingTTL:   time.Duration(config.AppConfig.PendingExpiryHours) * time.Hour,
	}
	rescheduleSvc := &reschedule.Orchestrator{
		Appointments: appointments,
		Schedules:    schedules,
		Holds:        holds,
		Ledger:       ledger,
		Payments:     paymentGateway,
		Notifier:     notifier,
		Logger:       logger,
		CutoffDays:   config.AppConfig.RescheduleCutoffDays,
		HoldTTL:      time.Duration(config.AppConfig.HoldExpiryHours) * time.Hour,
	}
	availabilitySvc := &availability.Service{
		Schedules: schedules,
		Ledger:    ledger,
		Cache:     utils.GetCacheClient(),
		CacheTTL:  time.Duration(config.AppConfig.AvailabilityCacheSecs) * time.Second,
		Logger:    logger,
	}
	schedulingSvc := &scheduleSvc.Service{
		Schedules:    schedules,
		Appointments: appointments,
		Logger:       logger,
	}

	// Background sweeps.
	cron.InitSweepWorker(appointmentSvc, rescheduleSvc, appointments, ledger)

	// Assemble the handler bundle.
	handlerBundle := &routes.HandlerBundle{
		Availability: handlers.NewAvailabilityHandler(availabilitySvc),
		Appointments: handlers.NewAppointmentHandler(appointmentSvc),
		Reschedules:  handlers.NewRescheduleHandler(rescheduleSvc),
		Schedules:    handlers.NewScheduleHandler(schedulingSvc, availabilitySvc),
	}
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
