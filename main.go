package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gomes-camila/clinica-bot/config"
	"github.com/gomes-camila/clinica-bot/handlers"
	"github.com/gomes-camila/clinica-bot/middleware"
	"github.com/gomes-camila/clinica-bot/routes"
	"github.com/gomes-camila/clinica-bot/services/availability"
	"github.com/gomes-camila/clinica-bot/services/booking"
	"github.com/gomes-camila/clinica-bot/services/calendar"
	"github.com/gomes-camila/clinica-bot/services/conversation"
	"github.com/gomes-camila/clinica-bot/services/whatsapp"
	"github.com/gomes-camila/clinica-bot/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	cfg := config.AppConfig

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Sugar().Fatalf("main: invalid timezone %q: %v", cfg.Timezone, err)
	}

	ctx := context.Background()

	// The bot cannot run without its calendar.
	googleCalendar, err := calendar.NewGoogleCalendar(ctx, cfg.GoogleCredentialsFile, cfg.GoogleCalendarID, location)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize google calendar: %v", err)
	}

	// Session store: in-memory by default, Redis when configured.
	sessionTTL := time.Duration(cfg.SessionTTLMin) * time.Minute
	var sessionStore conversation.SessionStore
	var redisClient *redis.Client
	if cfg.SessionStore == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			logger.Sugar().Fatalf("main: failed to connect to Redis: %v", err)
		}
		cancel()
		sessionStore = conversation.NewRedisStore(redisClient, sessionTTL)
	} else {
		sessionStore = conversation.NewMemoryStore(sessionTTL)
	}
	utils.StartHealthMonitor(redisClient)

	engine := availability.NewEngine(googleCalendar, location,
		cfg.WorkStartHour, cfg.WorkEndHour, cfg.SlotDurationMin)
	writer := booking.NewWriter(googleCalendar)

	conversationHandler := conversation.NewHandler(sessionStore, engine, writer,
		cfg.HorizonDays, cfg.ClinicName, cfg.ClinicPhone)

	messenger := whatsapp.NewTwilioClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppNumber)
	webhookHandler := handlers.NewWebhookHandler(conversationHandler, sessionStore, messenger)

	// Create the Gin router.
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	routes.RegisterRoutes(router, webhookHandler)

	// Start the HTTP server.
	port := cfg.AppPort
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

	logger.Sugar().Info("main: server stopped gracefully")
}
