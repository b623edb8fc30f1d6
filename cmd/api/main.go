// cmd/api/main.go
// Main entry point for the application
// This file bootstraps all components and starts the server

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xperia/xperia-backend/internal/auth"
	"github.com/xperia/xperia-backend/internal/common/database"
	"github.com/xperia/xperia-backend/internal/common/logger"
	"github.com/xperia/xperia-backend/internal/common/middleware"
	"github.com/xperia/xperia-backend/internal/common/utils"
	"github.com/xperia/xperia-backend/internal/companion"
	"github.com/xperia/xperia-backend/internal/config"
	"github.com/xperia/xperia-backend/internal/events"
	"github.com/xperia/xperia-backend/internal/matching"
	"github.com/xperia/xperia-backend/internal/messaging"
	notifications "github.com/xperia/xperia-backend/internal/notification"
	"github.com/xperia/xperia-backend/internal/travelers"
)

var startTime = time.Now()

func main() {
	// 1. Load environment variables
	envErr := godotenv.Load()

	// 2. Load and validate configuration
	cfg := config.Load()

	log, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if envErr != nil {
		log.Debug("no .env file found, using environment variables", zap.Error(envErr))
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	// 3. Database
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}
	log.Info("database ready", zap.String("driver", db.DriverName()))

	// 4. Redis (optional)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClientFromURL(cfg.RedisURL)
		if err != nil {
			log.Warn("redis unavailable, continuing without it", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Info("redis connected")
		}
	}

	// 5. Auth
	authRepo := auth.NewPostgresRepository(db)
	authService := auth.NewService(authRepo, redisClient, &auth.Config{
		JWTSecret:           cfg.JWTSecret,
		AccessTokenExpiry:   cfg.AccessTokenExpiry,
		RefreshTokenExpiry:  cfg.RefreshTokenExpiry,
		BCryptCost:          cfg.BCryptCost,
		LoginAttemptsMax:    cfg.LoginAttemptsMax,
		LoginAttemptsWindow: cfg.LoginAttemptsWindow,
	}, log)
	authHandler := auth.NewHandler(authService)
	authMiddleware := auth.NewMiddleware(authService)

	// 6. Traveler profiles
	uploads, err := newUploadService(cfg)
	if err != nil {
		log.Fatal("failed to initialize uploads", zap.Error(err))
	}
	travelerService := travelers.NewService(travelers.NewPostgresRepository(db), uploads, cfg.MaxUploadSize, log)
	travelerHandler := travelers.NewHandler(travelerService)

	// 7. Realtime hub and notifications
	hub := messaging.NewHub(log)
	go hub.Run()

	notificationService := notifications.NewService(
		notifications.NewPostgresRepository(db),
		notifications.Channels{
			Realtime: hub,
			Push:     newPushService(cfg, log),
			Email:    newEmailService(cfg, log),
			SMS:      newSMSService(cfg, log),
			Contacts: contactLookup(authRepo),
		},
		notifications.Options{
			EnablePush:  cfg.EnablePushNotifications,
			EnableEmail: cfg.EnableEmailNotifications,
			EnableSMS:   cfg.EnableSMSNotifications,
			BaseURL:     cfg.BaseURL,
		},
		log,
	)
	notificationHandler := notifications.NewHandler(notificationService)

	// 8. Messaging
	messagingService := messaging.NewService(messaging.NewPostgresRepository(db), hub, notificationService, log)
	messagingHandler := messaging.NewHandler(messagingService, hub, cfg.CORSAllowedOrigins)

	// 9. Companion (Gemini)
	var generator companion.TextGenerator
	if cfg.GeminiAPIKey != "" {
		gemini, err := companion.NewGeminiGenerator(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Warn("gemini unavailable, using fallback texts", zap.Error(err))
		} else {
			defer gemini.Close()
			generator = gemini
			log.Info("gemini companion enabled", zap.String("model", cfg.GeminiModel))
		}
	}
	companionService := companion.NewService(generator, redisClient, cfg.AITimeout, log)
	companionHandler := companion.NewHandler(companionService, travelerService)

	// 10. Match events
	publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaMatchTopic, log)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("failed to close event publisher", zap.Error(err))
		}
	}()

	// 11. Matching
	matchRepo := matching.NewPostgresRepository(db)
	proposer := matching.NewProposer(matchRepo, notificationService, publisher, cfg.MatchTTL, log)
	agent := matching.NewAgent(travelerService, proposer, companionService, log)
	matchService := matching.NewService(matching.Deps{
		Repo:          matchRepo,
		Agent:         agent,
		Profiles:      travelerService,
		Conversations: messagingService,
		Notifier:      notificationService,
		Publisher:     publisher,
		Meetups:       companionService,
	}, log)
	matchHandler := matching.NewHandler(matchService)

	var scheduler *matching.Scheduler
	if cfg.EnableScheduler {
		var locker matching.Locker
		if redisClient != nil {
			locker = matching.NewRedisLocker(redisClient)
		}
		scheduler = matching.NewScheduler(agent, matchService, locker,
			cfg.AgentSweepInterval, cfg.MatchExpiryInterval, cfg.SchedulerLockTTL, log)
	}

	// 12. Routes
	router := mux.NewRouter()
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	if !cfg.UseS3 {
		router.PathPrefix("/uploads/").Handler(
			http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.LocalUploadDir))))
	}

	router.HandleFunc("/health", healthCheck(db)).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	authHandler.RegisterRoutes(router, authMiddleware)

	travelerRouter := chi.NewRouter()
	travelers.RegisterRoutes(travelerRouter, travelerHandler, authMiddleware)
	router.PathPrefix("/api/v1/travelers").Handler(travelerRouter)

	matching.RegisterRoutes(router, matchHandler, authMiddleware)
	messaging.RegisterRoutes(router, messagingHandler, authMiddleware)
	notifications.RegisterRoutes(router, notificationHandler, authMiddleware)
	companion.RegisterRoutes(router, companionHandler, authMiddleware)

	// 13. Start background jobs and the HTTP server
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if scheduler != nil {
		scheduler.Start(ctx)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("environment", cfg.Environment),
			zap.Bool("scheduler", scheduler != nil),
			zap.Bool("companion", companionService.Enabled()))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutdown signal received")

	cancel()
	if scheduler != nil {
		scheduler.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	hub.Shutdown()
	notificationService.Wait()

	log.Info("server exited gracefully")
}

func newUploadService(cfg *config.Config) (travelers.UploadService, error) {
	if cfg.UseS3 {
		s3, err := travelers.NewS3UploadService(cfg.S3BucketName, cfg.AWSRegion, cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey)
		if err != nil {
			return nil, err
		}
		return s3, nil
	}
	if err := os.MkdirAll(cfg.LocalUploadDir, 0o755); err != nil {
		return nil, err
	}
	return travelers.NewLocalUploadService(cfg.LocalUploadDir, cfg.BaseURL+"/uploads"), nil
}

func newPushService(cfg *config.Config, log *zap.Logger) notifications.PushService {
	if !cfg.EnablePushNotifications {
		return notifications.NewMockPushService()
	}

	fcm, err := notifications.NewFCMPushService(context.Background(), cfg.FirebaseCredentialsPath, cfg.FirebaseCredentialsJSON, log)
	if err != nil {
		log.Warn("failed to initialize FCM, using mock push service", zap.Error(err))
		return notifications.NewMockPushService()
	}
	return fcm
}

func newEmailService(cfg *config.Config, log *zap.Logger) notifications.EmailService {
	if cfg.EmailProvider != "sendgrid" {
		return notifications.NewMockEmailService()
	}

	sendgrid, err := notifications.NewSendGridEmailService(cfg.SendGridAPIKey, cfg.EmailFrom, cfg.EmailFromName)
	if err != nil {
		log.Warn("failed to initialize SendGrid, using mock email service", zap.Error(err))
		return notifications.NewMockEmailService()
	}
	return sendgrid
}

func newSMSService(cfg *config.Config, log *zap.Logger) notifications.SMSService {
	if cfg.SMSProvider != "twilio" {
		return notifications.NewMockSMSService()
	}

	twilio, err := notifications.NewTwilioSMSService(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	if err != nil {
		log.Warn("failed to initialize Twilio, using mock SMS service", zap.Error(err))
		return notifications.NewMockSMSService()
	}
	return twilio
}

func contactLookup(repo auth.Repository) notifications.ContactLookupFunc {
	return func(ctx context.Context, userID int64) (*notifications.Contact, error) {
		user, err := repo.GetUserByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &notifications.Contact{Name: user.Name, Email: user.Email, Phone: user.Phone}, nil
	}
}

// healthCheck returns server health status
func healthCheck(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "healthy", http.StatusOK
		if err := db.PingContext(r.Context()); err != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}

		utils.RespondWithJSON(w, code, map[string]interface{}{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"uptime":    time.Since(startTime).String(),
		})
	}
}
