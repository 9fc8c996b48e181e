package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chachabrian/chefbook-backend/internal/config"
	"github.com/chachabrian/chefbook-backend/internal/database"
	"github.com/chachabrian/chefbook-backend/internal/router"
	"github.com/chachabrian/chefbook-backend/internal/services"
	"github.com/chachabrian/chefbook-backend/pkg/obs"
	"github.com/chachabrian/chefbook-backend/pkg/utils"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.NewLogger("info", false).Fatalf("Failed to load config: %v", err)
	}

	log := utils.NewLogger(cfg.LogLevel, cfg.LogJSON)
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTelEndpoint != "" {
		shutdownTracer, err := obs.InitTracer(ctx, "chefbook-api", cfg.OTelEndpoint, cfg.Env)
		if err != nil {
			log.WithError(err).Warn("Tracing disabled")
		} else {
			defer shutdownTracer(context.Background())
		}
	}

	db, err := database.InitDB(cfg.DSN())
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	gateway, err := services.NewOmiseGateway(cfg.OmisePublicKey, cfg.OmiseSecretKey)
	if err != nil {
		log.Fatalf("Failed to initialize payment gateway: %v", err)
	}
	reconciler := services.NewPaymentReconciler(gateway, cfg.Currency, cfg.PaymentTimeout, cfg.PaymentRetries, log.WithField("component", "payments"))

	// Push is optional; bookings still work without it.
	var push services.PushSender
	if cfg.FirebaseServiceAccountPath != "" {
		fcm, err := services.NewFCMSender(ctx, cfg.FirebaseServiceAccountPath, log)
		if err != nil {
			log.WithError(err).Warn("Firebase initialization failed, push disabled")
		} else {
			push = fcm
		}
	}

	hub := services.NewHub(log.WithField("component", "websocket"))
	go hub.Run(ctx)

	publishers := []services.EventPublisher{hub}
	if cfg.RedisURL != "" {
		redisPub, err := services.NewRedisPublisher(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to initialize Redis: %v", err)
		}
		defer redisPub.Close()
		publishers = append(publishers, redisPub)
	}
	if cfg.RabbitURL != "" {
		amqpPub, err := services.NewAMQPPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ: %v", err)
		}
		defer amqpPub.Close()
		publishers = append(publishers, amqpPub)
	}

	switch {
	case cfg.AWSBucket != "":
		archive, err := services.NewS3EventArchive(cfg.AWSRegion, cfg.AWSAccessKey, cfg.AWSSecretKey, cfg.AWSBucket)
		if err != nil {
			log.Fatalf("Failed to initialize S3 event archive: %v", err)
		}
		publishers = append(publishers, archive)
	case cfg.EventArchiveDir != "":
		archive, err := services.NewFileEventArchive(cfg.EventArchiveDir)
		if err != nil {
			log.Fatalf("Failed to initialize event archive: %v", err)
		}
		publishers = append(publishers, archive)
	}

	notifier := services.NewNotifier(push, cfg.NotifyWorkers, cfg.NotifyQueueSize, cfg.NotifyTimeout,
		log.WithField("component", "notifier"), publishers...)

	users := database.NewUserStore(db)
	bookings := services.NewBookingService(
		database.NewBookingStore(db), users, reconciler, notifier, cfg.Currency,
		log.WithField("component", "bookings"),
	)

	r := router.SetupRouter(router.Dependencies{
		DB:       db,
		Resolver: services.NewPrincipalResolver(cfg.JWTSecret, users),
		Users:    users,
		Bookings: bookings,
		Hub:      hub,
		Log:      log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown")
	}
	if err := notifier.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Notifier did not drain")
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
