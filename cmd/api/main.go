package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Windi-Fikriyansyah/devconnect_be/internal/config"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/db"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/handlers"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/logging"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/metrics"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/realtime"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/chat"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/events"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/mailer"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/profiles"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/projects"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/ratings"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/users"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/verification"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Setup(cfg.LogLevel)

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(gdb); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	rdb := realtime.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		slog.Error("redis not reachable", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}

	var mail mailer.Mailer = mailer.LogMailer{}
	if cfg.RabbitMQURL != "" {
		p, err := mailer.NewProducer(cfg.RabbitMQURL)
		if err != nil {
			slog.Error("rabbitmq connection failed", "error", err)
			os.Exit(1)
		}
		defer p.Close()
		mail = p
	}

	var pub events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		p := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer p.Close()
		pub = p
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	userSvc := users.NewUserService(gdb, rdb, mail, pub, cfg.JWTSecret, cfg.JWTExpiresMin,
		time.Duration(cfg.RefreshExpiresHour)*time.Hour)

	hub := realtime.NewHub()
	presence := realtime.NewPresence(rdb, func(pctx context.Context, userID uuid.UUID, online bool) error {
		status := models.StatusOffline
		if online {
			status = models.StatusOnline
		}
		return userSvc.UpdateStatus(pctx, userID, status)
	})
	hub.OnPresence(presence.Track)
	go hub.Run(ctx)

	presenceDone := make(chan struct{})
	go func() {
		presence.Run(hub.Done())
		close(presenceDone)
	}()

	broker := realtime.NewBroker(rdb, hub)
	go func() {
		if err := broker.Run(ctx); err != nil {
			slog.Error("realtime broker stopped", "error", err)
		}
	}()

	devSvc := profiles.NewDeveloperService(gdb)
	convSvc := chat.NewConversationService(gdb)
	msgSvc := chat.NewMessageService(gdb, convSvc, broker)
	secure := cfg.AppEnv == "production"

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))
	app.Use(metrics.Middleware())
	app.Use("/api", limiter.New(limiter.Config{
		Max:               120,
		Expiration:        time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"message": "Too many requests",
			})
		},
	}))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	handlers.Register(app, handlers.Handlers{
		Health: &handlers.HealthHandler{DB: gdb, RDB: rdb},
		Users:  handlers.NewUserHandler(userSvc, devSvc, secure),
		Google: handlers.NewGoogleOAuthHandler(userSvc, cfg.GoogleClientID, cfg.GoogleSecret,
			cfg.GoogleRedirect, cfg.FrontendBaseURL, secure),
		Verification: handlers.NewVerificationHandler(verification.NewVerificationService(gdb, mail)),
		Developers:   handlers.NewDeveloperHandler(devSvc),
		Clients:      handlers.NewClientHandler(profiles.NewClientService(gdb)),
		Projects:     handlers.NewProjectHandler(projects.NewProjectService(gdb, pub)),
		Ratings:      handlers.NewRatingHandler(ratings.NewRatingService(gdb, pub)),
		Chat:         handlers.NewChatHandler(msgSvc, convSvc, hub, cfg.JWTSecret),
	}, cfg.JWTSecret)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := ":" + strings.TrimPrefix(cfg.AppPort, ":")
		slog.Info("server starting", "addr", addr, "env", cfg.AppEnv)
		if err := app.Listen(addr); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	stop()

	select {
	case <-presenceDone:
	case <-time.After(5 * time.Second):
		slog.Warn("presence updates still pending at shutdown")
	}

	if err := rdb.Close(); err != nil {
		slog.Error("redis close error", "error", err)
	}
	if err := db.Close(gdb); err != nil {
		slog.Error("database close error", "error", err)
	}
	slog.Info("server stopped")
}
