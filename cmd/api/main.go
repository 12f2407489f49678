package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"llouest/docs"
	"llouest/internal/auth"
	"llouest/internal/config"
	"llouest/internal/database"
	"llouest/internal/database/migration"
	handlers "llouest/internal/http/handler"
	"llouest/internal/http/middleware"
	"llouest/internal/invoice"
	"llouest/internal/logger"
	"llouest/internal/mailer"
	"llouest/internal/otel"
	"llouest/internal/push"
	"llouest/internal/realtime"
	"llouest/internal/repository/postgres"
	"llouest/internal/retry"
	"llouest/internal/service"
	"llouest/internal/storage"
)

const serviceName = "llouest-api"

// @title L&L Ouest Services API
// @version 1.0
// @description Bookings, reviews, contact, notifications, files and invoices.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	logger.Init(serviceName, cfg.AppEnv, cfg.LogLevel)
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, serviceName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracing")
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, cfg.Database.Host); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize object storage")
	}

	var bus realtime.Bus
	if cfg.Redis.Addr != "" {
		bus = realtime.NewRedisBus(realtime.NewRedisClient(cfg.Redis))
	} else {
		log.Warn().Msg("REDIS_ADDR not set, notification stream is limited to this instance")
		bus = realtime.NewMemoryBus()
	}
	defer bus.Close()

	retryCfg := retry.Config{Attempts: cfg.Mail.RetryAttempts, Delay: cfg.Mail.RetryDelay}

	var sender mailer.Sender = mailer.LogSender{}
	if cfg.Mail.Host != "" {
		smtp, err := mailer.NewSMTPSender(cfg.Mail)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize mailer")
		}
		sender = smtp
	} else {
		log.Warn().Msg("SMTP_HOST not set, emails are logged instead of sent")
	}
	sender = mailer.WithRetry(sender, retryCfg)

	var pusher push.Pusher = push.NoopPusher{}
	if cfg.Push.Enabled {
		fcm, err := push.NewFCM(ctx, cfg.Push, retryCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize push notifications")
		}
		pusher = fcm
	}

	tpl := mailer.NewTemplates(mailer.Brand{
		Name:         cfg.Company.Name,
		PublicURL:    cfg.PublicURL,
		ContactEmail: cfg.Company.Email,
	}, cfg.Location())

	tokens, err := auth.NewTokenIssuer(cfg.Auth)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid auth configuration")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := service.NewMetrics(registry)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register metrics")
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(registry)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register http metrics")
	}

	// Initialize repositories and services
	userRepo := postgres.NewUserPostgres(db)
	challengeRepo := postgres.NewChallengePostgres(db)
	reviewRepo := postgres.NewReviewPostgres(db)
	fileRepo := postgres.NewFilePostgres(db)
	invoiceRepo := postgres.NewInvoicePostgres(db)

	challengeSvc := service.NewChallengeService(challengeRepo, sender, tpl, cfg.Challenge, metrics)
	notificationSvc := service.NewNotificationService(postgres.NewNotificationPostgres(db), userRepo, bus, pusher, metrics)
	svc := handlers.Services{
		Auth:          service.NewAuthService(userRepo, challengeSvc, tokens, sender, tpl),
		Users:         service.NewUserService(userRepo, reviewRepo, fileRepo, invoiceRepo, objStore),
		Reservations:  service.NewReservationService(postgres.NewReservationPostgres(db), notificationSvc, sender, tpl),
		Reviews:       service.NewReviewService(reviewRepo, objStore, notificationSvc),
		Contact:       service.NewContactService(postgres.NewContactPostgres(db), notificationSvc, sender, tpl),
		Notifications: notificationSvc,
		Files:         service.NewFileService(objStore, fileRepo, cfg.MinIO.PresignTTL),
		Invoices: service.NewInvoiceService(
			invoiceRepo,
			userRepo,
			objStore,
			invoice.NewRenderer(cfg.Company, cfg.Location()),
			notificationSvc,
			sender,
			tpl,
			cfg.Company,
		),
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    30 << 20,
		// SSE connections stay open; only idle keep-alive sockets are reaped.
		IdleTimeout: 2 * time.Minute,
	})

	// Register global middleware
	app.Use(recover.New())
	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger(cfg.Location()))
	app.Use(httpMetrics.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(app, svc, handlers.Options{
		Tokens:    tokens,
		Accounts:  userRepo,
		DB:        db,
		Heartbeat: handlers.DefaultHeartbeat,
		AuthLimiter: limiter.New(limiter.Config{
			Max:        20,
			Expiration: time.Minute,
			LimitReached: func(c *fiber.Ctx) error {
				return fiber.ErrTooManyRequests
			},
		}),
	})

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	go purgeChallenges(ctx, challengeSvc, time.Hour)

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("http shutdown")
		}
	}()

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Str("env", cfg.AppEnv).Msg("listening")
	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown")
	}
}

// purgeChallenges removes long-expired verification codes until ctx is done.
func purgeChallenges(ctx context.Context, svc service.ChallengeService, every time.Duration) {
	log := logger.Get().With().Str("component", "challenge_purge").Logger()
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PurgeExpired(ctx)
			if err != nil {
				log.Error().Err(err).Msg("purge expired challenges")
				continue
			}
			if n > 0 {
				log.Info().Int64("deleted", n).Msg("purged expired challenges")
			}
		}
	}
}
