package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"safetysos/internal/auth"
	"safetysos/internal/cache"
	"safetysos/internal/config"
	"safetysos/internal/db"
	"safetysos/internal/events"
	"safetysos/internal/handler"
	"safetysos/internal/keepalive"
	"safetysos/internal/logger"
	"safetysos/internal/mailer"
	"safetysos/internal/metrics"
	"safetysos/internal/router"
	"safetysos/internal/service"
)

const serviceName = "safetysos"

// @title Safety SOS API
// @version 1.0
// @description Employee safety API: SOS alerts, notifications, emergency contacts and administration.
// @host localhost:8080
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	zl, err := logger.Init(logger.Options{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		ServiceName: serviceName,
	})
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if cfg.JWTSecret == "change-me" && cfg.IsProduction() {
		zl.Fatal("JWT_SECRET must be set in production")
	}

	repos, closeStore, err := db.OpenStore(cfg, zl)
	if err != nil {
		zl.Fatal("store init", zap.Error(err))
	}
	defer func() {
		if err := closeStore(); err != nil {
			zl.Warn("store close", zap.Error(err))
		}
	}()

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, zl)
	defer func() { _ = cacheClient.Close() }()
	checkCache(context.Background(), cacheClient, zl)

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.MQTTBroker != "" {
		mp, err := events.NewMQTTPublisher(events.MQTTOptions{
			Broker:      cfg.MQTTBroker,
			ClientID:    cfg.MQTTClientID,
			Username:    cfg.MQTTUsername,
			Password:    cfg.MQTTPassword,
			TopicPrefix: cfg.MQTTTopicPrefix,
		}, zl)
		if err != nil {
			// SOS must keep working without the broker.
			zl.Error("mqtt connect failed, events disabled", zap.Error(err))
		} else {
			publisher = mp
		}
	}
	defer publisher.Close()

	m := metrics.New(serviceName)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTExpiry)
	tokenStore := auth.NewTokenStore(cacheClient)
	mail := mailer.New(cfg.MailAPIURL, cfg.MailAPIKey, cfg.MailFrom, zl)

	// Initialize services
	authService := service.NewAuthService(repos.Users, jwtService, tokenStore, mail, service.AuthOptions{
		VerificationTTL: cfg.VerificationTTL,
		FrontendURL:     cfg.FrontendURL,
	}, zl, m)
	userService := service.NewUserService(repos.Users, repos.Contacts, cacheClient, zl)
	notificationService := service.NewNotificationService(repos.Notifications)
	sosService := service.NewSOSService(repos.Alerts, notificationService, publisher, zl, m)
	contactService := service.NewContactService(repos.Contacts)
	adminService := service.NewAdminService(repos, sosService)

	e := echo.New()
	router.Register(e, cfg, zl, m, authService, userService, router.Handlers{
		Auth:          handler.NewAuthHandler(authService),
		Profile:       handler.NewProfileHandler(userService, contactService),
		SOS:           handler.NewSOSHandler(sosService),
		Notifications: handler.NewNotificationHandler(notificationService),
		Admin:         handler.NewAdminHandler(userService, adminService, contactService),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if pinger := keepalive.New(cfg.SelfPingURL, cfg.SelfPingInterval, zl); pinger != nil {
		go pinger.Run(ctx)
	}

	zl.Info("swagger documentation available", zap.String("url", swaggerURL(cfg)))

	addr := ":" + cfg.ServerPort
	go func() {
		zl.Info("server starting", zap.String("addr", addr), zap.String("store", cfg.StoreDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server start", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
}

func swaggerURL(cfg *config.Config) string {
	switch {
	case cfg.SwaggerHost == "":
		return "http://localhost:" + cfg.ServerPort + "/swagger/index.html"
	case strings.HasPrefix(cfg.SwaggerHost, "http://"), strings.HasPrefix(cfg.SwaggerHost, "https://"):
		return cfg.SwaggerHost + "/swagger/index.html"
	default:
		return "http://" + cfg.SwaggerHost + "/swagger/index.html"
	}
}

// checkCache pings Redis once at startup. The cache fails safe, so an
// unreachable server is only reported.
func checkCache(ctx context.Context, c *cache.Client, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		log.Warn("redis unreachable, caching and token revocation degraded", zap.Error(err))
	}
}
