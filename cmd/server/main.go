package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"formini/docs"
	"formini/internal/auth"
	"formini/internal/cache"
	"formini/internal/config"
	"formini/internal/db"
	"formini/internal/handler"
	"formini/internal/logging"
	"formini/internal/metrics"
	"formini/internal/middleware"
	"formini/internal/notify"
	"formini/internal/oauth"
	"formini/internal/router"
	"formini/internal/service"
	"formini/internal/storage"
)

const shutdownTimeout = 30 * time.Second

// @title Formini Identity API
// @version 1.0
// @description Registration, email verification codes, external sign-in and instructor approval for Formini.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token. Browser sessions may send the "token" cookie instead.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default("server").Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat).With("component", "server")
	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	users, closeStore, err := db.OpenUserStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()

	backend, err := storage.New(ctx, cfg.FileStore)
	if err != nil {
		return err
	}

	notifier, closeNotifier, err := notify.New(cfg.Notifier, logger)
	if err != nil {
		return err
	}
	defer closeNotifier.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	jwtService := auth.NewJWTService(cfg.JWTSecret)
	policy := auth.NewAdminPolicy(cfg.AdminEmail)
	dispatcher := notify.NewDispatcher(logger, m, notify.DefaultTimeout)

	deps := service.Dependencies{
		Users:       users,
		Tokens:      jwtService,
		Policy:      policy,
		Codes:       auth.NewCodeGenerator(),
		Attempts:    auth.NewAttemptStore(cacheClient),
		CVs:         storage.NewCVStore(backend),
		Notifier:    notifier,
		Dispatcher:  dispatcher,
		Metrics:     m,
		Logger:      logger,
		FrontendURL: cfg.FrontendURL,
	}

	report, err := service.NewAdminProvisioner(deps, cfg.AdminPassword).Reconcile(ctx)
	if err != nil {
		return err
	}
	logger.Info("admin account ready", "email", policy.Email(), "created", report.Created, "repaired", report.Repaired)

	// A disabled provider must reach the handler as a nil interface.
	var google handler.GoogleProvider
	if cfg.GoogleEnabled() {
		google = oauth.NewGoogle(cfg.Google)
	}
	var facebook handler.FacebookProvider
	if cfg.FacebookEnabled() {
		facebook = oauth.NewFacebook(cfg.Facebook)
	}

	authService := service.NewAuthService(deps)
	handlers := router.Handlers{
		Auth:  handler.NewAuthHandler(authService),
		OAuth: handler.NewOAuthHandler(authService, google, facebook, cacheClient, cfg.FrontendURL, cfg.Env != "dev"),
		User:  handler.NewUserHandler(service.NewUserService(users)),
		Admin: handler.NewAdminHandler(service.NewAdminService(deps)),
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.NewHTTPErrorHandler(logger)
	router.Register(e, cfg, handlers, middleware.NewAccessGate(jwtService, users, policy), m, reg)

	addr := ":" + cfg.ServerPort
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr, "swagger", "http://localhost"+addr+"/swagger/index.html")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	dispatcher.Wait()
	return nil
}
