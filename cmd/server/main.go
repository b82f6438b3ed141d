// Package main is the entry point for the permissions manager server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"permissions-manager/internal/api"
	"permissions-manager/internal/app"
	"permissions-manager/internal/config"
	"permissions-manager/internal/db"
	"permissions-manager/internal/domain"
	"permissions-manager/internal/middleware"
	"permissions-manager/internal/notify"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, warning := range cfg.Warnings {
		logger.Warn(warning)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	writeDB, readDB, err := db.OpenSQLitePair(cfg.DBPath, 8)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer writeDB.Close() //nolint:errcheck
	defer readDB.Close()  //nolint:errcheck

	if err := db.RunMigrations(writeDB); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	application := app.New(app.Deps{Cfg: cfg, WriteDB: writeDB, ReadDB: readDB, Logger: logger})

	validator, err := buildValidator(ctx, cfg)
	if err != nil {
		return fmt.Errorf("auth setup: %w", err)
	}

	if err := application.Refresher.Start(cfg.GrantRefreshSpec); err != nil {
		return fmt.Errorf("start grant refresher: %w", err)
	}
	defer application.Refresher.Stop()

	router := buildRouter(cfg, application, validator, logger)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("permissions manager listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// buildValidator picks the token validator: OIDC discovery when an issuer is
// configured, a bare JWKS endpoint as the fallback, HS256 for local dev.
func buildValidator(ctx context.Context, cfg *config.Config) (middleware.TokenValidator, error) {
	switch {
	case cfg.Auth.IssuerURL != "":
		return middleware.NewOIDCValidator(ctx, cfg.Auth.IssuerURL, cfg.Auth.Audience, cfg.Auth.AllowedIssuers)
	case cfg.Auth.JWKSURL != "":
		return middleware.NewOIDCValidatorFromJWKS(ctx, cfg.Auth.JWKSURL, cfg.Auth.IssuerURL, cfg.Auth.Audience, cfg.Auth.AllowedIssuers)
	default:
		return middleware.NewHS256Validator(cfg.Auth.JWTSecret)
	}
}

func buildRouter(cfg *config.Config, application *app.App, validator middleware.TokenValidator, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
		RPS:   cfg.RateLimitRPS,
		Burst: cfg.RateLimitBurst,
	}))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "If-None-Match", "X-Request-ID"},
		ExposedHeaders:   []string{"ETag", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	handler := api.NewHandler(
		application.Services.Group,
		application.Services.Admin,
		application.Services.Membership,
		application.Services.Topic,
		application.Services.Application,
		application.Services.Permission,
		application.Services.Duration,
		application.Services.Grant,
		application.Materializer,
		logger.With("component", "api"),
	)

	auth := middleware.Auth(validator, application.Users, logger.With("component", "auth"))

	r.Route("/api", func(r chi.Router) {
		r.Use(auth)
		r.Mount("/", handler.Routes())
	})

	r.Route("/ws", func(r chi.Router) {
		r.Use(auth)
		r.Get("/topics/{id}", notify.NewWebsocketHandler(application.Notifier, domain.EntityTopic, logger.With("component", "ws")).ServeHTTP)
		r.Get("/applications/{id}", notify.NewWebsocketHandler(application.Notifier, domain.EntityApplication, logger.With("component", "ws")).ServeHTTP)
	})

	return r
}
