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

	"session_service/internal/auth"
	"session_service/internal/auth/credentials"
	"session_service/internal/config"
	"session_service/internal/device"
	"session_service/internal/http_server/handlers/email"
	"session_service/internal/http_server/handlers/health"
	"session_service/internal/http_server/handlers/lastly"
	"session_service/internal/http_server/handlers/reissue"
	"session_service/internal/http_server/handlers/signin"
	"session_service/internal/http_server/handlers/signout"
	"session_service/internal/http_server/handlers/signup"
	"session_service/internal/lib/digest"
	"session_service/internal/lib/jwt"
	sl "session_service/internal/lib/logger/sl"
	"session_service/internal/middleware/clientinfo"
	rateLimit "session_service/internal/middleware/ratelimit"
	"session_service/internal/rabbitmq"
	"session_service/internal/storage/postgres"
	"session_service/internal/storage/redis"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad("./config/config.yaml")

	log := setupLogger(cfg.Env)

	log.Info("starting auth service", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgres", sl.Err(err))
		os.Exit(1)
	}
	defer pg.Close()

	cache, err := redis.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Error("failed to connect redis", sl.Err(err))
		os.Exit(1)
	}
	defer cache.Close()

	msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to connect rabbitmq", sl.Err(err))
		os.Exit(1)
	}
	defer msgBroker.Close()

	hasher, err := digest.New(
		cfg.PasswordHashing.Scheme,
		digest.WithDummyScheme(cfg.PasswordHashing.DummyScheme()),
	)
	if err != nil {
		log.Error("invalid password scheme", sl.Err(err))
		os.Exit(1)
	}

	authService := auth.New(
		log,
		credentials.New(pg, hasher),
		jwt.New(cfg.Tokens.Secret, cfg.Tokens.AccessTokenTTL, cfg.Tokens.RefreshTokenTTL),
		cache,
		cache,
		pg,
		hasher,
		device.New(cfg.Gateway.URL, cfg.Gateway.Timeout),
		msgBroker,
		cfg.Tokens.EmailCodeTTL,
	)

	router := setupRouter(log, authService, map[string]health.Pinger{
		"postgres": pg,
		"redis":    cache,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout + cfg.Gateway.Timeout*2,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", sl.Err(err))
			stop()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", sl.Err(err))
	} else {
		log.Info("Server stopped gracefully")
	}

	log.Info("Main service stopped")
}

func setupRouter(
	log *slog.Logger,
	authService *auth.Auth,
	deps map[string]health.Pinger,
) *chi.Mux {
	validate := validator.New()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", health.New(log, deps))

	r.Route("/auth", func(r chi.Router) {
		r.Use(clientinfo.New())

		r.With(rateLimit.SignUp()).Post("/signup", signup.New(log, validate, authService))
		r.With(rateLimit.SignIn()).Post("/signin", signin.New(log, validate, authService))
		r.With(rateLimit.SignOut()).Post("/signout", signout.New(log, authService))
		r.With(rateLimit.Reissue()).Post("/reissue", reissue.New(log, authService))
		r.With(rateLimit.IssueEmailCode()).Post("/email", email.NewIssue(log, validate, authService))
		r.With(rateLimit.CheckEmailCode()).Post("/email/check", email.NewCheck(log, validate, authService))
		r.With(rateLimit.LastDevice()).Get("/lastly", lastly.New(log, authService))
	})

	return r
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}
