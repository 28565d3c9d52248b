package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notes_service/internal/auth"
	"notes_service/internal/config"
	"notes_service/internal/http_server/handlers/login"
	"notes_service/internal/http_server/handlers/logout"
	"notes_service/internal/http_server/handlers/notes"
	"notes_service/internal/http_server/handlers/refresh"
	"notes_service/internal/http_server/handlers/register"
	"notes_service/internal/lib/jwt"
	"notes_service/internal/lib/validation"
	"notes_service/internal/middleware/identity"
	"notes_service/internal/rabbitmq"
	"notes_service/internal/storage/postgres"
	redisstorage "notes_service/internal/storage/redis"

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

	log.Info("starting notes service", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	storage, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgres", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer storage.Close()

	tokenStore, err := redisstorage.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Error("failed to connect redis", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer tokenStore.Close()

	msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to connect rabbitmq", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer msgBroker.Close()

	tokens, err := jwt.New(cfg.Tokens.JWTSecret, cfg.Tokens.AccessTokenTTL, cfg.Tokens.RefreshTokenTTL)
	if err != nil {
		log.Error("failed to init token manager", slog.String("err", err.Error()))
		os.Exit(1)
	}

	authService := auth.New(log, storage, storage, tokenStore, tokens)

	router := setupRouter(log, validation.New(), authService, tokens, storage, msgBroker)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", slog.String("err", err.Error()))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", slog.String("err", err.Error()))
	} else {
		log.Info("Server stopped gracefully")
	}

	log.Info("Main service stopped")
}

func setupRouter(
	log *slog.Logger,
	validate *validator.Validate,
	authService *auth.Auth,
	tokens *jwt.Manager,
	noteStorage notes.NoteStorage,
	msgBroker *rabbitmq.RabbitMQClient,
) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(identity.New(log, tokens))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", register.New(log, validate, authService, msgBroker))
		r.Post("/login", login.New(log, validate, authService))
		r.Post("/refresh", refresh.New(log, validate, authService))
		r.Post("/logout", logout.New(log, validate, authService))
	})

	r.Route("/notes", func(r chi.Router) {
		r.Use(identity.Require())

		r.Post("/", notes.NewCreate(log, validate, noteStorage))
		r.Get("/", notes.NewList(log, noteStorage))
		r.Get("/{id}", notes.NewGet(log, noteStorage))
		r.Put("/{id}", notes.NewUpdate(log, validate, noteStorage))
		r.Delete("/{id}", notes.NewDelete(log, noteStorage))
	})

	return r
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
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
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
