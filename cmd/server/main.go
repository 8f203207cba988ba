// Voice tutor API server.
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

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/satlabs/voice-tutor/internal/api"
	"github.com/satlabs/voice-tutor/internal/avatar"
	"github.com/satlabs/voice-tutor/internal/config"
	"github.com/satlabs/voice-tutor/internal/events"
	"github.com/satlabs/voice-tutor/internal/llm"
	"github.com/satlabs/voice-tutor/internal/middleware"
	"github.com/satlabs/voice-tutor/internal/rtc"
	"github.com/satlabs/voice-tutor/internal/session"
	"github.com/satlabs/voice-tutor/internal/store"
	"github.com/satlabs/voice-tutor/internal/telemetry"
	"github.com/satlabs/voice-tutor/internal/tts"
	"github.com/satlabs/voice-tutor/internal/tutor"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if _, err := telemetry.InitLogger(cfg.Log); err != nil {
		slog.Error("Failed to initialize logging", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "env", cfg.Env, "llm_provider", cfg.LLM.Provider)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telemetryCleanup, err := telemetry.Init(ctx, cfg.Log)
	if err != nil {
		slog.Error("Failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer telemetryCleanup()

	// Transcript archive. Session state itself is volatile by design; the
	// archive only records completed exchanges for diagnostics.
	archive, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize transcript archive", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := archive.Close(); closeErr != nil {
			slog.Error("Failed to close transcript archive", "error", closeErr)
		}
	}()
	slog.Info("Transcript archive ready", "path", cfg.DBPath)

	// Generation provider, selected once from configuration.
	generator, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		slog.Error("Failed to initialize generation client", "error", err)
		os.Exit(1)
	}

	speechClient := tts.NewClient(cfg.TTS)
	avatarClient := avatar.NewClient(cfg.Avatar)
	tokenService := rtc.NewService(cfg.Agora)

	// Session store with background reaper.
	sessions := session.NewStore(cfg.Session.Timeout)
	sessions.StartReaper(ctx, cfg.Session.CleanupInterval)

	bus := events.NewBus()
	svc := tutor.NewService(sessions, generator, speechClient, avatarClient, bus, archive)

	// Handlers.
	limiter := api.NewRateLimiter(30, time.Minute)
	handler := api.NewHandler(svc, tokenService, limiter)
	healthHandler := api.NewHealthHandler(archive)
	streamHandler := api.NewStreamHandler(bus, cfg.IsDevelopment())

	// Router.
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	healthHandler.RegisterHealth(r)
	handler.RegisterRoutes(r)
	streamHandler.RegisterRoutes(r)

	// Avatar polling can legitimately run for tens of seconds, so no write
	// timeout on /process responses.
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
