// Aiden - Voice and Text Assistant Daemon
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

	"github.com/SahiDemon/Aiden-sub001/internal/api"
	"github.com/SahiDemon/Aiden-sub001/internal/assistant"
	"github.com/SahiDemon/Aiden-sub001/internal/config"
	"github.com/SahiDemon/Aiden-sub001/internal/conversation"
	"github.com/SahiDemon/Aiden-sub001/internal/executor"
	"github.com/SahiDemon/Aiden-sub001/internal/janitor"
	"github.com/SahiDemon/Aiden-sub001/internal/middleware"
	"github.com/SahiDemon/Aiden-sub001/internal/planner"
	"github.com/SahiDemon/Aiden-sub001/internal/registry"
	"github.com/SahiDemon/Aiden-sub001/internal/speech"
	"github.com/SahiDemon/Aiden-sub001/internal/store"
	"github.com/SahiDemon/Aiden-sub001/internal/transcript"
	"github.com/SahiDemon/Aiden-sub001/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting Aiden", "port", cfg.Port, "user_id", cfg.UserID, "dev", cfg.IsDevelopment())

	prompts, err := config.LoadPrompts(cfg.PromptsPath)
	if err != nil {
		slog.Error("Failed to load prompts", "error", err)
		os.Exit(1)
	}

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Context cache. A dead Redis degrades to per-turn empty contexts
	// instead of blocking startup.
	var cache conversation.Cache
	var cachePinger api.Pinger
	redisCache, err := conversation.NewRedisCache(conversation.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		slog.Warn("Context cache unavailable, conversation continuity disabled", "error", err)
		cache = conversation.NoopCache{}
	} else {
		defer func() {
			if closeErr := redisCache.Close(); closeErr != nil {
				slog.Error("Failed to close context cache", "error", closeErr)
			}
		}()
		cache = redisCache
		cachePinger = redisCache
		slog.Info("Context cache connected", "addr", cfg.RedisAddr)
	}
	contexts := conversation.NewStore(cache, cfg.ContextTTL, cfg.UserID)

	// Command backends.
	host := executor.NewHostController()

	var device executor.Executor
	if cfg.DeviceEnabled {
		device = executor.NewDeviceClient(cfg.DeviceURL)
		slog.Info("Device control enabled", "url", cfg.DeviceURL)
	}

	var sandbox executor.Executor
	if cfg.SandboxEnabled {
		sb, err := executor.NewSandbox(cfg.SandboxImage)
		if err != nil {
			slog.Warn("Sandbox unavailable, shell commands disabled", "error", err)
		} else {
			sandbox = sb
		}
	}

	router := executor.NewRouter(host, device, sandbox)
	coordinator := executor.NewCoordinator(router, repo)

	plannerClient, err := planner.NewClient(planner.ClientConfig{
		Endpoint: cfg.PlannerEndpoint,
		APIKey:   cfg.PlannerAPIKey,
		Model:    cfg.PlannerModel,
		Timeout:  cfg.PlannerTimeout,
	}, prompts)
	if err != nil {
		slog.Error("Failed to initialize planner", "error", err)
		os.Exit(1)
	}
	slog.Info("Planner initialized", "model", cfg.PlannerModel)

	speechClient := speech.NewClient(cfg.SpeechURL, cfg.SpeakTimeout)
	wakeSource := speech.NewWakeWordSource(speechClient)

	transcripts, err := transcript.NewLogger(transcript.Config{
		Enabled:   cfg.Transcript.Enabled,
		Dir:       cfg.Transcript.Dir,
		QueueSize: cfg.Transcript.QueueSize,
	})
	if err != nil {
		slog.Error("Failed to initialize transcript logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := transcripts.Close(); closeErr != nil {
			slog.Error("Failed to close transcript logger", "error", closeErr)
		}
	}()

	// Observer registry and orchestration.
	reg := registry.New(cfg.SweepInterval, cfg.PingTimeout)

	orch := assistant.NewOrchestrator(
		assistant.OrchestratorOptions{
			UserID:        cfg.UserID,
			Greeting:      prompts.Greeting,
			FollowupDelay: cfg.FollowupDelay,
		},
		contexts, plannerClient, coordinator, speechClient, speechClient, reg, repo, transcripts,
	)
	bridge := assistant.NewBridge(orch, []assistant.CaptureSource{wakeSource}, cfg.BridgeTimeout)

	// HTTP surface.
	var deviceDispatcher executor.Dispatcher
	if device != nil {
		deviceDispatcher = router
	}
	apiHandler := api.NewHandler(bridge, orch, repo, cachePinger, reg, deviceDispatcher, cfg)
	healthHandler := api.NewHealthHandler(repo, cachePinger)
	wsHandler := registry.NewWebSocketHandler(reg, cfg.FrontendURL, cfg.IsDevelopment())

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS([]string{"*"}))

	healthHandler.RegisterHealth(r)
	apiHandler.RegisterRoutes(r)
	r.Get("/ws", wsHandler.ServeHTTP)
	r.Handle("/*", web.SPAHandler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // WebSocket connections stay open indefinitely.
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Background workers.
	go reg.Run(ctx)
	go janitor.Run(ctx, repo, cfg.ConversationTTL, cfg.CommandLogRetention, orch.ReleaseConversation)

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Announce readiness once the server is up.
	go orch.Greet(ctx)

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
