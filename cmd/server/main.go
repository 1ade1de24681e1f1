package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/iconidentify/scriptcast/internal/api"
	"github.com/iconidentify/scriptcast/internal/api/handler"
	"github.com/iconidentify/scriptcast/internal/auth"
	"github.com/iconidentify/scriptcast/internal/config"
	"github.com/iconidentify/scriptcast/internal/downloader"
	"github.com/iconidentify/scriptcast/internal/repository"
	"github.com/iconidentify/scriptcast/internal/service"
	"github.com/iconidentify/scriptcast/internal/worker"
	"github.com/iconidentify/scriptcast/pkg/heygen"
	"github.com/iconidentify/scriptcast/pkg/openrouter"
	"github.com/iconidentify/scriptcast/pkg/vimeo"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("scriptcast %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting scriptcast",
		"version", Version,
		"build_time", BuildTime,
	)

	// Load .env before the config layer reads the environment
	if err := godotenv.Load(); err == nil {
		logger.Info("loaded environment from .env")
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Ensure temp directory exists
	if err := os.MkdirAll(cfg.Storage.TempPath, 0755); err != nil {
		logger.Error("failed to create temp directory", "error", err)
		os.Exit(1)
	}

	// Initialize dependencies
	sessionRepo, err := repository.NewSQLiteSessionRepository(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to open session store", "error", err)
		os.Exit(1)
	}
	defer sessionRepo.Close()

	jobRepo := repository.NewInMemoryJobRepository()
	chatClient := openrouter.NewClient(cfg.OpenRouter)
	heygenClient := heygen.NewClient(cfg.HeyGen)
	vimeoClient := vimeo.NewClient(cfg.Vimeo)
	authenticator := auth.NewHTTPAuthenticator(cfg.Auth)
	dl := downloader.NewHTTPDownloader(cfg.Download)
	dl.SetLogger(logger)

	// Initialize services
	videoSvc := service.NewVideoService(
		sessionRepo,
		jobRepo,
		heygenClient,
		vimeoClient,
		dl,
		cfg.Storage,
		cfg.Worker,
		cfg.HeyGen,
		logger,
	)
	scriptSvc := service.NewScriptService(sessionRepo, chatClient, cfg.OpenRouter.ExtractionModel, logger)
	chatSvc := service.NewChatService(chatClient, sessionRepo, cfg.OpenRouter.DefaultModel, logger)

	// Initialize handlers
	sessionHandler := handler.NewSessionHandler(scriptSvc, videoSvc, logger)
	chatHandler := handler.NewChatHandler(chatSvc, logger)
	healthHandler := handler.NewHealthHandler(jobRepo)

	// Setup router
	router := api.NewRouter(sessionHandler, chatHandler, healthHandler, authenticator)

	// Initialize worker pool
	pool := worker.NewPool(
		worker.Config{
			Workers:      cfg.Worker.Count,
			PollInterval: cfg.Worker.PollInterval,
		},
		jobRepo,
		videoSvc,
		logger,
	)

	// Start worker pool
	pool.Start()

	// Setup HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop accepting new requests
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Stop workers (allow in-flight runs to observe cancellation)
	if err := pool.Stop(25 * time.Second); err != nil {
		logger.Error("worker pool shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
