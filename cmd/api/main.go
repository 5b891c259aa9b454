// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/autosupport-ai/widget-backend/internal/answer"
	"github.com/autosupport-ai/widget-backend/internal/config"
	"github.com/autosupport-ai/widget-backend/internal/events"
	"github.com/autosupport-ai/widget-backend/internal/handler"
	"github.com/autosupport-ai/widget-backend/internal/llm"
	"github.com/autosupport-ai/widget-backend/internal/middleware"
	"github.com/autosupport-ai/widget-backend/internal/service"
	"github.com/autosupport-ai/widget-backend/internal/store"
	"github.com/autosupport-ai/widget-backend/pkg/logger"
	"github.com/autosupport-ai/widget-backend/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "widget-backend", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Open the durable store
	db, err := store.OpenSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("failed to open store", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	if cfg.SeedDemo {
		if biz, err := store.SeedDemo(ctx, db); err != nil {
			log.Warn("failed to seed demo data", zap.Error(err))
		} else {
			log.Info("demo business available", zap.Int64("business_id", biz.ID))
		}
	}

	// Connect lead event publishing if NATS is configured
	var publisher events.Publisher = events.Nop{}
	if cfg.NATSURL != "" {
		js, err := events.Connect(ctx, events.Config{URL: cfg.NATSURL, Token: cfg.NATSToken}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer js.Close()
		publisher = js
	}

	// Initialize the answer generator; without an API key the widget
	// runs in demo mode on the FAQ fallback alone
	var generator answer.Generator
	var llmClient llm.Client
	if cfg.AnthropicAPIKey != "" {
		llmClient, err = llm.NewAnthropicClient(cfg.AnthropicAPIKey)
	} else if cfg.OpenAIAPIKey != "" {
		llmClient, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
	}
	if err != nil {
		log.Warn("failed to create LLM client, running in demo mode", zap.Error(err))
	}
	if llmClient != nil {
		generator = answer.NewLLMGenerator(llmClient, cfg.AnswerModel)
		log.Info("answer generation enabled", zap.String("provider", llmClient.Name()))
	} else {
		log.Info("no LLM configured, answers come from the FAQ fallback")
	}

	// Initialize services
	sessionMgr := service.NewSessionManager(db, publisher, cfg.IdempotencyWindow, log)
	chatSvc := service.NewChatService(db, sessionMgr, generator, answer.NewFAQGenerator(), log)
	leadSvc := service.NewLeadService(db)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(db)
	sessionHandler := handler.NewSessionHandler(sessionMgr, log)
	chatHandler := handler.NewChatHandler(chatSvc, log)
	leadHandler := handler.NewLeadHandler(leadSvc, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		// Widget endpoints
		r.Post("/session/start", sessionHandler.Start)
		r.Post("/session/end", sessionHandler.End)
		r.Post("/chat", chatHandler.Chat)

		// Inbox endpoints
		r.Get("/leads", leadHandler.List)
		r.Get("/leads/{id}", leadHandler.Get)
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
