// Package main is the entry point for the chat client daemon.
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
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chatdeck/chatdeck/internal/assistant"
	"github.com/chatdeck/chatdeck/internal/chat"
	"github.com/chatdeck/chatdeck/internal/config"
	"github.com/chatdeck/chatdeck/internal/handler"
	"github.com/chatdeck/chatdeck/internal/middleware"
	"github.com/chatdeck/chatdeck/internal/persist"
	"github.com/chatdeck/chatdeck/pkg/logger"
	"github.com/chatdeck/chatdeck/pkg/tracing"
)

func main() {
	// Load .env before reading configuration; the webhook URL normally
	// lives there.
	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, ".env not loaded: %v\n", err)
	}

	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Infow("starting chatdeck")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "chatdeck", cfg.TracingEndpoint)
		if err != nil {
			log.Warnw("failed to initialize tracing", "error", err)
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Open the durable conversation database.
	db, err := persist.Open(cfg.DataPath, log)
	if err != nil {
		log.Errorw("failed to open database", "error", err, "path", cfg.DataPath)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize the webhook client.
	client := assistant.NewWebhookClient(assistant.Config{
		URL:           cfg.WebhookURL,
		Timeout:       cfg.WebhookTimeout,
		RetryAttempts: cfg.RetryAttempts,
		RetryDelay:    cfg.RetryDelay,
	}, log)
	if !client.IsConfigured() {
		log.Warnw("webhook endpoint not configured, running in demo mode")
	}

	// Initialize the conversation store and restore persisted history.
	store := chat.NewStore(client, db, log)
	if err := store.Restore(); err != nil {
		log.Errorw("failed to restore conversations", "error", err)
		os.Exit(1)
	}

	// Initialize handlers.
	healthHandler := handler.NewHealthHandler(db)
	conversationHandler := handler.NewConversationHandler(store, log)
	messageHandler := handler.NewMessageHandler(store, log)
	streamHandler := handler.NewStreamHandler(store, log)

	// Create router.
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Get("/state", conversationHandler.State)
		r.Post("/messages", messageHandler.Send)
		r.Post("/stop", messageHandler.Stop)

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", conversationHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Post("/select", conversationHandler.Select)
				r.Delete("/", conversationHandler.Delete)
				r.Get("/typed", streamHandler.Typed)
			})
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Infow("server listening", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	// Flush the conversation set one last time before closing the database.
	store.Flush()

	log.Infow("stopped")
}
