package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openhire/hire/internal/api"
	"github.com/openhire/hire/internal/auth"
	"github.com/openhire/hire/internal/catalog"
	"github.com/openhire/hire/internal/config"
	"github.com/openhire/hire/internal/database"
	"github.com/openhire/hire/internal/documents"
	"github.com/openhire/hire/internal/effects"
	"github.com/openhire/hire/internal/engine"
	"github.com/openhire/hire/internal/engine/model"
	"github.com/openhire/hire/internal/engine/persistence"
	"github.com/openhire/hire/internal/middleware"
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	slog.Info("configuration loaded successfully",
		"db_host", cfg.Database.Host,
		"db_port", cfg.Database.Port,
		"db_name", cfg.Database.Name,
		"db_sslmode", cfg.Database.SSLMode,
	)

	slog.Info("server configuration",
		"port", cfg.Server.Port,
		"storage_type", cfg.Storage.Type,
	)

	// Initialize database connection
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	// Perform health check
	if err := database.HealthCheck(db); err != nil {
		log.Fatalf("database health check failed: %v", err)
	}

	// Set up workflow persistence
	provider := persistence.NewGormProvider(db)
	if err := provider.Migrate(); err != nil {
		log.Fatalf("failed to migrate workflow tables: %v", err)
	}
	if err := db.AutoMigrate(&effects.Notification{}, &effects.TrackerTask{}); err != nil {
		log.Fatalf("failed to migrate effect tables: %v", err)
	}

	eng := engine.New(
		engine.WithPersistence(provider),
		engine.WithEffectTimeout(time.Duration(cfg.Engine.EffectTimeoutSeconds)*time.Second),
	)

	// Register the side-effect handlers
	webhookClient := &http.Client{Timeout: time.Duration(cfg.Webhook.TimeoutSeconds) * time.Second}
	eng.Dispatcher().Register(model.ActionTypeEmail, effects.NewEmailHandler(effects.EmailConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		From:     cfg.SMTP.From,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
	}))
	eng.Dispatcher().Register(model.ActionTypeNotification, effects.NewNotificationHandler(db))
	eng.Dispatcher().Register(model.ActionTypeWebhook, effects.NewWebhookHandler(webhookClient, cfg.Webhook.Secret))
	eng.Dispatcher().Register(model.ActionTypeCreateTask, effects.NewCreateTaskHandler(db))

	// Load persisted state, then seed the built-in workflow definitions
	ctx := context.Background()
	if err := eng.Start(ctx); err != nil {
		log.Fatalf("failed to start workflow engine: %v", err)
	}
	if err := catalog.RegisterAll(ctx, eng); err != nil {
		log.Fatalf("failed to register built-in workflows: %v", err)
	}

	// Set up document storage
	storageDriver, err := documents.NewStorageFromConfig(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("failed to initialize document storage: %v", err)
	}
	docService := documents.NewDocumentService(storageDriver, db)
	if err := docService.Migrate(); err != nil {
		log.Fatalf("failed to migrate documents table: %v", err)
	}
	docHandler := documents.NewHTTPHandler(docService)

	// Set up HTTP routes
	wr := api.NewWorkflowRouter(eng)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/workflows", wr.HandleRegisterWorkflow)
	mux.HandleFunc("GET /api/workflows", wr.HandleListWorkflows)
	mux.HandleFunc("GET /api/workflows/{workflowID}", wr.HandleGetWorkflow)
	mux.HandleFunc("DELETE /api/workflows/{workflowID}", wr.HandleUnregisterWorkflow)
	mux.HandleFunc("GET /api/workflows/{workflowID}/metrics", wr.HandleGetMetrics)
	mux.HandleFunc("POST /api/instances", wr.HandleCreateInstance)
	mux.HandleFunc("GET /api/instances", wr.HandleGetInstances)
	mux.HandleFunc("GET /api/instances/{instanceID}", wr.HandleGetInstance)
	mux.HandleFunc("GET /api/instances/{instanceID}/transitions", wr.HandleGetAvailableTransitions)
	mux.Handle("POST /api/instances/{instanceID}/transitions/{transitionID}", auth.RequireActor(http.HandlerFunc(wr.HandleExecuteTransition)))
	mux.HandleFunc("POST /api/documents", docHandler.Upload)
	mux.HandleFunc("GET /api/documents/{key}", docHandler.Download)

	// Set up graceful shutdown
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)

	// Wrap handler with identity and CORS middleware
	handler := middleware.CORS(&cfg.CORS)(auth.Middleware()(mux))

	server := &http.Server{
		Addr:    serverAddr,
		Handler: handler,
	}

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		slog.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			quit <- syscall.SIGTERM
		}
	}()

	// Wait for interrupt signal
	<-quit
	slog.Info("shutting down server...")

	// Create a context with timeout for graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown of HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	} else {
		slog.Info("server gracefully stopped")
	}

	// Drain in-flight side effects before closing the database
	slog.Info("draining workflow side effects...")
	eng.Close()

	slog.Info("server stopped")
}
