package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/whizardlm/whizard-api/internal/config"
	"github.com/whizardlm/whizard-api/internal/database"
	"github.com/whizardlm/whizard-api/internal/handlers"
	"github.com/whizardlm/whizard-api/internal/ingest"
	"github.com/whizardlm/whizard-api/internal/logger"
	"github.com/whizardlm/whizard-api/internal/middleware"
	"github.com/whizardlm/whizard-api/internal/models"
	"github.com/whizardlm/whizard-api/internal/queue"
	"github.com/whizardlm/whizard-api/internal/retrieval"
	"github.com/whizardlm/whizard-api/internal/services/ai"
	"github.com/whizardlm/whizard-api/internal/services/oidc"
	"github.com/whizardlm/whizard-api/internal/telemetry"
	"github.com/whizardlm/whizard-api/internal/vector"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

// maxRequestBytes caps request bodies. Uploads carry inline source text,
// so this has to be generous compared to a plain JSON API.
const maxRequestBytes int64 = 16 << 20

func main() {
	// Parse command-line flags
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override debug mode if flag is set
	debugMode := cfg.ServerDebugMode || *debugFlag

	// Initialize logger
	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			// Ignore sync errors in production
			_ = syncErr
		}
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("ai_provider", cfg.AIProvider),
		zap.String("ai_model", cfg.AIModel),
		zap.String("ai_embedding_model", cfg.AIEmbeddingModel),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// Initialize OpenTelemetry if enabled
	var tracerProvider interface{ Shutdown(context.Context) error }
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), "whizard-api", cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracerProvider = tp
				zapLogger.Info("otel_tracer_initialized",
					zap.String("endpoint", cfg.OTELEndpoint),
				)
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Connect to database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()

	zapLogger.Info("connected_to_database")

	// Connect to Redis for rate limiting
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("invalid_redis_url", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	// Connect to RabbitMQ for the reconcile job queue (required)
	// Retry connection with exponential backoff to handle RabbitMQ startup delays
	const maxRetries = 10
	const initialDelay = 2 * time.Second
	var jobQueue queue.JobQueue
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		jobQueue, err = queue.NewRabbitMQQueue(cfg.RabbitMQURL)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			defer func() {
				if err := jobQueue.Close(); err != nil {
					zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
				}
			}()
			break
		}

		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt)) // Exponential backoff
		if delay > 30*time.Second {
			delay = 30 * time.Second // Cap at 30 seconds
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}

	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
			zap.Int("max_retries", maxRetries),
			zap.Error(lastErr),
		)
	}

	// Initialize repositories
	projectRepo := database.NewProjectRepository(db)
	sourceRepo := database.NewSourceRepository(db)
	topicRepo := database.NewTopicRepository(db)
	conversationRepo := database.NewConversationRepository(db)
	interactiveRepo := database.NewInteractiveRepository(db)
	oidcConfigRepo := database.NewOIDCConfigRepository(db)
	ratelimitConfigRepo := database.NewRatelimitConfigRepository(db)

	// Initialize services
	oidcProvider := oidc.NewProvider(oidcConfigRepo)
	jwksManager := oidc.NewJWKSManager()

	// Initialize AI provider. The whole product is built around it, so
	// unlike auxiliary services a failure here is fatal.
	aiProvider, err := createAIProvider(cfg, zapLogger, debugMode)
	if err != nil {
		zapLogger.Fatal("failed_to_create_ai_provider", zap.Error(err))
	}
	embedder, ok := aiProvider.(vector.Embedder)
	if !ok {
		zapLogger.Fatal("ai_provider_does_not_support_embeddings",
			zap.String("provider", cfg.AIProvider),
		)
	}

	chunker := ai.NewChunker(aiProvider, zapLogger)
	artifactGenerator := ai.NewArtifactGenerator(aiProvider, zapLogger)

	// Vector index and the services in front of it
	chunkIndex := vector.NewIndex(db, embedder, zapLogger)

	extractors := map[models.SourceType]ingest.Extractor{
		models.SourceTypeText: ingest.TextExtractor{},
	}
	ingestService := ingest.NewService(
		extractors,
		chunker,
		chunkIndex,
		topicRepo,
		sourceRepo,
		conversationRepo,
		jobQueue,
		zapLogger,
	)

	retriever := retrieval.NewCoordinator(chunkIndex, zapLogger)

	// Initialize handlers
	projectHandler := handlers.NewProjectHandler(projectRepo, topicRepo, sourceRepo)
	ingestHandler := handlers.NewIngestHandler(ingestService, projectRepo)
	chatHandler := handlers.NewChatHandler(conversationRepo, retriever, aiProvider, zapLogger)
	interactiveHandler := handlers.NewInteractiveHandler(interactiveRepo, topicRepo, retriever, artifactGenerator, zapLogger)
	healthChecker := handlers.NewHealthChecker(db)

	// Setup router
	r := mux.NewRouter()

	// Apply middleware (order matters - executed in reverse order of registration)
	// Note: In gorilla/mux, middleware executes in reverse order of registration
	// Middleware registered LAST executes FIRST (outermost wrapper)
	zapLogger.Info("setting_up_middleware")

	// Outermost middleware (executes first):
	// 0. OpenTelemetry tracing (if enabled)
	if cfg.OTELEnabled && tracerProvider != nil {
		r.Use(otelmux.Middleware("whizard-api"))
		zapLogger.Info("otel_middleware_enabled")
	}
	// 1. Security headers (should be set on all responses)
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	// 2. CORS
	r.Use(middleware.CORSFromEnv(cfg.FrontendURL))
	// Rate limit middleware (applied selectively to specific routes, not globally)
	rateLimitMW, err := middleware.RateLimitFromDB(redisClient, ratelimitConfigRepo, "5-S")
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limit_middleware", zap.Error(err))
	}
	// 3. Request size limits (protects against DoS)
	r.Use(middleware.MaxRequestSize(maxRequestBytes))
	// 4. Content-Type validation for POST/PATCH/PUT requests
	r.Use(middleware.ContentType)
	// 5. Request timeout (30 seconds default)
	r.Use(middleware.Timeout(30 * time.Second))
	// 6. Error handler (catches panics)
	r.Use(middleware.ErrorHandler(zapLogger))
	// 7. Logging (innermost, executes last before handler)
	r.Use(middleware.Logging(zapLogger))

	zapLogger.Info("middleware_setup_complete")

	// Public routes (no rate limiting for health checks)
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", versionInfo).Methods("GET")

	// OpenAPI spec (public)
	openAPIPath := filepath.Join("api", "openapi", "openapi.yaml")
	openAPIHandler := handlers.NewOpenAPIHandler(openAPIPath)
	openAPIHandler.RegisterRoutes(r)

	// API v1 routes (all protected)
	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	authMW := middleware.Auth(db, oidcProvider, jwksManager, cfg.OIDCProvider)

	projectsRouter := apiRouter.PathPrefix("/projects").Subrouter()
	projectsRouter.Use(authMW)
	projectsRouter.Use(rateLimitMW)
	projectHandler.RegisterRoutes(projectsRouter)

	ingestRouter := apiRouter.PathPrefix("/ingest").Subrouter()
	ingestRouter.Use(authMW)
	ingestRouter.Use(rateLimitMW)
	ingestHandler.RegisterRoutes(ingestRouter)

	chatRouter := apiRouter.PathPrefix("/chat").Subrouter()
	chatRouter.Use(authMW)
	chatRouter.Use(rateLimitMW)
	chatHandler.RegisterRoutes(chatRouter)

	interactiveRouter := apiRouter.PathPrefix("/interactive").Subrouter()
	interactiveRouter.Use(authMW)
	interactiveRouter.Use(rateLimitMW)
	interactiveHandler.RegisterRoutes(interactiveRouter)

	// Catch-all OPTIONS handler for preflight requests
	// This ensures OPTIONS requests are handled even if routes don't explicitly allow them
	// The CORS middleware will handle setting headers before this is called
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// CORS middleware should have already set headers, just return 204
		w.WriteHeader(http.StatusNoContent)
	})

	// Setup server
	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB max header size
	}

	gcCtx, gcCancel := context.WithCancel(context.Background())
	defer gcCancel()

	// Start DLQ garbage collector if the queue implementation supports it
	// Run every hour, retain messages for 24 hours
	if dlqPurger, ok := jobQueue.(queue.DLQPurger); ok {
		dlqGC := queue.NewGarbageCollector(dlqPurger, 1*time.Hour, 24*time.Hour)
		go func() {
			if err := dlqGC.Start(gcCtx); err != nil && err != context.Canceled {
				zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
			}
		}()
		zapLogger.Info("started_dlq_garbage_collector",
			zap.Duration("interval", 1*time.Hour),
			zap.Duration("retention", 24*time.Hour),
		)
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("server_starting",
			zap.String("port", cfg.ServerPort),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	gcCancel()

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// createAIProvider creates an AI provider based on configuration
func createAIProvider(cfg *config.Config, logger *zap.Logger, debugMode bool) (ai.Generator, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not configured")
	}

	// Get provider type
	providerType := cfg.AIProvider
	if providerType == "" {
		providerType = "openai"
	}

	// Create provider directly with logger support
	if providerType == "openai" {
		provider := ai.NewOpenAIProviderWithLogger(
			cfg.OpenAIKey,
			cfg.AIBaseURL,
			cfg.AIModel,
			logger,
			debugMode,
		)
		provider.SetEmbeddingModel(cfg.AIEmbeddingModel)
		return provider, nil
	}

	// Fallback to registry for other providers (without logger)
	registry := ai.NewProviderRegistry()
	ai.RegisterOpenAI(registry)

	config := map[string]string{
		"api_key":         cfg.OpenAIKey,
		"model":           cfg.AIModel,
		"base_url":        cfg.AIBaseURL,
		"embedding_model": cfg.AIEmbeddingModel,
	}

	return registry.GetProvider(providerType, config)
}

func versionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	// Only expose minimal version info (sanitized for security)
	if _, err := fmt.Fprintf(w, `{"version":"1.0.0","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339)); err != nil {
		// Fallback for a simple version endpoint without logger access
		_ = err
	}
}
