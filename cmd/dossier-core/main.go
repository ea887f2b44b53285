package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/dossier-core/internal/adapters/driven/ai"
	"github.com/custodia-labs/dossier-core/internal/adapters/driven/chroma"
	"github.com/custodia-labs/dossier-core/internal/adapters/driven/postgres"
	memoryqueue "github.com/custodia-labs/dossier-core/internal/adapters/driven/queue/memory"
	redisqueue "github.com/custodia-labs/dossier-core/internal/adapters/driven/queue/redis"
	redisadapter "github.com/custodia-labs/dossier-core/internal/adapters/driven/redis"
	"github.com/custodia-labs/dossier-core/internal/adapters/driving/http"
	"github.com/custodia-labs/dossier-core/internal/chunker"
	"github.com/custodia-labs/dossier-core/internal/config"
	"github.com/custodia-labs/dossier-core/internal/core/domain"
	"github.com/custodia-labs/dossier-core/internal/core/ports/driven"
	"github.com/custodia-labs/dossier-core/internal/core/ports/driving"
	"github.com/custodia-labs/dossier-core/internal/core/services"
	"github.com/custodia-labs/dossier-core/internal/extract"
	"github.com/custodia-labs/dossier-core/internal/runtime"
	"github.com/custodia-labs/dossier-core/internal/tokenizer"
	"github.com/custodia-labs/dossier-core/internal/worker"
)

var version = "dev"

func main() {
	// Load .env if present (development convenience)
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if len(os.Args) > 1 {
		cfg.Mode = os.Args[1]
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Printf("dossier-core %s starting in %s mode", version, cfg.Mode)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutdown signal received, stopping...")
		cancel()
	}()

	// ===== Initialize PostgreSQL =====
	log.Println("Connecting to PostgreSQL...")
	dbConfig := postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetimeSec) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Database.ConnMaxIdleSec) * time.Second,
	}
	db, err := postgres.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize schema (idempotent)
	if err := db.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	log.Println("PostgreSQL connected and schema initialized")

	// ===== Initialize Redis =====
	// Sessions are ephemeral, so without an external Redis an embedded
	// in-memory one serves them. Queue and lock get durable fallbacks.
	var redisClient *redis.Client
	externalRedis := cfg.Redis.URL != ""
	if externalRedis {
		log.Println("Connecting to Redis...")
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		log.Println("Redis connected")
	} else {
		mr, err := miniredis.Run()
		if err != nil {
			log.Fatalf("Failed to start embedded Redis: %v", err)
		}
		defer mr.Close()
		redisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		log.Println("Using embedded in-memory Redis (sessions will not survive a restart)")
	}
	defer redisClient.Close()

	// ===== Initialize Chroma =====
	log.Println("Connecting to Chroma...")
	indexCfg := chroma.DefaultConfig(cfg.Chroma.URL)
	if cfg.Chroma.TimeoutSecs > 0 {
		indexCfg.Timeout = time.Duration(cfg.Chroma.TimeoutSecs) * time.Second
	}
	vectorIndex := chroma.NewIndex(indexCfg)
	if err := vectorIndex.HealthCheck(ctx); err != nil {
		log.Printf("Warning: Chroma health check failed: %v (retrieval may not work)", err)
	} else {
		log.Println("Chroma connected")
	}

	// ===== PostgreSQL Stores =====
	encryptor, err := postgres.NewSecretEncryptor(cfg.SettingsPassphrase)
	if err != nil {
		log.Fatalf("Failed to create secret encryptor: %v", err)
	}
	documentStore := postgres.NewDocumentStore(db)
	chunkStore := postgres.NewChunkStore(db)
	settingsStore := postgres.NewSettingsStore(db, encryptor)

	// ===== Session Store (Redis-backed, external or embedded) =====
	sessionStore := redisadapter.NewSessionStore(redisClient, cfg.SessionTTL())

	// ===== Task Queue (Redis if available, otherwise in-process) =====
	var taskQueue driven.TaskQueue
	queueBackend := "memory"
	if externalRedis {
		taskQueue, err = redisqueue.NewQueue(redisClient, fmt.Sprintf("worker-%d", os.Getpid()))
		if err != nil {
			log.Fatalf("Failed to create task queue: %v", err)
		}
		queueBackend = "redis"
		log.Println("Using Redis task queue")
	} else {
		taskQueue = memoryqueue.NewQueue()
		log.Println("Using in-process task queue")
	}
	defer taskQueue.Close()

	// ===== Distributed Lock (Redis if available, otherwise PostgreSQL advisory locks) =====
	var ingestLock driven.DistributedLock
	if externalRedis {
		ingestLock = redisadapter.NewLock(redisClient)
		log.Println("Using Redis distributed lock")
	} else {
		ingestLock = postgres.NewAdvisoryLock(db)
		log.Println("Using PostgreSQL advisory lock")
	}

	// Runtime configuration
	sessionBackend := "memory"
	if externalRedis {
		sessionBackend = "redis"
	}
	runtimeConfig := domain.NewRuntimeConfig(sessionBackend, queueBackend)
	runtimeServices := runtime.NewServices(runtimeConfig)
	defer runtimeServices.Close()

	// ===== AI services from persisted settings =====
	aiFactory := ai.NewFactory()
	aiSettings, err := settingsStore.GetAISettings(ctx)
	if err != nil {
		log.Fatalf("Failed to load AI settings: %v", err)
	}
	applyAIEnvOverrides(aiSettings)
	initAIServices(ctx, aiFactory, runtimeServices, aiSettings)

	// ===== Text pipeline =====
	tok := tokenizer.NewForModel(aiSettings.LLM.Model)
	extractors := extract.DefaultRegistry()
	chunks := chunker.New(tok, chunker.DefaultConfig())

	// Services (core business logic)
	sessionLimits := domain.DefaultSessionLimits()
	sessionLimits.TTL = cfg.SessionTTL()
	sessionService := services.NewSessionService(sessionStore, []byte(cfg.Session.JWTSecret), sessionLimits, slog.Default())

	ingestionService := services.NewIngestionService(
		extractors,
		chunks,
		runtimeServices,
		vectorIndex,
		documentStore,
		chunkStore,
		taskQueue,
		ingestLock,
		services.IngestionConfig{UploadDir: cfg.UploadDir},
		slog.Default(),
	)

	retriever := services.NewRetriever(vectorIndex, tok, runtimeServices, services.DefaultRetrieverConfig(), slog.Default())
	answerService := services.NewAnswerService(sessionService, retriever, documentStore, runtimeServices, cfg.AnswerTimeout(), slog.Default())
	documentService := services.NewDocumentService(documentStore, chunkStore, ingestionService, slog.Default())
	settingsService := services.NewSettingsService(settingsStore, aiFactory, runtimeServices, slog.Default())

	log.Printf("Runtime config: session_backend=%s, queue_backend=%s, embedding=%t, llm=%t",
		runtimeConfig.SessionBackend,
		runtimeConfig.QueueBackend,
		runtimeConfig.EmbeddingAvailable(),
		runtimeConfig.LLMAvailable())

	switch cfg.Mode {
	case "api":
		runAPI(ctx, cfg, sessionService, ingestionService, answerService, documentService, settingsService, db, taskQueue, vectorIndex)

	case "worker":
		runWorkerMode(ctx, cfg, taskQueue, ingestionService)

	case "all":
		// Start worker in background, run API in foreground
		go runWorkerMode(ctx, cfg, taskQueue, ingestionService)
		runAPI(ctx, cfg, sessionService, ingestionService, answerService, documentService, settingsService, db, taskQueue, vectorIndex)

	default:
		log.Fatalf("Unknown mode: %s (use: api, worker, or all)", cfg.Mode)
	}
}

// applyAIEnvOverrides fills in API keys and endpoints from the
// environment when the persisted settings carry none.
func applyAIEnvOverrides(settings *domain.AISettings) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if settings.Embedding.Provider == domain.AIProviderOpenAI && settings.Embedding.APIKey == "" {
			settings.Embedding.APIKey = key
		}
		if settings.LLM.Provider == domain.AIProviderOpenAI && settings.LLM.APIKey == "" {
			settings.LLM.APIKey = key
		}
	}
	if base := os.Getenv("OLLAMA_BASE_URL"); base != "" {
		if settings.Embedding.Provider == domain.AIProviderOllama && settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = base
		}
		if settings.LLM.Provider == domain.AIProviderOllama && settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = base
		}
	}
}

// initAIServices builds the embedding and LLM services from settings
// and registers them. A backend that fails validation is logged and
// left unregistered rather than aborting startup.
func initAIServices(ctx context.Context, factory driven.AIServiceFactory, runtimeServices *runtime.Services, settings *domain.AISettings) {
	embedding, err := factory.CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		log.Printf("Warning: embedding service not created: %v", err)
	} else if embedding != nil {
		if err := runtimeServices.ValidateAndSetEmbedding(ctx, embedding); err != nil {
			log.Printf("Warning: embedding service unreachable: %v (ingestion disabled)", err)
		} else {
			log.Printf("Embedding service ready: %s/%s", settings.Embedding.Provider, settings.Embedding.Model)
		}
	} else {
		log.Println("Embedding service not configured (ingestion disabled)")
	}

	llm, err := factory.CreateLLMService(&settings.LLM)
	if err != nil {
		log.Printf("Warning: LLM service not created: %v", err)
	} else if llm != nil {
		if err := runtimeServices.ValidateAndSetLLM(ctx, llm); err != nil {
			log.Printf("Warning: LLM service unreachable: %v (answers disabled)", err)
		} else {
			log.Printf("LLM service ready: %s/%s", settings.LLM.Provider, settings.LLM.Model)
		}
	} else {
		log.Println("LLM service not configured (answers disabled)")
	}
}

func runAPI(
	ctx context.Context,
	cfg *config.Config,
	sessionService driving.SessionService,
	ingestionService driving.IngestionService,
	answerService driving.AnswerService,
	documentService driving.DocumentService,
	settingsService driving.SettingsService,
	db http.Pinger,
	taskQueue driven.TaskQueue,
	vectorIndex *chroma.Index,
) {
	serverCfg := http.Config{
		Host:     cfg.Server.Host,
		Port:     cfg.Server.Port,
		Version:  version,
		APIToken: cfg.Server.APIToken,
	}

	server := http.NewServer(
		serverCfg,
		sessionService,
		ingestionService,
		answerService,
		documentService,
		settingsService,
		db,
		taskQueue,
		pingerFunc(vectorIndex.HealthCheck),
	)

	log.Printf("API server starting on :%d", cfg.Server.Port)
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// runWorkerMode starts the ingestion worker and blocks until shutdown.
func runWorkerMode(
	ctx context.Context,
	cfg *config.Config,
	taskQueue driven.TaskQueue,
	ingestionService driving.IngestionService,
) {
	log.Println("Starting worker mode...")

	w := worker.NewWorker(worker.WorkerConfig{
		TaskQueue:      taskQueue,
		Ingestion:      ingestionService,
		Logger:         slog.Default(),
		Concurrency:    cfg.Worker.Concurrency,
		DequeueTimeout: cfg.Worker.DequeueTimeoutSec,
	})

	if err := w.Start(ctx); err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}

	log.Println("Worker started, processing tasks...")

	// Wait for context cancellation
	<-ctx.Done()

	log.Println("Stopping worker...")
	w.Stop()
	log.Println("Worker stopped")
}

// pingerFunc adapts a health-check func to the server's Pinger interface.
type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }
