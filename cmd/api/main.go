package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/docchat/backend/internal/api/handlers"
	"github.com/docchat/backend/internal/cache/redis"
	"github.com/docchat/backend/internal/chunker"
	"github.com/docchat/backend/internal/embedding"
	"github.com/docchat/backend/internal/extract"
	"github.com/docchat/backend/internal/ingestion"
	"github.com/docchat/backend/internal/llm"
	"github.com/docchat/backend/internal/metrics"
	"github.com/docchat/backend/internal/rag"
	"github.com/docchat/backend/internal/retrieval"
	"github.com/docchat/backend/internal/storage/sqlite"
	"github.com/docchat/backend/internal/vector/milvus"
	"github.com/docchat/backend/pkg/config"
	appLogger "github.com/docchat/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting document chat API server")

	// Embedding dimension and index dimension must agree before anything
	// is written or queried.
	if cfg.LLM.EmbeddingDim != cfg.Milvus.VectorDim {
		appLogger.Fatal("Embedding dimension does not match index dimension",
			zap.Int("embedding_dim", cfg.LLM.EmbeddingDim),
			zap.Int("index_dim", cfg.Milvus.VectorDim),
			zap.Error(rag.ErrInvalidConfiguration),
		)
	}

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	milvusClient, err := milvus.NewClient(
		context.Background(),
		cfg.Milvus.Endpoint,
		cfg.Milvus.APIKey,
		cfg.Milvus.CollectionName,
		cfg.Milvus.VectorDim,
		cfg.Milvus.UpsertBatch,
	)
	if err != nil {
		appLogger.Fatal("Failed to create Milvus client", zap.Error(err))
	}
	defer milvusClient.Close()

	if err := milvusClient.EnsureCollection(context.Background()); err != nil {
		appLogger.Fatal("Failed to ensure collection", zap.Error(err))
	}
	if err := milvusClient.EnsureNamespace(context.Background(), cfg.Milvus.Namespace); err != nil {
		appLogger.Fatal("Failed to ensure namespace", zap.Error(err))
	}

	var cacheClient *redis.Client
	if cfg.Redis.Enabled {
		cacheClient, err = redis.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			time.Duration(cfg.Redis.TTLSec)*time.Second,
		)
		if err != nil {
			appLogger.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer cacheClient.Close()
	}

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.BaseURL,
		cfg.LLM.Model,
		cfg.LLM.EmbeddingModel,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
	)

	var embeddingCache embedding.Cache
	if cacheClient != nil {
		embeddingCache = cacheClient
	}

	embedder, err := embedding.New(llmClient, cfg.LLM.EmbeddingDim, embeddingCache)
	if err != nil {
		appLogger.Fatal("Failed to create embedder", zap.Error(err))
	}

	ch, err := chunker.New(cfg.Chunker.ChunkSize, cfg.Chunker.Overlap)
	if err != nil {
		appLogger.Fatal("Invalid chunker configuration", zap.Error(err))
	}

	extractRegistry := extract.NewRegistry(extract.NewPDFExtractor())

	ingestPipeline := ingestion.NewPipeline(
		extractRegistry,
		ch,
		embedder,
		milvusClient,
		sqliteClient,
		cfg.Milvus.Namespace,
	)

	var answerCache retrieval.AnswerCache
	if cacheClient != nil {
		answerCache = cacheClient
	}

	retrievalPipeline := retrieval.NewPipeline(
		embedder,
		milvusClient,
		llmClient,
		answerCache,
		cfg.Milvus.Namespace,
		cfg.Retrieval.TopK,
	)

	metrics.Register()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	documentHandler := handlers.NewDocumentHandler(ingestPipeline, sqliteClient)
	chatHandler := handlers.NewChatHandler(retrievalPipeline)

	api := app.Group("/api/v1")

	api.Post("/documents", documentHandler.UploadDocument)
	api.Post("/documents/text", documentHandler.IngestText)
	api.Get("/documents", documentHandler.ListDocuments)
	api.Post("/chat", chatHandler.HandleChat)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	app.Get("/metrics", metrics.Handler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
