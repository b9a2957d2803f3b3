package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/gin-gonic/gin"
	"google.golang.org/genai"

	"docqa/config"
	"docqa/controller"
	"docqa/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: invalid configuration: %v", err)
	}

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	chromaClient, err := chromago.NewHTTPClient(chromago.WithBaseURL(cfg.ChromaURL))
	if err != nil {
		log.Fatalf("FATAL: failed to create chroma client: %v", err)
	}
	defer func() {
		if closeErr := chromaClient.Close(); closeErr != nil {
			log.Printf("WARN: failed to close chroma client: %v", closeErr)
		}
	}()

	gateway := services.NewChromaGateway(chromaClient, services.ChromaGatewayConfig{
		CollectionName: cfg.CollectionName,
		Dimension:      cfg.Dimension,
		BatchSize:      cfg.UpsertBatchSize,
		PollInterval:   cfg.ReadinessPollInterval,
		MaxWait:        cfg.ReadinessMaxWait,
	})
	if err := gateway.EnsureCollection(context.Background()); err != nil {
		log.Fatalf("FATAL: failed to prepare collection: %v", err)
	}

	geminiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  os.Getenv(cfg.GeminiAPIKeyEnv),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Fatalf("FATAL: failed to create gemini client: %v, make sure %s is set", err, cfg.GeminiAPIKeyEnv)
	}
	log.Println("successfully connected to Google Gemini")

	chunker, err := services.NewChunker(cfg.ChunkSize)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	embedder := services.NewOpenAIEmbedder(httpClient, cfg.EmbeddingBaseURL, os.Getenv(cfg.EmbeddingAPIKeyEnv), cfg.EmbeddingModel)
	generator := services.NewGeminiGenerator(geminiClient, cfg.GeminiModel)
	composer := services.NewPromptComposer()
	retryPolicy := services.RetryPolicy{
		MaxRetries: uint64(cfg.MaxRetries),
		BaseDelay:  cfg.RetryBaseDelay,
	}

	ingestion := services.NewIngestionService(chunker, embedder, gateway, retryPolicy, cfg.DeleteStaleOnReingest)
	query := services.NewQueryService(embedder, gateway, composer, generator, cfg.TopK, retryPolicy)

	var indexer *services.DirectoryIndexer
	if cfg.DocumentsDir != "" {
		indexer = services.NewDirectoryIndexer(cfg.DocumentsDir, ingestion, gateway)
	}

	ragController := controller.NewRAGController(ingestion, query, indexer, gateway)

	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	if indexer != nil && cfg.WatchDocuments {
		go indexer.Watch(watchCtx)
	}

	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "document Q&A API",
		})
	})

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/query", ragController.Query)
		apiV1.POST("/documents", ragController.IngestDocuments)
		apiV1.POST("/reindex", ragController.Reindex)
		apiV1.GET("/stats", ragController.Stats)
	}

	log.Printf("server starting on http://localhost:%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("FATAL: failed to start server: %v", err)
	}
}
