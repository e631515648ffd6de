// Package app assembles the application: storage, providers, pipeline,
// services and the HTTP server.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fahmykhattab/docuai/internal/config"
	"github.com/fahmykhattab/docuai/internal/core"
	db "github.com/fahmykhattab/docuai/internal/core/database"
	"github.com/fahmykhattab/docuai/internal/core/classify"
	"github.com/fahmykhattab/docuai/internal/core/embeddings"
	"github.com/fahmykhattab/docuai/internal/core/llm"
	objectclient "github.com/fahmykhattab/docuai/internal/core/object-client"
	"github.com/fahmykhattab/docuai/internal/core/ocr"
	"github.com/fahmykhattab/docuai/internal/core/pipeline"
	"github.com/fahmykhattab/docuai/internal/core/rag"
	"github.com/fahmykhattab/docuai/internal/core/search"
	"github.com/fahmykhattab/docuai/internal/core/thumbnail"
	"github.com/fahmykhattab/docuai/internal/services"
)

type App struct {
	DBClient core.DbClient
	Blobs    core.BlobStore
	Queue    *pipeline.Queue
	Watcher  *services.Watcher
	Server   *Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	initCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(initCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Database initialized and ready.")

	blobs, err := objectclient.New(initCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Printf("Blob store (%s) initialized and ready.", cfg.StorageBackend)

	if err := os.MkdirAll(cfg.ThumbnailDir, 0o755); err != nil {
		return nil, fmt.Errorf("create thumbnail dir: %w", err)
	}

	llmProvider, embedProvider, err := buildProviders(initCtx, cfg)
	if err != nil {
		return nil, err
	}

	embedder := embeddings.NewService(embedProvider)
	orchestrator := pipeline.NewOrchestrator(
		dbClient,
		blobs,
		ocr.NewExtractor(llmProvider, cfg.OCRLanguage),
		classify.NewMetadataClassifier(llmProvider),
		classify.NewFieldExtractor(llmProvider),
		embedder,
		thumbnail.NewGenerator(),
		cfg.ThumbnailDir,
	)
	queue := pipeline.NewQueue(orchestrator, cfg.Workers)

	docService := services.NewDocumentService(dbClient, blobs, queue, cfg)
	watcher := services.NewWatcher(docService, cfg)
	engine := search.NewEngine(dbClient, embedder)
	ragService := rag.NewService(dbClient, llmProvider, embedder)

	server := NewServer(cfg, dbClient, blobs, docService, engine, ragService)

	return &App{
		DBClient: dbClient,
		Blobs:    blobs,
		Queue:    queue,
		Watcher:  watcher,
		Server:   server,
	}, nil
}

// buildProviders picks the generation and embedding backends from AI_PROVIDER.
// Ollama is the default; "gemini" switches both to the Google API.
func buildProviders(ctx context.Context, cfg *config.Config) (core.LLMProvider, core.EmbeddingProvider, error) {
	if cfg.AIProvider == "gemini" {
		gen, err := llm.NewGeminiLLM(ctx, cfg.GeminiAPIKey, cfg.GenModel)
		if err != nil {
			return nil, nil, fmt.Errorf("init gemini llm: %w", err)
		}
		emb, err := llm.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbedModel, cfg.EmbedDim)
		if err != nil {
			return nil, nil, fmt.Errorf("init gemini embedder: %w", err)
		}
		return gen, emb, nil
	}
	gen := llm.NewOllamaClient(cfg.OllamaURL, cfg.OllamaModel, cfg.OllamaVisionModel)
	emb := llm.NewOllamaEmbedder(cfg.OllamaURL, cfg.EmbedModel, cfg.EmbedDim)
	return gen, emb, nil
}

// Start launches the background workers, the consume-directory watcher and the
// HTTP server. It returns once the server is listening.
func (a *App) Start(ctx context.Context) {
	a.Queue.Start(ctx)
	go func() {
		if err := a.Watcher.Run(ctx); err != nil {
			log.Printf("watcher stopped: %v", err)
		}
	}()
	go a.Server.Start()
}

func (a *App) Close() {
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
