package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"steward-core/internal/adapter/api"
	"steward-core/internal/adapter/client"
	"steward-core/internal/adapter/sink"
	"steward-core/internal/adapter/store"
	"steward-core/internal/config"
	"steward-core/internal/domain/entity"
	"steward-core/internal/domain/repository"
	"steward-core/internal/registry"
	"steward-core/internal/usecase"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/qdrant/go-client/qdrant"
	"github.com/redis/go-redis/v9"
	"google.golang.org/genai"
)

const (
	genaiEmbeddingModel = "text-embedding-004"
	genaiEmbeddingDim   = 768
	hashEmbeddingDim    = 256
)

func main() {
	if err := godotenv.Load(".env.dev"); err != nil {
		log.Println("Warning: .env.dev file not found, using system environment variables")
	}
	ctx := context.Background()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	file, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	cfgStore, err := file.BuildStore()
	if err != nil {
		log.Fatalf("failed to seed configuration store: %v", err)
	}

	reg := registry.New()
	for _, desc := range file.Descriptors() {
		if err := reg.Register(desc); err != nil {
			log.Fatalf("failed to register provider %s: %v", desc.ID, err)
		}
	}

	// Cloud credentials are optional: without them the gateway runs on
	// local/marketplace providers with the deterministic embedder.
	var genaiClient *genai.Client
	if projectID := os.Getenv("GOOGLE_CLOUD_PROJECT"); projectID != "" {
		genaiClient, err = genai.NewClient(ctx, &genai.ClientConfig{
			Project:  projectID,
			Location: os.Getenv("GOOGLE_CLOUD_LOCATION"),
			Backend:  genai.BackendVertexAI,
		})
		if err != nil {
			log.Fatalf("failed to init genai client: %v", err)
		}
	}

	var embedder repository.Embedder
	embeddingDim := uint64(hashEmbeddingDim)
	if genaiClient != nil {
		embedder = client.NewGeminiEmbedder(genaiClient, genaiEmbeddingModel)
		embeddingDim = genaiEmbeddingDim
	} else {
		log.Println("[STEWARD] no cloud project configured, using hash embedder")
		embedder = client.NewHashEmbedder(hashEmbeddingDim)
	}

	httpClient := &http.Client{}
	adapters := make(map[string]repository.TextProvider)
	for _, p := range file.Providers {
		switch entity.ProviderKind(p.Kind) {
		case entity.KindCloudServerless:
			if genaiClient == nil {
				log.Printf("[STEWARD] provider %s skipped: no cloud credentials", p.ID)
				reg.MarkUnavailable(p.ID)
				continue
			}
			adapters[p.ID] = client.NewGeminiClientFromClient(genaiClient, p.ID)
		case entity.KindLocalRuntime:
			adapters[p.ID] = client.NewOllamaClient(p.ID, p.BaseURL, httpClient)
		case entity.KindMarketplace:
			apiKey := os.Getenv(p.APIKeyEnv)
			if apiKey == "" {
				log.Printf("[STEWARD] provider %s skipped: env %s is empty", p.ID, p.APIKeyEnv)
				reg.MarkUnavailable(p.ID)
				continue
			}
			adapters[p.ID] = client.NewMarketplaceClient(p.ID, p.BaseURL, apiKey, httpClient)
		}
	}

	// Qdrant for the shared semantic cache; in-memory otherwise.
	var vectorStore repository.VectorStore
	if qdrantHost := os.Getenv("QDRANT_HOST"); qdrantHost != "" {
		qdrantPort, _ := strconv.Atoi(os.Getenv("QDRANT_PORT"))
		qClient, err := qdrant.NewClient(&qdrant.Config{
			Host: qdrantHost,
			Port: qdrantPort,
		})
		if err != nil {
			log.Fatalf("failed to connect to qdrant: %v", err)
		}
		qStore := store.NewQdrantStore(qClient, os.Getenv("QDRANT_COLLECTION"))
		if err := qStore.InitCollection(ctx, embeddingDim); err != nil {
			log.Fatalf("failed to init qdrant collection: %v", err)
		}
		vectorStore = qStore
	} else {
		log.Println("[STEWARD] no qdrant configured, using in-memory cache store")
		vectorStore = store.NewMemoryStore()
	}

	cache := usecase.NewSemanticCache(vectorStore, cfgStore)
	cache.StartSweeper(ctx, time.Duration(file.Cache.SweepInterval))

	var corpusReader repository.CorpusReader
	if file.Corpus.SQLitePath != "" {
		sqliteCorpus, err := store.OpenCorpus(file.Corpus.SQLitePath)
		if err != nil {
			log.Fatalf("failed to open reference corpus: %v", err)
		}
		defer sqliteCorpus.Close()
		corpusReader = sqliteCorpus
	} else {
		log.Println("[STEWARD] no corpus configured, using built-in reference responses")
		corpusReader = usecase.DefaultCorpus()
	}
	corpusIndex, err := usecase.BuildCorpusIndex(ctx, corpusReader, embedder)
	if err != nil {
		log.Fatalf("failed to index reference corpus: %v", err)
	}

	validator := usecase.NewValidator(usecase.ValidatorConfig{
		MinLength:            file.Validation.MinLength,
		MaxLength:            file.Validation.MaxLength,
		PassThreshold:        file.Validation.PassThreshold,
		InstructionFragments: file.Validation.InstructionFragments,
	}, corpusIndex)

	// Redis for the per-session token budget
	var limiter repository.TokenLimiter
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" && file.Limits.SessionTokens > 0 {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		limiter = store.NewSessionLimiter(rdb, file.Limits.SessionTokens)
	}

	router := usecase.NewRouter(usecase.RouterParams{
		Config:    cfgStore,
		Registry:  reg,
		Cache:     cache,
		Embedder:  embedder,
		Validator: validator,
		Adapters:  adapters,
		Sink:      sink.NewSlogSink(os.Stdout),
		Policy: usecase.RoutingPolicy{
			DefaultProvider:  file.Routing.DefaultProvider,
			DefaultModel:     file.Routing.DefaultModel,
			FallbackEnabled:  file.Routing.Fallback.Enabled,
			FallbackProvider: file.Routing.Fallback.Provider,
			FallbackModel:    file.Routing.Fallback.Model,
		},
		Timeout: time.Duration(file.Routing.RequestTimeout),
		Params:  entity.GenerationParams{Temperature: 0.7},
	})

	prober := usecase.NewProber(reg, adapters, time.Duration(file.Routing.RequestTimeout))

	go func() {
		warmCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if _, err := embedder.CreateEmbedding(warmCtx, "warmup"); err != nil {
			log.Printf("[STEWARD-WARMER] embedder warm-up failed: %v", err)
		}
		prober.ProbeAll(warmCtx)
		log.Println("[STEWARD-WARMER] pre-warm complete, gateway is ready")
	}()

	app := fiber.New(fiber.Config{
		AppName: "Steward Assistant Gateway",
	})

	chatHandler := api.NewChatHandler(router, limiter)
	adminHandler := api.NewAdminHandler(cfgStore, reg, prober)
	api.SetupRouter(app, chatHandler, adminHandler)

	log.Printf("Steward gateway running on port %d", file.Server.Port)
	log.Fatal(app.Listen(fmt.Sprintf(":%d", file.Server.Port)))
}
