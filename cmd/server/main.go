// Package main implements the geoflag compliance analysis API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/geoflag/geoflag/engine/analyzer"
	"github.com/geoflag/geoflag/engine/corpus"
	"github.com/geoflag/geoflag/engine/lawgraph"
	"github.com/geoflag/geoflag/engine/llm"
	"github.com/geoflag/geoflag/engine/prompt"
	"github.com/geoflag/geoflag/engine/retrieval"
	"github.com/geoflag/geoflag/engine/semantic"
	"github.com/geoflag/geoflag/pkg/metrics"
	"github.com/geoflag/geoflag/pkg/mid"
	"github.com/geoflag/geoflag/pkg/ollama"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Config holds all environment-based configuration.
type Config struct {
	Port        string
	APIKey      string
	LLMBaseURL  string
	Model       string
	LLMRPS      float64
	EmbedModel  string
	OllamaURL   string
	QdrantURL   string
	Collection  string
	CorpusPath  string
	Neo4jURL    string
	Neo4jUser   string
	Neo4jPass   string
	NATSURL     string
	CORSOrigin  string
	Workers     int
	CacheTTL    time.Duration
	TopK        int
	PromptChars int
}

func loadConfig() Config {
	return Config{
		Port:        envOr("PORT", "8080"),
		APIKey:      os.Getenv("OPENROUTER_API_KEY"),
		LLMBaseURL:  envOr("OPENROUTER_BASE_URL", llm.OpenRouterBaseURL),
		Model:       envOr("LLM_MODEL", llm.DefaultModel),
		LLMRPS:      envFloat("LLM_RPS", 1),
		EmbedModel:  envOr("EMBED_MODEL", ""),
		OllamaURL:   os.Getenv("OLLAMA_URL"),
		QdrantURL:   os.Getenv("QDRANT_URL"),
		Collection:  envOr("QDRANT_COLLECTION", "geoflag"),
		CorpusPath:  envOr("CORPUS_PATH", "legal_corpus.json"),
		Neo4jURL:    os.Getenv("NEO4J_URL"),
		Neo4jUser:   envOr("NEO4J_USER", "neo4j"),
		Neo4jPass:   envOr("NEO4J_PASS", "password"),
		NATSURL:     os.Getenv("NATS_URL"),
		CORSOrigin:  envOr("CORS_ORIGIN", "*"),
		Workers:     envInt("ANALYZE_WORKERS", analyzer.DefaultWorkers),
		CacheTTL:    envDuration("CACHE_TTL", 15*time.Minute),
		TopK:        envInt("RETRIEVAL_TOP_K", retrieval.DefaultTopK),
		PromptChars: envInt("PROMPT_MAX_CHARS", 0),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.New()

	// --- Embedding provider ---
	var embedder retrieval.Embedder
	if cfg.OllamaURL != "" {
		model := cfg.EmbedModel
		if model == "" {
			model = "nomic-embed-text"
		}
		embedder = ollama.NewEmbedClient(cfg.OllamaURL, model)
	} else {
		embedder = llm.NewEmbedder(cfg.LLMBaseURL, cfg.APIKey, cfg.EmbedModel)
	}

	// --- Vector index: qdrant when configured, otherwise an in-process
	// index seeded from the local corpus file ---
	var index retrieval.Searcher
	if cfg.QdrantURL != "" {
		store, err := semantic.New(cfg.QdrantURL, cfg.Collection)
		if err != nil {
			return fmt.Errorf("qdrant connect: %w", err)
		}
		defer store.Close()
		index = store
	} else {
		mem := semantic.NewMemIndex()
		if err := seedMemIndex(ctx, embedder, mem, cfg.CorpusPath, logger); err != nil {
			return fmt.Errorf("seed index: %w", err)
		}
		index = mem
	}

	retriever := retrieval.New(embedder, index, cfg.TopK, logger)

	// --- LLM client ---
	completer := llm.New(llm.Options{
		BaseURL: cfg.LLMBaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		RPS:     cfg.LLMRPS,
	}, logger)

	// --- Optional regulation graph ---
	var enricher analyzer.RegulationEnricher
	if cfg.Neo4jURL != "" {
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
		if err != nil {
			return fmt.Errorf("neo4j driver: %w", err)
		}
		defer driver.Close(ctx)
		enricher = lawgraph.NewEnricher(lawgraph.New(driver), logger)
	}

	// --- Optional report events ---
	var publisher analyzer.Publisher
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("geoflag-server"))
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Close()
		publisher = analyzer.NewNATSPublisher(nc, analyzer.SubjectReportCompleted)
	}

	svc := analyzer.New(retriever, prompt.New(cfg.PromptChars), completer, enricher, publisher,
		analyzer.Options{Workers: cfg.Workers, CacheTTL: cfg.CacheTTL}, logger, reg)

	// --- Build HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/analyze", handleAnalyze(svc, logger))
	mux.HandleFunc("POST /api/analyze/csv", handleAnalyzeCSV(svc, logger))
	mux.Handle("GET /metrics", reg.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.Metrics(reg),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("geoflag-server"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// seedMemIndex loads the corpus file, embeds every chunk, and fills the
// in-process index. Used when no qdrant instance is configured.
func seedMemIndex(ctx context.Context, embedder retrieval.Embedder, mem *semantic.MemIndex, path string, logger *slog.Logger) error {
	docs, err := corpus.Load(path)
	if err != nil {
		return err
	}
	chunks := corpus.Chunks(docs)

	records := make([]semantic.VectorRecord, 0, len(chunks))
	for _, c := range chunks {
		emb, err := embedder.Embed(ctx, c.Text)
		if err != nil {
			return fmt.Errorf("embed chunk %s: %w", c.ID, err)
		}
		records = append(records, semantic.Record(c, emb))
	}
	if err := mem.Upsert(ctx, records); err != nil {
		return err
	}
	logger.Info("in-process index seeded", "documents", len(docs), "chunks", mem.Len())
	return nil
}
