// Command index embeds a legal corpus file and loads it into Qdrant.
// Run it whenever the corpus changes; chunk IDs are deterministic, so
// re-running on an unchanged corpus overwrites points in place.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/geoflag/geoflag/engine/corpus"
	"github.com/geoflag/geoflag/engine/lawgraph"
	"github.com/geoflag/geoflag/engine/llm"
	"github.com/geoflag/geoflag/engine/retrieval"
	"github.com/geoflag/geoflag/engine/semantic"
	"github.com/geoflag/geoflag/pkg/ollama"
	"github.com/joho/godotenv"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const upsertBatch = 64

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func main() {
	_ = godotenv.Load()

	var (
		corpusPath   = flag.String("corpus", envOr("CORPUS_PATH", "legal_corpus.json"), "legal corpus JSON file")
		qdrantAddr   = flag.String("qdrant", envOr("QDRANT_URL", "localhost:6334"), "Qdrant gRPC address")
		collection   = flag.String("collection", envOr("QDRANT_COLLECTION", "geoflag"), "Qdrant collection name")
		ollamaURL    = flag.String("ollama", os.Getenv("OLLAMA_URL"), "Ollama base URL; empty uses the hosted embeddings API")
		embedModel   = flag.String("embed-model", os.Getenv("EMBED_MODEL"), "embedding model")
		neo4jURL     = flag.String("neo4j", os.Getenv("NEO4J_URL"), "Neo4j bolt URL; empty skips the regulation graph")
		neo4jUser    = flag.String("neo4j-user", envOr("NEO4J_USER", "neo4j"), "Neo4j username")
		neo4jPass    = flag.String("neo4j-pass", envOr("NEO4J_PASS", "password"), "Neo4j password")
		recreate     = flag.Bool("recreate", false, "drop and recreate the collection first")
		statutesOnly = flag.Bool("statutes-only", false, "index only statute and legal document entries")
		timeout      = flag.Duration("timeout", 30*time.Minute, "overall run timeout")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	if err := run(ctx, logger, options{
		corpusPath:   *corpusPath,
		qdrantAddr:   *qdrantAddr,
		collection:   *collection,
		ollamaURL:    *ollamaURL,
		embedModel:   *embedModel,
		neo4jURL:     *neo4jURL,
		neo4jUser:    *neo4jUser,
		neo4jPass:    *neo4jPass,
		recreate:     *recreate,
		statutesOnly: *statutesOnly,
	}); err != nil {
		logger.Error("indexing failed", "err", err)
		os.Exit(1)
	}
}

type options struct {
	corpusPath   string
	qdrantAddr   string
	collection   string
	ollamaURL    string
	embedModel   string
	neo4jURL     string
	neo4jUser    string
	neo4jPass    string
	recreate     bool
	statutesOnly bool
}

func run(ctx context.Context, logger *slog.Logger, opts options) error {
	docs, err := corpus.Load(opts.corpusPath)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	if opts.statutesOnly {
		docs = corpus.Statutes(docs)
	}
	chunks := corpus.Chunks(docs)
	if len(chunks) == 0 {
		return fmt.Errorf("corpus %s holds no indexable chunks", opts.corpusPath)
	}
	logger.Info("corpus loaded", "documents", len(docs), "chunks", len(chunks))

	embedder := newEmbedder(opts)

	store, err := semantic.New(opts.qdrantAddr, opts.collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer store.Close()

	if opts.recreate {
		if err := store.DeleteCollection(ctx); err != nil {
			logger.Warn("drop collection failed", "err", err)
		}
	}

	// Embed the first chunk up front to learn the vector dimension.
	first, err := embedder.Embed(ctx, chunks[0].Text)
	if err != nil {
		return fmt.Errorf("embed probe: %w", err)
	}
	if err := store.EnsureCollection(ctx, len(first)); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	start := time.Now()
	batch := make([]semantic.VectorRecord, 0, upsertBatch)
	for i, c := range chunks {
		emb := first
		if i > 0 {
			emb, err = embedder.Embed(ctx, c.Text)
			if err != nil {
				return fmt.Errorf("embed chunk %s: %w", c.ID, err)
			}
		}
		batch = append(batch, semantic.Record(c, emb))
		if len(batch) == upsertBatch {
			if err := store.Upsert(ctx, batch); err != nil {
				return fmt.Errorf("upsert: %w", err)
			}
			logger.Info("batch indexed", "chunks", i+1, "total", len(chunks))
			batch = batch[:0]
		}
	}
	if err := store.Upsert(ctx, batch); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	logger.Info("index complete", "chunks", len(chunks), "elapsed", time.Since(start))

	if opts.neo4jURL != "" {
		if err := seedGraph(ctx, logger, opts, docs); err != nil {
			return fmt.Errorf("seed graph: %w", err)
		}
	}
	return nil
}

func newEmbedder(opts options) retrieval.Embedder {
	if opts.ollamaURL != "" {
		model := opts.embedModel
		if model == "" {
			model = "nomic-embed-text"
		}
		return ollama.NewEmbedClient(opts.ollamaURL, model)
	}
	return llm.NewEmbedder(envOr("OPENROUTER_BASE_URL", llm.OpenRouterBaseURL), os.Getenv("OPENROUTER_API_KEY"), opts.embedModel)
}

// seedGraph mirrors corpus regulations into the regulation graph so the
// enricher can cross-reference them at analysis time.
func seedGraph(ctx context.Context, logger *slog.Logger, opts options, docs []corpus.Document) error {
	driver, err := neo4j.NewDriverWithContext(opts.neo4jURL, neo4j.BasicAuth(opts.neo4jUser, opts.neo4jPass, ""))
	if err != nil {
		return err
	}
	defer driver.Close(ctx)

	graph := lawgraph.New(driver)
	for _, d := range docs {
		if err := graph.SaveRegulation(ctx, d.Title, d.Jurisdictions); err != nil {
			return fmt.Errorf("save %q: %w", d.Title, err)
		}
	}
	logger.Info("regulation graph seeded", "regulations", len(docs))
	return nil
}
