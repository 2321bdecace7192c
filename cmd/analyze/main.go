// Command analyze runs a batch of feature descriptions through the
// compliance pipeline and writes the report to stdout. Features are
// read from stdin or a file, as JSON ({"features":[...]}) or CSV.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/geoflag/geoflag/engine/analyzer"
	"github.com/geoflag/geoflag/engine/corpus"
	"github.com/geoflag/geoflag/engine/domain"
	"github.com/geoflag/geoflag/engine/llm"
	"github.com/geoflag/geoflag/engine/retrieval"
	"github.com/geoflag/geoflag/engine/semantic"
	"github.com/geoflag/geoflag/pkg/ollama"
	"github.com/joho/godotenv"
)

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func main() {
	_ = godotenv.Load()

	var (
		input      = flag.String("input", "-", "features file (JSON or CSV), - for stdin")
		format     = flag.String("format", "json", "output format: json, csv, or summary")
		corpusPath = flag.String("corpus", envOr("CORPUS_PATH", "legal_corpus.json"), "legal corpus JSON file")
		qdrantAddr = flag.String("qdrant", os.Getenv("QDRANT_URL"), "Qdrant gRPC address; empty embeds the corpus in-process")
		collection = flag.String("collection", envOr("QDRANT_COLLECTION", "geoflag"), "Qdrant collection name")
		ollamaURL  = flag.String("ollama", os.Getenv("OLLAMA_URL"), "Ollama base URL; empty uses the hosted embeddings API")
		embedModel = flag.String("embed-model", os.Getenv("EMBED_MODEL"), "embedding model")
		model      = flag.String("model", envOr("LLM_MODEL", llm.DefaultModel), "completion model")
		pureRAG    = flag.Bool("pure-rag", false, "skip the LLM and analyze from retrieval signals only")
		workers    = flag.Int("workers", analyzer.DefaultWorkers, "concurrent analyses")
		topK       = flag.Int("top-k", retrieval.DefaultTopK, "retrieved chunks per feature")
		timeout    = flag.Duration("timeout", 10*time.Minute, "overall run timeout")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	features, err := readFeatures(*input)
	if err != nil {
		logger.Error("read features", "err", err)
		os.Exit(1)
	}

	var embedder retrieval.Embedder
	if *ollamaURL != "" {
		m := *embedModel
		if m == "" {
			m = "nomic-embed-text"
		}
		embedder = ollama.NewEmbedClient(*ollamaURL, m)
	} else {
		embedder = llm.NewEmbedder(envOr("OPENROUTER_BASE_URL", llm.OpenRouterBaseURL), os.Getenv("OPENROUTER_API_KEY"), *embedModel)
	}

	var index retrieval.Searcher
	if *qdrantAddr != "" {
		store, err := semantic.New(*qdrantAddr, *collection)
		if err != nil {
			logger.Error("qdrant connect", "err", err)
			os.Exit(1)
		}
		defer store.Close()
		index = store
	} else {
		mem := semantic.NewMemIndex()
		if err := seedMemIndex(ctx, embedder, mem, *corpusPath); err != nil {
			logger.Error("seed index", "err", err)
			os.Exit(1)
		}
		logger.Info("corpus embedded", "chunks", mem.Len())
		index = mem
	}

	var completer analyzer.Completer = llm.New(llm.Options{
		BaseURL: envOr("OPENROUTER_BASE_URL", llm.OpenRouterBaseURL),
		APIKey:  os.Getenv("OPENROUTER_API_KEY"),
		Model:   *model,
	}, logger)
	if *pureRAG {
		completer = offlineCompleter{}
	}

	svc := analyzer.New(
		retrieval.New(embedder, index, *topK, logger),
		nil, completer, nil, nil,
		analyzer.Options{Workers: *workers}, logger, nil)

	report, err := svc.AnalyzeBatch(ctx, features)
	if err != nil {
		logger.Error("batch analysis failed", "err", err)
		os.Exit(1)
	}

	if err := writeReport(os.Stdout, report, *format); err != nil {
		logger.Error("write report", "err", err)
		os.Exit(1)
	}
}

// offlineCompleter stands in for the LLM when -pure-rag is set; every
// feature takes the retrieval-only degraded path.
type offlineCompleter struct{}

func (offlineCompleter) Complete(context.Context, string, string) (string, error) {
	return "", fmt.Errorf("llm disabled: %w", llm.ErrUnavailable)
}

// featuresDoc is the JSON input envelope. A bare array is also accepted.
type featuresDoc struct {
	Features []domain.FeatureRequest `json:"features"`
}

func readFeatures(path string) ([]domain.FeatureRequest, error) {
	var r io.Reader = os.Stdin
	isCSV := false
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
		isCSV = strings.EqualFold(filepath.Ext(path), ".csv")
	}
	if isCSV {
		return analyzer.FeaturesFromCSV(r)
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return parseFeaturesJSON(raw)
}

func parseFeaturesJSON(raw []byte) ([]domain.FeatureRequest, error) {
	var doc featuresDoc
	if err := json.Unmarshal(raw, &doc); err == nil && len(doc.Features) > 0 {
		return doc.Features, nil
	}
	var list []domain.FeatureRequest
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list, nil
	}
	return nil, fmt.Errorf("input holds no features")
}

func writeReport(w io.Writer, report domain.AnalysisReport, format string) error {
	switch format {
	case "json":
		return analyzer.WriteJSON(w, report)
	case "csv":
		return analyzer.WriteCSV(w, report)
	case "summary":
		return analyzer.WriteSummary(w, report)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func seedMemIndex(ctx context.Context, embedder retrieval.Embedder, mem *semantic.MemIndex, path string) error {
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
	return mem.Upsert(ctx, records)
}
