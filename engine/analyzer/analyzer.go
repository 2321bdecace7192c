// Package analyzer orchestrates the compliance pipeline: validate the
// feature, retrieve statutory context, compose the prompt, call the
// LLM, parse and validate its output, and score risk. A full batch is
// processed by a bounded worker pool; every feature produces a result,
// degraded when the LLM is unavailable, annotated when its input was
// rejected or the model's output was unusable.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/geoflag/geoflag/engine/corpus"
	"github.com/geoflag/geoflag/engine/domain"
	"github.com/geoflag/geoflag/engine/lawgraph"
	"github.com/geoflag/geoflag/engine/llm"
	"github.com/geoflag/geoflag/engine/parse"
	"github.com/geoflag/geoflag/engine/prompt"
	"github.com/geoflag/geoflag/engine/retrieval"
	"github.com/geoflag/geoflag/engine/score"
	"github.com/geoflag/geoflag/pkg/fn"
	"github.com/geoflag/geoflag/pkg/metrics"
)

// DefaultWorkers bounds batch concurrency; the ceiling exists to
// respect provider rate limits, not CPU.
const DefaultWorkers = 4

// maxNotes caps implementation notes per result.
const maxNotes = 8

// recoveredConfidence is assigned when the LLM answered but its output
// could not be parsed into the contract.
const recoveredConfidence = 0.3

// Retriever finds ranked statutory context for a feature.
type Retriever interface {
	Retrieve(ctx context.Context, f domain.FeatureRequest) ([]retrieval.Match, error)
}

// Completer produces a completion for a system+user prompt pair.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// RegulationEnricher extends findings with graph-adjacent regulations.
type RegulationEnricher interface {
	Enrich(ctx context.Context, findings []domain.RegulationFinding) []domain.RegulationFinding
}

// Publisher emits completed reports as events.
type Publisher interface {
	PublishReport(ctx context.Context, report domain.AnalysisReport) error
}

// Options configures the Analyzer.
type Options struct {
	Workers  int
	CacheTTL time.Duration // 0 disables result caching
}

// Analyzer runs the analysis pipeline.
type Analyzer struct {
	retriever Retriever
	composer  *prompt.Composer
	completer Completer
	enricher  RegulationEnricher
	publisher Publisher
	cache     *resultCache
	workers   int
	log       *slog.Logger
	reg       *metrics.Registry
	now       func() time.Time
}

// New creates an Analyzer. enricher and publisher may be nil.
func New(r Retriever, c *prompt.Composer, completer Completer, enricher RegulationEnricher, publisher Publisher, opts Options, log *slog.Logger, reg *metrics.Registry) *Analyzer {
	if c == nil {
		c = prompt.New(0)
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if log == nil {
		log = slog.Default()
	}
	if reg == nil {
		reg = metrics.New()
	}
	var cache *resultCache
	if opts.CacheTTL > 0 {
		cache = newResultCache(opts.CacheTTL)
	}
	return &Analyzer{
		retriever: r,
		composer:  c,
		completer: completer,
		enricher:  enricher,
		publisher: publisher,
		cache:     cache,
		workers:   opts.Workers,
		log:       log,
		reg:       reg,
		now:       time.Now,
	}
}

// AnalyzeBatch runs every feature through the pipeline with bounded
// concurrency and assembles the report. Result order matches input
// order. Only systemic failures (loss of the embedding provider) abort
// the batch; everything else degrades per feature.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, features []domain.FeatureRequest) (domain.AnalysisReport, error) {
	start := a.now()
	a.log.Info("batch analysis start", "features", len(features))

	results := fn.ParMapResult(features, a.workers, func(f domain.FeatureRequest) fn.Result[domain.AnalysisResult] {
		return fn.FromPair(a.AnalyzeFeature(ctx, f))
	})

	collected, err := fn.Collect(results).Unwrap()
	if err != nil {
		return domain.AnalysisReport{}, fmt.Errorf("analyzer: batch aborted: %w", err)
	}

	report := buildReport(collected, a.now())
	a.log.Info("batch analysis done",
		"features", len(features),
		"high_risk", report.Summary.HighRiskFeatures,
		"elapsed", a.now().Sub(start))
	a.reg.Counter("analyzer_batches_total", "Completed batch analyses.").Inc()
	a.reg.Counter("analyzer_features_total", "Features analyzed.").Add(int64(len(features)))

	if a.publisher != nil {
		if err := a.publisher.PublishReport(ctx, report); err != nil {
			a.log.Warn("report publish failed", "error", err)
		}
	}
	return report, nil
}

// AnalyzeFeature runs one feature through the pipeline. The returned
// error is systemic (embedding provider loss); per-feature problems
// are folded into the result instead.
func (a *Analyzer) AnalyzeFeature(ctx context.Context, f domain.FeatureRequest) (domain.AnalysisResult, error) {
	if err := domain.ValidateFeature(f); err != nil {
		a.reg.Counter("analyzer_input_rejected_total", "Features rejected by input validation.").Inc()
		return a.rejectedResult(f, err), nil
	}

	if a.cache != nil {
		if cached, ok := a.cache.get(f); ok {
			a.reg.Counter("analyzer_cache_hits_total", "Analysis results served from cache.").Inc()
			return cached, nil
		}
	}

	pipeline := fn.Then(
		fn.TracedStage("analyzer.retrieve", func(ctx context.Context, f domain.FeatureRequest) fn.Result[[]retrieval.Match] {
			return fn.FromPair(a.retriever.Retrieve(ctx, f))
		}),
		fn.TracedStage("analyzer.synthesize", func(ctx context.Context, matches []retrieval.Match) fn.Result[domain.AnalysisResult] {
			return fn.Ok(a.synthesize(ctx, f, matches))
		}),
	)

	result, err := pipeline(ctx, f).Unwrap()
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("analyzer: retrieve %q: %w", f.FeatureName, err)
	}
	result.FeatureID = f.ID
	result.FeatureName = f.FeatureName
	result.Timestamp = a.now().UTC()

	if a.cache != nil {
		a.cache.put(f, result)
	}
	return result, nil
}

// synthesize runs the LLM leg and merges its output with retrieval
// signals, falling back to retrieval-only analysis when the provider
// is unavailable.
func (a *Analyzer) synthesize(ctx context.Context, f domain.FeatureRequest, matches []retrieval.Match) domain.AnalysisResult {
	userPrompt := a.composer.Compose(f, matches)

	text, err := a.completer.Complete(ctx, prompt.SystemMessage, userPrompt)
	if err != nil {
		if errors.Is(err, llm.ErrUnavailable) {
			a.reg.Counter("analyzer_pure_rag_total", "Features analyzed in degraded retrieval-only mode.").Inc()
			a.log.Warn("llm unavailable, using retrieval-only analysis", "feature", f.FeatureName)
			return a.pureRAG(ctx, f, matches)
		}
		a.reg.Counter("analyzer_llm_errors_total", "Non-availability LLM call failures.").Inc()
		return a.recovered(ctx, f, matches, fmt.Sprintf("LLM call failed: %v", err))
	}

	parsed, err := parse.Response(text)
	if err != nil {
		a.reg.Counter("analyzer_parse_failures_total", "LLM completions rejected by the parser.").Inc()
		a.log.Warn("llm output unusable", "feature", f.FeatureName, "error", err)
		return a.recovered(ctx, f, matches, fmt.Sprintf("LLM output could not be parsed: %v", err))
	}

	return a.merge(ctx, f, matches, parsed)
}

// merge reconciles the parsed LLM output with retrieval-derived
// scoring. The risk level is never allowed below the band the signals
// imply.
func (a *Analyzer) merge(ctx context.Context, f domain.FeatureRequest, matches []retrieval.Match, parsed domain.AnalysisResult) domain.AnalysisResult {
	out := parsed
	out.AnalysisMode = domain.ModeLLMRAG

	regHits, topic, geo := retrieval.Signals(matches)
	s := score.Score(score.Inputs{RegulationHits: regHits, TopicScore: topic, GeoScore: geo})
	scored := score.Level(s)
	if riskRank(scored) > riskRank(out.RiskLevel) {
		out.RiskLevel = scored
	}

	analysisText := analysisText(f, matches)
	out.ApplicableRegulations = mergeFindings(out.ApplicableRegulations, score.TriggerRegulations(analysisText))
	if a.enricher != nil {
		out.ApplicableRegulations = a.enricher.Enrich(ctx, out.ApplicableRegulations)
	}

	if out.ActionRequired == "" {
		out.ActionRequired = score.DefaultAction(out.RiskLevel, appliedCount(out.ApplicableRegulations))
	}
	if out.HumanReviewNeeded && out.ActionRequired == domain.ActionNone {
		out.ActionRequired = domain.ActionHumanReview
	}
	if f.Code == "" {
		out.CodeIssues = nil
	}
	out.ImplementationNotes = capNotes(out.ImplementationNotes)
	return out
}

// pureRAG derives a result from retrieval signals alone. Confidence is
// forced into the degraded band and the action is always to monitor.
func (a *Analyzer) pureRAG(ctx context.Context, f domain.FeatureRequest, matches []retrieval.Match) domain.AnalysisResult {
	regHits, topic, geo := retrieval.Signals(matches)
	s := score.Score(score.Inputs{RegulationHits: regHits, TopicScore: topic, GeoScore: geo})
	level := score.Level(s)

	findings := retrievedFindings(matches)
	findings = mergeFindings(findings, score.TriggerRegulations(analysisText(f, matches)))
	if a.enricher != nil {
		findings = a.enricher.Enrich(ctx, findings)
	}

	notes := score.ImplementationNotes(f.FeatureName, f.Description, level)
	notes = append(notes, "Degraded analysis: LLM unavailable, result derived from retrieved statutes only")

	return domain.AnalysisResult{
		NeedsComplianceLogic:  regHits > 0 && level != domain.RiskLow,
		Confidence:            score.FallbackConfidence(f.FeatureName),
		RiskLevel:             level,
		ActionRequired:        domain.ActionMonitor,
		ApplicableRegulations: findings,
		ImplementationNotes:   capNotes(notes),
		HumanReviewNeeded:     level == domain.RiskHigh,
		AnalysisMode:          domain.ModePureRAG,
	}
}

// recovered handles unusable LLM output: defaulted fields, medium
// risk, and a mandatory human review flag.
func (a *Analyzer) recovered(ctx context.Context, f domain.FeatureRequest, matches []retrieval.Match, reason string) domain.AnalysisResult {
	regHits, _, _ := retrieval.Signals(matches)

	findings := retrievedFindings(matches)
	if a.enricher != nil {
		findings = a.enricher.Enrich(ctx, findings)
	}

	return domain.AnalysisResult{
		NeedsComplianceLogic:  regHits > 0,
		Confidence:            recoveredConfidence,
		RiskLevel:             domain.RiskMedium,
		ActionRequired:        domain.ActionHumanReview,
		ApplicableRegulations: findings,
		ImplementationNotes:   []string{reason, "Manual compliance review required"},
		HumanReviewNeeded:     true,
		AnalysisMode:          domain.ModeLLMRAG,
		Error:                 reason,
	}
}

func (a *Analyzer) rejectedResult(f domain.FeatureRequest, err error) domain.AnalysisResult {
	return domain.AnalysisResult{
		FeatureID:         f.ID,
		FeatureName:       f.FeatureName,
		RiskLevel:         domain.RiskMedium,
		ActionRequired:    domain.ActionHumanReview,
		HumanReviewNeeded: true,
		AnalysisMode:      domain.ModeError,
		Error:             err.Error(),
		Timestamp:         a.now().UTC(),
	}
}

// analysisText is the combined text regulation triggers scan.
func analysisText(f domain.FeatureRequest, matches []retrieval.Match) string {
	var b strings.Builder
	b.WriteString(f.FeatureName)
	b.WriteString(" ")
	b.WriteString(corpus.ExpandJargon(f.Description))
	for _, m := range matches {
		b.WriteString(" ")
		b.WriteString(m.Chunk.Text)
	}
	return b.String()
}

// retrievedFindings turns matched chunks into applicable-regulation
// findings, one per distinct regulation, in rank order.
func retrievedFindings(matches []retrieval.Match) []domain.RegulationFinding {
	names := fn.Filter(
		fn.Unique(fn.Map(matches, func(m retrieval.Match) string { return m.Chunk.Regulation })),
		func(name string) bool { return name != "" })
	return fn.Map(names, func(name string) domain.RegulationFinding {
		return domain.RegulationFinding{
			Name:    name,
			Applies: true,
			Reason:  "Retrieved as relevant statutory context for this feature",
		}
	})
}

// mergeFindings unions findings by name; earlier entries win.
func mergeFindings(base, extra []domain.RegulationFinding) []domain.RegulationFinding {
	return fn.UniqueBy(append(base, extra...),
		func(f domain.RegulationFinding) string { return f.Name })
}

func appliedCount(findings []domain.RegulationFinding) int {
	n := 0
	for _, f := range findings {
		if f.Applies {
			n++
		}
	}
	return n
}

func capNotes(notes []string) []string {
	seen := make(map[string]bool, len(notes))
	out := notes[:0]
	for _, n := range notes {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
		if len(out) == maxNotes {
			break
		}
	}
	return out
}

func riskRank(l domain.RiskLevel) int {
	switch l {
	case domain.RiskHigh:
		return 2
	case domain.RiskMedium:
		return 1
	default:
		return 0
	}
}

// lawgraph.Enricher satisfies RegulationEnricher.
var _ RegulationEnricher = (*lawgraph.Enricher)(nil)
