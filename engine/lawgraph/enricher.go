package lawgraph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/geoflag/geoflag/engine/domain"
)

// Finder is the read side of the regulation graph.
type Finder interface {
	Related(ctx context.Context, name string) ([]string, error)
}

// Enricher appends graph-adjacent regulations to a feature's findings.
// Graph failures are logged and skipped; enrichment never blocks an
// analysis.
type Enricher struct {
	finder Finder
	log    *slog.Logger
}

// NewEnricher creates an Enricher.
func NewEnricher(finder Finder, log *slog.Logger) *Enricher {
	if log == nil {
		log = slog.Default()
	}
	return &Enricher{finder: finder, log: log}
}

// Enrich returns findings extended with regulations one hop away from
// each applicable finding. Added entries carry applies=false; they are
// leads for review, not conclusions.
func (e *Enricher) Enrich(ctx context.Context, findings []domain.RegulationFinding) []domain.RegulationFinding {
	if e == nil || e.finder == nil {
		return findings
	}

	seen := make(map[string]bool, len(findings))
	for _, f := range findings {
		seen[f.Name] = true
	}

	out := findings
	for _, f := range findings {
		if !f.Applies {
			continue
		}
		related, err := e.finder.Related(ctx, f.Name)
		if err != nil {
			e.log.Warn("regulation graph lookup failed, continuing without", "regulation", f.Name, "error", err)
			continue
		}
		for _, name := range related {
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, domain.RegulationFinding{
				Name:    name,
				Applies: false,
				Reason:  fmt.Sprintf("Cross-referenced with %s in the regulation graph; review for applicability", f.Name),
			})
		}
	}
	return out
}
