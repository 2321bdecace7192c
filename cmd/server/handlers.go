package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/geoflag/geoflag/engine/analyzer"
	"github.com/geoflag/geoflag/engine/domain"
)

// maxUploadBytes bounds CSV uploads.
const maxUploadBytes = 10 << 20

// batchRunner is the slice of the analyzer the handlers need.
type batchRunner interface {
	AnalyzeBatch(ctx context.Context, features []domain.FeatureRequest) (domain.AnalysisReport, error)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// AnalyzeRequest is the JSON body for POST /api/analyze: either a batch
// of items or a single inline feature.
type AnalyzeRequest struct {
	Items []domain.FeatureRequest `json:"items"`

	// Single-feature shorthand.
	FeatureName string   `json:"featureName"`
	Description string   `json:"description"`
	Code        string   `json:"code,omitempty"`
	GeoHints    []string `json:"geographic_hints,omitempty"`
}

// AnalyzeResponse is the envelope for analysis endpoints.
type AnalyzeResponse struct {
	Status          string                  `json:"status"`
	Summary         domain.Summary          `json:"summary"`
	AnalysisResults []domain.AnalysisResult `json:"analysis_results"`
	Recommendations []string                `json:"recommendations"`
}

func writeReport(w http.ResponseWriter, report domain.AnalysisReport) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AnalyzeResponse{
		Status:          "completed",
		Summary:         report.Summary,
		AnalysisResults: report.Results,
		Recommendations: report.Recommendations,
	})
}

func handleAnalyze(svc batchRunner, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		features := req.Items
		if len(features) == 0 {
			if req.FeatureName == "" {
				http.Error(w, `{"error":"items or featureName is required"}`, http.StatusBadRequest)
				return
			}
			features = []domain.FeatureRequest{{
				FeatureName: req.FeatureName,
				Description: req.Description,
				Code:        req.Code,
				GeoHints:    req.GeoHints,
			}}
		}

		report, err := svc.AnalyzeBatch(r.Context(), features)
		if err != nil {
			logger.Error("batch analysis failed", "err", err)
			http.Error(w, `{"error":"analysis unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		writeReport(w, report)
	}
}

func handleAnalyzeCSV(svc batchRunner, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			http.Error(w, `{"error":"invalid multipart form"}`, http.StatusBadRequest)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, `{"error":"file field is required"}`, http.StatusBadRequest)
			return
		}
		defer file.Close()

		features, err := analyzer.FeaturesFromCSV(file)
		if err != nil {
			http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusBadRequest)
			return
		}

		report, err := svc.AnalyzeBatch(r.Context(), features)
		if err != nil {
			logger.Error("csv batch analysis failed", "err", err)
			http.Error(w, `{"error":"analysis unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		writeReport(w, report)
	}
}
