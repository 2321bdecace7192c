package analyzer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/geoflag/geoflag/engine/domain"
)

// FeaturesFromCSV normalizes uploaded CSV into feature requests in file
// order. The header row must name a feature_name column; description
// and code columns are optional. Unknown columns are ignored.
func FeaturesFromCSV(r io.Reader) ([]domain.FeatureRequest, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}

	nameCol, descCol, codeCol := -1, -1, -1
	for i, h := range header {
		switch normalizeHeader(h) {
		case "feature_name", "name", "feature":
			nameCol = i
		case "description", "feature_description":
			descCol = i
		case "code", "code_snippet":
			codeCol = i
		}
	}
	if nameCol == -1 {
		return nil, fmt.Errorf("csv: no feature_name column in header %v", header)
	}

	var features []domain.FeatureRequest
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: %w", line, err)
		}
		features = append(features, domain.FeatureRequest{
			ID:          fmt.Sprintf("csv-%d", line-1),
			FeatureName: field(row, nameCol),
			Description: field(row, descCol),
			Code:        field(row, codeCol),
		})
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("csv: no feature rows")
	}
	return features, nil
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\uFEFF")
	h = strings.TrimSpace(strings.ToLower(h))
	return strings.ReplaceAll(h, " ", "_")
}

func field(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
