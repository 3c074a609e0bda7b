package vision

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/ShivaTri14/nagar-seva-ai/internal/models"
)

// Normalize maps a raw classifier result onto the fixed bin/waste shape:
// organic is green and decomposable, recyclable or solid is blue and
// non-decomposable, anything else is unknown.
func Normalize(result models.WasteAnalysisResult) models.Classification {
	c := models.Classification{
		BinType:    models.BinUnknown,
		WasteType:  models.WasteUnknown,
		SubTypes:   cleanSubTypes(result.SubTypes),
		Confidence: clampConfidence(result.Confidence),
	}

	category := ParseCategory(string(result.Category))
	switch category {
	case models.CategoryOrganic:
		c.BinType = models.BinGreen
		c.WasteType = models.WasteDecomposable
	case models.CategoryRecyclable, models.CategorySolid:
		c.BinType = models.BinBlue
		c.WasteType = models.WasteNonDecomposable
	}

	switch {
	case len(c.SubTypes) > 0:
		c.DetectedIssue = strings.Join(c.SubTypes, ", ")
	case category != models.CategoryUnknown:
		c.DetectedIssue = string(category) + " waste"
	}
	return c
}

// ParseCategory is lenient about case and whitespace; unrecognized values are unknown
func ParseCategory(s string) models.WasteCategory {
	switch models.WasteCategory(strings.ToLower(strings.TrimSpace(s))) {
	case models.CategoryOrganic:
		return models.CategoryOrganic
	case models.CategoryRecyclable:
		return models.CategoryRecyclable
	case models.CategorySolid:
		return models.CategorySolid
	}
	return models.CategoryUnknown
}

func cleanSubTypes(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func clampConfidence(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// parseResult decodes a classifier answer that may wrap the JSON object in prose
func parseResult(content string) (*models.WasteAnalysisResult, error) {
	jsonContent := extractJSON(content)
	if jsonContent == "" {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrInvalidResult)
	}

	var result models.WasteAnalysisResult
	if err := json.Unmarshal([]byte(jsonContent), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}

	if result.Category == "" {
		return nil, fmt.Errorf("%w: missing category", ErrInvalidResult)
	}
	return &result, nil
}

func extractJSON(content string) string {
	// Look for JSON object in the content
	start := strings.Index(content, "{")
	if start == -1 {
		return ""
	}

	end := strings.LastIndex(content, "}")
	if end == -1 || end <= start {
		return ""
	}

	return content[start : end+1]
}
