package models

// WasteCategory is the raw category reported by the image classifier
type WasteCategory string

const (
	CategoryOrganic    WasteCategory = "organic"
	CategoryRecyclable WasteCategory = "recyclable"
	CategorySolid      WasteCategory = "solid"
	CategoryUnknown    WasteCategory = "unknown"
)

// WasteAnalysisResult is what the external classifier returns for an image
type WasteAnalysisResult struct {
	Category   WasteCategory `json:"category"`
	SubTypes   []string      `json:"sub_types"`
	Confidence float64       `json:"confidence"`
}

type BinType string

const (
	BinGreen   BinType = "green"
	BinBlue    BinType = "blue"
	BinUnknown BinType = "unknown"
)

type WasteType string

const (
	WasteDecomposable    WasteType = "decomposable"
	WasteNonDecomposable WasteType = "non-decomposable"
	WasteUnknown         WasteType = "unknown"
)

// Classification is the normalized form of a WasteAnalysisResult
type Classification struct {
	BinType       BinType   `json:"bin_type"`
	WasteType     WasteType `json:"waste_type"`
	DetectedIssue string    `json:"detected_issue"`
	SubTypes      []string  `json:"sub_types,omitempty"`
	Confidence    float64   `json:"confidence"`
}

// Known reports whether the classification maps to a real bin
func (c Classification) Known() bool {
	return c.BinType != BinUnknown
}
