package vision

import (
	"context"
	"errors"

	"github.com/ShivaTri14/nagar-seva-ai/internal/models"
)

var (
	// ErrUnavailable is returned when no classification backend is configured
	ErrUnavailable = errors.New("vision: classifier unavailable")
	// ErrInvalidResult is returned when the backend answer cannot be used
	ErrInvalidResult = errors.New("vision: invalid classification result")
)

// Classifier defines the interface for waste-image classification backends
type Classifier interface {
	Classify(ctx context.Context, image models.Image) (*models.WasteAnalysisResult, error)
}

// Unavailable is the classifier used when VISION_PROVIDER=none
type Unavailable struct{}

func (Unavailable) Classify(ctx context.Context, image models.Image) (*models.WasteAnalysisResult, error) {
	return nil, ErrUnavailable
}

// ClassifierFunc adapts a function to Classifier
type ClassifierFunc func(ctx context.Context, image models.Image) (*models.WasteAnalysisResult, error)

func (f ClassifierFunc) Classify(ctx context.Context, image models.Image) (*models.WasteAnalysisResult, error) {
	return f(ctx, image)
}
