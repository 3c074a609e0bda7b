package vision

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ShivaTri14/nagar-seva-ai/internal/models"
)

// Adapter wraps a Classifier with a deadline and result normalization
type Adapter struct {
	classifier Classifier
	timeout    time.Duration
	logger     *zap.Logger
}

func NewAdapter(classifier Classifier, timeout time.Duration, logger *zap.Logger) *Adapter {
	if classifier == nil {
		classifier = Unavailable{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		classifier: classifier,
		timeout:    timeout,
		logger:     logger.Named("vision"),
	}
}

// Analyze classifies an image and normalizes the answer. Any error means the
// caller must show the analysis-failed message.
func (a *Adapter) Analyze(ctx context.Context, image models.Image) (models.Classification, error) {
	if len(image.Data) == 0 {
		return models.Classification{}, fmt.Errorf("%w: empty image", ErrInvalidResult)
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := a.classifier.Classify(ctx, image)
	if err != nil {
		a.logger.Warn("image classification failed",
			zap.String("image_id", image.ID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return models.Classification{}, fmt.Errorf("failed to classify image: %w", err)
	}
	if result == nil {
		return models.Classification{}, fmt.Errorf("failed to classify image: %w", ErrInvalidResult)
	}

	c := Normalize(*result)
	a.logger.Debug("image classified",
		zap.String("image_id", image.ID),
		zap.String("category", string(result.Category)),
		zap.String("bin", string(c.BinType)),
		zap.Float64("confidence", c.Confidence),
		zap.Duration("elapsed", time.Since(start)))
	return c, nil
}
