package vision

import (
	"fmt"

	"github.com/ShivaTri14/nagar-seva-ai/internal/config"
)

// NewClassifierFromConfig builds the backend selected by VISION_PROVIDER
func NewClassifierFromConfig(cfg *config.Config) (Classifier, error) {
	switch cfg.VisionProvider {
	case config.VisionNone:
		return Unavailable{}, nil
	case config.VisionOpenAI:
		return NewOpenAIClassifier(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	case config.VisionHTTP:
		return NewHTTPClassifier(cfg.VisionURL, cfg.VisionTimeout), nil
	}
	return nil, fmt.Errorf("unknown vision provider %q", cfg.VisionProvider)
}
