package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ShivaTri14/nagar-seva-ai/internal/models"
	"github.com/ShivaTri14/nagar-seva-ai/internal/prompts"
	"github.com/ShivaTri14/nagar-seva-ai/internal/vision"
)

var classifyJSON bool

var classifyCmd = &cobra.Command{
	Use:   "classify <image>",
	Short: "Identify the waste in a photo and suggest a bin",
	Long:  `Sends one image to the classifier selected by VISION_PROVIDER and prints the disposal advice.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runClassify,
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "Print the normalized classification as JSON")
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg, logger, lang, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	image, err := readImage(args[0])
	if err != nil {
		return err
	}
	if image.Size() > cfg.MaxImageBytes {
		return fmt.Errorf("image is %d bytes, limit is %d", image.Size(), cfg.MaxImageBytes)
	}

	classifier, err := vision.NewClassifierFromConfig(cfg)
	if err != nil {
		return err
	}
	adapter := vision.NewAdapter(classifier, cfg.VisionTimeout, logger)

	cls, err := adapter.Analyze(cmd.Context(), image)
	if err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if classifyJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(cls)
	}
	fmt.Fprintln(out, prompts.NewGenerator(nil).AnalysisResult(lang, cls))
	return nil
}

// readImage loads an image file and sniffs its content type
func readImage(path string) (models.Image, error) {
	if path == "" {
		return models.Image{}, fmt.Errorf("image path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Image{}, fmt.Errorf("failed to read image: %w", err)
	}
	return models.Image{
		ID:       uuid.NewString(),
		Name:     filepath.Base(path),
		MIMEType: http.DetectContentType(data),
		Data:     data,
	}, nil
}
