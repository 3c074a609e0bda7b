// Command nagarsathi is a terminal client for the Nagarsathi conversation engine.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ShivaTri14/nagar-seva-ai/internal/config"
	"github.com/ShivaTri14/nagar-seva-ai/internal/logging"
	"github.com/ShivaTri14/nagar-seva-ai/internal/models"
)

var (
	language string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "nagarsathi",
	Short: "Bilingual municipal assistant in the terminal",
	Long: `nagarsathi runs the municipal chatbot engine locally: chat with it,
classify a waste photo, or draft a complaint letter.

Configuration is read from the environment (and .env), the same as the server.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&language, "lang", "l", "", "Language: english|hindi (default: DEFAULT_LANGUAGE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(letterCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration, builds a console logger and resolves --lang
func setup() (*config.Config, *zap.Logger, models.Language, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to load config: %w", err)
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level, "console")
	if err != nil {
		return nil, nil, "", err
	}

	lang := cfg.DefaultLanguage
	if language != "" {
		if lang, err = models.ParseLanguage(language); err != nil {
			return nil, nil, "", err
		}
	}
	return cfg, logger, lang, nil
}
