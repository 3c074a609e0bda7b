package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ShivaTri14/nagar-seva-ai/internal/models"
)

// Store backends
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Vision providers
const (
	VisionOpenAI = "openai"
	VisionHTTP   = "http"
	VisionNone   = "none"
)

type Config struct {
	// Service configuration
	ServiceName string
	LogLevel    string
	LogFormat   string

	// Conversation engine
	DefaultLanguage       models.Language
	ThinkingDelay         time.Duration
	StatusUpdateDelay     time.Duration
	RewardDelay           time.Duration
	MaxImageBytes         int
	MaxConcurrentAnalyses int
	SessionIdleTimeout    time.Duration
	PersistTimeout        time.Duration

	// NATS configuration
	NatsEnabled            bool
	NatsURL                string
	NatsRequestSubject     string
	NatsEventSubjectPrefix string
	NatsTimeout            time.Duration

	// HTTP configuration
	HTTPAddr       string
	AllowedOrigins []string

	// Persistence configuration
	StoreBackend  string
	RedisURL      string
	StoreTTL      time.Duration
	SQLitePath    string
	PostgresDSN   string
	MongoURI      string
	MongoDatabase string

	// users whose conversation buffer stays cached in memory
	MemoryCacheUsers int

	// Vision configuration
	VisionProvider string
	OpenAIAPIKey   string
	OpenAIModel    string
	VisionURL      string
	VisionTimeout  time.Duration
}

func Load() (*Config, error) {
	lang, err := models.ParseLanguage(getEnv("DEFAULT_LANGUAGE", string(models.LanguageEnglish)))
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_LANGUAGE: %w", err)
	}

	cfg := &Config{
		// Service settings
		ServiceName: getEnv("SERVICE_NAME", "nagarsathi"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),

		// Engine settings
		DefaultLanguage:       lang,
		ThinkingDelay:         getDurationEnv("THINKING_DELAY", 1500*time.Millisecond),
		StatusUpdateDelay:     getDurationEnv("STATUS_UPDATE_DELAY", 8*time.Second),
		RewardDelay:           getDurationEnv("REWARD_DELAY", 3*time.Second),
		MaxImageBytes:         getIntEnv("MAX_IMAGE_BYTES", 5*1024*1024),
		MaxConcurrentAnalyses: getIntEnv("MAX_CONCURRENT_ANALYSES", 4),
		SessionIdleTimeout:    getDurationEnv("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		PersistTimeout:        getDurationEnv("PERSIST_TIMEOUT", 5*time.Second),

		// NATS settings
		NatsEnabled:            getBoolEnv("NATS_ENABLED", true),
		NatsURL:                getEnv("NATS_URL", "nats://localhost:4222"),
		NatsRequestSubject:     getEnv("NATS_REQUEST_SUBJECT", "nagarsathi.chat.request"),
		NatsEventSubjectPrefix: getEnv("NATS_EVENT_SUBJECT_PREFIX", "nagarsathi.chat.events"),
		NatsTimeout:            getDurationEnv("NATS_TIMEOUT", 30*time.Second),

		// HTTP settings
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		AllowedOrigins: getListEnv("ALLOWED_ORIGINS"),

		// Persistence settings
		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", BackendRedis)),
		RedisURL:      getEnv("REDIS_URL", "redis://localhost:6379/0"),
		StoreTTL:      getDurationEnv("STORE_TTL", 30*24*time.Hour),
		SQLitePath:    getEnv("SQLITE_PATH", "data/nagarsathi.db"),
		PostgresDSN:   getEnv("POSTGRES_DSN", ""),
		MongoURI:      getEnv("MONGO_URI", ""),
		MongoDatabase: getEnv("MONGO_DATABASE", "nagarsathi"),

		MemoryCacheUsers: getIntEnv("MEMORY_CACHE_USERS", 1000),

		// Vision settings
		VisionProvider: strings.ToLower(getEnv("VISION_PROVIDER", VisionNone)),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		VisionURL:      getEnv("VISION_URL", ""),
		VisionTimeout:  getDurationEnv("VISION_TIMEOUT", 20*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements
func (c *Config) Validate() error {
	if !c.DefaultLanguage.Valid() {
		return fmt.Errorf("unsupported default language %q", c.DefaultLanguage)
	}
	for name, d := range map[string]time.Duration{
		"THINKING_DELAY":       c.ThinkingDelay,
		"STATUS_UPDATE_DELAY":  c.StatusUpdateDelay,
		"REWARD_DELAY":         c.RewardDelay,
		"SESSION_IDLE_TIMEOUT": c.SessionIdleTimeout,
		"PERSIST_TIMEOUT":      c.PersistTimeout,
		"VISION_TIMEOUT":       c.VisionTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.MaxImageBytes <= 0 {
		return fmt.Errorf("MAX_IMAGE_BYTES must be positive")
	}
	if c.MaxConcurrentAnalyses <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_ANALYSES must be positive")
	}
	if c.MemoryCacheUsers <= 0 {
		return fmt.Errorf("MEMORY_CACHE_USERS must be positive")
	}

	switch c.StoreBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis store")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite store")
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the postgres store")
		}
	case BackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for the mongo store")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.VisionProvider {
	case VisionNone:
	case VisionOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai vision provider")
		}
	case VisionHTTP:
		if c.VisionURL == "" {
			return fmt.Errorf("VISION_URL is required for the http vision provider")
		}
	default:
		return fmt.Errorf("unknown VISION_PROVIDER %q", c.VisionProvider)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
