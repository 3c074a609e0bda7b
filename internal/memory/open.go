package memory

import (
	"context"
	"fmt"

	"github.com/ShivaTri14/nagar-seva-ai/internal/config"
)

// OpenStore connects the durable store selected by STORE_BACKEND
func OpenStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return NewInMemoryStore(), nil
	case config.BackendRedis:
		return NewRedisStore(cfg.RedisURL, cfg.StoreTTL)
	case config.BackendSQLite:
		return NewSQLStore(DialectSQLite, cfg.SQLitePath)
	case config.BackendPostgres:
		return NewSQLStore(DialectPostgres, cfg.PostgresDSN)
	case config.BackendMongo:
		return NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
