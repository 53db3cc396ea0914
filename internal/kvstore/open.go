package kvstore

import (
	"context"
	"fmt"

	"github.com/farukkamcici/ibb-transport-sub000/internal/config"
)

// Open creates the Store selected by cfg.Backend
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemory(cfg.QuotaBytes), nil
	case "sqlite", "":
		return NewSQLite(ctx, cfg.SQLitePath, cfg.QuotaBytes)
	case "postgres":
		return NewPostgres(ctx, cfg.PostgresURL, cfg.QuotaBytes)
	case "redis":
		return NewRedis(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
