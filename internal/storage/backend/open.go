// Package backend 根据配置选择并创建主存储。
package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"vaultmail/backend/internal/config"
	"vaultmail/backend/internal/storage"
	"vaultmail/backend/internal/storage/hybrid"
	"vaultmail/backend/internal/storage/memory"
	"vaultmail/backend/internal/storage/mongo"
	"vaultmail/backend/internal/storage/postgres"
	"vaultmail/backend/internal/storage/redis"
)

// Open 按 database.type 创建存储；启用 Redis 时包装为写穿缓存的混合存储
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Store, error) {
	primary, err := openPrimary(ctx, &cfg.Database, log)
	if err != nil {
		return nil, err
	}

	if !cfg.Redis.Enabled {
		return primary, nil
	}

	client, err := redis.New(ctx, &cfg.Redis, log)
	if err != nil {
		_ = primary.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}
	log.Info("using hybrid storage", zap.String("primary", cfg.Database.Type), zap.String("cache", "redis"))
	return hybrid.NewStore(primary, redis.NewCache(client, cfg.Redis.SettingsTTL), log), nil
}

func openPrimary(ctx context.Context, cfg *config.DatabaseConfig, log *zap.Logger) (storage.Store, error) {
	opts := postgres.Options{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		AutoMigrate:     cfg.AutoMigrate,
	}

	var (
		store storage.Store
		err   error
	)
	switch cfg.Type {
	case "", config.DatabaseMemory:
		log.Warn("using in-memory storage, data will be lost on restart")
		return memory.NewStore(), nil
	case config.DatabaseMongoDB:
		store, err = mongo.NewStore(ctx, cfg.DSN, cfg.Name, log)
	case config.DatabasePostgres:
		store, err = postgres.NewStore(cfg.DSN, opts)
	case config.DatabaseMySQL:
		store, err = postgres.NewMySQLStore(cfg.DSN, opts)
	case config.DatabaseSQLite:
		store, err = postgres.NewSQLiteStore(cfg.DSN, opts)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s storage: %w", cfg.Type, err)
	}

	log.Info("storage initialized", zap.String("type", cfg.Type))
	return store, nil
}
