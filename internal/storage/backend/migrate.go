package backend

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"vaultmail/backend/internal/config"
	"vaultmail/backend/internal/storage/mongo"
	"vaultmail/backend/internal/storage/postgres"
)

// ErrNothingToMigrate 内存存储没有表结构或索引
var ErrNothingToMigrate = errors.New("storage type has no schema to migrate")

// Migrate 为配置的主存储创建表结构（GORM）或索引（MongoDB），重复执行是幂等的
func Migrate(ctx context.Context, cfg *config.DatabaseConfig, log *zap.Logger) error {
	dbCfg := *cfg
	dbCfg.AutoMigrate = false

	store, err := openPrimary(ctx, &dbCfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	switch s := store.(type) {
	case *postgres.Store:
		if err := s.Migrate(); err != nil {
			return fmt.Errorf("failed to migrate %s schema: %w", cfg.Type, err)
		}
	case *mongo.Store:
		if err := s.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("failed to ensure mongodb indexes: %w", err)
		}
	default:
		return ErrNothingToMigrate
	}

	log.Info("storage migrated", zap.String("type", cfg.Type))
	return nil
}
