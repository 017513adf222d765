package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"vaultmail/backend/internal/config"
	"vaultmail/backend/internal/logger"
	"vaultmail/backend/internal/storage/backend"
)

// main 为配置的存储创建表结构或索引。
//
// 未指定参数时读取与服务相同的配置（VAULTMAIL_DATABASE_*）。
func main() {
	dbType := flag.String("type", "", "存储类型: postgres、mysql、sqlite 或 mongodb（默认读取配置）")
	dbDSN := flag.String("dsn", "", "连接字符串（默认读取配置）")
	dbName := flag.String("name", "", "MongoDB 数据库名（默认读取配置）")
	timeout := flag.Duration("timeout", 30*time.Second, "迁移超时时间")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("错误: 无法加载配置: %v\n", err)
		os.Exit(1)
	}
	if *dbType != "" {
		cfg.Database.Type = *dbType
	}
	if *dbDSN != "" {
		cfg.Database.DSN = *dbDSN
	}
	if *dbName != "" {
		cfg.Database.Name = *dbName
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Printf("错误: 无法初始化日志: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := backend.Migrate(ctx, &cfg.Database, log); err != nil {
		if errors.Is(err, backend.ErrNothingToMigrate) {
			fmt.Println("提示: 内存存储无需迁移")
			return
		}
		log.Error("migration failed", zap.String("type", cfg.Database.Type), zap.Error(err))
		os.Exit(1)
	}

	fmt.Printf("✓ %s 存储迁移完成\n", cfg.Database.Type)
}
