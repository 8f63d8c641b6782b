// Offline-утилита: разовый бэкфилл generic-записей из legacy-коллекций.
// Гоняется до запуска сервера; повторный запуск безопасен.
package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"billbook/internal/config"
	"billbook/internal/engine"
	"billbook/internal/logger"
	"billbook/internal/migrate"
	"billbook/internal/mongostore"
)

func main() {
	cfg := config.LoadWithPath("config.json")

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFormat, "billbook-migrate")
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer zlog.Sync()

	if cfg.MongoURL == "" {
		zlog.Fatal("mongo url is required for migration (-mongo or BILLBOOK_MONGO_URL)")
	}

	ctx := context.Background()
	st, err := mongostore.Connect(ctx, cfg.MongoURL, cfg.DBName)
	if err != nil {
		zlog.Fatal("mongo connect failed", zap.Error(err))
	}
	defer st.Close(context.Background())

	// определения модулей должны существовать до бэкфилла
	if err := engine.New(st, zlog).EnsureDefaults(ctx); err != nil {
		zlog.Fatal("seed bootstrap failed", zap.Error(err))
	}

	if err := migrate.Run(ctx, st, zlog); err != nil {
		zlog.Fatal("migration failed", zap.Error(err))
	}
	zlog.Info("migration complete")
}
