package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"billbook/internal/api"
	"billbook/internal/config"
	"billbook/internal/engine"
	"billbook/internal/logger"
	"billbook/internal/memstore"
	"billbook/internal/mongostore"
	"billbook/internal/store"
)

func main() {
	cfg := config.LoadWithPath("config.json")

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFormat, "billbook")
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer zlog.Sync()

	ctx := context.Background()

	// Mongo при заданном URL, иначе in-memory (dev-режим)
	var st store.Store
	if cfg.MongoURL != "" {
		ms, err := mongostore.Connect(ctx, cfg.MongoURL, cfg.DBName)
		if err != nil {
			zlog.Fatal("mongo connect failed", zap.Error(err))
		}
		defer ms.Close(context.Background())
		st = ms
		zlog.Info("using mongo store", zap.String("db", cfg.DBName))
	} else {
		st = memstore.New()
		zlog.Warn("no mongo url configured, using in-memory store")
	}

	svc := engine.New(st, zlog)
	if err := svc.EnsureDefaults(ctx); err != nil {
		zlog.Fatal("seed bootstrap failed", zap.Error(err))
	}

	zlog.Info("starting server", zap.String("port", cfg.Port))
	if err := api.RunServer(":"+cfg.Port, svc, zlog); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}
