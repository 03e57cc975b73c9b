package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-market-api/internal/repository"
	"github.com/noah-isme/course-market-api/internal/service"
	"github.com/noah-isme/course-market-api/pkg/config"
	"github.com/noah-isme/course-market-api/pkg/database"
	"github.com/noah-isme/course-market-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Migrations.Enabled {
		if err := database.Migrate(db, cfg.Migrations.Dir); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	seeder := service.NewSeedService(
		repository.NewUserRepository(db),
		repository.NewCatalogRepository(db),
		repository.NewPaymentOptionRepository(db),
		logr,
	)
	seeded, err := seeder.Seed(ctx)
	if err != nil {
		logr.Fatal("seed failed", zap.Error(err))
	}
	if !seeded {
		logr.Info("database already has users, nothing to seed")
		return
	}
	logr.Info("seed complete")
}
