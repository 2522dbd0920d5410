// Package main provides the main entry point for the recommendation API
// server with manual dependency wiring.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	apprec "github.com/moodplate/engine/internal/application/recommendation"
	"github.com/moodplate/engine/internal/engine/artifacts"
	"github.com/moodplate/engine/internal/engine/scorer"
	"github.com/moodplate/engine/internal/engine/stability"
	"github.com/moodplate/engine/internal/infrastructure/config"
	"github.com/moodplate/engine/internal/infrastructure/http/server"
	"github.com/moodplate/engine/internal/infrastructure/lock"
	"github.com/moodplate/engine/internal/infrastructure/monitoring"
	gormstore "github.com/moodplate/engine/internal/infrastructure/persistence/gorm"
	"github.com/moodplate/engine/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		Development: cfg.App.Environment == "development",
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer zapLogger.Sync()

	db, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.Database,
		PoolSize: cfg.Redis.PoolSize,
	})
	defer redisClient.Close()

	registry := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(registry)

	cache := artifacts.NewCache(cfg.Artifacts.CacheCapacity, cfg.Artifacts.LaplaceAlpha, zapLogger)
	monitoring.RegisterCacheStats(registry, cache.Stats)

	sc := scorer.New(scorer.Config{
		WeightPreference: cfg.Engine.WeightPreference,
		WeightHealth:     cfg.Engine.WeightHealth,
		WeightContext:    cfg.Engine.WeightContext,
		WeightGlobal:     cfg.Engine.WeightGlobal,
		CalorieLambda:    cfg.Engine.CalorieLambda,
		CalorieSoftClip:  cfg.Engine.CalorieSoftClip,
		PurposeDelta:     cfg.Engine.PurposeDelta,
		FatRatioCap:      cfg.Engine.FatRatioCap,
		ProteinFloorG:    cfg.Engine.ProteinFloorG,
		KeywordFilter:    cfg.Engine.KeywordFilter,
		BlockedKeywords:  cfg.Engine.BlockedKeywords,
	}, zapLogger)

	reranker := stability.NewReranker(stability.Weights{
		Preference:  cfg.Engine.StabilityWeightP,
		Health:      cfg.Engine.StabilityWeightH,
		Exploration: cfg.Engine.StabilityWeightE,
	}, zapLogger)

	service := apprec.NewService(
		gormstore.NewProfileRepository(db),
		gormstore.NewCatalogRepository(db),
		gormstore.NewRecommendationRepository(db),
		lock.NewRedisLocker(redisClient, zapLogger),
		cache,
		sc,
		reranker,
		apprec.Options{
			ArtifactsDir: cfg.Artifacts.Dir,
			HybridAlpha:  cfg.Artifacts.HybridAlpha,
			LockTTL:      cfg.Engine.LockTTL,
			LockWait:     cfg.Engine.LockWait,
			RecentDays:   cfg.Engine.RecentDays,
			ExplorationMix: stability.ExplorationMix{
				Preference: cfg.Engine.ExplorationMix,
			},
		},
		metrics,
		zapLogger,
	)

	srv := server.NewServer(cfg, zapLogger, service, registry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("shutdown error", zap.Error(err))
		return err
	}
	zapLogger.Info("server stopped")
	return nil
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(
			&gormstore.UserProfileModel{},
			&gormstore.MealLedgerModel{},
			&gormstore.FoodModel{},
			&gormstore.RecommendationModel{},
		); err != nil {
			return nil, err
		}
	}
	return db, nil
}
