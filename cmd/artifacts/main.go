// Package main rebuilds the recommendation artifacts from raw export
// files. It runs offline, typically from a nightly job; the API picks up
// the new files on its next fingerprint miss.
package main

import (
	"flag"
	"fmt"
	"log"

	"go.uber.org/zap"

	"github.com/moodplate/engine/internal/domain/food"
	"github.com/moodplate/engine/internal/engine/artifacts"
	"github.com/moodplate/engine/internal/engine/clustering"
	"github.com/moodplate/engine/pkg/logger"
)

func main() {
	var (
		catalogPath  = flag.String("catalog", "catalog.csv", "path to the food catalog export")
		profilesPath = flag.String("profiles", "profiles.csv", "path to the user profile export")
		logsPath     = flag.String("logs", "meal_logs.csv", "path to the meal log export")
		outDir       = flag.String("out", "./artifacts", "output directory for artifact files")
		hybridAlpha  = flag.Float64("hybrid-alpha", artifacts.DefaultHybridAlpha, "declared/observed preference blend")
		clusterK     = flag.Int("k", 5, "clusters per context cohort")
		clusterSeed  = flag.Int64("seed", 42, "clustering random seed")
		logLevel     = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	zapLogger, err := logger.New(logger.Config{Level: *logLevel, Format: "console", Development: true})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zapLogger.Sync()

	if err := build(zapLogger, *catalogPath, *profilesPath, *logsPath, *outDir, *hybridAlpha, *clusterK, *clusterSeed); err != nil {
		zapLogger.Fatal("artifact build failed", zap.Error(err))
	}
}

func build(
	zapLogger *zap.Logger,
	catalogPath, profilesPath, logsPath, outDir string,
	hybridAlpha float64,
	clusterK int,
	clusterSeed int64,
) error {
	catalog, err := artifacts.ReadCatalogCSV(catalogPath)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	profiles, err := artifacts.ReadProfilesCSV(profilesPath)
	if err != nil {
		return fmt.Errorf("read profiles: %w", err)
	}
	logs, err := artifacts.ReadMealLogsCSV(logsPath)
	if err != nil {
		return fmt.Errorf("read meal logs: %w", err)
	}

	zapLogger.Info("building artifact tables",
		zap.Int("catalog_rows", len(catalog)),
		zap.Int("profile_rows", len(profiles)),
		zap.Int("log_rows", len(logs)),
	)

	tables, err := artifacts.Build(catalog, profiles, logs, hybridAlpha)
	if err != nil {
		return fmt.Errorf("build tables: %w", err)
	}
	if err := artifacts.WriteTables(outDir, tables); err != nil {
		return fmt.Errorf("write tables: %w", err)
	}

	clusterer := clustering.New(clustering.Config{
		K:          clusterK,
		Seed:       clusterSeed,
		LabelNames: clustering.DefaultLabelNames,
	}, zapLogger)
	foodsByName := make(map[string]food.Item, len(tables.Foods))
	for _, item := range tables.Foods {
		foodsByName[item.Name] = item
	}
	clusters, assignments := clusterer.Cluster(tables.ContextStats, foodsByName)

	clusterCfg := &artifacts.ClusterConfig{
		K:          clusterK,
		Seed:       clusterSeed,
		LabelNames: clustering.DefaultLabelNames,
	}
	if err := artifacts.WriteClusters(outDir, clusterCfg, clusters, assignments); err != nil {
		return fmt.Errorf("write clusters: %w", err)
	}

	clustered := 0
	for _, cs := range clusters {
		clustered += len(cs)
	}
	zapLogger.Info("artifacts written",
		zap.String("dir", outDir),
		zap.Int("foods", len(tables.Foods)),
		zap.Int("context_stats", len(tables.ContextStats)),
		zap.Int("clusters", clustered),
		zap.Int("assignments", len(assignments)),
	)
	return nil
}
