package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"kb-analyzer/pkg/config"
	"kb-analyzer/pkg/db"
	"kb-analyzer/pkg/logger"
	"kb-analyzer/pkg/parser"
	"kb-analyzer/pkg/pipeline"
)

func main() {
	var (
		inputDir   = flag.String("input-dir", "examples", "Directory containing KB articles to import")
		configPath = flag.String("config", "", "Optional YAML config file (defaults to $KB_CONFIG)")
		backend    = flag.String("storage", "", "Storage backend: supabase or mongo (overrides STORAGE_BACKEND)")
		logLevel   = flag.String("log-level", "", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *backend != "" {
		cfg.StorageBackend = *backend
	}
	l := logger.New(cfg.LogLevel, true)

	if err := cfg.ValidateStorage(); err != nil {
		l.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	store, closeStore, err := db.Open(ctx, db.OpenConfig{
		Backend: cfg.StorageBackend,
		Supabase: db.SupabaseConfig{
			URL:    cfg.Supabase.URL,
			Key:    cfg.Supabase.Key,
			Logger: &l,
		},
		MongoURI: cfg.Mongo.URI,
		MongoDB:  cfg.Mongo.Database,
	})
	if err != nil {
		l.Fatal().Err(err).Msg("Failed to connect to storage")
	}
	defer closeStore()

	importer := pipeline.NewImporter(parser.New(parser.Config{Logger: &l}), store, pipeline.ImporterConfig{Logger: &l})

	start := time.Now()
	stats, err := importer.Import(ctx, *inputDir)
	if err != nil {
		l.Fatal().Err(err).Msg("Import failed")
	}
	l.Info().Int("imported", stats.Imported).Int("failed", stats.Failed).Dur("duration", time.Since(start)).Msg("Import completed")
}
