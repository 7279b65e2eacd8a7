package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"kb-analyzer/pkg/analyzer"
	"kb-analyzer/pkg/api"
	"kb-analyzer/pkg/config"
	"kb-analyzer/pkg/db"
	"kb-analyzer/pkg/logger"
)

func main() {
	var (
		addr       = flag.String("addr", "", "Listen address (overrides API_BIND_ADDR)")
		configPath = flag.String("config", "", "Optional YAML config file (defaults to $KB_CONFIG)")
		backend    = flag.String("storage", "", "Storage backend: supabase or mongo (overrides STORAGE_BACKEND)")
		logLevel   = flag.String("log-level", "", "Log level: debug, info, warn, error")
		pretty     = flag.Bool("pretty", false, "Human readable console logs instead of JSON")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *addr != "" {
		cfg.BindAddr = *addr
	}
	if *backend != "" {
		cfg.StorageBackend = *backend
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	l := logger.New(cfg.LogLevel, *pretty)

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

	srvCfg := api.Config{Store: store, Logger: &l}
	if cfg.ValidateAnalyzer() == nil {
		client := analyzer.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
		srvCfg.Analyzer = analyzer.New(client, analyzer.Config{Model: cfg.OpenAI.Model, Logger: &l})
	} else {
		l.Warn().Msg("OPENAI_API_KEY not set, language model analysis disabled")
	}

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           api.NewServer(srvCfg).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      3 * time.Minute,
	}

	go func() {
		l.Info().Str("addr", cfg.BindAddr).Msg("api server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	l.Info().Msg("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("server shutdown")
	}
}
