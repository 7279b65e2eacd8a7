package main

import (
	"context"
	"flag"
	"time"

	"github.com/rs/zerolog/log"

	"kb-analyzer/pkg/config"
	"kb-analyzer/pkg/db"
	"kb-analyzer/pkg/logger"
)

func main() {
	var (
		dsn        = flag.String("dsn", "", "Postgres connection string; defaults to the Supabase database")
		configPath = flag.String("config", "", "Optional YAML config file (defaults to $KB_CONFIG)")
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
	l := logger.New(cfg.LogLevel, true)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var provider interface {
		db.DBProvider
		Close() error
	}
	if *dsn != "" {
		pg := db.NewPostgresClient(db.PostgresConfig{DSN: *dsn, Tool: "setup", MaxOpenConns: 2})
		if err := pg.Connect(ctx); err != nil {
			l.Fatal().Err(err).Msg("Failed to connect to Postgres")
		}
		provider = pg
	} else {
		sb := db.NewSupabaseClient(db.SupabaseConfig{
			URL:        cfg.Supabase.URL,
			Key:        cfg.Supabase.Key,
			DBURL:      cfg.Supabase.DBURL,
			DBPassword: cfg.Supabase.DBPassword,
			Logger:     &l,
		})
		if err := sb.Connect(ctx); err != nil {
			l.Fatal().Err(err).Msg("Failed to connect to Supabase")
		}
		provider = sb
	}
	defer provider.Close()

	if err := db.ApplySchema(ctx, provider); err != nil {
		l.Fatal().Err(err).Msg("Failed to apply schema")
	}
	l.Info().Int("statements", len(db.SchemaStatements)).Msg("Database schema is up to date")
}
