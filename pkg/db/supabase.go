package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	supabase "github.com/supabase-community/supabase-go"
)

// SupabaseConfig holds configuration required to connect to Supabase.
type SupabaseConfig struct {
	// URL is the Supabase project URL, e.g. "https://[project-ref].supabase.co".
	URL string

	// Key is the Supabase API key used by the REST client.
	Key string

	// DBURL is the Postgres connection string. When empty it is derived from
	// URL and DBPassword.
	DBURL string

	// DBPassword is the database password, not the API key.
	DBPassword string

	Logger *zerolog.Logger
}

// SupabaseClient provides access to the Supabase REST API and, when
// credentials allow, a direct Postgres connection.
type SupabaseClient struct {
	db     *sql.DB
	sdk    *supabase.Client
	cfg    SupabaseConfig
	logger zerolog.Logger
}

// NewSupabaseClient constructs a Supabase client.
func NewSupabaseClient(cfg SupabaseConfig) *SupabaseClient {
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &SupabaseClient{cfg: cfg, logger: logger}
}

// Connect initializes the REST client and the direct database connection.
// A failing database connection is tolerated when the REST client is available.
func (c *SupabaseClient) Connect(ctx context.Context) error {
	if c.cfg.URL != "" && c.cfg.Key != "" {
		sdk, err := supabase.NewClient(c.cfg.URL, c.cfg.Key, nil)
		if err != nil {
			return fmt.Errorf("initialize supabase SDK: %w", err)
		}
		c.sdk = sdk
	}

	connStr := c.cfg.DBURL
	if connStr == "" && c.cfg.DBPassword != "" {
		var err error
		if connStr, err = c.buildConnectionString(); err != nil {
			return c.restOnly(fmt.Errorf("build connection string: %w", err))
		}
	}

	if connStr != "" {
		connStr = addConnectionParam(connStr, "statement_cache_capacity", "0")
		connStr = addConnectionParam(connStr, "default_query_exec_mode", "simple_protocol")

		db, err := sql.Open("pgx", connStr)
		if err != nil {
			return c.restOnly(fmt.Errorf("open supabase postgres: %w", err))
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return c.restOnly(fmt.Errorf("ping supabase postgres: %w", err))
		}
		c.db = db
	}

	if c.db == nil && c.sdk == nil {
		return fmt.Errorf("either database URL/password or Supabase URL+key must be provided")
	}
	return nil
}

// restOnly swallows a database error when the REST client can carry on alone.
func (c *SupabaseClient) restOnly(err error) error {
	if c.sdk == nil {
		return err
	}
	c.logger.Warn().Err(err).Msg("Direct database unavailable, using REST API only")
	return nil
}

// Close closes the database connection.
func (c *SupabaseClient) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// DB exposes the direct database handle, or nil in REST-only mode.
func (c *SupabaseClient) DB() *sql.DB {
	return c.db
}

// SDK returns the Supabase REST client, or nil when URL and key were not given.
func (c *SupabaseClient) SDK() *supabase.Client {
	return c.sdk
}

// buildConnectionString derives the Postgres connection string from the
// project URL: https://[ref].supabase.co -> db.[ref].supabase.co:5432.
func (c *SupabaseClient) buildConnectionString() (string, error) {
	if c.cfg.URL == "" {
		return "", fmt.Errorf("supabase URL is required when database URL is not provided")
	}

	parsed, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse supabase URL: %w", err)
	}

	parts := strings.Split(parsed.Host, ".")
	if len(parts) < 2 || parts[0] == "" {
		return "", fmt.Errorf("invalid supabase URL format: expected [project-ref].supabase.co")
	}

	return fmt.Sprintf("postgresql://postgres:%s@db.%s.supabase.co:5432/postgres?sslmode=require",
		url.QueryEscape(c.cfg.DBPassword), parts[0]), nil
}

// addConnectionParam adds a query parameter to the connection string if not already present.
func addConnectionParam(connStr, key, value string) string {
	if strings.Contains(connStr, key+"=") {
		return connStr
	}
	separator := "?"
	if strings.Contains(connStr, "?") {
		separator = "&"
	}
	return connStr + separator + key + "=" + value
}
