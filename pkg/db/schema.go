package db

import (
	"context"
	"errors"
	"fmt"
)

var errNoDirectDB = errors.New("schema setup requires a direct database connection")

// SchemaStatements create the tables, indexes and RPC functions the stores
// rely on. Every statement is idempotent.
var SchemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
	`CREATE TABLE IF NOT EXISTS kb_articles (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		type TEXT,
		version TEXT,
		tags TEXT[] NOT NULL DEFAULT '{}',
		author TEXT,
		status TEXT NOT NULL DEFAULT 'active',
		metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_updated TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS kb_article_analyses (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		article_id UUID NOT NULL REFERENCES kb_articles(id) ON DELETE CASCADE,
		analysis_data JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS kb_articles_tags_idx ON kb_articles USING GIN (tags)`,
	`CREATE INDEX IF NOT EXISTS kb_articles_fts_idx ON kb_articles
		USING GIN (to_tsvector('english', title || ' ' || content))`,
	`CREATE INDEX IF NOT EXISTS kb_article_analyses_article_idx ON kb_article_analyses (article_id)`,
	`CREATE OR REPLACE FUNCTION kb_articles_touch() RETURNS trigger AS $$
	BEGIN
		NEW.updated_at = now();
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS kb_articles_touch ON kb_articles`,
	`CREATE TRIGGER kb_articles_touch BEFORE UPDATE ON kb_articles
		FOR EACH ROW EXECUTE FUNCTION kb_articles_touch()`,
	`CREATE OR REPLACE FUNCTION search_kb_articles(search_query TEXT)
	RETURNS SETOF kb_articles AS $$
		SELECT * FROM kb_articles
		WHERE to_tsvector('english', title || ' ' || content) @@ plainto_tsquery('english', search_query)
		ORDER BY ts_rank(to_tsvector('english', title || ' ' || content), plainto_tsquery('english', search_query)) DESC
	$$ LANGUAGE sql STABLE`,
	`CREATE OR REPLACE FUNCTION get_related_articles(article_id UUID)
	RETURNS SETOF kb_articles AS $$
		SELECT b.* FROM kb_articles a
		JOIN kb_articles b ON b.id <> a.id AND b.tags && a.tags
		WHERE a.id = get_related_articles.article_id
		ORDER BY cardinality(ARRAY(SELECT unnest(a.tags) INTERSECT SELECT unnest(b.tags))) DESC, b.updated_at DESC
		LIMIT 5
	$$ LANGUAGE sql STABLE`,
}

// ApplySchema runs SchemaStatements in one transaction.
func ApplySchema(ctx context.Context, p DBProvider) error {
	db := p.DB()
	if db == nil {
		return errNoDirectDB
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range SchemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}
