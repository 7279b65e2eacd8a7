package replication

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"kb-analyzer/pkg/db"
	"kb-analyzer/pkg/domain"
)

const (
	processBatchSize = 100
	numWorkers       = 5
)

// ArticleLister is the read side of an article store.
type ArticleLister interface {
	ListArticles(ctx context.Context, filter db.ArticleFilter) ([]domain.StoredArticle, error)
}

// Config wires the replication dependencies.
type Config struct {
	Source   ArticleLister
	Postgres db.DBProvider
	Logger   *zerolog.Logger
}

// Stats counts replicated rows.
type Stats struct {
	Processed int
	Inserted  int
}

// Replicator copies knowledge-base articles from a document store (usually
// MongoDB) into the Postgres kb_articles table.
//
// This is a one-shot, "copy everything" flow. Rows already present in
// Postgres, matched by id, are left untouched.
type Replicator struct {
	source ArticleLister
	pg     db.DBProvider
	logger zerolog.Logger
}

func NewReplicator(cfg Config) (*Replicator, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("source store is required")
	}
	if cfg.Postgres == nil {
		return nil, fmt.Errorf("postgres client is required")
	}
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Replicator{source: cfg.Source, pg: cfg.Postgres, logger: logger}, nil
}

// ReplicateArticles reads every source article and inserts the missing ones
// into Postgres, applying the schema first.
func (r *Replicator) ReplicateArticles(ctx context.Context) (Stats, error) {
	if err := db.ApplySchema(ctx, r.pg); err != nil {
		return Stats{}, err
	}

	articles, err := r.source.ListArticles(ctx, db.ArticleFilter{})
	if err != nil {
		return Stats{}, fmt.Errorf("read source articles: %w", err)
	}
	r.logger.Info().Int("count", len(articles)).Msg("Loaded source articles, processing in batches")

	stats, err := r.processBatches(ctx, articles)
	if err != nil {
		return stats, err
	}

	r.logger.Info().Int("processed", stats.Processed).Int("inserted", stats.Inserted).Msg("Replication complete")
	return stats, nil
}

type batchJob struct {
	batch      []domain.StoredArticle
	start, end int
}

type batchResult struct {
	processed int
	inserted  int
	err       error
}

// processBatches processes all articles in batches in parallel and stops at
// the first failing batch.
func (r *Replicator) processBatches(ctx context.Context, articles []domain.StoredArticle) (Stats, error) {
	jobs := splitBatches(articles, processBatchSize)
	jobChan := make(chan batchJob, len(jobs))
	for _, j := range jobs {
		jobChan <- j
	}
	close(jobChan)

	results := make(chan batchResult, len(jobs))
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobChan {
				inserted, err := r.processBatch(ctx, job)
				results <- batchResult{processed: len(job.batch), inserted: inserted, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var stats Stats
	var firstErr error
	for res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		stats.Processed += res.processed
		stats.Inserted += res.inserted
	}
	return stats, firstErr
}

// splitBatches cuts articles into consecutive batches of at most size rows.
func splitBatches(articles []domain.StoredArticle, size int) []batchJob {
	var jobs []batchJob
	for start := 0; start < len(articles); start += size {
		end := min(start+size, len(articles))
		jobs = append(jobs, batchJob{batch: articles[start:end], start: start, end: end})
	}
	return jobs
}

// processBatch checks which ids exist, then inserts the new rows.
func (r *Replicator) processBatch(ctx context.Context, job batchJob) (int, error) {
	r.logger.Debug().Int("start", job.start).Int("end", job.end).Msg("Processing batch")

	existing, err := r.existingIDs(ctx, job.batch)
	if err != nil {
		return 0, fmt.Errorf("check existing ids for batch [%d:%d]: %w", job.start, job.end, err)
	}

	toInsert := filterNew(job.batch, existing)
	if len(toInsert) == 0 {
		return 0, nil
	}

	if err := r.insertArticlesTx(ctx, toInsert); err != nil {
		return 0, fmt.Errorf("insert batch [%d:%d]: %w", job.start, job.end, err)
	}
	r.logger.Info().Int("start", job.start).Int("end", job.end).Int("inserted", len(toInsert)).Msg("Batch inserted")
	return len(toInsert), nil
}

func (r *Replicator) existingIDs(ctx context.Context, batch []domain.StoredArticle) (map[string]bool, error) {
	ids := make([]any, 0, len(batch))
	for _, a := range batch {
		if a.ID != "" {
			ids = append(ids, a.ID)
		}
	}
	if len(ids) == 0 {
		return map[string]bool{}, nil
	}

	query := buildIDInQuery(len(ids), ids[0].(string))
	rows, err := r.pg.DB().QueryContext(ctx, query, ids...)
	if err != nil {
		return nil, fmt.Errorf("query existing ids: %w", err)
	}
	defer rows.Close()

	set := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		set[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return set, nil
}

// buildIDInQuery returns a SELECT with n placeholders. The leading comment
// keeps concurrent batches from sharing a cached prepared statement.
func buildIDInQuery(n int, firstID string) string {
	hash := md5.Sum([]byte(firstID))

	var sb strings.Builder
	fmt.Fprintf(&sb, "/* q_%d_%x */ SELECT id::text FROM %s WHERE id::text IN (", n, hash[:4], db.ArticlesTable)
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "$%d", i+1)
	}
	sb.WriteString(")")
	return sb.String()
}

func filterNew(all []domain.StoredArticle, existing map[string]bool) []domain.StoredArticle {
	out := make([]domain.StoredArticle, 0, len(all))
	for _, a := range all {
		if a.ID == "" || existing[a.ID] {
			continue
		}
		out = append(out, a)
	}
	return out
}

const insertQuery = `
INSERT INTO kb_articles (id, title, content, type, version, tags, author, status, metadata, created_at, updated_at, last_updated)
VALUES ($1::uuid, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, NULLIF($7, ''), $8, $9::jsonb, COALESCE($10, now()), COALESCE($11, now()), $12)
ON CONFLICT (id) DO NOTHING`

// insertArticlesTx inserts a batch of articles within a transaction.
func (r *Replicator) insertArticlesTx(ctx context.Context, batch []domain.StoredArticle) error {
	tx, err := r.pg.DB().BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertQuery)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range batch {
		args, err := insertArgs(a)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert article id=%q: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// insertArgs maps a row to insertQuery's parameters.
func insertArgs(a domain.StoredArticle) ([]any, error) {
	meta := a.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode metadata of %q: %w", a.ID, err)
	}
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	status := a.Status
	if status == "" {
		status = domain.StatusActive
	}
	return []any{
		a.ID, a.Title, a.Content, string(a.Type), a.Version, tags, a.Author, status,
		string(metaJSON), a.CreatedAt, a.UpdatedAt, a.LastUpdated,
	}, nil
}
