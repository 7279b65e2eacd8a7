package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"kb-analyzer/pkg/db"
	"kb-analyzer/pkg/domain"
)

// Metadata keys written by the importer.
const (
	MetaOriginalFile = "original_file"
	MetaImportedAt   = "imported_at"
)

// ImportAuthor is the author recorded on imported articles.
const ImportAuthor = "System"

// ArticleSaver is the part of the article store the importer needs.
type ArticleSaver interface {
	CreateArticle(ctx context.Context, article domain.NewArticle) (domain.StoredArticle, error)
	ListArticles(ctx context.Context, filter db.ArticleFilter) ([]domain.StoredArticle, error)
}

// ImporterConfig configures an Importer.
type ImporterConfig struct {
	Logger *zerolog.Logger
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Importer loads parsed documents into the article store.
type Importer struct {
	parser ArticleParser
	saver  ArticleSaver
	logger zerolog.Logger
	now    func() time.Time
}

// ImportStats counts what happened to each parsed article.
type ImportStats struct {
	Parsed   int
	Imported int
	Skipped  int
	Failed   int
}

// NewImporter creates an importer reading with parser and writing to saver.
func NewImporter(parser ArticleParser, saver ArticleSaver, cfg ImporterConfig) *Importer {
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Importer{parser: parser, saver: saver, logger: logger, now: now}
}

// Import parses dir and creates one stored article per document that has not
// been imported before. Failures on single articles are logged and counted;
// only parse and listing errors abort the import.
func (im *Importer) Import(ctx context.Context, dir string) (ImportStats, error) {
	var stats ImportStats

	articles, err := im.parser.ParseDirectory(dir)
	if err != nil {
		return stats, fmt.Errorf("parse %s: %w", dir, err)
	}
	stats.Parsed = len(articles)

	existing, err := im.importedFiles(ctx)
	if err != nil {
		return stats, err
	}

	for _, a := range articles {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if existing[a.Path] {
			im.logger.Debug().Str("path", a.Path).Msg("Already imported, skipping")
			stats.Skipped++
			continue
		}

		row, err := im.saver.CreateArticle(ctx, ToNewArticle(a, im.now()))
		if err != nil {
			im.logger.Error().Err(err).Str("path", a.Path).Msg("Failed to import article")
			stats.Failed++
			continue
		}
		existing[a.Path] = true
		stats.Imported++
		im.logger.Info().Str("path", a.Path).Str("article_id", row.ID).Msg("Imported article")
	}

	im.logger.Info().
		Int("parsed", stats.Parsed).
		Int("imported", stats.Imported).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Msg("Import completed")
	return stats, nil
}

func (im *Importer) importedFiles(ctx context.Context) (map[string]bool, error) {
	rows, err := im.saver.ListArticles(ctx, db.ArticleFilter{})
	if err != nil {
		return nil, fmt.Errorf("list existing articles: %w", err)
	}
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		if f, ok := r.Metadata[MetaOriginalFile].(string); ok && f != "" {
			seen[f] = true
		}
	}
	return seen, nil
}

// ToNewArticle maps a parsed document to a store payload.
func ToNewArticle(a domain.Article, now time.Time) domain.NewArticle {
	return domain.NewArticle{
		Title:   ArticleTitle(a),
		Content: a.Content,
		Type:    a.FileType,
		Version: ArticleVersion(a.Content),
		Tags:    ArticleTags(a.Path),
		Author:  ImportAuthor,
		Status:  domain.StatusActive,
		Metadata: map[string]any{
			MetaOriginalFile: a.Path,
			MetaImportedAt:   now.Format(time.RFC3339),
		},
	}
}

// ArticleTitle returns the title metadata, or the first content line with
// heading markers trimmed.
func ArticleTitle(a domain.Article) string {
	if t := strings.TrimSpace(a.Title()); t != "" {
		return t
	}
	first, _, _ := strings.Cut(strings.TrimLeft(a.Content, "\r\n"), "\n")
	return strings.Trim(first, "# \r")
}

// ArticleVersion returns the value of the first "- Version:" line. Rendered
// Markdown loses the list marker, so a bare "Version:" line counts too.
func ArticleVersion(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "- Version:") && !strings.HasPrefix(line, "Version:") {
			continue
		}
		parts := strings.Split(line, ":")
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// ArticleTags tags installation guides separately from the rest.
func ArticleTags(path string) []string {
	if strings.Contains(strings.ToLower(path), "installation") {
		return []string{"installation", "backup", "configuration"}
	}
	return []string{"backup", "configuration"}
}
