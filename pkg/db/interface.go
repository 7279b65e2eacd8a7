package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"kb-analyzer/pkg/domain"
)

// Table names.
const (
	ArticlesTable = "kb_articles"
	AnalysesTable = "kb_article_analyses"
)

// ErrNotFound is returned when an article id does not exist.
var ErrNotFound = errors.New("article not found")

// DBProvider is an interface for database clients that provide access to a sql.DB handle.
// Both PostgresClient and SupabaseClient satisfy it.
type DBProvider interface {
	DB() *sql.DB
}

// ArticleFilter narrows ListArticles. Empty fields are ignored; Tags matches
// rows containing all of the given tags.
type ArticleFilter struct {
	Version string
	Type    string
	Status  string
	Tags    []string
}

// ArticleStore persists knowledge-base articles and their analyses.
type ArticleStore interface {
	CreateArticle(ctx context.Context, article domain.NewArticle) (domain.StoredArticle, error)
	UpdateArticle(ctx context.Context, id string, updates map[string]any) (domain.StoredArticle, error)
	GetArticle(ctx context.Context, id string) (domain.StoredArticle, error)
	ListArticles(ctx context.Context, filter ArticleFilter) ([]domain.StoredArticle, error)
	DeleteArticle(ctx context.Context, id string) (bool, error)
	SearchArticles(ctx context.Context, query string) ([]domain.StoredArticle, error)
	RelatedArticles(ctx context.Context, id string) ([]domain.StoredArticle, error)

	StoreAnalysis(ctx context.Context, articleID string, data any) (domain.StoredAnalysis, error)
	ListAnalyses(ctx context.Context, articleID string) ([]domain.StoredAnalysis, error)
}

// newArticleRow applies the defaults shared by every backend.
func newArticleRow(in domain.NewArticle, now time.Time) domain.StoredArticle {
	row := domain.StoredArticle{
		Title:       in.Title,
		Content:     in.Content,
		Type:        in.Type,
		Version:     in.Version,
		Tags:        in.Tags,
		Author:      in.Author,
		Status:      in.Status,
		Metadata:    in.Metadata,
		LastUpdated: &now,
	}
	if row.Status == "" {
		row.Status = domain.StatusActive
	}
	if row.Tags == nil {
		row.Tags = []string{}
	}
	if row.Metadata == nil {
		row.Metadata = map[string]any{}
	}
	return row
}
