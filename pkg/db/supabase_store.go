package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	postgrest "github.com/supabase-community/postgrest-go"
	supabase "github.com/supabase-community/supabase-go"

	"kb-analyzer/pkg/domain"
)

const returnRows = "representation"

var errEmptyRPC = errors.New("rpc returned no data")

// SupabaseStore implements ArticleStore over the Supabase REST API.
type SupabaseStore struct {
	sdk *supabase.Client
	now func() time.Time
}

// NewSupabaseStore wraps a connected Supabase REST client.
func NewSupabaseStore(sdk *supabase.Client) *SupabaseStore {
	return &SupabaseStore{sdk: sdk, now: time.Now}
}

type articleInsert struct {
	Title       string          `json:"title"`
	Content     string          `json:"content"`
	Type        domain.FileType `json:"type,omitempty"`
	Version     string          `json:"version,omitempty"`
	Tags        []string        `json:"tags"`
	Author      string          `json:"author,omitempty"`
	Status      string          `json:"status"`
	Metadata    map[string]any  `json:"metadata"`
	LastUpdated time.Time       `json:"last_updated"`
}

type analysisInsert struct {
	ArticleID    string `json:"article_id"`
	AnalysisData any    `json:"analysis_data"`
}

func (s *SupabaseStore) CreateArticle(ctx context.Context, article domain.NewArticle) (domain.StoredArticle, error) {
	row := newArticleRow(article, s.now().UTC())
	insert := articleInsert{
		Title:       row.Title,
		Content:     row.Content,
		Type:        row.Type,
		Version:     row.Version,
		Tags:        row.Tags,
		Author:      row.Author,
		Status:      row.Status,
		Metadata:    row.Metadata,
		LastUpdated: *row.LastUpdated,
	}

	var rows []domain.StoredArticle
	if _, err := s.sdk.From(ArticlesTable).Insert(insert, false, "", returnRows, "").ExecuteTo(&rows); err != nil {
		return domain.StoredArticle{}, fmt.Errorf("insert article: %w", err)
	}
	return first(rows, "insert article")
}

func (s *SupabaseStore) UpdateArticle(ctx context.Context, id string, updates map[string]any) (domain.StoredArticle, error) {
	body := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		body[k] = v
	}
	body["last_updated"] = s.now().UTC()

	var rows []domain.StoredArticle
	if _, err := s.sdk.From(ArticlesTable).Update(body, returnRows, "").Eq("id", id).ExecuteTo(&rows); err != nil {
		return domain.StoredArticle{}, fmt.Errorf("update article %s: %w", id, err)
	}
	if len(rows) == 0 {
		return domain.StoredArticle{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rows[0], nil
}

func (s *SupabaseStore) GetArticle(ctx context.Context, id string) (domain.StoredArticle, error) {
	var rows []domain.StoredArticle
	if _, err := s.sdk.From(ArticlesTable).Select("*", "", false).Eq("id", id).ExecuteTo(&rows); err != nil {
		return domain.StoredArticle{}, fmt.Errorf("get article %s: %w", id, err)
	}
	if len(rows) == 0 {
		return domain.StoredArticle{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rows[0], nil
}

func (s *SupabaseStore) ListArticles(ctx context.Context, filter ArticleFilter) ([]domain.StoredArticle, error) {
	query := s.sdk.From(ArticlesTable).Select("*", "", false)
	if filter.Version != "" {
		query = query.Eq("version", filter.Version)
	}
	if filter.Type != "" {
		query = query.Eq("type", filter.Type)
	}
	if filter.Status != "" {
		query = query.Eq("status", filter.Status)
	}
	if len(filter.Tags) > 0 {
		query = query.Contains("tags", filter.Tags)
	}
	query = query.Order("updated_at", &postgrest.OrderOpts{Ascending: false})

	rows := []domain.StoredArticle{}
	if _, err := query.ExecuteTo(&rows); err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return rows, nil
}

func (s *SupabaseStore) DeleteArticle(ctx context.Context, id string) (bool, error) {
	var rows []domain.StoredArticle
	if _, err := s.sdk.From(ArticlesTable).Delete(returnRows, "").Eq("id", id).ExecuteTo(&rows); err != nil {
		return false, fmt.Errorf("delete article %s: %w", id, err)
	}
	return len(rows) > 0, nil
}

func (s *SupabaseStore) SearchArticles(ctx context.Context, query string) ([]domain.StoredArticle, error) {
	return s.rpcArticles("search_kb_articles", map[string]any{"search_query": query})
}

func (s *SupabaseStore) RelatedArticles(ctx context.Context, id string) ([]domain.StoredArticle, error) {
	return s.rpcArticles("get_related_articles", map[string]any{"article_id": id})
}

func (s *SupabaseStore) rpcArticles(name string, body map[string]any) ([]domain.StoredArticle, error) {
	raw := s.sdk.Rpc(name, "", body)
	if raw == "" {
		return nil, fmt.Errorf("%s: %w", name, errEmptyRPC)
	}

	rows := []domain.StoredArticle{}
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", name, err)
	}
	return rows, nil
}

func (s *SupabaseStore) StoreAnalysis(ctx context.Context, articleID string, data any) (domain.StoredAnalysis, error) {
	var rows []domain.StoredAnalysis
	insert := analysisInsert{ArticleID: articleID, AnalysisData: data}
	if _, err := s.sdk.From(AnalysesTable).Insert(insert, false, "", returnRows, "").ExecuteTo(&rows); err != nil {
		return domain.StoredAnalysis{}, fmt.Errorf("insert analysis for %s: %w", articleID, err)
	}
	if len(rows) == 0 {
		return domain.StoredAnalysis{}, fmt.Errorf("insert analysis for %s: no row returned", articleID)
	}
	return rows[0], nil
}

func (s *SupabaseStore) ListAnalyses(ctx context.Context, articleID string) ([]domain.StoredAnalysis, error) {
	rows := []domain.StoredAnalysis{}
	_, err := s.sdk.From(AnalysesTable).
		Select("*", "", false).
		Eq("article_id", articleID).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("list analyses for %s: %w", articleID, err)
	}
	return rows, nil
}

func first(rows []domain.StoredArticle, op string) (domain.StoredArticle, error) {
	if len(rows) == 0 {
		return domain.StoredArticle{}, fmt.Errorf("%s: no row returned", op)
	}
	return rows[0], nil
}
