package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"kb-analyzer/pkg/analyzer"
	"kb-analyzer/pkg/conflicts"
	"kb-analyzer/pkg/db"
	"kb-analyzer/pkg/domain"
)

const (
	defaultTitle  = "Untitled"
	defaultAuthor = "Uploaded User"
)

type articleInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type createArticleRequest struct {
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Type     string         `json:"type"`
	Version  string         `json:"version"`
	Tags     []string       `json:"tags"`
	Author   string         `json:"author"`
	Metadata map[string]any `json:"metadata"`
}

type analyzeAllRequest struct {
	Articles []articleInput `json:"articles"`
}

type titledReport struct {
	Title    string               `json:"title"`
	Analysis domain.ContentReport `json:"analysis"`
}

type analyzeAllResponse struct {
	TotalArticles      int            `json:"total_articles"`
	ArticlesWithIssues int            `json:"articles_with_issues"`
	Analyses           []titledReport `json:"analyses"`
}

type saveArticleRequest struct {
	Title    string          `json:"title"`
	Content  string          `json:"content"`
	Analysis json.RawMessage `json:"analysis"`
}

type saveArticleResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ArticleID string `json:"article_id"`
}

// savedVersionInfo is the part of a client supplied analysis used to fill
// the article row.
type savedVersionInfo struct {
	VersionInfo struct {
		LatestVersion string `json:"latest_version"`
		Author        string `json:"author"`
	} `json:"version_info"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	q := r.URL.Query()
	filter := db.ArticleFilter{
		Type:    strings.TrimSpace(q.Get("type")),
		Version: strings.TrimSpace(q.Get("version")),
		Status:  strings.TrimSpace(q.Get("status")),
	}
	for _, raw := range q["tag"] {
		filter.Tags = append(filter.Tags, parseCSV(raw)...)
	}

	articles, err := s.store.ListArticles(ctx, filter)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(articles))
}

func (s *Server) handleCreateArticle(w http.ResponseWriter, r *http.Request) {
	var req createArticleRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "Title and content are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	row, err := s.store.CreateArticle(ctx, domain.NewArticle{
		Title:    req.Title,
		Content:  req.Content,
		Type:     domain.FileType(req.Type),
		Version:  req.Version,
		Tags:     req.Tags,
		Author:   req.Author,
		Metadata: req.Metadata,
	})
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (s *Server) handleSearchArticles(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	articles, err := s.store.SearchArticles(ctx, query)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(articles))
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	row, err := s.store.GetArticle(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleDeleteArticle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	deleted, err := s.store.DeleteArticle(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, db.ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleRelatedArticles(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	articles, err := s.store.RelatedArticles(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(articles))
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	analyses, err := s.store.ListAnalyses(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	if analyses == nil {
		analyses = []domain.StoredAnalysis{}
	}
	writeJSON(w, http.StatusOK, analyses)
}

// handleAnalyze runs the heuristic checks on posted content, then stores the
// article and its report.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req articleInput
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "No content provided")
		return
	}
	title := req.Title
	if title == "" {
		title = defaultTitle
	}

	report := analyzer.InspectAt(req.Content, s.now())

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	row, err := s.store.CreateArticle(ctx, domain.NewArticle{Title: title, Content: req.Content})
	if err != nil {
		s.storeError(w, err)
		return
	}
	if _, err := s.store.StoreAnalysis(ctx, row.ID, report); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleAnalyzeStored sends a stored article to the language model and
// records the result.
func (s *Server) handleAnalyzeStored(w http.ResponseWriter, r *http.Request) {
	if s.analyzer == nil {
		writeError(w, http.StatusServiceUnavailable, "language model analysis is not configured")
		return
	}
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), llmTimeout)
	defer cancel()

	row, err := s.store.GetArticle(ctx, id)
	if err != nil {
		s.storeError(w, err)
		return
	}

	analysis, err := s.analyzer.AnalyzeArticle(ctx, storedToArticle(row))
	if err != nil {
		s.log.Error().Err(err).Str("article_id", id).Msg("analysis failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if _, err := s.store.StoreAnalysis(ctx, id, analysis); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// handleAnalyzeAll runs the heuristic checks over the posted articles, or
// over every stored article when none are posted.
func (s *Server) handleAnalyzeAll(w http.ResponseWriter, r *http.Request) {
	var req analyzeAllRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	articles := req.Articles
	if len(articles) == 0 {
		ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
		defer cancel()

		rows, err := s.store.ListArticles(ctx, db.ArticleFilter{})
		if err != nil {
			s.storeError(w, err)
			return
		}
		for _, row := range rows {
			articles = append(articles, articleInput{Title: row.Title, Content: row.Content})
		}
	}
	if len(articles) == 0 {
		writeError(w, http.StatusBadRequest, "No articles found")
		return
	}

	now := s.now()
	resp := analyzeAllResponse{TotalArticles: len(articles), Analyses: make([]titledReport, 0, len(articles))}
	for _, a := range articles {
		title := a.Title
		if title == "" {
			title = defaultTitle
		}
		report := analyzer.InspectAt(a.Content, now)
		if len(report.IssuesFound) > 0 {
			resp.ArticlesWithIssues++
		}
		resp.Analyses = append(resp.Analyses, titledReport{Title: title, Analysis: report})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSaveArticle stores an article with an optional, client supplied
// analysis. Failing to store the analysis does not fail the request.
func (s *Server) handleSaveArticle(w http.ResponseWriter, r *http.Request) {
	var req saveArticleRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, "Title and content are required")
		return
	}

	hasAnalysis := len(req.Analysis) > 0 && string(req.Analysis) != "null"

	var (
		info     savedVersionInfo
		analysis any
	)
	if hasAnalysis {
		if err := json.Unmarshal(req.Analysis, &analysis); err != nil {
			writeError(w, http.StatusBadRequest, "invalid analysis")
			return
		}
		// An analysis of another shape simply yields no version or author.
		_ = json.Unmarshal(req.Analysis, &info)
	}
	author := info.VersionInfo.Author
	if author == "" {
		author = defaultAuthor
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	row, err := s.store.CreateArticle(ctx, domain.NewArticle{
		Title:   req.Title,
		Content: req.Content,
		Version: info.VersionInfo.LatestVersion,
		Author:  author,
	})
	if err != nil {
		s.storeError(w, err)
		return
	}

	if hasAnalysis {
		if _, err := s.store.StoreAnalysis(ctx, row.ID, analysis); err != nil {
			s.log.Error().Err(err).Str("article_id", row.ID).Msg("Failed to save analysis")
		}
	}

	writeJSON(w, http.StatusOK, saveArticleResponse{
		Success:   true,
		Message:   "Article saved successfully",
		ArticleID: row.ID,
	})
}

func (s *Server) handleDetectConflicts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	rows, err := s.store.ListArticles(ctx, db.ArticleFilter{})
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conflicts.Detect(rows, s.now()))
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.log.Error().Err(err).Msg("store request failed")
	writeError(w, http.StatusInternalServerError, err.Error())
}

// storedToArticle adapts a stored row to the record shape the analyzer reads.
func storedToArticle(row domain.StoredArticle) domain.Article {
	meta := make(map[string]any, len(row.Metadata)+3)
	for k, v := range row.Metadata {
		meta[k] = v
	}
	meta[domain.MetaTitle] = row.Title
	if row.Author != "" {
		meta[domain.MetaAuthor] = row.Author
	}
	if row.Version != "" {
		meta["version"] = row.Version
	}
	fileType := row.Type
	if !fileType.Valid() {
		fileType = domain.FileTypeText
	}
	return domain.Article{
		Path:     "kb_articles/" + row.ID,
		Content:  row.Content,
		Metadata: meta,
		FileType: fileType,
	}
}

func nonNil(rows []domain.StoredArticle) []domain.StoredArticle {
	if rows == nil {
		return []domain.StoredArticle{}
	}
	return rows
}

func parseCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
