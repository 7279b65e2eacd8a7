// Package api exposes the knowledge-base store, the content checks and the
// conflict scan over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"kb-analyzer/pkg/db"
	"kb-analyzer/pkg/domain"
)

const (
	storeTimeout = 10 * time.Second
	llmTimeout   = 2 * time.Minute
)

// ArticleAnalyzer runs a language model review of one article.
type ArticleAnalyzer interface {
	AnalyzeArticle(ctx context.Context, article domain.Article) (*domain.Analysis, error)
}

// Config wires the server's collaborators. Analyzer may be nil, in which case
// the language model endpoint answers 503.
type Config struct {
	Store    db.ArticleStore
	Analyzer ArticleAnalyzer
	Logger   *zerolog.Logger
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Server holds the HTTP handlers.
type Server struct {
	store    db.ArticleStore
	analyzer ArticleAnalyzer
	log      zerolog.Logger
	now      func() time.Time
}

// NewServer creates a Server from cfg.
func NewServer(cfg Config) *Server {
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Server{store: cfg.Store, analyzer: cfg.Analyzer, log: logger, now: now}
}

// Routes returns the router with every endpoint mounted.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/articles", s.handleListArticles)
		r.Post("/articles", s.handleCreateArticle)
		r.Get("/articles/search", s.handleSearchArticles)
		r.Get("/articles/{id}", s.handleGetArticle)
		r.Delete("/articles/{id}", s.handleDeleteArticle)
		r.Get("/articles/{id}/related", s.handleRelatedArticles)
		r.Get("/articles/{id}/analyses", s.handleListAnalyses)

		r.Post("/analyze", s.handleAnalyze)
		r.Post("/analyze/{id}", s.handleAnalyzeStored)
		r.Post("/analyze-all", s.handleAnalyzeAll)
		r.Post("/save-article", s.handleSaveArticle)
		r.Post("/detect-conflicts", s.handleDetectConflicts)
	})

	return r
}
