package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"kb-analyzer/pkg/domain"
)

// ArticleParser turns a directory of documents into article records.
type ArticleParser interface {
	ParseDirectory(root string) ([]domain.Article, error)
}

// ArticleAnalyzer produces one result per article. Per-article failures are
// carried in the result rather than returned.
type ArticleAnalyzer interface {
	AnalyzeArticles(ctx context.Context, articles []domain.Article) []domain.ArticleAnalysis
}

// ReportGenerator writes the results into outputDir and returns the report path.
type ReportGenerator interface {
	Generate(results []domain.ArticleAnalysis, outputDir string) (string, error)
}

// Config wires the stages of a Pipeline.
type Config struct {
	Parser   ArticleParser
	Analyzer ArticleAnalyzer
	Reporter ReportGenerator
	Logger   *zerolog.Logger
}

// Pipeline runs parse, analyze and report in sequence.
type Pipeline struct {
	parser   ArticleParser
	analyzer ArticleAnalyzer
	reporter ReportGenerator
	logger   zerolog.Logger
}

// Result describes a finished run.
type Result struct {
	Articles   int
	Failed     int
	WithIssues int
	ReportPath string
}

// NewPipeline creates a new pipeline from cfg
func NewPipeline(cfg Config) *Pipeline {
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Pipeline{
		parser:   cfg.Parser,
		analyzer: cfg.Analyzer,
		reporter: cfg.Reporter,
		logger:   logger,
	}
}

// Run executes the pipeline:
// 1. Parse every supported document under inputDir
// 2. Analyze the parsed articles
// 3. Write the report and raw results into outputDir
//
// A run with no articles still writes an (empty) report.
func (p *Pipeline) Run(ctx context.Context, inputDir, outputDir string) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	p.logger.Info().Str("stage", "parse").Str("path", inputDir).Msg("Parsing articles")
	articles, err := p.parser.ParseDirectory(inputDir)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", inputDir, err)
	}
	p.logger.Info().Str("stage", "parse").Int("count", len(articles)).Msg("Articles parsed")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.logger.Info().Str("stage", "analyze").Int("count", len(articles)).Msg("Analyzing articles")
	results := p.analyzer.AnalyzeArticles(ctx, articles)

	res := &Result{Articles: len(results)}
	for _, r := range results {
		if r.Analysis == nil {
			res.Failed++
		}
		if r.HasIssues() {
			res.WithIssues++
		}
	}

	p.logger.Info().Str("stage", "report").Str("path", outputDir).Msg("Generating report")
	reportPath, err := p.reporter.Generate(results, outputDir)
	if err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}
	res.ReportPath = reportPath

	p.logger.Info().
		Int("articles", res.Articles).
		Int("failed", res.Failed).
		Int("with_issues", res.WithIssues).
		Str("report", reportPath).
		Msg("Analysis complete")
	return res, nil
}

func (p *Pipeline) validate() error {
	var errs []error
	if p.parser == nil {
		errs = append(errs, errors.New("parser is not set"))
	}
	if p.analyzer == nil {
		errs = append(errs, errors.New("analyzer is not set"))
	}
	if p.reporter == nil {
		errs = append(errs, errors.New("reporter is not set"))
	}
	return errors.Join(errs...)
}
