// Package report renders analysis results as Markdown, HTML or PDF files.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"kb-analyzer/pkg/domain"
)

// Format is an output format for the report.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
)

// ResultsFile is the name of the raw JSON dump written next to every report.
const ResultsFile = "analysis_results.json"

// ErrUnknownFormat is returned for unsupported report formats.
var ErrUnknownFormat = errors.New("unknown report format")

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatMarkdown, FormatHTML, FormatPDF:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// FileName returns the report file name for f.
func (f Format) FileName() string {
	switch f {
	case FormatHTML:
		return "report.html"
	case FormatPDF:
		return "report.pdf"
	default:
		return "report.md"
	}
}

// Summary holds the headline numbers of a report.
type Summary struct {
	Timestamp          string
	TotalArticles      int
	ArticlesWithIssues int
	AverageScore       string
}

// Summarize computes the report summary. The average covers only results
// that have an analysis.
func Summarize(results []domain.ArticleAnalysis, now time.Time) Summary {
	s := Summary{
		Timestamp:     now.Format("2006-01-02 15:04:05"),
		TotalArticles: len(results),
	}

	var total float64
	var scored int
	for _, r := range results {
		if r.HasIssues() {
			s.ArticlesWithIssues++
		}
		if r.Analysis != nil {
			total += r.Analysis.Score
			scored++
		}
	}

	avg := 0.0
	if scored > 0 {
		avg = total / float64(scored)
	}
	s.AverageScore = fmt.Sprintf("%.2f", avg)
	return s
}

// Config configures a Generator.
type Config struct {
	Format Format
	Logger *zerolog.Logger
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Generator writes reports into a directory.
type Generator struct {
	format Format
	logger zerolog.Logger
	now    func() time.Time
}

// New creates a Generator. The zero Config renders Markdown.
func New(cfg Config) *Generator {
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	format := cfg.Format
	if format == "" {
		format = FormatMarkdown
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Generator{format: format, logger: logger, now: now}
}

// Generate writes the report and the raw results into outputDir, creating it
// when needed. It returns the report path.
func (g *Generator) Generate(results []domain.ArticleAnalysis, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	data := newReportData(results, Summarize(results, g.now()))
	reportPath := filepath.Join(outputDir, g.format.FileName())

	var err error
	switch g.format {
	case FormatMarkdown:
		err = writeMarkdown(reportPath, data)
	case FormatHTML:
		err = writeHTML(reportPath, data)
	case FormatPDF:
		err = writePDF(reportPath, data)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownFormat, g.format)
	}
	if err != nil {
		g.logger.Error().Err(err).Str("path", reportPath).Msg("Error generating report")
		return "", err
	}
	g.logger.Info().Str("path", reportPath).Msg("Report generated")

	jsonPath := filepath.Join(outputDir, ResultsFile)
	if err := WriteResults(jsonPath, results); err != nil {
		return "", err
	}
	g.logger.Info().Str("path", jsonPath).Msg("Raw results saved")

	return reportPath, nil
}

// WriteResults dumps results as indented JSON.
func WriteResults(path string, results []domain.ArticleAnalysis) error {
	if results == nil {
		results = []domain.ArticleAnalysis{}
	}
	b, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}

// reportData is the view model shared by every renderer.
type reportData struct {
	Summary
	Articles []articleView
}

type articleView struct {
	Path             string
	Type             string
	Title            string
	Analyzed         bool
	Score            string
	Issues           []issueView
	Summary          string
	SuggestedUpdates string
	Error            string
}

type issueView struct {
	Type        string
	Severity    string
	Description string
	Suggestion  string
}

var titleCase = cases.Title(language.English)

func newReportData(results []domain.ArticleAnalysis, summary Summary) reportData {
	data := reportData{Summary: summary, Articles: make([]articleView, 0, len(results))}
	for _, r := range results {
		view := articleView{
			Path:  r.Article.Path,
			Type:  string(r.Article.FileType),
			Title: r.Article.Title(),
			Error: r.Error,
		}
		if a := r.Analysis; a != nil {
			view.Analyzed = true
			view.Score = fmt.Sprintf("%.2f", a.Score)
			view.Summary = a.Summary
			view.SuggestedUpdates = a.SuggestedUpdates
			if view.Summary == "" && len(a.Issues) == 0 {
				view.Summary = a.RawAnalysis
			}
			for _, issue := range a.Issues {
				view.Issues = append(view.Issues, issueView{
					Type:        titleCase.String(issue.Type),
					Severity:    issue.Severity,
					Description: issue.Description,
					Suggestion:  issue.Suggestion,
				})
			}
		}
		data.Articles = append(data.Articles, view)
	}
	return data
}
