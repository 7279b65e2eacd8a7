package parser

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"kb-analyzer/pkg/content"
	"kb-analyzer/pkg/domain"
)

var (
	// ErrDirectoryNotFound is returned when the root of a directory parse does not exist.
	ErrDirectoryNotFound = errors.New("directory not found")
	// ErrFileNotFound is returned when a single file to parse does not exist.
	ErrFileNotFound = errors.New("file not found")
	// ErrUnsupportedFormat is returned for file extensions without an extractor.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// Config controls how documents are extracted.
type Config struct {
	// Logger receives per-file failures. The zero value uses the global logger.
	Logger *zerolog.Logger

	HTMLMode     content.HTMLMode
	MarkdownMode content.MarkdownMode
}

// Parser turns knowledge-base files into Articles, choosing the extractor by
// file extension.
type Parser struct {
	logger     zerolog.Logger
	extractors map[string]content.Extractor
}

// New creates a parser with the extractors for every supported format.
func New(cfg Config) *Parser {
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	markdown := content.NewMarkdownExtractor(cfg.MarkdownMode)
	html := content.NewHTMLExtractor(cfg.HTMLMode)
	word := content.ExtractorFunc(content.ExtractWord)

	return &Parser{
		logger: logger,
		extractors: map[string]content.Extractor{
			".md":   markdown,
			".html": html,
			".txt":  content.ExtractorFunc(content.ExtractPlainText),
			".pdf":  content.ExtractorFunc(content.ExtractPDF),
			".doc":  word,
			".docx": word,
		},
	}
}

// SupportedExtensions returns the handled extensions in sorted order.
func (p *Parser) SupportedExtensions() []string {
	exts := make([]string, 0, len(p.extractors))
	for ext := range p.extractors {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Supports reports whether path has a handled extension (case-insensitive).
func (p *Parser) Supports(path string) bool {
	_, ok := p.extractorFor(path)
	return ok
}

func (p *Parser) extractorFor(path string) (content.Extractor, bool) {
	ext, ok := p.extractors[strings.ToLower(filepath.Ext(path))]
	return ext, ok
}

// ParseFile extracts a single file.
func (p *Parser) ParseFile(path string) (domain.Article, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Article{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return domain.Article{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return domain.Article{}, fmt.Errorf("%w: %s is a directory", ErrUnsupportedFormat, path)
	}

	extractor, ok := p.extractorFor(path)
	if !ok {
		return domain.Article{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	article, err := extractor.Extract(path)
	if err != nil {
		return domain.Article{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return article, nil
}

// ParseDirectory walks root recursively and returns one Article per
// successfully extracted file, in lexical path order. Files that fail to
// extract are logged and skipped; unsupported files are skipped silently.
func (p *Parser) ParseDirectory(root string) ([]domain.Article, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, root)
	}

	var articles []domain.Article
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			p.logger.Error().Err(walkErr).Str("path", path).Msg("Failed to read directory entry")
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		extractor, ok := p.extractorFor(path)
		if !ok {
			p.logger.Debug().Str("path", path).Msg("Skipping unsupported file")
			return nil
		}

		article, err := extractor.Extract(path)
		if err != nil {
			p.logger.Error().Err(err).Str("path", path).Msg("Failed to parse file")
			return nil
		}

		p.logger.Debug().Str("path", path).Str("file_type", string(article.FileType)).Msg("Parsed file")
		articles = append(articles, article)
		return nil
	})
	if err != nil {
		return articles, fmt.Errorf("walk %s: %w", root, err)
	}

	return articles, nil
}
