package content

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"

	"kb-analyzer/pkg/domain"
)

// MarkdownMode selects what Markdown content is kept.
type MarkdownMode int

const (
	// MarkdownPlain renders the body and keeps its visible text.
	MarkdownPlain MarkdownMode = iota
	// MarkdownRaw keeps the body markup as written.
	MarkdownRaw
)

// MarkdownExtractor reads Markdown files with optional YAML frontmatter.
type MarkdownExtractor struct {
	Mode MarkdownMode
	md   goldmark.Markdown
}

// NewMarkdownExtractor creates a Markdown extractor with GitHub flavored rendering.
func NewMarkdownExtractor(mode MarkdownMode) *MarkdownExtractor {
	return &MarkdownExtractor{
		Mode: mode,
		md:   goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Extract implements Extractor.
func (e *MarkdownExtractor) Extract(path string) (domain.Article, error) {
	src, err := readUTF8(path)
	if err != nil {
		return domain.Article{}, err
	}

	front, body, err := SplitFrontmatter(src)
	if err != nil {
		return domain.Article{}, fmt.Errorf("frontmatter: %w", err)
	}

	meta, err := fileMetadata(path)
	if err != nil {
		return domain.Article{}, err
	}

	var rendered bytes.Buffer
	if err := e.md.Convert([]byte(body), &rendered); err != nil {
		return domain.Article{}, fmt.Errorf("render markdown: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(&rendered)
	if err != nil {
		return domain.Article{}, fmt.Errorf("parse rendered markdown: %w", err)
	}

	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		meta[domain.MetaTitle] = h1
	}
	for k, v := range front {
		meta[k] = v
	}

	text := body
	if e.Mode == MarkdownPlain {
		text = strings.TrimSpace(doc.Text())
	}

	return domain.Article{
		Path:     path,
		Content:  text,
		Metadata: meta,
		FileType: domain.FileTypeMarkdown,
	}, nil
}

// SplitFrontmatter separates a leading YAML block from the Markdown body.
// The block opens and closes with a line of three or more dashes, trailing
// blanks allowed. Without both delimiters the whole source is the body.
func SplitFrontmatter(src string) (map[string]any, string, error) {
	front := map[string]any{}

	normalized := strings.ReplaceAll(src, "\r\n", "\n")
	lines := strings.SplitAfter(normalized, "\n")
	if !isFrontmatterDelim(lines[0]) {
		return front, src, nil
	}

	closing := -1
	for i := 1; i < len(lines); i++ {
		if isFrontmatterDelim(lines[i]) {
			closing = i
			break
		}
	}
	if closing < 0 {
		return front, src, nil
	}

	block := strings.Join(lines[1:closing], "")
	body := strings.Join(lines[closing+1:], "")

	raw := map[string]any{}
	if err := yaml.Unmarshal([]byte(block), &raw); err != nil {
		return nil, "", err
	}
	for k, v := range raw {
		front[k] = normalizeMetaValue(v)
	}

	return front, body, nil
}

func isFrontmatterDelim(line string) bool {
	line = strings.TrimRight(line, " \t\n")
	return len(line) >= 3 && strings.Trim(line, "-") == ""
}

// normalizeMetaValue keeps strings and timestamps, turns lists into string
// slices and formats every other scalar as a string.
func normalizeMetaValue(v any) any {
	switch val := v.(type) {
	case nil:
		return ""
	case string, time.Time:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return fmt.Sprint(val)
	}
}
