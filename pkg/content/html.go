package content

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"

	"kb-analyzer/pkg/domain"
)

// HTMLMode selects what HTML content is kept.
type HTMLMode int

const (
	// HTMLPlain strips all markup and keeps the visible text.
	HTMLPlain HTMLMode = iota
	// HTMLBodyMarkup keeps the sanitized markup of the <body> element.
	HTMLBodyMarkup
)

// HTMLExtractor reads HTML files.
type HTMLExtractor struct {
	Mode   HTMLMode
	policy *bluemonday.Policy
}

// NewHTMLExtractor creates an HTML extractor. Body markup is sanitized with
// the user generated content policy.
func NewHTMLExtractor(mode HTMLMode) *HTMLExtractor {
	return &HTMLExtractor{Mode: mode, policy: bluemonday.UGCPolicy()}
}

// Extract implements Extractor.
func (e *HTMLExtractor) Extract(path string) (domain.Article, error) {
	src, err := readUTF8(path)
	if err != nil {
		return domain.Article{}, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return domain.Article{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	meta, err := fileMetadata(path)
	if err != nil {
		return domain.Article{}, err
	}

	doc.Find("meta[name]").Each(func(_ int, s *goquery.Selection) {
		name := strings.ToLower(strings.TrimSpace(s.AttrOr("name", "")))
		value := strings.TrimSpace(s.AttrOr("content", ""))
		if name != "" && value != "" {
			meta[name] = value
		}
	})

	if title := extractTitle(doc); title != "" {
		meta[domain.MetaTitle] = title
	}

	if _, ok := meta[domain.MetaAuthor]; !ok {
		if byline := extractByline(src); byline != "" {
			meta[domain.MetaAuthor] = byline
		}
	}

	var text string
	switch e.Mode {
	case HTMLBodyMarkup:
		body, err := goquery.OuterHtml(doc.Find("body").First())
		if err != nil {
			return domain.Article{}, fmt.Errorf("serialize body: %w", err)
		}
		text = strings.TrimSpace(e.policy.Sanitize(body))
	default:
		doc.Find("script, style, noscript, template").Remove()
		text = strings.TrimSpace(doc.Text())
	}

	return domain.Article{
		Path:     path,
		Content:  text,
		Metadata: meta,
		FileType: domain.FileTypeHTML,
	}, nil
}

// extractTitle returns the document title with fallbacks, or "" when none is found.
func extractTitle(doc *goquery.Document) string {
	// Try <title> tag
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}

	// Try meta property="og:title"
	if title, exists := doc.Find("meta[property='og:title']").Attr("content"); exists && strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title)
	}

	// Try meta name="title"
	if title, exists := doc.Find("meta[name='title']").Attr("content"); exists && strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title)
	}

	return ""
}

// extractByline asks readability for the article author.
func extractByline(htmlContent string) string {
	article, err := readability.FromReader(strings.NewReader(htmlContent), nil)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(article.Byline)
}
