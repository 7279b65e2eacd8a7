package domain

import (
	"errors"
	"fmt"
	"time"
)

// FileType identifies which extractor produced an Article.
type FileType string

const (
	FileTypeMarkdown FileType = "markdown"
	FileTypeHTML     FileType = "html"
	FileTypeText     FileType = "text"
	FileTypePDF      FileType = "pdf"
	FileTypeWord     FileType = "word"
)

// Valid reports whether t is one of the known file types.
func (t FileType) Valid() bool {
	switch t {
	case FileTypeMarkdown, FileTypeHTML, FileTypeText, FileTypePDF, FileTypeWord:
		return true
	}
	return false
}

// Well-known metadata keys. Extractors may add format-specific keys beside these.
const (
	MetaTitle     = "title"
	MetaAuthor    = "author"
	MetaCreatedAt = "created_at"
	MetaUpdatedAt = "updated_at"
)

// ErrMissingKey is returned by ArticleFromMap when a required key is absent.
var ErrMissingKey = errors.New("missing required key")

// Article is the uniform record produced by every extractor.
type Article struct {
	Path     string         `json:"path" bson:"path"`
	Content  string         `json:"content" bson:"content"`
	Metadata map[string]any `json:"metadata" bson:"metadata"`
	FileType FileType       `json:"file_type" bson:"file_type"`
}

// Title returns the title metadata as a string, or "" when absent.
func (a Article) Title() string {
	return a.MetaString(MetaTitle)
}

// MetaString returns metadata[key] rendered as a string. Timestamps are
// formatted as RFC 3339.
func (a Article) MetaString(key string) string {
	v, ok := a.Metadata[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.Format(time.RFC3339)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// ArticleFromMap builds an Article from an already-fetched key/value row.
// "path" and "content" are required; "metadata" defaults to an empty map and
// "file_type" defaults to text.
func ArticleFromMap(m map[string]any) (Article, error) {
	path, ok := m["path"]
	if !ok {
		return Article{}, fmt.Errorf("%w: path", ErrMissingKey)
	}
	content, ok := m["content"]
	if !ok {
		return Article{}, fmt.Errorf("%w: content", ErrMissingKey)
	}

	article := Article{
		Path:     fmt.Sprint(path),
		Content:  fmt.Sprint(content),
		Metadata: map[string]any{},
		FileType: FileTypeText,
	}

	switch md := m["metadata"].(type) {
	case map[string]any:
		for k, v := range md {
			article.Metadata[k] = v
		}
	case map[string]string:
		for k, v := range md {
			article.Metadata[k] = v
		}
	}

	if ft, ok := m["file_type"]; ok && ft != nil {
		if s := fmt.Sprint(ft); s != "" {
			article.FileType = FileType(s)
		}
	}

	return article, nil
}
