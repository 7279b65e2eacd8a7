package content

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"kb-analyzer/pkg/domain"
)

var (
	errEmptyPath = errors.New("path is empty")

	// ErrInvalidEncoding is returned when a text-based file is not valid UTF-8.
	ErrInvalidEncoding = errors.New("file is not valid UTF-8")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Extractor converts a file on disk into an Article.
type Extractor interface {
	Extract(path string) (domain.Article, error)
}

// ExtractorFunc adapts a plain function to the Extractor interface.
type ExtractorFunc func(path string) (domain.Article, error)

// Extract calls f(path).
func (f ExtractorFunc) Extract(path string) (domain.Article, error) {
	return f(path)
}

// readUTF8 reads a text file and rejects content that is not valid UTF-8.
// A leading byte order mark is dropped.
func readUTF8(path string) (string, error) {
	if path == "" {
		return "", errEmptyPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s", ErrInvalidEncoding, path)
	}

	return string(data), nil
}

// fileName returns the last element of path, extension included.
func fileName(path string) string {
	return filepath.Base(path)
}

// fileStem returns the last element of path without its extension.
func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// fileMetadata returns the base metadata shared by the text-based formats:
// the filename as title plus filesystem creation and modification times.
func fileMetadata(path string) (map[string]any, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	meta := map[string]any{
		domain.MetaTitle:     fileName(path),
		domain.MetaCreatedAt: creationTime(info),
		domain.MetaUpdatedAt: info.ModTime(),
	}
	return meta, nil
}
