package parser

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"kb-analyzer/pkg/domain"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func newTestParser(buf *bytes.Buffer) *Parser {
	logger := zerolog.New(buf).Level(zerolog.InfoLevel)
	return New(Config{Logger: &logger})
}

func countLevel(buf *bytes.Buffer, level string) int {
	return strings.Count(buf.String(), `"level":"`+level+`"`)
}

func TestParseDirectory_SupportedAndUnsupported(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.md"), "# A\n\nalpha\n")
	writeFile(t, filepath.Join(root, "b.txt"), "bravo")
	writeFile(t, filepath.Join(root, "nested", "c.html"), "<html><head><title>C</title></head><body>charlie</body></html>")
	writeFile(t, filepath.Join(root, "nested", "deep", "D.MD"), "delta")
	writeFile(t, filepath.Join(root, "image.png"), "\x89PNG")
	writeFile(t, filepath.Join(root, "nested", "data.json"), "{}")

	var buf bytes.Buffer
	articles, err := newTestParser(&buf).ParseDirectory(root)
	if err != nil {
		t.Fatalf("ParseDirectory returned error: %v", err)
	}

	if len(articles) != 4 {
		t.Fatalf("Expected 4 articles, got %d", len(articles))
	}
	if buf.Len() != 0 {
		t.Errorf("Expected no log output at info level, got %s", buf.String())
	}

	seen := map[string]bool{}
	for _, a := range articles {
		if seen[a.Path] {
			t.Errorf("Duplicate path %s", a.Path)
		}
		seen[a.Path] = true
		if !a.FileType.Valid() {
			t.Errorf("Invalid file type %q for %s", a.FileType, a.Path)
		}
	}
	if !seen[filepath.Join(root, "nested", "deep", "D.MD")] {
		t.Errorf("Expected upper-case extension to be parsed")
	}
}

func TestParseDirectory_CorruptFileSkipped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "good.txt"), "fine")
	writeFile(t, filepath.Join(root, "broken.pdf"), "%PDF-1.4 garbage")

	var buf bytes.Buffer
	articles, err := newTestParser(&buf).ParseDirectory(root)
	if err != nil {
		t.Fatalf("ParseDirectory returned error: %v", err)
	}

	if len(articles) != 1 || articles[0].Content != "fine" {
		t.Fatalf("Expected only the good file, got %#v", articles)
	}
	if n := countLevel(&buf, "error"); n != 1 {
		t.Errorf("Expected exactly one error log entry, got %d: %s", n, buf.String())
	}
	if !strings.Contains(buf.String(), "broken.pdf") {
		t.Errorf("Expected log to name the failing path, got %s", buf.String())
	}
}

func TestParseDirectory_Missing(t *testing.T) {
	var buf bytes.Buffer
	articles, err := newTestParser(&buf).ParseDirectory(filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, ErrDirectoryNotFound) {
		t.Fatalf("Expected ErrDirectoryNotFound, got %v", err)
	}
	if len(articles) != 0 {
		t.Errorf("Expected no articles, got %d", len(articles))
	}
}

func TestParseDirectory_Empty(t *testing.T) {
	var buf bytes.Buffer
	articles, err := newTestParser(&buf).ParseDirectory(t.TempDir())
	if err != nil {
		t.Fatalf("ParseDirectory returned error: %v", err)
	}
	if len(articles) != 0 {
		t.Errorf("Expected no articles, got %d", len(articles))
	}
}

func TestParseDirectory_DoesNotModifyFiles(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "guide.md")
	body := "---\ntitle: Guide\n---\nbody\n"
	writeFile(t, path, body)

	var buf bytes.Buffer
	if _, err := newTestParser(&buf).ParseDirectory(root); err != nil {
		t.Fatalf("ParseDirectory returned error: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read back: %v", err)
	}
	if string(got) != body {
		t.Errorf("Source file changed: %q", got)
	}
}

func TestParseFile(t *testing.T) {
	root := t.TempDir()
	md := filepath.Join(root, "guide.md")
	writeFile(t, md, "---\ntitle: Install Guide\nauthor: Ops\n---\n# Steps\n\nDo it.\n")
	other := filepath.Join(root, "notes.rtf")
	writeFile(t, other, "{\\rtf1}")

	var buf bytes.Buffer
	p := newTestParser(&buf)

	article, err := p.ParseFile(md)
	if err != nil {
		t.Fatalf("ParseFile returned error: %v", err)
	}
	if article.FileType != domain.FileTypeMarkdown {
		t.Errorf("Expected markdown, got %q", article.FileType)
	}
	if article.Title() != "Install Guide" || article.MetaString("author") != "Ops" {
		t.Errorf("Unexpected metadata %#v", article.Metadata)
	}
	if strings.Contains(article.Content, "title:") {
		t.Errorf("Frontmatter leaked into content: %q", article.Content)
	}

	if _, err := p.ParseFile(filepath.Join(root, "missing.txt")); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Expected ErrFileNotFound, got %v", err)
	}
	if _, err := p.ParseFile(other); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseDirectory_LeadingRuleMarkdown(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "rule.md"), "---\n\nSome text\n")

	var buf bytes.Buffer
	articles, err := newTestParser(&buf).ParseDirectory(root)
	if err != nil {
		t.Fatalf("ParseDirectory returned error: %v", err)
	}

	if len(articles) != 1 {
		t.Fatalf("Expected 1 article, got %d (log: %s)", len(articles), buf.String())
	}
	if articles[0].FileType != domain.FileTypeMarkdown {
		t.Errorf("Expected markdown, got %q", articles[0].FileType)
	}
	if !strings.Contains(articles[0].Content, "Some text") {
		t.Errorf("Expected visible text in content, got %q", articles[0].Content)
	}
}

func TestSupportedExtensions(t *testing.T) {
	got := New(Config{}).SupportedExtensions()
	want := []string{".doc", ".docx", ".html", ".md", ".pdf", ".txt"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Expected %v, got %v", want, got)
	}
}
