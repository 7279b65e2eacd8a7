package content

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jung-kurt/gofpdf"

	"kb-analyzer/pkg/domain"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestExtractPlainText(t *testing.T) {
	path := writeFile(t, t.TempDir(), "notes.txt", "line one\nline two\n")

	article, err := ExtractPlainText(path)
	if err != nil {
		t.Fatalf("ExtractPlainText returned error: %v", err)
	}

	if article.Content != "line one\nline two\n" {
		t.Errorf("Expected verbatim content, got %q", article.Content)
	}
	if article.FileType != domain.FileTypeText {
		t.Errorf("Expected text file type, got %q", article.FileType)
	}
	if article.Title() != "notes.txt" {
		t.Errorf("Expected filename title, got %q", article.Title())
	}
	if _, ok := article.Metadata[domain.MetaUpdatedAt].(time.Time); !ok {
		t.Errorf("Expected updated_at timestamp, got %#v", article.Metadata[domain.MetaUpdatedAt])
	}
	if _, ok := article.Metadata[domain.MetaCreatedAt].(time.Time); !ok {
		t.Errorf("Expected created_at timestamp, got %#v", article.Metadata[domain.MetaCreatedAt])
	}
}

func TestExtractPlainText_InvalidUTF8(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.txt", string([]byte{0xff, 0xfe, 0x00, 0x41}))

	_, err := ExtractPlainText(path)
	if !errors.Is(err, ErrInvalidEncoding) {
		t.Fatalf("Expected ErrInvalidEncoding, got %v", err)
	}
}

func TestMarkdownExtractor_Frontmatter(t *testing.T) {
	src := "---\ntitle: Guide\nauthor: Ops Team\ntags:\n  - setup\n  - linux\n---\n# Install\n\nRun the **installer**.\n"
	path := writeFile(t, t.TempDir(), "guide.md", src)

	article, err := NewMarkdownExtractor(MarkdownPlain).Extract(path)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if article.Title() != "Guide" {
		t.Errorf("Expected frontmatter title, got %q", article.Title())
	}
	if article.MetaString(domain.MetaAuthor) != "Ops Team" {
		t.Errorf("Expected author, got %q", article.MetaString(domain.MetaAuthor))
	}
	tags, ok := article.Metadata["tags"].([]string)
	if !ok || len(tags) != 2 || tags[0] != "setup" {
		t.Errorf("Expected tags [setup linux], got %#v", article.Metadata["tags"])
	}
	if strings.Contains(article.Content, "---") || strings.Contains(article.Content, "title:") {
		t.Errorf("Content must not contain frontmatter, got %q", article.Content)
	}
	if strings.Contains(article.Content, "**") || strings.Contains(article.Content, "#") {
		t.Errorf("Expected markup to be stripped, got %q", article.Content)
	}
	if !strings.Contains(article.Content, "Run the installer.") {
		t.Errorf("Expected body text, got %q", article.Content)
	}
}

func TestMarkdownExtractor_TitleFallbacks(t *testing.T) {
	dir := t.TempDir()

	withHeading := writeFile(t, dir, "heading.md", "Intro\n\n# Real Title\n\nText.\n")
	article, err := NewMarkdownExtractor(MarkdownPlain).Extract(withHeading)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if article.Title() != "Real Title" {
		t.Errorf("Expected H1 title, got %q", article.Title())
	}

	noHeading := writeFile(t, dir, "plain.md", "Just a paragraph.\n")
	article, err = NewMarkdownExtractor(MarkdownPlain).Extract(noHeading)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if article.Title() != "plain.md" {
		t.Errorf("Expected filename title, got %q", article.Title())
	}
}

func TestMarkdownExtractor_RawMode(t *testing.T) {
	path := writeFile(t, t.TempDir(), "raw.md", "---\ntitle: Raw\n---\n# Heading\n\n- item\n")

	article, err := NewMarkdownExtractor(MarkdownRaw).Extract(path)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if article.Content != "# Heading\n\n- item\n" {
		t.Errorf("Expected raw body, got %q", article.Content)
	}
}

func TestSplitFrontmatter(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantBody string
		wantKeys int
		wantErr  bool
	}{
		{"none", "# Title\n", "# Title\n", 0, false},
		{"simple", "---\na: 1\nb: two\n---\nbody\n", "body\n", 2, false},
		{"empty block", "---\n---\nbody\n", "body\n", 0, false},
		{"only frontmatter", "---\na: 1\n---", "", 1, false},
		{"unterminated", "---\na: 1\nbody\n", "---\na: 1\nbody\n", 0, false},
		{"leading rule", "---\n\nSome visible text.\n", "---\n\nSome visible text.\n", 0, false},
		{"trailing blanks", "--- \ntitle: X\n---\t\nbody\n", "body\n", 1, false},
		{"long delimiters", "-----\na: 1\n-----\nbody\n", "body\n", 1, false},
		{"not a delimiter", "--x\na: 1\n---\nbody\n", "--x\na: 1\n---\nbody\n", 0, false},
		{"bad yaml", "---\na: [1\n---\nbody\n", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			front, body, err := SplitFrontmatter(tt.src)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("SplitFrontmatter returned error: %v", err)
			}
			if body != tt.wantBody {
				t.Errorf("Expected body %q, got %q", tt.wantBody, body)
			}
			if len(front) != tt.wantKeys {
				t.Errorf("Expected %d keys, got %#v", tt.wantKeys, front)
			}
		})
	}
}

const sampleHTML = `<!DOCTYPE html>
<html>
<head>
<title>Reset Password</title>
<meta name="Description" content="How to reset a password">
<meta name="Author" content="Support">
<meta name="empty" content="">
<style>body { color: red; }</style>
</head>
<body>
<h1>Reset</h1>
<p>Open <b>settings</b> and click reset.</p>
<script>alert("x")</script>
</body>
</html>`

func TestHTMLExtractor_Plain(t *testing.T) {
	path := writeFile(t, t.TempDir(), "reset.html", sampleHTML)

	article, err := NewHTMLExtractor(HTMLPlain).Extract(path)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if article.Title() != "Reset Password" {
		t.Errorf("Expected <title>, got %q", article.Title())
	}
	if article.MetaString("description") != "How to reset a password" {
		t.Errorf("Expected lower-cased description key, got %#v", article.Metadata)
	}
	if article.MetaString(domain.MetaAuthor) != "Support" {
		t.Errorf("Expected author Support, got %q", article.MetaString(domain.MetaAuthor))
	}
	if _, ok := article.Metadata["empty"]; ok {
		t.Errorf("Empty meta content must be skipped")
	}
	for _, forbidden := range []string{"<", "alert", "color: red"} {
		if strings.Contains(article.Content, forbidden) {
			t.Errorf("Content contains %q: %q", forbidden, article.Content)
		}
	}
	if !strings.Contains(article.Content, "Open settings and click reset.") {
		t.Errorf("Expected visible text, got %q", article.Content)
	}
}

func TestHTMLExtractor_Body(t *testing.T) {
	path := writeFile(t, t.TempDir(), "reset.html", sampleHTML)

	article, err := NewHTMLExtractor(HTMLBodyMarkup).Extract(path)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if !strings.Contains(article.Content, "<b>settings</b>") {
		t.Errorf("Expected body markup to be kept, got %q", article.Content)
	}
	if strings.Contains(article.Content, "<script") || strings.Contains(article.Content, "<title") {
		t.Errorf("Expected only sanitized body markup, got %q", article.Content)
	}
}

func TestHTMLExtractor_FilenameTitle(t *testing.T) {
	path := writeFile(t, t.TempDir(), "untitled.html", "<html><body><p>x</p></body></html>")

	article, err := NewHTMLExtractor(HTMLPlain).Extract(path)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if article.Title() != "untitled.html" {
		t.Errorf("Expected filename title, got %q", article.Title())
	}
}

func writeDocx(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(f)
	for name, body := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(body))
	}
	w.Close()
	f.Close()
}

func TestExtractWord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runbook.docx")

	docXML := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
<w:tbl>
<w:tr><w:tc><w:p><w:r><w:t>Name</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Value</w:t></w:r></w:p></w:tc></w:tr>
<w:tr><w:tc><w:p><w:r><w:t>port</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>8080</w:t></w:r></w:p></w:tc></w:tr>
</w:tbl>
<w:p><w:r><w:t xml:space="preserve">Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
</w:body>
</w:document>`

	coreXML := `<?xml version="1.0" encoding="UTF-8"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
<dc:creator>Jane Ops</dc:creator>
<dcterms:created xsi:type="dcterms:W3CDTF">2023-05-01T10:00:00Z</dcterms:created>
<dcterms:modified xsi:type="dcterms:W3CDTF">2024-02-01T10:00:00Z</dcterms:modified>
</cp:coreProperties>`

	writeDocx(t, path, map[string]string{
		"word/document.xml": docXML,
		"docProps/core.xml": coreXML,
	})

	article, err := ExtractWord(path)
	if err != nil {
		t.Fatalf("ExtractWord returned error: %v", err)
	}

	want := "First paragraph.\nSecond paragraph.\nName Value\nport 8080"
	if article.Content != want {
		t.Errorf("Expected content %q, got %q", want, article.Content)
	}
	if article.Title() != "runbook" {
		t.Errorf("Expected stem title, got %q", article.Title())
	}
	if article.MetaString(domain.MetaAuthor) != "Jane Ops" {
		t.Errorf("Expected author from core properties, got %q", article.MetaString(domain.MetaAuthor))
	}
	if article.MetaString(MetaModified) != "2024-02-01T10:00:00Z" {
		t.Errorf("Expected modified timestamp, got %q", article.MetaString(MetaModified))
	}
	if _, ok := article.Metadata[domain.MetaCreatedAt].(time.Time); !ok {
		t.Errorf("Expected created_at from core properties")
	}
}

func TestExtractWord_NoCoreProperties(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bare.docx")
	writeDocx(t, path, map[string]string{
		"word/document.xml": `<w:document xmlns:w="x"><w:body><w:p><w:r><w:t>Hi</w:t></w:r></w:p></w:body></w:document>`,
	})

	article, err := ExtractWord(path)
	if err != nil {
		t.Fatalf("ExtractWord returned error: %v", err)
	}
	if article.MetaString(domain.MetaAuthor) != "" || article.MetaString(MetaCreated) != "" {
		t.Errorf("Expected blank properties, got %#v", article.Metadata)
	}
	if _, ok := article.Metadata[domain.MetaCreatedAt]; ok {
		t.Errorf("created_at must be absent without document properties")
	}
}

func TestExtractWord_BlankParagraphsAndTabStops(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spacing.docx")
	writeDocx(t, path, map[string]string{
		"word/document.xml": `<w:document xmlns:w="x"><w:body>
<w:p><w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/></w:tabs></w:pPr><w:r><w:t>Step</w:t></w:r><w:r><w:tab/><w:t>one</w:t></w:r></w:p>
<w:p></w:p>
<w:p><w:r><w:t>Step two</w:t></w:r></w:p>
</w:body></w:document>`,
	})

	article, err := ExtractWord(path)
	if err != nil {
		t.Fatalf("ExtractWord returned error: %v", err)
	}

	want := "Step\tone\n\nStep two"
	if article.Content != want {
		t.Errorf("Expected content %q, got %q", want, article.Content)
	}
}

func TestExtractWord_Legacy(t *testing.T) {
	body := append(append([]byte{}, oleSignature...), make([]byte, 64)...)
	path := writeFile(t, t.TempDir(), "old.doc", string(body))

	_, err := ExtractWord(path)
	if !errors.Is(err, ErrLegacyWordFormat) {
		t.Fatalf("Expected ErrLegacyWordFormat, got %v", err)
	}
}

func TestExtractPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manual.pdf")

	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetTitle("Operator Manual", false)
	doc.SetAuthor("Docs Team", false)
	doc.AddPage()
	doc.SetFont("Arial", "", 12)
	doc.Cell(40, 10, "Hello")
	doc.AddPage()
	doc.Cell(40, 10, "World")
	if err := doc.OutputFileAndClose(path); err != nil {
		t.Fatalf("Failed to write pdf: %v", err)
	}

	article, err := ExtractPDF(path)
	if err != nil {
		t.Fatalf("ExtractPDF returned error: %v", err)
	}

	if !strings.Contains(article.Content, "Hello") || !strings.Contains(article.Content, "World") {
		t.Errorf("Expected text of both pages, got %q", article.Content)
	}
	if article.MetaString("Title") != "Operator Manual" {
		t.Errorf("Expected Title key without slash, got %#v", article.Metadata)
	}
	if article.MetaString("Author") != "Docs Team" {
		t.Errorf("Expected Author key, got %#v", article.Metadata)
	}
	if article.FileType != domain.FileTypePDF {
		t.Errorf("Expected pdf file type, got %q", article.FileType)
	}
}

func TestExtractPDF_Corrupt(t *testing.T) {
	path := writeFile(t, t.TempDir(), "broken.pdf", "%PDF-1.4\nthis is not a pdf")

	if _, err := ExtractPDF(path); err == nil {
		t.Fatal("Expected error for corrupt pdf, got nil")
	}
}

func TestParsePDFDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"D:20240102030405Z", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), true},
		{"D:20240102030405+02'00'", time.Date(2024, 1, 2, 1, 4, 5, 0, time.UTC), true},
		{"D:20240102", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), true},
		{"garbage", time.Time{}, false},
		{"", time.Time{}, false},
	}

	for _, tt := range tests {
		got, ok := parsePDFDate(tt.in)
		if ok != tt.ok {
			t.Errorf("parsePDFDate(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && !got.Equal(tt.want) {
			t.Errorf("parsePDFDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
