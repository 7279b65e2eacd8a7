package content

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/ledongthuc/pdf"

	"kb-analyzer/pkg/domain"
)

var errNilPDFDocument = errors.New("pdf document is nil")

// ExtractPDF reads a PDF file. Page texts are joined with a newline and the
// document information dictionary is copied into metadata with the leading
// "/" stripped from each key.
func ExtractPDF(path string) (article domain.Article, err error) {
	if path == "" {
		return domain.Article{}, errEmptyPath
	}

	// The pdf package panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	file, reader, err := pdf.Open(path)
	if err != nil {
		return domain.Article{}, err
	}
	defer file.Close()

	text, err := extractPagesText(reader)
	if err != nil {
		return domain.Article{}, err
	}

	return domain.Article{
		Path:     path,
		Content:  text,
		Metadata: pdfInfo(reader),
		FileType: domain.FileTypePDF,
	}, nil
}

// extractPagesText concatenates the plain text of every page, in order.
func extractPagesText(doc *pdf.Reader) (string, error) {
	if doc == nil {
		return "", errNilPDFDocument
	}

	pages := make([]string, 0, doc.NumPage())
	for i := 1; i <= doc.NumPage(); i++ {
		page := doc.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, text)
	}

	return strings.Join(pages, "\n"), nil
}

// pdfInfo copies the Info dictionary of the trailer. CreationDate and ModDate
// additionally populate created_at and updated_at when they parse.
func pdfInfo(doc *pdf.Reader) map[string]any {
	meta := map[string]any{}

	info := doc.Trailer().Key("Info")
	if info.Kind() != pdf.Dict {
		return meta
	}

	for _, k := range info.Keys() {
		key := strings.TrimLeftFunc(k, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if key == "" {
			continue
		}
		meta[key] = pdfValueString(info.Key(k))
	}

	if t, ok := parsePDFDate(info.Key("CreationDate").Text()); ok {
		meta[domain.MetaCreatedAt] = t
	}
	if t, ok := parsePDFDate(info.Key("ModDate").Text()); ok {
		meta[domain.MetaUpdatedAt] = t
	}
	if title := strings.TrimSpace(pdfValueString(info.Key("Title"))); title != "" {
		meta[domain.MetaTitle] = title
	}
	if author := strings.TrimSpace(pdfValueString(info.Key("Author"))); author != "" {
		meta[domain.MetaAuthor] = author
	}

	return meta
}

func pdfValueString(v pdf.Value) string {
	switch v.Kind() {
	case pdf.Null:
		return ""
	case pdf.String:
		return v.Text()
	case pdf.Name:
		return v.Name()
	case pdf.Integer:
		return strconv.FormatInt(v.Int64(), 10)
	case pdf.Real:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case pdf.Bool:
		return strconv.FormatBool(v.Bool())
	default:
		return v.String()
	}
}

// parsePDFDate parses the PDF date format D:YYYYMMDDHHmmSSOHH'mm'.
// Trailing components are optional.
func parsePDFDate(s string) (time.Time, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "D:")
	if len(s) < 4 {
		return time.Time{}, false
	}

	// Split the timezone suffix off the digit run.
	digits := s
	zone := ""
	if i := strings.IndexAny(s, "Z+-"); i >= 0 {
		digits, zone = s[:i], s[i:]
	}

	layouts := map[int]string{
		4:  "2006",
		6:  "200601",
		8:  "20060102",
		10: "2006010215",
		12: "200601021504",
		14: "20060102150405",
	}
	layout, ok := layouts[len(digits)]
	if !ok {
		return time.Time{}, false
	}

	loc := time.UTC
	if zone != "" && zone[0] != 'Z' {
		z := strings.ReplaceAll(zone[1:], "'", "")
		if len(z) >= 2 {
			hh, err1 := strconv.Atoi(z[:2])
			mm := 0
			var err2 error
			if len(z) >= 4 {
				mm, err2 = strconv.Atoi(z[2:4])
			}
			if err1 == nil && err2 == nil {
				offset := hh*3600 + mm*60
				if zone[0] == '-' {
					offset = -offset
				}
				loc = time.FixedZone("", offset)
			}
		}
	}

	t, err := time.ParseInLocation(layout, digits, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
